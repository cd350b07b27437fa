package workflow

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/ocr"
)

// LocalIngester extracts document text locally and asks the assistant for
// the first-pass analysis.
type LocalIngester struct {
	extractor ocr.Extractor
	assistant Assistant
}

// NewLocalIngester creates a LocalIngester.
func NewLocalIngester(extractor ocr.Extractor, assistant Assistant) *LocalIngester {
	return &LocalIngester{extractor: extractor, assistant: assistant}
}

// Ingest extracts the text of doc and analyzes it. Both values are returned
// together; nothing is returned when either step fails.
func (l *LocalIngester) Ingest(ctx context.Context, doc model.Document) (*model.Extraction, error) {
	text, err := l.extractor.ExtractText(ctx, doc)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: extract document text")
	}
	if strings.TrimSpace(text) == "" {
		return nil, eris.Errorf("workflow: no text extracted from %s", doc.Name)
	}

	analysis, err := l.assistant.SendMessage(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: analyze extracted text")
	}
	return &model.Extraction{Text: text, Analysis: analysis}, nil
}
