// Package ocr turns uploaded case documents into plain text.
package ocr

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/config"
	"github.com/sells-group/audit-cli/internal/model"
)

// Extractor extracts text content from an uploaded document.
type Extractor interface {
	ExtractText(ctx context.Context, doc model.Document) (string, error)
}

// NewExtractor creates the extractor selected by ingest.provider. The
// "service" provider extracts remotely and has no local extractor.
func NewExtractor(cfg config.IngestConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires ingest.mistral_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	case "service", "":
		return nil, eris.New("ocr: provider service has no local extractor")
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// Kind classifies a document payload.
type Kind string

// Document kinds.
const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindOther Kind = "other"
)

// DetectKind sniffs the payload, falling back to the declared content type
// and the file extension.
func DetectKind(doc model.Document) (Kind, string) {
	mime := http.DetectContentType(doc.Data)
	if strings.HasPrefix(mime, "application/octet-stream") && doc.ContentType != "" {
		mime = doc.ContentType
	}
	switch {
	case strings.HasPrefix(mime, "application/pdf"):
		return KindPDF, "application/pdf"
	case strings.HasPrefix(mime, "image/"):
		return KindImage, strings.SplitN(mime, ";", 2)[0]
	case strings.HasPrefix(mime, "text/plain"):
		return KindText, "text/plain"
	}
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return KindPDF, "application/pdf"
	case ".txt", ".md":
		return KindText, "text/plain"
	}
	return KindOther, mime
}
