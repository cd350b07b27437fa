package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// PdfToText extracts text from PDFs with the pdftotext CLI tool. Plain text
// documents pass through unchanged.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText writes the PDF to a temp file and runs pdftotext -layout on it.
func (p *PdfToText) ExtractText(ctx context.Context, doc model.Document) (string, error) {
	kind, mime := DetectKind(doc)
	switch kind {
	case KindText:
		return strings.TrimSpace(string(doc.Data)), nil
	case KindPDF:
	default:
		return "", eris.Errorf("ocr: pdftotext cannot read %s (%s)", doc.Name, mime)
	}

	tmp, err := os.CreateTemp("", "audit-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(doc.Data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "ocr: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", doc.Name, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}
