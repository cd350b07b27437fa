package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "pixtral-large-latest"
)

// MistralOCR extracts text from PDFs and images with the Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewMistralOCR creates a MistralOCR extractor. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText sends the document inline as a data URL and joins the
// markdown of every returned page.
func (m *MistralOCR) ExtractText(ctx context.Context, doc model.Document) (string, error) {
	kind, mime := DetectKind(doc)

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
	var ocrDoc mistralOCRDocument
	switch kind {
	case KindText:
		return strings.TrimSpace(string(doc.Data)), nil
	case KindPDF:
		ocrDoc = mistralOCRDocument{Type: "document_url", DocumentURL: dataURL}
	case KindImage:
		ocrDoc = mistralOCRDocument{Type: "image_url", ImageURL: dataURL}
	default:
		return "", eris.Errorf("ocr: mistral cannot read %s (%s)", doc.Name, mime)
	}

	bodyBytes, err := json.Marshal(mistralOCRRequest{Model: m.model, Document: ocrDoc})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read mistral response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("ocr: mistral API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal mistral response")
	}

	pages := make([]string, 0, len(ocrResp.Pages))
	for _, page := range ocrResp.Pages {
		if s := strings.TrimSpace(page.Markdown); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
