// Package auditapi provides a client for the audit backend: chat, case
// generation, document extraction, comparison scoring and PDF reports.
package auditapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "http://localhost:5000"
	defaultChatPath    = "/chat"
	defaultGenPath     = "/generar_caso"
	defaultIngestPath  = "/procesar_documento"
	defaultIngestField = "file"
	defaultComparePath = "/compare"
	defaultExportPath  = "/descargar_pdf"
)

// Client performs requests against the audit backend. Logical errors reported
// inside a 2xx response are returned in the response's Error field; any
// transport failure or non-2xx status is returned as an error.
type Client interface {
	SendMessage(ctx context.Context, message string) (*MessageResponse, error)
	GenerateCase(ctx context.Context, req GenerateCaseRequest) (*GenerateCaseResponse, error)
	IngestDocument(ctx context.Context, name string, data []byte) (*IngestResponse, error)
	Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error)
	ExportReport(ctx context.Context, req ExportRequest) ([]byte, error)
}

// MessageResponse is the response from the chat endpoint.
type MessageResponse struct {
	Respuesta string `json:"respuesta"`
	Error     string `json:"error"`
}

// Text returns the reply, falling back to the error text when the reply is empty.
func (r *MessageResponse) Text() string {
	return pickText(r.Respuesta, r.Error)
}

// GenerateCaseRequest is the body of the case generation endpoint.
type GenerateCaseRequest struct {
	Pais          string `json:"pais"`
	Sector        string `json:"sector"`
	TipoEmpresa   string `json:"tipo_empresa"`
	TamanoEmpresa string `json:"tamano_empresa"`
}

// GenerateCaseResponse is the response from the case generation endpoint.
type GenerateCaseResponse struct {
	CasoEstudio string `json:"caso_estudio"`
	Error       string `json:"error"`
}

// Text returns the case, falling back to the error text when the case is empty.
func (r *GenerateCaseResponse) Text() string {
	return pickText(r.CasoEstudio, r.Error)
}

// IngestResponse is the response from the document extraction endpoint.
type IngestResponse struct {
	TextoExtraido string `json:"texto_extraido"`
	Respuesta     string `json:"respuesta"`
}

// CompareRequest is the body of the comparison endpoint.
type CompareRequest struct {
	ChatbotResponse string `json:"chatbot_response"`
	UserAnalysis    string `json:"user_analysis"`
}

// CompareResponse is the response from the comparison endpoint.
type CompareResponse struct {
	ComparacionIA          string  `json:"comparacion_ia"`
	Efectividad            string  `json:"efectividad"`
	Impacto                float64 `json:"impacto"`
	Probabilidad           float64 `json:"probabilidad"`
	Riesgo                 float64 `json:"riesgo"`
	Nivel                  string  `json:"nivel"`
	ExplicacionEfectividad string  `json:"explicacion_efectividad,omitempty"`
	ExplicacionRiesgo      string  `json:"explicacion_riesgo,omitempty"`
}

// ExportRequest is the body of the PDF report endpoint.
type ExportRequest struct {
	CasoEstudio      string `json:"caso_estudio"`
	RespuestaIA      string `json:"respuesta_ia"`
	RespuestaUsuario string `json:"respuesta_usuario"`
	Comparacion      string `json:"comparacion"`
}

// Paths overrides endpoint paths. Empty fields keep their defaults.
type Paths struct {
	Chat        string
	Generate    string
	Ingest      string
	IngestField string
	Compare     string
	Export      string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default backend base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithPaths overrides endpoint paths.
func WithPaths(p Paths) Option {
	return func(c *httpClient) {
		if p.Chat != "" {
			c.paths.Chat = p.Chat
		}
		if p.Generate != "" {
			c.paths.Generate = p.Generate
		}
		if p.Ingest != "" {
			c.paths.Ingest = p.Ingest
		}
		if p.IngestField != "" {
			c.paths.IngestField = p.IngestField
		}
		if p.Compare != "" {
			c.paths.Compare = p.Compare
		}
		if p.Export != "" {
			c.paths.Export = p.Export
		}
	}
}

type httpClient struct {
	baseURL string
	paths   Paths
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an audit backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		paths: Paths{
			Chat:        defaultChatPath,
			Generate:    defaultGenPath,
			Ingest:      defaultIngestPath,
			IngestField: defaultIngestField,
			Compare:     defaultComparePath,
			Export:      defaultExportPath,
		},
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, message string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.postJSON(ctx, c.paths.Chat, map[string]string{"message": message}, &out); err != nil {
		return nil, eris.Wrap(err, "auditapi: send message")
	}
	return &out, nil
}

func (c *httpClient) GenerateCase(ctx context.Context, req GenerateCaseRequest) (*GenerateCaseResponse, error) {
	var out GenerateCaseResponse
	if err := c.postJSON(ctx, c.paths.Generate, req, &out); err != nil {
		return nil, eris.Wrap(err, "auditapi: generate case")
	}
	return &out, nil
}

func (c *httpClient) IngestDocument(ctx context.Context, name string, data []byte) (*IngestResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(c.paths.IngestField, name)
	if err != nil {
		return nil, eris.Wrap(err, "auditapi: ingest create form file")
	}
	if _, err := part.Write(data); err != nil {
		return nil, eris.Wrap(err, "auditapi: ingest write file")
	}
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "auditapi: ingest close writer")
	}

	body, err := c.do(ctx, c.paths.Ingest, writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, eris.Wrap(err, "auditapi: ingest document")
	}

	var out IngestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "auditapi: ingest unmarshal response")
	}
	return &out, nil
}

func (c *httpClient) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var out CompareResponse
	if err := c.postJSON(ctx, c.paths.Compare, req, &out); err != nil {
		return nil, eris.Wrap(err, "auditapi: compare")
	}
	return &out, nil
}

func (c *httpClient) ExportReport(ctx context.Context, req ExportRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "auditapi: export marshal request")
	}
	body, err := c.do(ctx, c.paths.Export, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "auditapi: export report")
	}
	if len(body) == 0 {
		return nil, eris.New("auditapi: export report: empty artifact")
	}
	return body, nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	body, err := c.do(ctx, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}
	return respBody, nil
}

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func pickText(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
