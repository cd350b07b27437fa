package workflow

import (
	"context"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/pkg/auditapi"
)

// APIServices adapts the audit backend client to the workflow collaborators.
type APIServices struct {
	client auditapi.Client
}

// NewAPIServices wraps client.
func NewAPIServices(client auditapi.Client) *APIServices {
	return &APIServices{client: client}
}

// SendMessage returns the reply, or the service's error text when it sent
// no reply.
func (a *APIServices) SendMessage(ctx context.Context, message string) (string, error) {
	resp, err := a.client.SendMessage(ctx, message)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateCase returns the case, or the service's error text when it sent
// no case.
func (a *APIServices) GenerateCase(ctx context.Context, filter model.GenerationFilter) (string, error) {
	resp, err := a.client.GenerateCase(ctx, auditapi.GenerateCaseRequest{
		Pais:          filter.Country,
		Sector:        filter.Sector,
		TipoEmpresa:   filter.CompanyType,
		TamanoEmpresa: filter.CompanySize,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Ingest uploads the document and returns the extracted text and analysis.
func (a *APIServices) Ingest(ctx context.Context, doc model.Document) (*model.Extraction, error) {
	resp, err := a.client.IngestDocument(ctx, doc.Name, doc.Data)
	if err != nil {
		return nil, err
	}
	return &model.Extraction{Text: resp.TextoExtraido, Analysis: resp.Respuesta}, nil
}

// Compare scores the two analyses.
func (a *APIServices) Compare(ctx context.Context, aiAnalysis, userAnalysis string) (*model.ComparisonResult, error) {
	resp, err := a.client.Compare(ctx, auditapi.CompareRequest{
		ChatbotResponse: aiAnalysis,
		UserAnalysis:    userAnalysis,
	})
	if err != nil {
		return nil, err
	}
	return &model.ComparisonResult{
		Summary:                  resp.ComparacionIA,
		Effectiveness:            resp.Efectividad,
		Impact:                   resp.Impacto,
		Probability:              resp.Probabilidad,
		Risk:                     resp.Riesgo,
		Level:                    resp.Nivel,
		EffectivenessExplanation: resp.ExplicacionEfectividad,
		RiskExplanation:          resp.ExplicacionRiesgo,
	}, nil
}

// RenderReport requests the PDF report.
func (a *APIServices) RenderReport(ctx context.Context, report model.Report) ([]byte, error) {
	return a.client.ExportReport(ctx, auditapi.ExportRequest{
		CasoEstudio:      report.CaseStudy,
		RespuestaIA:      report.AIAnalysis,
		RespuestaUsuario: report.UserAnalysis,
		Comparacion:      report.Comparison,
	})
}
