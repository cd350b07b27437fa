package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/assistant"
	"github.com/sells-group/audit-cli/internal/config"
	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/resilience"
	"github.com/sells-group/audit-cli/internal/store"
	"github.com/sells-group/audit-cli/internal/workflow"
)

func TestBuildServices_Defaults(t *testing.T) {
	svc, err := buildServices(&config.Config{
		API:       config.APIConfig{BaseURL: "http://localhost:5000"},
		Assistant: config.AssistantConfig{Provider: "service"},
		Ingest:    config.IngestConfig{Provider: "service"},
	})
	require.NoError(t, err)

	assert.IsType(t, &workflow.APIServices{}, svc.Assistant)
	assert.IsType(t, &workflow.APIServices{}, svc.Ingester)
	assert.IsType(t, &workflow.APIServices{}, svc.Scorer)
	assert.IsType(t, &workflow.APIServices{}, svc.Renderer)
	assert.Nil(t, svc.Sink)
}

func TestBuildServices_Providers(t *testing.T) {
	svc, err := buildServices(&config.Config{
		API:       config.APIConfig{BaseURL: "http://localhost:5000"},
		Assistant: config.AssistantConfig{Provider: "anthropic"},
		Anthropic: config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5"},
		Ingest:    config.IngestConfig{Provider: "pdftotext", PdfToTextPath: "pdftotext"},
	})
	require.NoError(t, err)

	assert.IsType(t, &assistant.Assistant{}, svc.Assistant)
	assert.IsType(t, &assistant.Assistant{}, svc.Scorer)
	assert.IsType(t, &workflow.LocalIngester{}, svc.Ingester)
	assert.IsType(t, &workflow.APIServices{}, svc.Renderer)
}

func TestBuildServices_MistralWithoutKey(t *testing.T) {
	_, err := buildServices(&config.Config{
		API:    config.APIConfig{BaseURL: "http://localhost:5000"},
		Ingest: config.IngestConfig{Provider: "mistral"},
	})
	require.Error(t, err)
}

func newTestEnv(svc workflow.Services) *auditEnv {
	st := store.NewMemory(time.Hour)
	svc.History = st
	return &auditEnv{
		Store:     st,
		Services:  svc,
		Breakers:  resilience.NewBreakers(resilience.DefaultBreakerConfig()),
		DropStale: true,
	}
}

func TestOpenSession_PersistsChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(workflow.Services{})
	defer env.Close()

	o, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	o.EnterCase("Caso manual")

	rec, err := env.Store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.Session{CaseStudy: "Caso manual"}, rec.State)

	reopened, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	assert.Equal(t, "Caso manual", reopened.Session().Snapshot().CaseStudy)
}

func TestOpenSession_RestoresMatchingComparison(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(workflow.Services{})
	defer env.Close()

	require.NoError(t, env.Store.SaveSession(ctx, "s1", model.Session{AIAnalysis: "A", UserAnalysis: "U"}))
	require.NoError(t, env.Store.AddComparison(ctx, &model.ComparisonRecord{
		SessionID:      "s1",
		SourceAnalysis: "A",
		AIAnalysis:     "A",
		UserAnalysis:   "U",
		Result:         model.ComparisonResult{Summary: "guardado"},
	}))

	o, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	assert.Equal(t, workflow.PanelSuccess, o.Panel().View().State)
	assert.Equal(t, "guardado", o.Panel().Summary())
}

func TestOpenSession_SkipsOutdatedComparison(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(workflow.Services{})
	defer env.Close()

	require.NoError(t, env.Store.SaveSession(ctx, "s1", model.Session{AIAnalysis: "B"}))
	require.NoError(t, env.Store.AddComparison(ctx, &model.ComparisonRecord{
		SessionID:      "s1",
		SourceAnalysis: "A",
		AIAnalysis:     "A",
		Result:         model.ComparisonResult{Summary: "viejo"},
	}))

	o, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	assert.Equal(t, workflow.PanelIdle, o.Panel().View().State)
	assert.Equal(t, workflow.NotAvailable, o.Panel().Summary())
}

type stubScorer struct{ summary string }

func (s stubScorer) Compare(_ context.Context, _, _ string) (*model.ComparisonResult, error) {
	return &model.ComparisonResult{Summary: s.summary, Effectiveness: "Alta", Level: model.RiskMedium}, nil
}

type stubRenderer struct{ reports []model.Report }

func (s *stubRenderer) RenderReport(_ context.Context, r model.Report) ([]byte, error) {
	s.reports = append(s.reports, r)
	return []byte("%PDF-1.4"), nil
}

func TestOpenSession_EditedDraftComparisonSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	renderer := &stubRenderer{}
	env := newTestEnv(workflow.Services{Scorer: stubScorer{summary: "SUMMARY"}, Renderer: renderer})
	defer env.Close()

	require.NoError(t, env.Store.SaveSession(ctx, "s1", model.Session{CaseStudy: "C", AIAnalysis: "A"}))

	first, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	first.EditDraft("edited analysis")
	_, err = first.Compare(ctx, "my notes")
	require.NoError(t, err)

	reopened, err := env.openSession(ctx, "s1", env.Services)
	require.NoError(t, err)
	view := reopened.Panel().View()
	assert.Equal(t, workflow.PanelSuccess, view.State)
	assert.Equal(t, "edited analysis", view.Draft)

	_, err = reopened.Export(ctx)
	require.NoError(t, err)
	require.Len(t, renderer.reports, 1)
	assert.Equal(t, model.Report{CaseStudy: "C", AIAnalysis: "A", UserAnalysis: "my notes", Comparison: "SUMMARY"}, renderer.reports[0])

	rec, err := env.Store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.Session{}, rec.State)
}
