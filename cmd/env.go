package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/assistant"
	"github.com/sells-group/audit-cli/internal/config"
	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/ocr"
	"github.com/sells-group/audit-cli/internal/resilience"
	"github.com/sells-group/audit-cli/internal/session"
	"github.com/sells-group/audit-cli/internal/store"
	"github.com/sells-group/audit-cli/internal/workflow"
	anthropicpkg "github.com/sells-group/audit-cli/pkg/anthropic"
	"github.com/sells-group/audit-cli/pkg/auditapi"
)

const saveTimeout = 5 * time.Second

// auditEnv holds the store, the collaborators and the breakers shared by
// every session a command opens.
type auditEnv struct {
	Store     store.Store
	Services  workflow.Services
	Breakers  *resilience.Breakers
	DropStale bool
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode, opens the store and builds the
// collaborators. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*auditEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	svc, err := buildServices(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	svc.History = st

	return &auditEnv{
		Store:     st,
		Services:  svc,
		Breakers:  resilience.NewBreakers(resilience.FromConfig(cfg.Resilience)),
		DropStale: cfg.Session.DropStaleResponses,
	}, nil
}

// buildServices wires the collaborators selected by the assistant and ingest
// providers. Report rendering always goes through the audit backend.
func buildServices(c *config.Config) (workflow.Services, error) {
	api := workflow.NewAPIServices(newAuditClient(c.API))
	svc := workflow.Services{
		Assistant: api,
		Ingester:  api,
		Scorer:    api,
		Renderer:  api,
	}

	if c.Assistant.Provider == "anthropic" {
		a := assistant.New(anthropicpkg.NewClient(c.Anthropic.Key), c.Anthropic)
		svc.Assistant = a
		svc.Scorer = a
		zap.L().Info("assistant: using anthropic provider", zap.String("model", c.Anthropic.Model))
	}

	switch c.Ingest.Provider {
	case "", "service":
	default:
		extractor, err := ocr.NewExtractor(c.Ingest)
		if err != nil {
			return svc, eris.Wrap(err, "build ingest provider")
		}
		svc.Ingester = workflow.NewLocalIngester(extractor, svc.Assistant)
		zap.L().Info("ingest: using local extractor", zap.String("provider", c.Ingest.Provider))
	}
	return svc, nil
}

func newAuditClient(c config.APIConfig) auditapi.Client {
	return auditapi.NewClient(
		auditapi.WithBaseURL(c.BaseURL),
		auditapi.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
		auditapi.WithRateLimit(c.RatePerSec),
		auditapi.WithPaths(auditapi.Paths{
			Chat:        c.ChatPath,
			Generate:    c.GeneratePath,
			Ingest:      c.IngestPath,
			IngestField: c.IngestField,
			Compare:     c.ComparePath,
			Export:      c.ExportPath,
		}),
	)
}

// openSession loads session id and returns an orchestrator whose every
// change is saved back to the store. The last comparison is shown again
// when it still matches the session's AI analysis.
func (e *auditEnv) openSession(ctx context.Context, id string, svc workflow.Services, opts ...workflow.Option) (*workflow.Orchestrator, error) {
	rec, err := e.Store.GetSession(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "load session %s", id)
	}
	var initial model.Session
	if rec != nil {
		initial = rec.State
	}

	ctrl := session.NewController(id, initial)
	opts = append([]workflow.Option{
		workflow.WithBreakers(e.Breakers),
		workflow.WithDropStale(e.DropStale),
	}, opts...)
	o := workflow.New(ctrl, svc, opts...)

	ctrl.Subscribe(func(_, next model.Session) {
		sctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := e.Store.SaveSession(sctx, id, next); err != nil {
			zap.L().Error("failed to save session", zap.String("session", id), zap.Error(err))
		}
	})

	if !initial.IsEmpty() {
		last, err := e.Store.LatestComparison(ctx, id)
		if err != nil {
			zap.L().Warn("failed to load last comparison", zap.String("session", id), zap.Error(err))
		} else if o.RestoreComparison(last) {
			zap.L().Debug("restored last comparison", zap.String("session", id))
		}
	}
	return o, nil
}
