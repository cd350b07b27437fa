// Package workflow orchestrates an audit session: case generation, AI
// analysis, document ingestion, comparison against the auditor's analysis,
// and report export. Every step calls a remote collaborator and patches only
// the session fields it owns.
package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/resilience"
	"github.com/sells-group/audit-cli/internal/session"
)

// Assistant answers free-form messages and generates case studies. Logical
// errors come back as text; only transport failures are errors.
type Assistant interface {
	SendMessage(ctx context.Context, message string) (string, error)
	GenerateCase(ctx context.Context, filter model.GenerationFilter) (string, error)
}

// Ingester extracts case text from a document together with a first-pass
// analysis of it.
type Ingester interface {
	Ingest(ctx context.Context, doc model.Document) (*model.Extraction, error)
}

// Scorer compares the AI analysis with the auditor's analysis.
type Scorer interface {
	Compare(ctx context.Context, aiAnalysis, userAnalysis string) (*model.ComparisonResult, error)
}

// Renderer turns the report fields into a binary artifact.
type Renderer interface {
	RenderReport(ctx context.Context, report model.Report) ([]byte, error)
}

// Sink persists an exported artifact and returns where it was stored.
type Sink interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// History records successful comparisons.
type History interface {
	AddComparison(ctx context.Context, rec *model.ComparisonRecord) error
}

// Services bundles the collaborators of an orchestrator. Sink and History
// are optional.
type Services struct {
	Assistant Assistant
	Ingester  Ingester
	Scorer    Scorer
	Renderer  Renderer
	Sink      Sink
	History   History
}

// Collaborator names used for circuit breakers and logs.
const (
	breakerAssistant = "assistant"
	breakerIngest    = "ingest"
	breakerScorer    = "scorer"
	breakerRenderer  = "renderer"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBreakers guards collaborator calls with the given breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(o *Orchestrator) { o.breakers = b }
}

// WithDropStale controls whether responses superseded by a newer dispatch of
// the same kind are discarded. Enabled by default.
func WithDropStale(drop bool) Option {
	return func(o *Orchestrator) { o.dropStale = drop }
}

// WithTracker shares an operation tracker, e.g. across HTTP requests.
func WithTracker(t *Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// Orchestrator runs workflow operations against one session.
type Orchestrator struct {
	session   *session.Controller
	svc       Services
	breakers  *resilience.Breakers
	tracker   *Tracker
	panel     *Panel
	dropStale bool
}

// New creates an orchestrator for ctrl. The comparison panel starts with the
// session's current AI analysis and follows it from then on.
func New(ctrl *session.Controller, svc Services, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:   ctrl,
		svc:       svc,
		dropStale: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.breakers == nil {
		o.breakers = resilience.NewBreakers(resilience.DefaultBreakerConfig())
	}
	if o.tracker == nil {
		o.tracker = NewTracker()
	}
	o.panel = NewPanel(ctrl.Snapshot().AIAnalysis)
	ctrl.Subscribe(o.panel.Sync)
	return o
}

// Session returns the controller the orchestrator patches.
func (o *Orchestrator) Session() *session.Controller { return o.session }

// Panel returns the comparison panel.
func (o *Orchestrator) Panel() *Panel { return o.panel }

// Statuses returns the status of every operation kind.
func (o *Orchestrator) Statuses() []Status { return o.tracker.Snapshot() }

// Status returns the status of one operation kind.
func (o *Orchestrator) Status(k Kind) Status { return o.tracker.Status(k) }

// current reports whether a response for dispatch seq may still be applied.
func (o *Orchestrator) current(k Kind, seq uint64) bool {
	return !o.dropStale || o.tracker.Latest(k, seq)
}

func (o *Orchestrator) logger(k Kind, seq uint64) *zap.Logger {
	return zap.L().With(
		zap.String("session", o.session.ID()),
		zap.String("op", string(k)),
		zap.Uint64("seq", seq),
	)
}

// fail records a transport failure and builds the error returned to callers.
// The cause is logged; only message reaches the user.
func (o *Orchestrator) fail(k Kind, seq uint64, message string, err error) *Failure {
	o.logger(k, seq).Warn("workflow: operation failed",
		zap.String("error_type", resilience.ClassifyError(err)),
		zap.Error(err),
	)
	o.tracker.Finish(k, seq, Failed, message)
	return &Failure{Op: k, Message: message, Err: err}
}

func (o *Orchestrator) stale(k Kind, seq uint64) error {
	o.logger(k, seq).Info("workflow: dropping superseded response")
	return eris.Wrapf(ErrStale, "workflow: %s #%d", k, seq)
}

func guard[T any](ctx context.Context, o *Orchestrator, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	return resilience.ExecuteVal(ctx, o.breakers.Get(name), fn)
}
