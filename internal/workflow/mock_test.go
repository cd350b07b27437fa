package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/sells-group/audit-cli/internal/model"
)

var errTransport = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

type fakeAssistant struct {
	mu        sync.Mutex
	messages  []string
	filters   []model.GenerationFilter
	sendFn    func(ctx context.Context, message string) (string, error)
	generateF func(ctx context.Context, filter model.GenerationFilter) (string, error)
}

func (f *fakeAssistant) SendMessage(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return "analysis of " + message, nil
	}
	return fn(ctx, message)
}

func (f *fakeAssistant) GenerateCase(ctx context.Context, filter model.GenerationFilter) (string, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	fn := f.generateF
	f.mu.Unlock()
	if fn == nil {
		return "generated case", nil
	}
	return fn(ctx, filter)
}

func (f *fakeAssistant) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeIngester struct {
	calls int
	ext   *model.Extraction
	err   error
}

func (f *fakeIngester) Ingest(_ context.Context, _ model.Document) (*model.Extraction, error) {
	f.calls++
	return f.ext, f.err
}

type compareCall struct {
	ai, user string
}

type fakeScorer struct {
	mu    sync.Mutex
	calls []compareCall
	fn    func(ctx context.Context, ai, user string) (*model.ComparisonResult, error)
}

func (f *fakeScorer) Compare(ctx context.Context, ai, user string) (*model.ComparisonResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, compareCall{ai, user})
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return &model.ComparisonResult{Summary: "ok"}, nil
	}
	return fn(ctx, ai, user)
}

type fakeRenderer struct {
	reports []model.Report
	data    []byte
	err     error
}

func (f *fakeRenderer) RenderReport(_ context.Context, r model.Report) ([]byte, error) {
	f.reports = append(f.reports, r)
	return f.data, f.err
}

type fakeSink struct {
	saved [][]byte
	err   error
}

func (f *fakeSink) Save(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, data)
	return "informe_auditoria.pdf", nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []model.ComparisonRecord
}

func (f *fakeHistory) AddComparison(_ context.Context, rec *model.ComparisonRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

type fixture struct {
	assistant *fakeAssistant
	ingester  *fakeIngester
	scorer    *fakeScorer
	renderer  *fakeRenderer
	sink      *fakeSink
	history   *fakeHistory
}

func newFixture() *fixture {
	return &fixture{
		assistant: &fakeAssistant{},
		ingester:  &fakeIngester{},
		scorer:    &fakeScorer{},
		renderer:  &fakeRenderer{data: []byte("%PDF-1.4")},
		sink:      &fakeSink{},
		history:   &fakeHistory{},
	}
}

func (f *fixture) services() Services {
	return Services{
		Assistant: f.assistant,
		Ingester:  f.ingester,
		Scorer:    f.scorer,
		Renderer:  f.renderer,
		Sink:      f.sink,
		History:   f.history,
	}
}
