package workflow

import (
	"sync"

	"github.com/sells-group/audit-cli/internal/model"
)

// PanelState is the state of the comparison panel.
type PanelState int

// Comparison panel states.
const (
	PanelIdle PanelState = iota
	PanelComparing
	PanelSuccess
	PanelFailed
)

func (s PanelState) String() string {
	switch s {
	case PanelIdle:
		return "idle"
	case PanelComparing:
		return "comparing"
	case PanelSuccess:
		return "success"
	case PanelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON and YAML output.
func (s PanelState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PanelView is a point-in-time copy of the comparison panel.
type PanelView struct {
	State   PanelState              `json:"state" yaml:"state"`
	Draft   string                  `json:"draft" yaml:"draft"`
	Result  *model.ComparisonResult `json:"result,omitempty" yaml:"result,omitempty"`
	Message string                  `json:"message,omitempty" yaml:"message,omitempty"`
}

// Panel holds the editable comparison input and the outcome of the latest
// comparison. The draft follows the session's AI analysis: whenever that
// field changes the draft is replaced and any result is dropped.
type Panel struct {
	mu      sync.Mutex
	state   PanelState
	draft   string
	source  string
	result  *model.ComparisonResult
	message string
	// epoch advances whenever the draft is replaced, so a comparison
	// started against an older draft can be recognized on completion.
	epoch uint64
}

// NewPanel creates an idle panel with the given draft.
func NewPanel(draft string) *Panel {
	return &Panel{draft: draft, source: draft}
}

// View returns a copy of the panel.
func (p *Panel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := PanelView{State: p.state, Draft: p.draft, Message: p.message}
	if p.result != nil {
		r := *p.result
		v.Result = &r
	}
	return v
}

// Draft returns the current comparison input.
func (p *Panel) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Summary returns the result summary when the panel holds a successful
// comparison, or NotAvailable.
func (p *Panel) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PanelSuccess && p.result != nil && p.result.Summary != "" {
		return p.result.Summary
	}
	return NotAvailable
}

// Edit replaces the draft with text typed by the auditor. A changed draft
// returns the panel to Idle.
func (p *Panel) Edit(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.draft {
		return
	}
	p.replaceDraft(text)
}

// Sync is a session listener that resyncs the draft when the AI analysis
// changes.
func (p *Panel) Sync(prev, next model.Session) {
	if prev.AIAnalysis == next.AIAnalysis {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = next.AIAnalysis
	p.replaceDraft(next.AIAnalysis)
}

// Clear resets the panel to Idle with an empty draft.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = ""
	p.replaceDraft("")
}

// Restore shows a persisted comparison if it was made while the session held
// the AI analysis the panel is synced to and the draft is still unedited. The
// draft that was compared, edited or not, becomes the draft again. It reports
// whether the record was applied.
func (p *Panel) Restore(rec *model.ComparisonRecord) bool {
	if rec == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PanelIdle || p.draft != p.source || rec.SourceAnalysis != p.source {
		return false
	}
	p.replaceDraft(rec.AIAnalysis)
	r := rec.Result
	p.state = PanelSuccess
	p.result = &r
	p.message = ""
	return true
}

func (p *Panel) replaceDraft(text string) {
	p.draft = text
	p.state = PanelIdle
	p.result = nil
	p.message = ""
	p.epoch++
}

// begin enters Comparing, dropping any previous result, and returns the
// draft to compare, the AI analysis it derives from and the epoch it
// belongs to.
func (p *Panel) begin() (draft, source string, epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = PanelComparing
	p.result = nil
	p.message = ""
	return p.draft, p.source, p.epoch
}

// current reports whether the draft is unchanged since epoch.
func (p *Panel) current(epoch uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch == epoch
}

func (p *Panel) succeed(epoch uint64, res model.ComparisonResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		return false
	}
	p.state = PanelSuccess
	p.result = &res
	p.message = ""
	return true
}

func (p *Panel) fail(epoch uint64, message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		return false
	}
	p.state = PanelFailed
	p.result = nil
	p.message = message
	return true
}
