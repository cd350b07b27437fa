// Package session holds the shared audit session record and the controller
// that owns it. Workflow steps never replace the record; they patch the
// fields they own.
package session

import (
	"sync"

	"github.com/sells-group/audit-cli/internal/model"
)

// Patch names the fields to overwrite. Nil fields are left untouched.
type Patch struct {
	CaseStudy    *string
	AIAnalysis   *string
	UserAnalysis *string
}

// WithCaseStudy returns a copy of p that sets the case study.
func (p Patch) WithCaseStudy(s string) Patch {
	p.CaseStudy = &s
	return p
}

// WithAIAnalysis returns a copy of p that sets the AI analysis.
func (p Patch) WithAIAnalysis(s string) Patch {
	p.AIAnalysis = &s
	return p
}

// WithUserAnalysis returns a copy of p that sets the auditor's analysis.
func (p Patch) WithUserAnalysis(s string) Patch {
	p.UserAnalysis = &s
	return p
}

// Empty reports whether the patch names no field.
func (p Patch) Empty() bool {
	return p.CaseStudy == nil && p.AIAnalysis == nil && p.UserAnalysis == nil
}

// Apply merges p into s and returns the result.
func (p Patch) Apply(s model.Session) model.Session {
	if p.CaseStudy != nil {
		s.CaseStudy = *p.CaseStudy
	}
	if p.AIAnalysis != nil {
		s.AIAnalysis = *p.AIAnalysis
	}
	if p.UserAnalysis != nil {
		s.UserAnalysis = *p.UserAnalysis
	}
	return s
}

// Listener is notified synchronously after every change with the record
// before and after it. Listeners must not call Patch or Reset.
type Listener func(prev, next model.Session)

// Controller owns one session record.
type Controller struct {
	id string

	// notifyMu serializes change+notify so listeners observe changes in order.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    model.Session

	listeners []Listener
}

// NewController creates a controller seeded with initial.
func NewController(id string, initial model.Session) *Controller {
	return &Controller{id: id, state: initial}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Snapshot returns a copy of the current record.
func (c *Controller) Snapshot() model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Patch merges the named fields into the record in one step.
func (c *Controller) Patch(p Patch) model.Session {
	if p.Empty() {
		return c.Snapshot()
	}
	return c.swap(func(s model.Session) model.Session { return p.Apply(s) })
}

// Reset restores the all-empty record.
func (c *Controller) Reset() model.Session {
	return c.swap(func(model.Session) model.Session { return model.Session{} })
}

// Subscribe registers l for change notifications.
func (c *Controller) Subscribe(l Listener) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Controller) swap(fn func(model.Session) model.Session) model.Session {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	prev := c.state
	c.state = fn(prev)
	next := c.state
	c.mu.Unlock()

	for _, l := range c.listeners {
		l(prev, next)
	}
	return next
}
