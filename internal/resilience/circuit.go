// Package resilience guards calls to remote collaborators with circuit
// breakers and classifies their failures.
package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets probe calls through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected by an open circuit.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a probe is
	// allowed. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenProbes is the number of successful probes that close the
	// circuit again. Default: 1.
	HalfOpenProbes int

	// ShouldTrip decides whether an error counts as a failure. Nil counts
	// every non-nil error.
	ShouldTrip func(err error) bool

	// OnStateChange observes transitions. It runs with the breaker locked.
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenProbes:   1,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenProbes <= 0 {
		c.HalfOpenProbes = def.HalfOpenProbes
	}
	return c
}

// CircuitBreaker guards a single collaborator.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu        sync.Mutex
	state     CircuitState
	failures  int
	probes    int
	openSince time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker for the named collaborator.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: CircuitClosed,
		now:   time.Now,
	}
}

// Name returns the collaborator name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// ExecuteVal is Execute for calls that produce a value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// State returns the current state, reporting half-open once an open
// circuit's reset timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.openSince) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probes = 0
	if cb.state != CircuitClosed {
		cb.moveTo(CircuitClosed)
	}
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if cb.now().Sub(cb.openSince) < cb.cfg.ResetTimeout {
		return eris.Wrapf(ErrCircuitOpen, "resilience: %s", cb.name)
	}
	cb.moveTo(CircuitHalfOpen)
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	trips := err != nil
	if trips && cb.cfg.ShouldTrip != nil {
		trips = cb.cfg.ShouldTrip(err)
	}

	if !trips {
		switch cb.state {
		case CircuitHalfOpen:
			cb.probes++
			if cb.probes >= cb.cfg.HalfOpenProbes {
				cb.failures = 0
				cb.probes = 0
				cb.moveTo(CircuitClosed)
			}
		case CircuitClosed:
			cb.failures = 0
		}
		return
	}

	cb.failures++
	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openSince = cb.now()
			cb.moveTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.probes = 0
		cb.openSince = cb.now()
		cb.moveTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) moveTo(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// Breakers holds one circuit breaker per collaborator.
type Breakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakers creates an empty registry. State changes are logged through
// the global zap logger unless cfg already sets OnStateChange.
func NewBreakers(cfg BreakerConfig) *Breakers {
	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(name string, from, to CircuitState) {
			zap.L().Warn("resilience: circuit state change",
				zap.String("collaborator", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
	}
	return &Breakers{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for name, creating it on first use.
func (b *Breakers) Get(name string) *CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, b.cfg)
		b.breakers[name] = cb
	}
	return cb
}

// Names returns the registered collaborator names in sorted order.
func (b *Breakers) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.breakers))
	for name := range b.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// States returns a snapshot of every breaker's state.
func (b *Breakers) States() map[string]CircuitState {
	b.mu.Lock()
	list := make([]*CircuitBreaker, 0, len(b.breakers))
	for _, cb := range b.breakers {
		list = append(list, cb)
	}
	b.mu.Unlock()

	states := make(map[string]CircuitState, len(list))
	for _, cb := range list {
		states[cb.name] = cb.State()
	}
	return states
}
