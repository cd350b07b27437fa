package workflow

import (
	"sync"
	"time"
)

// Kind names an operation kind. Each kind has its own sequence and status.
type Kind string

// Operation kinds.
const (
	KindGenerate Kind = "generate"
	KindAnalyze  Kind = "analyze"
	KindIngest   Kind = "ingest"
	KindCompare  Kind = "compare"
	KindExport   Kind = "export"
)

// Kinds lists every operation kind in display order.
var Kinds = []Kind{KindGenerate, KindAnalyze, KindIngest, KindCompare, KindExport}

// OpState is the lifecycle state of an operation kind.
type OpState int

// Operation states.
const (
	Idle OpState = iota
	InFlight
	Success
	Failed
)

func (s OpState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON and YAML output.
func (s OpState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the latest known state of one operation kind.
type Status struct {
	Kind      Kind      `json:"kind" yaml:"kind"`
	State     OpState   `json:"state" yaml:"state"`
	Seq       uint64    `json:"seq" yaml:"seq"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Tracker issues per-kind sequence numbers and records each kind's status.
// Only the latest dispatch of a kind may change its status.
type Tracker struct {
	mu     sync.Mutex
	seq    map[Kind]uint64
	status map[Kind]Status
	now    func() time.Time
}

// NewTracker creates a tracker with every kind Idle.
func NewTracker() *Tracker {
	return &Tracker{
		seq:    make(map[Kind]uint64),
		status: make(map[Kind]Status),
		now:    time.Now,
	}
}

// Begin dispatches a new operation of kind k and marks it InFlight.
func (t *Tracker) Begin(k Kind) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq[k]++
	seq := t.seq[k]
	t.status[k] = Status{Kind: k, State: InFlight, Seq: seq, UpdatedAt: t.now()}
	return seq
}

// Latest reports whether seq is the most recent dispatch of kind k.
func (t *Tracker) Latest(k Kind, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq[k] == seq
}

// Finish records the outcome of dispatch seq. Outcomes of superseded
// dispatches are ignored. It reports whether the status was updated.
func (t *Tracker) Finish(k Kind, seq uint64, state OpState, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seq[k] != seq {
		return false
	}
	t.status[k] = Status{Kind: k, State: state, Seq: seq, Message: message, UpdatedAt: t.now()}
	return true
}

// Status returns the status of kind k.
func (t *Tracker) Status(k Kind) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.status[k]; ok {
		return st
	}
	return Status{Kind: k, State: Idle}
}

// Snapshot returns the status of every kind in display order.
func (t *Tracker) Snapshot() []Status {
	out := make([]Status, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, t.Status(k))
	}
	return out
}
