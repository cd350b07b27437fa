package workflow

import (
	"github.com/rotisserie/eris"
)

// ErrStale is returned when a response arrives after a newer request of the
// same kind was dispatched; the response is discarded without patching.
var ErrStale = eris.New("workflow: response superseded by a newer request")

// Failure is a transport failure at an operation boundary. Error returns the
// fixed user-facing message; the cause is kept for logs.
type Failure struct {
	Op      Kind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }
