package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Error classes reported by ClassifyError.
const (
	ClassTransient = "transient"
	ClassPermanent = "permanent"
	ClassCanceled  = "canceled"
	ClassOpen      = "circuit_open"
)

// TransientError marks an error as a temporary condition of the collaborator.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// httpStatuser is implemented by errors that carry an HTTP status code.
type httpStatuser interface {
	HTTPStatus() int
}

var transientPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"client.timeout exceeded",
}

// IsTransient reports whether err is a temporary transport or server
// condition: an explicit TransientError, a retryable HTTP status, a network
// timeout, a refused or reset connection, or a known transport message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var hs httpStatuser
	if errors.As(err, &hs) {
		return IsTransientHTTPStatus(hs.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status signals a temporary
// server-side condition.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ClassifyError names the class of err for logging.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCircuitOpen):
		return ClassOpen
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassPermanent
	}
}
