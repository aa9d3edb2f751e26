package source

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a source failure.
type Kind int

// Failure kinds.
const (
	KindInvalidRequest Kind = iota + 1
	KindNetwork
	KindDecoding
	KindServer
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNetwork:
		return "network"
	case KindDecoding:
		return "decoding"
	case KindServer:
		return "server"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Sentinel kinds for source errors.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNetwork        = errors.New("network error")
	ErrDecoding       = errors.New("decoding error")
	ErrServer         = errors.New("server error")
	ErrRateLimited    = errors.New("rate limited")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindNetwork:
		return ErrNetwork
	case KindDecoding:
		return ErrDecoding
	case KindServer:
		return ErrServer
	case KindRateLimited:
		return ErrRateLimited
	default:
		return nil
	}
}

// Error is a classified source failure.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the per-kind sentinel.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Retryable reports whether repeating the call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimited:
		return true
	case KindServer:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// NewError builds a classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
