// Package apperr defines the typed error taxonomy shared by the backend
// gateway, the use cases and the CLI. Callers branch with errors.Is on the
// sentinels or errors.As on *Error, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure
type Kind string

const (
	KindAuth       Kind = "auth"       // 401: session cleared, log in again
	KindConflict   Kind = "conflict"   // 409/422: engagement already active or finalized
	KindValidation Kind = "validation" // 400 or local validation: fix the input
	KindNotFound   Kind = "not_found"  // 404 on a write endpoint
	KindForbidden  Kind = "forbidden"  // 403: engagement owned by another technician
	KindServer     Kind = "server"     // 5xx
	KindTransport  Kind = "transport"  // network or decode failure
)

// Sentinels matched by (*Error).Is
var (
	ErrAuth       = errors.New("not authenticated")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrServer     = errors.New("server error")
	ErrTransport  = errors.New("transport failure")
)

var sentinels = map[Kind]error{
	KindAuth:       ErrAuth,
	KindConflict:   ErrConflict,
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
	KindForbidden:  ErrForbidden,
	KindServer:     ErrServer,
	KindTransport:  ErrTransport,
}

// Error is a classified failure of one operation
type Error struct {
	Kind   Kind
	Op     string // operation name, e.g. "start engagement"
	Status int    // HTTP status, 0 for local failures
	Detail string // detail/message from the response body, if any
	Err    error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Op
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Detail != "":
		msg += ": " + e.Detail
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	default:
		msg += ": " + sentinels[e.Kind].Error()
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New creates a classified error
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap classifies an underlying error
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation creates a local validation error
func Validation(op, detail string) *Error {
	return New(KindValidation, op, detail)
}

// FromStatus maps an HTTP status to a kind. ok is false for 2xx/3xx.
func FromStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth, true
	case status == http.StatusForbidden:
		return KindForbidden, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return KindConflict, true
	case status >= 500:
		return KindServer, true
	case status >= 400:
		return KindValidation, true
	default:
		return "", false
	}
}

// KindOf returns the kind of err, or "" when err is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
