// Package apperr defines the error kinds and HTTP disposition table from
// the recommendation core's error handling design.
package apperr

import (
	"fmt"
	"net/http"
	"time"
)

// Kind is one of the error kinds from the error handling design. It is a
// wire-visible string, not a Go type name.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindSessionNotFound    Kind = "session_not_found"
	KindProductNotFound    Kind = "product_not_found"
	KindSessionInactive    Kind = "session_inactive"
	KindNoCandidates       Kind = "no_candidates"
	KindDuplicateRequest   Kind = "duplicate_request"
	KindRapidFeedback      Kind = "rapid_feedback"
	KindFeedbackConflict   Kind = "feedback_conflict"
	KindBatchConflict      Kind = "batch_conflict"
	KindRateLimited        Kind = "rate_limited"
	KindIdempotentReplay   Kind = "idempotent_replay"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindModelSingular      Kind = "model_singular"
	KindInternal           Kind = "internal"
)

// statusByKind mirrors the HTTP column of the error handling table.
var statusByKind = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindSessionNotFound:    http.StatusNotFound,
	KindProductNotFound:    http.StatusNotFound,
	KindSessionInactive:    http.StatusGone,
	KindNoCandidates:       http.StatusNotFound,
	KindDuplicateRequest:   http.StatusConflict,
	KindRapidFeedback:      http.StatusConflict,
	KindFeedbackConflict:   http.StatusConflict,
	KindBatchConflict:      http.StatusConflict,
	KindRateLimited:        http.StatusTooManyRequests,
	KindIdempotentReplay:   http.StatusOK,
	KindUnsupportedVersion: http.StatusBadRequest,
	KindModelSingular:      http.StatusInternalServerError,
	KindInternal:           http.StatusInternalServerError,
}

// Error is the application error carried from a component up to the
// handler layer, where it is translated into the wire envelope.
type Error struct {
	Kind       Kind
	Message    string
	Details    interface{}
	RetryAfter *time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for e's kind, defaulting to 500.
func (e *Error) Status() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New builds a bare *Error of the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an internal-kind *Error wrapping err, unless err is already
// an *Error, in which case it is returned unchanged.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// WithDetails attaches field-level validation details to e.
func (e *Error) WithDetails(d interface{}) *Error {
	e.Details = d
	return e
}

// WithRetryAfter attaches a retry-after duration to e.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = &d
	return e
}
