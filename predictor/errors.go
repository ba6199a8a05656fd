package predictor

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindModelUnavailable Kind = "model_unavailable"
	KindInternal         Kind = "internal_error"
	KindTimeout          Kind = "timeout"
)

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
	ErrModelUnavailable = &Error{Kind: KindModelUnavailable}
	ErrInternal         = &Error{Kind: KindInternal}
	ErrTimeout          = &Error{Kind: KindTimeout}
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the only error type returned by Service. Message is safe to show
// to callers; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func invalidRequest(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message, Fields: fields}
}

// ModelUnavailable wraps a failure to load or construct the classifier.
func ModelUnavailable(err error) *Error {
	return &Error{Kind: KindModelUnavailable, Message: "model is not available", Err: err}
}
