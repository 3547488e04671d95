// Package errs provides structured error types shared across the adapter.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies an error category surfaced by the adapter.
type Code string

const (
	// CodeTransport indicates a failure on the venue streaming connection.
	CodeTransport Code = "transport"
	// CodeNotFound indicates a missing resource, e.g. a never-ticked symbol.
	CodeNotFound Code = "not_found"
	// CodeTermination indicates a failure while closing the transport.
	CodeTermination Code = "termination"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeAuth indicates authentication or authorization errors.
	CodeAuth Code = "auth"
	// CodeExchange indicates a venue-side failure.
	CodeExchange Code = "exchange_error"
)

// E captures structured error information produced across the adapter.
type E struct {
	Venue   string
	Code    Code
	RawCode string
	RawMsg  string
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the venue and error code.
func New(venue string, code Code, opts ...Option) *E {
	e := &E{
		Venue:   strings.TrimSpace(venue),
		Code:    code,
		RawCode: "",
		RawMsg:  "",
		Message: "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithRawCode captures the raw venue error code.
func WithRawCode(code string) Option {
	trimmed := strings.TrimSpace(code)
	return func(e *E) {
		e.RawCode = trimmed
	}
}

// WithRawMessage captures the raw venue error message.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	venue := strings.TrimSpace(e.Venue)
	if venue == "" {
		venue = "unknown"
	}
	parts = append(parts, "venue="+venue)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawCode != "" {
		parts = append(parts, "raw_code="+strconv.Quote(e.RawCode))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// HasCode reports whether err is an envelope carrying the given code.
func HasCode(err error, code Code) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// NotFound returns a standardized missing-resource error.
func NotFound(venue, msg string) *E {
	return New(venue, CodeNotFound, WithMessage(msg))
}

// Transport wraps a streaming-connection failure.
func Transport(venue string, cause error) *E {
	return New(venue, CodeTransport, WithCause(cause))
}

// Termination wraps a failure observed while closing the transport.
func Termination(venue string, cause error) *E {
	return New(venue, CodeTermination, WithCause(cause))
}
