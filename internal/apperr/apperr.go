// Package apperr defines the error taxonomy shared by the bot's handlers and
// the download pipeline. Every type exposes Code so the router can attach a
// stable err_code to handler summaries.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed user input. The pipeline never starts.
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Reason)
}

// Code implements the router's coder interface.
func (e *ValidationError) Code() string { return "VALIDATION" }

// UpstreamError wraps a failure of an external service (search, resolver, metadata).
type UpstreamError struct {
	Service string
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Code implements the router's coder interface.
func (e *UpstreamError) Code() string { return "UPSTREAM" }

// Upstream is a shorthand constructor for UpstreamError.
func Upstream(service, op string, err error) error {
	return &UpstreamError{Service: service, Op: op, Err: err}
}

// DeliveryError reports that Telegram rejected an audio payload.
type DeliveryError struct {
	Attempt string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Attempt, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code implements the router's coder interface.
func (e *DeliveryError) Code() string { return "DELIVERY" }

type sessionError struct {
	msg  string
	code string
}

func (e *sessionError) Error() string { return e.msg }
func (e *sessionError) Code() string  { return e.code }

var (
	// ErrSessionExpired is returned for callbacks from users without a stored session.
	ErrSessionExpired error = &sessionError{msg: "session expired", code: "SESSION_EXPIRED"}
	// ErrSessionLocked is returned for navigation while a download is in flight.
	ErrSessionLocked error = &sessionError{msg: "session locked", code: "SESSION_LOCKED"}
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
