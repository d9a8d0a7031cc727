// Package errs defines the error taxonomy shared across the service.
//
// Every failure that crosses a package boundary is classified with a Code so
// transports can map it mechanically (HTTP status, WS close code) without
// string matching. Errors built here support errors.Is/errors.As and wrap an
// optional cause.
package errs

import (
	"errors"
	"fmt"
)

// Code classifies a failure for transport mapping and metrics labels.
type Code string

const (
	// NotFound: the referenced entity does not exist (or is already gone).
	NotFound Code = "not_found"
	// NotReady: the entity exists but has not finished initializing.
	NotReady Code = "not_ready"
	// Unavailable: a required backend could not be reached or started.
	Unavailable Code = "unavailable"
	// Invalid: the request was malformed or out of range.
	Invalid Code = "invalid"
	// Timeout: a bounded operation exceeded its deadline.
	Timeout Code = "timeout"
	// Superseded: the resource was taken over by a newer claimant.
	Superseded Code = "superseded"
	// Internal: unclassified failure.
	Internal Code = "internal"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two taxonomy errors by code, so sentinel-style checks like
// errors.Is(err, errs.New(errs.NotFound, "")) work across wrap layers.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a classified error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. A nil cause returns nil.
func Wrap(code Code, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to Internal for
// unclassified errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// MessageOf extracts the human message without the code prefix, falling
// back to Error() for unclassified errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HasCode reports whether err carries the given code at any wrap depth.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound is a convenience check for the most common lookup miss.
func IsNotFound(err error) bool { return HasCode(err, NotFound) }

// IsTimeout reports whether err is a bounded-operation deadline failure.
func IsTimeout(err error) bool { return HasCode(err, Timeout) }
