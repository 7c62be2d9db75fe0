// Package errors defines the closed error taxonomy shared by every codec
// backend and pipeline operation.  Backend-specific error types never cross
// the dispatch boundary; they are normalized into an *Error here.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.  The set is closed: callers switch over these
// values for targeted handling and never see backend-internal types.
type Kind string

const (
	KindUnsupportedFormat        Kind = "unsupported_format"
	KindDecodeFailure            Kind = "decode_failure"
	KindDimensionOverflow        Kind = "dimension_overflow"
	KindInvalidConfig            Kind = "invalid_config"
	KindConfigConflict           Kind = "config_conflict"
	KindUnsupportedOperation     Kind = "unsupported_operation"
	KindUnsupportedChannelLayout Kind = "unsupported_channel_layout"
	KindMetadataUnsupported      Kind = "metadata_unsupported"
	KindEncodeFailure            Kind = "encode_failure"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Kind    Kind
	Backend string // originating codec backend, empty for core failures
	Field   string // offending config field, set for KindInvalidConfig
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Backend != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Backend, e.Err)
	case e.Backend != "":
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Backend, e.Detail)
	case e.Field != "":
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Field, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind and detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates an Error with a formatted detail message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Decode wraps a backend decode failure, tagging the originating backend.
func Decode(backend string, err error) *Error {
	return &Error{Kind: KindDecodeFailure, Backend: backend, Err: err}
}

// Encode wraps a backend encode failure, tagging the originating backend.
func Encode(backend string, err error) *Error {
	return &Error{Kind: KindEncodeFailure, Backend: backend, Err: err}
}

// InvalidConfig reports a config field that failed construction-time validation.
func InvalidConfig(field, reason string) *Error {
	return &Error{Kind: KindInvalidConfig, Field: field, Detail: reason}
}

// ConfigConflict reports mutually exclusive config fields set together.
func ConfigConflict(detail string) *Error {
	return &Error{Kind: KindConfigConflict, Detail: detail}
}

// UnsupportedFormat reports a format no registered backend handles.
func UnsupportedFormat(format string) *Error {
	return &Error{Kind: KindUnsupportedFormat, Detail: format}
}

// IsKind reports whether err is or wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or the empty Kind when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
