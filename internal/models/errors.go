package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	// Container structure
	ErrTruncatedContainer ErrorType = iota
	ErrMalformedHeader
	ErrCorruptArchive
	ErrMissingControlInfo

	// Resource limits
	ErrDecompressionLimitExceeded

	// Entry kinds outside the recognized set (fatal only in strict mode)
	ErrUnsupportedEntryKind

	// Descriptor evaluation
	ErrEvaluationTimeout
	ErrInterpreterUnavailable
	ErrEvaluationFailed

	ErrFileOp
	ErrInvalidConfig
	ErrSigning
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrTruncatedContainer:
		return "TruncatedContainer"
	case ErrMalformedHeader:
		return "MalformedHeader"
	case ErrCorruptArchive:
		return "CorruptArchive"
	case ErrMissingControlInfo:
		return "MissingControlInfo"
	case ErrDecompressionLimitExceeded:
		return "DecompressionLimitExceeded"
	case ErrUnsupportedEntryKind:
		return "UnsupportedEntryKind"
	case ErrEvaluationTimeout:
		return "EvaluationTimeout"
	case ErrInterpreterUnavailable:
		return "InterpreterUnavailable"
	case ErrEvaluationFailed:
		return "EvaluationFailed"
	case ErrFileOp:
		return "FileOp"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// AlpkitError is a fatal error raised while decoding a container or
// evaluating a build descriptor.
type AlpkitError struct {
	Type ErrorType
	Path string

	// Segment is the zero-based index of the compressed segment, or -1 when
	// the error is not tied to a segment.
	Segment int
	// Offset is the byte offset in the container where the segment starts,
	// or -1 if unknown.
	Offset int64

	// Detail carries diagnostic text, e.g. captured stderr of the shell.
	Detail string
	Err    error
}

// NewError returns an AlpkitError that is not tied to a container segment.
func NewError(t ErrorType, err error) *AlpkitError {
	return &AlpkitError{Type: t, Segment: -1, Offset: -1, Err: err}
}

// NewSegmentError returns an AlpkitError located at the given segment.
func NewSegmentError(t ErrorType, segment int, offset int64, err error) *AlpkitError {
	return &AlpkitError{Type: t, Segment: segment, Offset: offset, Err: err}
}

// Error implements the error interface
func (e *AlpkitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Type)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s:", e.Path)
	}
	if e.Segment >= 0 {
		fmt.Fprintf(&b, " segment %d", e.Segment)
		if e.Offset >= 0 {
			fmt.Fprintf(&b, " at offset %d", e.Offset)
		}
		b.WriteString(":")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " %v", e.Err)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", strings.TrimSpace(e.Detail))
	}
	return b.String()
}

// Unwrap returns the wrapped error
func (e *AlpkitError) Unwrap() error {
	return e.Err
}

// IsType reports whether err, or any error it wraps, is an AlpkitError of
// the given type.
func IsType(err error, t ErrorType) bool {
	var ae *AlpkitError
	if errors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}

// TypeOf returns the type of the first AlpkitError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var ae *AlpkitError
	if errors.As(err, &ae) {
		return ae.Type, true
	}
	return 0, false
}

// WithPath sets the path on err if it is an AlpkitError without one.
func WithPath(err error, path string) error {
	var ae *AlpkitError
	if errors.As(err, &ae) && ae.Path == "" {
		ae.Path = path
	}
	return err
}
