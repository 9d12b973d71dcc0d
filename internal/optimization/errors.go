package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindConfig marks invalid run configuration: dimension mismatches,
	// non-positive evaluation budgets, degenerate initial simplexes.
	KindConfig Kind = iota
	// KindNumeric marks an objective that evaluated to NaN or infinity,
	// or was undefined at a required point.
	KindNumeric
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Error is a classified optimization error with optional operation context
// and an optional wrapped cause.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Op is the operation that failed, e.g. "simplex.init".
	Op string
	// Message describes the failure.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOp adds operation context to the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// NewConfigError creates a configuration error with a formatted message.
func NewConfigError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// NewNumericError creates a numeric error with a formatted message.
func NewNumericError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNumeric, Message: fmt.Sprintf(format, args...)}
}

// WrapNumeric wraps an objective evaluation failure as a numeric error.
// If err is nil, WrapNumeric returns nil.
func WrapNumeric(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		// Already classified; keep the original kind and add context.
		return &Error{Kind: oe.Kind, Message: message, Err: err}
	}
	return &Error{Kind: KindNumeric, Message: message, Err: err}
}

// IsConfigError reports whether err is an optimization error of kind config.
func IsConfigError(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindConfig
}

// IsNumericError reports whether err is an optimization error of kind numeric.
func IsNumericError(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindNumeric
}
