// Package ormerrors defines the error kinds raised by the mapping layer.
//
// Every kind is a marker: call sites wrap or mark the underlying error while
// keeping the original cause and stack. Marks are only visible to
// github.com/cockroachdb/errors.Is (or the Is* helpers below); the standard
// library errors.Is does not see them.
package ormerrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration is returned for missing adapter bindings, missing
	// reverse associations and unresolvable association targets.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution is returned when an association value cannot be resolved
	// to an entity carrying the required attributes.
	ErrResolution = errors.New("resolution error")

	// ErrParse is returned when a condition template cannot be parsed
	ErrParse = errors.New("parse error")

	// ErrUnsupportedOperation is returned by unimplemented association variants
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrEntityNotFound is returned on attribute access of an entity whose
	// backing record does not exist
	ErrEntityNotFound = errors.New("entity not found")

	// ErrAdapterFailure wraps errors reported by a backing store
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrMissingID is returned when saving or reloading an entity without an identifier
	ErrMissingID = errors.New("entity has no id")
)

// Configurationf builds an ErrConfiguration with a formatted message
func Configurationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// Resolutionf builds an ErrResolution with a formatted message
func Resolutionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrResolution)
}

// Unsupportedf builds an ErrUnsupportedOperation with a formatted message
func Unsupportedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupportedOperation)
}

// AdapterFailure wraps an adapter error so that it matches ErrAdapterFailure
func AdapterFailure(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "adapter %s failed", op), ErrAdapterFailure)
}

// ParseError reports a template fragment that matches no grammar production
type ParseError struct {
	Template string // full template being parsed
	Fragment string // remaining text at the failure point
	Reason   string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("parse error in %q: %s", e.Template, e.Reason)
	}
	return fmt.Sprintf("parse error in %q at %q: %s", e.Template, e.Fragment, e.Reason)
}

// Is makes every ParseError match ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// IsConfiguration returns true if err is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsResolution returns true if err is a resolution error
func IsResolution(err error) bool {
	return errors.Is(err, ErrResolution)
}

// IsParse returns true if err is a parse error
func IsParse(err error) bool {
	var pe *ParseError
	return errors.Is(err, ErrParse) || errors.As(err, &pe)
}

// IsUnsupported returns true if err is an unsupported operation error
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsAdapterFailure returns true if err was reported by a backing store
func IsAdapterFailure(err error) bool {
	return errors.Is(err, ErrAdapterFailure)
}

// IsNotFound returns true if err reports a not-found entity
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
