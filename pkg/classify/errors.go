package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNilFrame is returned when Classify is called without a frame.
	ErrNilFrame = errors.New("classify: nil frame")

	// ErrEmptyImage is returned when the frame cannot be decoded into pixels.
	ErrEmptyImage = errors.New("classify: empty image")

	// ErrClosed is returned when a closed classifier is used.
	ErrClosed = errors.New("classify: classifier closed")

	// ErrNoClassifiers is returned by a chain with no backends.
	ErrNoClassifiers = errors.New("classify: no classifiers configured")
)

// ClassifierError wraps an error with the backend that produced it.
type ClassifierError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classify [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// WrapError wraps err with backend context. It returns nil for a nil err.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifierError{Backend: backend, Err: err}
}

// ChainError aggregates the failures of every backend in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "classify chain: no errors recorded"
	case 1:
		return fmt.Sprintf("classify chain: %v", e.Errors[0])
	default:
		return fmt.Sprintf("classify chain: all %d classifiers failed, last error: %v",
			len(e.Errors), e.Errors[len(e.Errors)-1])
	}
}

// Unwrap returns every recorded error so errors.Is matches any of them.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}
