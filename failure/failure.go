// Package failure provides a type-erased, rethrowable container for
// rejection payloads.
//
// A promise may be rejected with any value. The engine stores that value in
// an [Error], which erases its static type while preserving its dynamic one:
// consumers that know the original type recover it with [As] (or with a
// deferred recover around [Error.Rethrow]); everyone else observes an opaque
// error value.
package failure

import (
	"errors"
	"fmt"
)

// ErrEmptyFailure is the panic payload produced by rethrowing a container
// that was never given a value. Doing so is a programming error.
var ErrEmptyFailure = errors.New("failure: rethrow of an empty container")

// Error is a type-erased carrier for an arbitrary rejection payload.
//
// The zero value is empty. Use [Wrap] to construct a populated container;
// wrapping is idempotent, so an Error is never nested inside another.
type Error struct {
	value any
	valid bool
}

// Wrap stores v in a new container. If v is already a container, it is
// returned unchanged, so double wrapping cannot occur.
func Wrap(v any) *Error {
	if e, ok := v.(*Error); ok && e != nil {
		return e
	}
	return &Error{value: v, valid: true}
}

// Value returns the wrapped payload with its type erased.
func (e *Error) Value() any {
	return e.value
}

// Empty reports whether the container holds no payload.
func (e *Error) Empty() bool {
	return e == nil || !e.valid
}

// Rethrow raises the contained value again, as a panic carrying the original
// payload. A deferred recover observes the payload by its dynamic type,
// round-tripping both value and type.
//
// Rethrowing an empty container panics with [ErrEmptyFailure].
func (e *Error) Rethrow() {
	if e.Empty() {
		panic(ErrEmptyFailure)
	}
	panic(e.value)
}

// Error implements the error interface, describing the payload.
func (e *Error) Error() string {
	if e.Empty() {
		return "failure: empty"
	}
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("failure: %v", e.value)
}

// Unwrap returns the payload if it is an error, enabling [errors.Is] and
// [errors.As] matching through the container. Non-error payloads yield nil.
func (e *Error) Unwrap() error {
	if e.Empty() {
		return nil
	}
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// As probes the payload by its dynamic type. It returns the payload and true
// when the payload is a T, and the zero value and false otherwise.
func As[T any](e *Error) (T, bool) {
	var zero T
	if e.Empty() {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
