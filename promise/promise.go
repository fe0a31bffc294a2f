// Package promise provides single-assignment value-or-error cells with
// synchronous settlement callbacks, chaining, and composition.
//
// A [Promise] starts pending and settles exactly once, either resolved with
// a value or rejected with a reason. Settlement is terminal: once a promise
// is no longer pending its state and value are frozen, and settling it again
// is a contract violation.
//
// Promises are not internally synchronised. Handlers run synchronously on
// the goroutine that performs the settlement; callers that cross goroutines
// must serialise externally, typically by settling only from event-loop
// handlers.
package promise

import (
	"errors"
	"fmt"

	"github.com/andsmedeiros/iara/failure"
)

// State is the lifecycle state of a [Promise]. It starts [Pending] and
// transitions exactly once to [Resolved] or [Rejected].
type State int32

const (
	// Pending indicates the promise holds no value yet.
	Pending State = iota

	// Resolved indicates the promise holds its value.
	Resolved

	// Rejected indicates the promise holds a rejection reason.
	Rejected
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Void is the unit value of promises that carry no payload. A resolved
// *Promise[Void] holds Void{}.
type Void struct{}

var (
	// ErrAlreadySettled is wrapped by the panic raised when a settled
	// promise is resolved or rejected again.
	ErrAlreadySettled = errors.New("promise: already settled")

	// ErrRejected is the default rejection reason used when Reject is
	// given nil.
	ErrRejected = errors.New("promise: rejected")
)

// UnhandledRejectionError is the panic payload raised by rejecting a pending
// promise that has no settle callback attached. Recover it to observe the
// reason; to hold a rejection without raising, construct the promise with
// [NewRejected] instead.
type UnhandledRejectionError struct {
	Reason *failure.Error
}

// Error implements the error interface.
func (e *UnhandledRejectionError) Error() string {
	return "promise: unhandled rejection: " + e.Reason.Error()
}

// Unwrap exposes the rejection reason to [errors.Is] and [errors.As].
func (e *UnhandledRejectionError) Unwrap() error {
	return e.Reason
}

// Promise is a single-assignment cell that will eventually hold either a
// value of type T or a rejection reason.
//
// Construct with [New], [Make], [NewResolved], [ResolvedVoid] or
// [NewRejected]; the zero value is usable but offers no advantage over [New].
type Promise[T any] struct {
	value    T
	err      *failure.Error
	onSettle func()
	state    State
	// factory marks promises constructed already rejected; they hold their
	// rejection silently until a chaining operation attaches a handler.
	factory bool
}

// New creates a pending promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Make creates a pending promise and hands it to launch before returning
// it, so the launcher can dispatch the promise elsewhere (typically by
// scheduling its future settlement).
func Make[T any](launch func(p *Promise[T])) *Promise[T] {
	p := New[T]()
	if launch != nil {
		launch(p)
	}
	return p
}

// NewResolved creates a promise already resolved with v.
func NewResolved[T any](v T) *Promise[T] {
	return &Promise[T]{state: Resolved, value: v}
}

// ResolvedVoid creates a valueless promise already resolved.
func ResolvedVoid() *Promise[Void] {
	return NewResolved(Void{})
}

// NewRejected creates a promise already rejected with reason (wrapped via
// [failure.Wrap]; nil maps to [ErrRejected]). This is the only way to hold
// a rejection without a settle callback attached: the promise keeps its
// reason until a chaining operation attaches a handler, which then runs
// immediately.
func NewRejected[T any](reason any) *Promise[T] {
	if reason == nil {
		reason = ErrRejected
	}
	return &Promise[T]{state: Rejected, err: failure.Wrap(reason), factory: true}
}

// State returns the current state of the promise.
func (p *Promise[T]) State() State {
	return p.state
}

// Settled reports whether the promise is resolved or rejected.
func (p *Promise[T]) Settled() bool {
	return p.state != Pending
}

// Value returns the resolved value, or the zero value while the promise is
// pending or rejected.
func (p *Promise[T]) Value() T {
	if p.state != Resolved {
		var zero T
		return zero
	}
	return p.value
}

// Failure returns the rejection reason, or nil unless the promise is
// rejected.
func (p *Promise[T]) Failure() *failure.Error {
	if p.state != Rejected {
		return nil
	}
	return p.err
}

// Resolve stores v, transitions the promise to [Resolved] and synchronously
// invokes the settle callback if one is attached.
//
// Resolving a settled promise panics wrapping [ErrAlreadySettled].
func (p *Promise[T]) Resolve(v T) {
	if p.state != Pending {
		panic(fmt.Errorf("%w: resolve of a %s promise", ErrAlreadySettled, p.state))
	}
	p.value = v
	p.state = Resolved
	if p.onSettle != nil {
		p.onSettle()
	}
}

// Reject wraps reason (nil maps to [ErrRejected]), transitions the promise
// to [Rejected] and synchronously invokes the settle callback if one is
// attached. Without a callback the rejection is unhandled and Reject panics
// with an [*UnhandledRejectionError]; see [NewRejected] for holding a
// rejection silently.
//
// Rejecting a settled promise panics wrapping [ErrAlreadySettled].
func (p *Promise[T]) Reject(reason any) {
	if p.state != Pending {
		panic(fmt.Errorf("%w: reject of a %s promise", ErrAlreadySettled, p.state))
	}
	if reason == nil {
		reason = ErrRejected
	}
	p.err = failure.Wrap(reason)
	p.state = Rejected
	if p.onSettle == nil {
		panic(&UnhandledRejectionError{Reason: p.err})
	}
	p.onSettle()
}

// subscribe installs the settle callback. At most one callback exists per
// promise; chaining operations install exactly one each, and installing
// another overwrites the previous (unchecked misuse). If the promise is
// already settled the callback runs synchronously before subscribe returns.
func (p *Promise[T]) subscribe(fn func()) {
	p.onSettle = fn
	if p.state != Pending {
		fn()
	}
}
