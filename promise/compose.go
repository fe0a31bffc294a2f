package promise

import (
	"github.com/andsmedeiros/iara/failure"
)

// Interface is the type-erased view of a promise, satisfied by every
// *Promise[T]. Composition combinators accept it so inputs of unrelated
// value types can be coordinated together; the erased value of a valueless
// promise is [Void].
type Interface interface {
	// State returns the current state of the promise.
	State() State

	// Failure returns the rejection reason, or nil unless rejected.
	Failure() *failure.Error

	// watch installs the settle callback, splitting it into resolve and
	// reject continuations over the erased value.
	watch(onResolve func(any), onReject func(*failure.Error))
}

func (p *Promise[T]) watch(onResolve func(any), onReject func(*failure.Error)) {
	p.subscribe(func() {
		if p.state == Resolved {
			onResolve(p.value)
		} else {
			onReject(p.err)
		}
	})
}

// All coordinates ps into a single promise carrying every input's value, in
// input order, with [Void] standing in for valueless inputs. It resolves
// once every input has resolved, and rejects with the reason of the first
// input to reject; settlements of the remaining inputs are then ignored.
//
// With no inputs the returned promise is resolved immediately with an
// empty slice.
//
// The coordinator lives inside the per-input continuations, so it stays
// reachable until the returned promise settles.
func All(ps ...Interface) *Promise[[]any] {
	next := New[[]any]()
	if len(ps) == 0 {
		next.Resolve([]any{})
		return next
	}

	values := make([]any, len(ps))
	remaining := len(ps)
	for i, p := range ps {
		p.watch(func(v any) {
			values[i] = v
			remaining--
			if remaining == 0 && next.state == Pending {
				next.Resolve(values)
			}
		}, func(e *failure.Error) {
			if next.state == Pending {
				next.Reject(e)
			}
		})
	}
	return next
}

// AllVoid coordinates valueless promises: the returned promise resolves
// when the last input resolves, and rejects with the first rejection.
func AllVoid(ps ...*Promise[Void]) *Promise[Void] {
	next := New[Void]()
	if len(ps) == 0 {
		next.Resolve(Void{})
		return next
	}

	remaining := len(ps)
	for _, p := range ps {
		p.watch(func(any) {
			remaining--
			if remaining == 0 && next.state == Pending {
				next.Resolve(Void{})
			}
		}, func(e *failure.Error) {
			if next.state == Pending {
				next.Reject(e)
			}
		})
	}
	return next
}

// Race settles with the state and erased value of the first input to
// settle; settlements of the remaining inputs are ignored.
func Race(ps ...Interface) *Promise[any] {
	next := New[any]()
	for _, p := range ps {
		p.watch(func(v any) {
			if next.state == Pending {
				next.Resolve(v)
			}
		}, func(e *failure.Error) {
			if next.state == Pending {
				next.Reject(e)
			}
		})
	}
	return next
}
