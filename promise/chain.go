package promise

import (
	"errors"

	"github.com/andsmedeiros/iara/failure"
)

// ErrNilHandler is the panic payload when a chaining operation that requires
// a resolve handler is given a nil one.
var ErrNilHandler = errors.New("promise: nil resolve handler")

// Outcome carries the result of a settled promise to a [Finally] handler:
// either the resolved value or the rejection reason.
type Outcome[T any] struct {
	Value T
	Err   *failure.Error
}

// Rejected reports whether the outcome carries a rejection.
func (o Outcome[T]) Rejected() bool {
	return o.Err != nil
}

// Then installs the settle callback on p and returns the next promise in
// the chain. When p resolves, onResolve runs with the value and its return
// settles the next promise; when p rejects, onReject runs with the reason
// and its return resolves the next promise (a recovery). A nil onReject
// propagates the rejection down the chain unchanged. onResolve must not be
// nil; use [Promise.Rescue] or [ThenVoid] when only one side matters.
//
// A panic inside the chosen handler is recovered, wrapped via
// [failure.Wrap], and rejects the next promise.
//
// If p is already settled the chosen handler runs before Then returns.
func Then[T, U any](p *Promise[T], onResolve func(T) U, onReject func(*failure.Error) U) *Promise[U] {
	if onResolve == nil {
		panic(ErrNilHandler)
	}
	next := New[U]()
	p.subscribe(func() {
		routeSettled(p, next, func() {
			next.Resolve(onResolve(p.value))
		}, onReject)
	})
	return next
}

// ThenVoid is [Then] for handlers that produce no value: the next promise
// is valueless and resolves once the chosen handler returns. Either handler
// may be nil; a nil onResolve simply resolves the next promise, a nil
// onReject propagates the rejection.
func ThenVoid[T any](p *Promise[T], onResolve func(T), onReject func(*failure.Error)) *Promise[Void] {
	next := New[Void]()
	p.subscribe(func() {
		switch p.state {
		case Resolved:
			settleGuarded(next, func() {
				if onResolve != nil {
					onResolve(p.value)
				}
				next.Resolve(Void{})
			})
		case Rejected:
			if onReject == nil {
				next.Reject(p.err)
				return
			}
			settleGuarded(next, func() {
				onReject(p.err)
				next.Resolve(Void{})
			})
		}
	})
	return next
}

// ThenPromise is [Then] for handlers that return another promise: the next
// promise is piped to the handler's result, settling identically when it
// does. A nil onReject propagates the rejection.
func ThenPromise[T, U any](p *Promise[T], onResolve func(T) *Promise[U], onReject func(*failure.Error) *Promise[U]) *Promise[U] {
	if onResolve == nil {
		panic(ErrNilHandler)
	}
	next := New[U]()
	p.subscribe(func() {
		switch p.state {
		case Resolved:
			settleGuarded(next, func() {
				Pipe(onResolve(p.value), next)
			})
		case Rejected:
			if onReject == nil {
				next.Reject(p.err)
				return
			}
			settleGuarded(next, func() {
				Pipe(onReject(p.err), next)
			})
		}
	})
	return next
}

// Rescue installs a rejection handler, passing resolved values down the
// chain untouched. The handler's return resolves the next promise.
func (p *Promise[T]) Rescue(onReject func(*failure.Error) T) *Promise[T] {
	return Then(p, func(v T) T { return v }, onReject)
}

// Finally installs a handler invoked on settlement of either kind. The
// handler receives an [Outcome] carrying the value or the reason, and its
// return settles the next promise exactly like [Then].
func Finally[T, U any](p *Promise[T], onSettle func(Outcome[T]) U) *Promise[U] {
	return Then(p, func(v T) U {
		return onSettle(Outcome[T]{Value: v})
	}, func(e *failure.Error) U {
		return onSettle(Outcome[T]{Err: e})
	})
}

// Pipe couples src's settlement to dst: when src settles, dst settles with
// the same state and value. Piping an already-settled src settles dst
// before Pipe returns.
func Pipe[T any](src, dst *Promise[T]) {
	src.subscribe(func() {
		if src.state == Resolved {
			dst.Resolve(src.value)
		} else {
			dst.Reject(src.err)
		}
	})
}

// routeSettled dispatches the settled state of p into resolveBranch or the
// rejection handler, with handler panics rejecting next.
func routeSettled[T, U any](p *Promise[T], next *Promise[U], resolveBranch func(), onReject func(*failure.Error) U) {
	switch p.state {
	case Resolved:
		settleGuarded(next, resolveBranch)
	case Rejected:
		if onReject == nil {
			next.Reject(p.err)
			return
		}
		settleGuarded(next, func() {
			next.Resolve(onReject(p.err))
		})
	}
}

// settleGuarded runs branch, converting a panic raised before next settles
// into a rejection of next. Panics raised after next has settled (from its
// own downstream chain) propagate unchanged.
func settleGuarded[U any](next *Promise[U], branch func()) {
	defer func() {
		if r := recover(); r != nil {
			if next.state == Pending {
				next.Reject(failure.Wrap(r))
			} else {
				panic(r)
			}
		}
	}()
	branch()
}
