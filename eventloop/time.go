package eventloop

import (
	"github.com/andsmedeiros/iara/failure"
	"github.com/andsmedeiros/iara/promise"
)

// TimedOut is the unit value a [Loop.Wait] promise resolves with. A
// [Timeout] race reports a won deadline through [TimeoutResult.TimedOut].
type TimedOut struct{}

// Wait returns a promise that resolves delay units from now, when the
// corresponding tick is processed.
func (l *Loop) Wait(delay uint64) *promise.Promise[TimedOut] {
	return promise.Make(func(p *promise.Promise[TimedOut]) {
		l.SetTimeout(func(*Event) { p.Resolve(TimedOut{}) }, delay)
	})
}

// TimeoutResult carries the outcome of racing a promise against a deadline:
// the promise's value, or TimedOut set when the deadline won.
type TimeoutResult[T any] struct {
	Value    T
	TimedOut bool
}

// Timeout races p against a deadline delay units from now. The returned
// promise settles with whichever happens first: p's value (or rejection),
// or the timed-out sentinel. The loser is ignored.
func Timeout[T any](l *Loop, delay uint64, p *promise.Promise[T]) *promise.Promise[TimeoutResult[T]] {
	next := promise.New[TimeoutResult[T]]()
	promise.ThenVoid(p, func(v T) {
		if next.State() == promise.Pending {
			next.Resolve(TimeoutResult[T]{Value: v})
		}
	}, func(e *failure.Error) {
		if next.State() == promise.Pending {
			next.Reject(e)
		}
	})
	promise.ThenVoid(l.Wait(delay), func(TimedOut) {
		if next.State() == promise.Pending {
			next.Resolve(TimeoutResult[T]{TimedOut: true})
		}
	}, nil)
	return next
}

// Debounce returns a callable that defers fn until delay units have passed
// without another call. Each call while the timer is live pushes the due
// time out to counter + delay; when the timer finally fires, fn receives
// the argument of the most recent call.
//
// The returned callable must be invoked on the goroutine that drives the
// loop.
func Debounce[T any](l *Loop, delay uint64, fn func(T)) func(T) {
	var guard Guard
	var latest T
	return func(arg T) {
		latest = arg
		if ev, ok := guard.Listener().Event(); ok {
			ev.Reschedule(l.Counter() + delay)
		} else {
			guard.Set(l.SetTimeout(func(*Event) { fn(latest) }, delay))
		}
	}
}

// Throttle returns a callable that invokes fn synchronously when armed,
// then disarms itself for delay units; calls while disarmed are dropped.
//
// The returned callable must be invoked on the goroutine that drives the
// loop.
func Throttle[T any](l *Loop, delay uint64, fn func(T)) func(T) {
	armed := true
	return func(arg T) {
		if !armed {
			return
		}
		armed = false
		l.SetTimeout(func(*Event) { armed = true }, delay)
		fn(arg)
	}
}
