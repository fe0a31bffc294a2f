package eventloop

import (
	"sync/atomic"
)

// Handler is the callable fired when an event comes due. The event reference
// lets a handler cancel or reschedule itself.
type Handler func(ev *Event)

// SchedulePolicy selects the slot and recurrence of a scheduled event.
type SchedulePolicy int

const (
	// Immediate schedules a one-shot event at the current counter value.
	Immediate SchedulePolicy = iota

	// Delayed schedules a one-shot event at counter + delay.
	Delayed

	// RecurringImmediate schedules a recurring event starting at the
	// current counter value, repeating every delay units.
	RecurringImmediate

	// RecurringDelayed schedules a recurring event starting at
	// counter + delay, repeating every delay units.
	RecurringDelayed

	// AlwaysPolicy schedules a recurring event that fires on every tick.
	AlwaysPolicy
)

// String returns the lower-case name of the policy.
func (p SchedulePolicy) String() string {
	switch p {
	case Immediate:
		return "immediate"
	case Delayed:
		return "delayed"
	case RecurringImmediate:
		return "recurring_immediate"
	case RecurringDelayed:
		return "recurring_delayed"
	case AlwaysPolicy:
		return "always"
	default:
		return "unknown"
	}
}

// Event is a scheduled, possibly recurring invocation of a handler at a
// future counter value. Events are owned by the loop's timer queue; user
// code holds them only through [Listener] handles.
type Event struct {
	handler   Handler
	id        uint64
	interval  uint64
	dueTime   atomic.Uint64
	recurring bool
	cancelled atomic.Bool
	done      atomic.Bool
}

// Cancel marks the event so it never fires again. It is idempotent. A
// cancelled event is reaped by the next processing step that would have
// touched it; a cancelled recurring event is not reinserted.
func (e *Event) Cancel() {
	e.cancelled.Store(true)
}

// Cancelled reports whether the event has been cancelled.
func (e *Event) Cancelled() bool {
	return e.cancelled.Load()
}

// Reschedule moves the event's due time to the given counter value. If the
// event has already been chosen for the current tick, the relocation takes
// effect within that tick's processing; otherwise it takes effect when the
// event's original slot drains.
func (e *Event) Reschedule(timePoint uint64) {
	e.dueTime.Store(timePoint)
}

// expired reports whether the underlying handler can no longer fire.
func (e *Event) expired() bool {
	return e.cancelled.Load() || e.done.Load()
}

// Listener is a weak, revocable handle to a scheduled event.
type Listener struct {
	ev *Event
}

// Event returns the underlying event and whether it is still live. The
// event of an expired listener is gone for scheduling purposes.
func (l Listener) Event() (*Event, bool) {
	if l.ev == nil || l.ev.expired() {
		return nil, false
	}
	return l.ev, true
}

// Cancel revokes the underlying event, if still live. Idempotent.
func (l Listener) Cancel() {
	if l.ev != nil {
		l.ev.Cancel()
	}
}

// Reschedule moves the underlying event's due time, if still live.
func (l Listener) Reschedule(timePoint uint64) {
	if ev, ok := l.Event(); ok {
		ev.Reschedule(timePoint)
	}
}

// Expired reports whether the underlying event has fired for the last time,
// been cancelled, or been dropped by the loop.
func (l Listener) Expired() bool {
	return l.ev == nil || l.ev.expired()
}

// Guard is a scoped owner of a [Listener] that cancels its target when
// closed. It is the explicit-close rendition of a scope guard: pair every
// NewGuard with a deferred Close.
//
// The zero Guard is empty and closes as a no-op.
type Guard struct {
	listener Listener
}

// NewGuard wraps a listener in a guard.
func NewGuard(l Listener) *Guard {
	return &Guard{listener: l}
}

// Set adopts a new listener, cancelling the prior target first. Adopting
// the guard's current listener is a no-op.
func (g *Guard) Set(l Listener) {
	if g.listener == l {
		return
	}
	g.listener.Cancel()
	g.listener = l
}

// Listener returns the guarded listener.
func (g *Guard) Listener() Listener {
	return g.listener
}

// Close cancels the guarded event, if any. Idempotent.
func (g *Guard) Close() {
	g.listener.Cancel()
}
