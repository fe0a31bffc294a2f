// Package eventloop provides a time-indexed scheduler for one-shot,
// recurring, and always-on events, driven by an external monotonic time
// source.
//
// The loop does not poll and owns no clock: a host drives it by calling
// [Loop.Process] with a monotonically non-decreasing counter whose units are
// opaque. Handlers run to completion on the goroutine that calls Process;
// there is no worker pool and no suspension.
//
// Scheduling is safe from other goroutines (for example a driver thread):
// the timer queue is guarded by a host-supplied [sync.Locker], held only
// across queue mutations and never across a handler invocation. Hosts
// without concurrency substitute [NoOpLocker].
package eventloop

import (
	"container/heap"
	"errors"

	"github.com/joeycumines/logiface"
)

// ErrLoopNotEmpty is returned by [Loop.Reset] while events remain scheduled.
var ErrLoopNotEmpty = errors.New("eventloop: timer queue is not empty")

// timerEntry pins an event to the slot it was inserted at. The slot never
// changes; relocation after a reschedule happens by reinsertion.
type timerEntry struct {
	ev   *Event
	slot uint64
	seq  uint64
}

// timerQueue is a min-heap of entries ordered by slot, then insertion
// sequence, so draining preserves FIFO order within a slot.
type timerQueue []timerEntry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].slot != q[j].slot {
		return q[i].slot < q[j].slot
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) {
	*q = append(*q, x.(timerEntry))
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = timerEntry{}
	*q = old[:n-1]
	return x
}

// Loop is a time-keyed event scheduler. Construct with [New]; the zero
// value is not usable.
type Loop struct {
	lock    Locker
	log     *logiface.Logger[logiface.Event]
	timers  timerQueue
	seq     uint64
	nextID  uint64
	counter uint64
}

// New creates an empty loop with its counter at zero.
func New(opts ...Option) *Loop {
	cfg := resolveOptions(opts)
	return &Loop{
		lock: cfg.lock,
		log:  cfg.log,
	}
}

// Schedule inserts an event according to policy and returns a weak handle
// to it. The delay is interpreted per the policy: the slot offset for
// delayed policies, the repetition interval for recurring ones, and ignored
// for Immediate and AlwaysPolicy.
//
// Schedule may be called from any goroutine, including from a handler that
// is currently firing; events scheduled mid-tick never fire within that
// same tick.
func (l *Loop) Schedule(delay uint64, policy SchedulePolicy, fn Handler) Listener {
	l.lock.Lock()
	defer l.lock.Unlock()

	var slot, interval uint64
	var recurring bool
	switch policy {
	case Immediate:
		slot = l.counter
	case Delayed:
		slot = l.counter + delay
	case RecurringImmediate:
		slot, recurring, interval = l.counter, true, delay
	case RecurringDelayed:
		slot, recurring, interval = l.counter+delay, true, delay
	case AlwaysPolicy:
		slot, recurring = l.counter, true
	default:
		return Listener{}
	}

	l.nextID++
	ev := &Event{
		handler:   fn,
		id:        l.nextID,
		interval:  interval,
		recurring: recurring,
	}
	ev.dueTime.Store(slot)
	l.insert(ev, slot)

	l.log.Trace().
		Uint64("event", ev.id).
		Uint64("slot", slot).
		Stringer("policy", policy).
		Log("event scheduled")

	return Listener{ev: ev}
}

// SetImmediate schedules fn to fire on the next tick.
func (l *Loop) SetImmediate(fn Handler) Listener {
	return l.Schedule(0, Immediate, fn)
}

// SetTimeout schedules fn to fire once, delay units from now.
func (l *Loop) SetTimeout(fn Handler, delay uint64) Listener {
	return l.Schedule(delay, Delayed, fn)
}

// SetInterval schedules fn to fire every delay units, starting delay units
// from now.
func (l *Loop) SetInterval(fn Handler, delay uint64) Listener {
	return l.Schedule(delay, RecurringDelayed, fn)
}

// Always schedules fn to fire on every tick.
func (l *Loop) Always(fn Handler) Listener {
	return l.Schedule(0, AlwaysPolicy, fn)
}

// insert pushes ev into the timer queue at slot. Must be called with the
// lock held.
func (l *Loop) insert(ev *Event, slot uint64) {
	l.seq++
	heap.Push(&l.timers, timerEntry{ev: ev, slot: slot, seq: l.seq})
}

// dueEntries splices every entry with slot ≤ now out of the timer queue, in
// ascending (slot, insertion) order. This batch is the unit of work for one
// tick: entries inserted afterwards, including by firing handlers, belong
// to the next tick.
func (l *Loop) dueEntries(now uint64) []timerEntry {
	l.lock.Lock()
	defer l.lock.Unlock()

	var due []timerEntry
	for len(l.timers) > 0 && l.timers[0].slot <= now {
		due = append(due, heap.Pop(&l.timers).(timerEntry))
	}
	return due
}

// Process drives the loop to time now.
//
// Every event whose slot is ≤ now is drained into a local queue, then
// visited front to back with the lock released: cancelled events are
// dropped, events whose due time has passed are fired (and recurring ones
// reinserted at now + interval), and events rescheduled into the future are
// relocated to their new slot. The counter is updated to now last.
//
// A panic inside a handler propagates out of Process. The queue stays
// consistent: the panicking event has already been removed and is not
// reinserted, and the counter is left at its previous value.
func (l *Loop) Process(now uint64) {
	queue := l.dueEntries(now)

	// The drained batch only exists on this stack. If a handler panics,
	// the events still queued behind it are gone with it, exactly like a
	// completed one-shot: mark them done so their listeners expire.
	next := 0
	defer func() {
		for ; next < len(queue); next++ {
			queue[next].ev.done.Store(true)
		}
	}()

	for i := range queue {
		next = i + 1
		ev := queue[i].ev

		if ev.cancelled.Load() {
			ev.done.Store(true)
			l.log.Trace().Uint64("event", ev.id).Log("cancelled event reaped")
			continue
		}

		if due := ev.dueTime.Load(); due > now {
			// Rescheduled while queued; relocate without firing.
			l.lock.Lock()
			l.insert(ev, due)
			l.lock.Unlock()
			l.log.Trace().Uint64("event", ev.id).Uint64("slot", due).Log("event relocated")
			continue
		}

		l.fire(ev, now)

		if ev.recurring && !ev.cancelled.Load() {
			l.lock.Lock()
			l.insert(ev, now+ev.interval)
			l.lock.Unlock()
		} else {
			ev.done.Store(true)
		}
	}

	l.lock.Lock()
	l.counter = now
	l.lock.Unlock()

	l.log.Debug().
		Uint64("now", now).
		Int("drained", len(queue)).
		Log("tick processed")
}

// fire invokes the event's handler. The event is marked done when it will
// never fire again: always for one-shots, and for recurring events whose
// handler panicked (they are not reinserted).
func (l *Loop) fire(ev *Event, now uint64) {
	l.log.Trace().Uint64("event", ev.id).Uint64("now", now).Log("event fired")
	completed := false
	defer func() {
		if !ev.recurring || !completed {
			ev.done.Store(true)
		}
	}()
	ev.handler(ev)
	completed = true
}

// Counter returns the loop's current time.
func (l *Loop) Counter() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.counter
}

// Len returns the number of entries in the timer queue, including entries
// awaiting reap for cancelled events.
func (l *Loop) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.timers)
}

// Reset rewinds the counter to zero. The counter may only be reset while
// the loop is empty; otherwise Reset returns [ErrLoopNotEmpty].
func (l *Loop) Reset() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.timers) > 0 {
		return ErrLoopNotEmpty
	}
	l.counter = 0
	return nil
}
