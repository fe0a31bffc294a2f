// Package bus provides an in-process, type-indexed publish/subscribe
// primitive.
//
// A [Shouter] delivers typed messages to zero or more handlers. Message
// identity is nominal: each message is a named Go type, and two distinct
// named types are never interchangeable even when their fields coincide.
//
// Delivery is synchronous and at-most-once per registered handler per
// broadcast. There is no retry and no buffering. Handlers fire in
// subscription order. The shouter serialises its own bookkeeping, but
// handlers are always invoked outside any internal lock, on the goroutine
// that calls [Shout].
package bus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNilHandler is the panic payload when Listen is given a nil handler.
	ErrNilHandler = errors.New("bus: nil handler")

	// ErrUnservedMessage is the panic payload when a group is asked to
	// dispatch a message type no member serves.
	ErrUnservedMessage = errors.New("bus: message type not served")

	// ErrAmbiguousMessage reports a message type served by more than one
	// member of a group.
	ErrAmbiguousMessage = errors.New("bus: message type served by multiple shouters")
)

// Shouter is a typed multicast endpoint. For each message type it serves, it
// owns an ordered sequence of handlers. A single shouter may serve any number
// of message types, each with an independent sequence.
//
// The zero value is not usable; construct with [New].
type Shouter struct {
	mu   sync.Mutex
	seqs map[reflect.Type]*sequence
}

// New returns an empty shouter serving no message types yet. Types are added
// implicitly by [Listen] and [Shout], or explicitly by [Serve].
func New() *Shouter {
	return &Shouter{seqs: make(map[reflect.Type]*sequence)}
}

// sequence is the ordered handler list for one message type.
type sequence struct {
	entries []*entry
}

// entry is a single registered handler. Cancellation marks the entry and
// drops the closure; the slot itself is compacted out of the sequence on the
// next broadcast snapshot.
type entry struct {
	invoke    func(any)
	cancelled bool
}

// Listener is a weak, revocable reference to a registered handler.
type Listener struct {
	e *entry
}

// Cancel revokes the underlying handler. It is idempotent; once cancelled
// the handler is skipped by any broadcast that has not already chosen it,
// and its storage is released no later than the next broadcast.
func (l *Listener) Cancel() {
	if l == nil || l.e == nil {
		return
	}
	l.e.cancelled = true
	l.e.invoke = nil
}

// Expired reports whether the underlying handler is gone, either because
// the listener was cancelled or because the owning shouter released it.
func (l *Listener) Expired() bool {
	return l == nil || l.e == nil || l.e.cancelled
}

// Registry is the dispatch surface shared by [Shouter] and [Group]. It
// resolves a message type to the shouter that owns its handler sequence.
type Registry interface {
	// shouterFor returns the shouter serving t. It panics when t cannot be
	// resolved unambiguously.
	shouterFor(t reflect.Type) *Shouter
}

// sequenceFor returns the sequence for t, creating it when create is set.
// Must be called with s.mu held.
func (s *Shouter) sequenceFor(t reflect.Type, create bool) *sequence {
	seq := s.seqs[t]
	if seq == nil && create {
		seq = &sequence{}
		s.seqs[t] = seq
	}
	return seq
}

func (s *Shouter) shouterFor(reflect.Type) *Shouter {
	return s
}

// messageType resolves the nominal identity of M.
func messageType[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

// Serve declares that s serves message type M, without registering a
// handler. Listening and shouting declare the type implicitly; Serve exists
// so a shouter's served set can be fixed before it joins a [Group].
func Serve[M any](s *Shouter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequenceFor(messageType[M](), true)
}

// Serves reports whether s currently serves message type M.
func Serves[M any](s *Shouter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequenceFor(messageType[M](), false) != nil
}

// Listen appends fn to the handler sequence of message type M and returns a
// weak, revocable handle to it. Subsequent broadcasts of M invoke fn in
// order of registration. A handler registered while a broadcast of M is in
// flight is not invoked by that broadcast.
//
// Listen panics with [ErrNilHandler] when fn is nil, and with
// [ErrUnservedMessage] when r is a [Group] with no member serving M.
func Listen[M any](r Registry, fn func(M)) *Listener {
	if fn == nil {
		panic(ErrNilHandler)
	}
	t := messageType[M]()
	s := r.shouterFor(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.sequenceFor(t, true)
	e := &entry{invoke: func(v any) { fn(v.(M)) }}
	seq.entries = append(seq.entries, e)
	return &Listener{e: e}
}

// Shout broadcasts msg to every handler registered for message type M, in
// registration order. The broadcast walks a snapshot taken before iteration
// begins: handlers registered during the broadcast are not invoked by it,
// and a handler cancelled mid-broadcast is skipped unless already chosen.
//
// A panic inside a handler propagates out of Shout; handlers not yet
// invoked in the pass are skipped, and no handler runs twice.
func Shout[M any](r Registry, msg M) {
	t := messageType[M]()
	s := r.shouterFor(t)

	s.mu.Lock()
	seq := s.sequenceFor(t, true)
	snapshot := seq.snapshot()
	s.mu.Unlock()

	for _, e := range snapshot {
		if e.cancelled {
			continue
		}
		e.invoke(msg)
	}
}

// snapshot compacts cancelled entries out of the live sequence and returns a
// copy of the survivors. Must be called with the owning lock held.
func (seq *sequence) snapshot() []*entry {
	live := seq.entries[:0]
	for _, e := range seq.entries {
		if !e.cancelled {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(seq.entries); i++ {
		seq.entries[i] = nil
	}
	seq.entries = live

	snapshot := make([]*entry, len(live))
	copy(snapshot, live)
	return snapshot
}

// Group composes shouters whose message-type sets are disjoint. Operations
// are dispatched to the member that serves the message type.
type Group struct {
	members []*Shouter
}

// NewGroup composes members into a group, verifying that no message type is
// served by more than one member. Overlap returns [ErrAmbiguousMessage].
//
// The served sets are taken as they stand at construction; growing a
// member's set afterwards is caught at dispatch, which panics on ambiguity.
func NewGroup(members ...*Shouter) (*Group, error) {
	owners := make(map[reflect.Type]*Shouter)
	for _, m := range members {
		m.mu.Lock()
		for t := range m.seqs {
			if prev, ok := owners[t]; ok && prev != m {
				m.mu.Unlock()
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousMessage, t)
			}
			owners[t] = m
		}
		m.mu.Unlock()
	}
	return &Group{members: members}, nil
}

// owner resolves the single member serving t. It panics with
// [ErrUnservedMessage] when no member serves t and with
// [ErrAmbiguousMessage] when more than one does.
func (g *Group) owner(t reflect.Type) *Shouter {
	var owner *Shouter
	for _, m := range g.members {
		m.mu.Lock()
		served := m.seqs[t] != nil
		m.mu.Unlock()
		if !served {
			continue
		}
		if owner != nil {
			panic(fmt.Errorf("%w: %s", ErrAmbiguousMessage, t))
		}
		owner = m
	}
	if owner == nil {
		panic(fmt.Errorf("%w: %s", ErrUnservedMessage, t))
	}
	return owner
}

func (g *Group) shouterFor(t reflect.Type) *Shouter {
	return g.owner(t)
}
