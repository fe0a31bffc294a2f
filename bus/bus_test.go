package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Name string
}

type farewell struct {
	Name string
}

// Same field layout as greeting: identity must still be distinct.
type lookalike struct {
	Name string
}

type counted struct{}

func TestListen_InvokedInOrder(t *testing.T) {
	s := New()
	var order []int

	Listen(s, func(greeting) { order = append(order, 1) })
	Listen(s, func(greeting) { order = append(order, 2) })
	Listen(s, func(greeting) { order = append(order, 3) })

	Shout(s, greeting{Name: "iara"})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestShout_ArgumentsDelivered(t *testing.T) {
	s := New()
	var got string

	Listen(s, func(m greeting) { got = m.Name })
	Shout(s, greeting{Name: "world"})

	assert.Equal(t, "world", got)
}

func TestShout_NominalIdentity(t *testing.T) {
	s := New()
	greetings := 0
	lookalikes := 0

	Listen(s, func(greeting) { greetings++ })
	Listen(s, func(lookalike) { lookalikes++ })

	Shout(s, greeting{})
	Shout(s, greeting{})
	Shout(s, lookalike{})

	assert.Equal(t, 2, greetings)
	assert.Equal(t, 1, lookalikes)
}

func TestShout_NoListeners(t *testing.T) {
	s := New()
	Shout(s, farewell{Name: "nobody"}) // must not panic
}

func TestListen_NilHandler(t *testing.T) {
	s := New()
	defer func() {
		assert.Equal(t, ErrNilHandler, recover())
	}()
	Listen[greeting](s, nil)
}

func TestCancel_SkipsHandler(t *testing.T) {
	s := New()
	calls := 0

	lst := Listen(s, func(counted) { calls++ })
	Shout(s, counted{})
	lst.Cancel()
	Shout(s, counted{})

	assert.Equal(t, 1, calls)
	assert.True(t, lst.Expired())
}

func TestCancel_Idempotent(t *testing.T) {
	s := New()
	calls := 0

	lst := Listen(s, func(counted) { calls++ })
	lst.Cancel()
	lst.Cancel()
	Shout(s, counted{})

	assert.Zero(t, calls)
}

func TestCancel_NilListener(t *testing.T) {
	var lst *Listener
	lst.Cancel()
	assert.True(t, lst.Expired())
}

func TestCancel_UnrelatedHandlersKeepOrder(t *testing.T) {
	s := New()
	var order []int

	Listen(s, func(counted) { order = append(order, 1) })
	second := Listen(s, func(counted) { order = append(order, 2) })
	Listen(s, func(counted) { order = append(order, 3) })

	second.Cancel()
	Shout(s, counted{})

	assert.Equal(t, []int{1, 3}, order)
}

func TestCancel_StorageReleasedByNextBroadcast(t *testing.T) {
	s := New()

	lst := Listen(s, func(counted) {})
	Listen(s, func(counted) {})
	lst.Cancel()

	Shout(s, counted{})

	s.mu.Lock()
	seq := s.sequenceFor(messageType[counted](), false)
	require.NotNil(t, seq)
	assert.Len(t, seq.entries, 1)
	s.mu.Unlock()
}

func TestShout_RegisterDuringBroadcastNotInvoked(t *testing.T) {
	s := New()
	first := 0
	late := 0

	Listen(s, func(counted) {
		first++
		Listen(s, func(counted) { late++ })
	})

	Shout(s, counted{})
	assert.Equal(t, 1, first)
	assert.Zero(t, late, "handler registered mid-broadcast must wait for the next one")

	Shout(s, counted{})
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, late)
}

func TestShout_CancelDuringBroadcast(t *testing.T) {
	s := New()
	var later *Listener
	laterCalls := 0

	Listen(s, func(counted) { later.Cancel() })
	later = Listen(s, func(counted) { laterCalls++ })

	Shout(s, counted{})
	assert.Zero(t, laterCalls, "handler cancelled before being chosen must be skipped")

	Shout(s, counted{})
	assert.Zero(t, laterCalls)
}

func TestShout_SelfCancelDuringBroadcast(t *testing.T) {
	s := New()
	calls := 0
	var self *Listener

	self = Listen(s, func(counted) {
		calls++
		self.Cancel()
	})

	Shout(s, counted{})
	Shout(s, counted{})

	assert.Equal(t, 1, calls)
}

func TestShout_PanicPropagatesAndSkipsRemainder(t *testing.T) {
	s := New()
	var order []int

	Listen(s, func(counted) { order = append(order, 1) })
	Listen(s, func(counted) { panic("handler exploded") })
	Listen(s, func(counted) { order = append(order, 3) })

	func() {
		defer func() {
			assert.Equal(t, "handler exploded", recover())
		}()
		Shout(s, counted{})
	}()

	assert.Equal(t, []int{1}, order)

	// State stays consistent: the next broadcast runs the first handler
	// exactly once before the still-registered panicking handler stops it.
	order = nil
	func() {
		defer func() { _ = recover() }()
		Shout(s, counted{})
	}()
	assert.Equal(t, []int{1}, order)
}

func TestServe_DeclaresWithoutHandler(t *testing.T) {
	s := New()
	assert.False(t, Serves[greeting](s))
	Serve[greeting](s)
	assert.True(t, Serves[greeting](s))
	Shout(s, greeting{})
}

func TestGroup_DispatchToOwner(t *testing.T) {
	greeter := New()
	farewells := New()
	Serve[greeting](greeter)
	Serve[farewell](farewells)

	g, err := NewGroup(greeter, farewells)
	require.NoError(t, err)

	greeted := ""
	parted := ""
	Listen(g, func(m greeting) { greeted = m.Name })
	Listen(g, func(m farewell) { parted = m.Name })

	Shout(g, greeting{Name: "hello"})
	Shout(g, farewell{Name: "bye"})

	assert.Equal(t, "hello", greeted)
	assert.Equal(t, "bye", parted)

	// Handlers registered through the group live on the owning member.
	assert.True(t, Serves[greeting](greeter))
	assert.False(t, Serves[greeting](farewells))
}

func TestNewGroup_AmbiguousMembership(t *testing.T) {
	a := New()
	b := New()
	Serve[greeting](a)
	Serve[greeting](b)

	_, err := NewGroup(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguousMessage))
}

func TestGroup_UnservedMessage(t *testing.T) {
	g, err := NewGroup(New())
	require.NoError(t, err)

	defer func() {
		recovered, ok := recover().(error)
		require.True(t, ok)
		assert.True(t, errors.Is(recovered, ErrUnservedMessage))
	}()
	Shout(g, greeting{})
}

func TestGroup_LateAmbiguityCaughtAtDispatch(t *testing.T) {
	a := New()
	b := New()
	Serve[greeting](a)

	g, err := NewGroup(a, b)
	require.NoError(t, err)

	// The served sets were disjoint at construction; growing b afterwards
	// makes greeting ambiguous and dispatch must refuse it.
	Serve[greeting](b)

	defer func() {
		recovered, ok := recover().(error)
		require.True(t, ok)
		assert.True(t, errors.Is(recovered, ErrAmbiguousMessage))
	}()
	Shout(g, greeting{})
}
