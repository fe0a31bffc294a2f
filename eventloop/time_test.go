package eventloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andsmedeiros/iara/failure"
	"github.com/andsmedeiros/iara/promise"
)

func TestWait_ResolvesAfterDelay(t *testing.T) {
	l := New()

	p := l.Wait(100)
	require.Equal(t, promise.Pending, p.State())

	resolved := false
	promise.ThenVoid(p, func(TimedOut) { resolved = true }, nil)

	l.Process(90)
	assert.False(t, resolved)

	l.Process(110)
	assert.True(t, resolved)
}

func TestTimeout_PromiseWins(t *testing.T) {
	l := New()
	p := promise.New[string]()
	q := Timeout(l, 100, p)

	l.SetTimeout(func(*Event) { p.Resolve("ok") }, 50)
	l.Process(60)

	require.Equal(t, promise.Resolved, q.State())
	result := q.Value()
	assert.False(t, result.TimedOut)
	assert.Equal(t, "ok", result.Value)

	// The deadline still fires later; the settled race ignores it.
	l.Process(110)
	assert.Equal(t, "ok", q.Value().Value)
}

func TestTimeout_DeadlineWins(t *testing.T) {
	l := New()
	p := promise.New[string]()
	q := Timeout(l, 100, p)

	l.SetTimeout(func(*Event) { p.Resolve("ok") }, 150)
	l.Process(110)

	require.Equal(t, promise.Resolved, q.State())
	assert.True(t, q.Value().TimedOut)

	// The late resolution is swallowed without raising.
	l.Process(160)
	assert.True(t, q.Value().TimedOut)
}

func TestTimeout_RejectionPropagates(t *testing.T) {
	l := New()
	p := promise.New[string]()
	q := Timeout(l, 100, p)

	var got string
	promise.ThenVoid(q, nil, func(e *failure.Error) {
		got, _ = failure.As[string](e)
	})

	p.Reject("rejected")

	assert.Equal(t, promise.Rejected, q.State())
	assert.Equal(t, "rejected", got)

	l.Process(110)
	assert.Equal(t, promise.Rejected, q.State())
}

func TestTimeout_AlreadySettledPromise(t *testing.T) {
	l := New()
	q := Timeout(l, 100, promise.NewResolved("instant"))

	require.Equal(t, promise.Resolved, q.State())
	assert.Equal(t, "instant", q.Value().Value)
}

func TestDebounce_BurstCollapsesToLastCall(t *testing.T) {
	l := New()
	var got []int

	d := Debounce(l, 100, func(v int) { got = append(got, v) })

	now := uint64(0)
	for i := 1; i <= 9; i++ {
		d(i)
		now += 99
		l.Process(now)
	}
	assert.Empty(t, got, "the burst keeps pushing the due time out")

	l.Process(now + 101)
	assert.Equal(t, []int{9}, got, "fired exactly once, with the last arguments")
}

func TestDebounce_SeparateCallsFireSeparately(t *testing.T) {
	l := New()
	var got []string

	d := Debounce(l, 10, func(v string) { got = append(got, v) })

	d("first")
	l.Process(20)
	d("second")
	l.Process(40)

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestThrottle_LeadingEdge(t *testing.T) {
	l := New()
	var got []int

	f := Throttle(l, 100, func(v int) { got = append(got, v) })

	f(1)
	assert.Equal(t, []int{1}, got, "an armed throttle invokes synchronously")

	f(2)
	f(3)
	assert.Equal(t, []int{1}, got, "calls while disarmed are dropped")

	l.Process(100) // re-arms
	f(4)
	assert.Equal(t, []int{1, 4}, got)
}

func TestThrottle_DropsWhileDisarmed(t *testing.T) {
	l := New()
	calls := 0

	f := Throttle(l, 50, func(struct{}) { calls++ })

	f(struct{}{})
	l.Process(25)
	f(struct{}{})
	assert.Equal(t, 1, calls, "the re-arm timer has not fired yet")

	l.Process(50)
	f(struct{}{})
	assert.Equal(t, 2, calls)
}
