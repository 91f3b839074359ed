package engine

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/network"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestEventQueue_OrdersByTime(t *testing.T) {
	clock := NewClock()
	q := newEventQueue(clock, testRand())

	// Very different propensities make the order overwhelmingly likely
	// but the assertion only relies on heap order.
	for id := network.ReactionID(0); id < 20; id++ {
		q.update(id, float64(id+1))
	}
	require.Equal(t, 20, q.len())

	last := -1.0
	for q.len() > 0 {
		id, at, ok := q.next()
		require.True(t, ok)
		assert.GreaterOrEqual(t, at, last)
		last = at
		q.fired(id)
		assert.False(t, q.pending(id))
	}
	_, _, ok := q.next()
	assert.False(t, ok)
}

func TestEventQueue_UpdateReplacesAndRemoves(t *testing.T) {
	clock := NewClock()
	q := newEventQueue(clock, testRand())

	q.update(3, 1)
	assert.True(t, q.pending(3))
	assert.False(t, q.pending(2), "grown slots start unscheduled")
	assert.Equal(t, 1, q.len())

	q.update(3, 5)
	assert.Equal(t, 1, q.len(), "rescheduling keeps one entry per reaction")

	q.update(3, 0)
	assert.False(t, q.pending(3))
	assert.Equal(t, 0, q.len())

	// Removing an unscheduled reaction is a no-op.
	q.update(7, -1)
	assert.Equal(t, 0, q.len())
}

func TestEventQueue_TimesStartAtClock(t *testing.T) {
	clock := NewClockAt(100)
	q := newEventQueue(clock, testRand())
	q.update(0, 2)

	_, at, ok := q.next()
	require.True(t, ok)
	assert.Greater(t, at, 100.0)
}

func TestEventQueue_FiredNotAtHeadPanics(t *testing.T) {
	q := newEventQueue(NewClock(), testRand())
	q.update(0, 1)
	q.update(1, 1)

	head, _, _ := q.next()
	other := network.ReactionID(1 - head)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		ie, ok := r.(*InvariantError)
		require.True(t, ok)
		assert.Equal(t, ErrCodeQueueCorrupt, ie.Code)
		assert.Equal(t, other, ie.Reaction)
	}()
	q.fired(other)
}

func TestDirectList_TracksTotalAndActive(t *testing.T) {
	d := newDirectList(NewClock(), testRand())
	d.update(0, 2)
	d.update(2, 3)
	assert.Equal(t, 2, d.len())
	assert.InDelta(t, 5.0, d.total, 1e-12)
	assert.False(t, d.pending(1))

	d.update(0, 0)
	assert.Equal(t, 1, d.len())
	assert.InDelta(t, 3.0, d.total, 1e-12)

	id, _, ok := d.next()
	require.True(t, ok)
	assert.Equal(t, network.ReactionID(2), id, "only one reaction can fire")
}

func TestDirectList_NextIsAPeek(t *testing.T) {
	d := newDirectList(NewClock(), testRand())
	d.update(0, 1)
	d.update(1, 1)

	id1, at1, _ := d.next()
	id2, at2, _ := d.next()
	assert.Equal(t, id1, id2)
	assert.Equal(t, at1, at2)

	d.fired(id1)
	assert.Equal(t, id1, d.order[0], "fired reaction moves to the front")
	assert.Equal(t, 0, d.pos[id1])
}

func TestDirectList_SelectsProportionally(t *testing.T) {
	d := newDirectList(NewClock(), testRand())
	d.update(0, 1)
	d.update(1, 9)

	counts := make(map[network.ReactionID]int)
	const draws = 20000
	for i := 0; i < draws; i++ {
		id, _, ok := d.next()
		require.True(t, ok)
		counts[id]++
		d.fired(id)
	}
	assert.InDelta(t, 0.9, float64(counts[1])/draws, 0.02)
}

func TestDirectList_Empty(t *testing.T) {
	d := newDirectList(NewClock(), testRand())
	_, _, ok := d.next()
	assert.False(t, ok)

	d.update(4, 1)
	d.update(4, 0)
	_, _, ok = d.next()
	assert.False(t, ok)
}
