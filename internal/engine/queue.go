package engine

import (
	"container/heap"
	"math/rand/v2"

	"github.com/roach88/plexsim/internal/network"
)

// scheduler holds the pending firings of reactions.
//
// update is called with a reaction's new propensity whenever the engine
// decides it must be (re)sampled; a propensity <= 0 removes the reaction.
// next reports the reaction that fires next and when, without consuming it;
// fired consumes it.
type scheduler interface {
	update(id network.ReactionID, propensity float64)
	next() (network.ReactionID, float64, bool)
	fired(id network.ReactionID)
	pending(id network.ReactionID) bool
	len() int
}

// event is one pending firing.
type event struct {
	reaction network.ReactionID
	at       float64
	seq      int64
}

// eventQueue is a min-heap of pending firings ordered by time, ties broken
// by scheduling sequence. index[r] is the heap position of reaction r, or
// -1 when r is not scheduled.
type eventQueue struct {
	events []event
	index  []int
	clock  *Clock
	rng    *rand.Rand
}

// newEventQueue creates an empty queue drawing waits from rng.
func newEventQueue(clock *Clock, rng *rand.Rand) *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		clock:  clock,
		rng:    rng,
	}
}

func (q *eventQueue) Len() int { return len(q.events) }

func (q *eventQueue) Less(i, j int) bool {
	a, b := q.events[i], q.events[j]
	if a.at != b.at {
		return a.at < b.at
	}
	return a.seq < b.seq
}

func (q *eventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
	q.index[q.events[i].reaction] = i
	q.index[q.events[j].reaction] = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(event)
	q.index[ev.reaction] = len(q.events)
	q.events = append(q.events, ev)
}

func (q *eventQueue) Pop() any {
	last := len(q.events) - 1
	ev := q.events[last]
	q.events = q.events[:last]
	q.index[ev.reaction] = -1
	return ev
}

func (q *eventQueue) grow(id network.ReactionID) {
	for int(id) >= len(q.index) {
		q.index = append(q.index, -1)
	}
}

// update draws an exponential wait with mean 1/propensity from the current
// time and places the reaction at that time.
func (q *eventQueue) update(id network.ReactionID, propensity float64) {
	q.grow(id)
	pos := q.index[id]
	if propensity <= 0 {
		if pos >= 0 {
			heap.Remove(q, pos)
		}
		return
	}
	ev := event{
		reaction: id,
		at:       q.clock.Now() + q.rng.ExpFloat64()/propensity,
		seq:      q.clock.Next(),
	}
	if pos >= 0 {
		q.events[pos] = ev
		heap.Fix(q, pos)
		return
	}
	heap.Push(q, ev)
}

func (q *eventQueue) next() (network.ReactionID, float64, bool) {
	if len(q.events) == 0 {
		return 0, 0, false
	}
	return q.events[0].reaction, q.events[0].at, true
}

func (q *eventQueue) fired(id network.ReactionID) {
	q.grow(id)
	pos := q.index[id]
	if pos != 0 {
		panic(&InvariantError{
			Code:     ErrCodeQueueCorrupt,
			Message:  "fired reaction is not at the head of the queue",
			Reaction: id,
		})
	}
	heap.Pop(q)
}

func (q *eventQueue) pending(id network.ReactionID) bool {
	return int(id) < len(q.index) && q.index[id] >= 0
}

func (q *eventQueue) len() int {
	return len(q.events)
}
