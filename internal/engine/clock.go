package engine

// Clock holds simulated time plus a monotonic scheduling sequence.
//
// Simulated time only moves forward, to the fire time of the event being
// processed (or to the stop time). The sequence number stamps every
// (re)scheduling so that events with equal fire times are processed in
// scheduling order, which keeps ties deterministic.
//
// Not safe for concurrent use; the simulation loop is the only writer.
type Clock struct {
	now float64
	seq int64
}

// NewClock creates a clock at time 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock at a given simulated time.
// Used to resume from a snapshot.
func NewClockAt(t float64) *Clock {
	return &Clock{now: t}
}

// Now returns the current simulated time.
func (c *Clock) Now() float64 {
	return c.now
}

// Advance moves simulated time to t. Earlier times are ignored.
func (c *Clock) Advance(t float64) {
	if t > c.now {
		c.now = t
	}
}

// Next returns the next scheduling sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq
}
