package engine

import (
	"math/rand/v2"

	"github.com/roach88/plexsim/internal/network"
)

// recomputeEvery bounds floating-point drift in the running total.
const recomputeEvery = 4096

// directList samples firings with the direct method: every reaction's
// propensity sits in one flat list with a running total. The next firing
// time is exponential in the total; the firing reaction is found by a
// linear cumulative scan for a uniform fraction of the total. Fired
// reactions move to the front of the list so frequently firing reactions
// are found quickly.
type directList struct {
	order   []network.ReactionID
	pos     []int
	prop    []float64
	total   float64
	active  int
	updates int

	clock *Clock
	rng   *rand.Rand

	// Drawn by next and consumed by fired.
	drawn   network.ReactionID
	drawnAt float64
	hasDraw bool
}

func newDirectList(clock *Clock, rng *rand.Rand) *directList {
	return &directList{clock: clock, rng: rng}
}

func (d *directList) grow(id network.ReactionID) {
	for int(id) >= len(d.pos) {
		d.pos = append(d.pos, len(d.order))
		d.order = append(d.order, network.ReactionID(len(d.pos)-1))
		d.prop = append(d.prop, 0)
	}
}

func (d *directList) update(id network.ReactionID, propensity float64) {
	d.grow(id)
	if propensity < 0 {
		propensity = 0
	}
	old := d.prop[id]
	switch {
	case old <= 0 && propensity > 0:
		d.active++
	case old > 0 && propensity <= 0:
		d.active--
	}
	d.prop[id] = propensity
	d.total += propensity - old
	d.hasDraw = false

	d.updates++
	if d.updates >= recomputeEvery {
		d.recompute()
	}
}

func (d *directList) recompute() {
	d.total = 0
	for _, id := range d.order {
		d.total += d.prop[id]
	}
	d.updates = 0
}

func (d *directList) next() (network.ReactionID, float64, bool) {
	if d.hasDraw {
		return d.drawn, d.drawnAt, true
	}
	if d.active == 0 {
		return 0, 0, false
	}
	if d.total <= 0 {
		d.recompute()
	}
	wait := d.rng.ExpFloat64() / d.total
	id, ok := d.scan(d.rng.Float64() * d.total)
	if !ok {
		d.recompute()
		id, ok = d.scan(d.rng.Float64() * d.total)
	}
	if !ok {
		panic(&InvariantError{
			Code:    ErrCodeSampleScan,
			Message: "cumulative propensity scan did not reach the sampled target",
		})
	}
	d.drawn, d.drawnAt, d.hasDraw = id, d.clock.Now()+wait, true
	return d.drawn, d.drawnAt, true
}

func (d *directList) scan(target float64) (network.ReactionID, bool) {
	var sum float64
	for _, id := range d.order {
		p := d.prop[id]
		if p <= 0 {
			continue
		}
		sum += p
		if sum > target {
			return id, true
		}
	}
	return 0, false
}

// fired moves id to the front of the list.
func (d *directList) fired(id network.ReactionID) {
	d.hasDraw = false
	p := d.pos[id]
	copy(d.order[1:p+1], d.order[:p])
	d.order[0] = id
	for i := 0; i <= p; i++ {
		d.pos[d.order[i]] = i
	}
}

func (d *directList) pending(id network.ReactionID) bool {
	return int(id) < len(d.prop) && d.prop[id] > 0
}

func (d *directList) len() int {
	return d.active
}
