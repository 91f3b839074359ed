package engine

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/network"
)

// LevelTrace is below slog.LevelDebug and enables per-event logging.
const LevelTrace = slog.Level(-8)

// Scheduler tolerance defaults. With both at 1 every propensity change
// resamples the firing time.
const (
	DefaultHighSensitivity = 1.0
	DefaultLowSensitivity  = 1.0
	DefaultDepth           = 2
)

// streamSeed is the PCG stream constant for fresh runs.
const streamSeed uint64 = 0x9e3779b97f4a7c15

// StopReason tells why Run returned.
type StopReason string

const (
	StopTime      StopReason = "stop_time"
	StopExhausted StopReason = "exhausted"
	StopMaxEvents StopReason = "max_events"
	StopCondition StopReason = "condition"
	StopCanceled  StopReason = "canceled"
)

// Result summarizes one Run call.
type Result struct {
	Reason StopReason
	Time   float64
	Events int64
}

// Observer receives scheduler events, e.g. for metrics.
type Observer interface {
	EventFired(r *network.Reaction, now float64)
	Rescheduled(id network.ReactionID)
	Descheduled(id network.ReactionID)
}

type nopObserver struct{}

func (nopObserver) EventFired(*network.Reaction, float64) {}
func (nopObserver) Rescheduled(network.ReactionID)        {}
func (nopObserver) Descheduled(network.ReactionID)        {}

// Stats counts scheduler work.
type Stats struct {
	Events      int64
	Responds    int64
	Reschedules int64
	Deschedules int64
	Samples     int64
}

// Engine is the event-driven stochastic simulator.
//
// The engine owns the scheduler and the random source; the network owns
// species, populations and reactions. Every reaction the network creates is
// handed to the engine through network.ReactionSink and scheduled at once.
//
// CRITICAL: single-threaded. Run, Step, SetVolume and Snapshot must be
// called from one goroutine; nothing here is locked.
//
// INVARIANTS:
//   - A reaction has a pending firing iff its last computed propensity > 0
//   - Populations never go negative (the network panics otherwise)
//   - All random draws come from one PCG seeded from the run seed
type Engine struct {
	net      *network.Network
	clock    *Clock
	rng      *rand.Rand
	sched    scheduler
	acc      *network.Accumulator
	budget   *EventBudget
	logger   *slog.Logger
	observer Observer

	seed      uint64
	depth     int
	volume    float64
	norm      float64
	high, low float64
	method    string
	maxEvents int64

	runID     string
	parentID  string
	modelHash string
	runIDs    RunIDGenerator

	// last[r] is the propensity r was last scheduled with, or -1.
	last    []float64
	inEvent bool

	stop func(*Engine) bool

	recorder       Recorder
	interval       float64
	sampleOrigin   float64
	sampleIndex    int64
	sampleSpecies  []string
	finalRecorded  bool
	stats          Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithDepth sets the notification depth used when species become
// populated. Default: DefaultDepth.
func WithDepth(depth int) Option {
	return func(e *Engine) { e.depth = depth }
}

// WithVolume sets the reaction volume in litres. Default: DefaultVolume.
func WithVolume(v float64) Option {
	return func(e *Engine) { e.volume = v }
}

// WithMethod selects ir.MethodQueue (default) or ir.MethodDirect.
func WithMethod(method string) Option {
	return func(e *Engine) { e.method = method }
}

// WithSensitivity sets the tolerance band: a scheduled reaction is
// resampled only when its propensity rises above last*high or falls below
// last*low.
func WithSensitivity(high, low float64) Option {
	return func(e *Engine) {
		e.high = high
		e.low = low
	}
}

// WithMaxEvents caps the number of fired events (0 = unlimited).
func WithMaxEvents(n int64) Option {
	return func(e *Engine) { e.maxEvents = n }
}

// WithStopCondition stops Run once cond returns true. It is checked before
// every event.
func WithStopCondition(cond func(*Engine) bool) Option {
	return func(e *Engine) { e.stop = cond }
}

// WithRecorder samples populations every interval of simulated time into
// rec. An interval of 0 records only the final state of each Run.
func WithRecorder(rec Recorder, interval float64) Option {
	return func(e *Engine) {
		e.recorder = rec
		e.interval = interval
	}
}

// WithSampleSpecies restricts samples to the named species. By default
// every species is sampled.
func WithSampleSpecies(names []string) Option {
	return func(e *Engine) { e.sampleSpecies = names }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers a scheduler observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRunIDGenerator overrides the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithModelHash records the content hash of the model, stored in
// snapshots and checked on resume.
func WithModelHash(h string) Option {
	return func(e *Engine) { e.modelHash = h }
}

// New creates an engine over a freshly loaded network, expands the
// populated declared species at the configured depth and schedules every
// reaction.
func New(net *network.Network, opts ...Option) (*Engine, error) {
	e, err := newEngine(net, opts, nil)
	if err != nil {
		return nil, err
	}
	net.SetSink(e)
	net.Prime(e.depth)
	e.respondAll()
	e.logger.Info("engine ready",
		"run_id", e.runID,
		"method", e.method,
		"depth", e.depth,
		"species", net.NumSpecies(),
		"reactions", net.NumReactions())
	return e, nil
}

func newEngine(net *network.Network, opts []Option, snap *ir.Snapshot) (*Engine, error) {
	e := &Engine{
		net:      net,
		acc:      network.NewAccumulator(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
		depth:    DefaultDepth,
		volume:   DefaultVolume,
		high:     DefaultHighSensitivity,
		low:      DefaultLowSensitivity,
		method:   ir.MethodQueue,
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	stream := streamSeed
	e.clock = NewClock()
	if snap != nil {
		e.seed = snap.Seed
		e.depth = snap.Depth
		if snap.Volume > 0 {
			e.volume = snap.Volume
		}
		e.parentID = snap.RunID
		e.clock = NewClockAt(snap.Time)
		stream ^= uint64(snap.EventCount)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}

	e.norm = Avogadro * e.volume
	e.rng = rand.New(rand.NewPCG(e.seed, stream))
	switch e.method {
	case ir.MethodDirect:
		e.sched = newDirectList(e.clock, e.rng)
	default:
		e.sched = newEventQueue(e.clock, e.rng)
	}
	e.budget = NewEventBudget(e.maxEvents)
	e.runID = e.runIDs.Generate()
	e.sampleOrigin = e.clock.Now()
	return e, nil
}

func (e *Engine) validate() error {
	switch {
	case e.depth < 0:
		return &ConfigError{Field: "depth", Message: "must be >= 0"}
	case !(e.volume > 0) || math.IsInf(e.volume, 0):
		return &ConfigError{Field: "volume", Message: "must be a positive finite number"}
	case e.high < 1:
		return &ConfigError{Field: "high_sensitivity", Message: "must be >= 1"}
	case !(e.low > 0) || e.low > 1:
		return &ConfigError{Field: "low_sensitivity", Message: "must be in (0, 1]"}
	case e.method != ir.MethodQueue && e.method != ir.MethodDirect:
		return &ConfigError{Field: "method", Message: "must be " + ir.MethodQueue + " or " + ir.MethodDirect}
	case e.interval < 0:
		return &ConfigError{Field: "sample_interval", Message: "must be >= 0"}
	case e.maxEvents < 0:
		return &ConfigError{Field: "max_events", Message: "must be >= 0"}
	}
	return nil
}

// ReactionAdded implements network.ReactionSink. Reactions created while
// an event is being applied are responded to once all deltas are in.
func (e *Engine) ReactionAdded(id network.ReactionID) {
	for int(id) >= len(e.last) {
		e.last = append(e.last, -1)
	}
	if e.inEvent {
		e.acc.Add(id)
		return
	}
	e.respond(id)
}

func (e *Engine) population(id network.SpeciesID) int64 {
	return e.net.Species(id).Population
}

// Propensity returns the current propensity of a reaction.
func (e *Engine) Propensity(id network.ReactionID) float64 {
	return Propensity(e.net.Reaction(id), e.population, e.norm)
}

// Pending reports whether a reaction holds a scheduled firing.
func (e *Engine) Pending(id network.ReactionID) bool {
	return e.sched.pending(id)
}

// respond recomputes the propensity of id and reschedules it when it was
// unscheduled or its propensity left the tolerance band.
func (e *Engine) respond(id network.ReactionID) {
	for int(id) >= len(e.last) {
		e.last = append(e.last, -1)
	}
	e.stats.Responds++
	p := e.Propensity(id)
	last := e.last[id]
	if p <= 0 {
		if e.sched.pending(id) {
			e.sched.update(id, 0)
			e.stats.Deschedules++
			e.observer.Descheduled(id)
		}
		e.last[id] = -1
		return
	}
	if last <= 0 || p > last*e.high || p < last*e.low {
		e.last[id] = p
		e.sched.update(id, p)
		e.stats.Reschedules++
		e.observer.Rescheduled(id)
	}
}

func (e *Engine) respondAll() {
	for i := 0; i < e.net.NumReactions(); i++ {
		e.respond(network.ReactionID(i))
	}
}

// happen fires one reaction: applies its deltas, then responds to every
// reaction whose reactants changed and to any reaction created meanwhile.
func (e *Engine) happen(id network.ReactionID) {
	r := e.net.Reaction(id)
	e.sched.fired(id)
	e.last[id] = -1

	e.acc.Reset()
	e.inEvent = true
	for _, d := range r.Deltas {
		e.net.UpdatePopulation(d.Species, int64(d.Count), e.acc, e.depth)
	}
	e.inEvent = false

	if !e.acc.Has(id) {
		e.respond(id)
	}
	for _, a := range e.acc.IDs() {
		e.respond(a)
	}
	e.stats.Events++
	e.observer.EventFired(r, e.clock.Now())

	if e.logger.Enabled(context.Background(), LevelTrace) {
		e.logger.Log(context.Background(), LevelTrace, "event fired",
			"reaction_id", id,
			"sim_time", e.clock.Now(),
			"affected", e.acc.Len())
	}
}

// Step fires the next event regardless of stop time. It returns false when
// nothing is scheduled.
func (e *Engine) Step() bool {
	id, at, ok := e.sched.next()
	if !ok {
		return false
	}
	e.clock.Advance(at)
	e.happen(id)
	e.budget.Reset(e.budget.Current() + 1)
	return true
}

// Run fires events in time order until the next event would pass stopTime,
// the schedule empties, the event budget or stop condition is hit, or ctx
// is canceled. stopTime may be +Inf.
func (e *Engine) Run(ctx context.Context, stopTime float64) (Result, error) {
	if stopTime < e.clock.Now() || math.IsNaN(stopTime) {
		return e.result(StopTime), &ConfigError{Field: "stop_time", Message: "must not precede the current time"}
	}
	e.logger.Info("simulation starting",
		"run_id", e.runID,
		"sim_time", e.clock.Now(),
		"stop_time", stopTime,
		"pending", e.sched.len())
	e.finalRecorded = false

	if err := e.sampleThrough(e.clock.Now()); err != nil {
		return e.result(StopTime), err
	}
	for {
		if err := ctx.Err(); err != nil {
			return e.finish(StopCanceled, err)
		}
		if e.stop != nil && e.stop(e) {
			return e.finish(StopCondition, nil)
		}
		id, at, ok := e.sched.next()
		if !ok {
			if err := e.settle(stopTime); err != nil {
				return e.result(StopExhausted), err
			}
			return e.finish(StopExhausted, nil)
		}
		if at > stopTime {
			if err := e.settle(stopTime); err != nil {
				return e.result(StopTime), err
			}
			return e.finish(StopTime, nil)
		}
		if err := e.budget.Check(); err != nil {
			e.logger.Info("event budget exhausted", "error", err)
			return e.finish(StopMaxEvents, nil)
		}
		if err := e.sampleThrough(at); err != nil {
			return e.result(StopTime), err
		}
		e.clock.Advance(at)
		e.happen(id)
	}
}

// settle samples and advances time to stopTime when it is finite.
func (e *Engine) settle(stopTime float64) error {
	if math.IsInf(stopTime, 1) {
		return nil
	}
	if err := e.sampleThrough(stopTime); err != nil {
		return err
	}
	e.clock.Advance(stopTime)
	return nil
}

func (e *Engine) finish(reason StopReason, err error) (Result, error) {
	if e.recorder != nil && e.interval <= 0 && !e.finalRecorded {
		if rerr := e.recorder.Record(e.sample(e.clock.Now())); rerr != nil && err == nil {
			err = rerr
		}
		e.finalRecorded = true
	}
	res := e.result(reason)
	e.logger.Info("simulation stopped",
		"run_id", e.runID,
		"reason", string(reason),
		"sim_time", res.Time,
		"events", res.Events,
		"species", e.net.NumSpecies(),
		"reactions", e.net.NumReactions())
	return res, err
}

func (e *Engine) result(reason StopReason) Result {
	return Result{Reason: reason, Time: e.clock.Now(), Events: e.budget.Current()}
}

// sampleThrough records every sample point <= t.
func (e *Engine) sampleThrough(t float64) error {
	if e.recorder == nil || e.interval <= 0 {
		return nil
	}
	for {
		at := e.sampleOrigin + float64(e.sampleIndex)*e.interval
		if at > t {
			return nil
		}
		if err := e.recorder.Record(e.sample(at)); err != nil {
			return err
		}
		e.sampleIndex++
	}
}

func (e *Engine) sample(at float64) ir.Sample {
	s := ir.Sample{Time: at, EventCount: e.budget.Current()}
	if len(e.sampleSpecies) > 0 {
		for _, name := range e.sampleSpecies {
			var pop int64
			if sp, ok := e.net.SpeciesByName(name); ok {
				pop = sp.Population
			}
			s.Populations = append(s.Populations, ir.PopulationEntry{Species: name, Population: pop})
		}
	} else {
		for i := 0; i < e.net.NumSpecies(); i++ {
			sp := e.net.Species(network.SpeciesID(i))
			s.Populations = append(s.Populations, ir.PopulationEntry{Species: sp.Name, Population: sp.Population})
		}
	}
	e.stats.Samples++
	return s
}

// SetVolume changes the reaction volume and responds every reaction.
func (e *Engine) SetVolume(v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return &ConfigError{Field: "volume", Message: "must be a positive finite number"}
	}
	e.volume = v
	e.norm = Avogadro * v
	e.respondAll()
	return nil
}

// Network returns the simulated network.
func (e *Engine) Network() *network.Network { return e.net }

// Now returns the current simulated time.
func (e *Engine) Now() float64 { return e.clock.Now() }

// Events returns the number of events fired, including those before a
// resumed snapshot.
func (e *Engine) Events() int64 { return e.budget.Current() }

// RunID returns this run's identifier.
func (e *Engine) RunID() string { return e.runID }

// ParentRunID returns the run a resumed engine continues, or "".
func (e *Engine) ParentRunID() string { return e.parentID }

// Seed returns the random seed.
func (e *Engine) Seed() uint64 { return e.seed }

// Depth returns the notification depth.
func (e *Engine) Depth() int { return e.depth }

// Volume returns the reaction volume.
func (e *Engine) Volume() float64 { return e.volume }

// Method returns the scheduling method.
func (e *Engine) Method() string { return e.method }

// PendingCount returns the number of scheduled reactions.
func (e *Engine) PendingCount() int { return e.sched.len() }

// Stats returns scheduler counters.
func (e *Engine) Stats() Stats { return e.stats }
