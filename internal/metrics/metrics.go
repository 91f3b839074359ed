// Package metrics exposes network growth and scheduler activity as
// Prometheus metrics.
//
// A Collector observes both the network (families, species and reactions
// as they are created) and the engine (fired events and queue updates).
// It owns a private registry, so several runs in one process never share
// counters.
package metrics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/plexsim/internal/network"
)

const namespace = "plexsim"

// Collector records network and engine events.
//
// Not safe for concurrent use with the simulation it observes; the
// underlying Prometheus metrics are, so Gather may run concurrently.
type Collector struct {
	registry *prometheus.Registry
	net      *network.Network

	families    prometheus.Counter
	species     prometheus.Counter
	reactions   *prometheus.CounterVec
	events      *prometheus.CounterVec
	reschedules prometheus.Counter
	deschedules prometheus.Counter
	simTime     prometheus.Gauge
}

// New creates a collector. runID, when set, is attached to every metric as
// a constant label.
func New(runID string) *Collector {
	var labels prometheus.Labels
	if runID != "" {
		labels = prometheus.Labels{"run_id": runID}
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		families: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "network",
			Name:        "families_total",
			Help:        "Families (complexes up to modification state) created.",
			ConstLabels: labels,
		}),
		species: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "network",
			Name:        "species_total",
			Help:        "Species created.",
			ConstLabels: labels,
		}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "network",
			Name:        "reactions_total",
			Help:        "Reactions created, by generating rule.",
			ConstLabels: labels,
		}, []string{"generator"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "events_total",
			Help:        "Reaction events fired, by generating rule.",
			ConstLabels: labels,
		}, []string{"generator"}),
		reschedules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "reschedules_total",
			Help:        "Reactions whose next firing time was redrawn.",
			ConstLabels: labels,
		}),
		deschedules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "deschedules_total",
			Help:        "Reactions removed from the schedule because their propensity dropped to zero.",
			ConstLabels: labels,
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "engine",
			Name:        "sim_time",
			Help:        "Simulated time of the most recent event.",
			ConstLabels: labels,
		}),
	}

	c.registry.MustRegister(
		c.families, c.species, c.reactions,
		c.events, c.reschedules, c.deschedules, c.simTime,
	)
	return c
}

// Attach gives the collector the network it observes, so reactions are
// labelled with rule names instead of generator IDs.
func (c *Collector) Attach(net *network.Network) {
	c.net = net
}

// Registry returns the collector's private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) generator(id network.GeneratorID) string {
	if c.net != nil {
		return c.net.GeneratorName(id)
	}
	return strconv.Itoa(int(id))
}

// FamilyAdded implements network.Observer.
func (c *Collector) FamilyAdded(*network.Family) { c.families.Inc() }

// SpeciesAdded implements network.Observer.
func (c *Collector) SpeciesAdded(*network.Species) { c.species.Inc() }

// ReactionAdded implements network.Observer.
func (c *Collector) ReactionAdded(r *network.Reaction) {
	c.reactions.WithLabelValues(c.generator(r.Generator)).Inc()
}

// EventFired implements engine.Observer.
func (c *Collector) EventFired(r *network.Reaction, t float64) {
	c.events.WithLabelValues(c.generator(r.Generator)).Inc()
	c.simTime.Set(t)
}

// Rescheduled implements engine.Observer.
func (c *Collector) Rescheduled(network.ReactionID) { c.reschedules.Inc() }

// Descheduled implements engine.Observer.
func (c *Collector) Descheduled(network.ReactionID) { c.deschedules.Inc() }

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	mfs, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Totals sums every metric family across its label values, keyed by
// metric name. Gauges report their current value.
func (c *Collector) Totals() (map[string]float64, error) {
	mfs, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	totals := make(map[string]float64, len(mfs))
	for _, mf := range mfs {
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += metricValue(mf.GetType(), m)
		}
		totals[mf.GetName()] = sum
	}
	return totals, nil
}

func metricValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	}
	return 0
}
