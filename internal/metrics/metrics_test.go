package metrics

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/engine"
	"github.com/roach88/plexsim/internal/network"
	fixtures "github.com/roach88/plexsim/internal/testutil"
)

// simulate runs a dimer model to exhaustion with c observing both layers.
func simulate(t *testing.T, c *Collector) *engine.Engine {
	t.Helper()
	spec := fixtures.DimerModel(5, 5, 1, 1, 2)
	net, err := network.Load(spec, network.WithObserver(c))
	require.NoError(t, err)
	c.Attach(net)

	e, err := engine.New(net,
		engine.WithSeed(fixtures.FixedSeed),
		engine.WithObserver(c),
		engine.WithRunIDGenerator(fixtures.NewFixedRunID("run-metrics")),
	)
	require.NoError(t, err)
	_, err = e.Run(context.Background(), 5)
	require.NoError(t, err)
	return e
}

func TestCollector_TracksNetworkGrowth(t *testing.T) {
	c := New("")
	e := simulate(t, c)
	stats := e.Network().Stats()

	assert.Equal(t, float64(stats.Families), testutil.ToFloat64(c.families))
	assert.Equal(t, float64(stats.Species), testutil.ToFloat64(c.species))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reactions.WithLabelValues("bind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reactions.WithLabelValues("bind/unbind")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.reactions))
}

func TestCollector_TracksEngine(t *testing.T) {
	c := New("")
	e := simulate(t, c)
	stats := e.Stats()

	fired := testutil.ToFloat64(c.events.WithLabelValues("bind")) +
		testutil.ToFloat64(c.events.WithLabelValues("bind/unbind"))
	assert.Equal(t, float64(stats.Events), fired)
	assert.Greater(t, fired, 0.0)
	assert.Equal(t, float64(stats.Reschedules), testutil.ToFloat64(c.reschedules))
	assert.Equal(t, float64(stats.Deschedules), testutil.ToFloat64(c.deschedules))
	assert.LessOrEqual(t, testutil.ToFloat64(c.simTime), 5.0)
}

func TestCollector_LabelsWithoutNetwork(t *testing.T) {
	c := New("")
	c.ReactionAdded(&network.Reaction{Generator: 3})
	c.ReactionAdded(&network.Reaction{Generator: network.NoGenerator})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.reactions.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reactions.WithLabelValues("-1")))
}

func TestCollector_RunIDLabel(t *testing.T) {
	c := New("run-42")
	c.SpeciesAdded(&network.Species{})

	expected := `
# HELP plexsim_network_species_total Species created.
# TYPE plexsim_network_species_total counter
plexsim_network_species_total{run_id="run-42"} 1
`
	err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "plexsim_network_species_total")
	assert.NoError(t, err)
}

func TestCollector_WriteText(t *testing.T) {
	c := New("")
	simulate(t, c)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	out := buf.String()

	for _, name := range []string{
		"plexsim_network_families_total",
		"plexsim_network_species_total",
		`plexsim_network_reactions_total{generator="bind"}`,
		`plexsim_engine_events_total{generator="bind"}`,
		"plexsim_engine_reschedules_total",
		"plexsim_engine_sim_time",
	} {
		assert.Contains(t, out, name)
	}
}

func TestCollector_Totals(t *testing.T) {
	c := New("")
	e := simulate(t, c)

	totals, err := c.Totals()
	require.NoError(t, err)
	assert.Equal(t, float64(e.Network().NumReactions()), totals["plexsim_network_reactions_total"])
	assert.Equal(t, float64(e.Events()), totals["plexsim_engine_events_total"])
	assert.False(t, math.IsNaN(totals["plexsim_engine_sim_time"]))
}
