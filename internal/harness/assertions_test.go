package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/ir"
)

func intp(n int) *int       { return &n }
func int64p(n int64) *int64 { return &n }

// dimerSnapshot is the dimer network after some binding: 2 A, 2 B, 3 AB.
func dimerSnapshot() *ir.Snapshot {
	return &ir.Snapshot{
		RunID: "test-run",
		Species: []ir.SpeciesState{
			{Tag: "s1", Name: "A", Population: 2},
			{Tag: "s2", Name: "B", Population: 2},
			{Tag: "s3", Name: "AB", Population: 3},
		},
		Reactions: []ir.ReactionRecord{
			{
				Tag:       "r1",
				Generator: "bind",
				Reactants: []ir.StoichSpec{{Species: "B", Count: 1}, {Species: "A", Count: 1}},
				Products:  []ir.StoichSpec{{Species: "AB", Count: 1}},
				Rate:      1,
			},
			{
				Tag:       "r2",
				Generator: "bind/unbind",
				Reactants: []ir.StoichSpec{{Species: "AB", Count: 1}},
				Products:  []ir.StoichSpec{{Species: "A", Count: 1}, {Species: "B", Count: 1}},
				Rate:      1,
			},
		},
	}
}

func evaluate(t *testing.T, reason string, assertions ...Assertion) []string {
	t.Helper()
	result := NewResult()
	result.Reason = reason
	result.Snapshot = dimerSnapshot()
	return EvaluateAssertions(result, assertions)
}

func TestReactionCountAssertion(t *testing.T) {
	assert.Empty(t, evaluate(t, "", Assertion{Type: AssertReactionCount, Count: intp(2)}))
	assert.Empty(t, evaluate(t, "", Assertion{Type: AssertReactionCount, Generator: "bind", Count: intp(1)}))
	assert.Empty(t, evaluate(t, "", Assertion{Type: AssertReactionCount, Generator: "other", Count: intp(0)}))

	errs := evaluate(t, "", Assertion{Type: AssertReactionCount, Generator: "bind", Count: intp(4)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 4 reactions from bind")
	assert.Contains(t, errs[0], "Actual: 1 reactions from bind")
	assert.Contains(t, errs[0], "Network: 3 species, 2 reactions")
}

func TestReactionExistsAssertion(t *testing.T) {
	t.Run("reactant order does not matter", func(t *testing.T) {
		errs := evaluate(t, "", Assertion{
			Type:      AssertReactionExists,
			Reactants: []string{"A", "B"},
			Products:  []string{"AB"},
		})
		assert.Empty(t, errs)
	})

	t.Run("generator filters", func(t *testing.T) {
		errs := evaluate(t, "", Assertion{
			Type:      AssertReactionExists,
			Generator: "bind/unbind",
			Reactants: []string{"A", "B"},
			Products:  []string{"AB"},
		})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "reaction A + B -> AB")
	})

	t.Run("stoichiometry counts", func(t *testing.T) {
		errs := evaluate(t, "", Assertion{
			Type:      AssertReactionExists,
			Reactants: []string{"A", "A", "B"},
			Products:  []string{"AB"},
		})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "A + B -> AB (bind)")
		assert.Contains(t, errs[0], "AB -> A + B (bind/unbind)")
	})
}

func TestSpeciesAssertions(t *testing.T) {
	assert.Empty(t, evaluate(t, "", Assertion{Type: AssertSpeciesCount, Count: intp(3)}))
	assert.Empty(t, evaluate(t, "", Assertion{Type: AssertSpeciesExists, Species: "AB"}))

	errs := evaluate(t, "",
		Assertion{Type: AssertSpeciesCount, Count: intp(5)},
		Assertion{Type: AssertSpeciesExists, Species: "ABA"},
	)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Expected: 5 species")
	assert.Contains(t, errs[1], "not found among: A, B, AB")
}

func TestPopulationAssertion(t *testing.T) {
	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"within range", Assertion{Species: "AB", Min: int64p(1), Max: int64p(3)}, true},
		{"min only", Assertion{Species: "A", Min: int64p(2)}, true},
		{"max only", Assertion{Species: "B", Max: int64p(1)}, false},
		{"below min", Assertion{Species: "AB", Min: int64p(4)}, false},
		{"missing species is zero", Assertion{Species: "ABA", Max: int64p(0)}, true},
		{"missing species below min", Assertion{Species: "ABA", Min: int64p(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.a.Type = AssertPopulation
			errs := evaluate(t, "", tt.a)
			if tt.pass {
				assert.Empty(t, errs)
			} else {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0], "population")
			}
		})
	}

	errs := evaluate(t, "", Assertion{Type: AssertPopulation, Species: "AB", Max: int64p(1)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "AB population in [-inf, 1]")
	assert.Contains(t, errs[0], "AB population 3")
}

func TestStopReasonAssertion(t *testing.T) {
	assert.Empty(t, evaluate(t, "exhausted", Assertion{Type: AssertStopReason, Reason: "exhausted"}))

	errs := evaluate(t, "stop_time", Assertion{Type: AssertStopReason, Reason: "exhausted"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: stopped on exhausted")
	assert.Contains(t, errs[0], "Actual: stopped on stop_time")
}

func TestEvaluateAssertionsWithoutSnapshot(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertSpeciesCount, Count: intp(1)}})
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "no final snapshot"))
}

func TestEvaluateAssertionsUnknownType(t *testing.T) {
	errs := evaluate(t, "", Assertion{Type: "flux"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "flux"`)
}

func TestFormatReaction(t *testing.T) {
	assert.Equal(t, "A + B -> AB", formatReaction([]string{"A", "B"}, []string{"AB"}))
	assert.Equal(t, "∅ -> A", formatReaction(nil, []string{"A"}))
	assert.Equal(t, "A -> ∅", formatReaction([]string{"A"}, nil))
}
