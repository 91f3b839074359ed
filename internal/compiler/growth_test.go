package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/testutil"
)

func dimerize(name, lm, ls, rm, rs string) ir.RuleSpec {
	return ir.RuleSpec{
		Name:  name,
		Kind:  ir.RuleDimerize,
		Left:  &ir.SiteRefSpec{Mol: lm, Site: ls},
		Right: &ir.SiteRefSpec{Mol: rm, Site: rs},
	}
}

// TestAnalyzeGrowth_NoRules tests that a model without binding rules has no
// warnings.
func TestAnalyzeGrowth_NoRules(t *testing.T) {
	warnings := AnalyzeGrowth(testutil.BirthDeathModel(1, 1))
	assert.Empty(t, warnings)
}

// TestAnalyzeGrowth_Bounded tests models whose complexes have a maximum
// size.
func TestAnalyzeGrowth_Bounded(t *testing.T) {
	assert.Empty(t, AnalyzeGrowth(testutil.DimerModel(1, 1, 1, 1, 1)))
	assert.Empty(t, AnalyzeGrowth(testutil.ChainModel(1)))
	assert.Empty(t, AnalyzeGrowth(testutil.KinaseModel(1)))
}

// TestAnalyzeGrowth_Polymer tests the head-to-tail self loop.
func TestAnalyzeGrowth_Polymer(t *testing.T) {
	warnings := AnalyzeGrowth(testutil.PolymerModel(1, 1))
	require.Len(t, warnings, 2, "one warning per growth direction")

	assert.Equal(t, []string{"M.head", "M.head"}, warnings[0].Path)
	assert.Equal(t, []string{"M.tail", "M.tail"}, warnings[1].Path)
	for _, w := range warnings {
		assert.Equal(t, []string{"grow"}, w.Rules)
		assert.Equal(t, "warning", w.Level)
		assert.Contains(t, w.Message, "notification depth")
	}
}

// TestAnalyzeGrowth_AlternatingChain tests a two-rule cycle: A.x-B.x and
// A.y-B.y build ...A-B-A-B... chains.
func TestAnalyzeGrowth_AlternatingChain(t *testing.T) {
	spec := &ir.ModelSpec{Rules: []ir.RuleSpec{
		dimerize("xx", "A", "x", "B", "x"),
		dimerize("yy", "A", "y", "B", "y"),
	}}

	warnings := AnalyzeGrowth(spec)
	require.Len(t, warnings, 2)

	assert.Equal(t, []string{"A.x", "B.y", "A.x"}, warnings[0].Path)
	assert.ElementsMatch(t, []string{"xx", "yy"}, warnings[0].Rules)
	assert.Equal(t, []string{"A.y", "B.x", "A.y"}, warnings[1].Path)
}

// TestAnalyzeGrowth_BranchWithoutCycle tests that a hub binding several
// leaves is bounded.
func TestAnalyzeGrowth_BranchWithoutCycle(t *testing.T) {
	spec := &ir.ModelSpec{Rules: []ir.RuleSpec{
		dimerize("a", "Hub", "a", "L", "s"),
		dimerize("b", "Hub", "b", "L", "s"),
		dimerize("c", "Hub", "c", "L", "s"),
	}}
	assert.Empty(t, AnalyzeGrowth(spec))
}

// TestAnalyzeGrowth_IgnoresExchangeRules tests that only binding rules
// contribute.
func TestAnalyzeGrowth_IgnoresExchangeRules(t *testing.T) {
	spec := testutil.PolymerModel(1, 1)
	spec.Rules[0].Kind = ir.RuleModExchange
	assert.Empty(t, AnalyzeGrowth(spec))
}
