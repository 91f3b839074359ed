package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/plexsim/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the final network size to help debug the failure.
type AssertionError struct {
	Type      string // Assertion type for categorization
	Expected  string // Human-readable expected outcome
	Actual    string // Human-readable actual outcome
	Species   int
	Reactions int
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Network: %d species, %d reactions\n", e.Species, e.Reactions)
	return buf.String()
}

func failure(snap *ir.Snapshot, typ, expected, actual string) *AssertionError {
	return &AssertionError{
		Type:      typ,
		Expected:  expected,
		Actual:    actual,
		Species:   len(snap.Species),
		Reactions: len(snap.Reactions),
	}
}

// assertReactionCount checks the number of reactions, optionally of one
// generator.
func assertReactionCount(snap *ir.Snapshot, a Assertion) error {
	count := 0
	for _, r := range snap.Reactions {
		if a.Generator == "" || r.Generator == a.Generator {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}
	what := "reactions"
	if a.Generator != "" {
		what = fmt.Sprintf("reactions from %s", a.Generator)
	}
	return failure(snap, AssertReactionCount,
		fmt.Sprintf("%d %s", *a.Count, what),
		fmt.Sprintf("%d %s", count, what))
}

// assertReactionExists checks for a reaction whose reactant and product
// species match as multisets.
func assertReactionExists(snap *ir.Snapshot, a Assertion) error {
	wantIn := multiset(a.Reactants)
	wantOut := multiset(a.Products)
	for _, r := range snap.Reactions {
		if a.Generator != "" && r.Generator != a.Generator {
			continue
		}
		if slices.Equal(expand(r.Reactants), wantIn) && slices.Equal(expand(r.Products), wantOut) {
			return nil
		}
	}
	return failure(snap, AssertReactionExists,
		fmt.Sprintf("reaction %s", formatReaction(wantIn, wantOut)),
		"no matching reaction among: "+listReactions(snap))
}

// assertSpeciesCount checks the number of species.
func assertSpeciesCount(snap *ir.Snapshot, a Assertion) error {
	if len(snap.Species) == *a.Count {
		return nil
	}
	return failure(snap, AssertSpeciesCount,
		fmt.Sprintf("%d species", *a.Count),
		fmt.Sprintf("%d species", len(snap.Species)))
}

// assertSpeciesExists checks that a species with the given name was
// generated or declared.
func assertSpeciesExists(snap *ir.Snapshot, a Assertion) error {
	if _, ok := findSpecies(snap, a.Species); ok {
		return nil
	}
	return failure(snap, AssertSpeciesExists,
		fmt.Sprintf("species %s", a.Species),
		"not found among: "+listSpecies(snap))
}

// assertPopulation checks the final population of a species. A species
// that was never generated has population 0.
func assertPopulation(snap *ir.Snapshot, a Assertion) error {
	var pop int64
	if st, ok := findSpecies(snap, a.Species); ok {
		pop = st.Population
	}
	if (a.Min == nil || pop >= *a.Min) && (a.Max == nil || pop <= *a.Max) {
		return nil
	}
	return failure(snap, AssertPopulation,
		fmt.Sprintf("%s population in %s", a.Species, formatRange(a.Min, a.Max)),
		fmt.Sprintf("%s population %d", a.Species, pop))
}

// assertStopReason checks why the run stopped.
func assertStopReason(snap *ir.Snapshot, reason string, a Assertion) error {
	if reason == a.Reason {
		return nil
	}
	return failure(snap, AssertStopReason, "stopped on "+a.Reason, "stopped on "+reason)
}

func findSpecies(snap *ir.Snapshot, name string) (ir.SpeciesState, bool) {
	for _, st := range snap.Species {
		if st.Name == name {
			return st, true
		}
	}
	return ir.SpeciesState{}, false
}

// multiset sorts a copy of names.
func multiset(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// expand turns stoichiometry into a sorted multiset of names.
func expand(terms []ir.StoichSpec) []string {
	out := []string{}
	for _, t := range terms {
		n := t.Count
		if n == 0 {
			n = 1
		}
		for range n {
			out = append(out, t.Species)
		}
	}
	slices.Sort(out)
	return out
}

func formatReaction(in, out []string) string {
	side := func(names []string) string {
		if len(names) == 0 {
			return "∅"
		}
		return strings.Join(names, " + ")
	}
	return side(in) + " -> " + side(out)
}

func formatRange(lo, hi *int64) string {
	l, h := "-inf", "+inf"
	if lo != nil {
		l = fmt.Sprint(*lo)
	}
	if hi != nil {
		h = fmt.Sprint(*hi)
	}
	return "[" + l + ", " + h + "]"
}

func listReactions(snap *ir.Snapshot) string {
	parts := make([]string, len(snap.Reactions))
	for i, r := range snap.Reactions {
		parts[i] = fmt.Sprintf("%s (%s)", formatReaction(expand(r.Reactants), expand(r.Products)), r.Generator)
	}
	return strings.Join(parts, "; ")
}

func listSpecies(snap *ir.Snapshot) string {
	names := make([]string, len(snap.Species))
	for i, st := range snap.Species {
		names[i] = st.Name
	}
	return strings.Join(names, ", ")
}

// EvaluateAssertions evaluates all assertions against the result's final
// snapshot. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	if result.Snapshot == nil {
		return []string{"no final snapshot to evaluate assertions against"}
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertReactionCount:
			err = assertReactionCount(result.Snapshot, assertion)
		case AssertReactionExists:
			err = assertReactionExists(result.Snapshot, assertion)
		case AssertSpeciesCount:
			err = assertSpeciesCount(result.Snapshot, assertion)
		case AssertSpeciesExists:
			err = assertSpeciesExists(result.Snapshot, assertion)
		case AssertPopulation:
			err = assertPopulation(result.Snapshot, assertion)
		case AssertStopReason:
			err = assertStopReason(result.Snapshot, result.Reason, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
