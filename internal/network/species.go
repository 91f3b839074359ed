package network

import (
	"fmt"

	"github.com/roach88/plexsim/internal/plex"
)

// Species is one fully specified complex: a family plus one state per
// paradigm mol.
type Species struct {
	ID     SpeciesID
	Tag    string
	Name   string
	Family FamilyID
	Params []plex.StateID
	Weight float64
	// Shapes holds the shape of every binding site, per paradigm mol, after
	// allostery and omniplex overrides.
	Shapes     [][]int
	Population int64

	sensitive []ReactionID
	contexts  []boundContext
	// expanded is the largest depth budget the species was expanded with.
	// Partners in binary reactions are limited by it.
	expanded int
}

// Sensitive returns the reactions having this species as a reactant.
func (s *Species) Sensitive() []ReactionID {
	return s.sensitive
}

// ExpandedDepth returns the deepest expansion applied so far (0 if never).
func (s *Species) ExpandedDepth() int {
	return s.expanded
}

// Expand offers every context of the species to its feature's generators at
// the given depth. It is a no-op for depth < 1 or when the species was
// already expanded at least that deep. On first expansion the contexts are
// registered, making the species a partner for binary generators.
func (n *Network) Expand(id SpeciesID, depth int) {
	sp := n.Species(id)
	if depth < 1 || depth <= sp.expanded {
		return
	}
	first := sp.expanded == 0
	sp.expanded = depth
	if first {
		for _, bc := range sp.contexts {
			bc.feature.contexts = append(bc.feature.contexts, bc.ctx)
		}
	}
	for _, bc := range sp.contexts {
		for _, g := range bc.feature.gens {
			g.respond(n, bc.feature, bc.ctx, depth)
		}
	}
}

// UpdatePopulation adds delta to the population of id, records every
// reaction the species is a reactant of in acc, and expands the species at
// depth once it is populated. A negative result panics with an
// InvariantError.
func (n *Network) UpdatePopulation(id SpeciesID, delta int64, acc *Accumulator, depth int) {
	sp := n.Species(id)
	sp.Population += delta
	if sp.Population < 0 {
		panic(&InvariantError{
			Code:    ErrCodeNegativePopulation,
			Message: fmt.Sprintf("population of %s would become %d", sp.Name, sp.Population),
			Species: id,
		})
	}
	if acc != nil {
		for _, r := range sp.sensitive {
			acc.Add(r)
		}
	}
	if sp.Population > 0 {
		n.Expand(id, depth)
	}
}

// SetPopulation overwrites a population without touching reactions or
// expansion. Used when restoring a snapshot.
func (n *Network) SetPopulation(id SpeciesID, pop int64) {
	if pop < 0 {
		panic(&InvariantError{Code: ErrCodeNegativePopulation, Message: "negative population", Species: id})
	}
	n.Species(id).Population = pop
}

// Prime expands every populated declared species at depth, in declaration
// order.
func (n *Network) Prime(depth int) {
	for _, id := range n.declared {
		if n.species[id].Population > 0 {
			n.Expand(id, depth)
		}
	}
}

// ExpandPopulated expands every populated species at depth, in ID order.
func (n *Network) ExpandPopulated(depth int) {
	for i := 0; i < len(n.species); i++ {
		if n.species[i].Population > 0 {
			n.Expand(SpeciesID(i), depth)
		}
	}
}
