package network

import (
	"github.com/roach88/plexsim/internal/ir"
)

// DescribeSpecies renders a species as snapshot state. The complex is
// written in paradigm order with every modification, so resolving it again
// recognizes the same species.
func (n *Network) DescribeSpecies(id SpeciesID) ir.SpeciesState {
	sp := n.Species(id)
	return ir.SpeciesState{
		Tag:        sp.Tag,
		Name:       sp.Name,
		Complex:    n.cat.Describe(n.families[sp.Family].Paradigm, sp.Params),
		Population: sp.Population,
	}
}

// DescribeReaction renders a reaction with species names and its
// provenance.
func (n *Network) DescribeReaction(id ReactionID) ir.ReactionRecord {
	r := n.reactions[id]
	terms := func(ts []Term) []ir.StoichSpec {
		out := make([]ir.StoichSpec, len(ts))
		for i, t := range ts {
			out[i] = ir.StoichSpec{Species: n.species[t.Species].Name, Count: t.Count}
		}
		return out
	}
	gen := n.GeneratorName(r.Generator)
	if r.Generator == NoGenerator && r.Name != "" {
		gen = "explicit:" + r.Name
	}
	return ir.ReactionRecord{
		Tag:       r.Tag,
		Generator: gen,
		Reactants: terms(r.Reactants),
		Products:  terms(r.Products),
		Rate:      r.Rate,
	}
}

// Restore recognizes a snapshot species and returns its ID, creating the
// species if this network has not generated it yet. The species keeps the
// snapshot's name when that name is free.
func (n *Network) Restore(st ir.SpeciesState) (SpeciesID, error) {
	r, err := n.cat.Resolve(st.Complex)
	if err != nil {
		return 0, err
	}
	id := n.Intern(r.Plex, r.States(n.cat))
	if st.Name != "" && n.species[id].Name != st.Name {
		if _, taken := n.names[st.Name]; !taken {
			n.rename(id, st.Name)
		}
	}
	return id, nil
}
