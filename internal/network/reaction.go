package network

import (
	"slices"
	"strconv"
)

// Term is a (species, multiplicity) pair.
type Term struct {
	Species SpeciesID
	Count   int
}

// Reaction is an immutable reaction record. Scheduling state lives with the
// scheduler, indexed by ID.
type Reaction struct {
	ID        ReactionID
	Tag       string
	Name      string // explicit reactions only
	Generator GeneratorID
	Reactants []Term
	Products  []Term
	Deltas    []Term
	Arity     int
	Rate      float64
}

// reactionKey identifies a generated reaction by the generator and the
// reactant contexts (including their locations in the paradigm), so two
// symmetric but distinct contexts yield two reactions.
type reactionKey struct {
	gen  GeneratorID
	x, y contextKey
}

type contextKey struct {
	species SpeciesID
	a, b    int
}

var noContext = contextKey{species: -1, a: -1, b: -1}

// addTerm increments the count of s in terms, appending it if absent.
func addTerm(terms []Term, s SpeciesID, count int) []Term {
	for i := range terms {
		if terms[i].Species == s {
			terms[i].Count += count
			return terms
		}
	}
	return append(terms, Term{Species: s, Count: count})
}

// deltas nets products against reactants, dropping zeros. Order: reactant
// species first, then new product species, each in term order.
func deltas(reactants, products []Term) []Term {
	var out []Term
	for _, r := range reactants {
		out = addTerm(out, r.Species, -r.Count)
	}
	for _, p := range products {
		out = addTerm(out, p.Species, p.Count)
	}
	return slices.DeleteFunc(out, func(t Term) bool { return t.Count == 0 })
}

// addReaction finalizes r, appends it to the arena, wires it into the
// sensitivity lists of its reactants and hands it to the sink.
func (n *Network) addReaction(r *Reaction) ReactionID {
	r.ID = ReactionID(len(n.reactions))
	r.Tag = "rx" + strconv.Itoa(int(r.ID))
	r.Deltas = deltas(r.Reactants, r.Products)
	r.Arity = 0
	for _, t := range r.Reactants {
		r.Arity += t.Count
		sp := n.species[t.Species]
		sp.sensitive = append(sp.sensitive, r.ID)
	}
	n.reactions = append(n.reactions, r)

	n.logger.Debug("reaction created",
		"reaction_id", r.ID,
		"generator", n.GeneratorName(r.Generator),
		"arity", r.Arity,
		"rate", r.Rate)
	n.observer.ReactionAdded(r)
	if n.sink != nil {
		n.sink.ReactionAdded(r.ID)
	}
	return r.ID
}

// lookupOrAdd returns the reaction registered under key, or builds it with
// build and registers it. The boolean reports whether it was created.
func (n *Network) lookupOrAdd(key reactionKey, build func() *Reaction) (*Reaction, bool) {
	if id, ok := n.dedup[key]; ok {
		return n.reactions[id], false
	}
	r := build()
	id := n.addReaction(r)
	n.dedup[key] = id
	return r, true
}

// expandProducts recurses into the product species of r at depth-1.
func (n *Network) expandProducts(r *Reaction, depth int) {
	for _, p := range r.Products {
		n.Expand(p.Species, depth-1)
	}
}
