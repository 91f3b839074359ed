package network

import (
	"github.com/roach88/plexsim/internal/extrap"
	"github.com/roach88/plexsim/internal/plex"
)

// generator turns feature contexts into reactions. respond is called for
// each context of an expanding species; implementations create or look up
// the reaction for the context (and, for binary generators, each partner
// context) and expand its products at depth-1. A binary reaction spends the
// smaller budget of its two reactants.
type generator interface {
	id() GeneratorID
	name() string
	respond(n *Network, f *Feature, ctx Context, depth int)
}

type genBase struct {
	gid   GeneratorID
	gname string
}

func (g *genBase) id() GeneratorID { return g.gid }
func (g *genBase) name() string    { return g.gname }

func (n *Network) register(g generator) {
	n.generators = append(n.generators, g)
}

func (n *Network) nextGeneratorID() GeneratorID {
	return GeneratorID(len(n.generators))
}

func lessContextKey(a, b contextKey) bool {
	if a.species != b.species {
		return a.species < b.species
	}
	if a.a != b.a {
		return a.a < b.a
	}
	return a.b < b.b
}

// dimerizeGen binds a free left site to a free right site of two species.
type dimerizeGen struct {
	genBase
	left, right *Feature
	rates       *extrap.Dimer
}

func (g *dimerizeGen) respond(n *Network, f *Feature, ctx Context, depth int) {
	if f == g.left {
		count := len(g.right.contexts)
		for i := 0; i < count; i++ {
			g.bind(n, ctx, g.right.contexts[i], depth)
		}
	}
	if f == g.right && g.right != g.left {
		count := len(g.left.contexts)
		for i := 0; i < count; i++ {
			g.bind(n, g.left.contexts[i], ctx, depth)
		}
	}
}

func (g *dimerizeGen) bind(n *Network, l, r Context, depth int) {
	kl, kr := l.key(FeatureSite), r.key(FeatureSite)
	if g.left == g.right && lessContextKey(kr, kl) {
		l, r = r, l
		kl, kr = kr, kl
	}
	rx, _ := n.lookupOrAdd(reactionKey{gen: g.gid, x: kl, y: kr}, func() *Reaction {
		ls, rs := n.species[l.Species], n.species[r.Species]
		joined, off := n.families[ls.Family].Paradigm.Join(n.families[rs.Family].Paradigm)
		joined.Bindings = append(joined.Bindings, plex.Binding{
			Left:  l.Site,
			Right: plex.SiteRef{Mol: r.Site.Mol + off, Site: r.Site.Site},
		})
		states := make([]plex.StateID, 0, len(ls.Params)+len(rs.Params))
		states = append(states, ls.Params...)
		states = append(states, rs.Params...)
		product := n.Intern(joined, states)

		rate := g.rates.OnRate(
			extrap.Side{Shape: ls.Shapes[l.Site.Mol][l.Site.Site], Weight: ls.Weight},
			extrap.Side{Shape: rs.Shapes[r.Site.Mol][r.Site.Site], Weight: rs.Weight},
		)
		var reactants []Term
		reactants = addTerm(reactants, l.Species, 1)
		reactants = addTerm(reactants, r.Species, 1)
		return &Reaction{
			Generator: g.gid,
			Reactants: reactants,
			Products:  []Term{{Species: product, Count: 1}},
			Rate:      rate,
		}
	})
	n.expandProducts(rx, min(depth, n.species[l.Species].expanded, n.species[r.Species].expanded))
}

// decomposeGen breaks one bond, yielding one product (a ring opened) or two.
type decomposeGen struct {
	genBase
	feature *Feature
	left    siteKey
	rates   *extrap.Dimer
}

func (g *decomposeGen) respond(n *Network, f *Feature, ctx Context, depth int) {
	key := reactionKey{gen: g.gid, x: ctx.key(FeatureBinding), y: noContext}
	rx, _ := n.lookupOrAdd(key, func() *Reaction {
		sp := n.species[ctx.Species]
		paradigm := n.families[sp.Family].Paradigm
		b := paradigm.Bindings[ctx.Binding]
		lsite, rsite := b.Left, b.Right
		if (siteKey{mol: paradigm.Mols[lsite.Mol], site: lsite.Site}) != g.left {
			lsite, rsite = rsite, lsite
		}
		rate := g.rates.OffRate(sp.Shapes[lsite.Mol][lsite.Site], sp.Shapes[rsite.Mol][rsite.Site])

		var products []Term
		for _, c := range plex.Split(paradigm, ctx.Binding) {
			states := make([]plex.StateID, len(c.Origin))
			for i, o := range c.Origin {
				states[i] = sp.Params[o]
			}
			products = addTerm(products, n.Intern(c.Plex, states), 1)
		}
		return &Reaction{
			Generator: g.gid,
			Reactants: []Term{{Species: ctx.Species, Count: 1}},
			Products:  products,
			Rate:      rate,
		}
	})
	n.expandProducts(rx, depth)
}

// partners are the optional extra reactant and product of an exchange
// rule, fixed once species are declared.
type partners struct {
	reactant    SpeciesID
	product     SpeciesID
	hasReactant bool
	hasProduct  bool
}

func (p partners) apply(reactants, products []Term) ([]Term, []Term) {
	if p.hasReactant {
		reactants = addTerm(reactants, p.reactant, 1)
	}
	if p.hasProduct {
		products = addTerm(products, p.product, 1)
	}
	return reactants, products
}

// exchangeGen rewrites the modifications of one mol of a given type.
type exchangeGen struct {
	genBase
	feature   *Feature
	requires  []plex.ModSetting
	exchanges []plex.ModSetting
	rate      *extrap.Exchange
	extra     partners
}

func (g *exchangeGen) respond(n *Network, f *Feature, ctx Context, depth int) {
	sp := n.species[ctx.Species]
	state := sp.Params[ctx.Mol]
	if !n.cat.Satisfies(state, g.requires) {
		return
	}
	next := n.cat.WithMods(state, g.exchanges)
	if next == state {
		return
	}
	key := reactionKey{gen: g.gid, x: ctx.key(FeatureMol), y: noContext}
	rx, _ := n.lookupOrAdd(key, func() *Reaction {
		params := append([]plex.StateID(nil), sp.Params...)
		params[ctx.Mol] = next
		product := n.member(n.families[sp.Family], params)
		reactants, products := g.extra.apply(
			[]Term{{Species: ctx.Species, Count: 1}},
			[]Term{{Species: product, Count: 1}},
		)
		return &Reaction{
			Generator: g.gid,
			Reactants: reactants,
			Products:  products,
			Rate:      g.rate.Rate(sp.Weight),
		}
	})
	n.expandProducts(rx, depth)
}

// omniExchangeGen rewrites the target mol of an omniplex occurrence: its
// modifications, and optionally its mol type.
type omniExchangeGen struct {
	genBase
	omni       *Omniplex
	target     int
	requires   []plex.ModSetting
	exchanges  []plex.ModSetting
	substitute plex.MolID
	hasSubst   bool
	rate       *extrap.Exchange
	extra      partners
}

func (g *omniExchangeGen) respond(n *Network, f *Feature, ctx Context, depth int) {
	sp := n.species[ctx.Species]
	fam := n.families[sp.Family]
	inj := g.injection(n, fam, ctx.Injection)
	t := inj.Forward[g.target]
	state := sp.Params[t]
	if !n.cat.Satisfies(state, g.requires) {
		return
	}
	next := state
	if g.hasSubst {
		next = n.cat.InternState(g.substitute, n.cat.State(state).Mods)
	}
	next = n.cat.WithMods(next, g.exchanges)
	if next == state {
		return
	}

	key := reactionKey{gen: g.gid, x: contextKey{species: ctx.Species, a: t, b: -1}, y: noContext}
	rx, _ := n.lookupOrAdd(key, func() *Reaction {
		params := append([]plex.StateID(nil), sp.Params...)
		params[t] = next
		var product SpeciesID
		if g.hasSubst {
			p := fam.Paradigm.Clone()
			p.Mols[t] = g.substitute
			product = n.Intern(p, params)
		} else {
			product = n.member(fam, params)
		}
		reactants, products := g.extra.apply(
			[]Term{{Species: ctx.Species, Count: 1}},
			[]Term{{Species: product, Count: 1}},
		)
		return &Reaction{
			Generator: g.gid,
			Reactants: reactants,
			Products:  products,
			Rate:      g.rate.Rate(sp.Weight),
		}
	})
	n.expandProducts(rx, depth)
}

// injection finds the occurrence a context refers to among the family's
// attachments to this generator's omniplex.
func (g *omniExchangeGen) injection(n *Network, fam *Family, k int) plex.Iso {
	for _, a := range fam.attachments {
		if a.omni == g.omni && a.loc.Injection == k {
			return a.inj
		}
	}
	panic(&InvariantError{Code: ErrCodeUnknownSpecies, Message: "omniplex occurrence missing from family"})
}
