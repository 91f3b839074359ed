package network

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/plexsim/internal/extrap"
	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/plex"
)

// Load-time errors. Load wraps them with the offending declaration.
var (
	ErrInvalidRule      = errors.New("invalid rule")
	ErrInvalidRate      = errors.New("invalid rate")
	ErrUnknownSpecies   = errors.New("unknown species")
	ErrDuplicateSpecies = errors.New("duplicate species")
	ErrUnknownOmniplex  = errors.New("unknown omniplex")
)

// pendingPartners resolves additional reactant/product names after the
// declared species exist. Species must be created after all features are
// registered, so rules cannot look them up directly.
type pendingPartners struct {
	rule     string
	reactant string
	product  string
	rate     float64
	kind     extrap.Kind
	molMass  float64
	assign   func(partners, *extrap.Exchange)
}

// Load builds a network from a model: catalog, omniplexes, generators (in
// rule order), declared species, then explicit reactions. No generation
// happens until Prime or Expand is called.
func Load(spec *ir.ModelSpec, opts ...Option) (*Network, error) {
	cat, err := plex.LoadCatalog(spec)
	if err != nil {
		return nil, err
	}
	n := newNetwork(cat, opts...)

	for _, om := range spec.Omniplexes {
		o, err := n.loadOmniplex(om)
		if err != nil {
			return nil, fmt.Errorf("omniplex %q: %w", om.Name, err)
		}
		n.omniplexes = append(n.omniplexes, o)
	}

	var pending []pendingPartners
	for _, rs := range spec.Rules {
		p, err := n.loadRule(rs)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rs.Name, err)
		}
		if p != nil {
			pending = append(pending, *p)
		}
	}

	for _, ss := range spec.Species {
		if err := n.declare(ss); err != nil {
			return nil, fmt.Errorf("species %q: %w", ss.Name, err)
		}
	}

	for _, p := range pending {
		if err := n.resolvePartners(p); err != nil {
			return nil, fmt.Errorf("rule %q: %w", p.rule, err)
		}
	}

	for _, rs := range spec.Reactions {
		if err := n.loadReaction(rs); err != nil {
			return nil, fmt.Errorf("reaction %q: %w", rs.Name, err)
		}
	}

	n.logger.Debug("network loaded",
		"model", spec.Name,
		"generators", len(n.generators),
		"omniplexes", len(n.omniplexes),
		"species", len(n.species),
		"reactions", len(n.reactions))
	return n, nil
}

func (n *Network) loadOmniplex(spec ir.OmniplexSpec) (*Omniplex, error) {
	r, err := n.cat.Resolve(spec.Complex)
	if err != nil {
		return nil, err
	}
	o := &Omniplex{
		Name:     spec.Name,
		Pattern:  r.Plex,
		Labels:   r.Labels,
		required: r.Mods,
		feature:  &Feature{Kind: FeatureOmniplex, Name: spec.Name},
	}
	for _, fs := range spec.FreeSites {
		ref, err := r.Site(n.cat, fs)
		if err != nil {
			return nil, err
		}
		if _, bound := r.Plex.BindingAt(ref); bound {
			return nil, fmt.Errorf("%w: free site %s.%s is bound in the pattern", plex.ErrMalformed, fs.Mol, fs.Site)
		}
		o.free = append(o.free, ref)
	}
	for _, ss := range spec.Shapes {
		ref, err := r.Site(n.cat, ir.SiteRefSpec{Mol: ss.Mol, Site: ss.Site})
		if err != nil {
			return nil, err
		}
		shape, ok := n.cat.Mol(r.Plex.Mols[ref.Mol]).ShapeIndex(ref.Site, ss.Shape)
		if !ok {
			return nil, fmt.Errorf("shape %s.%s=%q: %w", ss.Mol, ss.Site, ss.Shape, plex.ErrUnknownShape)
		}
		o.shapes = append(o.shapes, omniShape{mol: ref.Mol, site: ref.Site, shape: shape})
	}
	return o, nil
}

func (n *Network) omniplexByName(name string) (*Omniplex, bool) {
	for _, o := range n.omniplexes {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// ruleSite resolves a rule's (mol type, site) reference.
func (n *Network) ruleSite(ref *ir.SiteRefSpec, side string) (*plex.MolType, int, error) {
	if ref == nil {
		return nil, 0, fmt.Errorf("%w: missing %s site", ErrInvalidRule, side)
	}
	mt, ok := n.cat.MolByName(ref.Mol)
	if !ok {
		return nil, 0, fmt.Errorf("%s mol %q: %w", side, ref.Mol, plex.ErrUnknownMol)
	}
	site, ok := mt.SiteIndex(ref.Site)
	if !ok {
		return nil, 0, fmt.Errorf("%s site %s.%s: %w", side, ref.Mol, ref.Site, plex.ErrUnknownSite)
	}
	return mt, site, nil
}

func checkRate(name string, v float64) error {
	if v < 0 || v != v {
		return fmt.Errorf("%w: %s=%v", ErrInvalidRate, name, v)
	}
	return nil
}

func (n *Network) loadRule(rs ir.RuleSpec) (*pendingPartners, error) {
	kind, err := extrap.ParseKind(rs.Extrapolation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	switch rs.Kind {
	case ir.RuleDimerize:
		return nil, n.loadDimerize(rs, kind)
	case ir.RuleModExchange:
		return n.loadModExchange(rs, kind)
	case ir.RuleOmniExchange:
		return n.loadOmniExchange(rs, kind)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, rs.Kind)
	}
}

func (n *Network) loadDimerize(rs ir.RuleSpec, kind extrap.Kind) error {
	lm, ls, err := n.ruleSite(rs.Left, "left")
	if err != nil {
		return err
	}
	rm, rsite, err := n.ruleSite(rs.Right, "right")
	if err != nil {
		return err
	}
	if err := checkRate("on_rate", rs.OnRate); err != nil {
		return err
	}
	if err := checkRate("off_rate", rs.OffRate); err != nil {
		return err
	}

	rates := extrap.NewDimer(kind, lm.Weight, rm.Weight, rs.OnRate, rs.OffRate)
	for _, sr := range rs.ShapeRates {
		l, ok := lm.ShapeIndex(ls, sr.LeftShape)
		if !ok {
			return fmt.Errorf("left shape %q: %w", sr.LeftShape, plex.ErrUnknownShape)
		}
		r, ok := rm.ShapeIndex(rsite, sr.RightShape)
		if !ok {
			return fmt.Errorf("right shape %q: %w", sr.RightShape, plex.ErrUnknownShape)
		}
		if err := checkRate("shape on_rate", sr.OnRate); err != nil {
			return err
		}
		if err := checkRate("shape off_rate", sr.OffRate); err != nil {
			return err
		}
		rates.SetShapeRates(l, r, sr.OnRate, sr.OffRate)
	}

	left := n.siteFeature(lm.ID, ls)
	right := n.siteFeature(rm.ID, rsite)
	bind := &dimerizeGen{
		genBase: genBase{gid: n.nextGeneratorID(), gname: rs.Name},
		left:    left,
		right:   right,
		rates:   rates,
	}
	n.register(bind)
	left.attach(bind)
	right.attach(bind)

	lk := siteKey{mol: lm.ID, site: ls}
	unbind := &decomposeGen{
		genBase: genBase{gid: n.nextGeneratorID(), gname: rs.Name + "/unbind"},
		feature: n.bindingFeature(lk, siteKey{mol: rm.ID, site: rsite}),
		left:    lk,
		rates:   rates,
	}
	n.register(unbind)
	unbind.feature.attach(unbind)
	return nil
}

func (n *Network) exchangeSettings(mt *plex.MolType, rs ir.RuleSpec) ([]plex.ModSetting, []plex.ModSetting, error) {
	requires, err := n.cat.ResolveMods(mt, rs.Requires)
	if err != nil {
		return nil, nil, fmt.Errorf("requires: %w", err)
	}
	exchanges, err := n.cat.ResolveMods(mt, rs.Exchanges)
	if err != nil {
		return nil, nil, fmt.Errorf("exchanges: %w", err)
	}
	return requires, exchanges, nil
}

func (n *Network) loadModExchange(rs ir.RuleSpec, kind extrap.Kind) (*pendingPartners, error) {
	mt, ok := n.cat.MolByName(rs.Mol)
	if !ok {
		return nil, fmt.Errorf("mol %q: %w", rs.Mol, plex.ErrUnknownMol)
	}
	if err := checkRate("rate", rs.Rate); err != nil {
		return nil, err
	}
	requires, exchanges, err := n.exchangeSettings(mt, rs)
	if err != nil {
		return nil, err
	}
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("%w: no exchanges", ErrInvalidRule)
	}
	g := &exchangeGen{
		genBase:   genBase{gid: n.nextGeneratorID(), gname: rs.Name},
		feature:   n.molFeature(mt.ID),
		requires:  requires,
		exchanges: exchanges,
		rate:      extrap.NewExchange(kind, rs.Rate, mt.Weight, 0),
	}
	n.register(g)
	g.feature.attach(g)
	return n.pending(rs, kind, mt.Weight, func(p partners, e *extrap.Exchange) {
		g.extra = p
		g.rate = e
	}), nil
}

func (n *Network) loadOmniExchange(rs ir.RuleSpec, kind extrap.Kind) (*pendingPartners, error) {
	o, ok := n.omniplexByName(rs.Omniplex)
	if !ok {
		return nil, fmt.Errorf("omniplex %q: %w", rs.Omniplex, ErrUnknownOmniplex)
	}
	target, ok := o.Label(rs.Target)
	if !ok {
		return nil, fmt.Errorf("target %q: %w", rs.Target, plex.ErrUnknownMol)
	}
	if err := checkRate("rate", rs.Rate); err != nil {
		return nil, err
	}
	mt := n.cat.Mol(o.Pattern.Mols[target])
	requires, exchanges, err := n.exchangeSettings(mt, rs)
	if err != nil {
		return nil, err
	}
	g := &omniExchangeGen{
		genBase:   genBase{gid: n.nextGeneratorID(), gname: rs.Name},
		omni:      o,
		target:    target,
		requires:  requires,
		exchanges: exchanges,
		rate:      extrap.NewExchange(kind, rs.Rate, mt.Weight, 0),
	}
	if rs.Substitute != "" {
		sub, ok := n.cat.MolByName(rs.Substitute)
		if !ok {
			return nil, fmt.Errorf("substitute %q: %w", rs.Substitute, plex.ErrUnknownMol)
		}
		if !compatible(mt, sub) {
			return nil, fmt.Errorf("%w: substitute %s must declare the same sites and mod sites as %s", ErrInvalidRule, sub.Name, mt.Name)
		}
		g.substitute = sub.ID
		g.hasSubst = true
	}
	if len(exchanges) == 0 && !g.hasSubst {
		return nil, fmt.Errorf("%w: no exchanges and no substitute", ErrInvalidRule)
	}
	n.register(g)
	o.feature.attach(g)
	return n.pending(rs, kind, mt.Weight, func(p partners, e *extrap.Exchange) {
		g.extra = p
		g.rate = e
	}), nil
}

// compatible reports whether b can replace a inside any complex: same
// binding sites and same modification sites, in order.
func compatible(a, b *plex.MolType) bool {
	siteName := func(s plex.Site) string { return s.Name }
	modName := func(s plex.ModSite) string { return s.Name }
	return slices.Equal(mapNames(a.Sites, siteName), mapNames(b.Sites, siteName)) &&
		slices.Equal(mapNames(a.ModSites, modName), mapNames(b.ModSites, modName))
}

func mapNames[T any](in []T, f func(T) string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func (n *Network) pending(rs ir.RuleSpec, kind extrap.Kind, molMass float64, assign func(partners, *extrap.Exchange)) *pendingPartners {
	if rs.AdditionalReactant == "" && rs.AdditionalProduct == "" {
		return nil
	}
	return &pendingPartners{
		rule:     rs.Name,
		reactant: rs.AdditionalReactant,
		product:  rs.AdditionalProduct,
		rate:     rs.Rate,
		kind:     kind,
		molMass:  molMass,
		assign:   assign,
	}
}

func (n *Network) resolvePartners(p pendingPartners) error {
	var pr partners
	var partnerMass float64
	if p.reactant != "" {
		id, ok := n.names[p.reactant]
		if !ok {
			return fmt.Errorf("additional reactant %q: %w", p.reactant, ErrUnknownSpecies)
		}
		pr.reactant, pr.hasReactant = id, true
		partnerMass = n.species[id].Weight
	}
	if p.product != "" {
		id, ok := n.names[p.product]
		if !ok {
			return fmt.Errorf("additional product %q: %w", p.product, ErrUnknownSpecies)
		}
		pr.product, pr.hasProduct = id, true
	}
	p.assign(pr, extrap.NewExchange(p.kind, p.rate, p.molMass, partnerMass))
	return nil
}

// declare creates an explicit species, renames it to its declared name and
// sets its initial population.
func (n *Network) declare(ss ir.SpeciesSpec) error {
	if ss.Population < 0 {
		return fmt.Errorf("%w: negative population %d", ErrInvalidRate, ss.Population)
	}
	if _, taken := n.names[ss.Name]; taken && n.isDeclared(n.names[ss.Name]) {
		return fmt.Errorf("name %q: %w", ss.Name, ErrDuplicateSpecies)
	}
	r, err := n.cat.Resolve(ss.Complex)
	if err != nil {
		return err
	}
	id := n.Intern(r.Plex, r.States(n.cat))
	if n.isDeclared(id) {
		return fmt.Errorf("%w: same complex as %q", ErrDuplicateSpecies, n.species[id].Name)
	}
	if ss.Name != "" {
		n.rename(id, ss.Name)
	}
	n.species[id].Population = ss.Population
	n.declared = append(n.declared, id)
	return nil
}

func (n *Network) isDeclared(id SpeciesID) bool {
	return slices.Contains(n.declared, id)
}

// rename gives a species a declared name. A generated species already
// holding that name is moved to its tag-suffixed form.
func (n *Network) rename(id SpeciesID, name string) {
	sp := n.species[id]
	if sp.Name == name {
		return
	}
	if other, taken := n.names[name]; taken {
		o := n.species[other]
		o.Name = name + "#" + o.Tag
		n.names[o.Name] = other
	}
	delete(n.names, sp.Name)
	sp.Name = name
	n.names[name] = id
}

func (n *Network) stoich(terms []ir.StoichSpec) ([]Term, error) {
	var out []Term
	for _, t := range terms {
		id, ok := n.names[t.Species]
		if !ok {
			return nil, fmt.Errorf("%q: %w", t.Species, ErrUnknownSpecies)
		}
		count := t.Count
		if count == 0 {
			count = 1
		}
		if count < 0 {
			return nil, fmt.Errorf("%w: count %d for %q", ErrInvalidRule, t.Count, t.Species)
		}
		out = addTerm(out, id, count)
	}
	return out, nil
}

func (n *Network) loadReaction(rs ir.ReactionSpec) error {
	if err := checkRate("rate", rs.Rate); err != nil {
		return err
	}
	reactants, err := n.stoich(rs.Reactants)
	if err != nil {
		return fmt.Errorf("reactant %w", err)
	}
	products, err := n.stoich(rs.Products)
	if err != nil {
		return fmt.Errorf("product %w", err)
	}
	n.addReaction(&Reaction{
		Name:      rs.Name,
		Generator: NoGenerator,
		Reactants: reactants,
		Products:  products,
		Rate:      rs.Rate,
	})
	return nil
}
