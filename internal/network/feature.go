package network

import (
	"github.com/roach88/plexsim/internal/plex"
)

// FeatureKind distinguishes the structural motifs a rule can react on.
type FeatureKind uint8

const (
	// FeatureSite is a free binding site of one mol type.
	FeatureSite FeatureKind = iota
	// FeatureBinding is a bond between two (mol type, site) pairs.
	FeatureBinding
	// FeatureMol is any instance of one mol type.
	FeatureMol
	// FeatureOmniplex is an occurrence of an omniplex pattern.
	FeatureOmniplex
)

func (k FeatureKind) String() string {
	switch k {
	case FeatureSite:
		return "site"
	case FeatureBinding:
		return "binding"
	case FeatureMol:
		return "mol"
	case FeatureOmniplex:
		return "omniplex"
	default:
		return "unknown"
	}
}

type siteKey struct {
	mol  plex.MolID
	site int
}

func (a siteKey) less(b siteKey) bool {
	if a.mol != b.mol {
		return a.mol < b.mol
	}
	return a.site < b.site
}

// bindingKey is an unordered pair of site keys, stored with lo <= hi.
type bindingKey struct {
	lo, hi siteKey
}

func newBindingKey(a, b siteKey) bindingKey {
	if b.less(a) {
		a, b = b, a
	}
	return bindingKey{lo: a, hi: b}
}

// Context is one occurrence of a feature in one species. Which location
// fields are meaningful depends on the feature kind: Site for site
// features, Binding for binding features, Mol for mol features, and
// Injection (an index into the family's occurrences of the omniplex) for
// omniplex features.
type Context struct {
	Species   SpeciesID
	Site      plex.SiteRef
	Binding   int
	Mol       int
	Injection int
}

func (c Context) key(kind FeatureKind) contextKey {
	switch kind {
	case FeatureSite:
		return contextKey{species: c.Species, a: c.Site.Mol, b: c.Site.Site}
	case FeatureBinding:
		return contextKey{species: c.Species, a: c.Binding, b: -1}
	default:
		return contextKey{species: c.Species, a: c.Mol, b: -1}
	}
}

// Feature is a structural motif with the contexts of every expanded
// species exhibiting it and the generators reacting on it.
type Feature struct {
	Kind     FeatureKind
	Name     string
	contexts []Context
	gens     []generator
}

// Contexts returns the registered contexts in registration order.
func (f *Feature) Contexts() []Context {
	return f.contexts
}

func (f *Feature) attach(g generator) {
	for _, existing := range f.gens {
		if existing == g {
			return
		}
	}
	f.gens = append(f.gens, g)
}

// attachment is a (feature, location) pair recorded on a family when it is
// created. The location is a Context template with Species unset.
type attachment struct {
	feature *Feature
	loc     Context
	omni    *Omniplex
	inj     plex.Iso
}

// boundContext is an accepted attachment of a concrete species.
type boundContext struct {
	feature *Feature
	ctx     Context
}

func (n *Network) siteFeature(mol plex.MolID, site int) *Feature {
	k := siteKey{mol: mol, site: site}
	if f, ok := n.siteFeatures[k]; ok {
		return f
	}
	mt := n.cat.Mol(mol)
	f := &Feature{Kind: FeatureSite, Name: mt.Name + "." + mt.Sites[site].Name}
	n.siteFeatures[k] = f
	return f
}

func (n *Network) bindingFeature(a, b siteKey) *Feature {
	k := newBindingKey(a, b)
	if f, ok := n.bindingFeatures[k]; ok {
		return f
	}
	lo, hi := n.cat.Mol(k.lo.mol), n.cat.Mol(k.hi.mol)
	f := &Feature{
		Kind: FeatureBinding,
		Name: lo.Name + "." + lo.Sites[k.lo.site].Name + "~" + hi.Name + "." + hi.Sites[k.hi.site].Name,
	}
	n.bindingFeatures[k] = f
	return f
}

func (n *Network) molFeature(mol plex.MolID) *Feature {
	if f, ok := n.molFeatures[mol]; ok {
		return f
	}
	f := &Feature{Kind: FeatureMol, Name: n.cat.Mol(mol).Name}
	n.molFeatures[mol] = f
	return f
}
