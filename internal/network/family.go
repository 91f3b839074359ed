package network

import (
	"strconv"
	"strings"

	"github.com/roach88/plexsim/internal/plex"
)

// Family is the set of species sharing one complex structure. Its paradigm
// fixes the mol order every member's parameters follow.
type Family struct {
	ID       FamilyID
	Paradigm plex.Plex

	attachments []attachment
	members     map[string]SpeciesID
	order       []SpeciesID
}

// Members returns the family's species in creation order.
func (f *Family) Members() []SpeciesID {
	return f.order
}

func paramsKey(params []plex.StateID) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(p)))
	}
	return b.String()
}

// newFamily is the Classifier's create callback. It records, once, every
// feature the paradigm exhibits. Features no rule reacts on are skipped.
func (n *Network) newFamily(paradigm plex.Plex) FamilyID {
	fam := &Family{
		ID:       FamilyID(len(n.families)),
		Paradigm: paradigm,
		members:  make(map[string]SpeciesID),
	}

	for _, ref := range paradigm.FreeSites(n.cat) {
		if f, ok := n.siteFeatures[siteKey{mol: paradigm.Mols[ref.Mol], site: ref.Site}]; ok {
			fam.attachments = append(fam.attachments, attachment{feature: f, loc: Context{Site: ref}})
		}
	}
	for i, b := range paradigm.Bindings {
		k := newBindingKey(
			siteKey{mol: paradigm.Mols[b.Left.Mol], site: b.Left.Site},
			siteKey{mol: paradigm.Mols[b.Right.Mol], site: b.Right.Site},
		)
		if f, ok := n.bindingFeatures[k]; ok {
			fam.attachments = append(fam.attachments, attachment{feature: f, loc: Context{Binding: i}})
		}
	}
	for i, mol := range paradigm.Mols {
		if f, ok := n.molFeatures[mol]; ok {
			fam.attachments = append(fam.attachments, attachment{feature: f, loc: Context{Mol: i}})
		}
	}
	for _, o := range n.omniplexes {
		for k, inj := range o.occurrences(paradigm) {
			fam.attachments = append(fam.attachments, attachment{
				feature: o.feature,
				loc:     Context{Injection: k, Mol: -1},
				omni:    o,
				inj:     inj,
			})
		}
	}

	n.families = append(n.families, fam)
	n.logger.Debug("family created",
		"family_id", fam.ID,
		"mols", len(paradigm.Mols),
		"bindings", len(paradigm.Bindings),
		"attachments", len(fam.attachments))
	n.observer.FamilyAdded(fam)
	return fam.ID
}

// member returns the species of fam with the given parameters (paradigm
// order), creating it on first use. A new species is offered to each of the
// family's attachments; accepted ones become its contexts, which are
// registered with their features when the species is first expanded.
func (n *Network) member(fam *Family, params []plex.StateID) SpeciesID {
	key := paramsKey(params)
	if id, ok := fam.members[key]; ok {
		return id
	}

	sp := &Species{
		ID:     SpeciesID(len(n.species)),
		Family: fam.ID,
		Params: append([]plex.StateID(nil), params...),
		Shapes: make([][]int, len(params)),
	}
	sp.Tag = "sp" + strconv.Itoa(int(sp.ID))
	for i, p := range params {
		sp.Weight += n.cat.StateWeight(p)
		sp.Shapes[i] = n.cat.SiteShapes(p)
	}

	for _, a := range fam.attachments {
		if a.omni != nil && !a.omni.accepts(n.cat, params, a.inj) {
			continue
		}
		if a.omni != nil {
			a.omni.applyShapes(sp, a.inj)
		}
		ctx := a.loc
		ctx.Species = sp.ID
		sp.contexts = append(sp.contexts, boundContext{feature: a.feature, ctx: ctx})
	}

	sp.Name = n.uniqueName(n.cat.Name(fam.Paradigm, params), sp.Tag)
	n.names[sp.Name] = sp.ID
	n.species = append(n.species, sp)
	fam.members[key] = sp.ID
	fam.order = append(fam.order, sp.ID)

	n.logger.Debug("species created",
		"species_id", sp.ID,
		"family_id", fam.ID,
		"name", sp.Name,
		"contexts", len(sp.contexts))
	n.observer.SpeciesAdded(sp)
	return sp.ID
}

func (n *Network) uniqueName(name, tag string) string {
	if _, taken := n.names[name]; !taken {
		return name
	}
	return name + "#" + tag
}
