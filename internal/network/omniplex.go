package network

import (
	"github.com/roach88/plexsim/internal/plex"
)

type omniShape struct {
	mol, site, shape int
}

// Omniplex is a complex pattern with required modifications and sites that
// must be free. Every occurrence of the pattern in a family is a context of
// the omniplex feature; occurrences whose state requirements fail are
// rejected per species.
type Omniplex struct {
	Name    string
	Pattern plex.Plex
	Labels  []string

	required [][]plex.ModSetting
	free     []plex.SiteRef
	shapes   []omniShape
	feature  *Feature
}

// Label returns the pattern instance index of a label.
func (o *Omniplex) Label(label string) (int, bool) {
	for i, l := range o.Labels {
		if l == label {
			return i, true
		}
	}
	return -1, false
}

// occurrences returns every injection of the pattern into paradigm whose
// required-free sites are unbound there.
func (o *Omniplex) occurrences(paradigm plex.Plex) []plex.Iso {
	var out []plex.Iso
	for _, inj := range plex.FindInjections(o.Pattern, paradigm) {
		ok := true
		for _, s := range o.free {
			if _, bound := paradigm.BindingAt(inj.MapSite(s)); bound {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, inj)
		}
	}
	return out
}

// accepts checks the pattern's modification requirements against the
// parameters of a species.
func (o *Omniplex) accepts(cat *plex.Catalog, params []plex.StateID, inj plex.Iso) bool {
	for j, req := range o.required {
		if len(req) == 0 {
			continue
		}
		if !cat.Satisfies(params[inj.Forward[j]], req) {
			return false
		}
	}
	return true
}

// applyShapes overrides site shapes of the mols covered by an accepted
// occurrence. Shape slices are shared with the catalog cache, so they are
// copied before the first write.
func (o *Omniplex) applyShapes(sp *Species, inj plex.Iso) {
	for _, s := range o.shapes {
		m := inj.Forward[s.mol]
		row := append([]int(nil), sp.Shapes[m]...)
		row[s.site] = s.shape
		sp.Shapes[m] = row
	}
}
