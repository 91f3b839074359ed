package plex

import (
	"fmt"
	"strconv"

	"github.com/roach88/plexsim/internal/ir"
)

// Resolved is a ComplexSpec translated into catalog terms. Mods holds only
// the modifications set explicitly in the description, per instance.
type Resolved struct {
	Plex   Plex
	Labels []string
	Mods   [][]ModSetting
}

// LabelIndex returns the instance index for a label.
func (r Resolved) LabelIndex(label string) (int, bool) {
	for i, l := range r.Labels {
		if l == label {
			return i, true
		}
	}
	return -1, false
}

// Site resolves a (label, site name) reference inside the complex.
func (r Resolved) Site(cat *Catalog, ref ir.SiteRefSpec) (SiteRef, error) {
	i, ok := r.LabelIndex(ref.Mol)
	if !ok {
		return SiteRef{}, fmt.Errorf("instance %q: %w", ref.Mol, ErrUnknownMol)
	}
	s, ok := cat.Mol(r.Plex.Mols[i]).SiteIndex(ref.Site)
	if !ok {
		return SiteRef{}, fmt.Errorf("site %s.%s: %w", ref.Mol, ref.Site, ErrUnknownSite)
	}
	return SiteRef{Mol: i, Site: s}, nil
}

// States returns one state per instance: the mol's defaults overridden by
// the explicit modifications.
func (r Resolved) States(cat *Catalog) []StateID {
	states := make([]StateID, len(r.Plex.Mols))
	for i, mol := range r.Plex.Mols {
		states[i] = cat.WithMods(cat.DefaultState(mol), r.Mods[i])
	}
	return states
}

// Resolve translates a ComplexSpec. Labels default to the mol name and must
// be unique; the result is checked for well-formedness.
func (c *Catalog) Resolve(spec ir.ComplexSpec) (Resolved, error) {
	var r Resolved
	for i, inst := range spec.Mols {
		mol, ok := c.MolByName(inst.Mol)
		if !ok {
			return Resolved{}, fmt.Errorf("instance %d mol %q: %w", i, inst.Mol, ErrUnknownMol)
		}
		label := inst.Label
		if label == "" {
			label = inst.Mol
		}
		if _, dup := r.LabelIndex(label); dup {
			return Resolved{}, fmt.Errorf("%w: label %q used twice", ErrMalformed, label)
		}
		mods, err := c.ResolveMods(mol, inst.Mods)
		if err != nil {
			return Resolved{}, fmt.Errorf("instance %q: %w", label, err)
		}
		r.Plex.Mols = append(r.Plex.Mols, mol.ID)
		r.Labels = append(r.Labels, label)
		r.Mods = append(r.Mods, mods)
	}
	for _, b := range spec.Bindings {
		left, err := r.Site(c, b.Left)
		if err != nil {
			return Resolved{}, err
		}
		right, err := r.Site(c, b.Right)
		if err != nil {
			return Resolved{}, err
		}
		r.Plex.Bindings = append(r.Plex.Bindings, Binding{Left: left, Right: right})
	}
	if err := r.Plex.Check(c); err != nil {
		return Resolved{}, err
	}
	return r, nil
}

// ResolveMods translates named modification assignments for one mol type.
func (c *Catalog) ResolveMods(mol *MolType, assigns []ir.ModAssignment) ([]ModSetting, error) {
	out := make([]ModSetting, 0, len(assigns))
	for _, a := range assigns {
		site, ok := mol.ModSiteIndex(a.Site)
		if !ok {
			return nil, fmt.Errorf("mod site %s.%s: %w", mol.Name, a.Site, ErrUnknownSite)
		}
		mod, ok := c.ModByName(a.Mod)
		if !ok {
			return nil, fmt.Errorf("%q: %w", a.Mod, ErrUnknownMod)
		}
		out = append(out, ModSetting{Site: site, Mod: mod})
	}
	return out, nil
}

// Describe renders a plex with its states as a ComplexSpec in plex order.
// Instances are labelled m0, m1, ... and every modification is listed, so
// Resolve(Describe(p, s)) reproduces p and s exactly.
func (c *Catalog) Describe(p Plex, states []StateID) ir.ComplexSpec {
	var spec ir.ComplexSpec
	label := func(i int) string { return "m" + strconv.Itoa(i) }
	for i, mol := range p.Mols {
		mt := c.Mol(mol)
		inst := ir.MolInstanceSpec{Label: label(i), Mol: mt.Name}
		st := c.State(states[i])
		for s, mod := range st.Mods {
			inst.Mods = append(inst.Mods, ir.ModAssignment{Site: mt.ModSites[s].Name, Mod: c.Mod(mod).Name})
		}
		spec.Mols = append(spec.Mols, inst)
	}
	for _, b := range p.Bindings {
		spec.Bindings = append(spec.Bindings, ir.BindingSpec{
			Left:  ir.SiteRefSpec{Mol: label(b.Left.Mol), Site: c.Mol(p.Mols[b.Left.Mol]).Sites[b.Left.Site].Name},
			Right: ir.SiteRefSpec{Mol: label(b.Right.Mol), Site: c.Mol(p.Mols[b.Right.Mol]).Sites[b.Right.Site].Name},
		})
	}
	return spec
}

// LoadCatalog builds a catalog from the modification and mol declarations
// of a model.
func LoadCatalog(spec *ir.ModelSpec) (*Catalog, error) {
	c := NewCatalog()
	for _, m := range spec.Modifications {
		if _, err := c.AddModification(m.Name, m.Weight); err != nil {
			return nil, err
		}
	}
	for _, ms := range spec.Mols {
		mt := MolType{Name: ms.Name, Weight: ms.Weight}
		for _, s := range ms.Sites {
			site := Site{Name: s.Name, Shapes: s.Shapes}
			if len(site.Shapes) == 0 {
				site.Shapes = []string{"default"}
			}
			if s.DefaultShape != "" {
				idx := -1
				for i, sh := range site.Shapes {
					if sh == s.DefaultShape {
						idx = i
					}
				}
				if idx < 0 {
					return nil, fmt.Errorf("mol %s site %s shape %q: %w", ms.Name, s.Name, s.DefaultShape, ErrUnknownShape)
				}
				site.DefaultShape = idx
			}
			mt.Sites = append(mt.Sites, site)
		}
		for _, s := range ms.ModSites {
			def, ok := c.ModByName(s.Default)
			if !ok {
				return nil, fmt.Errorf("mol %s mod site %s default %q: %w", ms.Name, s.Name, s.Default, ErrUnknownMod)
			}
			mt.ModSites = append(mt.ModSites, ModSite{Name: s.Name, Default: def})
		}
		for _, a := range ms.Allostery {
			mods, err := c.ResolveMods(&mt, a.Mods)
			if err != nil {
				return nil, fmt.Errorf("mol %s allostery: %w", ms.Name, err)
			}
			rule := AlloRule{Mods: mods}
			for _, sa := range a.Shapes {
				site, ok := mt.SiteIndex(sa.Site)
				if !ok {
					return nil, fmt.Errorf("mol %s allostery site %q: %w", ms.Name, sa.Site, ErrUnknownSite)
				}
				shape, ok := mt.ShapeIndex(site, sa.Shape)
				if !ok {
					return nil, fmt.Errorf("mol %s allostery shape %q: %w", ms.Name, sa.Shape, ErrUnknownShape)
				}
				rule.Shapes = append(rule.Shapes, ShapeSetting{Site: site, Shape: shape})
			}
			mt.Allostery = append(mt.Allostery, rule)
		}
		if _, err := c.AddMol(mt); err != nil {
			return nil, err
		}
	}
	return c, nil
}
