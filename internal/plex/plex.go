package plex

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned by Check for structurally invalid plexes.
var ErrMalformed = errors.New("malformed complex")

// SiteRef addresses a binding site of a mol instance inside a Plex.
type SiteRef struct {
	Mol  int
	Site int
}

// Less orders site refs by mol index, then site index.
func (s SiteRef) Less(o SiteRef) bool {
	if s.Mol != o.Mol {
		return s.Mol < o.Mol
	}
	return s.Site < o.Site
}

// Binding joins two sites of two distinct mol instances.
type Binding struct {
	Left  SiteRef
	Right SiteRef
}

// Partner returns the site bound to s. s must be one end of b.
func (b Binding) Partner(s SiteRef) SiteRef {
	if b.Left == s {
		return b.Right
	}
	return b.Left
}

// Plex is a complex graph: mol instances by type plus bindings.
// Plex values are transient; recognized complexes live on as paradigms.
type Plex struct {
	Mols     []MolID
	Bindings []Binding
}

// Clone returns a deep copy.
func (p Plex) Clone() Plex {
	return Plex{
		Mols:     append([]MolID(nil), p.Mols...),
		Bindings: append([]Binding(nil), p.Bindings...),
	}
}

// Join returns the disjoint union of p and q. Mol indices of q are shifted
// by len(p.Mols), which is also returned.
func (p Plex) Join(q Plex) (Plex, int) {
	offset := len(p.Mols)
	out := p.Clone()
	out.Mols = append(out.Mols, q.Mols...)
	for _, b := range q.Bindings {
		out.Bindings = append(out.Bindings, Binding{
			Left:  SiteRef{Mol: b.Left.Mol + offset, Site: b.Left.Site},
			Right: SiteRef{Mol: b.Right.Mol + offset, Site: b.Right.Site},
		})
	}
	return out, offset
}

// BindingAt returns the index of the binding that occupies site, if any.
func (p Plex) BindingAt(site SiteRef) (int, bool) {
	for i, b := range p.Bindings {
		if b.Left == site || b.Right == site {
			return i, true
		}
	}
	return -1, false
}

// FreeSites lists unbound sites in (mol, site) order.
func (p Plex) FreeSites(cat *Catalog) []SiteRef {
	bound := p.boundSet()
	var free []SiteRef
	for i, mol := range p.Mols {
		for s := range cat.Mol(mol).Sites {
			ref := SiteRef{Mol: i, Site: s}
			if !bound[ref] {
				free = append(free, ref)
			}
		}
	}
	return free
}

func (p Plex) boundSet() map[SiteRef]bool {
	bound := make(map[SiteRef]bool, 2*len(p.Bindings))
	for _, b := range p.Bindings {
		bound[b.Left] = true
		bound[b.Right] = true
	}
	return bound
}

// adjacency lists, per mol, the indices of the bindings touching it.
func (p Plex) adjacency() [][]int {
	adj := make([][]int, len(p.Mols))
	for i, b := range p.Bindings {
		adj[b.Left.Mol] = append(adj[b.Left.Mol], i)
		adj[b.Right.Mol] = append(adj[b.Right.Mol], i)
	}
	return adj
}

// Connected reports whether every mol is reachable from mol 0.
func (p Plex) Connected() bool {
	if len(p.Mols) == 0 {
		return false
	}
	seen := p.reach(0, -1)
	for _, ok := range seen {
		if !ok {
			return false
		}
	}
	return true
}

// reach marks mols reachable from start without crossing binding skip.
func (p Plex) reach(start, skip int) []bool {
	adj := p.adjacency()
	seen := make([]bool, len(p.Mols))
	seen[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, bi := range adj[m] {
			if bi == skip {
				continue
			}
			b := p.Bindings[bi]
			other := b.Left.Mol
			if other == m {
				other = b.Right.Mol
			}
			if !seen[other] {
				seen[other] = true
				queue = append(queue, other)
			}
		}
	}
	return seen
}

// Check validates indices, single occupancy of sites and connectivity.
func (p Plex) Check(cat *Catalog) error {
	if len(p.Mols) == 0 {
		return fmt.Errorf("%w: no mols", ErrMalformed)
	}
	for i, m := range p.Mols {
		if int(m) < 0 || int(m) >= cat.NumMols() {
			return fmt.Errorf("%w: mol %d has unknown type %d", ErrMalformed, i, m)
		}
	}
	used := make(map[SiteRef]bool, 2*len(p.Bindings))
	for i, b := range p.Bindings {
		for _, ref := range []SiteRef{b.Left, b.Right} {
			if ref.Mol < 0 || ref.Mol >= len(p.Mols) {
				return fmt.Errorf("%w: binding %d references mol %d", ErrMalformed, i, ref.Mol)
			}
			if ref.Site < 0 || ref.Site >= len(cat.Mol(p.Mols[ref.Mol]).Sites) {
				return fmt.Errorf("%w: binding %d references site %d of mol %d", ErrMalformed, i, ref.Site, ref.Mol)
			}
			if used[ref] {
				return fmt.Errorf("%w: site %d of mol %d bound twice", ErrMalformed, ref.Site, ref.Mol)
			}
			used[ref] = true
		}
		if b.Left.Mol == b.Right.Mol {
			return fmt.Errorf("%w: binding %d joins mol %d to itself", ErrMalformed, i, b.Left.Mol)
		}
	}
	if !p.Connected() {
		return fmt.Errorf("%w: not connected", ErrMalformed)
	}
	return nil
}

// mustCheck panics when p is malformed. Recognition has no error path:
// a malformed input is a defect in the caller.
func (p Plex) mustCheck(cat *Catalog) {
	if err := p.Check(cat); err != nil {
		panic(fmt.Sprintf("plex: %v", err))
	}
}
