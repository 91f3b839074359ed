package plex

// Component is one connected piece of a plex after a binding is removed.
// Origin[i] is the index, in the original plex, of component mol i.
type Component struct {
	Plex   Plex
	Origin []int
}

// Split removes binding bi and returns the resulting connected components:
// one if the binding closed a cycle, two otherwise. The component holding
// the binding's left mol comes first. Mols keep their relative order.
func Split(p Plex, bi int) []Component {
	b := p.Bindings[bi]
	leftSide := p.reach(b.Left.Mol, bi)
	if leftSide[b.Right.Mol] {
		return []Component{p.extract(leftSide, bi)}
	}
	rightSide := make([]bool, len(p.Mols))
	for i, in := range leftSide {
		rightSide[i] = !in
	}
	return []Component{p.extract(leftSide, bi), p.extract(rightSide, bi)}
}

// extract builds the sub-plex induced by the selected mols, dropping
// binding skip.
func (p Plex) extract(selected []bool, skip int) Component {
	index := make([]int, len(p.Mols))
	var c Component
	for i, in := range selected {
		index[i] = -1
		if !in {
			continue
		}
		index[i] = len(c.Origin)
		c.Origin = append(c.Origin, i)
		c.Plex.Mols = append(c.Plex.Mols, p.Mols[i])
	}
	for i, b := range p.Bindings {
		if i == skip || !selected[b.Left.Mol] {
			continue
		}
		c.Plex.Bindings = append(c.Plex.Bindings, Binding{
			Left:  SiteRef{Mol: index[b.Left.Mol], Site: b.Left.Site},
			Right: SiteRef{Mol: index[b.Right.Mol], Site: b.Right.Site},
		})
	}
	return c
}
