package plex

import "slices"

// Iso is a structure-preserving map from a source plex into a target plex.
//
// Forward[i] is the target mol that source mol i maps to. Backward[j] is
// the source mol mapped onto target mol j, or -1. Bindings[k] is the target
// binding that source binding k maps to. For an isomorphism every entry of
// Backward is set.
type Iso struct {
	Forward  []int
	Backward []int
	Bindings []int
}

// Identity returns the identity Iso on p.
func Identity(p Plex) Iso {
	iso := Iso{
		Forward:  make([]int, len(p.Mols)),
		Backward: make([]int, len(p.Mols)),
		Bindings: make([]int, len(p.Bindings)),
	}
	for i := range p.Mols {
		iso.Forward[i] = i
		iso.Backward[i] = i
	}
	for i := range p.Bindings {
		iso.Bindings[i] = i
	}
	return iso
}

// MapSite translates a source site into target coordinates.
func (iso Iso) MapSite(s SiteRef) SiteRef {
	return SiteRef{Mol: iso.Forward[s.Mol], Site: s.Site}
}

// FindIso searches for an isomorphism from src onto dst. Both plexes must
// be connected. The search is exhaustive: it fails only when no bijection
// exists.
func FindIso(src, dst Plex) (Iso, bool) {
	if len(src.Mols) != len(dst.Mols) || len(src.Bindings) != len(dst.Bindings) {
		return Iso{}, false
	}
	var found Iso
	ok := false
	search(src, dst, true, func(iso Iso) bool {
		found = iso
		ok = true
		return false
	})
	return found, ok
}

// FindInjections enumerates every structure-preserving injection of a
// connected pattern into target, in search order. Automorphic images of
// the pattern are all returned; callers deduplicate as their semantics
// require.
func FindInjections(pattern, target Plex) []Iso {
	var out []Iso
	search(pattern, target, false, func(iso Iso) bool {
		out = append(out, iso)
		return true
	})
	return out
}

// search runs the binding-by-binding backtracking search. visit receives a
// copy of each complete map and returns false to stop. exact requires mol
// degrees to match, as an isomorphism does; an injection only needs the
// target mol to have at least the pattern mol's bindings.
func search(src, dst Plex, exact bool, visit func(Iso) bool) {
	st := &searchState{
		src:   src,
		dst:   dst,
		exact: exact,
		iso: Iso{
			Forward:  filled(len(src.Mols)),
			Backward: filled(len(dst.Mols)),
			Bindings: filled(len(src.Bindings)),
		},
		order:          bindingOrder(src),
		srcDegree:      degrees(src),
		dstDegree:      degrees(dst),
		dstSite:        siteIndex(dst),
		dstBindingUsed: make([]bool, len(dst.Bindings)),
		visit:          visit,
	}

	if len(src.Bindings) == 0 {
		// A connected plex without bindings is a single mol.
		for j, m := range dst.Mols {
			if m != src.Mols[0] || !st.degreeFits(0, j) {
				continue
			}
			st.iso.Forward[0] = j
			st.iso.Backward[j] = 0
			if !visit(st.snapshot()) {
				return
			}
			st.iso.Forward[0] = -1
			st.iso.Backward[j] = -1
		}
		return
	}
	st.extend(0)
}

type searchState struct {
	src, dst       Plex
	exact          bool
	iso            Iso
	order          []int // source bindings, each touching an earlier one's mol
	srcDegree      []int
	dstDegree      []int
	dstSite        map[SiteRef]int // bound site -> binding index
	dstBindingUsed []bool
	visit          func(Iso) bool
	stopped        bool
}

func filled(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

// bindingOrder lists p's bindings breadth first from mol 0, so that every
// binding after the first touches a mol an earlier binding reached.
// Bindings unreachable from mol 0 follow in stored order.
func bindingOrder(p Plex) []int {
	incident := make([][]int, len(p.Mols))
	for k, b := range p.Bindings {
		incident[b.Left.Mol] = append(incident[b.Left.Mol], k)
		if b.Right.Mol != b.Left.Mol {
			incident[b.Right.Mol] = append(incident[b.Right.Mol], k)
		}
	}
	order := make([]int, 0, len(p.Bindings))
	added := make([]bool, len(p.Bindings))
	seen := make([]bool, len(p.Mols))
	queue := []int{0}
	seen[0] = true
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, k := range incident[m] {
			if added[k] {
				continue
			}
			added[k] = true
			order = append(order, k)
			b := p.Bindings[k]
			for _, other := range [2]int{b.Left.Mol, b.Right.Mol} {
				if !seen[other] {
					seen[other] = true
					queue = append(queue, other)
				}
			}
		}
	}
	for k := range p.Bindings {
		if !added[k] {
			order = append(order, k)
		}
	}
	return order
}

func degrees(p Plex) []int {
	d := make([]int, len(p.Mols))
	for _, b := range p.Bindings {
		d[b.Left.Mol]++
		d[b.Right.Mol]++
	}
	return d
}

func siteIndex(p Plex) map[SiteRef]int {
	idx := make(map[SiteRef]int, 2*len(p.Bindings))
	for k, b := range p.Bindings {
		idx[b.Left] = k
		idx[b.Right] = k
	}
	return idx
}

func (st *searchState) snapshot() Iso {
	return Iso{
		Forward:  slices.Clone(st.iso.Forward),
		Backward: slices.Clone(st.iso.Backward),
		Bindings: slices.Clone(st.iso.Bindings),
	}
}

// extend maps the k-th source binding in search order and recurses. When
// one end is already mapped, the only candidate is the target binding on
// the mapped site, since a site holds at most one binding. Otherwise every
// unused target binding is tried in both orientations.
func (st *searchState) extend(k int) {
	if st.stopped {
		return
	}
	if k == len(st.order) {
		if !st.visit(st.snapshot()) {
			st.stopped = true
		}
		return
	}
	sk := st.order[k]
	sb := st.src.Bindings[sk]

	if fwd := st.iso.Forward[sb.Left.Mol]; fwd >= 0 {
		site := SiteRef{Mol: fwd, Site: sb.Left.Site}
		if j, ok := st.dstSite[site]; ok && !st.dstBindingUsed[j] {
			st.try(k, sk, j, site, st.dst.Bindings[j].Partner(site))
		}
		return
	}
	if fwd := st.iso.Forward[sb.Right.Mol]; fwd >= 0 {
		site := SiteRef{Mol: fwd, Site: sb.Right.Site}
		if j, ok := st.dstSite[site]; ok && !st.dstBindingUsed[j] {
			st.try(k, sk, j, st.dst.Bindings[j].Partner(site), site)
		}
		return
	}

	for j, db := range st.dst.Bindings {
		if st.dstBindingUsed[j] {
			continue
		}
		st.try(k, sk, j, db.Left, db.Right)
		if st.stopped {
			return
		}
		st.try(k, sk, j, db.Right, db.Left)
		if st.stopped {
			return
		}
	}
}

// try maps source binding sk onto target binding j, its left site onto
// left and its right site onto right, then continues with binding k+1.
func (st *searchState) try(k, sk, j int, left, right SiteRef) {
	sb := st.src.Bindings[sk]
	if !st.canMapSite(sb.Left, left) {
		return
	}
	newLeft := st.mapMol(sb.Left.Mol, left.Mol)
	if !st.canMapSite(sb.Right, right) {
		if newLeft {
			st.unmapMol(sb.Left.Mol, left.Mol)
		}
		return
	}
	newRight := st.mapMol(sb.Right.Mol, right.Mol)
	st.dstBindingUsed[j] = true
	st.iso.Bindings[sk] = j

	st.extend(k + 1)

	st.iso.Bindings[sk] = -1
	st.dstBindingUsed[j] = false
	if newRight {
		st.unmapMol(sb.Right.Mol, right.Mol)
	}
	if newLeft {
		st.unmapMol(sb.Left.Mol, left.Mol)
	}
}

// canMapSite checks that s may map onto d: same site index, same mol type,
// compatible degrees, and the mol maps agree in both directions.
func (st *searchState) canMapSite(s, d SiteRef) bool {
	if s.Site != d.Site {
		return false
	}
	if st.src.Mols[s.Mol] != st.dst.Mols[d.Mol] {
		return false
	}
	fwd := st.iso.Forward[s.Mol]
	if fwd >= 0 {
		return fwd == d.Mol
	}
	return st.iso.Backward[d.Mol] < 0 && st.degreeFits(s.Mol, d.Mol)
}

func (st *searchState) degreeFits(s, d int) bool {
	if st.exact {
		return st.srcDegree[s] == st.dstDegree[d]
	}
	return st.srcDegree[s] <= st.dstDegree[d]
}

// mapMol records s -> d and reports whether the pair was new.
func (st *searchState) mapMol(s, d int) bool {
	if st.iso.Forward[s] >= 0 {
		return false
	}
	st.iso.Forward[s] = d
	st.iso.Backward[d] = s
	return true
}

func (st *searchState) unmapMol(s, d int) {
	st.iso.Forward[s] = -1
	st.iso.Backward[d] = -1
}
