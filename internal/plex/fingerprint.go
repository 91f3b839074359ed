package plex

import (
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"slices"
)

// Fingerprint is a relabeling-invariant hash of a plex. Isomorphic plexes
// always share a fingerprint; the converse needs the explicit search.
type Fingerprint uint64

type molSig struct {
	mol    MolID
	degree int
}

type bindingSig struct {
	lMol  MolID
	lSite int
	rMol  MolID
	rSite int
}

// FingerprintOf hashes the mol-type multiset with per-mol degree, and the
// multiset of bound (mol type, site) pairs with each pair normalized.
func FingerprintOf(p Plex) Fingerprint {
	mols := make([]molSig, len(p.Mols))
	for i, m := range p.Mols {
		mols[i] = molSig{mol: m}
	}
	binds := make([]bindingSig, len(p.Bindings))
	for i, b := range p.Bindings {
		mols[b.Left.Mol].degree++
		mols[b.Right.Mol].degree++
		l := bindingSig{lMol: p.Mols[b.Left.Mol], lSite: b.Left.Site, rMol: p.Mols[b.Right.Mol], rSite: b.Right.Site}
		if l.rMol < l.lMol || (l.rMol == l.lMol && l.rSite < l.lSite) {
			l.lMol, l.rMol = l.rMol, l.lMol
			l.lSite, l.rSite = l.rSite, l.lSite
		}
		binds[i] = l
	}
	slices.SortFunc(mols, func(a, b molSig) int {
		if c := cmp.Compare(a.mol, b.mol); c != 0 {
			return c
		}
		return cmp.Compare(a.degree, b.degree)
	})
	slices.SortFunc(binds, func(a, b bindingSig) int {
		return cmp.Or(
			cmp.Compare(a.lMol, b.lMol),
			cmp.Compare(a.lSite, b.lSite),
			cmp.Compare(a.rMol, b.rMol),
			cmp.Compare(a.rSite, b.rSite),
		)
	})

	h := fnv.New64a()
	var buf [8]byte
	put := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	put(int64(len(mols)))
	for _, m := range mols {
		put(int64(m.mol))
		put(int64(m.degree))
	}
	put(int64(len(binds)))
	for _, b := range binds {
		put(int64(b.lMol))
		put(int64(b.lSite))
		put(int64(b.rMol))
		put(int64(b.rSite))
	}
	return Fingerprint(h.Sum64())
}
