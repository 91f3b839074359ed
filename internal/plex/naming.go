package plex

import (
	"strconv"
	"strings"
)

// Name renders a readable, structure-unique name for a plex in a given
// state vector, e.g. "A[s!1].B{p=phos}[s!1]". Only non-default
// modifications are listed. Names are stable for a fixed paradigm order,
// which is what species naming relies on.
func (c *Catalog) Name(p Plex, states []StateID) string {
	bonds := make(map[SiteRef]int, 2*len(p.Bindings))
	for i, b := range p.Bindings {
		bonds[b.Left] = i + 1
		bonds[b.Right] = i + 1
	}
	var b strings.Builder
	for i, mol := range p.Mols {
		if i > 0 {
			b.WriteByte('.')
		}
		mt := c.Mol(mol)
		b.WriteString(mt.Name)

		st := c.State(states[i])
		first := true
		for s, mod := range st.Mods {
			if mod == mt.ModSites[s].Default {
				continue
			}
			if first {
				b.WriteByte('{')
				first = false
			} else {
				b.WriteByte(',')
			}
			b.WriteString(mt.ModSites[s].Name)
			b.WriteByte('=')
			b.WriteString(c.Mod(mod).Name)
		}
		if !first {
			b.WriteByte('}')
		}

		first = true
		for s := range mt.Sites {
			bond, ok := bonds[SiteRef{Mol: i, Site: s}]
			if !ok {
				continue
			}
			if first {
				b.WriteByte('[')
				first = false
			} else {
				b.WriteByte(',')
			}
			b.WriteString(mt.Sites[s].Name)
			b.WriteByte('!')
			b.WriteString(strconv.Itoa(bond))
		}
		if !first {
			b.WriteByte(']')
		}
	}
	return b.String()
}
