package plex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MolID identifies a mol type in a Catalog.
type MolID int32

// ModID identifies a modification value in a Catalog.
type ModID int32

// StateID identifies an interned (mol type, modification vector) pair.
// It is the per-instance parameter of a species.
type StateID int32

// Load-time lookup errors. Callers wrap them with the offending name.
var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrUnknownMol    = errors.New("unknown mol")
	ErrUnknownSite   = errors.New("unknown site")
	ErrUnknownMod    = errors.New("unknown modification")
	ErrUnknownShape  = errors.New("unknown shape")
)

// Site is a binding site with its possible shapes.
type Site struct {
	Name         string
	Shapes       []string
	DefaultShape int
}

// ModSite is a modification site with its default modification.
type ModSite struct {
	Name    string
	Default ModID
}

// ModSetting assigns a modification to a modification site (by index).
type ModSetting struct {
	Site int
	Mod  ModID
}

// ShapeSetting assigns a shape (by index) to a binding site (by index).
type ShapeSetting struct {
	Site  int
	Shape int
}

// AlloRule changes site shapes when a mol carries every listed modification.
type AlloRule struct {
	Mods   []ModSetting
	Shapes []ShapeSetting
}

// MolType is an immutable mol definition.
type MolType struct {
	ID        MolID
	Name      string
	Weight    float64
	Sites     []Site
	ModSites  []ModSite
	Allostery []AlloRule
}

// SiteIndex returns the index of the named binding site.
func (m *MolType) SiteIndex(name string) (int, bool) {
	name = norm.NFC.String(name)
	for i, s := range m.Sites {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ModSiteIndex returns the index of the named modification site.
func (m *MolType) ModSiteIndex(name string) (int, bool) {
	name = norm.NFC.String(name)
	for i, s := range m.ModSites {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ShapeIndex returns the index of a shape name on the given site.
func (m *MolType) ShapeIndex(site int, shape string) (int, bool) {
	shape = norm.NFC.String(shape)
	for i, s := range m.Sites[site].Shapes {
		if s == shape {
			return i, true
		}
	}
	return -1, false
}

// Modification is an interned modification value.
type Modification struct {
	ID     ModID
	Name   string
	Weight float64
}

// MolState is the modification vector of one mol instance.
type MolState struct {
	Mol  MolID
	Mods []ModID
}

// Catalog owns mol types, modifications and interned mol states.
//
// Not safe for concurrent use; the simulator is single-threaded.
type Catalog struct {
	mols     []*MolType
	molIndex map[string]MolID

	mods     []Modification
	modIndex map[string]ModID

	states     []MolState
	stateIndex map[string]StateID
	shapeCache map[StateID][]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		molIndex:   make(map[string]MolID),
		modIndex:   make(map[string]ModID),
		stateIndex: make(map[string]StateID),
		shapeCache: make(map[StateID][]int),
	}
}

// AddModification registers a modification value.
func (c *Catalog) AddModification(name string, weight float64) (ModID, error) {
	name = norm.NFC.String(name)
	if _, ok := c.modIndex[name]; ok {
		return 0, fmt.Errorf("modification %q: %w", name, ErrDuplicateName)
	}
	id := ModID(len(c.mods))
	c.mods = append(c.mods, Modification{ID: id, Name: name, Weight: weight})
	c.modIndex[name] = id
	return id, nil
}

// AddMol registers a mol type. The ID field of m is assigned.
func (c *Catalog) AddMol(m MolType) (MolID, error) {
	m.Name = norm.NFC.String(m.Name)
	if _, ok := c.molIndex[m.Name]; ok {
		return 0, fmt.Errorf("mol %q: %w", m.Name, ErrDuplicateName)
	}
	m.ID = MolID(len(c.mols))
	c.mols = append(c.mols, &m)
	c.molIndex[m.Name] = m.ID
	return m.ID, nil
}

// Mol returns the mol type for id.
func (c *Catalog) Mol(id MolID) *MolType {
	return c.mols[id]
}

// MolByName looks up a mol type.
func (c *Catalog) MolByName(name string) (*MolType, bool) {
	id, ok := c.molIndex[norm.NFC.String(name)]
	if !ok {
		return nil, false
	}
	return c.mols[id], true
}

// NumMols returns the number of registered mol types.
func (c *Catalog) NumMols() int {
	return len(c.mols)
}

// Mod returns the modification for id.
func (c *Catalog) Mod(id ModID) Modification {
	return c.mods[id]
}

// ModByName looks up a modification.
func (c *Catalog) ModByName(name string) (ModID, bool) {
	id, ok := c.modIndex[norm.NFC.String(name)]
	return id, ok
}

// InternState returns the StateID for (mol, mods), creating it on first
// use. len(mods) must equal the mol's modification site count.
func (c *Catalog) InternState(mol MolID, mods []ModID) StateID {
	m := c.mols[mol]
	if len(mods) != len(m.ModSites) {
		panic(fmt.Sprintf("plex: mol %s has %d mod sites, got %d mods", m.Name, len(m.ModSites), len(mods)))
	}
	key := stateKey(mol, mods)
	if id, ok := c.stateIndex[key]; ok {
		return id
	}
	id := StateID(len(c.states))
	c.states = append(c.states, MolState{Mol: mol, Mods: append([]ModID(nil), mods...)})
	c.stateIndex[key] = id
	return id
}

func stateKey(mol MolID, mods []ModID) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(mol)))
	for _, m := range mods {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(m)))
	}
	return b.String()
}

// State returns the interned state. The Mods slice must not be modified.
func (c *Catalog) State(id StateID) MolState {
	return c.states[id]
}

// DefaultState returns the state of mol with every site at its default.
func (c *Catalog) DefaultState(mol MolID) StateID {
	m := c.mols[mol]
	mods := make([]ModID, len(m.ModSites))
	for i, ms := range m.ModSites {
		mods[i] = ms.Default
	}
	return c.InternState(mol, mods)
}

// WithMods returns the state obtained from id by applying settings.
func (c *Catalog) WithMods(id StateID, settings []ModSetting) StateID {
	st := c.states[id]
	mods := append([]ModID(nil), st.Mods...)
	for _, s := range settings {
		mods[s.Site] = s.Mod
	}
	return c.InternState(st.Mol, mods)
}

// Satisfies reports whether the state carries every required setting.
func (c *Catalog) Satisfies(id StateID, required []ModSetting) bool {
	st := c.states[id]
	for _, r := range required {
		if st.Mods[r.Site] != r.Mod {
			return false
		}
	}
	return true
}

// StateWeight is the mol weight plus the weights of its modifications.
func (c *Catalog) StateWeight(id StateID) float64 {
	st := c.states[id]
	w := c.mols[st.Mol].Weight
	for _, m := range st.Mods {
		w += c.mods[m].Weight
	}
	return w
}

// SiteShapes returns the shape index of every binding site of a mol in the
// given state: defaults first, then each matching allostery rule in order.
// The returned slice is shared and must not be modified.
func (c *Catalog) SiteShapes(id StateID) []int {
	if shapes, ok := c.shapeCache[id]; ok {
		return shapes
	}
	m := c.mols[c.states[id].Mol]
	shapes := make([]int, len(m.Sites))
	for i, s := range m.Sites {
		shapes[i] = s.DefaultShape
	}
	for _, rule := range m.Allostery {
		if !c.Satisfies(id, rule.Mods) {
			continue
		}
		for _, s := range rule.Shapes {
			shapes[s.Site] = s.Shape
		}
	}
	c.shapeCache[id] = shapes
	return shapes
}
