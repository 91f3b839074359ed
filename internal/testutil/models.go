package testutil

import (
	"github.com/roach88/plexsim/internal/ir"
)

// FixedSeed is the seed deterministic tests run with.
const FixedSeed uint64 = 42

// Depth returns a pointer for RunSpec.Depth.
func Depth(d int) *int {
	return &d
}

func site(mol, name string) *ir.SiteRefSpec {
	return &ir.SiteRefSpec{Mol: mol, Site: name}
}

func single(mol string) ir.ComplexSpec {
	return ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: mol}}}
}

// DimerModel is the A + B <-> AB model: two mol types with one free site
// each and one binding rule with its implied unbinding.
func DimerModel(popA, popB int64, on, off float64, depth int) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "dimer",
		Mols: []ir.MolSpec{
			{Name: "A", Weight: 100, Sites: []ir.SiteSpec{{Name: "s"}}},
			{Name: "B", Weight: 50, Sites: []ir.SiteSpec{{Name: "s"}}},
		},
		Rules: []ir.RuleSpec{{
			Name:    "bind",
			Kind:    ir.RuleDimerize,
			Left:    site("A", "s"),
			Right:   site("B", "s"),
			OnRate:  on,
			OffRate: off,
		}},
		Species: []ir.SpeciesSpec{
			{Name: "A", Complex: single("A"), Population: popA},
			{Name: "B", Complex: single("B"), Population: popB},
		},
		Run: ir.RunSpec{
			StopTime: 10,
			Depth:    Depth(depth),
			Seed:     FixedSeed,
		},
	}
}

// ChainModel declares the linear chain A-B-C (A.r binds B.l, B.r binds
// C.l) as an explicit species, with both binding rules. A carries a
// modification site so parameter carry-over through unbinding is visible.
func ChainModel(depth int) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name:          "chain",
		Modifications: []ir.ModificationSpec{{Name: "none"}, {Name: "phos", Weight: 80}},
		Mols: []ir.MolSpec{
			{
				Name:     "A",
				Weight:   100,
				Sites:    []ir.SiteSpec{{Name: "r"}},
				ModSites: []ir.ModSiteSpec{{Name: "p", Default: "none"}},
			},
			{Name: "B", Weight: 60, Sites: []ir.SiteSpec{{Name: "l"}, {Name: "r"}}},
			{
				Name:     "C",
				Weight:   40,
				Sites:    []ir.SiteSpec{{Name: "l"}},
				ModSites: []ir.ModSiteSpec{{Name: "p", Default: "none"}},
			},
		},
		Rules: []ir.RuleSpec{
			{Name: "ab", Kind: ir.RuleDimerize, Left: site("A", "r"), Right: site("B", "l"), OnRate: 1, OffRate: 2},
			{Name: "bc", Kind: ir.RuleDimerize, Left: site("B", "r"), Right: site("C", "l"), OnRate: 1, OffRate: 3},
		},
		Species: []ir.SpeciesSpec{{
			Name: "ABC",
			Complex: ir.ComplexSpec{
				Mols: []ir.MolInstanceSpec{
					{Mol: "A", Mods: []ir.ModAssignment{{Site: "p", Mod: "phos"}}},
					{Mol: "B"},
					{Mol: "C", Mods: []ir.ModAssignment{{Site: "p", Mod: "phos"}}},
				},
				Bindings: []ir.BindingSpec{
					{Left: ir.SiteRefSpec{Mol: "A", Site: "r"}, Right: ir.SiteRefSpec{Mol: "B", Site: "l"}},
					{Left: ir.SiteRefSpec{Mol: "B", Site: "r"}, Right: ir.SiteRefSpec{Mol: "C", Site: "l"}},
				},
			},
			Population: 10,
		}},
		Run: ir.RunSpec{StopTime: 5, Depth: Depth(depth), Seed: FixedSeed},
	}
}

// PolymerModel is a single mol type whose tail binds its head, so the
// rule closure is unbounded and only the depth limits generation.
func PolymerModel(pop int64, depth int) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "polymer",
		Mols: []ir.MolSpec{
			{Name: "M", Weight: 10, Sites: []ir.SiteSpec{{Name: "head"}, {Name: "tail"}}},
		},
		Rules: []ir.RuleSpec{{
			Name:    "grow",
			Kind:    ir.RuleDimerize,
			Left:    site("M", "tail"),
			Right:   site("M", "head"),
			OnRate:  1,
			OffRate: 0.1,
		}},
		Species: []ir.SpeciesSpec{{Name: "M", Complex: single("M"), Population: pop}},
		Run:     ir.RunSpec{StopTime: 1, Depth: Depth(depth), Seed: FixedSeed},
	}
}

// KinaseModel phosphorylates S, consuming ATP and releasing ADP, and
// dephosphorylates it unimolecularly. A kinase K binds S only when S is
// phosphorylated, through allostery on S's docking site.
func KinaseModel(depth int) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name:          "kinase",
		Modifications: []ir.ModificationSpec{{Name: "none"}, {Name: "phos", Weight: 80}},
		Mols: []ir.MolSpec{
			{
				Name:     "S",
				Weight:   200,
				Sites:    []ir.SiteSpec{{Name: "dock", Shapes: []string{"closed", "open"}, DefaultShape: "closed"}},
				ModSites: []ir.ModSiteSpec{{Name: "y", Default: "none"}},
				Allostery: []ir.AllosterySpec{{
					Mods:   []ir.ModAssignment{{Site: "y", Mod: "phos"}},
					Shapes: []ir.ShapeAssignment{{Site: "dock", Shape: "open"}},
				}},
			},
			{Name: "K", Weight: 300, Sites: []ir.SiteSpec{{Name: "sh2"}}},
			{Name: "ATP", Weight: 507},
			{Name: "ADP", Weight: 427},
		},
		Rules: []ir.RuleSpec{
			{
				Name:               "phosphorylate",
				Kind:               ir.RuleModExchange,
				Mol:                "S",
				Requires:           []ir.ModAssignment{{Site: "y", Mod: "none"}},
				Exchanges:          []ir.ModAssignment{{Site: "y", Mod: "phos"}},
				Rate:               2,
				AdditionalReactant: "ATP",
				AdditionalProduct:  "ADP",
			},
			{
				Name:      "dephosphorylate",
				Kind:      ir.RuleModExchange,
				Mol:       "S",
				Requires:  []ir.ModAssignment{{Site: "y", Mod: "phos"}},
				Exchanges: []ir.ModAssignment{{Site: "y", Mod: "none"}},
				Rate:      1,
			},
			{
				Name:    "dock",
				Kind:    ir.RuleDimerize,
				Left:    site("K", "sh2"),
				Right:   site("S", "dock"),
				OnRate:  0,
				OffRate: 5,
				ShapeRates: []ir.ShapeRateSpec{
					{LeftShape: "default", RightShape: "open", OnRate: 4, OffRate: 0.5},
				},
			},
		},
		Species: []ir.SpeciesSpec{
			{Name: "S", Complex: single("S"), Population: 20},
			{Name: "K", Complex: single("K"), Population: 5},
			{Name: "ATP", Complex: single("ATP"), Population: 100},
			{Name: "ADP", Complex: single("ADP"), Population: 0},
		},
		Run: ir.RunSpec{StopTime: 2, Depth: Depth(depth), Seed: FixedSeed},
	}
}

// OmniModel activates R only while it is bound to L: the omniplex is the
// L-R complex, and its rule substitutes R with the active form Ra.
func OmniModel(depth int) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "receptor",
		Mols: []ir.MolSpec{
			{Name: "L", Weight: 20, Sites: []ir.SiteSpec{{Name: "r"}}},
			{Name: "R", Weight: 150, Sites: []ir.SiteSpec{{Name: "l"}}},
			{Name: "Ra", Weight: 150, Sites: []ir.SiteSpec{{Name: "l"}}},
		},
		Omniplexes: []ir.OmniplexSpec{{
			Name: "bound_receptor",
			Complex: ir.ComplexSpec{
				Mols: []ir.MolInstanceSpec{{Label: "lig", Mol: "L"}, {Label: "rec", Mol: "R"}},
				Bindings: []ir.BindingSpec{{
					Left:  ir.SiteRefSpec{Mol: "lig", Site: "r"},
					Right: ir.SiteRefSpec{Mol: "rec", Site: "l"},
				}},
			},
		}},
		Rules: []ir.RuleSpec{
			{Name: "ligate", Kind: ir.RuleDimerize, Left: site("L", "r"), Right: site("R", "l"), OnRate: 1, OffRate: 1},
			{Name: "ligate_active", Kind: ir.RuleDimerize, Left: site("L", "r"), Right: site("Ra", "l"), OnRate: 1, OffRate: 1},
			{Name: "activate", Kind: ir.RuleOmniExchange, Omniplex: "bound_receptor", Target: "rec", Substitute: "Ra", Rate: 3},
		},
		Species: []ir.SpeciesSpec{
			{Name: "L", Complex: single("L"), Population: 10},
			{Name: "R", Complex: single("R"), Population: 10},
		},
		Run: ir.RunSpec{StopTime: 2, Depth: Depth(depth), Seed: FixedSeed},
	}
}

// BirthDeathModel has only explicit reactions: a zero-order source of X
// and first-order decay of X.
func BirthDeathModel(birth, death float64) *ir.ModelSpec {
	return &ir.ModelSpec{
		Name: "birth_death",
		Mols: []ir.MolSpec{{Name: "X", Weight: 1}},
		Species: []ir.SpeciesSpec{
			{Name: "X", Complex: single("X"), Population: 0},
		},
		Reactions: []ir.ReactionSpec{
			{Name: "birth", Products: []ir.StoichSpec{{Species: "X", Count: 1}}, Rate: birth},
			{Name: "death", Reactants: []ir.StoichSpec{{Species: "X", Count: 1}}, Rate: death},
		},
		Run: ir.RunSpec{StopTime: 20, Depth: Depth(1), Seed: FixedSeed},
	}
}
