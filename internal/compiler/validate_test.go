package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plexsim/internal/ir"
	"github.com/roach88/plexsim/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// =============================================================================
// Valid Models
// =============================================================================

func TestValidateFixtureModels(t *testing.T) {
	models := map[string]*ir.ModelSpec{
		"dimer":       testutil.DimerModel(1, 1, 1, 1, 2),
		"chain":       testutil.ChainModel(1),
		"polymer":     testutil.PolymerModel(10, 2),
		"kinase":      testutil.KinaseModel(1),
		"omni":        testutil.OmniModel(1),
		"birth_death": testutil.BirthDeathModel(1, 1),
	}
	for name, spec := range models {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Validate(spec))
		})
	}
}

// =============================================================================
// Declarations
// =============================================================================

func TestValidateDuplicates(t *testing.T) {
	spec := testutil.KinaseModel(1)
	spec.Mols = append(spec.Mols, ir.MolSpec{Name: "K", Weight: 1})
	spec.Modifications = append(spec.Modifications, ir.ModificationSpec{Name: "phos"})
	spec.Species = append(spec.Species, ir.SpeciesSpec{Name: "ATP", Complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "ATP"}}}})
	spec.Rules = append(spec.Rules, spec.Rules[0])

	errs := Validate(spec)
	assert.ElementsMatch(t, []string{ErrDuplicateMol, ErrDuplicateModification, ErrDuplicateSpecies, ErrDuplicateName}, codes(errs))
}

func TestValidateMolDeclarations(t *testing.T) {
	spec := &ir.ModelSpec{
		Modifications: []ir.ModificationSpec{{Name: "none"}},
		Mols: []ir.MolSpec{{
			Name:     "S",
			Weight:   -1,
			Sites:    []ir.SiteSpec{{Name: "a", Shapes: []string{"x"}, DefaultShape: "y"}, {Name: "a"}},
			ModSites: []ir.ModSiteSpec{{Name: "p", Default: "phos"}},
			Allostery: []ir.AllosterySpec{{
				Mods:   []ir.ModAssignment{{Site: "q", Mod: "none"}},
				Shapes: []ir.ShapeAssignment{{Site: "a", Shape: "z"}, {Site: "b", Shape: "x"}},
			}},
		}},
	}

	errs := Validate(spec)
	assert.ElementsMatch(t, []string{
		ErrInvalidWeight,
		ErrUnknownSite,    // default shape y
		ErrDuplicateName,  // site a twice
		ErrUnknownMod,     // default phos
		ErrUnknownModSite, // allostery q
		ErrUnknownSite,    // shape z
		ErrUnknownSite,    // site b
	}, codes(errs))
}

// =============================================================================
// Complexes
// =============================================================================

func TestValidateComplexes(t *testing.T) {
	base := func() *ir.ModelSpec { return testutil.ChainModel(1) }
	bind := func(l, ls, r, rs string) ir.BindingSpec {
		return ir.BindingSpec{Left: ir.SiteRefSpec{Mol: l, Site: ls}, Right: ir.SiteRefSpec{Mol: r, Site: rs}}
	}

	tests := []struct {
		name    string
		complex ir.ComplexSpec
		want    []string
	}{
		{
			name:    "empty",
			complex: ir.ComplexSpec{},
			want:    []string{ErrMalformedComplex},
		},
		{
			name:    "unknown mol",
			complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "Z"}}},
			want:    []string{ErrUnknownMol},
		},
		{
			name:    "duplicate label",
			complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "A"}, {Mol: "A"}}},
			want:    []string{ErrMalformedComplex, ErrMalformedComplex},
		},
		{
			name:    "disconnected",
			complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{Mol: "A"}, {Mol: "C"}}},
			want:    []string{ErrMalformedComplex},
		},
		{
			name: "unknown site",
			complex: ir.ComplexSpec{
				Mols:     []ir.MolInstanceSpec{{Mol: "A"}, {Mol: "B"}},
				Bindings: []ir.BindingSpec{bind("A", "x", "B", "l")},
			},
			want: []string{ErrUnknownSite, ErrMalformedComplex},
		},
		{
			name: "site bound twice",
			complex: ir.ComplexSpec{
				Mols: []ir.MolInstanceSpec{{Mol: "A"}, {Label: "b1", Mol: "B"}, {Label: "b2", Mol: "B"}},
				Bindings: []ir.BindingSpec{
					bind("A", "r", "b1", "l"),
					bind("A", "r", "b2", "l"),
				},
			},
			want: []string{ErrMalformedComplex, ErrMalformedComplex},
		},
		{
			name: "self binding",
			complex: ir.ComplexSpec{
				Mols:     []ir.MolInstanceSpec{{Mol: "B"}},
				Bindings: []ir.BindingSpec{bind("B", "l", "B", "r")},
			},
			want: []string{ErrMalformedComplex},
		},
		{
			name: "bad mods",
			complex: ir.ComplexSpec{Mols: []ir.MolInstanceSpec{{
				Mol:  "A",
				Mods: []ir.ModAssignment{{Site: "q", Mod: "phos"}, {Site: "p", Mod: "sulf"}},
			}}},
			want: []string{ErrUnknownModSite, ErrUnknownMod},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base()
			spec.Species = append(spec.Species, ir.SpeciesSpec{Name: "X", Complex: tt.complex})
			assert.ElementsMatch(t, tt.want, codes(Validate(spec)))
		})
	}
}

func TestValidateNegativePopulation(t *testing.T) {
	spec := testutil.DimerModel(-1, 1, 1, 1, 1)
	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidPopulation, errs[0].Code)
	assert.Equal(t, "species[0].population", errs[0].Field)
}

func TestValidateOmniplex(t *testing.T) {
	spec := testutil.OmniModel(1)
	spec.Omniplexes[0].FreeSites = []ir.SiteRefSpec{{Mol: "rec", Site: "l"}, {Mol: "nope", Site: "l"}}
	spec.Omniplexes[0].Shapes = []ir.OmniShapeSpec{{Mol: "lig", Site: "r", Shape: "open"}}

	assert.ElementsMatch(t, []string{ErrMalformedComplex, ErrMalformedComplex, ErrUnknownSite}, codes(Validate(spec)))
}

// =============================================================================
// Rules
// =============================================================================

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name string
		edit func(spec *ir.ModelSpec)
		want []string
	}{
		{
			name: "unknown kind",
			edit: func(s *ir.ModelSpec) { s.Rules[0].Kind = "catalyze" },
			want: []string{ErrMalformedRule},
		},
		{
			name: "missing site",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Left = nil },
			want: []string{ErrMalformedRule},
		},
		{
			name: "unknown dimerize site",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Right = &ir.SiteRefSpec{Mol: "S", Site: "tail"} },
			want: []string{ErrUnknownSite},
		},
		{
			name: "unknown shape",
			edit: func(s *ir.ModelSpec) { s.Rules[2].ShapeRates[0].RightShape = "ajar" },
			want: []string{ErrUnknownSite},
		},
		{
			name: "negative and NaN rates",
			edit: func(s *ir.ModelSpec) {
				s.Rules[0].Rate = -1
				s.Rules[2].OffRate = math.NaN()
			},
			want: []string{ErrInvalidRate, ErrInvalidRate},
		},
		{
			name: "unknown partner species",
			edit: func(s *ir.ModelSpec) { s.Rules[0].AdditionalProduct = "AMP" },
			want: []string{ErrUnknownSpecies},
		},
		{
			name: "nothing exchanged",
			edit: func(s *ir.ModelSpec) { s.Rules[1].Exchanges = nil },
			want: []string{ErrMalformedRule},
		},
		{
			name: "unknown exchange mod",
			edit: func(s *ir.ModelSpec) { s.Rules[1].Exchanges[0].Mod = "sulf" },
			want: []string{ErrUnknownMod},
		},
		{
			name: "unknown extrapolation",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Extrapolation = "linear" },
			want: []string{ErrMalformedRule},
		},
		{
			name: "unknown mol",
			edit: func(s *ir.ModelSpec) { s.Rules[1].Mol = "T" },
			want: []string{ErrUnknownMol},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testutil.KinaseModel(1)
			tt.edit(spec)
			assert.ElementsMatch(t, tt.want, codes(Validate(spec)))
		})
	}
}

func TestValidateOmniRules(t *testing.T) {
	tests := []struct {
		name string
		edit func(spec *ir.ModelSpec)
		want []string
	}{
		{
			name: "unknown omniplex",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Omniplex = "free_receptor" },
			want: []string{ErrUnknownOmniplex},
		},
		{
			name: "unknown target",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Target = "R" },
			want: []string{ErrMalformedRule},
		},
		{
			name: "incompatible substitute",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Substitute = "L" },
			want: []string{ErrMalformedRule},
		},
		{
			name: "nothing to do",
			edit: func(s *ir.ModelSpec) { s.Rules[2].Substitute = "" },
			want: []string{ErrMalformedRule},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testutil.OmniModel(1)
			tt.edit(spec)
			assert.ElementsMatch(t, tt.want, codes(Validate(spec)))
		})
	}
}

// =============================================================================
// Reactions and Run Settings
// =============================================================================

func TestValidateReactions(t *testing.T) {
	spec := testutil.BirthDeathModel(1, 1)
	spec.Reactions = append(spec.Reactions,
		ir.ReactionSpec{Name: "birth", Products: []ir.StoichSpec{{Species: "X"}}, Rate: 1},
		ir.ReactionSpec{Name: "void", Rate: 1},
		ir.ReactionSpec{Name: "ghost", Reactants: []ir.StoichSpec{{Species: "Y", Count: -2}}, Rate: math.Inf(1)},
	)

	assert.ElementsMatch(t, []string{
		ErrDuplicateName,
		ErrMalformedRule,
		ErrUnknownSpecies,
		ErrMalformedRule,
		ErrInvalidRate,
	}, codes(Validate(spec)))
}

func TestValidateRunSettings(t *testing.T) {
	spec := testutil.DimerModel(1, 1, 1, 1, -1)
	spec.Run.StopTime = -5
	spec.Run.Volume = math.NaN()
	spec.Run.SampleInterval = -1
	spec.Run.MaxEvents = -1
	spec.Run.Method = "tau"
	spec.Run.HighSensitivity = 0.5
	spec.Run.LowSensitivity = 2

	errs := Validate(spec)
	require.Len(t, errs, 8)
	for _, e := range errs {
		assert.Equal(t, ErrInvalidRun, e.Code, e.Field)
	}
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Field: "rules[0].rate", Message: "bad", Code: ErrInvalidRate}
	assert.Equal(t, "[E121] rules[0].rate: bad", err.Error())
}
