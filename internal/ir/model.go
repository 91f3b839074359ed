package ir

// ModelSpec is a compiled model definition.
//
// Slices keep declaration order. Rule and omniplex order matters: families
// attach features in omniplex order and generators are registered in rule
// order, which fixes catalog insertion order and therefore replay order.
type ModelSpec struct {
	Name          string             `json:"name"`
	Modifications []ModificationSpec `json:"modifications,omitempty"`
	Mols          []MolSpec          `json:"mols"`
	Omniplexes    []OmniplexSpec     `json:"omniplexes,omitempty"`
	Rules         []RuleSpec         `json:"rules,omitempty"`
	Species       []SpeciesSpec      `json:"species"`
	Reactions     []ReactionSpec     `json:"reactions,omitempty"`
	Run           RunSpec            `json:"run"`
}

// ModificationSpec declares a modification value (e.g. "phos", "none").
type ModificationSpec struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight,omitempty"`
}

// MolSpec declares a mol type.
type MolSpec struct {
	Name      string          `json:"name"`
	Weight    float64         `json:"weight"`
	Sites     []SiteSpec      `json:"sites,omitempty"`
	ModSites  []ModSiteSpec   `json:"mod_sites,omitempty"`
	Allostery []AllosterySpec `json:"allostery,omitempty"`
}

// SiteSpec declares a binding site. An empty Shapes list means the site has
// the single shape "default".
type SiteSpec struct {
	Name         string   `json:"name"`
	Shapes       []string `json:"shapes,omitempty"`
	DefaultShape string   `json:"default_shape,omitempty"`
}

// ModSiteSpec declares a modification site with its default modification.
type ModSiteSpec struct {
	Name    string `json:"name"`
	Default string `json:"default"`
}

// AllosterySpec maps a modification state to binding-site shapes. A mol
// whose modifications include every entry of Mods takes the listed shapes.
// Later entries override earlier ones.
type AllosterySpec struct {
	Mods   []ModAssignment   `json:"mods"`
	Shapes []ShapeAssignment `json:"shapes"`
}

// ModAssignment sets one modification site to one modification.
type ModAssignment struct {
	Site string `json:"site"`
	Mod  string `json:"mod"`
}

// ShapeAssignment sets one binding site to one shape.
type ShapeAssignment struct {
	Site  string `json:"site"`
	Shape string `json:"shape"`
}

// ComplexSpec describes a connected complex by mol instances and bindings.
type ComplexSpec struct {
	Mols     []MolInstanceSpec `json:"mols"`
	Bindings []BindingSpec     `json:"bindings,omitempty"`
}

// MolInstanceSpec is one mol instance inside a complex. Label defaults to
// the mol name and must be unique within the complex. Mods override the mol
// type's default modifications.
type MolInstanceSpec struct {
	Label string          `json:"label,omitempty"`
	Mol   string          `json:"mol"`
	Mods  []ModAssignment `json:"mods,omitempty"`
}

// BindingSpec binds two sites of two distinct instances.
type BindingSpec struct {
	Left  SiteRefSpec `json:"left"`
	Right SiteRefSpec `json:"right"`
}

// SiteRefSpec names a site by instance label (or mol type name, inside rule
// definitions) and site name.
type SiteRefSpec struct {
	Mol  string `json:"mol"`
	Site string `json:"site"`
}

// OmniplexSpec is a structural pattern whose occurrences in complexes enable
// omni rules. Modifications on pattern instances are required states; the
// pattern itself matches structurally.
type OmniplexSpec struct {
	Name      string          `json:"name"`
	Complex   ComplexSpec     `json:"complex"`
	FreeSites []SiteRefSpec   `json:"free_sites,omitempty"`
	Shapes    []OmniShapeSpec `json:"shapes,omitempty"`
}

// OmniShapeSpec overrides the shape of a pattern site in every species that
// contains the omniplex in the required state.
type OmniShapeSpec struct {
	Mol   string `json:"mol"`
	Site  string `json:"site"`
	Shape string `json:"shape"`
}

// RuleKind discriminates RuleSpec variants.
type RuleKind string

const (
	// RuleDimerize binds two free sites; its unbinding inverse is implied.
	RuleDimerize RuleKind = "dimerize"
	// RuleModExchange rewrites modifications on a single mol.
	RuleModExchange RuleKind = "mod_exchange"
	// RuleOmniExchange rewrites modifications on, or substitutes the type
	// of, the target instance of an omniplex.
	RuleOmniExchange RuleKind = "omni_exchange"
)

// Extrapolation policy names.
const (
	ExtrapolateNone = "none"
	ExtrapolateMass = "mass"
)

// RuleSpec is a tagged variant over the rule kinds. Fields not used by Kind
// are left zero.
type RuleSpec struct {
	Name string   `json:"name"`
	Kind RuleKind `json:"kind"`

	// Dimerize.
	Left          *SiteRefSpec    `json:"left,omitempty"`
	Right         *SiteRefSpec    `json:"right,omitempty"`
	OnRate        float64         `json:"on_rate,omitempty"`
	OffRate       float64         `json:"off_rate,omitempty"`
	ShapeRates    []ShapeRateSpec `json:"shape_rates,omitempty"`
	Extrapolation string          `json:"extrapolation,omitempty"`

	// Mod exchange (Mol) and omni exchange (Omniplex + Target).
	Mol                string          `json:"mol,omitempty"`
	Omniplex           string          `json:"omniplex,omitempty"`
	Target             string          `json:"target,omitempty"`
	Requires           []ModAssignment `json:"requires,omitempty"`
	Exchanges          []ModAssignment `json:"exchanges,omitempty"`
	Substitute         string          `json:"substitute,omitempty"`
	Rate               float64         `json:"rate,omitempty"`
	AdditionalReactant string          `json:"additional_reactant,omitempty"`
	AdditionalProduct  string          `json:"additional_product,omitempty"`
}

// ShapeRateSpec overrides a dimerize rule's rates for one shape pair.
type ShapeRateSpec struct {
	LeftShape  string  `json:"left_shape"`
	RightShape string  `json:"right_shape"`
	OnRate     float64 `json:"on_rate"`
	OffRate    float64 `json:"off_rate"`
}

// SpeciesSpec declares an explicit species with its initial population.
type SpeciesSpec struct {
	Name       string      `json:"name"`
	Complex    ComplexSpec `json:"complex"`
	Population int64       `json:"population"`
}

// ReactionSpec declares an explicit reaction among named species.
type ReactionSpec struct {
	Name      string       `json:"name"`
	Reactants []StoichSpec `json:"reactants,omitempty"`
	Products  []StoichSpec `json:"products,omitempty"`
	Rate      float64      `json:"rate"`
}

// StoichSpec is a (species, multiplicity) term.
type StoichSpec struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

// Scheduling methods.
const (
	MethodQueue  = "queue"
	MethodDirect = "direct"
)

// RunSpec holds simulation settings. Zero values mean "use the default";
// Depth is a pointer because a depth of zero is meaningful.
type RunSpec struct {
	StopTime        float64  `json:"stop_time,omitempty"`
	Depth           *int     `json:"depth,omitempty"`
	Volume          float64  `json:"volume,omitempty"`
	Seed            uint64   `json:"seed,omitempty"`
	SampleInterval  float64  `json:"sample_interval,omitempty"`
	MaxEvents       int64    `json:"max_events,omitempty"`
	Method          string   `json:"method,omitempty"`
	HighSensitivity float64  `json:"high_sensitivity,omitempty"`
	LowSensitivity  float64  `json:"low_sensitivity,omitempty"`
	Sample          []string `json:"sample,omitempty"`
}
