package compiler

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/plexsim/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Duplicate declarations (E101-E104)
	ErrDuplicateMol          = "E101" // mol declared twice
	ErrDuplicateModification = "E102" // modification declared twice
	ErrDuplicateSpecies      = "E103" // species declared twice
	ErrDuplicateName         = "E104" // duplicate omniplex/rule/reaction/site name

	// Unresolved references (E110-E115)
	ErrUnknownMol      = "E110" // mol type not declared
	ErrUnknownSite     = "E111" // binding site or shape not declared on the mol
	ErrUnknownMod      = "E112" // modification not declared
	ErrUnknownModSite  = "E113" // modification site not declared on the mol
	ErrUnknownSpecies  = "E114" // species name not declared
	ErrUnknownOmniplex = "E115" // omniplex not declared

	// Malformed definitions (E120-E129)
	ErrMalformedRule     = "E120" // wrong kind, arity or missing element
	ErrInvalidRate       = "E121" // negative, NaN or infinite rate
	ErrMalformedComplex  = "E122" // bad binding, site bound twice, disconnected
	ErrInvalidPopulation = "E123" // negative initial population
	ErrInvalidWeight     = "E124" // negative or NaN mol weight

	// Run settings (E130)
	ErrInvalidRun = "E130" // invalid run setting
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// validator collects every error; it never stops at the first one.
type validator struct {
	spec    *ir.ModelSpec
	mods    map[string]bool
	mols    map[string]*ir.MolSpec
	omnis   map[string]*ir.OmniplexSpec
	species map[string]bool
	errs    []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

// Validate checks a compiled model: unique names, resolvable references,
// well-formed complexes and rules, valid rates and run settings.
// Returns all errors found (does not fail-fast).
func Validate(spec *ir.ModelSpec) []ValidationError {
	v := &validator{
		spec:    spec,
		mods:    make(map[string]bool),
		mols:    make(map[string]*ir.MolSpec),
		omnis:   make(map[string]*ir.OmniplexSpec),
		species: make(map[string]bool),
	}
	v.declarations()
	for i := range spec.Mols {
		v.mol(i, &spec.Mols[i])
	}
	for i := range spec.Omniplexes {
		v.omniplex(i, &spec.Omniplexes[i])
	}
	names := make(map[string]bool)
	for i := range spec.Rules {
		rs := &spec.Rules[i]
		field := fmt.Sprintf("rules[%d]", i)
		if names[rs.Name] {
			v.add(field+".name", ErrDuplicateName, "duplicate rule name %q", rs.Name)
		}
		names[rs.Name] = true
		v.rule(field, rs)
	}
	for i, ss := range spec.Species {
		field := fmt.Sprintf("species[%d]", i)
		v.complex(field+".complex", ss.Complex)
		if ss.Population < 0 {
			v.add(field+".population", ErrInvalidPopulation, "species %q has negative population %d", ss.Name, ss.Population)
		}
	}
	names = make(map[string]bool)
	for i, rs := range spec.Reactions {
		field := fmt.Sprintf("reactions[%d]", i)
		if names[rs.Name] {
			v.add(field+".name", ErrDuplicateName, "duplicate reaction name %q", rs.Name)
		}
		names[rs.Name] = true
		v.reaction(field, rs)
	}
	v.run(spec.Run)
	return v.errs
}

// declarations indexes the named declarations, reporting duplicates.
func (v *validator) declarations() {
	for i, m := range v.spec.Modifications {
		if v.mods[m.Name] {
			v.add(fmt.Sprintf("modifications[%d].name", i), ErrDuplicateModification, "duplicate modification %q", m.Name)
		}
		v.mods[m.Name] = true
	}
	for i := range v.spec.Mols {
		m := &v.spec.Mols[i]
		if _, dup := v.mols[m.Name]; dup {
			v.add(fmt.Sprintf("mols[%d].name", i), ErrDuplicateMol, "duplicate mol %q", m.Name)
			continue
		}
		v.mols[m.Name] = m
	}
	for i := range v.spec.Omniplexes {
		o := &v.spec.Omniplexes[i]
		if _, dup := v.omnis[o.Name]; dup {
			v.add(fmt.Sprintf("omniplexes[%d].name", i), ErrDuplicateName, "duplicate omniplex %q", o.Name)
			continue
		}
		v.omnis[o.Name] = o
	}
	for i, s := range v.spec.Species {
		if v.species[s.Name] {
			v.add(fmt.Sprintf("species[%d].name", i), ErrDuplicateSpecies, "duplicate species %q", s.Name)
		}
		v.species[s.Name] = true
	}
}

func siteIndex(m *ir.MolSpec, name string) int {
	return slices.IndexFunc(m.Sites, func(s ir.SiteSpec) bool { return s.Name == name })
}

func modSiteIndex(m *ir.MolSpec, name string) int {
	return slices.IndexFunc(m.ModSites, func(s ir.ModSiteSpec) bool { return s.Name == name })
}

// hasShape reports whether site declares shape; undeclared shapes mean the
// single shape "default".
func hasShape(s ir.SiteSpec, shape string) bool {
	if len(s.Shapes) == 0 {
		return shape == "default"
	}
	return slices.Contains(s.Shapes, shape)
}

func (v *validator) mol(i int, m *ir.MolSpec) {
	field := fmt.Sprintf("mols[%d]", i)
	if m.Weight < 0 || math.IsNaN(m.Weight) {
		v.add(field+".weight", ErrInvalidWeight, "mol %q has invalid weight %v", m.Name, m.Weight)
	}
	seen := make(map[string]bool)
	for j, s := range m.Sites {
		if seen[s.Name] {
			v.add(fmt.Sprintf("%s.sites[%d]", field, j), ErrDuplicateName, "mol %q declares site %q twice", m.Name, s.Name)
		}
		seen[s.Name] = true
		if s.DefaultShape != "" && !hasShape(s, s.DefaultShape) {
			v.add(fmt.Sprintf("%s.sites[%d].default", field, j), ErrUnknownSite, "site %s.%s has no shape %q", m.Name, s.Name, s.DefaultShape)
		}
	}
	for j, s := range m.ModSites {
		if seen[s.Name] {
			v.add(fmt.Sprintf("%s.mod_sites[%d]", field, j), ErrDuplicateName, "mol %q declares site %q twice", m.Name, s.Name)
		}
		seen[s.Name] = true
		if !v.mods[s.Default] {
			v.add(fmt.Sprintf("%s.mod_sites[%d].default", field, j), ErrUnknownMod, "unknown modification %q", s.Default)
		}
	}
	for j, a := range m.Allostery {
		af := fmt.Sprintf("%s.allostery[%d]", field, j)
		v.modAssignments(af+".mods", m, a.Mods)
		for _, sh := range a.Shapes {
			idx := siteIndex(m, sh.Site)
			switch {
			case idx < 0:
				v.add(af+".shapes", ErrUnknownSite, "mol %q has no site %q", m.Name, sh.Site)
			case !hasShape(m.Sites[idx], sh.Shape):
				v.add(af+".shapes", ErrUnknownSite, "site %s.%s has no shape %q", m.Name, sh.Site, sh.Shape)
			}
		}
	}
}

func (v *validator) modAssignments(field string, m *ir.MolSpec, assigns []ir.ModAssignment) {
	for _, a := range assigns {
		if modSiteIndex(m, a.Site) < 0 {
			v.add(field, ErrUnknownModSite, "mol %q has no modification site %q", m.Name, a.Site)
		}
		if !v.mods[a.Mod] {
			v.add(field, ErrUnknownMod, "unknown modification %q", a.Mod)
		}
	}
}

// complex checks a complex and returns its label -> mol table, or nil when
// an instance names an unknown mol.
func (v *validator) complex(field string, c ir.ComplexSpec) map[string]*ir.MolSpec {
	if len(c.Mols) == 0 {
		v.add(field, ErrMalformedComplex, "complex has no mols")
		return nil
	}
	labels := make(map[string]*ir.MolSpec)
	index := make(map[string]int)
	ok := true
	for i, inst := range c.Mols {
		label := inst.Label
		if label == "" {
			label = inst.Mol
		}
		if _, dup := labels[label]; dup {
			v.add(field, ErrMalformedComplex, "label %q used twice", label)
		}
		m, known := v.mols[inst.Mol]
		if !known {
			v.add(field, ErrUnknownMol, "unknown mol %q", inst.Mol)
			ok = false
			continue
		}
		labels[label] = m
		index[label] = i
		v.modAssignments(field+".mods", m, inst.Mods)
	}
	if !ok {
		return nil
	}

	parent := make([]int, len(c.Mols))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	bound := make(map[ir.SiteRefSpec]bool)
	end := func(ref ir.SiteRefSpec) (int, bool) {
		m, known := labels[ref.Mol]
		if !known {
			v.add(field+".bindings", ErrMalformedComplex, "binding names unknown instance %q", ref.Mol)
			return 0, false
		}
		if siteIndex(m, ref.Site) < 0 {
			v.add(field+".bindings", ErrUnknownSite, "mol %q has no site %q", m.Name, ref.Site)
			return 0, false
		}
		if bound[ref] {
			v.add(field+".bindings", ErrMalformedComplex, "site %s.%s bound twice", ref.Mol, ref.Site)
			return 0, false
		}
		bound[ref] = true
		return index[ref.Mol], true
	}
	for _, b := range c.Bindings {
		l, lok := end(b.Left)
		r, rok := end(b.Right)
		if !lok || !rok {
			continue
		}
		if l == r {
			v.add(field+".bindings", ErrMalformedComplex, "instance %q bound to itself", b.Left.Mol)
			continue
		}
		parent[find(l)] = find(r)
	}
	root := find(0)
	for i := range c.Mols {
		if find(i) != root {
			v.add(field, ErrMalformedComplex, "complex is not connected")
			break
		}
	}
	return labels
}

func (v *validator) omniplex(i int, o *ir.OmniplexSpec) {
	field := fmt.Sprintf("omniplexes[%d]", i)
	labels := v.complex(field+".complex", o.Complex)
	if labels == nil {
		return
	}
	bound := make(map[ir.SiteRefSpec]bool)
	for _, b := range o.Complex.Bindings {
		bound[b.Left] = true
		bound[b.Right] = true
	}
	for _, ref := range o.FreeSites {
		m, ok := labels[ref.Mol]
		switch {
		case !ok:
			v.add(field+".free_sites", ErrMalformedComplex, "unknown instance %q", ref.Mol)
		case siteIndex(m, ref.Site) < 0:
			v.add(field+".free_sites", ErrUnknownSite, "mol %q has no site %q", m.Name, ref.Site)
		case bound[ref]:
			v.add(field+".free_sites", ErrMalformedComplex, "site %s.%s is bound in the pattern", ref.Mol, ref.Site)
		}
	}
	for _, sh := range o.Shapes {
		m, ok := labels[sh.Mol]
		if !ok {
			v.add(field+".shapes", ErrMalformedComplex, "unknown instance %q", sh.Mol)
			continue
		}
		idx := siteIndex(m, sh.Site)
		switch {
		case idx < 0:
			v.add(field+".shapes", ErrUnknownSite, "mol %q has no site %q", m.Name, sh.Site)
		case !hasShape(m.Sites[idx], sh.Shape):
			v.add(field+".shapes", ErrUnknownSite, "site %s.%s has no shape %q", m.Name, sh.Site, sh.Shape)
		}
	}
}

func (v *validator) rate(field string, r float64) {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		v.add(field, ErrInvalidRate, "rate must be a finite number >= 0, got %v", r)
	}
}

func (v *validator) ruleSite(field string, ref *ir.SiteRefSpec) (*ir.MolSpec, int) {
	if ref == nil {
		v.add(field, ErrMalformedRule, "missing site")
		return nil, -1
	}
	m, ok := v.mols[ref.Mol]
	if !ok {
		v.add(field, ErrUnknownMol, "unknown mol %q", ref.Mol)
		return nil, -1
	}
	idx := siteIndex(m, ref.Site)
	if idx < 0 {
		v.add(field, ErrUnknownSite, "mol %q has no site %q", m.Name, ref.Site)
	}
	return m, idx
}

func (v *validator) rule(field string, rs *ir.RuleSpec) {
	switch rs.Extrapolation {
	case "", ir.ExtrapolateNone, ir.ExtrapolateMass:
	default:
		v.add(field+".extrapolation", ErrMalformedRule, "unknown extrapolation %q", rs.Extrapolation)
	}

	switch rs.Kind {
	case ir.RuleDimerize:
		lm, ls := v.ruleSite(field+".left", rs.Left)
		rm, rsite := v.ruleSite(field+".right", rs.Right)
		v.rate(field+".on_rate", rs.OnRate)
		v.rate(field+".off_rate", rs.OffRate)
		for j, sr := range rs.ShapeRates {
			sf := fmt.Sprintf("%s.shape_rates[%d]", field, j)
			if lm != nil && ls >= 0 && !hasShape(lm.Sites[ls], sr.LeftShape) {
				v.add(sf, ErrUnknownSite, "site %s.%s has no shape %q", lm.Name, rs.Left.Site, sr.LeftShape)
			}
			if rm != nil && rsite >= 0 && !hasShape(rm.Sites[rsite], sr.RightShape) {
				v.add(sf, ErrUnknownSite, "site %s.%s has no shape %q", rm.Name, rs.Right.Site, sr.RightShape)
			}
			v.rate(sf+".on_rate", sr.OnRate)
			v.rate(sf+".off_rate", sr.OffRate)
		}

	case ir.RuleModExchange:
		v.rate(field+".rate", rs.Rate)
		v.partners(field, rs)
		m, ok := v.mols[rs.Mol]
		if !ok {
			v.add(field+".mol", ErrUnknownMol, "unknown mol %q", rs.Mol)
			return
		}
		v.modAssignments(field+".requires", m, rs.Requires)
		v.modAssignments(field+".exchanges", m, rs.Exchanges)
		if len(rs.Exchanges) == 0 {
			v.add(field+".exchanges", ErrMalformedRule, "rule %q exchanges nothing", rs.Name)
		}

	case ir.RuleOmniExchange:
		v.rate(field+".rate", rs.Rate)
		v.partners(field, rs)
		o, ok := v.omnis[rs.Omniplex]
		if !ok {
			v.add(field+".omniplex", ErrUnknownOmniplex, "unknown omniplex %q", rs.Omniplex)
			return
		}
		var target *ir.MolSpec
		for _, inst := range o.Complex.Mols {
			label := inst.Label
			if label == "" {
				label = inst.Mol
			}
			if label == rs.Target {
				target = v.mols[inst.Mol]
			}
		}
		if target == nil {
			v.add(field+".target", ErrMalformedRule, "omniplex %q has no instance %q", o.Name, rs.Target)
			return
		}
		v.modAssignments(field+".requires", target, rs.Requires)
		v.modAssignments(field+".exchanges", target, rs.Exchanges)
		if rs.Substitute != "" {
			sub, ok := v.mols[rs.Substitute]
			switch {
			case !ok:
				v.add(field+".substitute", ErrUnknownMol, "unknown mol %q", rs.Substitute)
			case !sameSites(target, sub):
				v.add(field+".substitute", ErrMalformedRule, "substitute %s must declare the same sites and mod sites as %s", sub.Name, target.Name)
			}
		}
		if len(rs.Exchanges) == 0 && rs.Substitute == "" {
			v.add(field, ErrMalformedRule, "rule %q exchanges nothing and substitutes nothing", rs.Name)
		}

	default:
		v.add(field+".kind", ErrMalformedRule, "unknown rule kind %q", rs.Kind)
	}
}

func (v *validator) partners(field string, rs *ir.RuleSpec) {
	if rs.AdditionalReactant != "" && !v.species[rs.AdditionalReactant] {
		v.add(field+".additional_reactant", ErrUnknownSpecies, "unknown species %q", rs.AdditionalReactant)
	}
	if rs.AdditionalProduct != "" && !v.species[rs.AdditionalProduct] {
		v.add(field+".additional_product", ErrUnknownSpecies, "unknown species %q", rs.AdditionalProduct)
	}
}

func sameSites(a, b *ir.MolSpec) bool {
	return slices.EqualFunc(a.Sites, b.Sites, func(x, y ir.SiteSpec) bool { return x.Name == y.Name }) &&
		slices.EqualFunc(a.ModSites, b.ModSites, func(x, y ir.ModSiteSpec) bool { return x.Name == y.Name })
}

func (v *validator) reaction(field string, rs ir.ReactionSpec) {
	v.rate(field+".rate", rs.Rate)
	if len(rs.Reactants) == 0 && len(rs.Products) == 0 {
		v.add(field, ErrMalformedRule, "reaction %q has no reactants and no products", rs.Name)
	}
	check := func(side string, terms []ir.StoichSpec) {
		for _, t := range terms {
			if !v.species[t.Species] {
				v.add(field+"."+side, ErrUnknownSpecies, "unknown species %q", t.Species)
			}
			if t.Count < 0 {
				v.add(field+"."+side, ErrMalformedRule, "negative multiplicity %d for %q", t.Count, t.Species)
			}
		}
	}
	check("reactants", rs.Reactants)
	check("products", rs.Products)
}

func (v *validator) run(run ir.RunSpec) {
	finiteNonNeg := func(name string, x float64) {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			v.add("run."+name, ErrInvalidRun, "%s must be a finite number >= 0, got %v", name, x)
		}
	}
	finiteNonNeg("stop_time", run.StopTime)
	finiteNonNeg("volume", run.Volume)
	finiteNonNeg("sample_interval", run.SampleInterval)
	if run.Depth != nil && *run.Depth < 0 {
		v.add("run.depth", ErrInvalidRun, "depth must be >= 0, got %d", *run.Depth)
	}
	if run.MaxEvents < 0 {
		v.add("run.max_events", ErrInvalidRun, "max_events must be >= 0, got %d", run.MaxEvents)
	}
	switch run.Method {
	case "", ir.MethodQueue, ir.MethodDirect:
	default:
		v.add("run.method", ErrInvalidRun, "method must be %q or %q, got %q", ir.MethodQueue, ir.MethodDirect, run.Method)
	}
	if run.HighSensitivity != 0 && !(run.HighSensitivity >= 1) {
		v.add("run.high_sensitivity", ErrInvalidRun, "high_sensitivity must be >= 1, got %v", run.HighSensitivity)
	}
	if run.LowSensitivity != 0 && !(run.LowSensitivity > 0 && run.LowSensitivity <= 1) {
		v.add("run.low_sensitivity", ErrInvalidRun, "low_sensitivity must be in (0, 1], got %v", run.LowSensitivity)
	}
}
