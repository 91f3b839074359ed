package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/plexsim/internal/ir"
)

// CompileModel parses a CUE value into a ModelSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the model root. Named declarations are CUE structs whose
// field order is the declaration order:
//
//	modification: phos: weight: 80
//	mol: A: {weight: 100, sites: s: {}, mod_sites: p: "none"}
//	rule: bind: {dimerize: ["A.s", "B.s"], on_rate: 1, off_rate: 1}
//	species: A: {mol: "A", population: 100}
//	run: {stop_time: 10, depth: 2}
//
// CompileModel reports the first structural error with its position.
// Cross-reference checks (unknown mols, sites, ...) are Validate's job.
func CompileModel(v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{}
	var err error
	if spec.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if spec.Modifications, err = compileModifications(v); err != nil {
		return nil, err
	}
	if spec.Mols, err = compileMols(v); err != nil {
		return nil, err
	}
	if len(spec.Mols) == 0 {
		return nil, &CompileError{Field: "mol", Message: "at least one mol is required", Pos: v.Pos()}
	}
	if spec.Omniplexes, err = compileOmniplexes(v); err != nil {
		return nil, err
	}
	if spec.Rules, err = compileRules(v); err != nil {
		return nil, err
	}
	if spec.Species, err = compileSpecies(v); err != nil {
		return nil, err
	}
	if spec.Reactions, err = compileReactions(v); err != nil {
		return nil, err
	}
	if spec.Run, err = compileRun(v); err != nil {
		return nil, err
	}
	return spec, nil
}

// fields iterates the named declarations under path, in source order.
func fields(v cue.Value, path string, each func(name string, v cue.Value) error) error {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil
	}
	iter, err := val.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := each(strings.Trim(iter.Label(), `"`), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(v cue.Value, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalFloat(v cue.Value, path string) (float64, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return 0, nil
	}
	f, err := val.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

func optionalInt(v cue.Value, path string) (int64, bool, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return 0, false, nil
	}
	i, err := val.Int64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return i, true, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil, nil
	}
	return stringValues(val)
}

func stringValues(val cue.Value) ([]string, error) {
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// modMap parses {site: "mod", ...} into assignments in source order.
func modMap(v cue.Value, path string) ([]ir.ModAssignment, error) {
	var out []ir.ModAssignment
	err := fields(v, path, func(site string, val cue.Value) error {
		mod, err := val.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, ir.ModAssignment{Site: site, Mod: mod})
		return nil
	})
	return out, err
}

// siteRef parses "owner.site".
func siteRef(ref string, field string, pos token.Pos) (ir.SiteRefSpec, error) {
	owner, site, ok := strings.Cut(ref, ".")
	if !ok || owner == "" || site == "" || strings.Contains(site, ".") {
		return ir.SiteRefSpec{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("site reference %q must have the form owner.site", ref),
			Pos:     pos,
		}
	}
	return ir.SiteRefSpec{Mol: owner, Site: site}, nil
}

func compileModifications(v cue.Value) ([]ir.ModificationSpec, error) {
	var out []ir.ModificationSpec
	err := fields(v, "modification", func(name string, val cue.Value) error {
		w, err := optionalFloat(val, "weight")
		if err != nil {
			return err
		}
		out = append(out, ir.ModificationSpec{Name: name, Weight: w})
		return nil
	})
	return out, err
}

func compileMols(v cue.Value) ([]ir.MolSpec, error) {
	var out []ir.MolSpec
	err := fields(v, "mol", func(name string, val cue.Value) error {
		mol := ir.MolSpec{Name: name}
		var err error
		if mol.Weight, err = optionalFloat(val, "weight"); err != nil {
			return err
		}
		err = fields(val, "sites", func(site string, sv cue.Value) error {
			s := ir.SiteSpec{Name: site}
			if s.Shapes, err = stringList(sv, "shapes"); err != nil {
				return err
			}
			if s.DefaultShape, err = optionalString(sv, "default"); err != nil {
				return err
			}
			mol.Sites = append(mol.Sites, s)
			return nil
		})
		if err != nil {
			return err
		}
		err = fields(val, "mod_sites", func(site string, mv cue.Value) error {
			def, err := mv.String()
			if err != nil {
				return formatCUEError(err)
			}
			mol.ModSites = append(mol.ModSites, ir.ModSiteSpec{Name: site, Default: def})
			return nil
		})
		if err != nil {
			return err
		}
		if mol.Allostery, err = compileAllostery(val); err != nil {
			return err
		}
		out = append(out, mol)
		return nil
	})
	return out, err
}

func compileAllostery(v cue.Value) ([]ir.AllosterySpec, error) {
	val := v.LookupPath(cue.ParsePath("allostery"))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.AllosterySpec
	for iter.Next() {
		entry := iter.Value()
		a := ir.AllosterySpec{}
		if a.Mods, err = modMap(entry, "mods"); err != nil {
			return nil, err
		}
		err = fields(entry, "shapes", func(site string, sv cue.Value) error {
			shape, err := sv.String()
			if err != nil {
				return formatCUEError(err)
			}
			a.Shapes = append(a.Shapes, ir.ShapeAssignment{Site: site, Shape: shape})
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// compileComplex parses a complex in either shorthand ({mol: "A"}) or full
// form ({mols: {label: "Mol" | {mol: "Mol", mods: {...}}}, bindings:
// [["l1.site", "l2.site"], ...]}).
func compileComplex(v cue.Value, field string) (ir.ComplexSpec, error) {
	var spec ir.ComplexSpec
	if mol, err := optionalString(v, "mol"); err != nil {
		return spec, err
	} else if mol != "" {
		mods, err := modMap(v, "mods")
		if err != nil {
			return spec, err
		}
		spec.Mols = []ir.MolInstanceSpec{{Mol: mol, Mods: mods}}
		return spec, nil
	}

	err := fields(v, "mols", func(label string, iv cue.Value) error {
		inst := ir.MolInstanceSpec{Label: label}
		if s, err := iv.String(); err == nil {
			inst.Mol = s
		} else {
			var err error
			if inst.Mol, err = optionalString(iv, "mol"); err != nil {
				return err
			}
			if inst.Mods, err = modMap(iv, "mods"); err != nil {
				return err
			}
		}
		if inst.Mol == "" {
			return &CompileError{Field: field + ".mols", Message: fmt.Sprintf("instance %q names no mol", label), Pos: iv.Pos()}
		}
		spec.Mols = append(spec.Mols, inst)
		return nil
	})
	if err != nil {
		return spec, err
	}
	if len(spec.Mols) == 0 {
		return spec, &CompileError{Field: field, Message: "complex needs mol or mols", Pos: v.Pos()}
	}

	bv := v.LookupPath(cue.ParsePath("bindings"))
	if !bv.Exists() {
		return spec, nil
	}
	iter, err := bv.List()
	if err != nil {
		return spec, formatCUEError(err)
	}
	for iter.Next() {
		pair, err := stringValues(iter.Value())
		if err != nil {
			return spec, err
		}
		if len(pair) != 2 {
			return spec, &CompileError{Field: field + ".bindings", Message: "a binding is a pair of site references", Pos: iter.Value().Pos()}
		}
		left, err := siteRef(pair[0], field+".bindings", iter.Value().Pos())
		if err != nil {
			return spec, err
		}
		right, err := siteRef(pair[1], field+".bindings", iter.Value().Pos())
		if err != nil {
			return spec, err
		}
		spec.Bindings = append(spec.Bindings, ir.BindingSpec{Left: left, Right: right})
	}
	return spec, nil
}

func compileOmniplexes(v cue.Value) ([]ir.OmniplexSpec, error) {
	var out []ir.OmniplexSpec
	err := fields(v, "omniplex", func(name string, val cue.Value) error {
		field := "omniplex." + name
		o := ir.OmniplexSpec{Name: name}
		var err error
		if o.Complex, err = compileComplex(val, field); err != nil {
			return err
		}
		free, err := stringList(val, "free_sites")
		if err != nil {
			return err
		}
		for _, ref := range free {
			s, err := siteRef(ref, field+".free_sites", val.Pos())
			if err != nil {
				return err
			}
			o.FreeSites = append(o.FreeSites, s)
		}
		err = fields(val, "shapes", func(ref string, sv cue.Value) error {
			s, err := siteRef(ref, field+".shapes", sv.Pos())
			if err != nil {
				return err
			}
			shape, err := sv.String()
			if err != nil {
				return formatCUEError(err)
			}
			o.Shapes = append(o.Shapes, ir.OmniShapeSpec{Mol: s.Mol, Site: s.Site, Shape: shape})
			return nil
		})
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

// ruleKinds are the keys that select a rule's kind; exactly one must be
// present.
var ruleKinds = []ir.RuleKind{ir.RuleDimerize, ir.RuleModExchange, ir.RuleOmniExchange}

func compileRules(v cue.Value) ([]ir.RuleSpec, error) {
	var out []ir.RuleSpec
	err := fields(v, "rule", func(name string, val cue.Value) error {
		field := "rule." + name
		rs := ir.RuleSpec{Name: name}
		var kindVal cue.Value
		for _, k := range ruleKinds {
			kv := val.LookupPath(cue.ParsePath(string(k)))
			if !kv.Exists() {
				continue
			}
			if rs.Kind != "" {
				return &CompileError{Field: "rule", Message: fmt.Sprintf("%s: both %s and %s given", field, rs.Kind, k), Pos: kv.Pos()}
			}
			rs.Kind, kindVal = k, kv
		}
		if rs.Kind == "" {
			return &CompileError{Field: "rule", Message: fmt.Sprintf("%s: one of dimerize, mod_exchange or omni_exchange is required", field), Pos: val.Pos()}
		}

		var err error
		switch rs.Kind {
		case ir.RuleDimerize:
			err = compileDimerize(&rs, val, kindVal, field)
		case ir.RuleModExchange:
			if rs.Mol, err = kindVal.String(); err != nil {
				return formatCUEError(err)
			}
			err = compileExchange(&rs, val)
		case ir.RuleOmniExchange:
			ref, serr := kindVal.String()
			if serr != nil {
				return formatCUEError(serr)
			}
			target, terr := siteRef(ref, "rule", kindVal.Pos())
			if terr != nil {
				return terr
			}
			rs.Omniplex, rs.Target = target.Mol, target.Site
			if rs.Substitute, err = optionalString(val, "substitute"); err != nil {
				return err
			}
			err = compileExchange(&rs, val)
		}
		if err != nil {
			return err
		}
		if rs.Extrapolation, err = optionalString(val, "extrapolation"); err != nil {
			return err
		}
		out = append(out, rs)
		return nil
	})
	return out, err
}

func compileDimerize(rs *ir.RuleSpec, val, kindVal cue.Value, field string) error {
	pair, err := stringValues(kindVal)
	if err != nil {
		return err
	}
	if len(pair) != 2 {
		return &CompileError{Field: "rule", Message: field + ": dimerize takes two site references", Pos: kindVal.Pos()}
	}
	left, err := siteRef(pair[0], "rule", kindVal.Pos())
	if err != nil {
		return err
	}
	right, err := siteRef(pair[1], "rule", kindVal.Pos())
	if err != nil {
		return err
	}
	rs.Left, rs.Right = &left, &right
	if rs.OnRate, err = optionalFloat(val, "on_rate"); err != nil {
		return err
	}
	if rs.OffRate, err = optionalFloat(val, "off_rate"); err != nil {
		return err
	}

	sv := val.LookupPath(cue.ParsePath("shape_rates"))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		entry := iter.Value()
		shapes, err := stringList(entry, "shapes")
		if err != nil {
			return err
		}
		if len(shapes) != 2 {
			return &CompileError{Field: "rule", Message: field + ": shape_rates entries need two shapes", Pos: entry.Pos()}
		}
		sr := ir.ShapeRateSpec{LeftShape: shapes[0], RightShape: shapes[1]}
		if sr.OnRate, err = optionalFloat(entry, "on_rate"); err != nil {
			return err
		}
		if sr.OffRate, err = optionalFloat(entry, "off_rate"); err != nil {
			return err
		}
		rs.ShapeRates = append(rs.ShapeRates, sr)
	}
	return nil
}

func compileExchange(rs *ir.RuleSpec, val cue.Value) error {
	var err error
	if rs.Requires, err = modMap(val, "requires"); err != nil {
		return err
	}
	if rs.Exchanges, err = modMap(val, "exchanges"); err != nil {
		return err
	}
	if rs.Rate, err = optionalFloat(val, "rate"); err != nil {
		return err
	}
	if rs.AdditionalReactant, err = optionalString(val, "additional_reactant"); err != nil {
		return err
	}
	rs.AdditionalProduct, err = optionalString(val, "additional_product")
	return err
}

func compileSpecies(v cue.Value) ([]ir.SpeciesSpec, error) {
	var out []ir.SpeciesSpec
	err := fields(v, "species", func(name string, val cue.Value) error {
		ss := ir.SpeciesSpec{Name: name}
		var err error
		if ss.Complex, err = compileComplex(val, "species."+name); err != nil {
			return err
		}
		if ss.Population, _, err = optionalInt(val, "population"); err != nil {
			return err
		}
		out = append(out, ss)
		return nil
	})
	return out, err
}

// stoich parses {species: count, ...}.
func stoich(v cue.Value, path string) ([]ir.StoichSpec, error) {
	var out []ir.StoichSpec
	err := fields(v, path, func(species string, cv cue.Value) error {
		n, err := cv.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, ir.StoichSpec{Species: species, Count: int(n)})
		return nil
	})
	return out, err
}

func compileReactions(v cue.Value) ([]ir.ReactionSpec, error) {
	var out []ir.ReactionSpec
	err := fields(v, "reaction", func(name string, val cue.Value) error {
		rs := ir.ReactionSpec{Name: name}
		var err error
		if rs.Reactants, err = stoich(val, "reactants"); err != nil {
			return err
		}
		if rs.Products, err = stoich(val, "products"); err != nil {
			return err
		}
		if rs.Rate, err = optionalFloat(val, "rate"); err != nil {
			return err
		}
		out = append(out, rs)
		return nil
	})
	return out, err
}

func compileRun(v cue.Value) (ir.RunSpec, error) {
	var run ir.RunSpec
	val := v.LookupPath(cue.ParsePath("run"))
	if !val.Exists() {
		return run, nil
	}
	var err error
	if run.StopTime, err = optionalFloat(val, "stop_time"); err != nil {
		return run, err
	}
	depth, ok, err := optionalInt(val, "depth")
	if err != nil {
		return run, err
	}
	if ok {
		d := int(depth)
		run.Depth = &d
	}
	if run.Volume, err = optionalFloat(val, "volume"); err != nil {
		return run, err
	}
	if sv := val.LookupPath(cue.ParsePath("seed")); sv.Exists() {
		if run.Seed, err = sv.Uint64(); err != nil {
			return run, formatCUEError(err)
		}
	}
	if run.SampleInterval, err = optionalFloat(val, "sample_interval"); err != nil {
		return run, err
	}
	if run.MaxEvents, _, err = optionalInt(val, "max_events"); err != nil {
		return run, err
	}
	if run.Method, err = optionalString(val, "method"); err != nil {
		return run, err
	}
	if run.HighSensitivity, err = optionalFloat(val, "high_sensitivity"); err != nil {
		return run, err
	}
	if run.LowSensitivity, err = optionalFloat(val, "low_sensitivity"); err != nil {
		return run, err
	}
	run.Sample, err = stringList(val, "sample")
	return run, err
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
