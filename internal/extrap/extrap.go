// Package extrap turns a rule's declared rate into the rate of one concrete
// reaction.
//
// Rules are written against single mols; generated reactions involve whole
// complexes. The mass policy keeps the binding invariant
//
//	k / sqrt(1/m1 + 1/m2)
//
// fixed, where m1 and m2 are the weights the rate was declared for, and
// solves it for the reacting complexes' weights. The none policy uses the
// declared rate unchanged.
package extrap

import (
	"fmt"
	"math"
)

// Kind selects an extrapolation policy.
type Kind int

const (
	// KindNone uses declared rates verbatim.
	KindNone Kind = iota
	// KindMass rescales binary rates by reduced mass.
	KindMass
)

// ParseKind maps a policy name ("", "none", "mass") to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "none":
		return KindNone, nil
	case "mass":
		return KindMass, nil
	default:
		return KindNone, fmt.Errorf("unknown extrapolation %q", name)
	}
}

func (k Kind) String() string {
	if k == KindMass {
		return "mass"
	}
	return "none"
}

// Invariant is the reduced-mass invariant of a binary rate.
func Invariant(rate, m1, m2 float64) float64 {
	return rate / math.Sqrt(1/m1+1/m2)
}

// Extrapolate solves the invariant for partners of weight w1 and w2.
func Extrapolate(invariant, w1, w2 float64) float64 {
	return invariant * math.Sqrt(1/w1+1/w2)
}

// Side describes one binding partner of a generated reaction: the shape
// of its reacting site and the weight of its whole complex.
type Side struct {
	Shape  int
	Weight float64
}

type shapePair struct{ left, right int }

type pairRates struct {
	on, off   float64
	invariant float64
}

// Dimer holds the on and off rates of one binding rule, per site-shape
// pair. Lookups accept the pair in either order, so symmetric rules need
// each unordered pair declared once.
type Dimer struct {
	kind      Kind
	leftMass  float64
	rightMass float64
	base      pairRates
	pairs     map[shapePair]pairRates
}

// NewDimer creates the rate table of a binding rule. leftMass and
// rightMass are the weights of the two mol types named by the rule; on and
// off apply to every shape pair without an override.
func NewDimer(kind Kind, leftMass, rightMass, on, off float64) *Dimer {
	d := &Dimer{
		kind:      kind,
		leftMass:  leftMass,
		rightMass: rightMass,
		pairs:     make(map[shapePair]pairRates),
	}
	d.base = d.rates(on, off)
	return d
}

func (d *Dimer) rates(on, off float64) pairRates {
	r := pairRates{on: on, off: off}
	if d.kind == KindMass {
		r.invariant = Invariant(on, d.leftMass, d.rightMass)
	}
	return r
}

// SetShapeRates overrides the rates for one shape pair.
func (d *Dimer) SetShapeRates(left, right int, on, off float64) {
	d.pairs[shapePair{left, right}] = d.rates(on, off)
}

// Kind returns the policy.
func (d *Dimer) Kind() Kind {
	return d.kind
}

func (d *Dimer) lookup(left, right int) pairRates {
	if r, ok := d.pairs[shapePair{left, right}]; ok {
		return r
	}
	if r, ok := d.pairs[shapePair{right, left}]; ok {
		return r
	}
	return d.base
}

// OnRate is the binding rate for two partners.
func (d *Dimer) OnRate(left, right Side) float64 {
	r := d.lookup(left.Shape, right.Shape)
	if d.kind == KindMass {
		return Extrapolate(r.invariant, left.Weight, right.Weight)
	}
	return r.on
}

// OffRate is the unbinding rate of a bond between sites in the given shapes.
// Unbinding is unary, so it is never mass extrapolated.
func (d *Dimer) OffRate(leftShape, rightShape int) float64 {
	return d.lookup(leftShape, rightShape).off
}

// Exchange holds the rate of a modification-exchange rule. With an
// additional reactant the reaction is binary and the mass policy applies
// between the modified complex and that reactant.
type Exchange struct {
	kind       Kind
	rate       float64
	invariant  float64
	partnerW   float64
	hasPartner bool
}

// NewExchange creates an exchange rate. molMass is the weight of the mol
// type the rule is written against; partnerMass is the weight of the
// additional reactant, or zero when there is none.
func NewExchange(kind Kind, rate, molMass, partnerMass float64) *Exchange {
	e := &Exchange{kind: kind, rate: rate, partnerW: partnerMass, hasPartner: partnerMass > 0}
	if kind == KindMass && e.hasPartner {
		e.invariant = Invariant(rate, molMass, partnerMass)
	}
	return e
}

// Rate is the exchange rate for a complex of the given weight.
func (e *Exchange) Rate(complexWeight float64) float64 {
	if e.kind == KindMass && e.hasPartner {
		return Extrapolate(e.invariant, complexWeight, e.partnerW)
	}
	return e.rate
}
