// Package calibration maps raw joystick axis readings onto the normalized
// [-1, 1] control range.
//
// An Axis is fitted once from three raw anchor readings (min, centre, max)
// to the unique quadratic f(x) = a·x² + b·x + c with f(min) = -1,
// f(centre) = 0 and f(max) = 1. Readings outside the anchors extrapolate
// along the same curve; nothing is clamped.
package calibration

import (
	"math"
	"math/big"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDegenerate is returned when two or more calibration points coincide.
	ErrDegenerate = pkgerrors.New("degenerate calibration: min, centre and max must be distinct")

	// ErrNegativeDeadZone is returned for a dead zone below zero.
	ErrNegativeDeadZone = pkgerrors.New("dead zone must not be negative")

	// ErrNotFinite is returned when a calibration point is NaN or infinite.
	ErrNotFinite = pkgerrors.New("calibration points must be finite")
)

// Points holds the raw anchor readings of one axis.
type Points struct {
	Min    float64
	Centre float64
	Max    float64
}

// Axis is an immutable fitted calibration. It is safe for concurrent use.
type Axis struct {
	a, b, c  float64
	deadZone float64
	points   Points
}

// Option configures an Axis at construction.
type Option func(*options)

type options struct {
	centre    float64
	hasCentre bool
	deadZone  float64
}

// WithCentre sets the raw reading that maps to 0. Without it the centre is
// the midpoint of min and max.
func WithCentre(centre float64) Option {
	return func(o *options) {
		o.centre = centre
		o.hasCentre = true
	}
}

// WithDeadZone sets the output half-width around 0 that is forced to 0.
func WithDeadZone(deadZone float64) Option {
	return func(o *options) {
		o.deadZone = deadZone
	}
}

// New fits a calibration through min → -1, centre → 0 and max → 1.
// min and max may be given in either numeric order.
func New(min, max float64, opts ...Option) (*Axis, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	centre := (min + max) / 2
	if o.hasCentre {
		centre = o.centre
	}

	p := Points{Min: min, Centre: centre, Max: max}
	for _, v := range []float64{p.Min, p.Centre, p.Max, o.deadZone} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, pkgerrors.Wrapf(ErrNotFinite, "min=%v centre=%v max=%v dead_zone=%v", p.Min, p.Centre, p.Max, o.deadZone)
		}
	}
	if o.deadZone < 0 {
		return nil, pkgerrors.Wrapf(ErrNegativeDeadZone, "dead_zone=%v", o.deadZone)
	}
	if p.Min == p.Centre || p.Centre == p.Max || p.Min == p.Max {
		return nil, pkgerrors.Wrapf(ErrDegenerate, "min=%v centre=%v max=%v", p.Min, p.Centre, p.Max)
	}

	a, b, c := Coefficients(p)
	return &Axis{
		a:        a,
		b:        b,
		c:        c,
		deadZone: o.deadZone,
		points:   p,
	}, nil
}

// Coefficients solves for a, b and c of the quadratic through
// (min, -1), (centre, 0) and (max, 1). The points must be distinct and
// finite; New checks that before calling it.
//
// The arithmetic is done on exact rationals and rounded once, so linear
// calibrations whose centre is the exact midpoint yield a == 0.
func Coefficients(pts Points) (a, b, c float64) {
	p := new(big.Rat).SetFloat64(pts.Min)
	q := new(big.Rat).SetFloat64(pts.Centre)
	r := new(big.Rat).SetFloat64(pts.Max)

	mul := func(xs ...*big.Rat) *big.Rat {
		out := big.NewRat(1, 1)
		for _, x := range xs {
			out.Mul(out, x)
		}
		return out
	}
	sub := func(x, y *big.Rat) *big.Rat { return new(big.Rat).Sub(x, y) }
	add := func(x, y *big.Rat) *big.Rat { return new(big.Rat).Add(x, y) }
	two := big.NewRat(2, 1)

	// divisor = (q - p)(r - p)(q - r)
	divisor := mul(sub(q, p), sub(r, p), sub(q, r))

	// a = (p - 2q + r) / divisor
	ra := add(sub(p, mul(two, q)), r)
	ra.Quo(ra, divisor)

	// b = (p² - 2q² + r²) / -divisor
	rb := add(sub(mul(p, p), mul(two, q, q)), mul(r, r))
	rb.Quo(rb, new(big.Rat).Neg(divisor))

	// c = (p²q - pq² - q²r + qr²) / divisor
	rc := sub(sub(mul(p, p, q), mul(p, q, q)), sub(mul(q, q, r), mul(q, r, r)))
	rc.Quo(rc, divisor)

	a, _ = ra.Float64()
	b, _ = rb.Float64()
	c, _ = rc.Float64()
	return a, b, c
}

// Evaluate maps a raw reading to its calibrated value. Outputs inside
// [-deadZone, deadZone] are returned as exactly 0; everything else is
// returned as fitted, without rescaling.
func (x *Axis) Evaluate(reading float64) float64 {
	output := x.Raw(reading)
	if -x.deadZone <= output && output <= x.deadZone {
		return 0
	}
	return output
}

// Raw evaluates the fitted curve without dead-zone suppression.
func (x *Axis) Raw(reading float64) float64 {
	return x.a*reading*reading + x.b*reading + x.c
}

// InRange reports whether reading lies between min and max inclusive,
// whichever way round they are.
func (x *Axis) InRange(reading float64) bool {
	lo, hi := x.points.Min, x.points.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo <= reading && reading <= hi
}

// Coefficients returns the fitted quadratic, linear and constant terms.
func (x *Axis) Coefficients() (a, b, c float64) {
	return x.a, x.b, x.c
}

// DeadZone returns the output-space dead-zone half-width.
func (x *Axis) DeadZone() float64 {
	return x.deadZone
}

// Points returns the anchor readings the axis was fitted through.
func (x *Axis) Points() Points {
	return x.points
}
