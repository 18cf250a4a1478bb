// Package scale resolves Vega scale definitions into immutable
// ScaleState values (spec §4.F) and evaluates them for the
// compiler's scale/invert/bandwidth UDFs (spec §4.E).
package scale

import (
	"math"

	"github.com/vegafusion-go/vf/value"
)

// Type enumerates the scale kinds the mark-encoding extractor
// whitelists (spec §4.G) and the resolver understands (spec §4.F).
type Type int

const (
	Linear Type = iota
	Log
	Pow
	Sqrt
	Symlog
	Time
	Utc
	Band
	Point
	Ordinal
	Quantile
	Quantize
	Threshold
	BinOrdinal
)

func (t Type) String() string {
	switch t {
	case Linear:
		return "linear"
	case Log:
		return "log"
	case Pow:
		return "pow"
	case Sqrt:
		return "sqrt"
	case Symlog:
		return "symlog"
	case Time:
		return "time"
	case Utc:
		return "utc"
	case Band:
		return "band"
	case Point:
		return "point"
	case Ordinal:
		return "ordinal"
	case Quantile:
		return "quantile"
	case Quantize:
		return "quantize"
	case Threshold:
		return "threshold"
	case BinOrdinal:
		return "bin-ordinal"
	default:
		return "unknown"
	}
}

// Continuous reports whether values of this scale's domain/range are
// interpolated numerically rather than looked up by discrete index.
// Used by the mark-encoding extractor whitelist (spec §4.G) and by
// Lookup/Invert below.
func (t Type) Continuous() bool {
	switch t {
	case Linear, Log, Pow, Sqrt, Symlog, Time, Utc:
		return true
	default:
		return false
	}
}

// DiscreteNullSentinel is the reserved string nulls in a discrete
// domain are normalised to (spec §4.F step 4), so discrete equality
// lookups never need special-case null handling.
const DiscreteNullSentinel = "__vf_null__"

// State is the resolved, immutable output of the scale resolver: a
// domain/range pair plus the exponent/base/clamp options the
// continuous-scale families need and the padding already baked into
// Range by the resolver (spec §4.F step 6).
type State struct {
	Type    Type
	Domain  []value.Scalar
	Range   []value.Scalar
	Options map[string]value.Scalar
	Reverse bool
	Padding float64 // band/point inner+outer spacing already folded in by the resolver
}

func (s *State) domain() []value.Scalar {
	if !s.Reverse {
		return s.Domain
	}
	out := make([]value.Scalar, len(s.Domain))
	copy(out, s.Domain)
	reverseScalars(out)
	return out
}

func (s *State) rng() []value.Scalar {
	if !s.Reverse {
		return s.Range
	}
	out := make([]value.Scalar, len(s.Range))
	copy(out, s.Range)
	reverseScalars(out)
	return out
}

func reverseScalars(xs []value.Scalar) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Lookup maps a domain value x to its range value (the `scale(name,
// x)` UDF body, spec §4.E). Unknown discrete keys and empty
// domains/ranges return null.
func (s *State) Lookup(x value.Scalar) value.Scalar {
	domain, rng := s.domain(), s.rng()
	if len(domain) == 0 || len(rng) == 0 {
		return value.Null()
	}
	if s.Type.Continuous() {
		xf, ok := x.AsFloat64()
		if !ok || len(domain) < 2 || len(rng) < 2 {
			return value.Null()
		}
		d0, _ := domain[0].AsFloat64()
		d1, _ := domain[len(domain)-1].AsFloat64()
		r0, _ := rng[0].AsFloat64()
		r1, _ := rng[len(rng)-1].AsFloat64()
		t := s.forward(xf, d0, d1)
		return value.Float64(r0 + t*(r1-r0))
	}
	// Discrete: find domain index by equality, map onto range by
	// position (band/point space the index across Range; ordinal
	// indexes Range directly, cycling if shorter than Domain).
	idx := indexOf(domain, x)
	if idx < 0 {
		return value.Null()
	}
	switch s.Type {
	case Band, Point:
		lo, _ := rng[0].AsFloat64()
		hi, _ := rng[len(rng)-1].AsFloat64()
		step := (hi - lo) / math.Max(1, float64(len(domain)))
		return value.Float64(lo + step*float64(idx))
	default:
		return rng[idx%len(rng)]
	}
}

// Invert maps a range value back to a domain value (`invert(name,
// y)`, spec §4.E), valid only for continuous scales.
func (s *State) Invert(y value.Scalar) value.Scalar {
	if !s.Type.Continuous() {
		return value.Null()
	}
	domain, rng := s.domain(), s.rng()
	if len(domain) < 2 || len(rng) < 2 {
		return value.Null()
	}
	yf, ok := y.AsFloat64()
	if !ok {
		return value.Null()
	}
	r0, _ := rng[0].AsFloat64()
	r1, _ := rng[len(rng)-1].AsFloat64()
	d0, _ := domain[0].AsFloat64()
	d1, _ := domain[len(domain)-1].AsFloat64()
	if r1 == r0 {
		return value.Null()
	}
	t := (yf - r0) / (r1 - r0)
	return value.Float64(s.backward(t, d0, d1))
}

// Bandwidth returns the size of one discrete step (`bandwidth(name)`,
// spec §4.E); zero for continuous scales.
func (s *State) Bandwidth() float64 {
	if s.Type.Continuous() || len(s.Domain) == 0 || len(s.Range) < 2 {
		return 0
	}
	lo, _ := s.Range[0].AsFloat64()
	hi, _ := s.Range[len(s.Range)-1].AsFloat64()
	return (hi - lo) / math.Max(1, float64(len(s.Domain)))
}

// forward normalises x into the [0,1] domain fraction per scale
// family (spec §4.F continuous scale types).
func (s *State) forward(x, d0, d1 float64) float64 {
	switch s.Type {
	case Log:
		base := 10.0
		if b, ok := s.Options["base"]; ok {
			if bf, ok := b.AsFloat64(); ok {
				base = bf
			}
		}
		lx, l0, l1 := logBase(x, base), logBase(d0, base), logBase(d1, base)
		if l1 == l0 {
			return 0
		}
		return (lx - l0) / (l1 - l0)
	case Pow, Sqrt:
		exp := 0.5
		if s.Type == Pow {
			exp = 1
			if e, ok := s.Options["exponent"]; ok {
				if ef, ok := e.AsFloat64(); ok {
					exp = ef
				}
			}
		}
		px, p0, p1 := math.Pow(x, exp), math.Pow(d0, exp), math.Pow(d1, exp)
		if p1 == p0 {
			return 0
		}
		return (px - p0) / (p1 - p0)
	case Symlog:
		c := 1.0
		if cv, ok := s.Options["constant"]; ok {
			if cf, ok := cv.AsFloat64(); ok {
				c = cf
			}
		}
		sx, s0, s1 := symlog(x, c), symlog(d0, c), symlog(d1, c)
		if s1 == s0 {
			return 0
		}
		return (sx - s0) / (s1 - s0)
	default:
		if d1 == d0 {
			return 0
		}
		return (x - d0) / (d1 - d0)
	}
}

func (s *State) backward(t, d0, d1 float64) float64 {
	switch s.Type {
	case Log:
		base := 10.0
		if b, ok := s.Options["base"]; ok {
			if bf, ok := b.AsFloat64(); ok {
				base = bf
			}
		}
		l0, l1 := logBase(d0, base), logBase(d1, base)
		return math.Pow(base, l0+t*(l1-l0))
	case Pow, Sqrt:
		exp := 0.5
		if s.Type == Pow {
			exp = 1
			if e, ok := s.Options["exponent"]; ok {
				if ef, ok := e.AsFloat64(); ok {
					exp = ef
				}
			}
		}
		p0, p1 := math.Pow(d0, exp), math.Pow(d1, exp)
		return math.Pow(p0+t*(p1-p0), 1/exp)
	default:
		return d0 + t*(d1-d0)
	}
}

func logBase(x, base float64) float64 { return math.Log(x) / math.Log(base) }

func symlog(x, c float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1
	}
	return sign * math.Log1p(math.Abs(x/c))
}

func indexOf(domain []value.Scalar, x value.Scalar) int {
	xs, xIsStr := x.AsString()
	for i, d := range domain {
		if ds, ok := d.AsString(); ok && xIsStr {
			if ds == xs {
				return i
			}
			continue
		}
		if df, ok := d.AsFloat64(); ok {
			if xf, ok := x.AsFloat64(); ok && xf == df {
				return i
			}
		}
	}
	return -1
}
