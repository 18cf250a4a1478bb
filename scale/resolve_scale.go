package scale

import (
	"fmt"

	"github.com/vegafusion-go/vf/value"
)

// Spec is the fully-parsed, pre-evaluated shape of a scale definition
// the resolver consumes: domain/range variants already decoded from
// JSON by the caller (package planner/task owns decoding `ispec`'s raw
// domain/range JSON into these Go-native shapes, since that decode step
// depends on the scale's own Type and is out of ispec's narrow scope).
type Spec struct {
	Type    Type
	Domain  DomainSpec
	Range   RangeSpec
	Reverse bool
	Options Options
}

// ResolveScale runs the full §4.F pipeline: resolve the domain, resolve
// the range, then apply reverse/domainMin/domainMax/zero defaults and
// reject domainMid.
func ResolveScale(spec Spec, data DataProvider, scope SignalScope) (*State, error) {
	if spec.Options.DomainMidSet {
		return nil, fmt.Errorf("scale: domainMid is not supported")
	}

	domain, err := ResolveDomain(spec.Domain, spec.Type, data)
	if err != nil {
		return nil, err
	}

	if spec.Type.Continuous() {
		domain = applyContinuousDefaults(domain, spec.Type, spec.Options)
	}

	rng, err := ResolveRange(spec.Range, len(domain), scope, spec.Type.Continuous(),
		spec.Options.Padding, spec.Options.PaddingInner, spec.Options.PaddingOuter)
	if err != nil {
		return nil, err
	}

	return &State{
		Type:    spec.Type,
		Domain:  domain,
		Range:   rng,
		Options: resolvedOptionsMap(spec.Options),
		Reverse: spec.Reverse,
		Padding: spec.Options.Padding,
	}, nil
}

// applyContinuousDefaults implements the data-driven-domain half of
// spec §4.F step 6: `zero` defaults true for linear/pow/sqrt (Vega's
// own default), domainMin/domainMax override the resolved endpoints.
func applyContinuousDefaults(domain []value.Scalar, typ Type, opts Options) []value.Scalar {
	if len(domain) == 0 {
		return domain
	}
	lo, loOK := domain[0].AsFloat64()
	hi, hiOK := domain[len(domain)-1].AsFloat64()
	if !loOK || !hiOK {
		return domain
	}

	zero := opts.Zero
	defaultsToZero := typ == Linear || typ == Pow || typ == Sqrt
	includeZero := (zero == nil && defaultsToZero) || (zero != nil && *zero)
	if includeZero {
		if lo > 0 {
			lo = 0
		}
		if hi < 0 {
			hi = 0
		}
	}
	if opts.DomainMin != nil {
		lo = *opts.DomainMin
	}
	if opts.DomainMax != nil {
		hi = *opts.DomainMax
	}
	return []value.Scalar{value.Float64(lo), value.Float64(hi)}
}

func resolvedOptionsMap(opts Options) map[string]value.Scalar {
	m := map[string]value.Scalar{}
	if opts.Base != 0 {
		m["base"] = value.Float64(opts.Base)
	}
	if opts.Exponent != 0 {
		m["exponent"] = value.Float64(opts.Exponent)
	}
	if opts.Constant != 0 {
		m["constant"] = value.Float64(opts.Constant)
	}
	if opts.Clamp {
		m["clamp"] = value.Bool(true)
	}
	return m
}
