package scale

import (
	"fmt"

	"github.com/vegafusion-go/vf/value"
)

// RangeSpec is the resolved shape of a scale's `range` attribute
// (spec §4.F step 5); exactly one field is set.
type RangeSpec struct {
	Literal []value.Scalar
	Named   string    // "width" | "height" | "category" | "diverging" | "heatmap" | "ramp" | "ordinal" | ...
	Scheme  *SchemeRef
	Step    *StepRef
}

// SchemeRef is the `{scheme, extent?, count?}` range variant.
type SchemeRef struct {
	Name   string
	Extent [2]float64 // defaults to [0,1] when unset
	Count  int         // 0 means "use the domain size"
}

// StepRef is the `{step}` range variant, computed against the
// resolved discrete domain size (spec §4.F step 5: band/point spacing).
type StepRef struct {
	Step float64
}

// SignalScope supplies the chart's current width/height for the
// "width"/"height" named range aliases (spec §4.F step 5).
type SignalScope struct {
	Width, Height float64
}

// category10 mirrors d3/Vega's default categorical palette; the
// smallest useful slice of the reference scheme registry, since no
// chart-rendering crate survived the retrieval filter to transcribe
// the full set from.
var category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// continuousSchemes is a minimal registry of two-stop hex gradients for
// `{scheme: "..."}` continuous ranges; sampling interpolates linearly
// in RGB space between the named scheme's stops (spec §4.F step 5).
var continuousSchemes = map[string][2]string{
	"blues":    {"#f7fbff", "#08306b"},
	"viridis":  {"#440154", "#fde725"},
	"greys":    {"#ffffff", "#000000"},
	"oranges":  {"#fff5eb", "#7f2704"},
	"reds":     {"#fff5f0", "#67000d"},
}

var namedDiscreteSchemes = map[string][]string{
	"category": category10,
	"ordinal":  category10,
}

// ResolveRange computes a scale's range values (spec §4.F step 5).
// domainSize is the resolved domain's length, needed by `{step}` ranges
// and by discrete scheme sampling; continuous is whether the owning
// scale type is continuous (step spacing uses a band-style formula
// either way, per spec, since step ranges only ever apply to
// band/point scales).
func ResolveRange(spec RangeSpec, domainSize int, scope SignalScope, continuous bool, padding, paddingInner, paddingOuter float64) ([]value.Scalar, error) {
	switch {
	case spec.Literal != nil:
		return spec.Literal, nil

	case spec.Named != "":
		switch spec.Named {
		case "width":
			return []value.Scalar{value.Float64(0), value.Float64(scope.Width)}, nil
		case "height":
			// height is inverted for continuous scales (spec §4.F step 5).
			if continuous {
				return []value.Scalar{value.Float64(scope.Height), value.Float64(0)}, nil
			}
			return []value.Scalar{value.Float64(0), value.Float64(scope.Height)}, nil
		default:
			if colors, ok := namedDiscreteSchemes[spec.Named]; ok {
				return sampleDiscretePalette(colors, domainSize), nil
			}
			return nil, fmt.Errorf("scale: unknown named range %q", spec.Named)
		}

	case spec.Scheme != nil:
		s := spec.Scheme
		count := s.Count
		if count == 0 {
			count = domainSize
		}
		if colors, ok := namedDiscreteSchemes[s.Name]; ok {
			return sampleDiscretePalette(colors, count), nil
		}
		stops, ok := continuousSchemes[s.Name]
		if !ok {
			return nil, fmt.Errorf("scale: unknown scheme %q", s.Name)
		}
		extent := s.Extent
		if extent == [2]float64{} {
			extent = [2]float64{0, 1}
		}
		if !continuous {
			return sampleContinuousSchemeDiscrete(stops, count, extent), nil
		}
		lo, _ := hexToRGB(stops[0])
		hi, _ := hexToRGB(stops[1])
		return []value.Scalar{
			value.String(lerpHex(lo, hi, extent[0])),
			value.String(lerpHex(lo, hi, extent[1])),
		}, nil

	case spec.Step != nil:
		inner := paddingInner
		outer := paddingOuter
		n := float64(domainSize) - inner + 2*outer
		if n < 1 {
			n = 1
		}
		size := spec.Step.Step * n
		return []value.Scalar{value.Float64(0), value.Float64(size)}, nil
	}
	return nil, fmt.Errorf("scale: empty range spec")
}

func sampleDiscretePalette(colors []string, n int) []value.Scalar {
	out := make([]value.Scalar, n)
	for i := 0; i < n; i++ {
		out[i] = value.String(colors[i%len(colors)])
	}
	return out
}

// sampleContinuousSchemeDiscrete samples n evenly-spaced interior
// points of a continuous scheme for use as a discrete palette (spec
// §4.F step 5: "quantile-style interior sampling for discrete scales").
func sampleContinuousSchemeDiscrete(stops [2]string, n int, extent [2]float64) []value.Scalar {
	lo, _ := hexToRGB(stops[0])
	hi, _ := hexToRGB(stops[1])
	out := make([]value.Scalar, n)
	for i := 0; i < n; i++ {
		t := extent[0]
		if n > 1 {
			frac := float64(i) / float64(n-1)
			t = extent[0] + frac*(extent[1]-extent[0])
		}
		out[i] = value.String(lerpHex(lo, hi, t))
	}
	return out
}

func hexToRGB(hex string) ([3]int, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return [3]int{}, false
	}
	var r, g, b int
	_, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return [3]int{r, g, b}, err == nil
}

func lerpHex(lo, hi [3]int, t float64) string {
	r := int(float64(lo[0]) + t*float64(hi[0]-lo[0]))
	g := int(float64(lo[1]) + t*float64(hi[1]-lo[1]))
	b := int(float64(lo[2]) + t*float64(hi[2]-lo[2]))
	return fmt.Sprintf("#%02x%02x%02x", clampByte(r), clampByte(g), clampByte(b))
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
