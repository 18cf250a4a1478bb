package scale

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/value"
)

// Options carries the scale attributes the resolver reads besides
// domain/range/reverse (spec §4.F step 1: "resolve options ... already
// evaluated" — signal-valued attributes are expected to have been
// evaluated by the caller before reaching the resolver).
type Options struct {
	Zero         *bool
	Clamp        bool
	Base         float64
	Exponent     float64
	Constant     float64
	Padding      float64
	PaddingInner float64
	PaddingOuter float64
	DomainMin    *float64
	DomainMax    *float64
	DomainMidSet bool
}

// FieldRef is the `{data, field, sort?}` domain variant.
type FieldRef struct {
	Data  string
	Field string
	Sort  *Sort
}

// FieldsRef is the `{data, fields:[...], sort?}` multi-column merge
// variant; len(Data) == len(Fields) when domains draw from distinct
// datasets, or a single shared Data with multiple Fields.
type FieldsRef struct {
	Data   []string
	Fields []string
	Sort   *Sort
}

// DomainSpec is the resolved shape of a scale's `domain` attribute
// (spec §4.F step 2); exactly one of Literal/Field/Fields/Raw is set.
type DomainSpec struct {
	Literal []value.Scalar
	Field   *FieldRef
	Fields  *FieldsRef
	Raw     []value.Scalar // domainRaw override, takes precedence over all else
}

// Sort is the discrete-domain `sort` attribute (spec §4.F step 3).
type Sort struct {
	False      bool   // explicit `sort: false` -> first-seen order
	ByKey      bool   // `sort: true` or `{field:"key", ...}`
	Descending bool
	Op         string // aggregate op name ("" means key sort or no-op)
	Field      string // metric source field for Op
}

// DataProvider resolves a named dataset's named column to values, for
// field-reference domains (spec §4.F step 2).
type DataProvider interface {
	Column(data, field string) ([]value.Scalar, bool)
}

// ResolveDomain computes a scale's (possibly discrete-sorted, possibly
// normalised) domain values from a DomainSpec (spec §4.F steps 2-4).
func ResolveDomain(spec DomainSpec, typ Type, data DataProvider) ([]value.Scalar, error) {
	if spec.Raw != nil {
		return spec.Raw, nil
	}

	var values []value.Scalar
	var metrics []value.Scalar // sort metric source, parallel to values; nil means "same as values"
	var sortSpec *Sort
	multiSource := false

	switch {
	case spec.Literal != nil:
		values = spec.Literal
	case spec.Field != nil:
		col, ok := data.Column(spec.Field.Data, spec.Field.Field)
		if !ok {
			return nil, fmt.Errorf("scale: unknown data/field %q/%q", spec.Field.Data, spec.Field.Field)
		}
		values = col
		sortSpec = spec.Field.Sort
		if sortSpec != nil && sortSpec.Op != "" && sortSpec.Op != "count" &&
			sortSpec.Field != "" && sortSpec.Field != spec.Field.Field {
			metricCol, ok := data.Column(spec.Field.Data, sortSpec.Field)
			if !ok {
				return nil, fmt.Errorf("scale: unknown sort metric data/field %q/%q", spec.Field.Data, sortSpec.Field)
			}
			if len(metricCol) != len(values) {
				return nil, fmt.Errorf("scale: sort metric field %q has %d rows, domain field %q has %d",
					sortSpec.Field, len(metricCol), spec.Field.Field, len(values))
			}
			metrics = metricCol
		}
	case spec.Fields != nil:
		multiSource = len(uniqueStrings(spec.Fields.Data)) > 1
		for i, f := range spec.Fields.Fields {
			dataName := spec.Fields.Data[0]
			if i < len(spec.Fields.Data) {
				dataName = spec.Fields.Data[i]
			}
			col, ok := data.Column(dataName, f)
			if !ok {
				return nil, fmt.Errorf("scale: unknown data/field %q/%q", dataName, f)
			}
			values = append(values, col...)
		}
		sortSpec = spec.Fields.Sort
	default:
		return nil, fmt.Errorf("scale: empty domain spec")
	}

	if !typ.Continuous() {
		entries := buildDomainEntries(values, metrics)
		if sortSpec != nil && multiSource {
			if sortSpec.Op != "" && sortSpec.Op != "min" && sortSpec.Op != "max" && sortSpec.Op != "count" {
				return nil, fmt.Errorf("scale: multi-source domain only supports min/max/count sort ops, got %q", sortSpec.Op)
			}
		}
		sorted := SortDiscreteDomain(entries, sortSpec)
		return normalizeDiscreteDomain(sorted), nil
	}

	return values, nil
}

func uniqueStrings(xs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// domainEntry is one distinct discrete domain key plus the data it was
// derived from, used to compute sort metrics and break first-seen ties.
type domainEntry struct {
	key       value.Scalar
	firstSeen int
	count     int
	values    []value.Scalar // sort-metric source values that produced this key, for min/max/sum/etc.
}

// buildDomainEntries groups values into distinct discrete keys. metrics,
// when non-nil, is the sort metric's own column (spec §4.F step 3's
// "sort: {field, op}" can name a field distinct from the domain field
// itself); each domainEntry.values then accumulates metrics[i] rather
// than values[i], so aggregateMetric operates on the right column. A nil
// metrics (or a metrics slice shorter than values, which callers never
// produce) falls back to the domain values themselves.
func buildDomainEntries(values, metrics []value.Scalar) []domainEntry {
	index := map[string]int{}
	var entries []domainEntry
	for i, v := range values {
		m := v
		if metrics != nil && i < len(metrics) {
			m = metrics[i]
		}
		k := keyString(v)
		if idx, ok := index[k]; ok {
			entries[idx].count++
			entries[idx].values = append(entries[idx].values, m)
			continue
		}
		index[k] = len(entries)
		entries = append(entries, domainEntry{key: v, firstSeen: len(entries), count: 1, values: []value.Scalar{m}})
	}
	return entries
}

func keyString(v value.Scalar) string {
	if v.IsNull() {
		return "\x00null"
	}
	return v.String()
}

// SortDiscreteDomain implements the decision table from spec §4.F step
// 3 over pre-aggregated domain entries.
//
//   - nil or {False: true}           -> first-seen order
//   - {ByKey: true}, no Op           -> key-ascending (or descending)
//   - {Op: "count"}                  -> by occurrence count
//   - {Op: one of the Vega aggregate set, Field: set} -> by that metric
//   - {Field: set, Op: ""} (not ByKey) -> no-op (first-seen), matching
//     the reference runtime's behavior for a field-only sort with no op
//
// Ties always break by first-seen index; nulls sort less than non-nulls.
func SortDiscreteDomain(entries []domainEntry, s *Sort) []value.Scalar {
	out := make([]domainEntry, len(entries))
	copy(out, entries)

	if s == nil || s.False {
		sort.SliceStable(out, func(i, j int) bool { return out[i].firstSeen < out[j].firstSeen })
		return keysOf(out)
	}

	switch {
	case s.ByKey:
		sort.SliceStable(out, func(i, j int) bool {
			return lessKey(out[i].key, out[j].key, out[i].firstSeen, out[j].firstSeen, s.Descending)
		})
	case s.Op == "count":
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].count != out[j].count {
				if s.Descending {
					return out[i].count > out[j].count
				}
				return out[i].count < out[j].count
			}
			return out[i].firstSeen < out[j].firstSeen
		})
	case s.Op != "" && s.Field != "":
		metrics := make([]float64, len(out))
		for i, e := range out {
			metrics[i] = aggregateMetric(e.values, s.Op)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if metrics[i] != metrics[j] {
				if s.Descending {
					return metrics[i] > metrics[j]
				}
				return metrics[i] < metrics[j]
			}
			return out[i].firstSeen < out[j].firstSeen
		})
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].firstSeen < out[j].firstSeen })
	}
	return keysOf(out)
}

func keysOf(entries []domainEntry) []value.Scalar {
	out := make([]value.Scalar, len(entries))
	for i, e := range entries {
		out[i] = e.key
	}
	return out
}

func lessKey(a, b value.Scalar, aFirst, bFirst int, descending bool) bool {
	if a.IsNull() != b.IsNull() {
		return !a.IsNull() == descending // nulls sort less than non-nulls regardless of direction
	}
	if a.IsNull() {
		return aFirst < bFirst
	}
	if as, ok := a.AsString(); ok {
		if bs, ok2 := b.AsString(); ok2 {
			if as == bs {
				return aFirst < bFirst
			}
			if descending {
				return as > bs
			}
			return as < bs
		}
	}
	if af, ok := a.AsFloat64(); ok {
		if bf, ok2 := b.AsFloat64(); ok2 {
			if af == bf {
				return aFirst < bFirst
			}
			if descending {
				return af > bf
			}
			return af < bf
		}
	}
	return aFirst < bFirst
}

// aggregateMetric computes one of the Vega-standard aggregate ops
// (spec §4.F step 3) over a discrete key's raw contributing values.
func aggregateMetric(values []value.Scalar, op string) float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.AsFloat64(); ok {
			nums = append(nums, f)
		}
	}
	switch strings.ToLower(op) {
	case "count":
		return float64(len(values))
	case "valid":
		return float64(len(nums))
	case "missing":
		return float64(len(values) - len(nums))
	case "distinct":
		seen := map[string]bool{}
		for _, v := range values {
			seen[keyString(v)] = true
		}
		return float64(len(seen))
	case "min":
		return reduceFloats(nums, func(a, b float64) float64 { return minF(a, b) })
	case "max":
		return reduceFloats(nums, func(a, b float64) float64 { return maxF(a, b) })
	case "sum":
		return decimalSum(nums).InexactFloat64()
	case "product":
		acc := decimal.NewFromInt(1)
		for _, n := range nums {
			acc = acc.Mul(decimal.NewFromFloat(n))
		}
		return acc.InexactFloat64()
	case "mean", "average":
		if len(nums) == 0 {
			return 0
		}
		return decimalSum(nums).Div(decimal.NewFromInt(int64(len(nums)))).InexactFloat64()
	case "median":
		return percentile(nums, 0.5)
	case "q1":
		return percentile(nums, 0.25)
	case "q3":
		return percentile(nums, 0.75)
	default:
		// variance/variancep/stdev/stdevp/stderr: population-vs-sample
		// variants of the same two-pass computation.
		return variance(nums, op)
	}
}

// decimalSum accumulates nums through decimal.Decimal rather than
// float64, avoiding the compounding rounding error plain float
// addition accrues over long aggregate columns (spec §4.F step 3's
// sort-by-aggregate-metric case can run over an entire discrete
// domain's worth of rows).
func decimalSum(nums []float64) decimal.Decimal {
	acc := decimal.Zero
	for _, n := range nums {
		acc = acc.Add(decimal.NewFromFloat(n))
	}
	return acc
}

func reduceFloats(nums []float64, f func(a, b float64) float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	acc := nums[0]
	for _, n := range nums[1:] {
		acc = f(acc, n)
	}
	return acc
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func percentile(nums []float64, p float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sorted := append([]float64{}, nums...)
	sort.Float64s(sorted)
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func variance(nums []float64, op string) float64 {
	if len(nums) == 0 {
		return 0
	}
	mean := 0.0
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	ss := 0.0
	for _, n := range nums {
		ss += (n - mean) * (n - mean)
	}
	population := strings.HasSuffix(op, "p")
	denom := float64(len(nums) - 1)
	if population || denom <= 0 {
		denom = float64(len(nums))
	}
	v := ss / denom
	switch {
	case strings.HasPrefix(op, "variance"):
		return v
	case strings.HasPrefix(op, "stdev"):
		return sqrt(v)
	case op == "stderr":
		return sqrt(v) / sqrt(float64(len(nums)))
	default:
		return v
	}
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// normalizeDiscreteDomain applies spec §4.F step 4: temporal keys are
// left as Int64 ms (already that shape by the time they reach here
// from the column reader), unsigned integers become Int64, booleans
// become their "true"/"false" string form, and nulls become the
// reserved sentinel so discrete equality never needs a null special
// case downstream.
func normalizeDiscreteDomain(values []value.Scalar) []value.Scalar {
	out := make([]value.Scalar, len(values))
	for i, v := range values {
		switch {
		case v.IsNull():
			out[i] = value.String(DiscreteNullSentinel)
		case v.Typ == expr.Bool:
			if b, ok := v.AsBool(); ok {
				if b {
					out[i] = value.String("true")
				} else {
					out[i] = value.String("false")
				}
				continue
			}
			out[i] = v
		default:
			out[i] = v
		}
	}
	return out
}
