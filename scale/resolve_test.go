package scale_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/scale"
	"github.com/vegafusion-go/vf/value"
)

type fakeData map[string]map[string][]value.Scalar

func (f fakeData) Column(data, field string) ([]value.Scalar, bool) {
	cols, ok := f[data]
	if !ok {
		return nil, false
	}
	col, ok := cols[field]
	return col, ok
}

func TestResolveDomain_LiteralArray(t *testing.T) {
	require := require.New(t)
	spec := scale.DomainSpec{Literal: []value.Scalar{value.Float64(0), value.Float64(10)}}
	out, err := scale.ResolveDomain(spec, scale.Linear, nil)
	require.NoError(err)
	require.Len(out, 2)
}

func TestResolveDomain_DiscreteSortFalseKeepsFirstSeen(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {"cat": {value.String("b"), value.String("a"), value.String("b"), value.String("c")}}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat", Sort: &scale.Sort{False: true}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"b", "a", "c"}, asStrings(out))
}

func TestResolveDomain_DiscreteSortTrueKeyAscending(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {"cat": {value.String("b"), value.String("a"), value.String("c")}}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat", Sort: &scale.Sort{ByKey: true}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"a", "b", "c"}, asStrings(out))
}

func TestResolveDomain_SortByCount(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {"cat": {
		value.String("a"), value.String("b"), value.String("b"), value.String("c"), value.String("c"), value.String("c"),
	}}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat", Sort: &scale.Sort{Op: "count", Descending: true}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"c", "b", "a"}, asStrings(out))
}

func TestResolveDomain_SortByAggregateMetric(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {
		"cat": {value.String("a"), value.String("a"), value.String("b"), value.String("b")},
	}}
	// sort by "field" aggregate metric requires the metric column to be
	// present in the same raw values; here we sort by count via field+op.
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat", Sort: &scale.Sort{Op: "count", Field: "cat"}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"a", "b"}, asStrings(out))
}

func TestResolveDomain_SortByAggregateOverDifferentField(t *testing.T) {
	require := require.New(t)
	// domain field "k" takes values A,A,B,C; the sort metric lives in a
	// separate "sort_index" column on the same dataset (min(sort_index)
	// per distinct k): A -> min(10,5)=5, B -> 20, C -> 15; sorted
	// descending.
	data := fakeData{"t": {
		"k":          {value.String("A"), value.String("A"), value.String("B"), value.String("C")},
		"sort_index": {value.Float64(10), value.Float64(5), value.Float64(20), value.Float64(15)},
	}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "t", Field: "k", Sort: &scale.Sort{Op: "min", Field: "sort_index", Descending: true}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"B", "C", "A"}, asStrings(out))
}

func TestResolveDomain_FieldOnlyNoOpIsFirstSeen(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {"cat": {value.String("z"), value.String("a")}}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat", Sort: &scale.Sort{Field: "cat"}}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"z", "a"}, asStrings(out))
}

func TestResolveDomain_NullsNormalizeToSentinel(t *testing.T) {
	require := require.New(t)
	data := fakeData{"src": {"cat": {value.String("a"), value.Null()}}}
	spec := scale.DomainSpec{Field: &scale.FieldRef{Data: "src", Field: "cat"}}
	out, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.NoError(err)
	require.Equal([]string{"a", scale.DiscreteNullSentinel}, asStrings(out))
}

func TestResolveDomain_MultiSourceRejectsUnsupportedOp(t *testing.T) {
	require := require.New(t)
	data := fakeData{
		"a": {"x": {value.Float64(1)}},
		"b": {"x": {value.Float64(2)}},
	}
	spec := scale.DomainSpec{Fields: &scale.FieldsRef{
		Data: []string{"a", "b"}, Fields: []string{"x", "x"},
		Sort: &scale.Sort{Op: "median", Field: "x"},
	}}
	_, err := scale.ResolveDomain(spec, scale.Ordinal, data)
	require.Error(err)
}

func TestResolveScale_ZeroDefaultsForLinear(t *testing.T) {
	require := require.New(t)
	spec := scale.Spec{
		Type:   scale.Linear,
		Domain: scale.DomainSpec{Literal: []value.Scalar{value.Float64(5), value.Float64(10)}},
		Range:  scale.RangeSpec{Named: "width"},
	}
	st, err := scale.ResolveScale(spec, nil, scale.SignalScope{Width: 100})
	require.NoError(err)
	lo, _ := st.Domain[0].AsFloat64()
	require.Equal(0.0, lo)
}

func TestResolveScale_DomainMidIsAnError(t *testing.T) {
	require := require.New(t)
	spec := scale.Spec{Type: scale.Linear, Options: scale.Options{DomainMidSet: true}}
	_, err := scale.ResolveScale(spec, nil, scale.SignalScope{})
	require.Error(err)
}

func TestResolveRange_HeightInvertedForContinuous(t *testing.T) {
	require := require.New(t)
	out, err := scale.ResolveRange(scale.RangeSpec{Named: "height"}, 0, scale.SignalScope{Height: 200}, true, 0, 0, 0)
	require.NoError(err)
	hi, _ := out[0].AsFloat64()
	lo, _ := out[1].AsFloat64()
	require.Equal(200.0, hi)
	require.Equal(0.0, lo)
}

func asStrings(xs []value.Scalar) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		s, _ := x.AsString()
		out[i] = s
	}
	return out
}
