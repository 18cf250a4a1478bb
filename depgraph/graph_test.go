package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/depgraph"
	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/variable"
)

func scopedSignal(name string) variable.ScopedVariable {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: name}, Scope: variable.Scope{}}
}

func scopedData(name string) variable.ScopedVariable {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: name}, Scope: variable.Scope{}}
}

func TestBuild_SignalDependsOnData(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv", Transform: []ispec.TransformSpec{{Type: "filter", Expr: map[string]string{"expr": "datum.x > 0"}}}},
		},
		Signals: []ispec.SignalSpec{
			{Name: "count", Update: "length(data('source'))"},
		},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)

	selected := g.Select()
	require.Equal(depgraph.Supported, selected[scopedData("source").Key()])
	require.Equal([]string{scopedData("source").Key()}, g.Parents(scopedSignal("count").Key()))
	_, countSelected := selected[scopedSignal("count").Key()]
	require.False(countSelected) // nothing server-side consumes count, so pass 2 prunes it
}

func TestSelect_SelectionStoreIsMirrored(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{{Name: "brush_store"}},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()
	require.Equal(depgraph.Mirrored, selected[scopedData("brush_store").Key()])
}

func TestSelect_DownstreamOfUnsupportedIsDropped(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "raw", URL: "data.csv", Transform: []ispec.TransformSpec{{Type: "geopoint"}}}, // unsupported kind
			{Name: "derived", Source: "raw"},
		},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()

	_, rawOK := selected[scopedData("raw").Key()]
	require.False(rawOK)
	_, derivedOK := selected[scopedData("derived").Key()]
	require.False(derivedOK)
}

func TestSelect_PartiallySupportedDataWithUnsupportedSignalParent(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "good", URL: "data.csv"},
			{Name: "joined", Transform: []ispec.TransformSpec{
				{Type: "formula", Expr: map[string]string{
					"expr": "length(data('good')) + bad_signal",
					"as":   "n",
				}},
			}},
		},
		Signals: []ispec.SignalSpec{
			{Name: "bad_signal", Update: "((("},
		},
	}

	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()

	require.Equal(depgraph.Supported, selected[scopedData("good").Key()])
	_, signalOK := selected[scopedSignal("bad_signal").Key()]
	require.False(signalOK)
	require.Equal(depgraph.PartiallySupported, selected[scopedData("joined").Key()])
}

func TestSelect_SignalNotFeedingServerStaysUnselected(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Signals: []ispec.SignalSpec{
			{Name: "tooltip_text", Update: "'hello'"},
		},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()
	_, ok := selected[scopedSignal("tooltip_text").Key()]
	require.False(ok)
}

func TestBuild_GroupMarkFacetIsMirrored(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{{Name: "source", URL: "data.csv"}},
		Marks: []ispec.MarkSpec{
			{
				Type: ispec.GroupMarkType,
				From: &ispec.MarkFrom{Facet: &ispec.MarkFacet{Name: "facet", Data: "source"}},
			},
		},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()

	facetKey := variable.ScopedVariable{
		Var:   variable.Variable{Namespace: variable.Data, Name: "facet"},
		Scope: variable.Scope{}.Child(0),
	}.Key()
	require.Equal(depgraph.Mirrored, selected[facetKey])
}

func TestWidthHeight_UnsupportedWhenAutosizeFits(t *testing.T) {
	require := require.New(t)
	w := 300.0
	spec := &ispec.ChartSpec{
		Width:    &w,
		Autosize: &ispec.AutosizeSpec{Type: ispec.AutosizeFit},
	}
	g, err := depgraph.Build(spec)
	require.NoError(err)
	selected := g.Select()
	_, ok := selected[scopedSignal("width").Key()]
	require.False(ok)
}
