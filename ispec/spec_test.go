package ispec_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ispec"
)

func TestDataSpec_MirroredBySelectionStore(t *testing.T) {
	require := require.New(t)
	d := ispec.DataSpec{Name: "brush_store"}
	require.True(d.IsSelectionStore())
	require.True(d.Mirrored())
}

func TestDataSpec_MirroredByOnTrigger(t *testing.T) {
	require := require.New(t)
	d := ispec.DataSpec{Name: "points", On: []ispec.SignalOn{{Update: "x"}}}
	require.True(d.Mirrored())
}

func TestSignalSpec_HasClientBinding(t *testing.T) {
	require := require.New(t)
	s := ispec.SignalSpec{Name: "opacity", Bind: json.RawMessage(`{"input":"range"}`)}
	require.True(s.HasClientBinding())

	plain := ispec.SignalSpec{Name: "width"}
	require.False(plain.HasClientBinding())
}

func TestTransformSpec_UnmarshalCapturesExprFields(t *testing.T) {
	require := require.New(t)
	var tr ispec.TransformSpec
	err := json.Unmarshal([]byte(`{"type":"formula","expr":"datum.x + 1","as":"y"}`), &tr)
	require.NoError(err)
	require.Equal("formula", tr.Type)
	require.Equal("datum.x + 1", tr.Expr["expr"])
	require.True(tr.Supported())
}

func TestTransformSpec_ExtentCapturesSignalName(t *testing.T) {
	require := require.New(t)
	var tr ispec.TransformSpec
	err := json.Unmarshal([]byte(`{"type":"extent","field":"x","signal":"x_extent"}`), &tr)
	require.NoError(err)
	require.Equal("x_extent", tr.Signal)
}

func TestChartSpec_RoundTripsThroughJSON(t *testing.T) {
	require := require.New(t)
	raw := []byte(`{
		"width": 300,
		"signals": [{"name": "x", "update": "width / 2"}],
		"data": [{"name": "source", "url": "data.csv", "transform": [{"type":"filter","expr":"datum.x > 0"}]}],
		"marks": [{"type": "symbol", "from": {"data": "source"}, "encode": {"update": {"x": {"scale": "xscale", "field": "x"}}}}]
	}`)
	var spec ispec.ChartSpec
	require.NoError(json.Unmarshal(raw, &spec))
	require.Equal(300.0, *spec.Width)
	require.Len(spec.Signals, 1)
	require.Len(spec.Data, 1)
	require.Equal("filter", spec.Data[0].Transform[0].Type)
	require.Equal("xscale", spec.Marks[0].Encode["update"]["x"].Scale)
}
