package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/planner"
	"github.com/vegafusion-go/vf/variable"
)

func TestBuild_SupportedDataMovesToServerAndStubsClient(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv", Transform: []ispec.TransformSpec{
				{Type: "filter", Expr: map[string]string{"expr": "datum.x > 0"}},
			}},
		},
	}

	plan, err := planner.Build(spec, planner.Config{})
	require.NoError(err)
	require.NotEmpty(plan.PlanID)

	require.Len(plan.ServerSpec.Data, 1)
	require.Equal("source", plan.ServerSpec.Data[0].Name)
	require.Equal("data.csv", plan.ServerSpec.Data[0].URL)

	require.Len(plan.ClientSpec.Data, 1)
	require.Equal("source", plan.ClientSpec.Data[0].Name)
	require.Empty(plan.ClientSpec.Data[0].URL)
	require.Empty(plan.ClientSpec.Data[0].Transform)
}

func TestBuild_MirroredSelectionStoreStaysOnBothSides(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{{Name: "brush_store"}},
	}

	plan, err := planner.Build(spec, planner.Config{})
	require.NoError(err)

	require.Len(plan.ServerSpec.Data, 1)
	require.Len(plan.ClientSpec.Data, 1)
	require.Equal("brush_store", plan.ClientSpec.Data[0].Name)
}

func TestBuild_KeepVariablesSkipsExtraction(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv", Transform: []ispec.TransformSpec{
				{Type: "filter", Expr: map[string]string{"expr": "datum.x > 0"}},
			}},
		},
	}

	plan, err := planner.Build(spec, planner.Config{
		KeepVariables: []variable.ScopedVariable{
			{Var: variable.Variable{Namespace: variable.Data, Name: "source"}},
		},
	})
	require.NoError(err)

	require.Equal("data.csv", plan.ClientSpec.Data[0].URL)
	require.NotEmpty(plan.ClientSpec.Data[0].Transform)
}

func TestBuild_UnsupportedDownstreamOfGeopointStaysClientOnly(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "raw", URL: "data.csv", Transform: []ispec.TransformSpec{{Type: "geopoint"}}},
			{Name: "derived", Source: "raw"},
		},
	}

	plan, err := planner.Build(spec, planner.Config{})
	require.NoError(err)

	require.Equal("data.csv", plan.ClientSpec.Data[0].URL, "unsupported data stays client-side untouched")
	require.Equal("raw", plan.ClientSpec.Data[1].Source)
}

func TestBuild_ServerToClientCommPlanListsBoundaryCrossings(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv", Transform: []ispec.TransformSpec{
				{Type: "filter", Expr: map[string]string{"expr": "datum.x > 0"}},
			}},
		},
		Signals: []ispec.SignalSpec{
			{Name: "count", Update: "length(data('source'))", Bind: []byte(`{"input":"range"}`)},
		},
	}

	plan, err := planner.Build(spec, planner.Config{})
	require.NoError(err)

	var names []string
	for _, v := range plan.CommPlan.ServerToClient {
		names = append(names, v.Var.Name)
	}
	require.Contains(names, "source")
}
