package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/planner"
	"github.com/vegafusion-go/vf/task"
	"github.com/vegafusion-go/vf/variable"
)

type fakeFetcher struct{ body []byte }

func (f fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.body, nil
}

func dataVar(name string) string {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: name}}.Key()
}

func scaleVar(name string) string {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Scale, Name: name}}.Key()
}

func TestBuildTaskGraph_URLBackedDataset(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv"},
		},
	}

	nodes, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{
		Fetcher: fakeFetcher{body: []byte("a,b\n1,2\n3,4\n")},
	})
	require.NoError(err)

	n, ok := nodes[dataVar("source")]
	require.True(ok)
	require.IsType(&task.DataUrlTask{}, n.Task)
	require.Empty(n.Parents)
}

func TestBuildTaskGraph_SourceChainWiresParent(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv"},
			{Name: "derived", Source: "source"},
		},
	}

	nodes, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{
		Fetcher: fakeFetcher{body: []byte("a,b\n1,2\n")},
	})
	require.NoError(err)

	derived, ok := nodes[dataVar("derived")]
	require.True(ok)
	require.IsType(&task.DataSourceTask{}, derived.Task)
	require.Len(derived.Parents, 1)
	require.Same(nodes[dataVar("source")], derived.Parents[0])
}

func TestBuildTaskGraph_InlineValuesDataset(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "inline", Values: []byte(`[{"x":1},{"x":2}]`)},
		},
	}

	nodes, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{})
	require.NoError(err)

	n, ok := nodes[dataVar("inline")]
	require.True(ok)
	require.IsType(&task.DataValuesTask{}, n.Task)
}

func TestBuildTaskGraph_ScaleWithLiteralDomain(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Scales: []ispec.ScaleSpec{
			{Name: "x", Type: "linear", Domain: []byte(`[0, 100]`), Range: []byte(`"width"`)},
		},
	}

	nodes, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{})
	require.NoError(err)

	n, ok := nodes[scaleVar("x")]
	require.True(ok)
	require.IsType(&task.ScaleTask{}, n.Task)
	require.Empty(n.Parents)
}

func TestBuildTaskGraph_ScaleWithFieldDomainWiresDataParent(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "source", URL: "data.csv"},
		},
		Scales: []ispec.ScaleSpec{
			{
				Name:   "y",
				Type:   "ordinal",
				Domain: []byte(`{"data":"source","field":"category","sort":{"op":"min","field":"rank"}}`),
				Range:  []byte(`{"scheme":"category10"}`),
			},
		},
	}

	nodes, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{
		Fetcher: fakeFetcher{body: []byte("category,rank\nB,2\nA,1\n")},
	})
	require.NoError(err)

	scaleNode, ok := nodes[scaleVar("y")]
	require.True(ok)
	require.Len(scaleNode.Parents, 1)
	require.Same(nodes[dataVar("source")], scaleNode.Parents[0])
}

func TestBuildTaskGraph_UnknownSourceReferenceErrors(t *testing.T) {
	require := require.New(t)
	spec := &ispec.ChartSpec{
		Data: []ispec.DataSpec{
			{Name: "derived", Source: "missing"},
		},
	}

	_, err := planner.BuildTaskGraph(spec, planner.TaskGraphConfig{})
	require.Error(err)
}
