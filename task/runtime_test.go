package task_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/task"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/variable"
)

type countingTask struct {
	v     variable.ScopedVariable
	fp    string
	calls int32
}

func (c *countingTask) Kind() task.Kind                        { return task.DataSourceKind }
func (c *countingTask) Variable() variable.ScopedVariable       { return c.v }
func (c *countingTask) Fingerprint() string                     { return c.fp }
func (c *countingTask) Eval(context.Context, []task.Result) (task.Result, error) {
	atomic.AddInt32(&c.calls, 1)
	v := value.Int64(int64(c.calls))
	return task.Result{Scalar: &v}, nil
}

func scopedVar(name string) variable.ScopedVariable {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: name}}
}

func TestRuntime_CachesByFingerprint(t *testing.T) {
	require := require.New(t)
	rt := task.NewRuntime(8)
	ct := &countingTask{v: scopedVar("x"), fp: "fp-1"}
	node := task.NewNode(ct)

	r1, err := rt.Get(context.Background(), node)
	require.NoError(err)
	r2, err := rt.Get(context.Background(), node)
	require.NoError(err)
	require.Equal(int32(1), ct.calls)
	require.Equal(r1.Scalar.Value, r2.Scalar.Value)
}

func TestRuntime_ConcurrentGetsCollapseToOneEval(t *testing.T) {
	require := require.New(t)
	rt := task.NewRuntime(8)
	ct := &countingTask{v: scopedVar("x"), fp: "fp-shared"}
	node := task.NewNode(ct)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Get(context.Background(), node)
			require.NoError(err)
		}()
	}
	wg.Wait()
	require.Equal(int32(1), ct.calls)
}

func TestRuntime_ValueTaskNeverCached(t *testing.T) {
	require := require.New(t)
	rt := task.NewRuntime(8)
	vt := &task.ValueTask{Var: scopedVar("v"), Val: value.Float64(1)}
	node := task.NewNode(vt)

	r1, err := rt.Get(context.Background(), node)
	require.NoError(err)
	f1, _ := r1.Scalar.AsFloat64()
	require.Equal(1.0, f1)
	require.True(task.Uncached(vt.Kind()))
}

func TestNode_FingerprintChangesWithParent(t *testing.T) {
	require := require.New(t)
	parentA := task.NewNode(&countingTask{v: scopedVar("a"), fp: "fp-a"})
	parentB := task.NewNode(&countingTask{v: scopedVar("b"), fp: "fp-b"})

	childSameParent1 := task.NewNode(&countingTask{v: scopedVar("c"), fp: "fp-c"}, parentA)
	childSameParent2 := task.NewNode(&countingTask{v: scopedVar("c"), fp: "fp-c"}, parentA)
	childDiffParent := task.NewNode(&countingTask{v: scopedVar("c"), fp: "fp-c"}, parentB)

	require.Equal(childSameParent1.Fingerprint(), childSameParent2.Fingerprint())
	require.NotEqual(childSameParent1.Fingerprint(), childDiffParent.Fingerprint())
}

func TestDataSourceTask_RunsPipelineOverParentTable(t *testing.T) {
	require := require.New(t)
	baseTbl := value.Table{}
	calledWith := false
	pipeline := task.Pipeline{
		func(_ context.Context, in value.Table) (value.Table, error) {
			calledWith = true
			return in, nil
		},
	}
	ds := &task.DataSourceTask{Var: scopedVar("derived"), Pipeline: pipeline}
	res, err := ds.Eval(context.Background(), []task.Result{{Table: &baseTbl}})
	require.NoError(err)
	require.True(calledWith)
	require.NotNil(res.Table)
}

func TestDataUrlTask_MissingTzIsHardError(t *testing.T) {
	require := require.New(t)
	dt := &task.DataUrlTask{
		Var:    scopedVar("d"),
		URL:    "data.csv",
		Format: task.Format{RequiresTz: true},
	}
	_, err := dt.Eval(context.Background(), nil)
	require.Error(err)
}

type fakeFetcher struct{ data []byte }

func (f fakeFetcher) Fetch(context.Context, string) ([]byte, error) { return f.data, nil }

type fakeParser struct {
	tbl     value.Table
	gotType *string
}

func (f fakeParser) Parse(_ context.Context, _ []byte, format task.Format) (value.Table, error) {
	if f.gotType != nil {
		*f.gotType = format.Type
	}
	return f.tbl, nil
}

func TestDataUrlTask_DetectsFormatFromExtension(t *testing.T) {
	require := require.New(t)
	var gotType string
	dt := &task.DataUrlTask{
		Var:     scopedVar("d"),
		URL:     "https://example.com/rows.csv",
		Fetcher: fakeFetcher{data: []byte("a,b\n1,2\n")},
		Parser:  fakeParser{tbl: value.Table{}, gotType: &gotType},
	}
	res, err := dt.Eval(context.Background(), nil)
	require.NoError(err)
	require.NotNil(res.Table)
	require.Equal("csv", gotType)
}
