package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/engine"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/task"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/variable"
)

// fakeExecutor is a minimal Executor stand-in; a real binding would
// delegate to whatever columnar engine the embedding application
// chooses (DataFusion, DuckDB, an in-process Arrow compute layer),
// which is exactly the seam spec §3 places outside this core's scope.
type fakeExecutor struct{ rows int64 }

func (f *fakeExecutor) ExecutePlan(context.Context, expr.LogicalPlan) (value.Table, error) {
	return value.Table{}, nil
}

var _ engine.Executor = (*fakeExecutor)(nil)

type constTask struct {
	v   variable.ScopedVariable
	val int64
}

func (c *constTask) Kind() task.Kind                  { return task.ValueKind }
func (c *constTask) Variable() variable.ScopedVariable { return c.v }
func (c *constTask) Fingerprint() string              { return c.v.Key() }
func (c *constTask) Eval(context.Context, []task.Result) (task.Result, error) {
	v := value.Int64(c.val)
	return task.Result{Scalar: &v}, nil
}

func sv(name string) variable.ScopedVariable {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: name}}
}

func TestEngine_ResolveEvaluatesRegisteredNode(t *testing.T) {
	require := require.New(t)
	v := sv("width")
	node := task.NewNode(&constTask{v: v, val: 42})

	e := engine.New(map[string]*task.Node{v.Key(): node}, 8)
	res, err := e.Resolve(context.Background(), v.Key())
	require.NoError(err)
	require.Equal(int64(42), res.Scalar.Value)
}

func TestEngine_ResolveUnknownKeyErrors(t *testing.T) {
	require := require.New(t)
	e := engine.New(map[string]*task.Node{}, 8)
	_, err := e.Resolve(context.Background(), "signal:missing[]")
	require.Error(err)
}

func TestEngine_ResolveAllReturnsInOrder(t *testing.T) {
	require := require.New(t)
	vA, vB := sv("a"), sv("b")
	nodeA := task.NewNode(&constTask{v: vA, val: 1})
	nodeB := task.NewNode(&constTask{v: vB, val: 2})

	e := engine.New(map[string]*task.Node{vA.Key(): nodeA, vB.Key(): nodeB}, 8)
	results, err := e.ResolveAll(context.Background(), []variable.ScopedVariable{vB, vA})
	require.NoError(err)
	require.Len(results, 2)
	require.Equal(int64(2), results[0].Scalar.Value)
	require.Equal(int64(1), results[1].Scalar.Value)
}
