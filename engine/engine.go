// Package engine is the outermost seam of the stack: it defines the
// external columnar-execution contract the rest of the system is
// built against (spec §3 "Explicitly OUT of scope ... the columnar
// execution engine itself (assumed to provide execute_plan(LogicalPlan)
// -> Table)"), and resolves a chart's server-side outputs by evaluating
// package task graph nodes (as built by package planner's
// BuildTaskGraph) through one shared task.Runtime. Engine itself holds
// and calls no Executor.
package engine

import (
	"context"
	"fmt"

	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/task"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/variable"
)

// Executor runs a compiled relational plan (package sqlgen's input
// type) against whatever columnar engine the embedding application
// provides and returns the materialised result. This is the one
// collaborator boundary spec §3 places outside the core's scope;
// package engine never implements one itself; see
// var _ Executor = ... assertions in tests for the shape a caller's
// concrete binding takes.
type Executor interface {
	ExecutePlan(ctx context.Context, plan expr.LogicalPlan) (value.Table, error)
}

// Engine resolves requested outputs from a task graph, sharing one
// Runtime (and therefore one fingerprint cache) across every request.
type Engine struct {
	runtime *task.Runtime
	nodes   map[string]*task.Node
}

// New builds an Engine over the given named nodes (keyed by
// ScopedVariable.Key(), typically the map package planner's
// BuildTaskGraph returns for a server spec) with a cache of the
// given capacity (spec §4.H / §5: "memoising in a bounded cache").
func New(nodes map[string]*task.Node, cacheCapacity int) *Engine {
	return &Engine{runtime: task.NewRuntime(cacheCapacity), nodes: nodes}
}

// Resolve evaluates the named variable's node (and, transitively, its
// ancestors), returning its Result.
func (e *Engine) Resolve(ctx context.Context, key string) (task.Result, error) {
	n, ok := e.nodes[key]
	if !ok {
		return task.Result{}, fmt.Errorf("engine: no task graph node registered for %q", key)
	}
	return e.runtime.Get(ctx, n)
}

// ResolveAll evaluates every one of the given variables concurrently,
// sharing the Engine's cache, and returns their Results in the same
// order (spec §5: "each node spawns one sub-computation per parent
// edge and joins them before invoking its own evaluator" generalises
// here to a flat batch of independent root requests).
func (e *Engine) ResolveAll(ctx context.Context, vars []variable.ScopedVariable) ([]task.Result, error) {
	nodes := make([]*task.Node, len(vars))
	for i, v := range vars {
		n, ok := e.nodes[v.Key()]
		if !ok {
			return nil, fmt.Errorf("engine: no task graph node registered for %q", v.Key())
		}
		nodes[i] = n
	}
	return e.runtime.GetAll(ctx, nodes)
}
