// Package task implements the task graph and runtime (spec §4.H): the
// five task kinds (Value, DataUrl, DataValues, DataSource, Scale), a
// content-hash fingerprint scheme, and a runtime that memoises node
// evaluation in a bounded, concurrency-safe cache. Grounded on
// original_source/vegafusion-runtime/src/task_graph/runtime.rs's
// get_or_compute_node_value/query_request shape, adapted to Go's
// errgroup/singleflight idiom in place of futures_util::future::try_join_all
// and an async_recursion cache guard.
package task

import (
	"context"

	"github.com/vegafusion-go/vf/scale"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/variable"
)

// Kind enumerates the task contracts spec §4.H defines.
type Kind int

const (
	ValueKind Kind = iota
	DataUrlKind
	DataValuesKind
	DataSourceKind
	ScaleKind
)

func (k Kind) String() string {
	switch k {
	case ValueKind:
		return "value"
	case DataUrlKind:
		return "data-url"
	case DataValuesKind:
		return "data-values"
	case DataSourceKind:
		return "data-source"
	case ScaleKind:
		return "scale"
	default:
		return "unknown"
	}
}

// TzConfig is the timezone contract every task carries (spec §4.H:
// "absent tz when any timezone-dependent operation is required is a
// hard error, not a silent fallback").
type TzConfig struct {
	LocalTz        string
	DefaultInputTz string
}

// Result is the value a task produces: exactly one of Scalar/Table/Scale
// is set, mirroring the reference's tagged TaskValue union.
type Result struct {
	Scalar *value.Scalar
	Table  *value.Table
	Scale  *scale.State
	// Warnings carries row-limit truncation notices (spec §4.H: "when
	// truncation occurs, a warning is surfaced to the caller, never
	// silently discarded") and any other non-fatal task-level notice.
	Warnings []string
}

// Task is one node's evaluation contract: Eval receives its parents'
// already-resolved Results, in the order Node.Parents lists them.
type Task interface {
	Kind() Kind
	Variable() variable.ScopedVariable
	// Fingerprint hashes this task's own parameters only (not its
	// parents' — Node.Fingerprint folds those in, spec §4.H: "content-
	// hashed state_fingerprint combining the task's own parameters with
	// fingerprints of its parents").
	Fingerprint() string
	Eval(ctx context.Context, parents []Result) (Result, error)
}

// Uncached reports whether a task kind must always re-run rather than
// be served from the runtime's cache (spec §4.H: "Value: ... not
// cached").
func Uncached(k Kind) bool { return k == ValueKind }
