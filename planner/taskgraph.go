package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/objectstore"
	"github.com/vegafusion-go/vf/scale"
	"github.com/vegafusion-go/vf/task"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/variable"
)

// TransformCompiler turns one dataset's transform pipeline into a
// task.Pipeline. BuildTaskGraph leaves this pluggable rather than
// calling into package compiler/sqlgen directly: actually running a
// transform needs the caller-supplied Executor collaborator (package
// engine), which sits outside spec §3's core scope ("the columnar
// execution engine itself ... assumed to provide execute_plan"). A nil
// TransformCompiler leaves every dataset's pipeline a no-op, which is
// still enough to exercise the fetch/parse/scale-resolve wiring this
// function exists to build.
type TransformCompiler func(dataset string, transforms []ispec.TransformSpec) (task.Pipeline, error)

// TaskGraphConfig supplies BuildTaskGraph's collaborators (spec §4.H's
// Fetcher/Parser/Decoder contracts).
type TaskGraphConfig struct {
	Fetcher          task.Fetcher
	Parser           task.Parser
	Decoder          task.Decoder
	Tz               task.TzConfig
	MaxRows          int
	CompileTransform TransformCompiler
}

func (c TaskGraphConfig) withDefaults() TaskGraphConfig {
	if c.Fetcher == nil {
		c.Fetcher = objectstore.NewDispatcher("")
	}
	if c.Parser == nil {
		c.Parser = formatDispatchParser{}
	}
	if c.Decoder == nil {
		c.Decoder = task.JSONRowsDecoder{}
	}
	return c
}

// formatDispatchParser routes to the concrete Parser for a detected
// Format.Type, the same type-then-extension dispatch DataUrlTask
// itself already runs before calling Parser.Parse (task/tasks.go's
// detectFormatFromURL).
type formatDispatchParser struct{}

func (formatDispatchParser) Parse(ctx context.Context, data []byte, format task.Format) (value.Table, error) {
	switch format.Type {
	case "csv", "tsv":
		return task.CSVParser{}.Parse(ctx, data, format)
	case "json", "":
		return task.JSONParser{}.Parse(ctx, data, format)
	default:
		return value.Table{}, fmt.Errorf("planner: no parser wired for format %q (see DESIGN.md domain stack)", format.Type)
	}
}

// BuildTaskGraph constructs concrete task.Task nodes (spec §4.H) for
// every dataset and scale in serverSpec — the step Build itself stops
// short of (spec §4.J steps 5-6), since turning a split spec into an
// evaluable graph needs the Fetcher/Parser/Decoder collaborators only a
// caller can supply. Root-scope only, matching ispec's flat data model
// (see planner.go's extractServerData doc on why scope nesting is a
// no-op here). The returned map is keyed by ScopedVariable.Key(), the
// same key package engine's New expects.
func BuildTaskGraph(serverSpec *ispec.ChartSpec, cfg TaskGraphConfig) (map[string]*task.Node, error) {
	cfg = cfg.withDefaults()
	nodes := map[string]*task.Node{}
	building := map[string]bool{}

	bySource := map[string]ispec.DataSpec{}
	for _, d := range serverSpec.Data {
		bySource[d.Name] = d
	}

	var buildData func(name string) (*task.Node, error)
	buildData = func(name string) (*task.Node, error) {
		key := dataKey(name)
		if n, ok := nodes[key]; ok {
			return n, nil
		}
		if building[name] {
			return nil, fmt.Errorf("planner: cyclic data source %q", name)
		}
		d, ok := bySource[name]
		if !ok {
			return nil, fmt.Errorf("planner: unknown data source %q", name)
		}
		building[name] = true
		defer delete(building, name)

		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: name}}
		pipeline, err := compileTransforms(cfg, name, d.Transform)
		if err != nil {
			return nil, err
		}

		var n *task.Node
		switch {
		case d.Source != "":
			parent, err := buildData(d.Source)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				return nil, nil
			}
			n = task.NewNode(&task.DataSourceTask{Var: sv, Pipeline: pipeline, MaxRows: cfg.MaxRows}, parent)
		case d.URL != "":
			n = task.NewNode(&task.DataUrlTask{
				Var: sv, URL: d.URL, Format: decodeFormat(d.Format), Tz: cfg.Tz,
				Fetcher: cfg.Fetcher, Parser: cfg.Parser, Pipeline: pipeline, MaxRows: cfg.MaxRows,
			})
		case len(d.Values) > 0:
			n = task.NewNode(&task.DataValuesTask{
				Var: sv, IPC: []byte(d.Values), Format: decodeFormat(d.Format), Tz: cfg.Tz,
				Decoder: cfg.Decoder, Pipeline: pipeline, MaxRows: cfg.MaxRows,
			})
		default:
			// A dataset with no source/url/values (a bare selection store,
			// e.g.) has no task-graph representation; its state lives in
			// the signal layer instead, outside this graph.
			return nil, nil
		}
		nodes[key] = n
		return n, nil
	}

	for _, d := range serverSpec.Data {
		if _, err := buildData(d.Name); err != nil {
			return nil, fmt.Errorf("planner: building data task %q: %w", d.Name, err)
		}
	}

	scope := scale.SignalScope{}
	if serverSpec.Width != nil {
		scope.Width = *serverSpec.Width
	}
	if serverSpec.Height != nil {
		scope.Height = *serverSpec.Height
	}
	runtime := task.NewRuntime(len(nodes) + len(serverSpec.Scales))
	provider := NewGraphDataProvider(runtime, nodes)

	for _, sc := range serverSpec.Scales {
		spec, err := decodeScaleSpec(sc)
		if err != nil {
			return nil, fmt.Errorf("planner: scale %q: %w", sc.Name, err)
		}
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Scale, Name: sc.Name}}
		var parents []*task.Node
		for _, dep := range scaleDataDependencies(spec) {
			if n, ok := nodes[dataKey(dep)]; ok {
				parents = append(parents, n)
			}
		}
		nodes[sv.Key()] = task.NewNode(&task.ScaleTask{Var: sv, Spec: spec, DataProvider: provider, Scope: scope}, parents...)
	}

	return nodes, nil
}

func dataKey(name string) string {
	return variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: name}}.Key()
}

func compileTransforms(cfg TaskGraphConfig, dataset string, transforms []ispec.TransformSpec) (task.Pipeline, error) {
	if cfg.CompileTransform == nil || len(transforms) == 0 {
		return nil, nil
	}
	return cfg.CompileTransform(dataset, transforms)
}

// scaleDataDependencies lists the data node names a scale's domain
// reads from, so its task.Node can carry them as graph parents (not
// consumed directly by ScaleTask.Eval, which reaches the data through
// DataProvider instead, but needed so the node's combined fingerprint
// changes whenever its source data does, spec §4.H).
func scaleDataDependencies(spec scale.Spec) []string {
	var names []string
	if spec.Domain.Field != nil {
		names = append(names, spec.Domain.Field.Data)
	}
	if spec.Domain.Fields != nil {
		names = append(names, spec.Domain.Fields.Data...)
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// graphDataProvider adapts a task graph's data nodes to scale.DataProvider,
// letting the scale resolver reach a domain's {data, field} reference by
// evaluating that node through the shared Runtime (so results stay
// memoised the same way any other consumer's Get/GetAll call would see).
// Column carries no context (scale.DataProvider's interface predates
// this graph wiring and many call sites already construct it with a nil
// context in tests), so evaluation here always runs against
// context.Background(); a request-scoped deadline belongs on the
// Runtime call that triggered this scale's own resolution.
type graphDataProvider struct {
	runtime *task.Runtime
	nodes   map[string]*task.Node
}

// NewGraphDataProvider builds a scale.DataProvider backed by runtime and
// nodes (as returned by BuildTaskGraph), exported so a caller that wants
// one shared cache across both data and scale resolution (e.g. package
// engine) can pass in its own Runtime instead of the private one
// BuildTaskGraph constructs for itself.
func NewGraphDataProvider(runtime *task.Runtime, nodes map[string]*task.Node) scale.DataProvider {
	return &graphDataProvider{runtime: runtime, nodes: nodes}
}

func (p *graphDataProvider) Column(data, field string) ([]value.Scalar, bool) {
	n, ok := p.nodes[dataKey(data)]
	if !ok {
		return nil, false
	}
	res, err := p.runtime.Get(context.Background(), n)
	if err != nil || res.Table == nil {
		return nil, false
	}
	return res.Table.Column(field)
}

// decodeFormat reads an ispec DataSpec's `format` JSON object into a
// task.Format (spec §4.H supplemented format.parse coercion table).
func decodeFormat(raw json.RawMessage) task.Format {
	if len(raw) == 0 {
		return task.Format{}
	}
	var fj struct {
		Type  string          `json:"type"`
		Parse json.RawMessage `json:"parse"`
	}
	if err := json.Unmarshal(raw, &fj); err != nil {
		return task.Format{}
	}
	var hints map[string]string
	if len(fj.Parse) > 0 {
		_ = json.Unmarshal(fj.Parse, &hints)
	}
	requiresTz := false
	for _, h := range hints {
		if h == task.HintDate {
			requiresTz = true
		}
	}
	return task.Format{Type: fj.Type, ParseHints: hints, RequiresTz: requiresTz}
}

func parseScaleType(s string) (scale.Type, error) {
	switch s {
	case "", "linear":
		return scale.Linear, nil
	case "log":
		return scale.Log, nil
	case "pow":
		return scale.Pow, nil
	case "sqrt":
		return scale.Sqrt, nil
	case "symlog":
		return scale.Symlog, nil
	case "time":
		return scale.Time, nil
	case "utc":
		return scale.Utc, nil
	case "band":
		return scale.Band, nil
	case "point":
		return scale.Point, nil
	case "ordinal":
		return scale.Ordinal, nil
	case "quantile":
		return scale.Quantile, nil
	case "quantize":
		return scale.Quantize, nil
	case "threshold":
		return scale.Threshold, nil
	case "bin-ordinal":
		return scale.BinOrdinal, nil
	default:
		return 0, fmt.Errorf("unknown scale type %q", s)
	}
}

func decodeScaleSpec(sc ispec.ScaleSpec) (scale.Spec, error) {
	typ, err := parseScaleType(sc.Type)
	if err != nil {
		return scale.Spec{}, err
	}
	domain, err := decodeDomainSpec(sc.Domain)
	if err != nil {
		return scale.Spec{}, fmt.Errorf("domain: %w", err)
	}
	rng, err := decodeRangeSpec(sc.Range)
	if err != nil {
		return scale.Spec{}, fmt.Errorf("range: %w", err)
	}
	return scale.Spec{
		Type:   typ,
		Domain: domain,
		Range:  rng,
		Options: scale.Options{
			DomainMidSet: len(sc.DomainMid) > 0,
		},
	}, nil
}

func decodeDomainSpec(raw json.RawMessage) (scale.DomainSpec, error) {
	if len(raw) == 0 {
		return scale.DomainSpec{}, fmt.Errorf("empty domain")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		lits := make([]value.Scalar, len(arr))
		for i, e := range arr {
			lits[i] = scalarFromJSON(e)
		}
		return scale.DomainSpec{Literal: lits}, nil
	}

	var obj struct {
		Data   json.RawMessage `json:"data"`
		Field  string          `json:"field"`
		Fields json.RawMessage `json:"fields"`
		Sort   json.RawMessage `json:"sort"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return scale.DomainSpec{}, fmt.Errorf("unrecognized domain shape: %w", err)
	}

	sortSpec, err := decodeSort(obj.Sort)
	if err != nil {
		return scale.DomainSpec{}, err
	}

	if len(obj.Fields) > 0 {
		var fields []string
		if err := json.Unmarshal(obj.Fields, &fields); err != nil {
			return scale.DomainSpec{}, fmt.Errorf("domain.fields: %w", err)
		}
		dataNames, err := decodeDataNames(obj.Data, len(fields))
		if err != nil {
			return scale.DomainSpec{}, err
		}
		return scale.DomainSpec{Fields: &scale.FieldsRef{Data: dataNames, Fields: fields, Sort: sortSpec}}, nil
	}

	if obj.Field != "" {
		var dataName string
		if err := json.Unmarshal(obj.Data, &dataName); err != nil {
			return scale.DomainSpec{}, fmt.Errorf("domain.data: %w", err)
		}
		return scale.DomainSpec{Field: &scale.FieldRef{Data: dataName, Field: obj.Field, Sort: sortSpec}}, nil
	}

	return scale.DomainSpec{}, fmt.Errorf("unrecognized domain shape")
}

func decodeDataNames(raw json.RawMessage, n int) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := make([]string, n)
		for i := range out {
			out[i] = single
		}
		return out, nil
	}
	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		return multi, nil
	}
	return nil, fmt.Errorf("domain.data: expected a string or array of strings")
}

func decodeSort(raw json.RawMessage) (*scale.Sort, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if !b {
			return &scale.Sort{False: true}, nil
		}
		return &scale.Sort{ByKey: true}, nil
	}
	var obj struct {
		Field string `json:"field"`
		Op    string `json:"op"`
		Order string `json:"order"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	return &scale.Sort{Field: obj.Field, Op: obj.Op, Descending: obj.Order == "descending"}, nil
}

func decodeRangeSpec(raw json.RawMessage) (scale.RangeSpec, error) {
	if len(raw) == 0 {
		return scale.RangeSpec{}, fmt.Errorf("empty range")
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return scale.RangeSpec{Named: name}, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		lits := make([]value.Scalar, len(arr))
		for i, e := range arr {
			lits[i] = scalarFromJSON(e)
		}
		return scale.RangeSpec{Literal: lits}, nil
	}

	var obj struct {
		Scheme json.RawMessage `json:"scheme"`
		Step   *float64        `json:"step"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return scale.RangeSpec{}, fmt.Errorf("unrecognized range shape: %w", err)
	}
	if obj.Step != nil {
		return scale.RangeSpec{Step: &scale.StepRef{Step: *obj.Step}}, nil
	}
	if len(obj.Scheme) > 0 {
		var schemeName string
		if err := json.Unmarshal(obj.Scheme, &schemeName); err == nil {
			return scale.RangeSpec{Scheme: &scale.SchemeRef{Name: schemeName}}, nil
		}
		var schemeObj struct {
			Name   string     `json:"name"`
			Count  int        `json:"count"`
			Extent [2]float64 `json:"extent"`
		}
		if err := json.Unmarshal(obj.Scheme, &schemeObj); err != nil {
			return scale.RangeSpec{}, fmt.Errorf("range.scheme: %w", err)
		}
		return scale.RangeSpec{Scheme: &scale.SchemeRef{Name: schemeObj.Name, Count: schemeObj.Count, Extent: schemeObj.Extent}}, nil
	}
	return scale.RangeSpec{}, fmt.Errorf("unrecognized range shape")
}

func scalarFromJSON(raw json.RawMessage) value.Scalar {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Null()
	}
	switch x := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(x)
	case float64:
		return value.Float64(x)
	case string:
		return value.String(x)
	default:
		return value.Null()
	}
}
