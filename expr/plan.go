package expr

import (
	"fmt"
	"strings"
)

// LogicalPlan is a relational algebra node (spec §3 LogicalPlan). It
// carries its own output Schema so that downstream compilation stages
// (sqlgen, task) never need to re-infer types.
type LogicalPlan interface {
	Schema() Schema
	Inputs() []LogicalPlan
	String() string
}

// TableScan reads a named base table/dataset.
type TableScan struct {
	Table string
	Sch   Schema
}

func (t *TableScan) Schema() Schema        { return t.Sch }
func (t *TableScan) Inputs() []LogicalPlan { return nil }
func (t *TableScan) String() string        { return fmt.Sprintf("TableScan(%s)", t.Table) }

// Values is an inline row literal plan, the server-side counterpart of
// a compiled data() source with no upstream table (spec §4.I VALUES
// lowering modes operate over this node).
type Values struct {
	Sch  Schema
	Rows [][]Expr
}

func (v *Values) Schema() Schema        { return v.Sch }
func (v *Values) Inputs() []LogicalPlan { return nil }
func (v *Values) String() string {
	return fmt.Sprintf("Values(%d rows)", len(v.Rows))
}

// Project evaluates Exprs against Input's rows, producing a new schema
// derived from each expression's name/type.
type Project struct {
	Input Input
	Exprs []Expr
}

func (p *Project) Schema() Schema {
	fields := make([]Field, len(p.Exprs))
	for i, e := range p.Exprs {
		fields[i] = Field{Name: outputName(e, i), Type: e.Type(), Nullable: true}
	}
	return Schema{Fields: fields}
}
func (p *Project) Inputs() []LogicalPlan { return []LogicalPlan{p.Input.Plan} }
func (p *Project) String() string {
	parts := make([]string, len(p.Exprs))
	for i, e := range p.Exprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("Project(%s)[%s]", p.Input.Plan, strings.Join(parts, ", "))
}

// Filter keeps input rows where Predicate evaluates truthy.
type Filter struct {
	Input     Input
	Predicate Expr
}

func (f *Filter) Schema() Schema        { return f.Input.Plan.Schema() }
func (f *Filter) Inputs() []LogicalPlan { return []LogicalPlan{f.Input.Plan} }
func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%s)[%s]", f.Input.Plan, f.Predicate)
}

// Aggregate groups Input rows by GroupBy and reduces with Aggregates.
// Output schema is GroupBy columns followed by Aggregates outputs, in
// that order (matches the VALUES/SELECT column ordering the SQL
// compiler must preserve, spec §4.I).
type Aggregate struct {
	Input      Input
	GroupBy    []Expr
	Aggregates []Expr // typically *Func with Kind == AggregateFunc, optionally wrapped in *Alias
}

func (a *Aggregate) Schema() Schema {
	fields := make([]Field, 0, len(a.GroupBy)+len(a.Aggregates))
	for i, e := range a.GroupBy {
		fields = append(fields, Field{Name: outputName(e, i), Type: e.Type(), Nullable: true})
	}
	for i, e := range a.Aggregates {
		fields = append(fields, Field{Name: outputName(e, i), Type: e.Type(), Nullable: true})
	}
	return Schema{Fields: fields}
}
func (a *Aggregate) Inputs() []LogicalPlan { return []LogicalPlan{a.Input.Plan} }
func (a *Aggregate) String() string {
	gb := make([]string, len(a.GroupBy))
	for i, e := range a.GroupBy {
		gb[i] = e.String()
	}
	aggs := make([]string, len(a.Aggregates))
	for i, e := range a.Aggregates {
		aggs[i] = e.String()
	}
	return fmt.Sprintf("Aggregate(%s)[group=%s, agg=%s]", a.Input.Plan, strings.Join(gb, ", "), strings.Join(aggs, ", "))
}

// JoinType enumerates supported join kinds.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case LeftJoin:
		return "LEFT JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "JOIN"
	}
}

// Join combines Left and Right rows matching On (nil for CrossJoin).
type Join struct {
	Left, Right Input
	On          Expr
	Type        JoinType
}

func (j *Join) Schema() Schema {
	l := j.Left.Plan.Schema()
	r := j.Right.Plan.Schema()
	fields := make([]Field, 0, len(l.Fields)+len(r.Fields))
	fields = append(fields, l.Fields...)
	fields = append(fields, r.Fields...)
	return Schema{Fields: fields}
}
func (j *Join) Inputs() []LogicalPlan { return []LogicalPlan{j.Left.Plan, j.Right.Plan} }
func (j *Join) String() string {
	on := "true"
	if j.On != nil {
		on = j.On.String()
	}
	return fmt.Sprintf("%s(%s, %s)[on=%s]", j.Type, j.Left.Plan, j.Right.Plan, on)
}

// Window appends window-function output columns onto Input's rows
// without collapsing them (spec §4.E window transforms compile to
// this node, never to Aggregate).
type Window struct {
	Input       Input
	WindowExprs []Expr // *Func with Kind == WindowFunc, optionally wrapped in *Alias
}

func (w *Window) Schema() Schema {
	base := w.Input.Plan.Schema()
	fields := append([]Field{}, base.Fields...)
	for i, e := range w.WindowExprs {
		fields = append(fields, Field{Name: outputName(e, i), Type: e.Type(), Nullable: true})
	}
	return Schema{Fields: fields}
}
func (w *Window) Inputs() []LogicalPlan { return []LogicalPlan{w.Input.Plan} }
func (w *Window) String() string {
	parts := make([]string, len(w.WindowExprs))
	for i, e := range w.WindowExprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("Window(%s)[%s]", w.Input.Plan, strings.Join(parts, ", "))
}

// Sort orders Input's rows by OrderBy; Limit <= 0 means unbounded.
type Sort struct {
	Input   Input
	OrderBy []SortExpr
	Limit   int
}

func (s *Sort) Schema() Schema        { return s.Input.Plan.Schema() }
func (s *Sort) Inputs() []LogicalPlan { return []LogicalPlan{s.Input.Plan} }
func (s *Sort) String() string {
	parts := make([]string, len(s.OrderBy))
	for i, o := range s.OrderBy {
		parts[i] = o.String()
	}
	if s.Limit > 0 {
		return fmt.Sprintf("Sort(%s)[%s LIMIT %d]", s.Input.Plan, strings.Join(parts, ", "), s.Limit)
	}
	return fmt.Sprintf("Sort(%s)[%s]", s.Input.Plan, strings.Join(parts, ", "))
}

// Input wraps a LogicalPlan as a named alias so that Column
// references used by a parent node can be qualified unambiguously
// once lowered to SQL text (spec §4.I: every FROM/JOIN source gets a
// generated alias).
type Input struct {
	Plan  LogicalPlan
	Alias string
}

func outputName(e Expr, i int) string {
	if a, ok := e.(*Alias); ok {
		return a.Name
	}
	if c, ok := e.(*Column); ok {
		return c.Name
	}
	return fmt.Sprintf("col_%d", i)
}
