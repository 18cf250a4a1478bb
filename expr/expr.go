package expr

import (
	"fmt"
	"strings"
)

// Expr is a row-level relational expression node. Implementations are
// immutable; WithChildren returns a rebuilt copy rather than mutating
// receiver state (spec §3 ownership: "mutators are re-builders that
// emit a new tree").
type Expr interface {
	Type() DataType
	Children() []Expr
	WithChildren(children ...Expr) (Expr, error)
	String() string
}

// ---- Column ----

// Column references a named column of the current row schema.
type Column struct {
	Name string
	Typ  DataType
}

func (c *Column) Type() DataType        { return c.Typ }
func (c *Column) Children() []Expr      { return nil }
func (c *Column) String() string        { return c.Name }
func (c *Column) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 0 {
		return nil, fmt.Errorf("expr: Column takes no children")
	}
	return c, nil
}

// ---- Literal ----

// Literal is a typed constant value.
type Literal struct {
	Value any
	Typ   DataType
}

func (l *Literal) Type() DataType   { return l.Typ }
func (l *Literal) Children() []Expr { return nil }
func (l *Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}
	switch v := l.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
func (l *Literal) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 0 {
		return nil, fmt.Errorf("expr: Literal takes no children")
	}
	return l, nil
}

func NullLiteral() *Literal                 { return &Literal{Value: nil, Typ: Null} }
func Float64Literal(v float64) *Literal      { return &Literal{Value: v, Typ: Float64} }
func Int64Literal(v int64) *Literal          { return &Literal{Value: v, Typ: Int64} }
func StringLiteral(v string) *Literal        { return &Literal{Value: v, Typ: Utf8} }
func BoolLiteral(v bool) *Literal            { return &Literal{Value: v, Typ: Bool} }

// ---- Unary ----

type UnaryOp int

const (
	Negate UnaryOp = iota
	Not
	IsNull
	IsNotNull
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "-"
	case Not:
		return "NOT"
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	}
	return "?"
}

type UnaryExpr struct {
	Op  UnaryOp
	Arg Expr
	Typ DataType
}

func (u *UnaryExpr) Type() DataType   { return u.Typ }
func (u *UnaryExpr) Children() []Expr { return []Expr{u.Arg} }
func (u *UnaryExpr) String() string {
	switch u.Op {
	case IsNull, IsNotNull:
		return fmt.Sprintf("(%s %s)", u.Arg, u.Op)
	default:
		return fmt.Sprintf("(%s%s)", u.Op, u.Arg)
	}
}
func (u *UnaryExpr) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("expr: UnaryExpr takes exactly 1 child")
	}
	cp := *u
	cp.Arg = children[0]
	return &cp, nil
}

// ---- Binary ----

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpConcat
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpConcat:
		return "||"
	}
	return "?"
}

type BinaryExpr struct {
	Op          BinaryOp
	Left, Right Expr
	Typ         DataType
}

func (b *BinaryExpr) Type() DataType   { return b.Typ }
func (b *BinaryExpr) Children() []Expr { return []Expr{b.Left, b.Right} }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}
func (b *BinaryExpr) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 2 {
		return nil, fmt.Errorf("expr: BinaryExpr takes exactly 2 children")
	}
	cp := *b
	cp.Left, cp.Right = children[0], children[1]
	return &cp, nil
}

// ---- Cast ----

// TryCastMode selects whether Cast is fallible (returns NULL on
// mismatch, spec §4.E unary `+`) or a hard cast.
type TryCastMode int

const (
	HardCast TryCastMode = iota
	SoftCast             // TRY_CAST semantics: null on failure
)

type Cast struct {
	Arg  Expr
	Typ  DataType
	Mode TryCastMode
}

func (c *Cast) Type() DataType   { return c.Typ }
func (c *Cast) Children() []Expr { return []Expr{c.Arg} }
func (c *Cast) String() string {
	name := "CAST"
	if c.Mode == SoftCast {
		name = "TRY_CAST"
	}
	return fmt.Sprintf("%s(%s AS %s)", name, c.Arg, c.Typ)
}
func (c *Cast) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("expr: Cast takes exactly 1 child")
	}
	cp := *c
	cp.Arg = children[0]
	return &cp, nil
}

// ---- Case ----

type WhenThen struct {
	When Expr
	Then Expr
}

type CaseExpr struct {
	Branches []WhenThen
	Else     Expr // may be nil
	Typ      DataType
}

func (c *CaseExpr) Type() DataType { return c.Typ }
func (c *CaseExpr) Children() []Expr {
	out := make([]Expr, 0, len(c.Branches)*2+1)
	for _, b := range c.Branches {
		out = append(out, b.When, b.Then)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}
func (c *CaseExpr) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, b := range c.Branches {
		fmt.Fprintf(&sb, " WHEN %s THEN %s", b.When, b.Then)
	}
	if c.Else != nil {
		fmt.Fprintf(&sb, " ELSE %s", c.Else)
	}
	sb.WriteString(" END")
	return sb.String()
}
func (c *CaseExpr) WithChildren(children ...Expr) (Expr, error) {
	want := len(c.Branches) * 2
	if c.Else != nil {
		want++
	}
	if len(children) != want {
		return nil, fmt.Errorf("expr: CaseExpr takes exactly %d children", want)
	}
	cp := *c
	cp.Branches = make([]WhenThen, len(c.Branches))
	i := 0
	for bi := range c.Branches {
		cp.Branches[bi] = WhenThen{When: children[i], Then: children[i+1]}
		i += 2
	}
	if c.Else != nil {
		cp.Else = children[i]
	}
	return &cp, nil
}

// ---- Between ----

type Between struct {
	Arg, Low, High Expr
	Negated        bool
}

func (b *Between) Type() DataType   { return Bool }
func (b *Between) Children() []Expr { return []Expr{b.Arg, b.Low, b.High} }
func (b *Between) String() string {
	not := ""
	if b.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("(%s %sBETWEEN %s AND %s)", b.Arg, not, b.Low, b.High)
}
func (b *Between) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 3 {
		return nil, fmt.Errorf("expr: Between takes exactly 3 children")
	}
	cp := *b
	cp.Arg, cp.Low, cp.High = children[0], children[1], children[2]
	return &cp, nil
}

// ---- Function calls ----

// FuncKind distinguishes scalar, aggregate, and window function calls.
type FuncKind int

const (
	ScalarFunc FuncKind = iota
	AggregateFunc
	WindowFunc
)

// WindowFrame bounds an OVER() window. Units/Start/End follow SQL
// frame semantics ("ROWS"/"RANGE"/"GROUPS", unbounded preceding, etc.);
// an empty Frame means "no explicit frame" (dialect default).
type WindowFrame struct {
	Units string // "ROWS", "RANGE", "GROUPS", or "" for none
	Start string // e.g. "UNBOUNDED PRECEDING", "1 PRECEDING", "CURRENT ROW"
	End   string
}

// Func is a scalar, aggregate, or window function call.
type Func struct {
	Kind     FuncKind
	Name     string
	Args     []Expr
	Distinct bool // aggregate DISTINCT
	Typ      DataType

	// Window-only fields.
	PartitionBy []Expr
	OrderBy     []SortExpr
	Frame       *WindowFrame
}

func (f *Func) Type() DataType { return f.Typ }
func (f *Func) Children() []Expr {
	children := append([]Expr{}, f.Args...)
	children = append(children, f.PartitionBy...)
	for _, o := range f.OrderBy {
		children = append(children, o.Expr)
	}
	return children
}
func (f *Func) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	distinct := ""
	if f.Distinct {
		distinct = "DISTINCT "
	}
	base := fmt.Sprintf("%s(%s%s)", f.Name, distinct, strings.Join(args, ", "))
	if f.Kind != WindowFunc {
		return base
	}
	var over strings.Builder
	over.WriteString(" OVER (")
	if len(f.PartitionBy) > 0 {
		parts := make([]string, len(f.PartitionBy))
		for i, p := range f.PartitionBy {
			parts[i] = p.String()
		}
		over.WriteString("PARTITION BY " + strings.Join(parts, ", "))
	}
	if len(f.OrderBy) > 0 {
		if len(f.PartitionBy) > 0 {
			over.WriteString(" ")
		}
		parts := make([]string, len(f.OrderBy))
		for i, o := range f.OrderBy {
			parts[i] = o.String()
		}
		over.WriteString("ORDER BY " + strings.Join(parts, ", "))
	}
	over.WriteString(")")
	return base + over.String()
}
func (f *Func) WithChildren(children ...Expr) (Expr, error) {
	nArgs := len(f.Args)
	nPart := len(f.PartitionBy)
	nOrd := len(f.OrderBy)
	if len(children) != nArgs+nPart+nOrd {
		return nil, fmt.Errorf("expr: Func %s takes exactly %d children", f.Name, nArgs+nPart+nOrd)
	}
	cp := *f
	cp.Args = append([]Expr{}, children[:nArgs]...)
	cp.PartitionBy = append([]Expr{}, children[nArgs:nArgs+nPart]...)
	cp.OrderBy = make([]SortExpr, nOrd)
	for i, o := range f.OrderBy {
		cp.OrderBy[i] = SortExpr{Expr: children[nArgs+nPart+i], Ascending: o.Ascending, NullsFirst: o.NullsFirst}
	}
	return &cp, nil
}

// SortExpr is an ORDER BY entry.
type SortExpr struct {
	Expr       Expr
	Ascending  bool
	NullsFirst bool
}

func (s SortExpr) String() string {
	dir := "ASC"
	if !s.Ascending {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", s.Expr, dir)
}

// ---- Struct / list constructors ----

// StructField is one key/value pair of a struct-constructor expression
// (compiled from an ast.Object literal, spec §4.E).
type StructField struct {
	Name string
	Val  Expr
}

type StructConstruct struct {
	Fields []StructField
}

func (s *StructConstruct) Type() DataType { return Struct }
func (s *StructConstruct) Children() []Expr {
	out := make([]Expr, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Val
	}
	return out
}
func (s *StructConstruct) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Val)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (s *StructConstruct) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != len(s.Fields) {
		return nil, fmt.Errorf("expr: StructConstruct takes exactly %d children", len(s.Fields))
	}
	cp := *s
	cp.Fields = make([]StructField, len(s.Fields))
	for i, f := range s.Fields {
		cp.Fields[i] = StructField{Name: f.Name, Val: children[i]}
	}
	return &cp, nil
}

// ListConstruct builds a list literal; ElemType is Float64 for an
// empty literal array (spec §9 open question iii).
type ListConstruct struct {
	Elements []Expr
	ElemType DataType
}

func (l *ListConstruct) Type() DataType   { return List }
func (l *ListConstruct) Children() []Expr { return l.Elements }
func (l *ListConstruct) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (l *ListConstruct) WithChildren(children ...Expr) (Expr, error) {
	cp := *l
	cp.Elements = children
	return &cp, nil
}

// ---- Alias ----

// Alias names an expression's output column (used in Project/Aggregate
// output lists).
type Alias struct {
	Expr Expr
	Name string
}

func (a *Alias) Type() DataType   { return a.Expr.Type() }
func (a *Alias) Children() []Expr { return []Expr{a.Expr} }
func (a *Alias) String() string   { return fmt.Sprintf("%s AS %s", a.Expr, a.Name) }
func (a *Alias) WithChildren(children ...Expr) (Expr, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("expr: Alias takes exactly 1 child")
	}
	cp := *a
	cp.Expr = children[0]
	return &cp, nil
}
