// Package compiler lowers an ast.Expression into a relational
// expr.Expr against an optional row schema (spec §4.E), using a
// built-in dispatch table of scalar UDFs, macros, and transforms.
package compiler

import (
	"fmt"

	"github.com/vegafusion-go/vf/ast"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/internal/similartext"
	"github.com/vegafusion-go/vf/scale"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/vferr"
)

// TzConfig carries the timezone context required by LocalTransform
// and UtcTransform callables (spec §4.E, §4.H).
type TzConfig struct {
	LocalTz       string
	DefaultInputTz string
}

// Config is the compilation environment an Expression is lowered
// against (spec §4.E).
type Config struct {
	SignalScope  map[string]value.Scalar
	DataScope    map[string]value.Table
	ScaleScope   map[string]*scale.State
	TzConfig     *TzConfig
	CallableScope map[string]Callable
}

// Callable is one entry of the built-in dispatch table (spec §4.E).
// Exactly one of the typed hooks below is non-nil per callable;
// lowerCall dispatches on whichever is set.
type Callable struct {
	Name string

	// ScalarUDF: mapped directly to a scalar function name, optionally
	// casting every argument to CastArgsTo first.
	ScalarFn   string
	CastArgsTo expr.DataType
	HasCast    bool

	// Macro rewrites the call's AST args before compilation.
	Macro func(args []*ast.Expression, call *ast.Expression) (*ast.Expression, error)

	// Transform compiles args itself and builds the resulting Expr.
	Transform func(c *compilation, args []*ast.Expression) (expr.Expr, error)

	// UnaryTransform is a one-argument infallible scalar function name.
	UnaryTransform string

	// LocalTransform/UtcTransform receive the resolved timezone.
	LocalTransform func(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error)
	UtcTransform   func(c *compilation, args []*ast.Expression) (expr.Expr, error)

	// Data callables consume the dataset named by the first literal
	// string argument plus the trailing arguments.
	Data func(c *compilation, dataset string, table value.Table, rest []*ast.Expression) (expr.Expr, error)

	// Scale callables receive the whole call site (spec requires a
	// literal string scale name as the first argument).
	Scale func(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error)
}

// compilation is the per-call mutable context threaded through
// recursive Lower calls; it exists so Transform/Scale/Data hooks can
// recurse into Lower without a package-level cycle.
type compilation struct {
	cfg    Config
	schema *expr.Schema
}

// Compile lowers expression e under cfg against the optional row
// schema (nil when there is no row context, e.g. a pure signal
// expression). Compile is the spec §4.E entry point.
func Compile(e *ast.Expression, cfg Config, schema *expr.Schema) (expr.Expr, error) {
	c := &compilation{cfg: cfg, schema: schema}
	return c.lower(e)
}

func spanOf(e *ast.Expression) vferr.Span {
	return vferr.Span{Start: e.Span.Start, End: e.Span.End}
}

func (c *compilation) lower(e *ast.Expression) (expr.Expr, error) {
	switch e.Kind() {
	case ast.KindLiteral:
		return c.lowerLiteral(e)
	case ast.KindIdentifier:
		return c.lowerIdentifier(e)
	case ast.KindUnary:
		return c.lowerUnary(e)
	case ast.KindBinary:
		return c.lowerBinary(e)
	case ast.KindLogical:
		return c.lowerLogical(e)
	case ast.KindConditional:
		return c.lowerConditional(e)
	case ast.KindMember:
		return c.lowerMember(e)
	case ast.KindCall:
		return c.lowerCall(e)
	case ast.KindArray:
		return c.lowerArray(e)
	case ast.KindObject:
		return c.lowerObject(e)
	}
	return nil, vferr.ErrInternal.New(fmt.Sprintf("unhandled expression kind %v", e.Kind()))
}

func (c *compilation) lowerLiteral(e *ast.Expression) (expr.Expr, error) {
	lv, _ := ast.AsLiteral(e)
	switch {
	case lv.IsNull:
		return expr.NullLiteral(), nil
	case lv.Bool != nil:
		return expr.BoolLiteral(*lv.Bool), nil
	case lv.Number != nil:
		// every numeric literal lowers as Float64 (spec §4.E).
		return expr.Float64Literal(*lv.Number), nil
	case lv.Str != nil:
		return expr.StringLiteral(*lv.Str), nil
	}
	return expr.NullLiteral(), nil
}

// lowerIdentifier resolves a bare identifier against signal_scope and
// otherwise returns an error. It does not look a bare identifier up as
// a row-schema column; row columns are reached only through `datum`
// member access (lowerMember).
func (c *compilation) lowerIdentifier(e *ast.Expression) (expr.Expr, error) {
	name, _ := ast.AsIdentifier(e)
	if name == "datum" {
		return nil, vferr.ErrCompilation.New("'datum' may only appear as a member expression base")
	}
	if sv, ok := c.cfg.SignalScope[name]; ok {
		return scalarToLiteral(sv), nil
	}
	return nil, vferr.WithSpan(vferr.ErrCompilation.New(fmt.Sprintf("unresolved identifier %q", name)), spanOf(e))
}

func scalarToLiteral(v value.Scalar) expr.Expr {
	if v.IsNull() {
		return expr.NullLiteral()
	}
	switch val := v.Value.(type) {
	case bool:
		return expr.BoolLiteral(val)
	case string:
		return expr.StringLiteral(val)
	case int64:
		return expr.Float64Literal(float64(val))
	case float64:
		return expr.Float64Literal(val)
	}
	return expr.NullLiteral()
}

func (c *compilation) lowerUnary(e *ast.Expression) (expr.Expr, error) {
	op, arg, _ := ast.AsUnary(e)
	a, err := c.lower(arg)
	if err != nil {
		return nil, err
	}
	switch op {
	case ast.UnaryPos:
		// fallible cast to Float64, null on failure.
		return &expr.Cast{Arg: a, Typ: expr.Float64, Mode: expr.SoftCast}, nil
	case ast.UnaryNeg:
		return &expr.UnaryExpr{Op: expr.Negate, Arg: a, Typ: expr.Float64}, nil
	case ast.UnaryNot:
		// NOT COALESCE(TRY_CAST(x AS BOOL), FALSE)
		cast := &expr.Cast{Arg: a, Typ: expr.Bool, Mode: expr.SoftCast}
		coalesce := &expr.Func{Kind: expr.ScalarFunc, Name: "coalesce", Args: []expr.Expr{cast, expr.BoolLiteral(false)}, Typ: expr.Bool}
		return &expr.UnaryExpr{Op: expr.Not, Arg: coalesce, Typ: expr.Bool}, nil
	}
	return nil, vferr.ErrInternal.New("unhandled unary operator")
}

func (c *compilation) lowerBinary(e *ast.Expression) (expr.Expr, error) {
	op, left, right, _ := ast.AsBinary(e)
	l, err := c.lower(left)
	if err != nil {
		return nil, err
	}
	r, err := c.lower(right)
	if err != nil {
		return nil, err
	}

	switch op {
	case ast.Plus:
		if l.Type() == expr.Utf8 || r.Type() == expr.Utf8 {
			return &expr.Func{Kind: expr.ScalarFunc, Name: "concat", Args: []expr.Expr{l, r}, Typ: expr.Utf8}, nil
		}
		return &expr.BinaryExpr{Op: expr.OpAdd, Left: l, Right: r, Typ: expr.Float64}, nil
	case ast.Minus:
		return &expr.BinaryExpr{Op: expr.OpSub, Left: l, Right: r, Typ: expr.Float64}, nil
	case ast.Mult:
		return &expr.BinaryExpr{Op: expr.OpMul, Left: l, Right: r, Typ: expr.Float64}, nil
	case ast.Div:
		return &expr.BinaryExpr{Op: expr.OpDiv, Left: l, Right: r, Typ: expr.Float64}, nil
	case ast.Mod:
		return &expr.BinaryExpr{Op: expr.OpMod, Left: l, Right: r, Typ: expr.Float64}, nil
	case ast.GreaterThan:
		return &expr.BinaryExpr{Op: expr.OpGt, Left: l, Right: r, Typ: expr.Bool}, nil
	case ast.LessThan:
		return &expr.BinaryExpr{Op: expr.OpLt, Left: l, Right: r, Typ: expr.Bool}, nil
	case ast.GreaterThanEqual:
		return &expr.BinaryExpr{Op: expr.OpGtEq, Left: l, Right: r, Typ: expr.Bool}, nil
	case ast.LessThanEqual:
		return &expr.BinaryExpr{Op: expr.OpLtEq, Left: l, Right: r, Typ: expr.Bool}, nil
	case ast.Equals, ast.NotEquals:
		l, r = promoteLooseEquality(l, r, left, right)
		bop := expr.OpEq
		if op == ast.NotEquals {
			bop = expr.OpNotEq
		}
		return &expr.BinaryExpr{Op: bop, Left: l, Right: r, Typ: expr.Bool}, nil
	case ast.StrictEquals, ast.NotStrictEquals:
		if typeMismatch(l.Type(), r.Type()) {
			// constant-fold to literal false/true on type mismatch.
			return expr.BoolLiteral(op == ast.NotStrictEquals), nil
		}
		bop := expr.OpEq
		if op == ast.NotStrictEquals {
			bop = expr.OpNotEq
		}
		return &expr.BinaryExpr{Op: bop, Left: l, Right: r, Typ: expr.Bool}, nil
	}
	return nil, vferr.ErrInternal.New("unhandled binary operator")
}

// promoteLooseEquality implements `==`/`!=`'s promotion rule: when
// exactly one side is a string literal, cast it to Float64 via
// TRY_CAST (spec §4.E).
func promoteLooseEquality(l, r expr.Expr, leftAst, rightAst *ast.Expression) (expr.Expr, expr.Expr) {
	_, leftIsStr := ast.AsStringLiteral(leftAst)
	_, rightIsStr := ast.AsStringLiteral(rightAst)
	if leftIsStr && !rightIsStr {
		return &expr.Cast{Arg: l, Typ: expr.Float64, Mode: expr.SoftCast}, r
	}
	if rightIsStr && !leftIsStr {
		return l, &expr.Cast{Arg: r, Typ: expr.Float64, Mode: expr.SoftCast}
	}
	return l, r
}

func typeMismatch(a, b expr.DataType) bool {
	if a == expr.Unknown || b == expr.Unknown {
		return false
	}
	return a != b
}

func (c *compilation) lowerLogical(e *ast.Expression) (expr.Expr, error) {
	op, left, right, _ := ast.AsLogical(e)
	l, err := c.lower(left)
	if err != nil {
		return nil, err
	}
	r, err := c.lower(right)
	if err != nil {
		return nil, err
	}
	truthy := &expr.Cast{Arg: l, Typ: expr.Bool, Mode: expr.SoftCast}
	// `&&`/`||` on non-booleans lower to CASE preserving the usual
	// short-circuit return values (spec §4.E).
	if op == ast.LogicalAnd {
		return &expr.CaseExpr{
			Branches: []expr.WhenThen{{When: &expr.UnaryExpr{Op: expr.Not, Arg: truthy, Typ: expr.Bool}, Then: l}},
			Else:     r,
			Typ:      expr.Unknown,
		}, nil
	}
	return &expr.CaseExpr{
		Branches: []expr.WhenThen{{When: truthy, Then: l}},
		Else:     r,
		Typ:      expr.Unknown,
	}, nil
}

func (c *compilation) lowerConditional(e *ast.Expression) (expr.Expr, error) {
	test, cons, alt, _ := ast.AsConditional(e)
	t, err := c.lower(test)
	if err != nil {
		return nil, err
	}
	cn, err := c.lower(cons)
	if err != nil {
		return nil, err
	}
	al, err := c.lower(alt)
	if err != nil {
		return nil, err
	}
	truthy := &expr.Cast{Arg: t, Typ: expr.Bool, Mode: expr.SoftCast}
	return &expr.CaseExpr{Branches: []expr.WhenThen{{When: truthy, Then: cn}}, Else: al, Typ: cn.Type()}, nil
}

// lowerMember compiles `datum.x`/`datum['x' + y]`, tracking whether
// the base object is the `datum` identifier.
func (c *compilation) lowerMember(e *ast.Expression) (expr.Expr, error) {
	object, property, computed, _ := ast.AsMember(e)

	if name, ok := ast.AsIdentifier(object); ok && name == "datum" {
		colName, ok := staticMemberName(property, computed)
		if !ok {
			return nil, vferr.WithSpan(vferr.ErrCompilation.New("computed member key does not reduce to a constant string"), spanOf(e))
		}
		if c.schema == nil {
			return nil, vferr.ErrCompilation.New("datum reference requires a row schema")
		}
		f, ok := c.schema.FieldByName(colName)
		if !ok {
			return nil, vferr.WithSpan(vferr.ErrCompilation.New(fmt.Sprintf("unknown column %q", colName)), spanOf(e))
		}
		return &expr.Column{Name: f.Name, Typ: f.Type}, nil
	}

	// Non-datum member access (e.g. array index on a compiled list) is
	// not part of the built-in surface; surface as unsupported.
	return nil, vferr.WithSpan(vferr.ErrCompilation.New("member access is only supported on datum"), spanOf(e))
}

// staticMemberName resolves a member's property to a constant column
// name: the literal identifier for `.x`, or the literal string value
// for a computed `['x']`/`['x' + 'y']` whose inner expression reduces
// to a constant (spec §4.E "a computed member whose key reduces to a
// constant string becomes a static column access").
func staticMemberName(property *ast.Expression, computed bool) (string, bool) {
	if !computed {
		return ast.AsIdentifier(property)
	}
	return foldConstantString(property)
}

func foldConstantString(e *ast.Expression) (string, bool) {
	if s, ok := ast.AsStringLiteral(e); ok {
		return s, true
	}
	if op, left, right, ok := ast.AsBinary(e); ok && op == ast.Plus {
		ls, lok := foldConstantString(left)
		rs, rok := foldConstantString(right)
		if lok && rok {
			return ls + rs, true
		}
	}
	return "", false
}

func (c *compilation) lowerCall(e *ast.Expression) (expr.Expr, error) {
	callee, args, _ := ast.AsCall(e)
	name, ok := ast.AsIdentifier(callee)
	if !ok {
		return nil, vferr.WithSpan(vferr.ErrCompilation.New("call target must be a named function"), spanOf(e))
	}

	callable, ok := c.cfg.CallableScope[name]
	if !ok {
		suggestion := similartext.FindFromMap(c.cfg.CallableScope, name)
		return nil, vferr.WithVariable(vferr.ErrCompilation.New(fmt.Sprintf("unknown function %q%s", name, suggestion)), name, nil)
	}

	switch {
	case callable.Macro != nil:
		rewritten, err := callable.Macro(args, e)
		if err != nil {
			return nil, err
		}
		return c.lower(rewritten)

	case callable.ScalarFn != "":
		lowered, err := c.lowerArgs(args)
		if err != nil {
			return nil, err
		}
		if callable.HasCast {
			for i, a := range lowered {
				lowered[i] = &expr.Cast{Arg: a, Typ: callable.CastArgsTo, Mode: expr.SoftCast}
			}
		}
		return &expr.Func{Kind: expr.ScalarFunc, Name: callable.ScalarFn, Args: lowered, Typ: expr.Float64}, nil

	case callable.UnaryTransform != "":
		if len(args) != 1 {
			return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s takes exactly one argument", name))
		}
		lowered, err := c.lower(args[0])
		if err != nil {
			return nil, err
		}
		return &expr.Func{Kind: expr.ScalarFunc, Name: callable.UnaryTransform, Args: []expr.Expr{lowered}, Typ: expr.Float64}, nil

	case callable.Transform != nil:
		return callable.Transform(c, args)

	case callable.LocalTransform != nil:
		tz := ""
		if c.cfg.TzConfig != nil {
			tz = c.cfg.TzConfig.DefaultInputTz
		}
		return callable.LocalTransform(c, args, tz)

	case callable.UtcTransform != nil:
		return callable.UtcTransform(c, args)

	case callable.Data != nil:
		return c.dispatchData(callable, args, e)

	case callable.Scale != nil:
		return c.dispatchScale(callable, args, e)
	}

	return nil, vferr.ErrInternal.New(fmt.Sprintf("callable %q has no dispatch hook set", name))
}

func (c *compilation) dispatchData(callable Callable, args []*ast.Expression, e *ast.Expression) (expr.Expr, error) {
	if len(args) == 0 {
		return nil, vferr.ErrCompilation.New("data callable requires a dataset name argument")
	}
	dataset, ok := ast.AsStringLiteral(args[0])
	if !ok {
		return nil, vferr.WithSpan(vferr.ErrCompilation.New("data callable requires a literal string dataset name"), spanOf(e))
	}
	table, ok := c.cfg.DataScope[dataset]
	if !ok {
		return nil, vferr.WithVariable(vferr.ErrCompilation.New(fmt.Sprintf("unknown dataset %q", dataset)), dataset, nil)
	}
	return callable.Data(c, dataset, table, args[1:])
}

func (c *compilation) dispatchScale(callable Callable, args []*ast.Expression, e *ast.Expression) (expr.Expr, error) {
	if len(args) == 0 {
		return nil, vferr.ErrCompilation.New("scale callable requires a literal scale name argument")
	}
	name, ok := ast.AsStringLiteral(args[0])
	if !ok {
		return nil, vferr.WithSpan(vferr.ErrCompilation.New("scale callable requires a literal string scale name"), spanOf(e))
	}
	st, ok := c.cfg.ScaleScope[name]
	if !ok {
		// unknown scale name compiles to literal null (spec §4.E).
		return expr.NullLiteral(), nil
	}
	return callable.Scale(c, st, e, args[1:])
}

func (c *compilation) lowerArgs(args []*ast.Expression) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(args))
	for i, a := range args {
		lowered, err := c.lower(a)
		if err != nil {
			return nil, err
		}
		out[i] = lowered
	}
	return out, nil
}

func (c *compilation) lowerArray(e *ast.Expression) (expr.Expr, error) {
	elements, _ := ast.AsArray(e)
	lowered, err := c.lowerArgs(elements)
	if err != nil {
		return nil, err
	}
	elemType := expr.Float64
	if len(lowered) > 0 {
		elemType = lowered[0].Type()
	}
	return &expr.ListConstruct{Elements: lowered, ElemType: elemType}, nil
}

func (c *compilation) lowerObject(e *ast.Expression) (expr.Expr, error) {
	props, _ := ast.AsObject(e)
	fields := make([]expr.StructField, len(props))
	for i, p := range props {
		var key string
		if name, ok := ast.AsIdentifier(p.Key); ok {
			key = name
		} else if s, ok := ast.AsStringLiteral(p.Key); ok {
			key = s
		} else {
			return nil, vferr.ErrCompilation.New("object literal key must be an identifier or string literal")
		}
		val, err := c.lower(p.Value)
		if err != nil {
			return nil, err
		}
		fields[i] = expr.StructField{Name: key, Val: val}
	}
	return &expr.StructConstruct{Fields: fields}, nil
}
