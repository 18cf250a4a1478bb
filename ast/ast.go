// Package ast defines the immutable expression tree produced by the
// parser (spec §3 Expression, §4.C). Nodes are never mutated after
// construction; a "mutation" is always a re-build that returns a new
// tree, matching the teacher's tree-returning expression builders.
package ast

import (
	"strconv"
	"strings"

	"github.com/vegafusion-go/vf/token"
)

// Span is the byte range an Expression was parsed from.
type Span struct {
	Start int
	End   int
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryPos UnaryOp = iota
	UnaryNeg
	UnaryNot
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryPos:
		return "+"
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	}
	return "?"
}

// bindingPower mirrors the reference's UnaryOperator::unary_binding_power.
func (op UnaryOp) bindingPower() float64 { return 17.0 }

// BinaryOp enumerates binary arithmetic/comparison operators.
type BinaryOp int

const (
	Plus BinaryOp = iota
	Minus
	Mult
	Div
	Mod
	Equals
	StrictEquals
	NotEquals
	NotStrictEquals
	GreaterThan
	LessThan
	GreaterThanEqual
	LessThanEqual
)

func (op BinaryOp) String() string {
	switch op {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Mult:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case Equals:
		return "=="
	case StrictEquals:
		return "==="
	case NotEquals:
		return "!="
	case NotStrictEquals:
		return "!=="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case GreaterThanEqual:
		return ">="
	case LessThanEqual:
		return "<="
	}
	return "?"
}

// infixBindingPower matches spec §6's precedence table. Left-to-right
// operators have a larger number on the right (rbp = lbp+0.5).
func (op BinaryOp) infixBindingPower() (float64, float64) {
	switch op {
	case Plus, Minus:
		return 14.0, 14.5
	case Mult, Div, Mod:
		return 15.0, 15.5
	case GreaterThan, LessThan, GreaterThanEqual, LessThanEqual:
		return 12.0, 12.5
	case Equals, StrictEquals, NotEquals, NotStrictEquals:
		return 11.0, 11.5
	}
	return 1000, 1000
}

// LogicalOp enumerates short-circuiting logical operators.
type LogicalOp int

const (
	LogicalOr LogicalOp = iota
	LogicalAnd
)

func (op LogicalOp) String() string {
	if op == LogicalOr {
		return "||"
	}
	return "&&"
}

func (op LogicalOp) infixBindingPower() (float64, float64) {
	if op == LogicalOr {
		return 6.0, 6.5
	}
	return 7.0, 7.5
}

// ternaryBindingPower is (left, middle, right) for the `?:` operator,
// right-associative per spec §6.
func ternaryBindingPower() (float64, float64, float64) { return 4.8, 4.6, 4.4 }

// memberBindingPower is shared by `.` and computed `[]` access.
func memberBindingPower() (float64, float64) { return 20.0, 20.5 }

// Expression is the immutable tagged tree node: a Span plus exactly one
// unexported variant node, whose Kind says which variant it is.
type Expression struct {
	Span Span
	node node
}

// node is implemented by each concrete variant; it is unexported so
// that Expression is the only public handle into the tree (arena-less
// here, but still opaque: callers always go through Expression).
type node interface {
	bindingPower() (float64, float64)
	format(sb *strings.Builder)
	kind() Kind
}

// Kind tags which variant an Expression wraps.
type Kind int

const (
	KindLiteral Kind = iota
	KindIdentifier
	KindUnary
	KindBinary
	KindLogical
	KindConditional
	KindMember
	KindCall
	KindArray
	KindObject
)

func (e *Expression) Kind() Kind { return e.node.kind() }

// bindingPower exposes the node's parenthesisation power for the
// pretty printer and for callers composing trees manually.
func (e *Expression) bindingPower() (float64, float64) { return e.node.bindingPower() }

// String renders the expression using the binding-power pretty printer
// (spec §4.C); parse(String()) round-trips to a semantically equal tree.
func (e *Expression) String() string {
	var sb strings.Builder
	e.node.format(&sb)
	return sb.String()
}

func wrap(sb *strings.Builder, e *Expression, needParens bool) {
	if needParens {
		sb.WriteByte('(')
		e.node.format(sb)
		sb.WriteByte(')')
	} else {
		e.node.format(sb)
	}
}

// ---- Literal ----

// LiteralValue holds exactly one of Bool/Number/Str/Null.
type LiteralValue struct {
	IsNull bool
	Bool   *bool
	Number *float64
	Str    *string
}

type literalNode struct {
	Value LiteralValue
}

func (n *literalNode) kind() Kind                     { return KindLiteral }
func (n *literalNode) bindingPower() (float64, float64) { return 1000, 1000 }
func (n *literalNode) format(sb *strings.Builder) {
	switch {
	case n.Value.IsNull:
		sb.WriteString("null")
	case n.Value.Bool != nil:
		sb.WriteString(strconv.FormatBool(*n.Value.Bool))
	case n.Value.Number != nil:
		sb.WriteString(formatNumber(*n.Value.Number))
	case n.Value.Str != nil:
		sb.WriteByte('"')
		sb.WriteString(*n.Value.Str)
		sb.WriteByte('"')
	}
}

func formatNumber(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func NewNull(span Span) *Expression {
	return &Expression{Span: span, node: &literalNode{Value: LiteralValue{IsNull: true}}}
}
func NewBool(v bool, span Span) *Expression {
	return &Expression{Span: span, node: &literalNode{Value: LiteralValue{Bool: &v}}}
}
func NewNumber(v float64, span Span) *Expression {
	return &Expression{Span: span, node: &literalNode{Value: LiteralValue{Number: &v}}}
}
func NewString(v string, span Span) *Expression {
	return &Expression{Span: span, node: &literalNode{Value: LiteralValue{Str: &v}}}
}

// AsLiteral returns the literal value and true if e is a Literal node.
func AsLiteral(e *Expression) (LiteralValue, bool) {
	n, ok := e.node.(*literalNode)
	if !ok {
		return LiteralValue{}, false
	}
	return n.Value, true
}

// AsStringLiteral returns the string value if e is a string Literal.
func AsStringLiteral(e *Expression) (string, bool) {
	lv, ok := AsLiteral(e)
	if !ok || lv.Str == nil {
		return "", false
	}
	return *lv.Str, true
}

// ---- Identifier ----

type identifierNode struct {
	Name string
}

func (n *identifierNode) kind() Kind                       { return KindIdentifier }
func (n *identifierNode) bindingPower() (float64, float64) { return 1000, 1000 }
func (n *identifierNode) format(sb *strings.Builder)       { sb.WriteString(n.Name) }

func NewIdentifier(name string, span Span) *Expression {
	return &Expression{Span: span, node: &identifierNode{Name: name}}
}

// AsIdentifier returns the name and true if e is an Identifier node.
func AsIdentifier(e *Expression) (string, bool) {
	n, ok := e.node.(*identifierNode)
	if !ok {
		return "", false
	}
	return n.Name, true
}

// ---- Unary ----

type unaryNode struct {
	Op  UnaryOp
	Arg *Expression
}

func (n *unaryNode) kind() Kind { return KindUnary }
func (n *unaryNode) bindingPower() (float64, float64) {
	p := n.Op.bindingPower()
	return p, p
}
func (n *unaryNode) format(sb *strings.Builder) {
	_, argRBP := n.Arg.bindingPower()
	selfLBP, _ := n.bindingPower()
	sb.WriteString(n.Op.String())
	wrap(sb, n.Arg, selfLBP > argRBP)
}

func NewUnary(op UnaryOp, arg *Expression, span Span) *Expression {
	return &Expression{Span: span, node: &unaryNode{Op: op, Arg: arg}}
}

// AsUnary returns the op/arg and true if e is a Unary node.
func AsUnary(e *Expression) (UnaryOp, *Expression, bool) {
	n, ok := e.node.(*unaryNode)
	if !ok {
		return 0, nil, false
	}
	return n.Op, n.Arg, true
}

// ---- Binary ----

type binaryNode struct {
	Op          BinaryOp
	Left, Right *Expression
}

func (n *binaryNode) kind() Kind                       { return KindBinary }
func (n *binaryNode) bindingPower() (float64, float64) { return n.Op.infixBindingPower() }
func (n *binaryNode) format(sb *strings.Builder) {
	selfLBP, selfRBP := n.bindingPower()
	_, lhsRBP := n.Left.bindingPower()
	rhsLBP, _ := n.Right.bindingPower()
	wrap(sb, n.Left, lhsRBP < selfLBP)
	sb.WriteByte(' ')
	sb.WriteString(n.Op.String())
	sb.WriteByte(' ')
	wrap(sb, n.Right, rhsLBP < selfRBP)
}

func NewBinary(op BinaryOp, left, right *Expression, span Span) *Expression {
	return &Expression{Span: span, node: &binaryNode{Op: op, Left: left, Right: right}}
}

// AsBinary returns the op/left/right and true if e is a Binary node.
func AsBinary(e *Expression) (BinaryOp, *Expression, *Expression, bool) {
	n, ok := e.node.(*binaryNode)
	if !ok {
		return 0, nil, nil, false
	}
	return n.Op, n.Left, n.Right, true
}

// ---- Logical ----

type logicalNode struct {
	Op          LogicalOp
	Left, Right *Expression
}

func (n *logicalNode) kind() Kind                       { return KindLogical }
func (n *logicalNode) bindingPower() (float64, float64) { return n.Op.infixBindingPower() }
func (n *logicalNode) format(sb *strings.Builder) {
	selfLBP, selfRBP := n.bindingPower()
	_, lhsRBP := n.Left.bindingPower()
	rhsLBP, _ := n.Right.bindingPower()
	wrap(sb, n.Left, lhsRBP < selfLBP)
	sb.WriteByte(' ')
	sb.WriteString(n.Op.String())
	sb.WriteByte(' ')
	wrap(sb, n.Right, rhsLBP < selfRBP)
}

func NewLogical(op LogicalOp, left, right *Expression, span Span) *Expression {
	return &Expression{Span: span, node: &logicalNode{Op: op, Left: left, Right: right}}
}

// AsLogical returns the op/left/right and true if e is a Logical node.
func AsLogical(e *Expression) (LogicalOp, *Expression, *Expression, bool) {
	n, ok := e.node.(*logicalNode)
	if !ok {
		return 0, nil, nil, false
	}
	return n.Op, n.Left, n.Right, true
}

// ---- Conditional (ternary) ----

type conditionalNode struct {
	Test, Cons, Alt *Expression
}

func (n *conditionalNode) kind() Kind { return KindConditional }
func (n *conditionalNode) bindingPower() (float64, float64) {
	l, _, r := ternaryBindingPower()
	return l, r
}
func (n *conditionalNode) format(sb *strings.Builder) {
	left, mid, right := ternaryBindingPower()
	_, testRBP := n.Test.bindingPower()
	_, consRBP := n.Cons.bindingPower()
	altLBP, _ := n.Alt.bindingPower()

	wrap(sb, n.Test, testRBP < left)
	sb.WriteString(" ? ")
	wrap(sb, n.Cons, consRBP < mid)
	sb.WriteString(": ")
	wrap(sb, n.Alt, altLBP < right)
}

func NewConditional(test, cons, alt *Expression, span Span) *Expression {
	return &Expression{Span: span, node: &conditionalNode{Test: test, Cons: cons, Alt: alt}}
}

// AsConditional returns the test/cons/alt and true if e is a Conditional node.
func AsConditional(e *Expression) (test, cons, alt *Expression, ok bool) {
	n, ok := e.node.(*conditionalNode)
	if !ok {
		return nil, nil, nil, false
	}
	return n.Test, n.Cons, n.Alt, true
}

// ---- Member ----

type memberNode struct {
	Object   *Expression
	Property *Expression
	Computed bool
}

func (n *memberNode) kind() Kind                       { return KindMember }
func (n *memberNode) bindingPower() (float64, float64) { return memberBindingPower() }
func (n *memberNode) format(sb *strings.Builder) {
	_, objRBP := n.Object.bindingPower()
	left, _ := memberBindingPower()
	wrap(sb, n.Object, objRBP < left)
	if n.Computed {
		sb.WriteByte('[')
		n.Property.node.format(sb)
		sb.WriteByte(']')
	} else {
		sb.WriteByte('.')
		n.Property.node.format(sb)
	}
}

func NewMember(object, property *Expression, computed bool, span Span) *Expression {
	return &Expression{Span: span, node: &memberNode{Object: object, Property: property, Computed: computed}}
}

// AsMember returns the object/property/computed and true if e is a Member node.
func AsMember(e *Expression) (object, property *Expression, computed bool, ok bool) {
	n, ok := e.node.(*memberNode)
	if !ok {
		return nil, nil, false, false
	}
	return n.Object, n.Property, n.Computed, true
}

// ---- Call ----

type callNode struct {
	Callee *Expression
	Args   []*Expression
}

const internalBindingPower = 1.0

func (n *callNode) kind() Kind                       { return KindCall }
func (n *callNode) bindingPower() (float64, float64) { return 1000, 1000 }
func (n *callNode) format(sb *strings.Builder) {
	n.Callee.node.format(sb)
	sb.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		argLBP, _ := a.bindingPower()
		wrap(sb, a, argLBP <= internalBindingPower)
	}
	sb.WriteByte(')')
}

func NewCall(callee *Expression, args []*Expression, span Span) *Expression {
	return &Expression{Span: span, node: &callNode{Callee: callee, Args: args}}
}

// AsCall returns the callee/args and true if e is a Call node.
func AsCall(e *Expression) (callee *Expression, args []*Expression, ok bool) {
	n, ok := e.node.(*callNode)
	if !ok {
		return nil, nil, false
	}
	return n.Callee, n.Args, true
}

// ---- Array ----

type arrayNode struct {
	Elements []*Expression
}

func (n *arrayNode) kind() Kind                       { return KindArray }
func (n *arrayNode) bindingPower() (float64, float64) { return 1000, 1000 }
func (n *arrayNode) format(sb *strings.Builder) {
	sb.WriteByte('[')
	for i, el := range n.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		elLBP, _ := el.bindingPower()
		wrap(sb, el, elLBP <= internalBindingPower)
	}
	sb.WriteByte(']')
}

func NewArray(elements []*Expression, span Span) *Expression {
	return &Expression{Span: span, node: &arrayNode{Elements: elements}}
}

// AsArray returns the elements and true if e is an Array node.
func AsArray(e *Expression) ([]*Expression, bool) {
	n, ok := e.node.(*arrayNode)
	if !ok {
		return nil, false
	}
	return n.Elements, true
}

// ---- Object ----

// Property is a single key:value pair of an ObjectExpression. Key is
// either an Identifier or a string/number Literal (computed keys are
// not part of this grammar).
type Property struct {
	Key   *Expression
	Value *Expression
}

type objectNode struct {
	Properties []Property
}

func (n *objectNode) kind() Kind                       { return KindObject }
func (n *objectNode) bindingPower() (float64, float64) { return 1000, 1000 }
func (n *objectNode) format(sb *strings.Builder) {
	sb.WriteByte('{')
	for i, p := range n.Properties {
		if i > 0 {
			sb.WriteString(", ")
		}
		p.Key.node.format(sb)
		sb.WriteString(": ")
		p.Value.node.format(sb)
	}
	sb.WriteByte('}')
}

func NewObject(props []Property, span Span) *Expression {
	return &Expression{Span: span, node: &objectNode{Properties: props}}
}

// AsObject returns the properties and true if e is an Object node.
func AsObject(e *Expression) ([]Property, bool) {
	n, ok := e.node.(*objectNode)
	if !ok {
		return nil, false
	}
	return n.Properties, true
}

// TokenUnaryOp maps a lexical operator token to a UnaryOp.
func TokenUnaryOp(k token.Kind) (UnaryOp, bool) {
	switch k {
	case token.Plus:
		return UnaryPos, true
	case token.Minus:
		return UnaryNeg, true
	case token.Exclamation:
		return UnaryNot, true
	}
	return 0, false
}

// TokenBinaryOp maps a lexical operator token to a BinaryOp.
func TokenBinaryOp(k token.Kind) (BinaryOp, bool) {
	switch k {
	case token.Plus:
		return Plus, true
	case token.Minus:
		return Minus, true
	case token.Asterisk:
		return Mult, true
	case token.Slash:
		return Div, true
	case token.Percent:
		return Mod, true
	case token.DoubleEquals:
		return Equals, true
	case token.TripleEquals:
		return StrictEquals, true
	case token.ExclamationEquals:
		return NotEquals, true
	case token.ExclamationDoubleEquals:
		return NotStrictEquals, true
	case token.GreaterThan:
		return GreaterThan, true
	case token.LessThan:
		return LessThan, true
	case token.GreaterThanEquals:
		return GreaterThanEqual, true
	case token.LessThanEquals:
		return LessThanEqual, true
	}
	return 0, false
}

// TokenLogicalOp maps a lexical operator token to a LogicalOp.
func TokenLogicalOp(k token.Kind) (LogicalOp, bool) {
	switch k {
	case token.LogicalAnd:
		return LogicalAnd, true
	case token.LogicalOr:
		return LogicalOr, true
	}
	return 0, false
}
