package ast

// Visitor is a record of function pointers, one per node kind, with
// no-op defaults (spec §4.C, §9 "Visitors": source-language
// trait/inheritance hierarchies are replaced by this flat record plus
// Walk). Each hook receives the node and, for composite nodes, is
// invoked after children have already been walked (depth-first
// post-order), matching the reference's recursive Display/visitor
// implementations.
type Visitor struct {
	VisitLiteral    func(e *Expression, v LiteralValue)
	VisitIdentifier func(e *Expression, name string)
	// VisitCalledIdentifier fires instead of VisitIdentifier when the
	// identifier is being used as a Call's callee.
	VisitCalledIdentifier func(call *Expression, name string, args []*Expression)
	VisitUnary            func(e *Expression, op UnaryOp, arg *Expression)
	VisitBinary           func(e *Expression, op BinaryOp, left, right *Expression)
	VisitLogical          func(e *Expression, op LogicalOp, left, right *Expression)
	VisitConditional      func(e *Expression, test, cons, alt *Expression)
	VisitMember           func(e *Expression, object, property *Expression, computed bool)
	VisitCall             func(e *Expression, callee *Expression, args []*Expression)
	VisitArray            func(e *Expression, elements []*Expression)
	VisitObject           func(e *Expression, props []Property)
}

// Walk performs a depth-first, post-order traversal of expr, invoking
// the matching hook on v for every node. Children are always walked
// first. A Call node whose callee is a bare Identifier invokes
// VisitCalledIdentifier instead of walking the callee as a plain
// Identifier, so that visitors can special-case `data(...)`/`scale(...)`.
func Walk(expr *Expression, v *Visitor) {
	if expr == nil {
		return
	}

	switch n := expr.node.(type) {
	case *literalNode:
		if v.VisitLiteral != nil {
			v.VisitLiteral(expr, n.Value)
		}
	case *identifierNode:
		if v.VisitIdentifier != nil {
			v.VisitIdentifier(expr, n.Name)
		}
	case *unaryNode:
		Walk(n.Arg, v)
		if v.VisitUnary != nil {
			v.VisitUnary(expr, n.Op, n.Arg)
		}
	case *binaryNode:
		Walk(n.Left, v)
		Walk(n.Right, v)
		if v.VisitBinary != nil {
			v.VisitBinary(expr, n.Op, n.Left, n.Right)
		}
	case *logicalNode:
		Walk(n.Left, v)
		Walk(n.Right, v)
		if v.VisitLogical != nil {
			v.VisitLogical(expr, n.Op, n.Left, n.Right)
		}
	case *conditionalNode:
		Walk(n.Test, v)
		Walk(n.Cons, v)
		Walk(n.Alt, v)
		if v.VisitConditional != nil {
			v.VisitConditional(expr, n.Test, n.Cons, n.Alt)
		}
	case *memberNode:
		Walk(n.Object, v)
		if n.Computed {
			Walk(n.Property, v)
		}
		if v.VisitMember != nil {
			v.VisitMember(expr, n.Object, n.Property, n.Computed)
		}
	case *callNode:
		for _, a := range n.Args {
			Walk(a, v)
		}
		if name, ok := AsIdentifier(n.Callee); ok {
			if v.VisitCalledIdentifier != nil {
				v.VisitCalledIdentifier(expr, name, n.Args)
			}
		} else {
			Walk(n.Callee, v)
		}
		if v.VisitCall != nil {
			v.VisitCall(expr, n.Callee, n.Args)
		}
	case *arrayNode:
		for _, el := range n.Elements {
			Walk(el, v)
		}
		if v.VisitArray != nil {
			v.VisitArray(expr, n.Elements)
		}
	case *objectNode:
		for _, p := range n.Properties {
			if _, isIdent := AsIdentifier(p.Key); !isIdent {
				Walk(p.Key, v)
			}
			Walk(p.Value, v)
		}
		if v.VisitObject != nil {
			v.VisitObject(expr, n.Properties)
		}
	}
}
