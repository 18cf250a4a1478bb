// Package expr defines the relational expression tree and logical plan
// (spec §3 LogicalPlan/Expr) that the expression compiler (§4.E) lowers
// AST expressions into, and that the SQL compiler (§4.I) lowers into
// dialect text. The tree is immutable; rewrites return new nodes,
// mirroring the teacher's Expression.WithChildren rebuild idiom.
package expr

import "fmt"

// DataType is the engine's scalar/column type lattice. The compiler
// uses only a small subset (spec §4.E: every numeric literal is
// Float64; identifiers typed from the row schema or signal scope).
type DataType int

const (
	Unknown DataType = iota
	Null
	Bool
	Int64
	Float64
	Utf8
	TimestampMillis
	List
	Struct
)

func (t DataType) String() string {
	switch t {
	case Null:
		return "Null"
	case Bool:
		return "Boolean"
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case Utf8:
		return "Utf8"
	case TimestampMillis:
		return "TimestampMillis"
	case List:
		return "List"
	case Struct:
		return "Struct"
	default:
		return "Unknown"
	}
}

// Field is a single named, typed column.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
}

// Schema is the engine-contract row schema used to resolve column
// references during compilation (spec §4.E "optional row schema").
type Schema struct {
	Fields []Field
}

// FieldByName returns the field named name, or false if absent.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) String() string {
	return fmt.Sprintf("%v", s.Fields)
}
