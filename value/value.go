// Package value holds the runtime-value types that flow through
// compilation and task evaluation: Scalar (signal bindings, scale
// lookups) and Table (the Arrow-backed columnar currency for
// datasets, spec §4.H).
package value

import (
	"fmt"
	"sort"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/vegafusion-go/vf/expr"
)

// Scalar is a single typed runtime value.
type Scalar struct {
	Typ   expr.DataType
	Value any // nil, bool, int64, float64, string, []Scalar, map[string]Scalar
}

func Null() Scalar                      { return Scalar{Typ: expr.Null} }
func Float64(v float64) Scalar          { return Scalar{Typ: expr.Float64, Value: v} }
func Int64(v int64) Scalar              { return Scalar{Typ: expr.Int64, Value: v} }
func String(v string) Scalar            { return Scalar{Typ: expr.Utf8, Value: v} }
func Bool(v bool) Scalar                { return Scalar{Typ: expr.Bool, Value: v} }
func List(items []Scalar) Scalar        { return Scalar{Typ: expr.List, Value: items} }
func Struct(fields map[string]Scalar) Scalar { return Scalar{Typ: expr.Struct, Value: fields} }

func (s Scalar) IsNull() bool { return s.Value == nil }

func (s Scalar) AsFloat64() (float64, bool) {
	switch v := s.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (s Scalar) AsString() (string, bool) {
	v, ok := s.Value.(string)
	return v, ok
}

func (s Scalar) AsBool() (bool, bool) {
	v, ok := s.Value.(bool)
	return v, ok
}

func (s Scalar) AsList() ([]Scalar, bool) {
	v, ok := s.Value.([]Scalar)
	return v, ok
}

func (s Scalar) String() string {
	if s.IsNull() {
		return "null"
	}
	switch v := s.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Table is an immutable, Arrow-backed columnar dataset: the currency
// that DataUrl/DataValues/DataSource tasks produce and that Arrow IPC
// carries across the wire (spec §4.H).
type Table struct {
	schema expr.Schema
	rec    arrow.Record
}

func NewTable(schema expr.Schema, rec arrow.Record) Table {
	return Table{schema: schema, rec: rec}
}

func (t Table) Schema() expr.Schema { return t.schema }

func (t Table) NumRows() int64 {
	if t.rec == nil {
		return 0
	}
	return t.rec.NumRows()
}

func (t Table) Record() arrow.Record { return t.rec }

// Column returns the scalar values of the named column in row order,
// as used by the scale resolver's field-reference domain lookups
// (spec §4.F step 2).
func (t Table) Column(name string) ([]Scalar, bool) {
	field, ok := t.schema.FieldByName(name)
	if !ok || t.rec == nil {
		return nil, false
	}
	idx := -1
	for i, f := range t.schema.Fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	col := t.rec.Column(idx)
	out := make([]Scalar, col.Len())
	for i := 0; i < col.Len(); i++ {
		out[i] = scalarFromArrow(col, i, field.Type)
	}
	return out, true
}

func scalarFromArrow(col arrow.Array, i int, typ expr.DataType) Scalar {
	if col.IsNull(i) {
		return Null()
	}
	switch a := col.(type) {
	case *array.Float64:
		return Float64(a.Value(i))
	case *array.Int64:
		return Int64(a.Value(i))
	case *array.String:
		return String(a.Value(i))
	case *array.Boolean:
		return Bool(a.Value(i))
	case *array.Timestamp:
		return Int64(int64(a.Value(i)))
	default:
		_ = typ
		return Null()
	}
}

// BuildTable constructs a Table from column-major scalar slices,
// inferring Arrow builders from schema field types. Used by
// DataValues deserialization and by tests constructing fixtures
// in-process (spec §4.H DataValues contract).
func BuildTable(mem memory.Allocator, schema expr.Schema, columns map[string][]Scalar) (Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	fields := make([]arrow.Field, len(schema.Fields))
	arrays := make([]arrow.Array, len(schema.Fields))
	var nrows int64 = -1

	for i, f := range schema.Fields {
		vals := columns[f.Name]
		if nrows < 0 {
			nrows = int64(len(vals))
		} else if int64(len(vals)) != nrows {
			return Table{}, fmt.Errorf("value: column %q has %d rows, want %d", f.Name, len(vals), nrows)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: f.Nullable}
		arr, err := buildArray(mem, f.Type, vals)
		if err != nil {
			return Table{}, fmt.Errorf("value: column %q: %w", f.Name, err)
		}
		arrays[i] = arr
	}
	if nrows < 0 {
		nrows = 0
	}
	aschema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(aschema, arrays, nrows)
	return NewTable(schema, rec), nil
}

func arrowType(t expr.DataType) arrow.DataType {
	switch t {
	case expr.Int64:
		return arrow.PrimitiveTypes.Int64
	case expr.Float64:
		return arrow.PrimitiveTypes.Float64
	case expr.Bool:
		return arrow.FixedWidthTypes.Boolean
	case expr.TimestampMillis:
		return arrow.FixedWidthTypes.Timestamp_ms
	default:
		return arrow.BinaryTypes.String
	}
}

func buildArray(mem memory.Allocator, typ expr.DataType, vals []Scalar) (arrow.Array, error) {
	switch typ {
	case expr.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range vals {
			if v.IsNull() {
				b.AppendNull()
				continue
			}
			f, _ := v.AsFloat64()
			b.Append(f)
		}
		return b.NewArray(), nil
	case expr.TimestampMillis:
		b := array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_ms.(*arrow.TimestampType))
		defer b.Release()
		for _, v := range vals {
			switch n := v.Value.(type) {
			case int64:
				b.Append(arrow.Timestamp(n))
			case float64:
				b.Append(arrow.Timestamp(int64(n)))
			default:
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case expr.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range vals {
			if v.IsNull() {
				b.AppendNull()
				continue
			}
			switch n := v.Value.(type) {
			case int64:
				b.Append(n)
			case float64:
				b.Append(int64(n))
			default:
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case expr.Bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range vals {
			if v.IsNull() {
				b.AppendNull()
				continue
			}
			bv, _ := v.AsBool()
			b.Append(bv)
		}
		return b.NewArray(), nil
	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range vals {
			if v.IsNull() {
				b.AppendNull()
				continue
			}
			b.Append(v.String0())
		}
		return b.NewArray(), nil
	}
}

// String0 renders a scalar's underlying value without JSON quoting,
// used for Utf8-column array construction.
func (s Scalar) String0() string {
	if sv, ok := s.Value.(string); ok {
		return sv
	}
	return fmt.Sprintf("%v", s.Value)
}

// SortScalars sorts a slice of comparable scalars ascending, nulls
// first-is-less (spec §4.F step 3 "nulls sort less than non-nulls").
func SortScalars(vals []Scalar, less func(a, b Scalar) bool) {
	sort.SliceStable(vals, func(i, j int) bool {
		if vals[i].IsNull() != vals[j].IsNull() {
			return vals[i].IsNull()
		}
		if vals[i].IsNull() {
			return false
		}
		return less(vals[i], vals[j])
	})
}
