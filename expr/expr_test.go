package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/expr"
)

func TestLiteralString(t *testing.T) {
	require := require.New(t)

	require.Equal("NULL", expr.NullLiteral().String())
	require.Equal("3.5", expr.Float64Literal(3.5).String())
	require.Equal(`"hi"`, expr.StringLiteral("hi").String())
}

func TestBinaryExprWithChildren(t *testing.T) {
	require := require.New(t)

	b := &expr.BinaryExpr{Op: expr.OpAdd, Left: expr.Int64Literal(1), Right: expr.Int64Literal(2), Typ: expr.Int64}
	require.Equal("(1 + 2)", b.String())

	rebuilt, err := b.WithChildren(expr.Int64Literal(3), expr.Int64Literal(4))
	require.NoError(err)
	require.Equal("(3 + 4)", rebuilt.String())

	_, err = b.WithChildren(expr.Int64Literal(1))
	require.Error(err)
}

func TestCaseExprChildrenRoundTrip(t *testing.T) {
	require := require.New(t)

	c := &expr.CaseExpr{
		Branches: []expr.WhenThen{
			{When: expr.BoolLiteral(true), Then: expr.Int64Literal(1)},
		},
		Else: expr.Int64Literal(0),
		Typ:  expr.Int64,
	}
	require.Len(c.Children(), 3)

	rebuilt, err := c.WithChildren(expr.BoolLiteral(false), expr.Int64Literal(9), expr.Int64Literal(8))
	require.NoError(err)
	require.Equal("CASE WHEN false THEN 9 ELSE 8 END", rebuilt.String())
}

func TestFuncWindowString(t *testing.T) {
	require := require.New(t)

	f := &expr.Func{
		Kind:        expr.WindowFunc,
		Name:        "rank",
		PartitionBy: []expr.Expr{&expr.Column{Name: "cat", Typ: expr.Utf8}},
		OrderBy:     []expr.SortExpr{{Expr: &expr.Column{Name: "val", Typ: expr.Float64}, Ascending: true}},
		Typ:         expr.Int64,
	}
	require.Equal("rank() OVER (PARTITION BY cat ORDER BY val ASC)", f.String())
}

func TestSchemaFieldByName(t *testing.T) {
	require := require.New(t)

	s := expr.Schema{Fields: []expr.Field{{Name: "x", Type: expr.Float64}}}
	f, ok := s.FieldByName("x")
	require.True(ok)
	require.Equal(expr.Float64, f.Type)

	_, ok = s.FieldByName("missing")
	require.False(ok)
}

func TestProjectSchemaDerivesFieldNames(t *testing.T) {
	require := require.New(t)

	scan := &expr.TableScan{Table: "points", Sch: expr.Schema{Fields: []expr.Field{{Name: "x", Type: expr.Float64}}}}
	proj := &expr.Project{
		Input: expr.Input{Plan: scan, Alias: "points"},
		Exprs: []expr.Expr{
			&expr.Column{Name: "x", Typ: expr.Float64},
			&expr.Alias{Expr: expr.Int64Literal(1), Name: "one"},
		},
	}
	schema := proj.Schema()
	require.Equal("x", schema.Fields[0].Name)
	require.Equal("one", schema.Fields[1].Name)
}
