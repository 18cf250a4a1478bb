package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/dialect"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/sqlgen"
)

func TestExpr_ColumnAndLiteral(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Postgres))

	s, err := g.Expr(&expr.Column{Name: "x", Typ: expr.Float64})
	require.NoError(err)
	require.Equal(`"x"`, s)

	s, err = g.Expr(expr.StringLiteral("it's"))
	require.NoError(err)
	require.Equal(`'it''s'`, s)
}

func TestExpr_SoftCastPerDialect(t *testing.T) {
	require := require.New(t)
	arg := expr.StringLiteral("1")

	pg := sqlgen.New(dialect.For(dialect.Postgres))
	s, err := pg.Expr(&expr.Cast{Arg: arg, Typ: expr.Float64, Mode: expr.SoftCast})
	require.NoError(err)
	require.Equal(`TRY_CAST('1' AS DOUBLE)`, s)

	ch := sqlgen.New(dialect.For(dialect.ClickHouse))
	s, err = ch.Expr(&expr.Cast{Arg: arg, Typ: expr.Float64, Mode: expr.SoftCast})
	require.NoError(err)
	require.Equal(`CAST('1' AS DOUBLE)`, s)

	bq := sqlgen.New(dialect.For(dialect.BigQuery))
	s, err = bq.Expr(&expr.Cast{Arg: arg, Typ: expr.Float64, Mode: expr.SoftCast})
	require.NoError(err)
	require.Equal(`SAFE_CAST('1' AS DOUBLE)`, s)

	sqlite := sqlgen.New(dialect.For(dialect.SqLite))
	s, err = sqlite.Expr(&expr.Cast{Arg: arg, Typ: expr.Float64, Mode: expr.SoftCast})
	require.NoError(err)
	require.Equal(`TRY_CAST('1' AS DOUBLE)`, s)

	intArg := expr.Int64Literal(1)
	s, err = sqlite.Expr(&expr.Cast{Arg: intArg, Typ: expr.Float64, Mode: expr.SoftCast})
	require.NoError(err)
	require.Equal(`CAST(1 AS DOUBLE)`, s)
}

func TestExpr_ModuloRewrittenToFunctionOnBigQuery(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.BigQuery))

	s, err := g.Expr(&expr.BinaryExpr{
		Op: expr.OpMod, Left: expr.Int64Literal(7), Right: expr.Int64Literal(2), Typ: expr.Int64,
	})
	require.NoError(err)
	require.Equal(`MOD(7, 2)`, s)
}

func TestExpr_AggregateTransformRenamesVarOnPostgres(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Postgres))

	s, err := g.Expr(&expr.Func{
		Kind: expr.AggregateFunc,
		Name: "var",
		Args: []expr.Expr{&expr.Column{Name: "x", Typ: expr.Float64}},
		Typ:  expr.Float64,
	})
	require.NoError(err)
	require.Equal(`var_samp("x")`, s)
}

func TestExpr_UnsupportedAggregateErrors(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.SqLite))

	_, err := g.Expr(&expr.Func{
		Kind: expr.AggregateFunc,
		Name: "median",
		Args: []expr.Expr{&expr.Column{Name: "x", Typ: expr.Float64}},
		Typ:  expr.Float64,
	})
	require.Error(err)
}

func baseSchema() expr.Schema {
	return expr.Schema{Fields: []expr.Field{{Name: "a", Type: expr.Float64}, {Name: "b", Type: expr.Float64}}}
}

func TestPlan_ValuesWithSubqueryColumnAliases(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Postgres))

	v := &expr.Values{
		Sch: baseSchema(),
		Rows: [][]expr.Expr{
			{expr.Float64Literal(1), expr.Float64Literal(2)},
		},
	}
	s, err := g.Plan(v)
	require.NoError(err)
	require.Contains(s, "VALUES (1, 2)")
	require.Contains(s, `("a", "b")`)
}

func TestPlan_ValuesSelectUnionOnRedshift(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Redshift))

	v := &expr.Values{
		Sch: baseSchema(),
		Rows: [][]expr.Expr{
			{expr.Float64Literal(1), expr.Float64Literal(2)},
			{expr.Float64Literal(3), expr.Float64Literal(4)},
		},
	}
	s, err := g.Plan(v)
	require.NoError(err)
	require.Contains(s, "UNION ALL")
	require.Contains(s, `1 AS "a"`)
}

func TestPlan_ValuesSelectColumnAliasesOnSnowflake(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Snowflake))

	v := &expr.Values{
		Sch:  baseSchema(),
		Rows: [][]expr.Expr{{expr.Float64Literal(1), expr.Float64Literal(2)}},
	}
	s, err := g.Plan(v)
	require.NoError(err)
	require.Contains(s, "COLUMN1")
	require.Contains(s, "COLUMN2")
}

func TestPlan_FilterAndProject(t *testing.T) {
	require := require.New(t)
	g := sqlgen.New(dialect.For(dialect.Postgres))

	scan := &expr.TableScan{Table: "points", Sch: baseSchema()}
	filtered := &expr.Filter{
		Input:     expr.Input{Plan: scan, Alias: "t"},
		Predicate: &expr.BinaryExpr{Op: expr.OpGt, Left: &expr.Column{Name: "a", Typ: expr.Float64}, Right: expr.Float64Literal(0), Typ: expr.Bool},
	}
	proj := &expr.Project{
		Input: expr.Input{Plan: filtered, Alias: "f"},
		Exprs: []expr.Expr{&expr.Column{Name: "a", Typ: expr.Float64}},
	}

	s, err := g.Plan(proj)
	require.NoError(err)
	require.Contains(s, "WHERE")
	require.Contains(s, "SELECT * FROM")
}
