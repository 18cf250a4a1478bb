package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/compiler"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/parser"
)

func lower(t *testing.T, src string, cfg compiler.Config, schema *expr.Schema) expr.Expr {
	t.Helper()
	e, err := parser.Parse(src)
	require.NoError(t, err)
	lowered, err := compiler.Compile(e, cfg, schema)
	require.NoError(t, err)
	return lowered
}

func baseConfig() compiler.Config {
	return compiler.Config{CallableScope: compiler.DefaultCallables()}
}

func TestCompile_LooseEqualityPromotesStringLiteral(t *testing.T) {
	require := require.New(t)

	// spec §8 S3: "'2.0' == 2" lowers to TRY_CAST("2.0" AS Float64) == 2.0
	lowered := lower(t, `'2.0' == 2`, baseConfig(), nil)

	b, ok := lowered.(*expr.BinaryExpr)
	require.True(ok)
	require.Equal(expr.OpEq, b.Op)

	cast, ok := b.Left.(*expr.Cast)
	require.True(ok)
	require.Equal(expr.SoftCast, cast.Mode)
	require.Equal(expr.Float64, cast.Typ)

	lit, ok := cast.Arg.(*expr.Literal)
	require.True(ok)
	require.Equal("2.0", lit.Value)
}

func TestCompile_StrictEqualityTypeMismatchFolds(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `'x' === 1`, baseConfig(), nil)
	lit, ok := lowered.(*expr.Literal)
	require.True(ok)
	require.Equal(false, lit.Value)

	lowered = lower(t, `'x' !== 1`, baseConfig(), nil)
	lit, ok = lowered.(*expr.Literal)
	require.True(ok)
	require.Equal(true, lit.Value)
}

func TestCompile_DatumMember(t *testing.T) {
	require := require.New(t)

	schema := &expr.Schema{Fields: []expr.Field{{Name: "x", Type: expr.Float64}}}
	lowered := lower(t, `!datum.x`, baseConfig(), schema)

	u, ok := lowered.(*expr.UnaryExpr)
	require.True(ok)
	require.Equal(expr.Not, u.Op)

	coalesce, ok := u.Arg.(*expr.Func)
	require.True(ok)
	require.Equal("coalesce", coalesce.Name)

	cast, ok := coalesce.Args[0].(*expr.Cast)
	require.True(ok)
	col, ok := cast.Arg.(*expr.Column)
	require.True(ok)
	require.Equal("x", col.Name)
}

func TestCompile_ComputedMemberConstantFold(t *testing.T) {
	require := require.New(t)

	schema := &expr.Schema{Fields: []expr.Field{{Name: "xy", Type: expr.Float64}}}
	lowered := lower(t, `datum['x' + 'y']`, baseConfig(), schema)

	col, ok := lowered.(*expr.Column)
	require.True(ok)
	require.Equal("xy", col.Name)
}

func TestCompile_UnknownFunctionErrors(t *testing.T) {
	require := require.New(t)

	e, err := parser.Parse(`notAFunction(1)`)
	require.NoError(err)
	_, err = compiler.Compile(e, baseConfig(), nil)
	require.Error(err)
}

func TestCompile_StringConcat(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `'a' + 'b'`, baseConfig(), nil)
	f, ok := lowered.(*expr.Func)
	require.True(ok)
	require.Equal("concat", f.Name)
}

func TestCompile_ObjectLiteral(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `{a: 1, b: 'two'}`, baseConfig(), nil)
	sc, ok := lowered.(*expr.StructConstruct)
	require.True(ok)
	require.Len(sc.Fields, 2)
	require.Equal("a", sc.Fields[0].Name)
	require.Equal("b", sc.Fields[1].Name)
}

func TestCompile_UnknownScaleNameYieldsNull(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `scale('missing', 1)`, baseConfig(), nil)
	lit, ok := lowered.(*expr.Literal)
	require.True(ok)
	require.True(lit.Value == nil)
}

func TestCompile_UnknownFunctionSuggestsClosestName(t *testing.T) {
	require := require.New(t)

	e, err := parser.Parse(`spn(1)`)
	require.NoError(err)
	_, err = compiler.Compile(e, baseConfig(), nil)
	require.Error(err)
	require.Contains(err.Error(), "span")
}

func TestCompile_Bandspace(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `bandspace(10, 0.1, 0.05)`, baseConfig(), nil)
	f, ok := lowered.(*expr.Func)
	require.True(ok)
	require.Equal("vf_bandspace", f.Name)
	require.Len(f.Args, 3)
	require.Equal(expr.Float64, f.Type())
}

func TestCompile_PanLinearTakesDomainAndDelta(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `panLinear([0, 100], 0.5)`, baseConfig(), nil)
	f, ok := lowered.(*expr.Func)
	require.True(ok)
	require.Equal("vf_panLinear", f.Name)
	require.Len(f.Args, 2)
	require.Equal(expr.List, f.Type())
}

func TestCompile_ZoomLogTakesDomainAnchorAndFactor(t *testing.T) {
	require := require.New(t)

	lowered := lower(t, `zoomLog([1, 100], 10, 2)`, baseConfig(), nil)
	f, ok := lowered.(*expr.Func)
	require.True(ok)
	require.Equal("vf_zoomLog", f.Name)
	require.Len(f.Args, 3)
}

func TestCompile_PanLinearWrongArityErrors(t *testing.T) {
	require := require.New(t)

	e, err := parser.Parse(`panLinear([0, 100])`)
	require.NoError(err)
	_, err = compiler.Compile(e, baseConfig(), nil)
	require.Error(err)
}
