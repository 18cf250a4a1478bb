package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ast"
)

func TestPrecedence_PlusMult(t *testing.T) {
	require := require.New(t)

	// spec §8 invariant 2: 1+2*3 is Binary(+, 1, Binary(*, 2, 3))
	e, err := Parse("1+2*3")
	require.NoError(err)

	op, left, right, ok := ast.AsBinary(e)
	require.True(ok)
	require.Equal(ast.Plus, op)

	_, lok := ast.AsLiteral(left)
	require.True(lok)

	rop, _, _, rok := ast.AsBinary(right)
	require.True(rok)
	require.Equal(ast.Mult, rop)
}

func TestPrecedence_PlusEquals(t *testing.T) {
	require := require.New(t)

	// 1+2==3 is Binary(==, Binary(+,1,2), 3)
	e, err := Parse("1+2==3")
	require.NoError(err)

	op, left, _, ok := ast.AsBinary(e)
	require.True(ok)
	require.Equal(ast.Equals, op)

	lop, _, _, lok := ast.AsBinary(left)
	require.True(lok)
	require.Equal(ast.Plus, lop)
}

func TestPrecedence_NotTernary(t *testing.T) {
	require := require.New(t)

	// !true?1:2 is Conditional(Unary(!,true),1,2)
	e, err := Parse("!true?1:2")
	require.NoError(err)

	test, cons, alt, ok := ast.AsConditional(e)
	require.True(ok)

	uop, _, uok := ast.AsUnary(test)
	require.True(uok)
	require.Equal(ast.UnaryNot, uop)

	_, consIsLit := ast.AsLiteral(cons)
	require.True(consIsLit)
	_, altIsLit := ast.AsLiteral(alt)
	require.True(altIsLit)
}

func TestRoundTrip(t *testing.T) {
	require := require.New(t)

	exprs := []string{
		"1 + 2 * 3",
		"(1 + 2) * 3",
		"a.b.c",
		"a['b' + c]",
		"foo(1, 2, bar(3))",
		"a ? b : c ? d : e",
		"!a && b || c",
		"-x + +y",
		"{a: 1, 'two': {three: 3}}",
		"[1, 2, 3]",
		"datum.x === 'hi'",
	}

	for _, src := range exprs {
		e1, err := Parse(src)
		require.NoError(err, src)

		printed := e1.String()
		e2, err := Parse(printed)
		require.NoError(err, printed)

		require.Equal(e1.String(), e2.String(), "round-trip mismatch for %q -> %q", src, printed)

		// Re-parsing the printed form again must be a fixed point.
		printed2 := e2.String()
		require.Equal(printed, printed2)
	}
}

func TestParseObjectLiteral(t *testing.T) {
	require := require.New(t)

	// spec §8 S2
	e, err := Parse(`{a: 1, 'two': {three: 3}}`)
	require.NoError(err)

	props, ok := ast.AsObject(e)
	require.True(ok)
	require.Len(props, 2)

	name, ok := ast.AsIdentifier(props[0].Key)
	require.True(ok)
	require.Equal("a", name)
	_, ok = ast.AsLiteral(props[0].Value)
	require.True(ok)

	keyStr, ok := ast.AsStringLiteral(props[1].Key)
	require.True(ok)
	require.Equal("two", keyStr)

	innerProps, ok := ast.AsObject(props[1].Value)
	require.True(ok)
	require.Len(innerProps, 1)
	innerName, ok := ast.AsIdentifier(innerProps[0].Key)
	require.True(ok)
	require.Equal("three", innerName)
}

func TestParsePrecedenceRejectsUnsupportedTokens(t *testing.T) {
	require := require.New(t)
	_, err := Parse("1 +")
	require.Error(err)

	_, err = Parse("(1 + 2")
	require.Error(err)
}
