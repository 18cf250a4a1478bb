package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/token"
)

func TestTokenizeString_Escapes(t *testing.T) {
	require := require.New(t)

	// spec §8 S1
	toks, err := Tokenize(` 'Hello, world \xAE ♥ \u{1F602}' `)
	require.NoError(err)
	require.Len(toks, 1)
	require.Equal(token.String, toks[0].Token.Kind)
	require.Equal("Hello, world ® ♥ 😂", toks[0].Token.Str)
	require.Equal(`'Hello, world \xAE ♥ \u{1F602}'`, toks[0].Token.Raw)
}

func TestTokenizeNumbers(t *testing.T) {
	require := require.New(t)

	cases := map[string]float64{
		"0":      0,
		"0.5":    0.5,
		".5":     0.5,
		"123":    123,
		"1.5e10": 1.5e10,
		"1e-3":   1e-3,
	}
	for src, want := range cases {
		toks, err := Tokenize(src)
		require.NoError(err, src)
		require.Len(toks, 1, src)
		require.Equal(token.Number, toks[0].Token.Kind, src)
		require.Equal(want, toks[0].Token.Num, src)
	}
}

func TestTokenizeNumbers_LeadingZeroRejected(t *testing.T) {
	require := require.New(t)

	_, err := Tokenize("007")
	require.Error(err)

	_, err = Tokenize("00.5")
	require.Error(err)
}

func TestTokenizeDot(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize(".")
	require.NoError(err)
	require.Len(toks, 1)
	require.Equal(token.Dot, toks[0].Token.Kind)
}

func TestTokenizeBangRun(t *testing.T) {
	require := require.New(t)
	toks, err := Tokenize("!!!x")
	require.NoError(err)
	require.Len(toks, 4)
	require.Equal(token.Exclamation, toks[0].Token.Kind)
	require.Equal(token.Exclamation, toks[1].Token.Kind)
	require.Equal(token.Exclamation, toks[2].Token.Kind)
	require.Equal(token.Identifier, toks[3].Token.Kind)
}

func TestTokenizeRejectsUnsupportedOperators(t *testing.T) {
	require := require.New(t)

	for _, src := range []string{"x++", "x--", "a|b", "a&b", "a=b", "a<<b", "a>>b", "a>>>b"} {
		_, err := Tokenize(src)
		require.Error(err, src)
	}
}

func TestTokenizeReservedIdentifiers(t *testing.T) {
	require := require.New(t)

	toks, err := Tokenize("true false null x")
	require.NoError(err)
	require.Len(toks, 4)
	require.Equal(token.Bool, toks[0].Token.Kind)
	require.True(toks[0].Token.Bool)
	require.Equal(token.Bool, toks[1].Token.Kind)
	require.False(toks[1].Token.Bool)
	require.Equal(token.Null, toks[2].Token.Kind)
	require.Equal(token.Identifier, toks[3].Token.Kind)
}

func TestTokenizeInvalidCharacter(t *testing.T) {
	require := require.New(t)
	_, err := Tokenize("@")
	require.Error(err)
}
