package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/ast"
	"github.com/vegafusion-go/vf/parser"
	"github.com/vegafusion-go/vf/variable"
)

func TestGetVariables_ExcludesDatum(t *testing.T) {
	require := require.New(t)

	e, err := parser.Parse("datum.x + width")
	require.NoError(err)

	vars := ast.GetVariables(e)
	require.Equal([]variable.Variable{{Namespace: variable.Signal, Name: "width"}}, vars)
}

func TestGetVariables_DataAndScaleCallees(t *testing.T) {
	require := require.New(t)

	e, err := parser.Parse("scale('x', data('points')[0])")
	require.NoError(err)

	vars := ast.GetVariables(e)
	require.Contains(vars, variable.Variable{Namespace: variable.Scale, Name: "x"})
	require.Contains(vars, variable.Variable{Namespace: variable.Data, Name: "points"})
}

func TestGetVariables_NonLiteralFirstArgIsSignalFree(t *testing.T) {
	require := require.New(t)

	// When the first argument isn't a literal string, data()/scale() don't
	// resolve to a named Data/Scale variable (can't statically determine name).
	e, err := parser.Parse("data(sig)")
	require.NoError(err)

	vars := ast.GetVariables(e)
	require.Contains(vars, variable.Variable{Namespace: variable.Signal, Name: "sig"})
	for _, v := range vars {
		require.NotEqual(variable.Data, v.Namespace)
	}
}
