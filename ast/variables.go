package ast

import (
	"sort"

	"github.com/vegafusion-go/vf/variable"
)

// datumName is the implicit row variable; references to it are never
// collected as a free variable (spec §4.C).
const datumName = "datum"

// GetVariables collects every Variable{Signal,...}/{Data,...}/{Scale,...}
// referenced by expr, excluding the implicit `datum` row variable. An
// identifier is classified as Data or Scale only when it is the callee
// of a `data(...)`/`scale(...)` call and the first argument is a
// literal string (spec §4.C); all other identifiers are Signal.
func GetVariables(expr *Expression) []variable.Variable {
	seen := map[variable.Variable]struct{}{}
	var out []variable.Variable

	add := func(v variable.Variable) {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	Walk(expr, &Visitor{
		VisitIdentifier: func(_ *Expression, name string) {
			if name != datumName {
				add(variable.Variable{Namespace: variable.Signal, Name: name})
			}
		},
		VisitCalledIdentifier: func(_ *Expression, name string, args []*Expression) {
			if len(args) == 0 {
				return
			}
			str, ok := AsStringLiteral(args[0])
			if !ok {
				return
			}
			switch name {
			case "data", "vlSelectionTest", "vlSelectionResolve":
				add(variable.Variable{Namespace: variable.Data, Name: str})
			case "scale", "invert", "domain", "range", "bandwidth":
				add(variable.Variable{Namespace: variable.Scale, Name: str})
			}
		},
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// InputVariables classifies every signal, data, and scale name that
// must be in scope to evaluate expr — the same set as GetVariables,
// kept as a distinct entry point because the expression compiler (§4.E)
// and the dependency graph builder (§4.D) consume it under different
// names ("input_vars" in the reference).
func InputVariables(expr *Expression) []variable.Variable {
	return GetVariables(expr)
}
