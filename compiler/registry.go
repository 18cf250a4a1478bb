package compiler

import (
	"fmt"
	"strings"

	"github.com/vegafusion-go/vf/ast"
	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/scale"
	"github.com/vegafusion-go/vf/value"
	"github.com/vegafusion-go/vf/vferr"
)

// DefaultCallables builds the built-in dispatch table (spec §4.E),
// grounded one-for-one on the reference compiler's default_callables
// registry: ScalarUDF entries for DataFusion-native math functions,
// Macro for `if`, Transform/UnaryTransform/Local-or-UtcTransform for
// the rest, and Data/Scale hooks for the dataset- and scale-aware
// callables.
func DefaultCallables() map[string]Callable {
	c := map[string]Callable{}

	c["if"] = Callable{Name: "if", Macro: ifMacro}

	c["scale"] = Callable{Name: "scale", Scale: scaleLookupFn}
	c["invert"] = Callable{Name: "invert", Scale: scaleInvertFn}
	c["domain"] = Callable{Name: "domain", Scale: scaleDomainFn}
	c["range"] = Callable{Name: "range", Scale: scaleRangeFn}
	c["bandwidth"] = Callable{Name: "bandwidth", Scale: scaleBandwidthFn}

	for _, name := range []string{"abs", "acos", "asin", "atan", "ceil", "cos", "exp", "floor", "round", "sin", "sqrt", "tan", "pow"} {
		c[name] = Callable{Name: name, ScalarFn: name, CastArgsTo: expr.Float64, HasCast: true}
	}
	// Vega `log` is natural log.
	c["log"] = Callable{Name: "log", ScalarFn: "ln", CastArgsTo: expr.Float64, HasCast: true}

	c["min"] = Callable{Name: "min", Transform: minTransform}
	c["isNaN"] = Callable{Name: "isNaN", Transform: isNaNTransform}
	c["isFinite"] = Callable{Name: "isFinite", Transform: isFiniteTransform}
	c["isValid"] = Callable{Name: "isValid", Transform: isValidTransform}
	c["isDate"] = Callable{Name: "isDate", Transform: isDateTransform}
	c["length"] = Callable{Name: "length", Transform: lengthTransform}
	c["span"] = Callable{Name: "span", Transform: spanTransform}
	c["indexof"] = Callable{Name: "indexof", Transform: indexofTransform}

	c["bandspace"] = Callable{Name: "bandspace", Transform: bandspaceTransform}
	for _, name := range []string{"panLinear", "panLog", "panPow", "panSymlog"} {
		c[name] = Callable{Name: name, Transform: panZoomTransform(name)}
	}
	for _, name := range []string{"zoomLinear", "zoomLog", "zoomPow", "zoomSymlog"} {
		c[name] = Callable{Name: name, Transform: panZoomTransform(name)}
	}

	for name, udf := range map[string]string{
		"year": "vf_year", "quarter": "vf_quarter", "month": "vf_month", "day": "vf_day",
		"date": "vf_date", "dayofyear": "vf_dayofyear", "hours": "vf_hours",
		"minutes": "vf_minutes", "seconds": "vf_seconds", "milliseconds": "vf_milliseconds",
	} {
		c[name] = Callable{Name: name, LocalTransform: localDatePartTransform(udf)}
	}
	for name, udf := range map[string]string{
		"utcyear": "vf_utcyear", "utcquarter": "vf_utcquarter", "utcmonth": "vf_utcmonth",
		"utcday": "vf_utcday", "utcdate": "vf_utcdate", "utcdayofyear": "vf_utcdayofyear",
		"utchours": "vf_utchours", "utcminutes": "vf_utcminutes", "utcseconds": "vf_utcseconds",
		"utcmilliseconds": "vf_utcmilliseconds",
	} {
		c[name] = Callable{Name: name, UtcTransform: utcDatePartTransform(udf)}
	}

	c["datetime"] = Callable{Name: "datetime", LocalTransform: datetimeTransform}
	c["time"] = Callable{Name: "time", LocalTransform: localUnaryScalarFnTransform("vf_time_value")}
	c["timeFormat"] = Callable{Name: "timeFormat", LocalTransform: dateFormatTransform("vf_time_format")}
	c["utcFormat"] = Callable{Name: "utcFormat", LocalTransform: dateFormatTransform("vf_utc_format")}
	c["timeOffset"] = Callable{Name: "timeOffset", LocalTransform: timeOffsetTransform}

	c["format"] = Callable{Name: "format", Transform: formatTransform}

	c["toBoolean"] = Callable{Name: "toBoolean", Transform: toBooleanTransform}
	c["toDate"] = Callable{Name: "toDate", LocalTransform: toDateTransform}
	c["toNumber"] = Callable{Name: "toNumber", Transform: toNumberTransform}
	c["toString"] = Callable{Name: "toString", Transform: toStringTransform}

	c["data"] = Callable{Name: "data", Data: dataFn}
	c["vlSelectionTest"] = Callable{Name: "vlSelectionTest", Data: vlSelectionTestFn}
	c["vlSelectionResolve"] = Callable{Name: "vlSelectionResolve", Data: vlSelectionResolveFn}

	return c
}

// ---- Macro ----

func ifMacro(args []*ast.Expression, call *ast.Expression) (*ast.Expression, error) {
	if len(args) != 3 {
		return nil, vferr.ErrCompilation.New("if(test, then, else) takes exactly 3 arguments")
	}
	return ast.NewConditional(args[0], args[1], args[2], call.Span), nil
}

// ---- Transforms ----

func minTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "least", Args: lowered, Typ: expr.Float64}, nil
}

func isNaNTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	return unaryBoolFn(c, args, "isnan")
}

func isFiniteTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	return unaryBoolFn(c, args, "vf_is_finite")
}

func isValidTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	return unaryBoolFn(c, args, "vf_is_valid")
}

func isDateTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	return unaryBoolFn(c, args, "vf_is_date")
}

func unaryBoolFn(c *compilation, args []*ast.Expression, name string) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s takes exactly one argument", name))
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: name, Args: []expr.Expr{a}, Typ: expr.Bool}, nil
}

func lengthTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New("length takes exactly one argument")
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	name := "char_length"
	if a.Type() == expr.List {
		name = "cardinality"
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: name, Args: []expr.Expr{a}, Typ: expr.Int64}, nil
}

func spanTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New("span takes exactly one argument")
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_span", Args: []expr.Expr{a}, Typ: expr.Float64}, nil
}

// bandspaceTransform lowers Vega's bandspace(count, paddingInner,
// paddingOuter) helper, which computes the number of band steps a
// discrete range must reserve (package scale's {step} range formula
// already implements the same arithmetic for the server-side resolver
// — see scale.ResolveRange — this just exposes it as a compiled
// expression for client-side interaction signals).
func bandspaceTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, vferr.ErrCompilation.New("bandspace takes between 1 and 3 arguments")
	}
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_bandspace", Args: lowered, Typ: expr.Float64}, nil
}

// panZoomTransform lowers Vega's panLinear/panLog/panPow/panSymlog
// (domain, delta) and zoomLinear/zoomLog/zoomPow/zoomSymlog (domain,
// anchor, scaleFactor) scale-interaction helpers, grounded on
// call.rs's default_callables entries for the same eight names (spec
// §4.E's interaction-signal callables). Each compiles to a
// correspondingly-named scalar UDF returning the panned/zoomed domain
// array; the curve-specific math (linear/log/pow/symlog) is the
// columnar engine's job, same as every other vf_-prefixed UDF this
// compiler emits.
func panZoomTransform(name string) func(*compilation, []*ast.Expression) (expr.Expr, error) {
	wantArgs := 2
	if strings.HasPrefix(name, "zoom") {
		wantArgs = 3
	}
	udfName := "vf_" + name
	return func(c *compilation, args []*ast.Expression) (expr.Expr, error) {
		if len(args) != wantArgs {
			return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s takes exactly %d arguments", name, wantArgs))
		}
		lowered, err := c.lowerArgs(args)
		if err != nil {
			return nil, err
		}
		return &expr.Func{Kind: expr.ScalarFunc, Name: udfName, Args: lowered, Typ: expr.List}, nil
	}
}

func indexofTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 2 {
		return nil, vferr.ErrCompilation.New("indexof(collection, value) takes exactly 2 arguments")
	}
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_indexof", Args: lowered, Typ: expr.Int64}, nil
}

func formatTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 2 {
		return nil, vferr.ErrCompilation.New("format(value, specifier) takes exactly 2 arguments")
	}
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_format", Args: lowered, Typ: expr.Utf8}, nil
}

func toBooleanTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	a, err := requireOneArg(c, args, "toBoolean")
	if err != nil {
		return nil, err
	}
	return &expr.Cast{Arg: a, Typ: expr.Bool, Mode: expr.SoftCast}, nil
}

func toNumberTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	a, err := requireOneArg(c, args, "toNumber")
	if err != nil {
		return nil, err
	}
	return &expr.Cast{Arg: a, Typ: expr.Float64, Mode: expr.SoftCast}, nil
}

func toStringTransform(c *compilation, args []*ast.Expression) (expr.Expr, error) {
	a, err := requireOneArg(c, args, "toString")
	if err != nil {
		return nil, err
	}
	return &expr.Cast{Arg: a, Typ: expr.Utf8, Mode: expr.SoftCast}, nil
}

func requireOneArg(c *compilation, args []*ast.Expression, name string) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s takes exactly one argument", name))
	}
	return c.lower(args[0])
}

// ---- LocalTransform / UtcTransform (date parts) ----

func localDatePartTransform(udfName string) func(*compilation, []*ast.Expression, string) (expr.Expr, error) {
	return func(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
		return datePartFn(c, args, udfName, tz)
	}
}

func utcDatePartTransform(udfName string) func(*compilation, []*ast.Expression) (expr.Expr, error) {
	return func(c *compilation, args []*ast.Expression) (expr.Expr, error) {
		return datePartFn(c, args, udfName, "UTC")
	}
}

func datePartFn(c *compilation, args []*ast.Expression, udfName, tz string) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s takes exactly one argument", udfName))
	}
	if tz == "" {
		return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s requires a resolved timezone", udfName))
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return &expr.Func{
		Kind: expr.ScalarFunc, Name: udfName,
		Args: []expr.Expr{a, expr.StringLiteral(tz)},
		Typ:  expr.Int64,
	}, nil
}

func localUnaryScalarFnTransform(udfName string) func(*compilation, []*ast.Expression, string) (expr.Expr, error) {
	return func(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
		lowered, err := c.lowerArgs(args)
		if err != nil {
			return nil, err
		}
		if tz != "" {
			lowered = append(lowered, expr.StringLiteral(tz))
		}
		return &expr.Func{Kind: expr.ScalarFunc, Name: udfName, Args: lowered, Typ: expr.Float64}, nil
	}
}

func dateFormatTransform(udfName string) func(*compilation, []*ast.Expression, string) (expr.Expr, error) {
	return func(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
		if len(args) != 2 {
			return nil, vferr.ErrCompilation.New(fmt.Sprintf("%s(value, specifier) takes exactly 2 arguments", udfName))
		}
		lowered, err := c.lowerArgs(args)
		if err != nil {
			return nil, err
		}
		lowered = append(lowered, expr.StringLiteral(tz))
		return &expr.Func{Kind: expr.ScalarFunc, Name: udfName, Args: lowered, Typ: expr.Utf8}, nil
	}
}

func timeOffsetTransform(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, vferr.ErrCompilation.New("timeOffset(unit, date, step?) takes 2 or 3 arguments")
	}
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	lowered = append(lowered, expr.StringLiteral(tz))
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_time_offset", Args: lowered, Typ: expr.TimestampMillis}, nil
}

func datetimeTransform(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
	lowered, err := c.lowerArgs(args)
	if err != nil {
		return nil, err
	}
	lowered = append(lowered, expr.StringLiteral(tz))
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_make_datetime", Args: lowered, Typ: expr.TimestampMillis}, nil
}

func toDateTransform(c *compilation, args []*ast.Expression, tz string) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New("toDate takes exactly one argument")
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_to_date", Args: []expr.Expr{a, expr.StringLiteral(tz)}, Typ: expr.TimestampMillis}, nil
}

// ---- Data callables ----

func dataFn(c *compilation, dataset string, table value.Table, rest []*ast.Expression) (expr.Expr, error) {
	if len(rest) != 0 {
		return nil, vferr.ErrCompilation.New("data(name) takes no trailing arguments")
	}
	_ = table
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_dataset_ref", Args: []expr.Expr{expr.StringLiteral(dataset)}, Typ: expr.List}, nil
}

func vlSelectionTestFn(c *compilation, dataset string, table value.Table, rest []*ast.Expression) (expr.Expr, error) {
	_ = table
	lowered, err := c.lowerArgs(rest)
	if err != nil {
		return nil, err
	}
	args := append([]expr.Expr{expr.StringLiteral(dataset)}, lowered...)
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_selection_test", Args: args, Typ: expr.Bool}, nil
}

func vlSelectionResolveFn(c *compilation, dataset string, table value.Table, rest []*ast.Expression) (expr.Expr, error) {
	_ = table
	lowered, err := c.lowerArgs(rest)
	if err != nil {
		return nil, err
	}
	args := append([]expr.Expr{expr.StringLiteral(dataset)}, lowered...)
	return &expr.Func{Kind: expr.ScalarFunc, Name: "vf_selection_resolve", Args: args, Typ: expr.Bool}, nil
}

// ---- Scale callables ----

// scaleNameUDF closes a resolved ScaleState over a per-call UDF node
// so sqlgen can later lower it using the scale's baked-in
// domain/range (spec §4.E "lower to a per-scale UDF").
func scaleNameUDF(fnName string, st *scale.State, arg expr.Expr) *expr.Func {
	return &expr.Func{Kind: expr.ScalarFunc, Name: fnName, Args: []expr.Expr{arg}, Typ: expr.Float64}
}

func scaleLookupFn(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New("scale(name, value) takes exactly 2 arguments")
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return scaleNameUDF("vf_scale_lookup", st, a), nil
}

func scaleInvertFn(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 1 {
		return nil, vferr.ErrCompilation.New("invert(name, value) takes exactly 2 arguments")
	}
	a, err := c.lower(args[0])
	if err != nil {
		return nil, err
	}
	return scaleNameUDF("vf_scale_invert", st, a), nil
}

func scaleDomainFn(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 0 {
		return nil, vferr.ErrCompilation.New("domain(name) takes exactly 1 argument")
	}
	elems := make([]expr.Expr, len(st.Domain))
	for i, d := range st.Domain {
		elems[i] = scalarToLiteral(d)
	}
	return &expr.ListConstruct{Elements: elems, ElemType: expr.Float64}, nil
}

func scaleRangeFn(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 0 {
		return nil, vferr.ErrCompilation.New("range(name) takes exactly 1 argument")
	}
	elems := make([]expr.Expr, len(st.Range))
	for i, r := range st.Range {
		elems[i] = scalarToLiteral(r)
	}
	return &expr.ListConstruct{Elements: elems, ElemType: expr.Float64}, nil
}

func scaleBandwidthFn(c *compilation, st *scale.State, call *ast.Expression, args []*ast.Expression) (expr.Expr, error) {
	if len(args) != 0 {
		return nil, vferr.ErrCompilation.New("bandwidth(name) takes exactly 1 argument")
	}
	return expr.Float64Literal(st.Bandwidth()), nil
}
