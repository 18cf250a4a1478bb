// Package dialect declares the per-backend SQL capability tables the
// sqlgen compiler parameterises over (spec §4.I).
package dialect

// Name identifies one of the bound-symbolically SQL backends (spec §3).
type Name int

const (
	Athena Name = iota
	BigQuery
	ClickHouse
	Databricks
	DataFusion
	Dremio
	DuckDB
	Generic
	MySql
	Postgres
	Redshift
	Snowflake
	SqLite
)

func (n Name) String() string {
	switch n {
	case Athena:
		return "athena"
	case BigQuery:
		return "bigquery"
	case ClickHouse:
		return "clickhouse"
	case Databricks:
		return "databricks"
	case DataFusion:
		return "datafusion"
	case Dremio:
		return "dremio"
	case DuckDB:
		return "duckdb"
	case Generic:
		return "generic"
	case MySql:
		return "mysql"
	case Postgres:
		return "postgres"
	case Redshift:
		return "redshift"
	case Snowflake:
		return "snowflake"
	case SqLite:
		return "sqlite"
	}
	return "unknown"
}

// ValuesKind selects among the three shapes spec §4.I lists for
// lowering an inline row literal (expr.Values) to SQL text.
type ValuesKind int

const (
	// ValuesWithSubqueryColumnAliases: SELECT * FROM (VALUES (…),(…)) AS t(a,b)
	ValuesWithSubqueryColumnAliases ValuesKind = iota
	// ValuesWithSelectColumnAliases: SELECT columnN AS a, columnM AS b FROM (VALUES …)
	ValuesWithSelectColumnAliases
	// SelectUnion: SELECT v1 AS a, v2 AS b UNION ALL …
	SelectUnion
)

// ValuesMode parameterises a dialect's VALUES lowering.
type ValuesMode struct {
	Kind         ValuesKind
	ExplicitRow  bool   // wrap each row in ROW(...)
	ColumnPrefix string // ValuesWithSelectColumnAliases: generated column name prefix, e.g. "column"
	BaseIndex    int    // ValuesWithSelectColumnAliases: 1 for columnN 1-based, 0 for 0-based
}

// TryCastMode selects how a dialect renders expr.SoftCast (spec §4.I).
type TryCastMode int

const (
	// Supported: native TRY_CAST syntax.
	Supported TryCastMode = iota
	// JustUseCast: the dialect has no fallible cast; use CAST and accept
	// that a conversion failure is a runtime error rather than null.
	JustUseCast
	// SafeCast: dialect-specific SAFE_CAST-style syntax.
	SafeCast
	// SupportedOnStringsOtherwiseJustCast: TRY_CAST only for string
	// sources; other source types fall back to CAST.
	SupportedOnStringsOtherwiseJustCast
)

// FunctionTransform rewrites a function call's rendered name/args;
// Rewrite returns the replacement name and, when non-nil, a full
// replacement argument list (nil keeps the original arguments).
type FunctionTransform struct {
	Name    string
	Rewrite func(args []string) (name string, args2 []string)
}

// BinaryOpTransform rewrites an operator into a different operator or
// a function call (e.g. `%` → `MOD(a, b)` on BigQuery).
type BinaryOpTransform struct {
	// AsFunction, when non-empty, renders `name(left, right)` instead
	// of `left op right`.
	AsFunction string
}

// Capability is one backend's full SQL emission contract (spec §4.I).
type Capability struct {
	Name       Name
	QuoteChar  byte
	TryCast    TryCastMode
	ValuesMode ValuesMode

	SupportsNullOrdering  bool
	SupportsBoundedFrames bool
	SupportsGroupsFrames  bool
	// NavigationFrameTolerant reports whether navigation/numbering
	// window functions (row_number, rank, lag/lead, …) tolerate an
	// explicit frame clause without erroring.
	NavigationFrameTolerant bool

	BinaryOps          map[string]bool
	BinaryOpTransforms map[string]BinaryOpTransform

	ScalarFunctions    map[string]bool
	AggregateFunctions map[string]bool
	WindowFunctions    map[string]bool

	ScalarTransforms    map[string]FunctionTransform
	AggregateTransforms map[string]FunctionTransform

	// UnorderedRowNumber is the fallback when the server needs a
	// deterministic row-number column but the source is unordered:
	// an alternate scalar function name, a constant ORDER BY literal,
	// or neither (meaning: error).
	UnorderedRowNumberFn      string
	UnorderedRowNumberLiteral bool

	// CastDoesNotPropagateNull, when true, means this dialect's CAST
	// (and TRY_CAST) does not return NULL for a NULL input, so sqlgen
	// must wrap it in a `CASE WHEN x IS NOT NULL THEN … ELSE NULL END`
	// guard (spec §4.I). False (the common case) needs no guard.
	CastDoesNotPropagateNull bool
}

// SupportsBinaryOp reports whether op is in the dialect's declared binary
// operator set.
func (c *Capability) SupportsBinaryOp(op string) bool { return c.BinaryOps[op] }

// SupportsScalarFn reports whether name is directly supported (used by
// the SQL-surjectivity invariant, spec §8).
func (c *Capability) SupportsScalarFn(name string) bool {
	if _, ok := c.ScalarTransforms[name]; ok {
		return true
	}
	return c.ScalarFunctions[name]
}

func (c *Capability) SupportsAggregateFn(name string) bool {
	if _, ok := c.AggregateTransforms[name]; ok {
		return true
	}
	return c.AggregateFunctions[name]
}

func (c *Capability) SupportsWindowFn(name string) bool { return c.WindowFunctions[name] }

func renameTransform(to string) FunctionTransform {
	return FunctionTransform{Name: to, Rewrite: func(args []string) (string, []string) { return to, nil }}
}

func boolSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
