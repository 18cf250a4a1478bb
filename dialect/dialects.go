package dialect

// For returns the declared Capability for a backend name. Every backend
// supports the same baseline comparison/arithmetic operators, except
// that BigQuery's set has no `%`; what
// differs is quote style, VALUES lowering, NULL ordering, and which
// scalar/aggregate functions are exposed under which name (spec §4.I).
func For(name Name) *Capability {
	switch name {
	case Athena:
		return athena()
	case BigQuery:
		return bigQuery()
	case ClickHouse:
		return clickHouse()
	case Databricks:
		return databricks()
	case DataFusion:
		return dataFusion()
	case Dremio:
		return dremio()
	case DuckDB:
		return duckDB()
	case MySql:
		return mySQL()
	case Postgres:
		return postgres()
	case Redshift:
		return redshift()
	case Snowflake:
		return snowflake()
	case SqLite:
		return sqLite()
	default:
		return generic()
	}
}

var standardBinaryOps = boolSet("=", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "%", "and", "or")

var standardBinaryOpsNoModulo = boolSet("=", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "and", "or")

func subqueryValues() ValuesMode {
	return ValuesMode{Kind: ValuesWithSubqueryColumnAliases}
}

// generic is the Default zero-config dialect: no declared functions
// beyond the baseline operators, subquery-aliased VALUES, NULL ordering
// supported. Used for any backend string not in the dispatch table above,
// matching the reference's `"generic" | "default"` fallback arm.
func generic() *Capability {
	return &Capability{
		Name:                 Generic,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
	}
}

func athena() *Capability {
	return &Capability{
		Name:                 Athena,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
			"covar":  renameTransform("covar_samp"),
		},
	}
}

func bigQuery() *Capability {
	return &Capability{
		Name:       BigQuery,
		QuoteChar:  '`',
		TryCast:    SafeCast,
		ValuesMode: ValuesMode{Kind: SelectUnion},
		SupportsNullOrdering: true,
		BinaryOps:  standardBinaryOpsNoModulo,
		BinaryOpTransforms: map[string]BinaryOpTransform{
			"%": {AsFunction: "MOD"},
		},
		ScalarFunctions:    boolSet("round"),
		AggregateFunctions: boolSet("min", "max", "count", "avg", "sum"),
	}
}

func clickHouse() *Capability {
	return &Capability{
		Name:                 ClickHouse,
		QuoteChar:            '"',
		TryCast:              JustUseCast,
		ValuesMode:           ValuesMode{Kind: SelectUnion},
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "median", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":        renameTransform("varSamp"),
			"var_pop":    renameTransform("varPop"),
			"stddev":     renameTransform("stddevSamp"),
			"stddev_pop": renameTransform("stddevPop"),
			"covar":      renameTransform("covarSamp"),
			"covar_pop":  renameTransform("covarPop"),
		},
	}
}

func databricks() *Capability {
	return &Capability{
		Name:                 Databricks,
		QuoteChar:            '`',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "median", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
			"covar":  renameTransform("covar_samp"),
		},
	}
}

// dataFusion is the richest dialect: the server's own SQL engine, so it
// exposes (almost) every scalar/aggregate/window function the compiler
// can emit, plus the date_add-to-interval-arithmetic rewrite the others
// don't need because they never see a bare date_add call reach them.
func dataFusion() *Capability {
	return &Capability{
		Name:                 DataFusion,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		SupportsBoundedFrames: true,
		SupportsGroupsFrames:  true,
		BinaryOps:             standardBinaryOps,
		ScalarFunctions: boolSet(
			"abs", "acos", "asin", "atan", "atan2", "ceil", "coalesce", "cos", "digest", "exp",
			"floor", "ln", "log", "log10", "log2", "pow", "round", "signum", "sin", "sqrt", "tan",
			"trunc", "make_array", "ascii", "bit_length", "btrim", "length", "chr", "concat",
			"concat_ws", "date_part", "date_trunc", "date_bin", "initcap", "left", "lpad", "lower",
			"ltrim", "md5", "nullif", "octet_length", "random", "regexp_replace", "repeat",
			"replace", "reverse", "right", "rpad", "rtrim", "sha224", "sha256", "sha384", "sha512",
			"split_part", "starts_with", "strpos", "substr", "to_hex", "to_timestamp",
			"to_timestamp_millis", "to_timestamp_micros", "to_timestamp_seconds", "from_unixtime",
			"now", "translate", "trim", "upper", "regexp_match", "struct", "arrow_typeof",
			"current_date", "current_time", "uuid", "isnan", "isfinite",
			"timestamp_to_timestamptz", "timestamptz_to_timestamp", "date_to_timestamptz",
			"epoch_ms_to_timestamptz", "str_to_timestamptz", "make_timestamptz",
			"timestamptz_to_epoch_ms", "vega_timeunit", "format_timestamp", "make_list", "len",
			"indexof",
		),
		AggregateFunctions: boolSet(
			"min", "max", "count", "avg", "sum", "median", "var", "var_pop", "stddev", "stddev_pop",
			"covar", "covar_pop", "corr",
		),
		WindowFunctions: boolSet(
			"row_number", "rank", "dense_rank", "percent_rank", "cume_dist", "ntile", "lag", "lead",
			"first_value", "last_value", "nth_value",
		),
		ScalarTransforms: map[string]FunctionTransform{
			// date_add(part, n, ts) -> ts + INTERVAL 'n part', mirroring
			// the reference's DateAddToIntervalAddition transformer.
			// Name flags the call for sqlgen's dedicated interval
			// rendering; Rewrite is unused for this entry since the
			// rewrite needs the typed date-part/count literals, not
			// their already-rendered SQL text.
			"date_add": {Name: IntervalAddSentinel},
		},
		NavigationFrameTolerant: true,
	}
}

// IntervalAddSentinel is the ScalarTransforms value sqlgen recognises to
// render date_add as INTERVAL arithmetic instead of a function call.
const IntervalAddSentinel = "__interval_add__"

func dremio() *Capability {
	return &Capability{
		Name:                 Dremio,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
			"covar":  renameTransform("covar_samp"),
		},
	}
}

func duckDB() *Capability {
	return &Capability{
		Name:                 DuckDB,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "median", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
		},
	}
}

func mySQL() *Capability {
	return &Capability{
		Name:      MySql,
		QuoteChar: '`',
		TryCast:   JustUseCast,
		ValuesMode: ValuesMode{
			Kind:        ValuesWithSubqueryColumnAliases,
			ExplicitRow: true,
		},
		SupportsNullOrdering: false,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "var_pop", "stddev_pop"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
		},
		UnorderedRowNumberLiteral: true,
	}
}

func postgres() *Capability {
	return &Capability{
		Name:                 Postgres,
		QuoteChar:            '"',
		TryCast:              Supported,
		ValuesMode:           subqueryValues(),
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
			"covar":  renameTransform("covar_samp"),
		},
	}
}

func redshift() *Capability {
	return &Capability{
		Name:       Redshift,
		QuoteChar:  '"',
		TryCast:    JustUseCast,
		ValuesMode: ValuesMode{Kind: SelectUnion},
		// median is rejected by Redshift outside of a user table, so it
		// isn't declared supported even though the wire syntax exists.
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "var_pop", "stddev_pop"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
		},
	}
}

func snowflake() *Capability {
	return &Capability{
		Name:      Snowflake,
		QuoteChar: '"',
		TryCast:   Supported,
		ValuesMode: ValuesMode{
			Kind:         ValuesWithSelectColumnAliases,
			ColumnPrefix: "COLUMN",
			BaseIndex:    1,
		},
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum", "median", "var_pop", "stddev_pop", "covar_pop", "corr"),
		AggregateTransforms: map[string]FunctionTransform{
			"var":    renameTransform("var_samp"),
			"stddev": renameTransform("stddev_samp"),
			"covar":  renameTransform("covar_samp"),
		},
	}
}

func sqLite() *Capability {
	return &Capability{
		Name:      SqLite,
		QuoteChar: '"',
		TryCast:   SupportedOnStringsOtherwiseJustCast,
		ValuesMode: ValuesMode{
			Kind:         ValuesWithSelectColumnAliases,
			ColumnPrefix: "column",
			BaseIndex:    1,
		},
		SupportsNullOrdering: true,
		BinaryOps:            standardBinaryOps,
		ScalarFunctions:      boolSet("round"),
		AggregateFunctions:   boolSet("min", "max", "count", "avg", "sum"),
	}
}
