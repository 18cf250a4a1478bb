package task

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/ipc"

	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/value"
)

// format.parse coercion hints (spec §4.H supplemented feature: the
// format.parse per-column coercion table from data/tasks.rs, applied
// identically to DataUrl and DataValues). Any ParseHints value that
// isn't one of these four reserved words is treated as a chrono-style
// date format string (translateDateLayout).
const (
	HintDate    = "date"
	HintUtc     = "utc"
	HintNumber  = "number"
	HintBoolean = "boolean"
)

// CSVParser implements Parser over comma/tab-delimited text: the first
// row is the header, every other row is a record. Columns are inferred
// as Float64 when every value parses as a number, Utf8 otherwise,
// unless Format.ParseHints names an explicit coercion for that column.
type CSVParser struct{}

func (CSVParser) Parse(ctx context.Context, data []byte, format Format) (value.Table, error) {
	if err := ctx.Err(); err != nil {
		return value.Table{}, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	if format.Type == "tsv" {
		r.Comma = '\t'
	}
	rows, err := r.ReadAll()
	if err != nil {
		return value.Table{}, fmt.Errorf("task: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return value.Table{}, nil
	}
	header := rows[0]
	body := rows[1:]

	raw := make([][]string, len(header))
	for _, row := range body {
		for c := range header {
			var cell string
			if c < len(row) {
				cell = row[c]
			}
			raw[c] = append(raw[c], cell)
		}
	}

	fields := make([]expr.Field, len(header))
	columns := map[string][]value.Scalar{}
	for c, name := range header {
		hint := format.ParseHints[name]
		col, typ, err := coerceColumn(raw[c], hint)
		if err != nil {
			return value.Table{}, fmt.Errorf("task: column %q: %w", name, err)
		}
		fields[c] = expr.Field{Name: name, Type: typ, Nullable: true}
		columns[name] = col
	}

	return value.BuildTable(nil, expr.Schema{Fields: fields}, columns)
}

// JSONParser implements Parser over a JSON array of row objects (Vega's
// `format: {type: "json"}` contract). Field types come from the JSON
// values themselves (number/bool/string); ParseHints still applies to
// string-valued fields (e.g. a date string column).
type JSONParser struct{}

func (JSONParser) Parse(ctx context.Context, data []byte, format Format) (value.Table, error) {
	if err := ctx.Err(); err != nil {
		return value.Table{}, err
	}
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return value.Table{}, fmt.Errorf("task: parse json: %w", err)
	}
	if len(rows) == 0 {
		return value.Table{}, nil
	}

	var order []string
	seen := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}

	raw := make(map[string][]string, len(order))
	native := make(map[string][]value.Scalar, len(order))
	isNative := map[string]bool{}
	for _, name := range order {
		native[name] = make([]value.Scalar, 0, len(rows))
	}
	for _, row := range rows {
		for _, name := range order {
			v, ok := row[name]
			if !ok {
				raw[name] = append(raw[name], "")
				native[name] = append(native[name], value.Null())
				continue
			}
			sc, str, isStr := decodeJSONScalar(v)
			native[name] = append(native[name], sc)
			raw[name] = append(raw[name], str)
			if !isStr {
				isNative[name] = true
			}
		}
	}

	fields := make([]expr.Field, len(order))
	columns := map[string][]value.Scalar{}
	for i, name := range order {
		hint := format.ParseHints[name]
		if hint != "" {
			col, typ, err := coerceColumn(raw[name], hint)
			if err != nil {
				return value.Table{}, fmt.Errorf("task: column %q: %w", name, err)
			}
			fields[i] = expr.Field{Name: name, Type: typ, Nullable: true}
			columns[name] = col
			continue
		}
		fields[i] = expr.Field{Name: name, Type: inferJSONType(native[name]), Nullable: true}
		columns[name] = native[name]
	}

	return value.BuildTable(nil, expr.Schema{Fields: fields}, columns)
}

// decodeJSONScalar turns one JSON field into a best-effort Scalar plus
// its string rendering (used when a ParseHint overrides native typing).
func decodeJSONScalar(raw json.RawMessage) (sc value.Scalar, str string, isString bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Null(), "", false
	}
	switch x := v.(type) {
	case nil:
		return value.Null(), "", false
	case bool:
		return value.Bool(x), strconv.FormatBool(x), false
	case float64:
		return value.Float64(x), strconv.FormatFloat(x, 'g', -1, 64), false
	case string:
		return value.String(x), x, true
	default:
		return value.String(string(raw)), string(raw), true
	}
}

func inferJSONType(col []value.Scalar) expr.DataType {
	for _, v := range col {
		if v.IsNull() {
			continue
		}
		switch v.Value.(type) {
		case float64:
			return expr.Float64
		case bool:
			return expr.Bool
		default:
			return expr.Utf8
		}
	}
	return expr.Utf8
}

// coerceColumn applies one ParseHints entry (or numeric/string
// inference when hint is empty) to a column of raw text cells.
func coerceColumn(cells []string, hint string) ([]value.Scalar, expr.DataType, error) {
	switch hint {
	case HintNumber:
		return coerceNumberColumn(cells)
	case HintBoolean:
		return coerceBoolColumn(cells)
	case HintDate:
		return coerceDateColumn(cells, time.RFC3339, false)
	case HintUtc:
		return coerceDateColumn(cells, time.RFC3339, true)
	case "":
		return inferColumn(cells)
	default:
		return coerceDateColumn(cells, translateDateLayout(hint), false)
	}
}

func coerceNumberColumn(cells []string) ([]value.Scalar, expr.DataType, error) {
	out := make([]value.Scalar, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = value.Null()
			continue
		}
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, expr.Unknown, fmt.Errorf("coerce %q to number: %w", c, err)
		}
		out[i] = value.Float64(f)
	}
	return out, expr.Float64, nil
}

func coerceBoolColumn(cells []string) ([]value.Scalar, expr.DataType, error) {
	out := make([]value.Scalar, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = value.Null()
			continue
		}
		b, err := strconv.ParseBool(strings.ToLower(c))
		if err != nil {
			return nil, expr.Unknown, fmt.Errorf("coerce %q to boolean: %w", c, err)
		}
		out[i] = value.Bool(b)
	}
	return out, expr.Bool, nil
}

func coerceDateColumn(cells []string, layout string, utc bool) ([]value.Scalar, expr.DataType, error) {
	out := make([]value.Scalar, len(cells))
	for i, c := range cells {
		if c == "" {
			out[i] = value.Null()
			continue
		}
		t, err := time.Parse(layout, c)
		if err != nil {
			return nil, expr.Unknown, fmt.Errorf("coerce %q with layout %q: %w", c, layout, err)
		}
		if utc {
			t = t.UTC()
		}
		out[i] = value.Int64(t.UnixMilli())
	}
	return out, expr.TimestampMillis, nil
}

// inferColumn guesses Float64 when every non-empty cell parses as a
// number, Utf8 otherwise (no hint supplied).
func inferColumn(cells []string) ([]value.Scalar, expr.DataType, error) {
	allNumeric := true
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			allNumeric = false
			break
		}
	}
	out := make([]value.Scalar, len(cells))
	if allNumeric {
		for i, c := range cells {
			if c == "" {
				out[i] = value.Null()
				continue
			}
			f, _ := strconv.ParseFloat(c, 64)
			out[i] = value.Float64(f)
		}
		return out, expr.Float64, nil
	}
	for i, c := range cells {
		if c == "" {
			out[i] = value.Null()
			continue
		}
		out[i] = value.String(c)
	}
	return out, expr.Utf8, nil
}

// chronoDirectives maps the subset of chrono/strftime format verbs
// original_source/'s format.parse date hints carry onto Go's reference-
// time layout tokens.
var chronoDirectives = map[byte]string{
	'Y': "2006", 'y': "06",
	'm': "01", 'd': "02",
	'H': "15", 'M': "04", 'S': "05",
	'z': "-0700", 'Z': "MST",
	'b': "Jan", 'B': "January",
}

// translateDateLayout converts a chrono-style format string (e.g.
// "%Y-%m-%d") into the equivalent Go reference-time layout. Unknown `%x`
// verbs and bare characters pass through unchanged.
func translateDateLayout(chronoFmt string) string {
	var b strings.Builder
	for i := 0; i < len(chronoFmt); i++ {
		if chronoFmt[i] == '%' && i+1 < len(chronoFmt) {
			if layout, ok := chronoDirectives[chronoFmt[i+1]]; ok {
				b.WriteString(layout)
				i++
				continue
			}
		}
		b.WriteByte(chronoFmt[i])
	}
	return b.String()
}

// JSONRowsDecoder implements Decoder over a plain JSON array of row
// objects rather than Arrow IPC bytes — the shape ispec.DataSpec.Values
// actually carries (the chart spec document embeds inline data as JSON,
// not as a serialized Arrow batch). ParseHints threads the same
// format.parse coercion table CSVParser/JSONParser apply.
type JSONRowsDecoder struct {
	ParseHints map[string]string
}

func (d JSONRowsDecoder) Decode(ctx context.Context, data []byte) (value.Table, error) {
	return JSONParser{}.Parse(ctx, data, Format{ParseHints: d.ParseHints})
}

// IPCDecoder implements Decoder over an Arrow IPC stream (spec §4.H
// DataValues contract: "deserialises inline rows from a compact binary
// carrier"). Only the first record batch is read; package value's Table
// wraps exactly one arrow.Record, matching BuildTable's own shape.
type IPCDecoder struct{}

func (IPCDecoder) Decode(ctx context.Context, data []byte) (value.Table, error) {
	if err := ctx.Err(); err != nil {
		return value.Table{}, err
	}
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return value.Table{}, fmt.Errorf("task: open ipc stream: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return value.Table{}, fmt.Errorf("task: read ipc record: %w", err)
		}
		return value.Table{}, nil
	}
	rec := reader.Record()
	rec.Retain()
	return value.NewTable(schemaFromArrow(rec.Schema()), rec), nil
}

// schemaFromArrow builds an expr.Schema from an Arrow IPC stream's own
// schema, the reverse of value.arrowType's Go-type -> Arrow-type map.
func schemaFromArrow(schema *arrow.Schema) expr.Schema {
	fields := make([]expr.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		fields[i] = expr.Field{Name: f.Name, Type: exprTypeFromArrow(f.Type), Nullable: f.Nullable}
	}
	return expr.Schema{Fields: fields}
}

func exprTypeFromArrow(t arrow.DataType) expr.DataType {
	switch t.ID() {
	case arrow.FLOAT64:
		return expr.Float64
	case arrow.INT64:
		return expr.Int64
	case arrow.BOOL:
		return expr.Bool
	case arrow.TIMESTAMP:
		return expr.TimestampMillis
	default:
		return expr.Utf8
	}
}
