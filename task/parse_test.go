package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/expr"
	"github.com/vegafusion-go/vf/task"
)

func TestCSVParser_InfersNumericAndStringColumns(t *testing.T) {
	require := require.New(t)
	tbl, err := task.CSVParser{}.Parse(context.Background(), []byte("x,label\n1,a\n2,b\n"), task.Format{})
	require.NoError(err)
	require.EqualValues(2, tbl.NumRows())

	xs, ok := tbl.Column("x")
	require.True(ok)
	require.Equal(1.0, xs[0].Value)

	labels, ok := tbl.Column("label")
	require.True(ok)
	require.Equal("a", labels[0].Value)
}

func TestCSVParser_DateHintCoercesToTimestamp(t *testing.T) {
	require := require.New(t)
	format := task.Format{ParseHints: map[string]string{"d": task.HintUtc}}
	tbl, err := task.CSVParser{}.Parse(context.Background(), []byte("d\n2020-01-01T00:00:00Z\n"), format)
	require.NoError(err)

	col, ok := tbl.Column("d")
	require.True(ok)
	field, ok := tbl.Schema().FieldByName("d")
	require.True(ok)
	require.Equal(expr.TimestampMillis, field.Type)
	require.EqualValues(1577836800000, col[0].Value)
}

func TestCSVParser_ChronoStyleDateFormat(t *testing.T) {
	require := require.New(t)
	format := task.Format{ParseHints: map[string]string{"d": "%Y-%m-%d"}}
	tbl, err := task.CSVParser{}.Parse(context.Background(), []byte("d\n2021-03-04\n"), format)
	require.NoError(err)

	col, ok := tbl.Column("d")
	require.True(ok)
	require.False(col[0].IsNull())
}

func TestCSVParser_BooleanHint(t *testing.T) {
	require := require.New(t)
	format := task.Format{ParseHints: map[string]string{"ok": task.HintBoolean}}
	tbl, err := task.CSVParser{}.Parse(context.Background(), []byte("ok\ntrue\nfalse\n"), format)
	require.NoError(err)

	col, ok := tbl.Column("ok")
	require.True(ok)
	require.Equal(true, col[0].Value)
	require.Equal(false, col[1].Value)
}

func TestJSONParser_NativeTypes(t *testing.T) {
	require := require.New(t)
	tbl, err := task.JSONParser{}.Parse(context.Background(), []byte(`[{"x":1,"name":"a"},{"x":2,"name":"b"}]`), task.Format{})
	require.NoError(err)
	require.EqualValues(2, tbl.NumRows())

	xs, ok := tbl.Column("x")
	require.True(ok)
	require.Equal(1.0, xs[0].Value)
}

func TestJSONParser_ParseHintOverridesNativeString(t *testing.T) {
	require := require.New(t)
	format := task.Format{ParseHints: map[string]string{"n": task.HintNumber}}
	tbl, err := task.JSONParser{}.Parse(context.Background(), []byte(`[{"n":"1.5"},{"n":"2.5"}]`), format)
	require.NoError(err)

	col, ok := tbl.Column("n")
	require.True(ok)
	require.Equal(1.5, col[0].Value)
}

func TestJSONRowsDecoder_DecodesInlineValuesArray(t *testing.T) {
	require := require.New(t)
	d := task.JSONRowsDecoder{}
	tbl, err := d.Decode(context.Background(), []byte(`[{"x":1},{"x":2},{"x":3}]`))
	require.NoError(err)
	require.EqualValues(3, tbl.NumRows())
}

func TestCoerceColumn_NumberHintRejectsNonNumeric(t *testing.T) {
	require := require.New(t)
	_, err := task.CSVParser{}.Parse(context.Background(), []byte("n\nabc\n"), task.Format{ParseHints: map[string]string{"n": task.HintNumber}})
	require.Error(err)
}
