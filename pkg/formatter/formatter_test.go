package formatter

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptrkhr/duckpane/pkg/executor"
)

func TestParseFormat(t *testing.T) {
	tbl := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"table", Table, true},
		{"csv", CSV, true},
		{"jsonl", JSONL, true},
		{" TABLE ", Table, true},
		{"xml", "", false},
		{"", "", false},
	}

	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatNext(t *testing.T) {
	assert.Equal(t, CSV, Table.Next())
	assert.Equal(t, JSONL, CSV.Next())
	assert.Equal(t, Table, JSONL.Next())

	// three applications is a full cycle
	for _, f := range []Format{Table, CSV, JSONL} {
		assert.Equal(t, f, f.Next().Next().Next())
	}
}

func TestRenderEmpty(t *testing.T) {
	for _, f := range []Format{Table, CSV, JSONL} {
		t.Run(string(f), func(t *testing.T) {
			lines, err := Render(executor.Result{}, f)
			require.NoError(t, err)
			assert.Equal(t, []string{"-- No results --"}, lines)
		})
	}
}

func TestRenderTable(t *testing.T) {
	res := executor.Result{
		Columns: []string{"id", "name"},
		Rows: []executor.Row{
			{"id": json.Number("1"), "name": "a"},
			{"id": json.Number("2"), "name": "b"},
		},
	}

	lines, err := Render(res, Table)
	require.NoError(t, err)
	require.Len(t, lines, 5)
	assert.Equal(t, "id | name", lines[0])
	assert.Equal(t, "---+-----", lines[1])
	assert.Equal(t, "1  | a", lines[2])
	assert.Equal(t, "2  | b", lines[3])
	assert.Equal(t, "-- 2 rows --", lines[4])
}

func TestRenderTableSingleRowAndNull(t *testing.T) {
	res := executor.Result{
		Columns: []string{"name", "id"},
		Rows:    []executor.Row{{"name": nil, "id": json.Number("42")}},
	}

	lines, err := Render(res, Table)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, "id | name", lines[0], "columns sorted regardless of engine order")
	assert.Equal(t, "42 | NULL", lines[2])
	assert.Equal(t, "-- 1 row --", lines[3])
}

func TestRenderTableWideValues(t *testing.T) {
	res := executor.Result{
		Rows: []executor.Row{{"x": "longer than header", "y": true}},
	}

	lines, err := Render(res, Table)
	require.NoError(t, err)
	assert.Equal(t, "x"+strings.Repeat(" ", 17)+" | y", lines[0])
	assert.Equal(t, "longer than header | true", lines[2])
}

func TestRenderCSV(t *testing.T) {
	res := executor.Result{
		Rows: []executor.Row{
			{"id": json.Number("1"), "note": `say "hi", ok`},
			{"id": json.Number("2"), "note": nil},
		},
	}

	lines, err := Render(res, CSV)
	require.NoError(t, err)
	require.Len(t, lines, 3, "header plus two records, no summary line")
	assert.Equal(t, "id,note", lines[0])
	assert.Equal(t, `1,"say ""hi"", ok"`, lines[1])
	assert.Equal(t, "2,", lines[2], "null collapses to empty field")
}

func TestRenderCSVRoundTrip(t *testing.T) {
	res := executor.Result{
		Rows: []executor.Row{
			{"a": "plain", "b": "with,comma", "c": "multi\nline"},
			{"a": `"quoted"`, "b": "x", "c": "y"},
		},
	}

	lines, err := Render(res, CSV)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(strings.Join(lines, "\n"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b", "c"}, records[0])

	for i, row := range res.Rows {
		for j, col := range records[0] {
			assert.Equal(t, row[col], records[i+1][j], "row %d col %s", i, col)
		}
	}
}

func TestRenderJSONL(t *testing.T) {
	res := executor.Result{
		Columns: []string{"b", "a"}, // engine-given order, deliberately unsorted
		Rows: []executor.Row{
			{"b": json.Number("1"), "a": "x"},
			{"b": nil, "a": "y"},
		},
	}

	lines, err := Render(res, JSONL)
	require.NoError(t, err)
	require.Len(t, lines, 2, "one line per row, no summary line")
	assert.Equal(t, `{"b":1,"a":"x"}`, lines[0], "keys keep original field order")
	assert.Equal(t, `{"b":null,"a":"y"}`, lines[1])

	// every line decodes back to the original row
	for i, line := range lines {
		var decoded map[string]any
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&decoded))
		assert.Equal(t, map[string]any(res.Rows[i]), decoded)
	}
}

func TestRenderJSONLNoColumnOrder(t *testing.T) {
	res := executor.Result{Rows: []executor.Row{{"z": "1", "a": "2"}}}
	lines, err := Render(res, JSONL)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"2","z":"1"}`, lines[0], "falls back to sorted keys")
}

func TestRenderUnsupported(t *testing.T) {
	_, err := Render(executor.Result{Rows: []executor.Row{{"a": "b"}}}, Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCellString(t *testing.T) {
	tbl := []struct {
		in   any
		null string
		want string
	}{
		{nil, "NULL", "NULL"},
		{nil, "", ""},
		{"s", "NULL", "s"},
		{true, "NULL", "true"},
		{json.Number("3.14"), "NULL", "3.14"},
		{int64(7), "NULL", "7"},
		{42, "NULL", "42"},
		{float64(1), "NULL", "1"},
		{1.5, "NULL", "1.5"},
	}
	for _, tt := range tbl {
		assert.Equal(t, tt.want, cellString(tt.in, tt.null))
	}
}
