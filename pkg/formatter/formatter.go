// Package formatter turns result sets into display lines. It is pure, i.e.
// rendering is a projection of the rows and never touches any state.
//
// Column ordering differs on purpose between formats: table and csv sort the
// column names of the first record, jsonl keeps the engine-given field order.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ptrkhr/duckpane/pkg/executor"
)

// Format is a display format token.
type Format string

// supported formats
const (
	Table Format = "table"
	CSV   Format = "csv"
	JSONL Format = "jsonl"
)

// ErrUnsupported is returned for format tokens outside table, csv and jsonl.
var ErrUnsupported = errors.New("unsupported format")

// noResults is the single line rendered for an empty result set, same for
// every format.
const noResults = "-- No results --"

// ParseFormat validates a format token.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case Table:
		return Table, nil
	case CSV:
		return CSV, nil
	case JSONL:
		return JSONL, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupported, s)
}

// Next advances the format cyclically, table -> csv -> jsonl -> table.
func (f Format) Next() Format {
	switch f {
	case Table:
		return CSV
	case CSV:
		return JSONL
	default:
		return Table
	}
}

// Render converts a result set into display lines in the given format.
func Render(res executor.Result, f Format) ([]string, error) {
	if len(res.Rows) == 0 {
		return []string{noResults}, nil
	}
	switch f {
	case Table:
		return renderTable(res), nil
	case CSV:
		return renderCSV(res)
	case JSONL:
		return renderJSONL(res)
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupported, string(f))
}

// sortedColumns is the column set for table and csv: keys of the first
// record, sorted lexicographically.
func sortedColumns(res executor.Result) []string {
	cols := make([]string, 0, len(res.Rows[0]))
	for c := range res.Rows[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func renderTable(res executor.Result) []string {
	cols := sortedColumns(res)

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(res.Rows))
	for ri, row := range res.Rows {
		cells[ri] = make([]string, len(cols))
		for ci, c := range cols {
			s := cellString(row[c], "NULL")
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	pad := func(vals []string) string {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		return strings.TrimRight(strings.Join(parts, " | "), " ")
	}

	seps := make([]string, len(cols))
	for i := range cols {
		seps[i] = strings.Repeat("-", widths[i])
	}

	lines := make([]string, 0, len(res.Rows)+3)
	lines = append(lines, pad(cols))
	lines = append(lines, strings.Join(seps, "-+-"))
	for _, row := range cells {
		lines = append(lines, pad(row))
	}

	plural := "s"
	if len(res.Rows) == 1 {
		plural = ""
	}
	lines = append(lines, fmt.Sprintf("-- %d row%s --", len(res.Rows), plural))
	return lines
}

func renderCSV(res executor.Result) ([]string, error) {
	cols := sortedColumns(res)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("can't write csv header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range res.Rows {
		for i, c := range cols {
			record[i] = cellString(row[c], "") // null collapses to empty field
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("can't write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("can't render csv: %w", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	return lines, nil
}

func renderJSONL(res executor.Result) ([]string, error) {
	cols := res.Columns
	lines := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		rowCols := cols
		if len(rowCols) == 0 { // hand-built results carry no column order
			rowCols = make([]string, 0, len(row))
			for c := range row {
				rowCols = append(rowCols, c)
			}
			sort.Strings(rowCols)
		}
		line, err := encodeRecord(row, rowCols)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// encodeRecord writes one record as a json object keeping the given key order,
// which encoding/json's map marshaling would not.
func encodeRecord(row executor.Row, cols []string) (string, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	first := true
	for _, c := range cols {
		v, ok := row[c]
		if !ok {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("can't encode key %q: %w", c, err)
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("can't encode value for %q: %w", c, err)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// cellString turns a scalar into display text. Integral floats print without
// the trailing fraction so duckdb integers survive the json round-trip.
func cellString(v any, null string) string {
	switch t := v.(type) {
	case nil:
		return null
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
