// Package executor provides an interface for the query executor as well as a
// duckdb cli and a database/sql implementation. The executor is used to run
// SQL text against the engine and get the result set back as ordered records.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

//go:generate moq -out mocks/executor.go -pkg mocks -skip-ensure -fmt goimports . Interface

// Interface is an interface for the query executor.
// Implemented by DuckDB and SQLDB structs.
type Interface interface {
	Run(ctx context.Context, query string) (Result, error)
}

// Row is a single record, column name to scalar value. Scalars are what
// encoding/json produces: nil, json.Number, string or bool. The database/sql
// implementation may also produce int64 and float64.
type Row map[string]any

// Result is an ordered result set. Columns keeps the field order of the first
// record as the engine returned it; consumers that need a stable, engine-given
// column order (jsonl rendering) use it, others are free to sort.
type Result struct {
	Columns []string
	Rows    []Row
}

// ExecError is returned when the engine rejects or fails to run a query.
// Diag carries the engine's raw diagnostic text, not parsed any further.
type ExecError struct {
	Query string
	Diag  string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query failed: %s", e.Diag)
}

// decode reads a JSON array of objects and turns it into a Result.
// It decodes on the token level to recover the key order of the records,
// which a plain unmarshal into a map would lose. Columns are collected from
// the first record; fields showing up only in later records are appended.
func decode(r io.Reader) (Result, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Result{}, fmt.Errorf("can't read result: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return Result{}, fmt.Errorf("expected json array, got %v", tok)
	}

	res := Result{}
	seen := map[string]bool{}
	for dec.More() {
		row, cols, err := decodeRecord(dec)
		if err != nil {
			return Result{}, err
		}
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				res.Columns = append(res.Columns, c)
			}
		}
		res.Rows = append(res.Rows, row)
	}

	if _, err := dec.Token(); err != nil { // closing ]
		return Result{}, fmt.Errorf("can't read result: %w", err)
	}
	return res, nil
}

// decodeRecord consumes one object from the decoder and returns the record
// along with its keys in original order.
func decodeRecord(dec *json.Decoder) (Row, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("can't read record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected json object, got %v", tok)
	}

	row := Row{}
	var cols []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("can't read record key: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected record key, got %v", kt)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, nil, fmt.Errorf("can't read value for %q: %w", key, err)
		}
		row[key] = val
		cols = append(cols, key)
	}

	if _, err := dec.Token(); err != nil { // closing }
		return nil, nil, fmt.Errorf("can't read record: %w", err)
	}
	return row, cols, nil
}
