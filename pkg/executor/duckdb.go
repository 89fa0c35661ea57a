package executor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// DuckDB is an executor shelling out to the duckdb cli binary. SQL is passed
// on stdin and the result set is read back from stdout as a JSON array of
// objects (duckdb -json mode). A non-zero exit or unparsable output is
// surfaced as ExecError with the engine's stderr as the diagnostic.
type DuckDB struct {
	Binary   string // path to the duckdb binary, default "duckdb"
	Database string // database file, empty for in-memory
}

// Run executes query via the duckdb cli and parses its json output.
func (d *DuckDB) Run(ctx context.Context, query string) (Result, error) {
	bin := d.Binary
	if bin == "" {
		bin = "duckdb"
	}
	args := []string{"-json"}
	if d.Database != "" {
		args = append(args, d.Database)
	}

	command := exec.CommandContext(ctx, bin, args...)
	command.Stdin = strings.NewReader(query)

	var stdoutBuf, stderrBuf bytes.Buffer
	command.Stdout, command.Stderr = &stdoutBuf, &stderrBuf

	log.Printf("[DEBUG] run %s query, %d bytes", bin, len(query))
	if err := command.Run(); err != nil {
		diag := strings.TrimSpace(stderrBuf.String())
		if diag == "" {
			diag = err.Error()
		}
		return Result{}, &ExecError{Query: query, Diag: diag}
	}

	out := bytes.TrimSpace(stdoutBuf.Bytes())
	if len(out) == 0 { // statements without a result set print nothing
		return Result{}, nil
	}

	res, err := decode(bytes.NewReader(out))
	if err != nil {
		return Result{}, &ExecError{Query: query, Diag: fmt.Sprintf("unparsable engine output: %v", err)}
	}
	log.Printf("[DEBUG] query returned %d rows, %d columns", len(res.Rows), len(res.Columns))
	return res, nil
}
