package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql driver loaded here
	_ "github.com/lib/pq"              // postgres driver loaded here
	_ "modernc.org/sqlite"             // sqlite driver loaded here
)

// SQLDB is an executor running queries through database/sql, for embedding
// the session manager without an external engine binary.
// supported database types: sqlite, postgres, mysql
type SQLDB struct {
	db     *sql.DB
	dbType string
}

// NewSQLDB creates a new SQLDB executor, picking the driver from the
// connection string.
func NewSQLDB(conn string) (*SQLDB, error) {
	dbType := func(c string) (string, error) {
		if strings.HasPrefix(c, "postgres://") {
			return "postgres", nil
		}
		if strings.Contains(c, "@tcp(") {
			return "mysql", nil
		}
		if strings.HasPrefix(c, "file:") || strings.Contains(c, ":memory:") ||
			strings.HasSuffix(c, ".sqlite") || strings.HasSuffix(c, ".db") {
			return "sqlite", nil
		}
		return "", fmt.Errorf("unsupported database type in connection string")
	}

	dbt, err := dbType(conn)
	if err != nil {
		return nil, fmt.Errorf("can't determine database type: %w", err)
	}

	db, err := sql.Open(dbt, conn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	log.Printf("[INFO] sql executor: using %s database, type: %s", conn, dbt)
	return &SQLDB{db: db, dbType: dbt}, nil
}

// Run executes query and scans the result set into ordered records.
// Column order comes straight from the driver.
func (s *SQLDB) Run(ctx context.Context, query string) (Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return Result{}, &ExecError{Query: query, Diag: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, &ExecError{Query: query, Diag: err.Error()}
	}

	res := Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, &ExecError{Query: query, Diag: err.Error()}
		}
		row := Row{}
		for i, c := range cols {
			row[c] = normalizeScalar(vals[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, &ExecError{Query: query, Diag: err.Error()}
	}
	return res, nil
}

// Close closes the underlying database handle.
func (s *SQLDB) Close() error { return s.db.Close() }

// normalizeScalar maps driver values onto the scalar set records carry.
// Byte slices become strings, everything else passes through.
func normalizeScalar(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
