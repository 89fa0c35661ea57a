package executor

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Schema provides table introspection through the executor, cached with a
// staleness interval. A failed re-query falls back to the last good snapshot
// instead of dropping it.
type Schema struct {
	Exec Interface
	TTL  time.Duration // how long a snapshot is considered fresh

	loadedAt time.Time
	tables   []Table
	now      func() time.Time // for tests
}

// Table describes one table with its columns in ordinal order.
type Table struct {
	Name    string
	Columns []string
}

const schemaQuery = "SELECT table_name, column_name FROM information_schema.columns " +
	"ORDER BY table_name, ordinal_position"

// Tables returns the table list, re-querying information_schema when the
// cached snapshot went stale. Not safe for concurrent use on its own; callers
// serialize the same way they serialize session operations.
func (s *Schema) Tables(ctx context.Context) ([]Table, error) {
	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	if s.tables != nil && nowFn().Sub(s.loadedAt) < s.TTL {
		return s.tables, nil
	}

	res, err := s.Exec.Run(ctx, schemaQuery)
	if err != nil {
		if s.tables != nil {
			log.Printf("[WARN] schema refresh failed, keeping stale snapshot: %v", err)
			return s.tables, nil
		}
		return nil, fmt.Errorf("can't load schema: %w", err)
	}

	tables := []Table{} // non-nil, empty schema is cacheable too
	for _, row := range res.Rows {
		tbl, _ := row["table_name"].(string)
		col, _ := row["column_name"].(string)
		if tbl == "" {
			continue
		}
		if len(tables) == 0 || tables[len(tables)-1].Name != tbl {
			tables = append(tables, Table{Name: tbl})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, col)
	}

	s.tables = tables
	s.loadedAt = nowFn()
	log.Printf("[DEBUG] schema loaded, %d tables", len(tables))
	return s.tables, nil
}
