package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runnerFunc adapts a function to Interface for in-package tests.
type runnerFunc func(ctx context.Context, query string) (Result, error)

func (f runnerFunc) Run(ctx context.Context, query string) (Result, error) { return f(ctx, query) }

func schemaRows() Result {
	return Result{
		Columns: []string{"table_name", "column_name"},
		Rows: []Row{
			{"table_name": "orders", "column_name": "id"},
			{"table_name": "orders", "column_name": "total"},
			{"table_name": "users", "column_name": "id"},
		},
	}
}

func TestSchemaTables(t *testing.T) {
	ctx := context.Background()
	ex := runnerFunc(func(_ context.Context, query string) (Result, error) {
		assert.Contains(t, query, "information_schema.columns")
		return schemaRows(), nil
	})
	s := &Schema{Exec: ex, TTL: time.Minute}

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, []string{"id", "total"}, tables[0].Columns)
	assert.Equal(t, "users", tables[1].Name)
	assert.Equal(t, []string{"id"}, tables[1].Columns)
}

func TestSchemaCaching(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ex := runnerFunc(func(_ context.Context, query string) (Result, error) {
		calls++
		return schemaRows(), nil
	})

	t0 := time.Now()
	clock := t0
	s := &Schema{Exec: ex, TTL: time.Minute, now: func() time.Time { return clock }}

	_, err := s.Tables(ctx)
	require.NoError(t, err)
	_, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "fresh snapshot served from cache")

	clock = t0.Add(2 * time.Minute)
	_, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "stale snapshot re-queried")
}

func TestSchemaStaleFallback(t *testing.T) {
	ctx := context.Background()
	healthy := true
	ex := runnerFunc(func(_ context.Context, query string) (Result, error) {
		if !healthy {
			return Result{}, &ExecError{Query: query, Diag: "engine down"}
		}
		return schemaRows(), nil
	})

	t0 := time.Now()
	clock := t0
	s := &Schema{Exec: ex, TTL: time.Minute, now: func() time.Time { return clock }}

	_, err := s.Tables(ctx)
	require.NoError(t, err)

	healthy = false
	clock = t0.Add(2 * time.Minute)
	tables, err := s.Tables(ctx)
	require.NoError(t, err, "failed refresh falls back to last good snapshot")
	assert.Len(t, tables, 2)
}

func TestSchemaFirstLoadFails(t *testing.T) {
	ctx := context.Background()
	ex := runnerFunc(func(_ context.Context, query string) (Result, error) {
		return Result{}, &ExecError{Query: query, Diag: "engine down"}
	})
	s := &Schema{Exec: ex, TTL: time.Minute}

	_, err := s.Tables(ctx)
	require.Error(t, err, "nothing to fall back to")
}

func TestSchemaEmpty(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ex := runnerFunc(func(_ context.Context, query string) (Result, error) {
		calls++
		return Result{}, nil
	})
	s := &Schema{Exec: ex, TTL: time.Minute}

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	_, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "empty schema is cached too")
}
