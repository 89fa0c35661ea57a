package executor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("keeps field order of the first record", func(t *testing.T) {
		res, err := decode(strings.NewReader(`[{"b":1,"a":"x"},{"a":"y","b":2}]`))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, res.Columns)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, Row{"b": json.Number("1"), "a": "x"}, res.Rows[0])
	})

	t.Run("columns only in later records appended", func(t *testing.T) {
		res, err := decode(strings.NewReader(`[{"a":1},{"a":2,"b":true}]`))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, res.Columns)
		assert.Equal(t, true, res.Rows[1]["b"])
	})

	t.Run("scalar types", func(t *testing.T) {
		res, err := decode(strings.NewReader(`[{"n":null,"f":1.5,"s":"txt","b":false}]`))
		require.NoError(t, err)
		row := res.Rows[0]
		assert.Nil(t, row["n"])
		assert.Equal(t, json.Number("1.5"), row["f"])
		assert.Equal(t, "txt", row["s"])
		assert.Equal(t, false, row["b"])
	})

	t.Run("empty array", func(t *testing.T) {
		res, err := decode(strings.NewReader(`[]`))
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Empty(t, res.Columns)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := decode(strings.NewReader(`{"a":1}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected json array")
	})

	t.Run("truncated input", func(t *testing.T) {
		_, err := decode(strings.NewReader(`[{"a":1}`))
		require.Error(t, err)
	})
}

func TestExecError(t *testing.T) {
	err := &ExecError{Query: "SELECT nope", Diag: "Binder Error: no such column"}
	assert.Equal(t, "query failed: Binder Error: no such column", err.Error())
}
