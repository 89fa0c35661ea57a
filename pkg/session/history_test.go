package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryDedup(t *testing.T) {
	h := NewHistory(10)
	for _, q := range []string{"A", "B", "A", "C"} {
		h.Add(q)
	}
	assert.Equal(t, []string{"B", "A", "C"}, h.All())
	assert.Equal(t, 3, h.Len())
}

func TestHistoryTruncation(t *testing.T) {
	h := NewHistory(3)
	for _, q := range []string{"A", "B", "C", "D"} {
		h.Add(q)
	}
	assert.Equal(t, []string{"B", "C", "D"}, h.All(), "oldest truncated from the front")

	h.Add("B")
	assert.Equal(t, []string{"C", "D", "B"}, h.All(), "dedup before truncation")
}

func TestHistoryBlankIgnored(t *testing.T) {
	h := NewHistory(5)
	h.Add("  ")
	h.Add("")
	h.Add("q")
	assert.Equal(t, []string{"q"}, h.All())
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(5)
	h.Add("q")
	h.Clear()
	assert.Empty(t, h.All())
}

func TestHistoryAllReturnsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Add("a")
	h.Add("b")

	got := h.All()
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, h.All())
}

func TestHistoryMinLimit(t *testing.T) {
	h := NewHistory(0)
	h.Add("a")
	h.Add("b")
	assert.Equal(t, []string{"b"}, h.All(), "limit floored at one")
}
