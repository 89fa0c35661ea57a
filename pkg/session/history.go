package session

import (
	"github.com/go-pkgz/stringutils"
)

// History is a bounded, ordered list of past queries, most recent last.
// Re-submitting a known query moves it to the end instead of duplicating it;
// the oldest entries are truncated once the limit is exceeded. Not safe for
// concurrent use on its own, the manager's lock guards it.
type History struct {
	limit   int
	queries []string
}

// NewHistory makes a history keeping up to limit queries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Add records a query. Blank queries are ignored.
func (h *History) Add(query string) {
	if stringutils.IsBlank(query) {
		return
	}
	if i := stringutils.IndexOf(h.queries, query); i >= 0 {
		h.queries = append(h.queries[:i], h.queries[i+1:]...)
	}
	h.queries = append(h.queries, query)
	if len(h.queries) > h.limit {
		h.queries = h.queries[len(h.queries)-h.limit:]
	}
}

// All returns a copy of the recorded queries, oldest first.
func (h *History) All() []string {
	res := make([]string, len(h.queries))
	copy(res, h.queries)
	return res
}

// Len returns the number of recorded queries.
func (h *History) Len() int { return len(h.queries) }

// Clear drops all recorded queries.
func (h *History) Clear() { h.queries = nil }
