// Package session implements the result session manager. It owns the state of
// every tracked query result (query text, rows, format, optional pagination)
// and mediates all state transitions. The manager never performs I/O itself,
// all execution goes through the injected executor.
//
// Operations are synchronous and atomic: a single mutex is held for a whole
// operation, including nested executor calls, so multi-step transitions like
// the count-then-fetch of EditQuery are never observed half done. Any failed
// operation leaves the prior session state untouched.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-pkgz/stringutils"

	"github.com/ptrkhr/duckpane/pkg/executor"
	"github.com/ptrkhr/duckpane/pkg/formatter"
)

//go:generate moq -out mocks/source.go -pkg mocks -skip-ensure -fmt goimports . SourceReader

// SourceReader resolves the current text of a linked query source on demand.
// The host implements it over whatever holds the editable query; ok is false
// when the source is gone.
type SourceReader interface {
	ReadSource(id string) (text string, ok bool)
}

// Session is the tracked state of one displayed query result.
type Session struct {
	ID         string          // display surface id, host-supplied, opaque
	Query      string          // current sql text
	Result     executor.Result // last fetched rows
	Format     formatter.Format
	Pagination *Pagination // nil for plain, non-windowed sessions
	SourceID   string      // weak link to the originating query source, empty if none
}

// Pagination is the windowed re-execution state of a session.
type Pagination struct {
	PageSize    int
	CurrentPage int
	TotalCount  int
}

// TotalPages computes the page count, never less than one so an empty result
// still has a valid page 1.
func (p *Pagination) TotalPages() int {
	pages := (p.TotalCount + p.PageSize - 1) / p.PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ErrEmptySource is returned when the query to run resolves to blank text.
var ErrEmptySource = errors.New("query is blank")

// ErrUnknownSession is returned for operations on a surface id without a live session.
var ErrUnknownSession = errors.New("no session for surface")

// ErrNotPaginated is returned for page navigation on a session without pagination.
var ErrNotPaginated = errors.New("session is not paginated")

// OutOfRangeError is returned when page navigation leaves the valid range.
// Not fatal, the session stays on its current page.
type OutOfRangeError struct {
	Page  int
	Total int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range [1, %d]", e.Page, e.Total)
}

// Opts sets manager defaults; zero values fall back to documented defaults.
type Opts struct {
	DefaultFormat formatter.Format
	PageSize      int // default page size for paginated execution
	HistoryLimit  int
}

// Manager owns all sessions, the source-link mapping and the query history.
type Manager struct {
	mu       sync.Mutex
	exec     executor.Interface
	src      SourceReader
	sessions map[string]*Session // by display surface id
	bySource map[string]string   // source id -> surface id, reverse of Session.SourceID
	history  *History

	defaultFormat formatter.Format
	pageSize      int
}

// New makes a session manager with the given executor. src may be nil when
// the host has no editable query sources.
func New(ex executor.Interface, src SourceReader, opts Opts) *Manager {
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = formatter.Table
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Manager{
		exec:          ex,
		src:           src,
		sessions:      map[string]*Session{},
		bySource:      map[string]string{},
		history:       NewHistory(opts.HistoryLimit),
		defaultFormat: opts.DefaultFormat,
		pageSize:      opts.PageSize,
	}
}

// Execute runs query and binds the result to the surface. When sourceID is
// set and already mapped to a live session that session is reused (query and
// rows replaced, format kept), otherwise a fresh session replaces whatever
// the surface had. The query is recorded into history on success.
func (m *Manager) Execute(ctx context.Context, query, surfaceID, sourceID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stringutils.IsBlank(query) {
		return Session{}, ErrEmptySource
	}

	res, err := m.exec.Run(ctx, query)
	if err != nil {
		return Session{}, err // prior session state, if any, untouched
	}

	var sess *Session
	if sourceID != "" {
		if surf, ok := m.bySource[sourceID]; ok {
			sess = m.sessions[surf]
		}
	}
	if sess == nil {
		sess = m.fresh(surfaceID)
	}

	sess.Query = query
	sess.Result = res
	sess.Pagination = nil
	if sourceID != "" {
		m.bind(sess, sourceID)
	}
	m.history.Add(query)
	log.Printf("[DEBUG] executed query on %s, %d rows", sess.ID, len(res.Rows))
	return *sess, nil
}

// ExecutePaginated runs query windowed: first the row count via a COUNT(*)
// wrapper, then page 1 via LIMIT/OFFSET. The count must succeed before the
// page fetch is attempted. The query is recorded into history on success.
func (m *Manager) ExecutePaginated(ctx context.Context, query, surfaceID string, pageSize int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stringutils.IsBlank(query) {
		return Session{}, ErrEmptySource
	}
	if pageSize <= 0 {
		pageSize = m.pageSize
	}

	total, err := m.count(ctx, query)
	if err != nil {
		return Session{}, err
	}
	res, err := m.exec.Run(ctx, windowQuery(query, pageSize, 0))
	if err != nil {
		return Session{}, err
	}

	sess := m.fresh(surfaceID)
	sess.Query = query
	sess.Result = res
	sess.Pagination = &Pagination{PageSize: pageSize, CurrentPage: 1, TotalCount: total}
	m.history.Add(query)
	log.Printf("[DEBUG] executed paginated query on %s, page 1/%d, %d total rows",
		surfaceID, sess.Pagination.TotalPages(), total)
	return *sess, nil
}

// NavigatePage moves the window by delta pages, re-issuing the windowed query
// at the new offset. Out-of-range targets are reported and leave the session
// on its current page.
func (m *Manager) NavigatePage(ctx context.Context, surfaceID string, delta int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.paginated(surfaceID)
	if err != nil {
		return Session{}, err
	}
	return m.fetchPage(ctx, sess, sess.Pagination.CurrentPage+delta)
}

// GotoPage is NavigatePage with an absolute target.
func (m *Manager) GotoPage(ctx context.Context, surfaceID string, page int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.paginated(surfaceID)
	if err != nil {
		return Session{}, err
	}
	return m.fetchPage(ctx, sess, page)
}

// Refresh re-executes the session's query. When a source link is live its
// current text replaces the stored query first, so edits made in the source
// since the last run are picked up. Paginated sessions re-fetch the current
// window without re-counting the total; the count is only refreshed by
// EditQuery, a deliberate staleness tradeoff carried over from the original
// flow.
func (m *Manager) Refresh(ctx context.Context, surfaceID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return Session{}, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}

	query := sess.Query
	if sess.SourceID != "" && m.src != nil {
		if text, live := m.src.ReadSource(sess.SourceID); live {
			query = text
		}
	}
	if stringutils.IsBlank(query) {
		return Session{}, ErrEmptySource
	}

	run := query
	if sess.Pagination != nil {
		run = windowQuery(query, sess.Pagination.PageSize,
			(sess.Pagination.CurrentPage-1)*sess.Pagination.PageSize)
	}
	res, err := m.exec.Run(ctx, run)
	if err != nil {
		return Session{}, err // keep the stable previous view
	}

	sess.Query = query
	sess.Result = res
	log.Printf("[DEBUG] refreshed session %s", surfaceID)
	return *sess, nil
}

// SetFormat switches the display format; rows are not re-executed, the host
// just re-renders.
func (m *Manager) SetFormat(surfaceID, format string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return Session{}, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return Session{}, err
	}
	sess.Format = f
	return *sess, nil
}

// ToggleFormat advances the format cyclically, table -> csv -> jsonl -> table.
func (m *Manager) ToggleFormat(surfaceID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return Session{}, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}
	sess.Format = sess.Format.Next()
	return *sess, nil
}

// EditQuery replaces the session's query. Blank or identical text is a no-op,
// not an error. Paginated sessions re-count the total for the new query and
// clamp the current page to the new page count instead of resetting to page 1,
// keeping the user roughly where they were.
func (m *Manager) EditQuery(ctx context.Context, surfaceID, query string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return Session{}, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}
	if stringutils.IsBlank(query) || query == sess.Query {
		return *sess, nil
	}

	if sess.Pagination == nil {
		res, err := m.exec.Run(ctx, query)
		if err != nil {
			return Session{}, err
		}
		sess.Query = query
		sess.Result = res
		return *sess, nil
	}

	total, err := m.count(ctx, query)
	if err != nil {
		return Session{}, err
	}
	next := Pagination{PageSize: sess.Pagination.PageSize, TotalCount: total}
	page := sess.Pagination.CurrentPage
	if pages := next.TotalPages(); page > pages {
		page = pages
	}
	next.CurrentPage = page

	res, err := m.exec.Run(ctx, windowQuery(query, next.PageSize, (page-1)*next.PageSize))
	if err != nil {
		return Session{}, err
	}
	sess.Query = query
	sess.Result = res
	sess.Pagination = &next
	log.Printf("[DEBUG] edited query on %s, now page %d/%d", surfaceID, page, next.TotalPages())
	return *sess, nil
}

// Teardown removes the session bound to the surface and clears its source
// link mapping, both directions. Safe to call for unknown surfaces.
func (m *Manager) Teardown(surfaceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop(surfaceID)
}

// Render projects the session's rows into display lines at its format.
func (m *Manager) Render(surfaceID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}
	return formatter.Render(sess.Result, sess.Format)
}

// Get returns a snapshot of the session bound to the surface.
func (m *Manager) Get(surfaceID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[surfaceID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// List returns snapshots of all live sessions, ordered by surface id.
func (m *Manager) List() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// History returns the recorded queries, oldest first.
func (m *Manager) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.All()
}

// ClearHistory drops all recorded queries.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Clear()
}

// fresh replaces whatever session the surface had with a new one at the
// default format, severing the old session's source link.
func (m *Manager) fresh(surfaceID string) *Session {
	m.drop(surfaceID)
	sess := &Session{ID: surfaceID, Format: m.defaultFormat}
	m.sessions[surfaceID] = sess
	return sess
}

// bind is the single update path for the source-link mapping. It severs any
// previous link on either side before setting the new pair.
func (m *Manager) bind(sess *Session, sourceID string) {
	if old, ok := m.bySource[sourceID]; ok && old != sess.ID {
		if s, live := m.sessions[old]; live {
			s.SourceID = ""
		}
	}
	if sess.SourceID != "" && sess.SourceID != sourceID {
		delete(m.bySource, sess.SourceID)
	}
	sess.SourceID = sourceID
	m.bySource[sourceID] = sess.ID
}

func (m *Manager) drop(surfaceID string) {
	if sess, ok := m.sessions[surfaceID]; ok {
		if sess.SourceID != "" {
			delete(m.bySource, sess.SourceID)
		}
		delete(m.sessions, surfaceID)
	}
}

func (m *Manager) paginated(surfaceID string) (*Session, error) {
	sess, ok := m.sessions[surfaceID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSession, surfaceID)
	}
	if sess.Pagination == nil {
		return nil, fmt.Errorf("%w %q", ErrNotPaginated, surfaceID)
	}
	return sess, nil
}

// fetchPage validates the target page and re-issues the windowed query.
// Caller holds the lock and guarantees pagination is present.
func (m *Manager) fetchPage(ctx context.Context, sess *Session, page int) (Session, error) {
	pages := sess.Pagination.TotalPages()
	if page < 1 || page > pages {
		return Session{}, &OutOfRangeError{Page: page, Total: pages}
	}

	res, err := m.exec.Run(ctx, windowQuery(sess.Query, sess.Pagination.PageSize,
		(page-1)*sess.Pagination.PageSize))
	if err != nil {
		return Session{}, err
	}
	sess.Result = res
	sess.Pagination.CurrentPage = page
	log.Printf("[DEBUG] session %s on page %d/%d", sess.ID, page, pages)
	return *sess, nil
}

// count obtains the total row count by wrapping the user query as a subquery.
func (m *Manager) count(ctx context.Context, query string) (int, error) {
	res, err := m.exec.Run(ctx, countQuery(query))
	if err != nil {
		return 0, err
	}
	return countFrom(res)
}

// sanitize trims whitespace and trailing semicolons so arbitrary user SQL,
// CTEs and ORDER BY included, stays syntactically valid inside a subquery.
func sanitize(q string) string {
	return strings.TrimRight(strings.TrimSpace(q), "; \t\r\n")
}

func countQuery(q string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s)", sanitize(q))
}

func windowQuery(q string, limit, offset int) string {
	return fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", sanitize(q), limit, offset)
}

// countFrom extracts the single count value out of a COUNT(*) result.
func countFrom(res executor.Result) (int, error) {
	if len(res.Rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	var val any
	if len(res.Columns) > 0 {
		val = res.Rows[0][res.Columns[0]]
	} else {
		for _, v := range res.Rows[0] {
			val = v
			break
		}
	}

	var n int
	switch t := val.(type) {
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("can't parse count %q: %w", t.String(), err)
		}
		n = int(i)
	case int64:
		n = int(t)
	case int:
		n = t
	case float64:
		n = int(t)
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("can't parse count %q: %w", t, err)
		}
		n = i
	default:
		return 0, fmt.Errorf("unexpected count value %v", val)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
