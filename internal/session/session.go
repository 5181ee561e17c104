// Package session holds the per-session list state: the active sort
// criteria, the (debounced) search text, and a cache of fetched results.
//
// All mutation goes through named operations — AddSort, RemoveSort,
// SetSearch, Create, Archive — never direct field assignment, so the
// ordering and uniqueness invariants live in exactly one place. The
// original UI kept this state in the browser tab; here it lives server-side
// next to the page renderer, which for a single-user app amounts to the
// same thing.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
	"github.com/sakif/wishlist/internal/service"
)

// DefaultDebounce is the quiet period applied to search keystrokes before
// the new text takes effect. It is the only backpressure mechanism between
// typing and list reads.
const DefaultDebounce = 400 * time.Millisecond

// Backend is what the session needs from the service layer.
// *service.WishService satisfies it.
type Backend interface {
	List(ctx context.Context, q query.ListQuery) ([]model.Wish, error)
	Create(ctx context.Context, in service.CreateInput) (*model.Wish, service.AttachResult, error)
	Update(ctx context.Context, id string, in service.UpdateInput) (*model.Wish, error)
	Archive(ctx context.Context, id string) error
}

// Session is the state container.
//
// CACHING AND GENERATIONS:
// Results are cached under the query's CacheKey, so flipping back to a
// previously used sort/search combination renders without a refetch.
// Any successful mutation drops the whole cache (the "wishes" bucket).
//
// Reads are tagged with a monotonically increasing generation. A fetch that
// resolves after a newer fetch has already been applied is discarded rather
// than rendered — last-RESOLVED-wins would otherwise let a slow stale
// response overwrite fresher rows.
type Session struct {
	mu      sync.Mutex
	backend Backend

	sorts  query.SortSet
	search string // applied (post-debounce) search text

	debounce    time.Duration
	searchTimer *time.Timer
	searchSeq   uint64 // invalidates timers superseded by a newer keystroke

	cache    map[string][]model.Wish
	rows     []model.Wish // last successfully rendered rows
	issued   uint64       // generation handed to the most recent fetch
	rendered uint64       // generation of the most recently applied response
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the search debounce window. Zero applies search
// text immediately; tests use this to avoid sleeping.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// New creates a Session over the given backend.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:  backend,
		debounce: DefaultDebounce,
		cache:    make(map[string][]model.Wish),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddSort upserts a sort criterion. Re-adding a column replaces its
// direction in place; the criterion keeps its tie-break position.
func (s *Session) AddSort(c query.Criterion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sorts = s.sorts.Add(c)
}

// RemoveSort drops the criterion for a column; absent columns are a no-op.
func (s *Session) RemoveSort(col query.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sorts = s.sorts.Remove(col)
}

// Sorts returns the active criteria in tie-break order.
func (s *Session) Sorts() []query.Criterion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorts.Criteria()
}

// SetSearch records new search text, applying it only after the debounce
// window has passed without another call. Each call supersedes any pending
// one, so a burst of keystrokes results in a single application of the
// final value.
func (s *Session) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchSeq++
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}

	if s.debounce <= 0 {
		s.search = text
		return
	}

	seq := s.searchSeq
	s.searchTimer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A newer keystroke arrived between the timer firing and the
		// lock being acquired — its own timer owns the update now.
		if seq != s.searchSeq {
			return
		}
		s.search = text
	})
}

// ApplySearch sets the search text immediately, superseding any pending
// debounced update. Handlers use it for a committed search value (a query
// parameter on a list request) as opposed to a live keystroke.
func (s *Session) ApplySearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchSeq++
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
	s.search = text
}

// Search returns the applied (post-debounce) search text.
func (s *Session) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// Query composes the current state into a list-query description.
func (s *Session) Query() query.ListQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.New(s.sorts, s.search)
}

// Rows returns the wishes for the current sort/search state, fetching
// through the backend on a cache miss.
//
// On failure the session is left exactly as it was: the error is returned
// for the caller to surface, and LastRows still serves the previously
// fetched results.
func (s *Session) Rows(ctx context.Context) ([]model.Wish, error) {
	s.mu.Lock()
	q := query.New(s.sorts, s.search)
	key := q.CacheKey()

	if cached, ok := s.cache[key]; ok {
		s.rows = cached
		s.mu.Unlock()
		return cached, nil
	}

	s.issued++
	gen := s.issued
	s.mu.Unlock()

	// Fetch outside the lock — a slow read must not block unrelated
	// state edits.
	rows, err := s.backend.List(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	// Discard responses that resolved after a newer one was applied.
	if gen <= s.rendered {
		return s.rows, nil
	}

	s.rendered = gen
	s.cache[key] = rows
	s.rows = rows
	return rows, nil
}

// LastRows returns the most recently rendered rows without fetching.
// After a failed read this is what keeps the previous results visible.
func (s *Session) LastRows() []model.Wish {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Invalidate drops every cached result. The next Rows call refetches
// through the backend with the then-current sort/search state.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]model.Wish)
}

// Create saves a new wish through the backend and, on success, invalidates
// the cached results. On failure nothing is invalidated — the prior list
// stays visible.
func (s *Session) Create(ctx context.Context, in service.CreateInput) (*model.Wish, service.AttachResult, error) {
	wish, attach, err := s.backend.Create(ctx, in)
	if err != nil {
		return nil, attach, err
	}
	s.Invalidate()
	return wish, attach, nil
}

// Update merges changes into a wish through the backend and, on success,
// invalidates the cached results.
func (s *Session) Update(ctx context.Context, id string, in service.UpdateInput) (*model.Wish, error) {
	wish, err := s.backend.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.Invalidate()
	return wish, nil
}

// Archive soft-deletes a wish through the backend and, on success,
// invalidates the cached results so the row disappears from the next read.
func (s *Session) Archive(ctx context.Context, id string) error {
	if err := s.backend.Archive(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}
