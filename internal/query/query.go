package query

import "strings"

// ListQuery is the complete description of one list read: the ordered sort
// criteria plus an optional free-text search filter.
//
// The archived-visibility predicate is NOT part of the query description on
// purpose. Every list read excludes archived rows unconditionally — it is
// not user-controllable state, so the repository applies it implicitly.
type ListQuery struct {
	Criteria []Criterion
	Search   string
}

// New builds a ListQuery from the current sort set and raw search text.
// The search text is trimmed here; an empty or whitespace-only string means
// "no filter" and composes identically to no search at all.
func New(sorts SortSet, search string) ListQuery {
	return ListQuery{
		Criteria: sorts.Criteria(),
		Search:   strings.TrimSpace(search),
	}
}

// HasSearch reports whether the query carries a search filter.
func (q ListQuery) HasSearch() bool {
	return q.Search != ""
}

// CacheKey returns a stable identifier for this query, suitable for request
// de-duplication and result caching.
//
// The key is a pure function of (ordered criteria, trimmed search). Two
// queries with the same criteria in a different order produce DIFFERENT
// keys — order changes the result ordering, so it must miss the cache.
//
// The serialization is an explicit ordered string join, not a structural
// hash, so the order-sensitivity is visible in the key itself:
//
//	rating:desc,title:asc|q=shoes
func (q ListQuery) CacheKey() string {
	var b strings.Builder
	for i, c := range q.Criteria {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.String())
	}
	b.WriteString("|q=")
	b.WriteString(q.Search)
	return b.String()
}
