// Package query holds the list-query state: the ordered sort criteria, the
// free-text search filter, and the deterministic composition of both into a
// single query description with a stable cache key.
//
// This package is pure state + composition. It knows nothing about HTTP or
// SQL — the repository layer translates a ListQuery into an actual SELECT,
// and the handler layer parses one out of a request.
package query

import "fmt"

// Direction is the ordering direction of a single sort criterion.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// Column enumerates the wish fields that may be sorted on.
//
// WHY A CLOSED SET?
// Column names end up interpolated into an ORDER BY clause — they cannot be
// bound as SQL parameters. Restricting them to a whitelist at the edge means
// the repository never sees an unvetted identifier.
type Column string

const (
	ColTitle          Column = "title"
	ColURL            Column = "url"
	ColDomain         Column = "domain"
	ColRating         Column = "rating"
	ColAmount         Column = "amount"
	ColStatus         Column = "status"
	ColPurchaseAmount Column = "purchase_amount"
	ColPurchaseDate   Column = "purchase_date"
	ColCreatedAt      Column = "created_at"
)

// sortable is the whitelist consulted by Column.Valid.
var sortable = map[Column]bool{
	ColTitle:          true,
	ColURL:            true,
	ColDomain:         true,
	ColRating:         true,
	ColAmount:         true,
	ColStatus:         true,
	ColPurchaseAmount: true,
	ColPurchaseDate:   true,
	ColCreatedAt:      true,
}

// Valid reports whether c names a sortable wish column.
func (c Column) Valid() bool {
	return sortable[c]
}

// Criterion is one (column, direction) pair in a SortSet.
type Criterion struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// String renders the criterion as "column:direction", the form used in
// cache keys and log lines.
func (c Criterion) String() string {
	return fmt.Sprintf("%s:%s", c.Column, c.Direction)
}

// SortSet is an ordered, column-unique collection of sort criteria.
//
// The sequence order is significant: the first criterion is the primary sort
// key and later ones break ties left to right. That order is preserved all
// the way into the ORDER BY clause the repository builds.
//
// SortSet is a value-semantics wrapper around a slice; Add and Remove return
// the updated set rather than mutating in place, so callers holding an old
// copy never observe a change out from under them.
type SortSet struct {
	criteria []Criterion
}

// Add inserts c into the set.
//
// If a criterion for the same column already exists, its direction is
// replaced IN PLACE — the criterion keeps its position in the sequence.
// Otherwise c is appended to the end. The set never holds two criteria for
// the same column.
func (s SortSet) Add(c Criterion) SortSet {
	out := make([]Criterion, len(s.criteria))
	copy(out, s.criteria)

	for i, existing := range out {
		if existing.Column == c.Column {
			out[i] = c
			return SortSet{criteria: out}
		}
	}
	return SortSet{criteria: append(out, c)}
}

// Remove drops the criterion for the given column.
// Removing a column that isn't present is a no-op, not an error.
func (s SortSet) Remove(col Column) SortSet {
	out := make([]Criterion, 0, len(s.criteria))
	for _, c := range s.criteria {
		if c.Column != col {
			out = append(out, c)
		}
	}
	return SortSet{criteria: out}
}

// Criteria returns the criteria in sequence order.
// The returned slice is a copy; mutating it does not affect the set.
func (s SortSet) Criteria() []Criterion {
	out := make([]Criterion, len(s.criteria))
	copy(out, s.criteria)
	return out
}

// Len returns the number of criteria in the set.
func (s SortSet) Len() int {
	return len(s.criteria)
}
