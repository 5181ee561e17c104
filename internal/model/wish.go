// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Status is the purchase state of a wish.
//
// WHY A NAMED STRING TYPE?
// A plain string would accept any value ("pending", "BOUGHT", typos...).
// A named type with constants gives us a closed set the rest of the code
// can rely on, while still serializing to/from JSON as a plain string.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPurchased Status = "PURCHASED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPurchased
}

// Wish represents a single tracked item on the wishlist.
//
// NULLABLE FIELDS AS POINTERS:
// Amount, PurchaseAmount, PurchaseDate and ImageURL are pointers because
// "not set" is meaningful and distinct from zero. A PENDING wish has nil
// purchase fields; a wish created without an image has a nil ImageURL.
// json.Marshal renders a nil pointer as null, which is exactly what the
// frontend expects.
//
// PurchaseDate is a plain "YYYY-MM-DD" string rather than time.Time — the
// value is a calendar date with no time-of-day or timezone component, and
// storing it as text avoids a lossy round-trip through UTC.
type Wish struct {
	ID             string    `json:"id"              db:"id"`
	Title          string    `json:"title"           db:"title"`
	URL            string    `json:"url"             db:"url"`
	Domain         string    `json:"domain"          db:"domain"`          // registrable host of URL, derived at create time
	Rating         float64   `json:"rating"          db:"rating"`          // 0–5 in half steps
	Amount         *float64  `json:"amount"          db:"amount"`          // estimated price, may be null
	Status         Status    `json:"status"          db:"status"`
	PurchaseAmount *float64  `json:"purchase_amount" db:"purchase_amount"` // only when PURCHASED
	PurchaseDate   *string   `json:"purchase_date"   db:"purchase_date"`   // "YYYY-MM-DD", only when PURCHASED
	ImageURL       *string   `json:"image_url"       db:"image_url"`       // attached asynchronously, may stay null
	IsArchived     bool      `json:"is_archived"     db:"is_archived"`     // soft-delete flag; archived rows never appear in list reads
	CreatedAt      time.Time `json:"createdAt"       db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"       db:"updated_at"`
}
