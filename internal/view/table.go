// Package view turns wish records into presentation rows for the results
// table.
//
// It is pure formatting: rows come in already filtered and sorted by the
// backend, and their order is preserved exactly as received: the server's
// result order is authoritative and is never re-sorted here.
package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sakif/wishlist/internal/model"
)

// Row is one rendered table row. All money and date fields are already
// formatted strings; templates only place them.
type Row struct {
	ID             string
	Title          string
	URL            string
	Domain         string
	Rating         float64
	Status         model.Status
	Amount         string // formatted currency; nil amount renders as ₹0.00
	PurchaseAmount string // formatted currency
	PurchaseDelta  string // "+50.00%" / "-20.00%", empty when not computable
	PurchaseDate   string // "Aug 01, 2026", empty when null
	Date           string // creation date
	ImageURL       string // empty when no image attached
}

// Rows maps wishes to presentation rows, preserving input order.
func Rows(wishes []model.Wish) []Row {
	rows := make([]Row, 0, len(wishes))
	for _, w := range wishes {
		row := Row{
			ID:             w.ID,
			Title:          w.Title,
			URL:            w.URL,
			Domain:         w.Domain,
			Rating:         w.Rating,
			Status:         w.Status,
			Amount:         FormatINR(w.Amount),
			PurchaseAmount: FormatINR(w.PurchaseAmount),
			PurchaseDelta:  PurchaseDelta(w.Amount, w.PurchaseAmount),
			Date:           w.CreatedAt.Format("Jan 02, 2006"),
		}
		if w.PurchaseDate != nil {
			row.PurchaseDate = FormatPurchaseDate(*w.PurchaseDate)
		}
		if w.ImageURL != nil {
			row.ImageURL = *w.ImageURL
		}
		rows = append(rows, row)
	}
	return rows
}

// PurchaseDelta renders the derived "purchase delta %" column: how much
// more (+) or less (-) the purchase cost than the estimate, rounded to two
// decimals with a leading sign.
//
// The delta is computed only when both values are present and non-zero: a
// zero estimate has no meaningful percentage. Everything else renders as
// an empty string.
func PurchaseDelta(amount, purchaseAmount *float64) string {
	if amount == nil || purchaseAmount == nil {
		return ""
	}
	if *amount == 0 || *purchaseAmount == 0 {
		return ""
	}

	delta := (*purchaseAmount - *amount) / *amount * 100
	delta = math.Round(delta*100) / 100
	return fmt.Sprintf("%+.2f%%", delta)
}

// FormatINR formats a currency value with the rupee symbol and Indian
// digit grouping: the last three integer digits form one group, every pair
// before that gets its own separator (₹12,34,567.89).
//
// nil renders as ₹0.00, not blank, so an unpriced wish still shows a value.
func FormatINR(amount *float64) string {
	value := 0.0
	if amount != nil {
		value = *amount
	}

	negative := value < 0
	if negative {
		value = -value
	}

	whole := fmt.Sprintf("%.2f", value)
	intPart, fracPart, _ := strings.Cut(whole, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(intPart))
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// groupIndian inserts commas per the Indian numbering system:
// "1234567" → "12,34,567".
func groupIndian(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	head := digits[:n-3]
	tail := digits[n-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(append(groups, tail), ",")
}

// FormatPurchaseDate renders a stored "YYYY-MM-DD" date as "Jan 02, 2006".
// Unparseable values fall back to the stored string rather than hiding the
// data.
func FormatPurchaseDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Jan 02, 2006")
}
