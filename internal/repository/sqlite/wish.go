package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/wishlist/internal/apperror"
	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
	"github.com/sakif/wishlist/internal/repository"
)

// Compile-time check that *DB satisfies the repository contract.
var _ repository.WishRepository = (*DB)(nil)

// wishColumns is the SELECT column list shared by every read.
// Keeping it in one place means Scan order can never drift from the query.
const wishColumns = `id, title, url, domain, rating, amount, status,
	purchase_amount, purchase_date, image_url, is_archived, created_at, updated_at`

// Create inserts a new wish.
//
// The ID is generated here with xid: 20 chars, URL-safe, and sortable by
// creation time. The caller's struct is modified in place so it carries the
// assigned ID and timestamps back up the stack.
func (db *DB) Create(ctx context.Context, wish *model.Wish) error {
	wish.ID = xid.New().String()

	now := time.Now()
	wish.CreatedAt = now
	wish.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO wishlist (id, title, url, domain, rating, amount, status,
			purchase_amount, purchase_date, image_url, is_archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wish.ID,
		wish.Title,
		wish.URL,
		wish.Domain,
		wish.Rating,
		wish.Amount,
		string(wish.Status),
		wish.PurchaseAmount,
		wish.PurchaseDate,
		wish.ImageURL,
		wish.IsArchived,
		wish.CreatedAt,
		wish.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating wish: %w", err)
	}

	return nil
}

// GetByID retrieves a single wish by its ID, archived or not.
// Reads by ID deliberately ignore the archived flag — the mutation path
// needs to see archived rows even though list reads never do.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+wishColumns+` FROM wishlist WHERE id = ?`, id,
	)

	wish, err := scanWish(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("wish", id)
		}
		return nil, fmt.Errorf("sqlite: getting wish %s: %w", id, err)
	}

	return wish, nil
}

// List executes the composed query description.
//
// THE COMPOSITION CONTRACT:
//  1. `is_archived = 0` is appended to EVERY list read. It is not part of
//     ListQuery because it is not user-controllable.
//  2. A non-empty search adds a case-insensitive OR-substring match over
//     title and domain.
//  3. One ORDER BY term is appended per criterion, in sequence order — the
//     first criterion is the primary sort key, the rest break ties left to
//     right.
//
// Column names come from the query package's closed enum, so interpolating
// them into the ORDER BY clause is safe; every user-supplied VALUE still
// goes through a bound parameter.
func (db *DB) List(ctx context.Context, q query.ListQuery) ([]model.Wish, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + wishColumns + ` FROM wishlist WHERE is_archived = 0`)

	var args []any
	if q.HasSearch() {
		// SQLite LIKE is case-insensitive for ASCII, which matches the
		// search contract. ESCAPE makes % and _ in user text literal.
		sb.WriteString(` AND (title LIKE ? ESCAPE '\' OR domain LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(q.Search) + "%"
		args = append(args, pattern, pattern)
	}

	if len(q.Criteria) > 0 {
		sb.WriteString(` ORDER BY `)
		for i, c := range q.Criteria {
			if !c.Column.Valid() {
				return nil, fmt.Errorf("sqlite: unsortable column %q", c.Column)
			}
			if i > 0 {
				sb.WriteString(`, `)
			}
			sb.WriteString(string(c.Column))
			if c.Direction == query.Desc {
				sb.WriteString(` DESC`)
			} else {
				sb.WriteString(` ASC`)
			}
		}
	}

	rows, err := db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing wishes: %w", err)
	}
	defer rows.Close()

	wishes := []model.Wish{}
	for rows.Next() {
		wish, err := scanWish(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning wish row: %w", err)
		}
		wishes = append(wishes, *wish)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating wishes: %w", err)
	}

	return wishes, nil
}

// Update persists the given wish. ID and created_at are immutable.
func (db *DB) Update(ctx context.Context, wish *model.Wish) error {
	wish.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE wishlist
		 SET title = ?, url = ?, domain = ?, rating = ?, amount = ?, status = ?,
		     purchase_amount = ?, purchase_date = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		wish.Title,
		wish.URL,
		wish.Domain,
		wish.Rating,
		wish.Amount,
		string(wish.Status),
		wish.PurchaseAmount,
		wish.PurchaseDate,
		wish.ImageURL,
		wish.UpdatedAt,
		wish.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating wish %s: %w", wish.ID, err)
	}

	return checkAffected(result, wish.ID)
}

// Archive soft-deletes a wish by setting is_archived. The row stays in the
// table but is excluded from every subsequent List read.
func (db *DB) Archive(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE wishlist SET is_archived = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: archiving wish %s: %w", id, err)
	}

	return checkAffected(result, id)
}

// SetImageURL patches only the image_url column. Used by the attach phase
// of the create saga after the upload has produced a public URL.
func (db *DB) SetImageURL(ctx context.Context, id, url string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE wishlist SET image_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting image url for wish %s: %w", id, err)
	}

	return checkAffected(result, id)
}

// checkAffected translates a zero-row UPDATE into NotFound.
func checkAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("wish", id)
	}
	return nil
}

// scanWish reads one row into a Wish. It takes the Scan function rather
// than a concrete row type so it works for both QueryRow and Rows.
func scanWish(scan func(dest ...any) error) (*model.Wish, error) {
	var (
		wish   model.Wish
		status string
	)
	err := scan(
		&wish.ID,
		&wish.Title,
		&wish.URL,
		&wish.Domain,
		&wish.Rating,
		&wish.Amount,
		&status,
		&wish.PurchaseAmount,
		&wish.PurchaseDate,
		&wish.ImageURL,
		&wish.IsArchived,
		&wish.CreatedAt,
		&wish.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	wish.Status = model.Status(status)
	return &wish, nil
}

// escapeLike escapes LIKE metacharacters in user search text so "50%" means
// the literal string, not a wildcard match.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
