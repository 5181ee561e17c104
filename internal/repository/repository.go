package repository

import (
	"context"

	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
)

// WishRepository is the storage contract for wishes.
//
// List takes the composed query description; the implementation is
// responsible for excluding archived rows on every read and for preserving
// the criteria sequence in its ORDER BY clause.
//
// Archive is the only delete mechanism — there is no hard delete.
type WishRepository interface {
	Create(ctx context.Context, wish *model.Wish) error
	GetByID(ctx context.Context, id string) (*model.Wish, error)
	List(ctx context.Context, q query.ListQuery) ([]model.Wish, error)
	Update(ctx context.Context, wish *model.Wish) error
	Archive(ctx context.Context, id string) error
	SetImageURL(ctx context.Context, id, url string) error
}
