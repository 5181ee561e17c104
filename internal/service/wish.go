// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service enforces every invariant the backend itself does not: titles
// are non-empty, URLs parse, ratings stay on the half-step grid, and a
// PENDING wish never carries purchase fields. Handlers only parse; the
// repository only stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/wishlist/internal/apperror"
	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
	"github.com/sakif/wishlist/internal/repository"
	"github.com/sakif/wishlist/internal/storage"
)

// Validation constants.
const (
	MaxTitleLength = 200
	MaxRating      = 5.0

	purchaseDateLayout = "2006-01-02"
)

// User-facing failure messages. Storage failures are deliberately collapsed
// into one retryable sentence per operation — the underlying cause goes to
// the logs, never to the client.
const (
	MsgFetchFailed  = "Unable to fetch the wishes, please try again!"
	MsgSaveFailed   = "Unable to save the wish, please try again!"
	MsgUpdateFailed = "Unable to update the wish, please try again!"
	MsgDeleteFailed = "Unable to delete the wish, please try again!"
)

// WishService handles business logic for wishes.
type WishService struct {
	repo   repository.WishRepository
	images storage.Store
	logger *slog.Logger
}

// NewWishService creates a new WishService.
// images may be nil, in which case image attachment is disabled and every
// create reports AttachSkipped.
func NewWishService(repo repository.WishRepository, images storage.Store, logger *slog.Logger) *WishService {
	return &WishService{
		repo:   repo,
		images: images,
		logger: logger,
	}
}

// CreateInput carries the user-submitted fields for a new wish.
// ID, Domain and IsArchived are never client-supplied: the repository
// assigns the ID, Domain is derived from URL, and new rows are never
// archived.
type CreateInput struct {
	Title          string
	URL            string
	Rating         float64
	Amount         *float64
	Status         model.Status
	PurchaseAmount *float64
	PurchaseDate   *string
	Image          *ImageUpload // optional; triggers the attach phase
}

// Create validates and saves a new wish, then best-effort attaches the
// image if one was supplied.
//
// TWO-PHASE CREATE:
//  1. Insert the row (fatal on failure — nothing was saved).
//  2. Upload the image keyed by the new row's ID and patch image_url
//     (NON-fatal on failure — the row stays valid without an image).
//
// The returned AttachResult tells the caller which of the three outcomes
// the second phase had; a Failed outcome never produces an error here.
func (s *WishService) Create(ctx context.Context, in CreateInput) (*model.Wish, AttachResult, error) {
	wish, err := s.buildWish(in)
	if err != nil {
		return nil, AttachResult{Outcome: AttachSkipped}, err
	}

	if err := s.repo.Create(ctx, wish); err != nil {
		s.logger.Error("failed to create wish",
			slog.String("title", wish.Title),
			slog.String("error", err.Error()),
		)
		return nil, AttachResult{Outcome: AttachSkipped}, apperror.Unavailable(MsgSaveFailed, err)
	}

	s.logger.Info("wish created",
		slog.String("id", wish.ID),
		slog.String("title", wish.Title),
		slog.String("domain", wish.Domain),
	)

	attach := s.attachImage(ctx, wish, in.Image)
	return wish, attach, nil
}

// List runs the composed query and returns the rows in server order.
//
// A storage failure comes back as a single user-facing Unavailable error;
// the caller's previously fetched results stay whatever they were — this
// method has no side effects on failure.
func (s *WishService) List(ctx context.Context, q query.ListQuery) ([]model.Wish, error) {
	wishes, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list wishes",
			slog.String("key", q.CacheKey()),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable(MsgFetchFailed, err)
	}
	return wishes, nil
}

// GetByID retrieves a wish by its ID.
func (s *WishService) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "wish ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateInput carries a partial set of fields to merge into an existing
// wish. Nil pointer = leave the field unchanged.
type UpdateInput struct {
	Title          *string
	URL            *string
	Rating         *float64
	Amount         *float64
	Status         *model.Status
	PurchaseAmount *float64
	PurchaseDate   *string
}

// Update merges the given fields into the stored wish.
//
// Fetch-then-update: the existing row is loaded first so the merge result
// can be validated as a whole — in particular, moving a wish back to
// PENDING clears purchase_amount and purchase_date no matter what else the
// patch says.
func (s *WishService) Update(ctx context.Context, id string, in UpdateInput) (*model.Wish, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "wish ID is required")
	}

	wish, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		wish.Title = title
	}
	if in.URL != nil {
		domain, err := deriveDomain(*in.URL)
		if err != nil {
			return nil, err
		}
		wish.URL = *in.URL
		wish.Domain = domain
	}
	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		wish.Rating = *in.Rating
	}
	if in.Amount != nil {
		if err := validateAmount("amount", *in.Amount); err != nil {
			return nil, err
		}
		wish.Amount = in.Amount
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.ValidationFailed("status", "status must be PENDING or PURCHASED")
		}
		wish.Status = *in.Status
	}
	if in.PurchaseAmount != nil {
		if err := validateAmount("purchase_amount", *in.PurchaseAmount); err != nil {
			return nil, err
		}
		wish.PurchaseAmount = in.PurchaseAmount
	}
	if in.PurchaseDate != nil {
		if err := validatePurchaseDate(*in.PurchaseDate); err != nil {
			return nil, err
		}
		wish.PurchaseDate = in.PurchaseDate
	}

	// PENDING implies no purchase data, whatever the patch contained.
	if wish.Status == model.StatusPending {
		wish.PurchaseAmount = nil
		wish.PurchaseDate = nil
	}

	if err := s.repo.Update(ctx, wish); err != nil {
		if apperrorIs(err) {
			return nil, err
		}
		s.logger.Error("failed to update wish",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable(MsgUpdateFailed, err)
	}

	s.logger.Info("wish updated", slog.String("id", wish.ID))
	return wish, nil
}

// Archive soft-deletes a wish. The row is never physically removed; it is
// flagged is_archived and disappears from all subsequent list reads.
func (s *WishService) Archive(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "wish ID is required")
	}

	if err := s.repo.Archive(ctx, id); err != nil {
		if apperrorIs(err) {
			return err
		}
		s.logger.Error("failed to archive wish",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable(MsgDeleteFailed, err)
	}

	s.logger.Info("wish archived", slog.String("id", id))
	return nil
}

// buildWish validates CreateInput and assembles the row to insert.
func (s *WishService) buildWish(in CreateInput) (*model.Wish, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	domain, err := deriveDomain(in.URL)
	if err != nil {
		return nil, err
	}

	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if in.Amount != nil {
		if err := validateAmount("amount", *in.Amount); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return nil, apperror.ValidationFailed("status", "status must be PENDING or PURCHASED")
	}

	purchaseAmount := in.PurchaseAmount
	purchaseDate := in.PurchaseDate

	// Submission-time invariant: a PENDING wish carries no purchase data.
	// Cleared here, before the write is issued — the backend does not
	// enforce this.
	if status == model.StatusPending {
		purchaseAmount = nil
		purchaseDate = nil
	}

	if purchaseAmount != nil {
		if err := validateAmount("purchase_amount", *purchaseAmount); err != nil {
			return nil, err
		}
	}
	if purchaseDate != nil {
		if err := validatePurchaseDate(*purchaseDate); err != nil {
			return nil, err
		}
	}

	return &model.Wish{
		Title:          title,
		URL:            in.URL,
		Domain:         domain,
		Rating:         in.Rating,
		Amount:         in.Amount,
		Status:         status,
		PurchaseAmount: purchaseAmount,
		PurchaseDate:   purchaseDate,
	}, nil
}

func validateTitle(title string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

// validateRating enforces the 0–5 range in half-step granularity
// (0, 0.5, 1, ... 5).
func validateRating(rating float64) error {
	if rating < 0 || rating > MaxRating {
		return apperror.ValidationFailed("rating", "rating must be between 0 and 5")
	}
	if doubled := rating * 2; doubled != math.Trunc(doubled) {
		return apperror.ValidationFailed("rating", "rating must be in half steps")
	}
	return nil
}

func validateAmount(field string, amount float64) error {
	if amount < 0 {
		return apperror.ValidationFailed(field, field+" must not be negative")
	}
	return nil
}

func validatePurchaseDate(date string) error {
	if _, err := time.Parse(purchaseDateLayout, date); err != nil {
		return apperror.ValidationFailed("purchase_date", "purchase date must be YYYY-MM-DD")
	}
	return nil
}

// deriveDomain validates the raw URL and returns its registrable host for
// display and search. A leading "www." is stripped so "https://www.foo.com"
// and "https://foo.com" land on the same domain.
func deriveDomain(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperror.ValidationFailed("url", "url must be a valid absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", apperror.ValidationFailed("url", "url must use http or https")
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host, nil
}

// apperrorIs reports whether err already carries one of our domain
// sentinels (and so should pass through instead of being re-wrapped).
func apperrorIs(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
