package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"log/slog"
	"os"

	"github.com/sakif/wishlist/internal/apperror"
	"github.com/sakif/wishlist/internal/model"
	"github.com/sakif/wishlist/internal/query"
)

// =========================================================================
// MOCKS
// =========================================================================
//
// mockWishRepo implements repository.WishRepository in memory so the
// service logic is tested without a database. Error fields let individual
// tests simulate storage failures that are hard to trigger for real.

type mockWishRepo struct {
	wishes map[string]*model.Wish
	nextID int

	listErr     error // returned by List when set
	createErr   error // returned by Create when set
	setImageErr error // returned by SetImageURL when set
}

func newMockRepo() *mockWishRepo {
	return &mockWishRepo{wishes: make(map[string]*model.Wish)}
}

func (m *mockWishRepo) Create(_ context.Context, wish *model.Wish) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	wish.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *wish
	m.wishes[wish.ID] = &stored
	return nil
}

func (m *mockWishRepo) GetByID(_ context.Context, id string) (*model.Wish, error) {
	wish, ok := m.wishes[id]
	if !ok {
		return nil, apperror.NotFound("wish", id)
	}
	result := *wish
	return &result, nil
}

func (m *mockWishRepo) List(_ context.Context, _ query.ListQuery) ([]model.Wish, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]model.Wish, 0, len(m.wishes))
	for _, w := range m.wishes {
		if !w.IsArchived {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockWishRepo) Update(_ context.Context, wish *model.Wish) error {
	if _, ok := m.wishes[wish.ID]; !ok {
		return apperror.NotFound("wish", wish.ID)
	}
	stored := *wish
	m.wishes[wish.ID] = &stored
	return nil
}

func (m *mockWishRepo) Archive(_ context.Context, id string) error {
	wish, ok := m.wishes[id]
	if !ok {
		return apperror.NotFound("wish", id)
	}
	wish.IsArchived = true
	return nil
}

func (m *mockWishRepo) SetImageURL(_ context.Context, id, url string) error {
	if m.setImageErr != nil {
		return m.setImageErr
	}
	wish, ok := m.wishes[id]
	if !ok {
		return apperror.NotFound("wish", id)
	}
	wish.ImageURL = &url
	return nil
}

// mockStore implements storage.Store.
type mockStore struct {
	saveErr error
	savedID string
}

func (m *mockStore) Save(_ context.Context, wishID, filename string, _ io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.savedID = wishID
	return "/uploads/" + wishID + ".png", nil
}

func newTestService(t *testing.T) (*WishService, *mockWishRepo, *mockStore) {
	t.Helper()
	repo := newMockRepo()
	store := &mockStore{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewWishService(repo, store, logger)
	return svc, repo, store
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func validInput() CreateInput {
	return CreateInput{
		Title:  "mechanical keyboard",
		URL:    "https://www.example.com/kb/65",
		Rating: 4.5,
		Amount: floatPtr(100),
		Status: model.StatusPending,
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, _, _ := newTestService(t)

	wish, attach, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if wish.ID == "" {
		t.Error("expected wish to have an ID")
	}
	if wish.Domain != "example.com" {
		t.Errorf("Domain = %q, want %q (www. stripped)", wish.Domain, "example.com")
	}
	if attach.Outcome != AttachSkipped {
		t.Errorf("attach outcome = %v, want skipped (no image supplied)", attach.Outcome)
	}
}

func TestCreate_TrimsTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := validInput()
	in.Title = "  spaced out  "
	wish, _, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if wish.Title != "spaced out" {
		t.Errorf("Title = %q, want trimmed %q", wish.Title, "spaced out")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty title", func(in *CreateInput) { in.Title = "" }},
		{"whitespace title", func(in *CreateInput) { in.Title = "   " }},
		{"title too long", func(in *CreateInput) { in.Title = strings.Repeat("a", MaxTitleLength+1) }},
		{"relative url", func(in *CreateInput) { in.URL = "/just/a/path" }},
		{"url without host", func(in *CreateInput) { in.URL = "https://" }},
		{"non-http scheme", func(in *CreateInput) { in.URL = "ftp://example.com/file" }},
		{"rating above 5", func(in *CreateInput) { in.Rating = 5.5 }},
		{"negative rating", func(in *CreateInput) { in.Rating = -1 }},
		{"rating off the half-step grid", func(in *CreateInput) { in.Rating = 3.7 }},
		{"negative amount", func(in *CreateInput) { in.Amount = floatPtr(-5) }},
		{"bad status", func(in *CreateInput) { in.Status = model.Status("BOUGHT") }},
		{"bad purchase date", func(in *CreateInput) {
			in.Status = model.StatusPurchased
			in.PurchaseDate = strPtr("12/01/2026")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, _, err := svc.Create(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreate_PendingClearsPurchaseFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := validInput()
	in.Status = model.StatusPending
	// A stale form submission can carry purchase data on a PENDING wish.
	in.PurchaseAmount = floatPtr(150)
	in.PurchaseDate = strPtr("2026-08-01")

	wish, _, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if wish.PurchaseAmount != nil {
		t.Errorf("PurchaseAmount = %v, want nil for PENDING", *wish.PurchaseAmount)
	}
	if wish.PurchaseDate != nil {
		t.Errorf("PurchaseDate = %v, want nil for PENDING", *wish.PurchaseDate)
	}
}

func TestCreate_PurchasedKeepsPurchaseFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := validInput()
	in.Status = model.StatusPurchased
	in.PurchaseAmount = floatPtr(150)
	in.PurchaseDate = strPtr("2026-08-01")

	wish, _, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if wish.PurchaseAmount == nil || *wish.PurchaseAmount != 150 {
		t.Errorf("PurchaseAmount = %v, want 150", wish.PurchaseAmount)
	}
	if wish.PurchaseDate == nil || *wish.PurchaseDate != "2026-08-01" {
		t.Errorf("PurchaseDate = %v, want 2026-08-01", wish.PurchaseDate)
	}
}

func TestCreate_RepoFailureIsUnavailable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createErr = errors.New("disk full")

	_, _, err := svc.Create(context.Background(), validInput())
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if err.Error() != MsgSaveFailed {
		t.Errorf("user message = %q, want %q", err.Error(), MsgSaveFailed)
	}
}

// =========================================================================
// IMAGE ATTACH TESTS
// =========================================================================

func TestCreate_WithImageAttaches(t *testing.T) {
	svc, _, store := newTestService(t)

	in := validInput()
	in.Image = &ImageUpload{Filename: "kb.png", Data: strings.NewReader("img")}

	wish, attach, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if attach.Outcome != Attached {
		t.Fatalf("attach outcome = %v, want attached", attach.Outcome)
	}
	if store.savedID != wish.ID {
		t.Errorf("image stored under %q, want the new row's id %q", store.savedID, wish.ID)
	}
	if wish.ImageURL == nil || *wish.ImageURL != "/uploads/"+wish.ID+".png" {
		t.Errorf("ImageURL = %v, want /uploads/%s.png", wish.ImageURL, wish.ID)
	}
}

func TestCreate_ImageUploadFailureIsNonFatal(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.saveErr = errors.New("bucket unreachable")

	in := validInput()
	in.Image = &ImageUpload{Filename: "kb.png", Data: strings.NewReader("img")}

	wish, attach, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() must not fail when only the image upload fails: %v", err)
	}

	if attach.Outcome != AttachFailed {
		t.Errorf("attach outcome = %v, want failed", attach.Outcome)
	}
	// The row exists and is returned by reads, just without an image.
	stored, err := svc.GetByID(context.Background(), wish.ID)
	if err != nil {
		t.Fatalf("GetByID() after failed attach: %v", err)
	}
	if stored.ImageURL != nil {
		t.Errorf("ImageURL = %v, want nil", *stored.ImageURL)
	}
	if len(repo.wishes) != 1 {
		t.Errorf("rows = %d, want 1 (create not rolled back)", len(repo.wishes))
	}
}

func TestCreate_ImagePatchFailureIsNonFatal(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.setImageErr = errors.New("write conflict")

	in := validInput()
	in.Image = &ImageUpload{Filename: "kb.png", Data: strings.NewReader("img")}

	_, attach, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() must not fail when the url patch fails: %v", err)
	}
	if attach.Outcome != AttachFailed {
		t.Errorf("attach outcome = %v, want failed", attach.Outcome)
	}
}

func TestAttachImage_Standalone(t *testing.T) {
	svc, _, _ := newTestService(t)

	wish, _, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	url, err := svc.AttachImage(context.Background(), wish.ID,
		ImageUpload{Filename: "late.png", Data: strings.NewReader("img")})
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if url == "" {
		t.Error("AttachImage() returned empty url")
	}
}

func TestAttachImage_UnknownWish(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.AttachImage(context.Background(), "nonexistent",
		ImageUpload{Filename: "x.png", Data: strings.NewReader("img")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_RepoFailureIsUnavailable(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.listErr = errors.New("connection reset")

	_, err := svc.List(context.Background(), query.ListQuery{})
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if err.Error() != MsgFetchFailed {
		t.Errorf("user message = %q, want %q", err.Error(), MsgFetchFailed)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_MergesFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validInput())

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		Title:  strPtr("split keyboard"),
		Rating: floatPtr(5),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "split keyboard" {
		t.Errorf("Title = %q, want %q", updated.Title, "split keyboard")
	}
	if updated.Rating != 5 {
		t.Errorf("Rating = %v, want 5", updated.Rating)
	}
	// Untouched fields survive the merge.
	if updated.URL != created.URL {
		t.Errorf("URL changed: %q → %q", created.URL, updated.URL)
	}
}

func TestUpdate_URLRederivesDomain(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validInput())

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		URL: strPtr("https://shop.other.org/item/9"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Domain != "shop.other.org" {
		t.Errorf("Domain = %q, want %q", updated.Domain, "shop.other.org")
	}
}

func TestUpdate_BackToPendingClearsPurchaseFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := validInput()
	in.Status = model.StatusPurchased
	in.PurchaseAmount = floatPtr(150)
	in.PurchaseDate = strPtr("2026-08-01")
	created, _, _ := svc.Create(context.Background(), in)

	pending := model.StatusPending
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Status: &pending})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.PurchaseAmount != nil || updated.PurchaseDate != nil {
		t.Errorf("purchase fields = (%v, %v), want (nil, nil) after PENDING transition",
			updated.PurchaseAmount, updated.PurchaseDate)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "nonexistent", UpdateInput{Title: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// ARCHIVE TESTS
// =========================================================================

func TestArchive_RemovesFromListReads(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, _, _ := svc.Create(context.Background(), validInput())

	if err := svc.Archive(context.Background(), created.ID); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	wishes, err := svc.List(context.Background(), query.ListQuery{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(wishes) != 0 {
		t.Errorf("archived wish still appears in list: %d rows", len(wishes))
	}

	// The row itself still exists — archive is not a hard delete.
	if _, err := svc.GetByID(context.Background(), created.ID); err != nil {
		t.Errorf("GetByID() after archive: %v (row should still exist)", err)
	}
}

func TestArchive_EmptyID(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Archive(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestArchive_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Archive(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
