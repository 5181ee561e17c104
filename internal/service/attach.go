package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/wishlist/internal/apperror"
	"github.com/sakif/wishlist/internal/model"
)

var errNoImageStore = errors.New("no image store configured")

// ImageUpload is a pending image attachment: the browser-supplied filename
// (used only for its extension) and the file contents.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// AttachOutcome classifies the image phase of a create.
type AttachOutcome int

const (
	// AttachSkipped — no image was supplied (or no store is configured).
	AttachSkipped AttachOutcome = iota
	// Attached — the image was stored and the row patched with its URL.
	Attached
	// AttachFailed — the upload or patch failed. NON-FATAL: the wish row
	// is valid and persisted, it just has no image.
	AttachFailed
)

func (o AttachOutcome) String() string {
	switch o {
	case Attached:
		return "attached"
	case AttachFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// AttachResult is what the attach phase reports back to the caller.
// Err is only set for AttachFailed, and exists for logging — it is never
// surfaced to the user.
type AttachResult struct {
	Outcome AttachOutcome
	URL     string
	Err     error
}

// attachImage runs the best-effort second phase of a create: store the
// image keyed by the (already persisted) wish ID, then patch the row with
// the public URL.
//
// Failures are swallowed by design. This is at-least-once best-effort
// attachment, not a two-phase commit: a wish without its picture is still a
// perfectly good wish, and rolling back a successful create over a missing
// thumbnail would lose the user's data.
func (s *WishService) attachImage(ctx context.Context, wish *model.Wish, img *ImageUpload) AttachResult {
	if img == nil || img.Data == nil {
		return AttachResult{Outcome: AttachSkipped}
	}
	if s.images == nil {
		s.logger.Warn("image supplied but no image store configured",
			slog.String("id", wish.ID),
		)
		return AttachResult{Outcome: AttachSkipped}
	}

	url, err := s.images.Save(ctx, wish.ID, img.Filename, img.Data)
	if err != nil {
		s.logger.Warn("image upload failed, wish saved without image",
			slog.String("id", wish.ID),
			slog.String("error", err.Error()),
		)
		return AttachResult{Outcome: AttachFailed, Err: err}
	}

	if err := s.repo.SetImageURL(ctx, wish.ID, url); err != nil {
		s.logger.Warn("image url patch failed, wish saved without image",
			slog.String("id", wish.ID),
			slog.String("error", err.Error()),
		)
		return AttachResult{Outcome: AttachFailed, Err: err}
	}

	wish.ImageURL = &url
	return AttachResult{Outcome: Attached, URL: url}
}

// AttachImage stores an image for an existing wish and patches its
// image_url. Unlike the create-time attach phase this surfaces failures —
// the caller explicitly asked for the attachment, so it deserves the error.
func (s *WishService) AttachImage(ctx context.Context, id string, img ImageUpload) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed("id", "wish ID is required")
	}
	if s.images == nil {
		return "", apperror.Unavailable("Image uploads are not enabled on this server.", errNoImageStore)
	}

	// Confirm the wish exists before writing anything to storage.
	wish, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.images.Save(ctx, wish.ID, img.Filename, img.Data)
	if err != nil {
		s.logger.Error("image upload failed",
			slog.String("id", wish.ID),
			slog.String("error", err.Error()),
		)
		return "", apperror.Unavailable("Unable to upload the image, please try again!", err)
	}

	if err := s.repo.SetImageURL(ctx, wish.ID, url); err != nil {
		if apperrorIs(err) {
			return "", err
		}
		return "", apperror.Unavailable("Unable to upload the image, please try again!", err)
	}

	s.logger.Info("image attached", slog.String("id", wish.ID), slog.String("url", url))
	return url, nil
}
