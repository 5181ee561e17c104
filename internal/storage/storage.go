// Package storage abstracts where attached wish images live.
//
// The service layer only depends on the Store interface; the concrete
// backend (local disk here, an object store in a hosted deployment) is
// chosen at wiring time in cmd/server.
package storage

import (
	"context"
	"io"
)

// Store saves image binaries and hands back publicly resolvable URLs.
//
// Save is keyed by the wish ID: one image per wish, and re-uploading for
// the same ID overwrites the previous image. The filename is only used for
// its extension.
type Store interface {
	Save(ctx context.Context, wishID, filename string, r io.Reader) (publicURL string, err error)
}
