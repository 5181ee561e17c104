package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore writes images to a local directory that the HTTP server exposes
// under a public URL prefix (e.g. /uploads/).
//
// Files are named {wishID}.{ext} so the mapping from row to image needs no
// extra bookkeeping and a re-upload for the same wish replaces the file.
type DiskStore struct {
	dir       string // filesystem directory images are written to
	urlPrefix string // public prefix the server mounts the directory under
}

// NewDiskStore creates the directory if needed and returns a store that
// maps saved files to urlPrefix.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload dir %s: %w", dir, err)
	}
	return &DiskStore{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

var _ Store = (*DiskStore)(nil)

// Save streams r to disk and returns the public URL of the stored image.
//
// The write goes through a temp file + rename so a half-written upload
// never becomes visible under the public URL.
func (s *DiskStore) Save(ctx context.Context, wishID, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("storage: save canceled: %w", err)
	}

	name := wishID + fileExtension(filename)
	dst := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage: storing image %s: %w", name, err)
	}

	return s.urlPrefix + "/" + name, nil
}

// fileExtension returns the lowercase extension (with dot) of filename, or
// "" when there is none. path.Ext rather than filepath.Ext: upload names
// come from browsers and always use forward slashes.
func fileExtension(filename string) string {
	return strings.ToLower(path.Ext(path.Base(filename)))
}
