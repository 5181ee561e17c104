package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/")
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	return store, dir
}

func TestSave(t *testing.T) {
	store, dir := newTestStore(t)

	url, err := store.Save(context.Background(), "abc123", "photo.JPG", strings.NewReader("fake-image-bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if url != "/uploads/abc123.jpg" {
		t.Errorf("Save() url = %q, want %q", url, "/uploads/abc123.jpg")
	}

	data, err := os.ReadFile(filepath.Join(dir, "abc123.jpg"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "fake-image-bytes" {
		t.Errorf("stored content = %q, want %q", data, "fake-image-bytes")
	}
}

func TestSave_OverwritesSameWish(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "abc123", "old.png", strings.NewReader("v1")); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if _, err := store.Save(ctx, "abc123", "new.png", strings.NewReader("v2")); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "abc123.png"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("stored content = %q, want %q", data, "v2")
	}
}

func TestSave_NoExtension(t *testing.T) {
	store, _ := newTestStore(t)

	url, err := store.Save(context.Background(), "abc123", "blob", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != "/uploads/abc123" {
		t.Errorf("Save() url = %q, want %q", url, "/uploads/abc123")
	}
}

func TestSave_NoPartialFileOnContextCancel(t *testing.T) {
	store, dir := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Save(ctx, "abc123", "a.png", strings.NewReader("x")); err == nil {
		t.Fatal("Save() with canceled context should error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("canceled save left %d files behind", len(entries))
	}
}
