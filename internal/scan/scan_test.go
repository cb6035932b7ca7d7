package scan

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/catalog"
	"media-catalog/internal/grouper"
	"media-catalog/internal/metadata"
	"media-catalog/internal/thumbs"
)

func newTestScanner(t *testing.T) (*Scanner, *catalog.Store) {
	t.Helper()
	store, err := catalog.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cache, err := thumbs.New(filepath.Join(t.TempDir(), "thumbs"))
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return New(store, grouper.New(metadata.NewExtractor()), cache), store
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
}

func TestRescan_CatalogsAndPrunes(t *testing.T) {
	s, store := newTestScanner(t)
	ctx := context.Background()

	root := t.TempDir()
	keep := filepath.Join(root, "keep.png")
	gone := filepath.Join(root, "gone.png")
	writePNG(t, keep)
	writePNG(t, gone)
	if err := store.SaveDirectories(ctx, []catalog.Directory{{Path: root}}); err != nil {
		t.Fatalf("SaveDirectories() error: %v", err)
	}

	if err := s.Rescan(ctx); err != nil {
		t.Fatalf("Rescan() error: %v", err)
	}

	items, err := store.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("cataloged %d items, want 2", len(items))
	}
	if items[0].DirectoryID == 0 {
		t.Error("items not linked to their directory")
	}

	// Remove one file; the next rescan must prune its row.
	if err := os.Remove(gone); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if err := s.Rescan(ctx); err != nil {
		t.Fatalf("second Rescan() error: %v", err)
	}

	items, err = store.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 || items[0].OriginalURL != keep {
		t.Errorf("after prune items = %v, want only %s", items, keep)
	}
}

func TestRescan_GroupsCompanions(t *testing.T) {
	s, store := newTestScanner(t)
	ctx := context.Background()

	root := t.TempDir()
	writePNG(t, filepath.Join(root, "IMG_0100.png"))
	writePNG(t, filepath.Join(root, "IMG_0100-edited.png"))
	if err := store.SaveDirectories(ctx, []catalog.Directory{{Path: root}}); err != nil {
		t.Fatalf("SaveDirectories() error: %v", err)
	}

	if err := s.Rescan(ctx); err != nil {
		t.Fatalf("Rescan() error: %v", err)
	}

	items, err := store.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("cataloged %d items, want 1 grouped item", len(items))
	}
	if items[0].EditedURL == "" {
		t.Error("edited companion not recorded")
	}
}

func TestRescan_NoDirectoriesIsNoop(t *testing.T) {
	s, _ := newTestScanner(t)
	if err := s.Rescan(context.Background()); err != nil {
		t.Fatalf("Rescan() with no directories error: %v", err)
	}
}

func TestRescan_MissingRootSkipped(t *testing.T) {
	s, store := newTestScanner(t)
	ctx := context.Background()

	good := t.TempDir()
	writePNG(t, filepath.Join(good, "a.png"))
	dirs := []catalog.Directory{
		{Path: filepath.Join(t.TempDir(), "unmounted")},
		{Path: good},
	}
	if err := store.SaveDirectories(ctx, dirs); err != nil {
		t.Fatalf("SaveDirectories() error: %v", err)
	}

	if err := s.Rescan(ctx); err != nil {
		t.Fatalf("Rescan() error: %v", err)
	}
	items, err := store.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("cataloged %d items, want 1 from the healthy root", len(items))
	}
}
