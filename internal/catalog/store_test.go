package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"media-catalog/internal/mediatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return s
}

func TestUpsertItem_Uniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Three upserts sharing one OriginalURL must leave exactly one row
	// holding the last-written values.
	for i, status := range []mediatypes.SyncStatus{
		mediatypes.SyncNotSynced, mediatypes.SyncSyncing, mediatypes.SyncSynced,
	} {
		item := &MediaItem{
			OriginalURL: "/photos/IMG_001.JPG",
			Type:        mediatypes.ItemTypePhoto,
			SyncStatus:  status,
		}
		if i == 2 {
			item.EditedURL = "/photos/IMG_001_edited.JPG"
		}
		if err := s.UpsertItem(ctx, item); err != nil {
			t.Fatalf("UpsertItem() #%d error: %v", i, err)
		}
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].SyncStatus != mediatypes.SyncSynced {
		t.Errorf("SyncStatus = %q, want synced", items[0].SyncStatus)
	}
	if items[0].EditedURL != "/photos/IMG_001_edited.JPG" {
		t.Errorf("EditedURL = %q, want last-written value", items[0].EditedURL)
	}
}

func TestUpsertItem_AssignsStableID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &MediaItem{OriginalURL: "/a.jpg", Type: mediatypes.ItemTypePhoto}
	if err := s.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected non-zero id after insert")
	}
	firstID := item.ID

	// Re-upserting the same key must keep the id stable.
	item.ID = 0
	if err := s.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}
	if item.ID != firstID {
		t.Errorf("id changed on re-upsert: %d -> %d", firstID, item.ID)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exifDate := time.Date(2023, 5, 17, 14, 30, 0, 0, time.UTC)
	width, height := 4032, 3024
	lat, lon := -33.8688, 151.2093

	item := &MediaItem{
		OriginalURL:  "/photos/IMG_002.JPG",
		LiveVideoURL: "/photos/IMG_002.MOV",
		Type:         mediatypes.ItemTypeLivePhoto,
		Metadata: &Metadata{
			ExifDate:  &exifDate,
			Width:     &width,
			Height:    &height,
			Latitude:  &lat,
			Longitude: &lon,
			Extra: map[string]any{
				"cameraMake": "Apple",
				"iso":        float64(125),
			},
		},
	}
	if err := s.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	meta := items[0].Metadata
	if meta == nil {
		t.Fatal("expected metadata to round-trip")
	}
	if meta.ExifDate == nil || !meta.ExifDate.Equal(exifDate) {
		t.Errorf("ExifDate = %v, want %v", meta.ExifDate, exifDate)
	}
	if meta.Width == nil || *meta.Width != width {
		t.Errorf("Width = %v, want %d", meta.Width, width)
	}
	if meta.Latitude == nil || *meta.Latitude != lat {
		t.Errorf("Latitude = %v, want %v", meta.Latitude, lat)
	}
	if meta.Extra["cameraMake"] != "Apple" {
		t.Errorf("Extra[cameraMake] = %v, want Apple", meta.Extra["cameraMake"])
	}
}

func TestMigration_AddsSyncStatusColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")

	// Build a catalog file the way a pre-sync-status version would have.
	raw, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open raw database: %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE media_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			original_url TEXT NOT NULL UNIQUE,
			edited_url TEXT,
			live_video_url TEXT,
			type TEXT NOT NULL,
			metadata TEXT,
			directory_id INTEGER
		);
		INSERT INTO media_items (original_url, type) VALUES ('/old/a.jpg', 'photo');
		INSERT INTO media_items (original_url, type) VALUES ('/old/b.mov', 'video');
	`)
	if err != nil {
		t.Fatalf("failed to create old-schema database: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("failed to close raw database: %v", err)
	}

	// Opening twice in a row must be idempotent.
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("Open() #%d error: %v", i, err)
		}

		items, err := s.AllItems(context.Background())
		if err != nil {
			t.Fatalf("AllItems() #%d error: %v", i, err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 migrated items, got %d", len(items))
		}
		if items[0].OriginalURL != "/old/a.jpg" {
			t.Errorf("row order changed by migration: %q", items[0].OriginalURL)
		}
		for _, item := range items {
			if item.SyncStatus != mediatypes.SyncNotSynced {
				t.Errorf("item %s sync status = %q, want default notSynced", item.OriginalURL, item.SyncStatus)
			}
		}

		if err := s.Close(); err != nil {
			t.Fatalf("Close() #%d error: %v", i, err)
		}
	}
}

func TestAllItems_SkipsUnknownType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItem(ctx, &MediaItem{OriginalURL: "/a.jpg", Type: mediatypes.ItemTypePhoto}); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}

	// A row written by some future version with a type we don't know.
	_, err := s.db.Exec("INSERT INTO media_items (original_url, type) VALUES ('/b.xyz', 'hologram')")
	if err != nil {
		t.Fatalf("failed to insert unknown-type row: %v", err)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected unknown-type row to be skipped, got %d items", len(items))
	}
	if items[0].OriginalURL != "/a.jpg" {
		t.Errorf("surviving item = %q, want /a.jpg", items[0].OriginalURL)
	}
}

func TestUpdateSyncStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &MediaItem{OriginalURL: "/a.jpg", Type: mediatypes.ItemTypePhoto}
	if err := s.UpsertItem(ctx, item); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}

	if err := s.UpdateSyncStatus(ctx, item.ID, mediatypes.SyncFailed); err != nil {
		t.Fatalf("UpdateSyncStatus() error: %v", err)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if items[0].SyncStatus != mediatypes.SyncFailed {
		t.Errorf("SyncStatus = %q, want failed", items[0].SyncStatus)
	}

	err = s.UpdateSyncStatus(ctx, item.ID+999, mediatypes.SyncSynced)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestPruneMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, url := range []string{"/a.jpg", "/b.jpg", "/c.jpg"} {
		if err := s.UpsertItem(ctx, &MediaItem{OriginalURL: url, Type: mediatypes.ItemTypePhoto}); err != nil {
			t.Fatalf("UpsertItem(%s) error: %v", url, err)
		}
	}

	removed, err := s.PruneMissing(ctx, []string{"/a.jpg", "/c.jpg"})
	if err != nil {
		t.Fatalf("PruneMissing() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.OriginalURL
	}
	if len(urls) != 2 || urls[0] != "/a.jpg" || urls[1] != "/c.jpg" {
		t.Errorf("surviving items = %v, want [/a.jpg /c.jpg]", urls)
	}

	// Empty keep list empties the catalog.
	removed, err = s.PruneMissing(ctx, nil)
	if err != nil {
		t.Fatalf("PruneMissing(nil) error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestPruneMissing_LargeKeepSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, url := range []string{"/keep.jpg", "/gone.jpg"} {
		if err := s.UpsertItem(ctx, &MediaItem{OriginalURL: url, Type: mediatypes.ItemTypePhoto}); err != nil {
			t.Fatalf("UpsertItem(%s) error: %v", url, err)
		}
	}

	// Well past the SQLite bind variable cap of 32766.
	keep := make([]string, 0, 34000)
	keep = append(keep, "/keep.jpg")
	for i := 0; i < 33999; i++ {
		keep = append(keep, fmt.Sprintf("/other/%05d.jpg", i))
	}

	removed, err := s.PruneMissing(ctx, keep)
	if err != nil {
		t.Fatalf("PruneMissing() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 || items[0].OriginalURL != "/keep.jpg" {
		t.Errorf("surviving items = %v, want only /keep.jpg", items)
	}
}

func TestClearAll_PreservesDirectories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertItem(ctx, &MediaItem{OriginalURL: "/a.jpg", Type: mediatypes.ItemTypePhoto}); err != nil {
		t.Fatalf("UpsertItem() error: %v", err)
	}
	if err := s.SaveDirectories(ctx, []Directory{{Path: "/photos", Bookmark: []byte("grant")}}); err != nil {
		t.Fatalf("SaveDirectories() error: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error: %v", err)
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty catalog after ClearAll, got %d items", len(items))
	}

	dirs, err := s.LoadDirectories(ctx)
	if err != nil {
		t.Fatalf("LoadDirectories() error: %v", err)
	}
	if len(dirs) != 1 {
		t.Errorf("expected directories untouched by ClearAll, got %d", len(dirs))
	}
}

func TestDirectories_FullReplaceAndTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []Directory{
		{Path: "/photos", Bookmark: []byte{0x00, 0xFF, 0x10, 0x7F}},
		{Path: "/videos", Bookmark: []byte("opaque-token")},
	}
	if err := s.SaveDirectories(ctx, first); err != nil {
		t.Fatalf("SaveDirectories() error: %v", err)
	}

	loaded, err := s.LoadDirectories(ctx)
	if err != nil {
		t.Fatalf("LoadDirectories() error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(loaded))
	}
	if string(loaded[0].Bookmark) != string(first[0].Bookmark) {
		t.Errorf("bookmark did not round-trip: %v", loaded[0].Bookmark)
	}

	// Saving a new set replaces the old one entirely.
	if err := s.SaveDirectories(ctx, []Directory{{Path: "/other"}}); err != nil {
		t.Fatalf("SaveDirectories() replace error: %v", err)
	}
	loaded, err = s.LoadDirectories(ctx)
	if err != nil {
		t.Fatalf("LoadDirectories() error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Path != "/other" {
		t.Errorf("expected full replace, got %+v", loaded)
	}
}

func TestUpsertItem_ConcurrentSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			done <- s.UpsertItem(ctx, &MediaItem{
				OriginalURL: "/contended.jpg",
				Type:        mediatypes.ItemTypePhoto,
			})
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent UpsertItem() error: %v", err)
		}
	}

	items, err := s.AllItems(ctx)
	if err != nil {
		t.Fatalf("AllItems() error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 row under concurrent upserts, got %d", len(items))
	}
}

func TestBestDate(t *testing.T) {
	exif := time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		meta     *Metadata
		expected time.Time
	}{
		{"exif wins", &Metadata{ExifDate: &exif, CreatedAt: created, ModifiedAt: modified}, exif},
		{"created fallback", &Metadata{CreatedAt: created, ModifiedAt: modified}, created},
		{"modified fallback", &Metadata{ModifiedAt: modified}, modified},
		{"nil metadata", nil, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.BestDate(); !got.Equal(tt.expected) {
				t.Errorf("BestDate() = %v, want %v", got, tt.expected)
			}
		})
	}
}
