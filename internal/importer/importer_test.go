package importer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/grouper"
	"media-catalog/internal/metadata"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/thumbs"
)

type recordingSink struct {
	started   []string
	completed []string
	errs      map[string]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{errs: make(map[string]error)}
}

func (s *recordingSink) ItemStarted(item catalog.MediaItem) {
	s.started = append(s.started, item.OriginalURL)
}

func (s *recordingSink) ItemCompleted(item catalog.MediaItem, err error) {
	s.completed = append(s.completed, item.OriginalURL)
	s.errs[item.OriginalURL] = err
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cache, err := thumbs.New(filepath.Join(t.TempDir(), "thumbs"))
	if err != nil {
		t.Fatalf("failed to create thumbnail cache: %v", err)
	}
	return New(grouper.New(metadata.NewExtractor()), cache)
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

func exifDate(t *testing.T, value string) *time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return &ts
}

func TestImport_ShardsByCaptureDate(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir, destDir := t.TempDir(), t.TempDir()

	src := filepath.Join(srcDir, "IMG_0001.png")
	writeTestPNG(t, src)

	items := []catalog.MediaItem{{
		OriginalURL: src,
		Type:        mediatypes.ItemTypePhoto,
		Metadata:    &catalog.Metadata{ExifDate: exifDate(t, "2023-05-17T10:30:00Z")},
	}}

	sink := newRecordingSink()
	if err := o.Import(context.Background(), items, destDir, sink); err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	want := filepath.Join(destDir, "2023", "05", "17", "IMG_0001.png")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s to exist: %v", want, err)
	}

	srcData, _ := os.ReadFile(src)
	dstData, _ := os.ReadFile(want)
	if !bytes.Equal(srcData, dstData) {
		t.Error("copied bytes differ from source")
	}
	if err := sink.errs[src]; err != nil {
		t.Errorf("sink recorded error: %v", err)
	}
}

func TestImport_CopiesCompanionsIntoSameShard(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir, destDir := t.TempDir(), t.TempDir()

	original := filepath.Join(srcDir, "IMG_0002.png")
	edited := filepath.Join(srcDir, "IMG_0002-edited.png")
	live := filepath.Join(srcDir, "IMG_0002.mov")
	writeTestPNG(t, original)
	writeTestPNG(t, edited)
	if err := os.WriteFile(live, []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("failed to write video: %v", err)
	}

	items := []catalog.MediaItem{{
		OriginalURL:  original,
		EditedURL:    edited,
		LiveVideoURL: live,
		Type:         mediatypes.ItemTypeLivePhoto,
		Metadata:     &catalog.Metadata{ExifDate: exifDate(t, "2024-01-02T00:00:00Z")},
	}}

	if err := o.Import(context.Background(), items, destDir, nil); err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	shard := filepath.Join(destDir, "2024", "01", "02")
	for _, name := range []string{"IMG_0002.png", "IMG_0002-edited.png", "IMG_0002.mov"} {
		if _, err := os.Stat(filepath.Join(shard, name)); err != nil {
			t.Errorf("expected %s in shard: %v", name, err)
		}
	}
}

func TestImport_SkipsVanishedSource(t *testing.T) {
	o := newTestOrchestrator(t)
	destDir := t.TempDir()

	gone := filepath.Join(t.TempDir(), "deleted.png")
	items := []catalog.MediaItem{{
		OriginalURL: gone,
		Type:        mediatypes.ItemTypePhoto,
		Metadata:    &catalog.Metadata{ExifDate: exifDate(t, "2023-05-17T10:30:00Z")},
	}}

	sink := newRecordingSink()
	if err := o.Import(context.Background(), items, destDir, sink); err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if err := sink.errs[gone]; err != nil {
		t.Errorf("vanished source should be skipped, not failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "2023", "05", "17", "deleted.png")); err == nil {
		t.Error("unexpected file copied for vanished source")
	}
}

func TestImport_ItemFailureDoesNotAbortRun(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir, destDir := t.TempDir(), t.TempDir()

	// No metadata and no file on disk: the shard date cannot be resolved.
	broken := filepath.Join(srcDir, "broken.png")
	good := filepath.Join(srcDir, "good.png")
	writeTestPNG(t, good)

	items := []catalog.MediaItem{
		{OriginalURL: broken, Type: mediatypes.ItemTypePhoto},
		{
			OriginalURL: good,
			Type:        mediatypes.ItemTypePhoto,
			Metadata:    &catalog.Metadata{ExifDate: exifDate(t, "2022-12-31T08:00:00Z")},
		},
	}

	sink := newRecordingSink()
	if err := o.Import(context.Background(), items, destDir, sink); err != nil {
		t.Fatalf("Import() error: %v", err)
	}

	if sink.errs[broken] == nil {
		t.Error("expected error recorded for unresolvable item")
	}
	if sink.errs[good] != nil {
		t.Errorf("second item should have succeeded: %v", sink.errs[good])
	}
	if _, err := os.Stat(filepath.Join(destDir, "2022", "12", "31", "good.png")); err != nil {
		t.Errorf("second item was not imported: %v", err)
	}
}

func TestImport_CancellationLeavesNoPartialFiles(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir, destDir := t.TempDir(), t.TempDir()

	var items []catalog.MediaItem
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(srcDir, name)
		writeTestPNG(t, p)
		items = append(items, catalog.MediaItem{
			OriginalURL: p,
			Type:        mediatypes.ItemTypePhoto,
			Metadata:    &catalog.Metadata{ExifDate: exifDate(t, "2023-05-17T10:30:00Z")},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancelAfterFirst{cancel: cancel}
	err := o.Import(ctx, items, destDir, sink)
	if err == nil {
		t.Fatal("expected cancellation error")
	}

	var partials []string
	_ = filepath.WalkDir(destDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == ".partial" {
			partials = append(partials, path)
		}
		return nil
	})
	if len(partials) != 0 {
		t.Errorf("cancelled import left partial files: %v", partials)
	}
	if sink.completed > 1 {
		t.Errorf("import continued for %d items after cancellation", sink.completed)
	}
}

type cancelAfterFirst struct {
	cancel    context.CancelFunc
	completed int
}

func (s *cancelAfterFirst) ItemStarted(catalog.MediaItem) {}

func (s *cancelAfterFirst) ItemCompleted(catalog.MediaItem, error) {
	s.completed++
	s.cancel()
}

func TestImport_ReimportIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir, destDir := t.TempDir(), t.TempDir()

	src := filepath.Join(srcDir, "IMG_0003.png")
	writeTestPNG(t, src)
	items := []catalog.MediaItem{{
		OriginalURL: src,
		Type:        mediatypes.ItemTypePhoto,
		Metadata:    &catalog.Metadata{ExifDate: exifDate(t, "2023-05-17T10:30:00Z")},
	}}

	for i := 0; i < 2; i++ {
		if err := o.Import(context.Background(), items, destDir, nil); err != nil {
			t.Fatalf("Import() run %d error: %v", i, err)
		}
	}

	dst := filepath.Join(destDir, "2023", "05", "17", "IMG_0003.png")
	srcData, _ := os.ReadFile(src)
	dstData, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("destination missing after re-import: %v", err)
	}
	if !bytes.Equal(srcData, dstData) {
		t.Error("re-import corrupted the destination")
	}
}

func TestPreview_FindsGroupedItemsAndSkipsNoise(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir := t.TempDir()

	writeTestPNG(t, filepath.Join(srcDir, "IMG_0004.png"))
	writeTestPNG(t, filepath.Join(srcDir, "IMG_0004-edited.png"))
	writeTestPNG(t, filepath.Join(srcDir, "IMG_0005.png"))
	// Noise: hidden file, non-media file, and a corrupt image that cannot
	// produce a thumbnail.
	os.WriteFile(filepath.Join(srcDir, ".DS_Store"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(srcDir, "corrupt.jpg"), []byte("not a jpeg"), 0o644)

	var found []catalog.MediaItem
	err := o.Preview(context.Background(), srcDir, func(item catalog.MediaItem) {
		found = append(found, item)
	})
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}

	if len(found) != 2 {
		t.Fatalf("preview found %d items, want 2", len(found))
	}
	byURL := make(map[string]catalog.MediaItem)
	for _, item := range found {
		byURL[item.OriginalURL] = item
	}
	grouped, ok := byURL[filepath.Join(srcDir, "IMG_0004.png")]
	if !ok {
		t.Fatal("IMG_0004 missing from preview")
	}
	if grouped.EditedURL != filepath.Join(srcDir, "IMG_0004-edited.png") {
		t.Errorf("edited companion not attached: %q", grouped.EditedURL)
	}
}

func TestPreview_Cancellation(t *testing.T) {
	o := newTestOrchestrator(t)
	srcDir := t.TempDir()
	writeTestPNG(t, filepath.Join(srcDir, "IMG_0006.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.Preview(ctx, srcDir, func(catalog.MediaItem) {
		t.Error("onFound called after cancellation")
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
