package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// ErrNotFound is returned when an operation targets an item id that does not
// exist.
var ErrNotFound = errors.New("item not found")

// pruneChunkSize bounds bind variables per INSERT while loading the keep set.
const pruneChunkSize = 500

// UpsertItem inserts or replaces a media item keyed by OriginalURL. All
// fields, including the serialized metadata and sync status, are written in
// one statement, so a racing upsert on the same key resolves to
// last-writer-wins. On insert the assigned row id is written back to item.ID.
func (s *Store) UpsertItem(ctx context.Context, item *MediaItem) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_item", start, err) }()

	if item.SyncStatus == "" {
		item.SyncStatus = mediatypes.SyncNotSynced
	}

	var metaJSON []byte
	if item.Metadata != nil {
		metaJSON, err = json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to serialize metadata for %s: %w", item.OriginalURL, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO media_items (original_url, edited_url, live_video_url, type, metadata, sync_status, directory_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(original_url) DO UPDATE SET
		edited_url = excluded.edited_url,
		live_video_url = excluded.live_video_url,
		type = excluded.type,
		metadata = excluded.metadata,
		sync_status = excluded.sync_status,
		directory_id = excluded.directory_id
	`

	_, err = s.db.ExecContext(ctx, query,
		item.OriginalURL,
		nullable(item.EditedURL),
		nullable(item.LiveVideoURL),
		string(item.Type),
		nullableBytes(metaJSON),
		string(item.SyncStatus),
		nullableID(item.DirectoryID),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.OriginalURL, err)
	}

	// ON CONFLICT replaces in place, so LastInsertId is only meaningful for
	// fresh rows. Read the id back by key instead.
	err = s.db.QueryRowContext(ctx, "SELECT id FROM media_items WHERE original_url = ?", item.OriginalURL).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to read back item id for %s: %w", item.OriginalURL, err)
	}
	return nil
}

// AllItems returns every catalog row materialized back into a MediaItem.
// Rows with an unrecognized type value (written by a newer version) are
// skipped rather than failing the read.
func (s *Store) AllItems(ctx context.Context) ([]MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("all_items", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_url, edited_url, live_video_url, type, metadata, sync_status, directory_id
		FROM media_items ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close item rows: %v", closeErr)
		}
	}()

	var items []MediaItem
	for rows.Next() {
		item, ok := scanItem(rows)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	metrics.CatalogItems.Set(float64(len(items)))
	return items, nil
}

// scanItem materializes one row, returning ok=false for rows that should be
// skipped (unknown type, scan failure).
func scanItem(rows *sql.Rows) (MediaItem, bool) {
	var item MediaItem
	var editedURL, liveVideoURL, metaJSON sql.NullString
	var itemType, syncStatus string
	var directoryID sql.NullInt64

	if err := rows.Scan(&item.ID, &item.OriginalURL, &editedURL, &liveVideoURL,
		&itemType, &metaJSON, &syncStatus, &directoryID); err != nil {
		logging.Warn("skipping unreadable catalog row: %v", err)
		return MediaItem{}, false
	}

	if !mediatypes.ValidItemType(itemType) {
		logging.Warn("skipping catalog row %d with unknown type %q", item.ID, itemType)
		return MediaItem{}, false
	}

	item.Type = mediatypes.ItemType(itemType)
	item.SyncStatus = mediatypes.SyncStatus(syncStatus)
	item.EditedURL = editedURL.String
	item.LiveVideoURL = liveVideoURL.String
	item.DirectoryID = directoryID.Int64

	if metaJSON.Valid && metaJSON.String != "" {
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			// Bad blob degrades to nil metadata, not a failed read.
			logging.Warn("failed to decode metadata for item %d: %v", item.ID, err)
		} else {
			item.Metadata = &meta
		}
	}

	return item, true
}

// CountItems returns the number of cataloged items without materializing
// them.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_items", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// UpdateSyncStatus updates the sync status column for a single item by id.
func (s *Store) UpdateSyncStatus(ctx context.Context, id int64, status mediatypes.SyncStatus) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_sync_status", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = s.db.ExecContext(ctx,
		"UPDATE media_items SET sync_status = ? WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync status for item %d: %w", id, err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
		err = ErrNotFound
		return fmt.Errorf("cannot update sync status for item %d: %w", id, ErrNotFound)
	}
	return nil
}

// PruneMissing deletes items whose original URL is not in keepURLs. It is the
// reconciliation half of a rescan: files that disappeared from watched
// directories drop out of the catalog. Returns the number of rows removed.
func (s *Store) PruneMissing(ctx context.Context, keepURLs []string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune_missing", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if len(keepURLs) == 0 {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, "DELETE FROM media_items")
		if err != nil {
			return 0, fmt.Errorf("failed to prune catalog: %w", err)
		}
		n, _ := res.RowsAffected()
		return n, nil
	}

	// SQLite caps bind variables per statement at 32766, so the keep set
	// goes through a temp table in chunks rather than one giant NOT IN list.
	var tx *sql.Tx
	tx, err = s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to prune catalog: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err = tx.ExecContext(ctx, "CREATE TEMP TABLE keep_urls (url TEXT PRIMARY KEY)"); err != nil {
		return 0, fmt.Errorf("failed to prune catalog: %w", err)
	}

	for i := 0; i < len(keepURLs); i += pruneChunkSize {
		end := i + pruneChunkSize
		if end > len(keepURLs) {
			end = len(keepURLs)
		}
		chunk := keepURLs[i:end]

		placeholders := strings.Repeat("(?),", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for j, u := range chunk {
			args[j] = u
		}
		if _, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO keep_urls (url) VALUES "+placeholders,
			args...,
		); err != nil {
			return 0, fmt.Errorf("failed to prune catalog: %w", err)
		}
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"DELETE FROM media_items WHERE original_url NOT IN (SELECT url FROM keep_urls)",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune catalog: %w", err)
	}
	n, _ := res.RowsAffected()

	// The temp table lives on the connection, not the transaction, so drop
	// it before the connection goes back to the pool.
	if _, err = tx.ExecContext(ctx, "DROP TABLE keep_urls"); err != nil {
		return 0, fmt.Errorf("failed to prune catalog: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to prune catalog: %w", err)
	}
	if n > 0 {
		logging.Info("pruned %d items no longer present on disk", n)
	}
	return n, nil
}

// ClearAll deletes every media item. Watched directories are untouched.
func (s *Store) ClearAll(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_all", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, "DELETE FROM media_items")
	if err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	metrics.CatalogItems.Set(0)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
