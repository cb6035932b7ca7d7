package catalog

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"media-catalog/internal/logging"
)

// SaveDirectories replaces the entire watched-directory set with dirs.
// The replace happens in one transaction: last-write-wins for the whole set.
// Bookmark tokens are stored base64-encoded and round-trip verbatim.
func (s *Store) SaveDirectories(ctx context.Context, dirs []Directory) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_directories", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin directory transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("directory rollback failed: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM directories"); err != nil {
		return fmt.Errorf("failed to clear directories: %w", err)
	}

	for i := range dirs {
		token := base64.StdEncoding.EncodeToString(dirs[i].Bookmark)
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			"INSERT INTO directories (path, bookmark) VALUES (?, ?)",
			dirs[i].Path, token,
		)
		if err != nil {
			return fmt.Errorf("failed to insert directory %s: %w", dirs[i].Path, err)
		}
		if id, idErr := res.LastInsertId(); idErr == nil {
			dirs[i].ID = id
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit directories: %w", err)
	}
	return nil
}

// LoadDirectories returns every watched directory with its access-grant
// token decoded back to the original bytes.
func (s *Store) LoadDirectories(ctx context.Context) ([]Directory, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("load_directories", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT id, path, bookmark FROM directories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query directories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close directory rows: %v", closeErr)
		}
	}()

	var dirs []Directory
	for rows.Next() {
		var d Directory
		var token string
		if err = rows.Scan(&d.ID, &d.Path, &token); err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		if token != "" {
			bookmark, decErr := base64.StdEncoding.DecodeString(token)
			if decErr != nil {
				// A corrupt token loses the grant, not the directory row.
				logging.Warn("failed to decode bookmark for directory %s: %v", d.Path, decErr)
			} else {
				d.Bookmark = bookmark
			}
		}
		dirs = append(dirs, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate directories: %w", err)
	}
	return dirs, nil
}
