package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for catalog operations
const defaultTimeout = 5 * time.Second

// Store manages the durable media catalog: the media_items table and the
// watched directories table. Writes are serialized through the mutex so the
// one-row-per-OriginalURL invariant holds under concurrent upserts; reads
// proceed concurrently with other reads.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open opens (creating if necessary) the catalog database at dbPath and
// brings the schema up to date. dbPath must be the full path to the database
// file and its parent directory must already exist.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Catalog path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors when
	// readers overlap the writer.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	start := time.Now()
	schema := `
	CREATE TABLE IF NOT EXISTS media_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL UNIQUE,
		edited_url TEXT,
		live_video_url TEXT,
		type TEXT NOT NULL,
		metadata TEXT,
		sync_status TEXT NOT NULL DEFAULT 'notSynced',
		directory_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_media_items_type ON media_items(type);
	CREATE INDEX IF NOT EXISTS idx_media_items_directory ON media_items(directory_id);
	CREATE INDEX IF NOT EXISTS idx_media_items_sync_status ON media_items(sync_status);

	CREATE TABLE IF NOT EXISTS directories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		bookmark TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		recordQuery("initialize_schema", start, err)
		return err
	}

	err = s.runMigrations(ctx)
	recordQuery("initialize_schema", start, err)
	return err
}

// runMigrations applies catalog schema migrations. Each migration checks for
// its own marker so repeated opens are idempotent, and existing rows are
// never reordered or dropped.
func (s *Store) runMigrations(ctx context.Context) error {
	// Migration 1: add the sync_status column to media_items tables created
	// before sync tracking existed.
	var columnExists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('media_items')
		WHERE name='sync_status'
	`).Scan(&columnExists)

	if err != nil {
		return fmt.Errorf("failed to check for sync_status column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating catalog: adding sync_status column to media_items")

		_, err = s.db.ExecContext(ctx, `
			ALTER TABLE media_items ADD COLUMN sync_status TEXT NOT NULL DEFAULT 'notSynced'
		`)
		if err != nil {
			return fmt.Errorf("failed to add sync_status column: %w", err)
		}

		logging.Info("Migration complete: sync_status column added")
	}

	return nil
}

// Close closes the catalog database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the catalog database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// recordQuery records catalog operation metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.CatalogQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.CatalogQueryDuration.WithLabelValues(operation).Observe(duration)
}
