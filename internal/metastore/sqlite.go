package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// SQLiteStore keeps the mapping in a SQLite table, one row per original.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// The parent directory must exist and be writable.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	logging.Info("Metadata database path: %s", dbPath)

	// busy_timeout avoids "database is locked" while a CLI and the server share the file
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		filename TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		thumbnail TEXT NOT NULL,
		timestamp REAL
	);

	CREATE INDEX IF NOT EXISTS idx_media_timestamp ON media(timestamp);

	-- Bookkeeping, e.g. when the mapping was last written
	CREATE TABLE IF NOT EXISTS store_info (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Backend implements Store.
func (s *SQLiteStore) Backend() string { return BackendSQLite }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Store. A database that has never been written reports
// LoadNotFound; query failures report LoadCorrupt.
func (s *SQLiteStore) Load(ctx context.Context) (Mapping, LoadStatus) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var savedAt string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_info WHERE key = 'saved_at'").Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		observe(BackendSQLite, "load", string(LoadNotFound), start)
		return Mapping{}, LoadNotFound
	}
	if err != nil {
		logging.Warn("Failed to read metadata database %s: %v", s.dbPath, err)
		observe(BackendSQLite, "load", string(LoadCorrupt), start)
		return Mapping{}, LoadCorrupt
	}

	rows, err := s.db.QueryContext(ctx, "SELECT filename, type, thumbnail, timestamp FROM media")
	if err != nil {
		logging.Warn("Failed to query metadata database %s: %v", s.dbPath, err)
		observe(BackendSQLite, "load", string(LoadCorrupt), start)
		return Mapping{}, LoadCorrupt
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Error("error closing rows: %v", closeErr)
		}
	}()

	m := Mapping{}
	for rows.Next() {
		var filename, fileType, thumbnail string
		var ts sql.NullFloat64
		if err := rows.Scan(&filename, &fileType, &thumbnail, &ts); err != nil {
			logging.Warn("Corrupt metadata row in %s: %v", s.dbPath, err)
			observe(BackendSQLite, "load", string(LoadCorrupt), start)
			return Mapping{}, LoadCorrupt
		}
		rec := Record{Type: mediatypes.FileType(fileType), Thumbnail: thumbnail}
		if ts.Valid {
			rec.Timestamp = Timestamp(ts.Float64)
		}
		m[filename] = rec
	}
	if err := rows.Err(); err != nil {
		logging.Warn("Failed to iterate metadata rows in %s: %v", s.dbPath, err)
		observe(BackendSQLite, "load", string(LoadCorrupt), start)
		return Mapping{}, LoadCorrupt
	}

	observe(BackendSQLite, "load", string(LoadOK), start)
	return m, LoadOK
}

// Save implements Store by replacing every row in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM media"); err != nil {
			return fmt.Errorf("clear media: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO media (filename, type, thumbnail, timestamp) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				logging.Error("error closing statement: %v", closeErr)
			}
		}()

		for filename, rec := range m {
			if _, err := stmt.ExecContext(ctx, filename, string(rec.Type), rec.Thumbnail, nullable(rec.Timestamp)); err != nil {
				return fmt.Errorf("insert %s: %w", filename, err)
			}
		}
		return markSaved(ctx, tx)
	})
	if err != nil {
		observe(BackendSQLite, "save", "error", start)
		return fmt.Errorf("save metadata: %w", err)
	}

	observe(BackendSQLite, "save", string(LoadOK), start)
	return nil
}

// Upsert implements Store with a single-row insert-or-update.
func (s *SQLiteStore) Upsert(ctx context.Context, filename string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media (filename, type, thumbnail, timestamp) VALUES (?, ?, ?, ?)
			ON CONFLICT(filename) DO UPDATE SET
				type = excluded.type,
				thumbnail = excluded.thumbnail,
				timestamp = excluded.timestamp
		`, filename, string(rec.Type), rec.Thumbnail, nullable(rec.Timestamp))
		if err != nil {
			return err
		}
		return markSaved(ctx, tx)
	})
	if err != nil {
		observe(BackendSQLite, "save", "error", start)
		return fmt.Errorf("upsert %s: %w", filename, err)
	}

	observe(BackendSQLite, "save", string(LoadOK), start)
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

func markSaved(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO store_info (key, value) VALUES ('saved_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().UTC().Format(time.RFC3339))
	return err
}

func nullable(ts *float64) interface{} {
	if ts == nil {
		return nil
	}
	return *ts
}
