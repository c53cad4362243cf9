package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	createSQLiteTableSQL = `CREATE TABLE IF NOT EXISTS series_cache (
		cache_key  TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`

	upsertSQLiteEntrySQL = `INSERT INTO series_cache (cache_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at`

	getSQLiteEntrySQL    = `SELECT payload FROM series_cache WHERE cache_key = ?`
	deleteSQLiteEntrySQL = `DELETE FROM series_cache WHERE cache_key = ?`
	listSQLiteEntriesSQL = `SELECT cache_key, length(payload), updated_at
		FROM series_cache
		WHERE substr(cache_key, 1, length(?1)) = ?1
		ORDER BY cache_key`
)

// SQLiteStore keeps cache records in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// OpenSQLite opens (or creates) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache.sqlite_path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, createSQLiteTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create series_cache: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the payload stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, getSQLiteEntrySQL, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return payload, true, nil
}

// Put stores or overwrites the payload under key.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, upsertSQLiteEntrySQL, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes the record under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, deleteSQLiteEntrySQL, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// List returns metadata for every record whose key starts with prefix.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, listSQLiteEntriesSQL, prefix)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			entry   Entry
			updated int64
		)
		if err := rows.Scan(&entry.Key, &entry.Size, &updated); err != nil {
			return nil, err
		}
		entry.UpdatedAt = time.Unix(updated, 0).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
