// Package sqlite implements the KV substrate on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/broadside/internal/storage"
	"github.com/louisbranch/broadside/internal/storage/sqlite/migrations"
)

// Store provides a SQLite-backed KV substrate.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (and migrates) a SQLite KV store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the value stored under key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "get record", err)
	}
	return value, nil
}

// Put stores value under key, overwriting any previous value.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "put record", err)
	}
	return nil
}

// Apply stores all entries in one transaction so a batch commits or rolls
// back as a unit.
func (s *Store) Apply(ctx context.Context, entries []storage.Entry) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "begin batch", err)
	}
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			entry.Key, entry.Value,
		); err != nil {
			_ = tx.Rollback()
			return apperrors.Wrap(apperrors.CodeStorage, "put batch record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "commit batch", err)
	}
	return nil
}

// Scan returns all entries under prefix in ascending key order. The prefix
// bound is expressed as a half-open key range so the table's primary-key
// index drives the scan.
func (s *Store) Scan(ctx context.Context, prefix []byte) ([]storage.Entry, error) {
	upper := prefixUpperBound(prefix)

	var rows *sql.Rows
	var err error
	if upper == nil {
		rows, err = s.sqlDB.QueryContext(ctx,
			"SELECT key, value FROM kv WHERE key >= ? ORDER BY key ASC", prefix)
	} else {
		rows, err = s.sqlDB.QueryContext(ctx,
			"SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC", prefix, upper)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "scan records", err)
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var entry storage.Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorage, "scan record row", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "iterate records", err)
	}
	return entries, nil
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when no such bound exists (all-0xff prefix).
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
