// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package sqlitestore persists geocoding results in a SQLite database so that a restart does not
// have to look up every address of the feed again.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wneessen/friendsmap/internal/geo"
	"github.com/wneessen/friendsmap/internal/geocode"
)

const schema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	key     TEXT PRIMARY KEY,
	lat     REAL NOT NULL,
	lon     REAL NOT NULL,
	found   INTEGER NOT NULL,
	expires INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires ON geocode_cache(expires);
`

type Store struct {
	db *sql.DB
}

// Open opens or creates the cache database at path. The special path ":memory:" creates a
// throw-away database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context, key string) (geocode.Entry, bool, error) {
	var entry geocode.Entry
	var expires int64
	row := s.db.QueryRowContext(ctx, `SELECT lat, lon, found, expires FROM geocode_cache WHERE key = ?`, key)
	err := row.Scan(&entry.Coordinate.Lat, &entry.Coordinate.Lon, &entry.Found, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return geocode.Entry{}, false, nil
	}
	if err != nil {
		return geocode.Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	entry.Expiry = time.Unix(0, expires)
	if !entry.Found {
		entry.Coordinate = geo.Unresolved
	}
	return entry, true, nil
}

func (s *Store) Save(ctx context.Context, key string, entry geocode.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO geocode_cache (key, lat, lon, found, expires)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET lat = excluded.lat, lon = excluded.lon,
			found = excluded.found, expires = excluded.expires`,
		key, entry.Coordinate.Lat, entry.Coordinate.Lon, entry.Found, entry.Expiry.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Prune deletes all entries that expired before now.
func (s *Store) Prune(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE expires <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned cache entries: %w", err)
	}
	return int(removed), nil
}
