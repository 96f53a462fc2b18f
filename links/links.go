// Package links is the key/value store for stream metadata: build link,
// profile URL, in-game name, socials. Chat commands read it, the overlay and
// the links web page read and write it.
package links

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Set upserts a link. Keys are unique; values are overwritten, never deleted.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("link key is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert link %q: %w", key, err)
	}
	return nil
}

// Get returns the value for key, or "" when absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM links WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get link %q: %w", key, err)
	}
	return v, nil
}

// All returns the full link map.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM links`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
