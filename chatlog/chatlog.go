// Package chatlog maintains the bounded log of recent chat lines. The log is
// both the overlay's chat feed and the raw material for moderation actions, so
// it stays deliberately small: at most MaxMessages rows, oldest evicted first.
package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// MaxMessages caps the number of retained rows. On overflow the single row
// with the smallest id is deleted before inserting.
const MaxMessages = 30

// Message is one chat line as stored. Immutable once created.
type Message struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"message"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"timestamp"`
}

// Log provides the append/evict/query operations over the messages table.
// Each operation uses a short-lived statement; there is no cross-operation
// locking beyond what sqlite itself provides.
type Log struct {
	db *sql.DB
}

func New(db *sql.DB) *Log { return &Log{db: db} }

// Append inserts a chat line, evicting the oldest row first when the log is
// at capacity. Eviction removes exactly one row per insert so the count never
// exceeds MaxMessages.
func (l *Log) Append(ctx context.Context, user, text, platform string) error {
	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if count >= MaxMessages {
		if _, err := l.db.ExecContext(ctx,
			`DELETE FROM messages WHERE id = (SELECT id FROM messages ORDER BY id ASC LIMIT 1)`); err != nil {
			return fmt.Errorf("evict oldest: %w", err)
		}
	}
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO messages (from_user, message, platform, created_at) VALUES (?, ?, ?, ?)`,
		user, text, platform, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// DeleteByUser removes every line from a user (ban/timeout moderation action)
// and reports how many were removed.
func (l *Log) DeleteByUser(ctx context.Context, user string) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM messages WHERE from_user = ?`, user)
	if err != nil {
		return 0, fmt.Errorf("delete by user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Clear removes all lines. Used by the owner clear command and stream resets.
func (l *Log) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// Recent returns lines newer than now-maxAge, oldest first, capped at limit.
// Rows without a timestamp are excluded so a pre-migration row can never leak
// stale history into a fresh overlay load.
func (l *Log) Recent(ctx context.Context, limit int, maxAge time.Duration) ([]Message, error) {
	if limit <= 0 {
		limit = MaxMessages
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	// Newest rows win the limit; the subquery picks them and the outer ORDER BY
	// presents them oldest-first for the overlay.
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, from_user, message, platform, created_at FROM (
			SELECT id, from_user, message, platform, created_at FROM messages
			WHERE created_at IS NOT NULL AND created_at > ?
			ORDER BY id DESC LIMIT ?
		 ) ORDER BY created_at ASC, id ASC`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.User, &m.Text, &m.Platform, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of retained lines. Test and status helper.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}
