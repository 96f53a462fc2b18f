package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// NowPlayer is the lookup the poller depends on; *Client satisfies it.
type NowPlayer interface {
	NowPlaying(ctx context.Context) (*Track, error)
}

// StartPresenceJob polls the player state at an interval and mirrors it into
// path for the overlay. Lookup errors leave the file untouched.
func StartPresenceJob(ctx context.Context, np NowPlayer, path string, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	log := slog.With(slog.String("component", "spotify_presence"))
	log.Info("presence job starting", slog.Duration("interval", interval), slog.String("file", path))
	// Kick an immediate run so the overlay isn't blank for a full interval.
	pollOnce(ctx, np, path, log)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("presence job stopped")
			return
		case <-ticker.C:
			pollOnce(ctx, np, path, log)
		}
	}
}

func pollOnce(ctx context.Context, np NowPlayer, path string, log *slog.Logger) {
	track, err := np.NowPlaying(ctx)
	if err != nil {
		log.Debug("now playing lookup failed", slog.Any("err", err))
		return
	}
	line := NotPlayingLine
	if track != nil {
		line = track.Line()
	}
	if err := WritePresence(path, line); err != nil {
		log.Warn("presence write failed", slog.Any("err", err))
	}
}

// WritePresence atomically replaces the presence file so the overlay never
// reads a half-written line.
func WritePresence(path, line string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".presence-*")
	if err != nil {
		return fmt.Errorf("presence temp: %w", err)
	}
	if _, err := tmp.WriteString(line); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("presence write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("presence close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("presence rename: %w", err)
	}
	return nil
}
