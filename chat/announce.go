package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/twitchapi"
)

// StreamLister is the live-status lookup; *twitchapi.HelixClient satisfies it.
type StreamLister interface {
	GetStreams(ctx context.Context, login string) ([]twitchapi.Stream, error)
}

// StartLiveAnnouncer polls Twitch stream status and posts a go-live line into
// the bot's own chat on the offline-to-live transition. Lookup errors are
// logged at debug and the poller keeps going.
func StartLiveAnnouncer(ctx context.Context, cfg *config.Config, helix StreamLister, speaker Speaker, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := slog.With(slog.String("component", "live_announcer"))
	log.Info("live announcer started", slog.Duration("interval", interval), slog.String("channel", cfg.TwitchChannel))

	var live bool
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("live announcer stopped")
			return
		case <-ticker.C:
			streams, err := helix.GetStreams(ctx, cfg.TwitchChannel)
			if err != nil {
				log.Debug("streams lookup failed", slog.Any("err", err))
				continue
			}
			nowLive := len(streams) > 0
			if nowLive && !live {
				line := fmt.Sprintf("%s is live! %s", cfg.StreamerName, streams[0].Title)
				if err := speaker.Say(ctx, line); err != nil {
					log.Warn("announce failed", slog.Any("err", err))
				} else {
					log.Info("announced go-live", slog.String("title", streams[0].Title))
				}
			}
			live = nowLive
		}
	}
}
