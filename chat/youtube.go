package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/youtubeapi"
)

// minYouTubePoll floors the API-advised interval so quota isn't burned when
// the server suggests sub-second polling.
const minYouTubePoll = 5 * time.Second

// YouTubeSpeaker posts into the live chat as the authorized account.
type YouTubeSpeaker struct {
	Service    *youtubeapi.Service
	LiveChatID string
}

func (y *YouTubeSpeaker) Say(ctx context.Context, text string) error {
	svc, err := y.Service.Client(ctx)
	if err != nil {
		return err
	}
	return youtubeapi.InsertMessage(svc, y.LiveChatID, text)
}

// StartYouTubeRelay polls the live chat attached to cfg.YTVideoID and feeds
// messages through the bot. Messages published before startup and messages
// authored by the bot account are skipped. Blocks until ctx is cancelled.
func StartYouTubeRelay(ctx context.Context, cfg *config.Config, bot *Bot, svc *youtubeapi.Service, liveChatID string) {
	log := slog.With(slog.String("component", "youtube_chat"))
	log.Info("youtube relay started", slog.String("video", cfg.YTVideoID))

	started := time.Now()
	var pageToken string
	wait := minYouTubePoll
	for {
		select {
		case <-ctx.Done():
			log.Info("youtube relay stopped")
			return
		case <-time.After(wait):
		}
		client, err := svc.Client(ctx)
		if err != nil {
			log.Warn("youtube client unavailable", slog.Any("err", err))
			continue
		}
		page, err := youtubeapi.ListMessages(client, liveChatID, pageToken)
		if err != nil {
			log.Warn("live chat poll failed", slog.Any("err", err))
			continue
		}
		pageToken = page.NextPageToken
		wait = page.PollInterval
		if wait < minYouTubePoll {
			wait = minYouTubePoll
		}
		for _, m := range page.Messages {
			if m.AuthorID == cfg.BotID {
				continue
			}
			if !m.PublishedAt.IsZero() && m.PublishedAt.Before(started) {
				continue
			}
			bot.HandleMessage(ctx, Incoming{
				User:     m.AuthorName,
				UserID:   m.AuthorID,
				Text:     m.Text,
				Platform: "youtube",
			})
		}
	}
}
