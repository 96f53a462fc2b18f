package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/cbera/sharkbot/config"
)

// TwitchSpeaker adapts the IRC client's outbound side to the Speaker interface.
type TwitchSpeaker struct {
	Client  *twitch.Client
	Channel string
}

func (t *TwitchSpeaker) Say(_ context.Context, text string) error {
	t.Client.Say(t.Channel, text)
	return nil
}

// StartTwitchChat connects to Twitch IRC and feeds every message through the
// bot until ctx is cancelled. Blocks; run in its own goroutine. Returns the
// client so callers can register the speaker before messages flow.
func StartTwitchChat(ctx context.Context, cfg *config.Config, bot *Bot, client *twitch.Client) {
	log := slog.With(slog.String("component", "twitch_chat"))

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		in := Incoming{
			User:     msg.User.DisplayName,
			UserID:   msg.User.ID,
			Text:     msg.Message,
			Platform: "twitch",
			IsMod:    msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0,
			IsOwner:  msg.User.ID == cfg.OwnerID || msg.User.Badges["broadcaster"] > 0,
		}
		if in.User == "" {
			in.User = msg.User.Name
		}
		bot.HandleMessage(ctx, in)
	})

	client.OnClearChatMessage(func(msg twitch.ClearChatMessage) {
		bot.HandleClearChat(ctx, msg.TargetUsername)
	})

	// Close the connection when the root context ends.
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			log.Debug("disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	client.Join(cfg.TwitchChannel)
	log.Info("connecting to twitch chat", slog.String("channel", cfg.TwitchChannel))
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		log.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}
