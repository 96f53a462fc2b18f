// Command sharkbot is the livestream companion bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the sqlite database and applies the schema.
//   - Starts background workers: Twitch chat, YouTube live chat relay, the
//     TTS serializer, the Spotify presence poller, the live announcer, and
//     OAuth token refreshers for YouTube/Spotify.
//   - Exposes the overlay HTTP API with /api/messages, /api/tts, /api/links,
//     /healthz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cbera/sharkbot/ai"
	"github.com/cbera/sharkbot/chat"
	"github.com/cbera/sharkbot/chatlog"
	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/db"
	"github.com/cbera/sharkbot/emotes"
	"github.com/cbera/sharkbot/links"
	"github.com/cbera/sharkbot/oauth"
	"github.com/cbera/sharkbot/server"
	"github.com/cbera/sharkbot/spotify"
	"github.com/cbera/sharkbot/telemetry"
	"github.com/cbera/sharkbot/twitchapi"
	"github.com/cbera/sharkbot/tts"
	"github.com/cbera/sharkbot/youtubeapi"
)

func main() {
	// Load .env if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("sharkbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens := &db.TokenStoreAdapter{DB: database}
	bot := chat.NewBot(cfg, chatlog.New(database), links.New(database))

	// TTS serializer: single consumer over the overlay audio file.
	serializer := tts.NewSerializer(
		&tts.GoogleSynthesizer{Lang: cfg.TTSLang},
		cfg.TTSFile,
		16,
	)
	go serializer.Start(ctx)
	bot.SetTTS(serializer)

	// AI responder
	if err := cfg.ValidateAIReady(); err != nil {
		slog.Info("ai responder disabled", slog.Any("reason", err))
	} else {
		bot.SetResponder(ai.NewSession(ai.NewClient(cfg.OpenAIKey), cfg.OpenAIModel, ai.DefaultPersona, cfg.AIMaxTurns))
	}

	// Local sound cue for ordinary chat
	if cmd := os.Getenv("SOUND_CMD"); cmd != "" {
		parts := strings.Fields(cmd)
		bot.SetNotifier(chat.SoundNotifier{Command: parts[0], Args: parts[1:]})
	}

	// Twitch chat
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("twitch chat disabled", slog.Any("reason", err))
	} else {
		client := twitchirc.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
		bot.SetSpeaker("twitch", &chat.TwitchSpeaker{Client: client, Channel: cfg.TwitchChannel})
		go chat.StartTwitchChat(ctx, cfg, bot, client)

		// Live announcer needs Helix app credentials.
		if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
			helix := &twitchapi.HelixClient{
				AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
				ClientID:       cfg.TwitchClientID,
			}
			go chat.StartLiveAnnouncer(ctx, cfg, helix, &chat.TwitchSpeaker{Client: client, Channel: cfg.TwitchChannel}, 30*time.Second)
		}
	}

	// YouTube live chat relay
	ytSvc := youtubeapi.New(cfg, tokens)
	if err := cfg.ValidateYouTubeReady(); err != nil {
		slog.Info("youtube relay disabled", slog.Any("reason", err))
	} else {
		go func() {
			client, err := ytSvc.Client(ctx)
			if err != nil {
				slog.Warn("youtube client unavailable, relay not started", slog.Any("err", err))
				return
			}
			liveChatID, err := youtubeapi.ResolveLiveChatID(client, cfg.YTVideoID)
			if err != nil {
				slog.Warn("live chat id resolution failed, relay not started", slog.Any("err", err))
				return
			}
			bot.SetSpeaker("youtube", &chat.YouTubeSpeaker{Service: ytSvc, LiveChatID: liveChatID})
			chat.StartYouTubeRelay(ctx, cfg, bot, ytSvc, liveChatID)
		}()
	}

	// Spotify presence poller
	if err := cfg.ValidateSpotifyReady(); err != nil {
		slog.Info("spotify presence disabled", slog.Any("reason", err))
	} else {
		sp := spotify.New(cfg, tokens)
		go spotify.StartPresenceJob(ctx, sp, cfg.PresenceFile, cfg.SpotifyPollInterval)
	}

	// Centralized OAuth token refreshers
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
		})
	}
	if cfg.YTClientID != "" && cfg.YTClientSecret != "" {
		oauth.StartRefresher(ctx, database, "youtube", 10*time.Minute, 20*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			oc := &oauth2.Config{ClientID: cfg.YTClientID, ClientSecret: cfg.YTClientSecret, Endpoint: google.Endpoint, RedirectURL: cfg.YTRedirectURI}
			newTok, err := oc.TokenSource(rctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, "", nil
		})
	}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		oauth.StartRefresher(ctx, database, "spotify", 10*time.Minute, 20*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			oc := &oauth2.Config{ClientID: cfg.SpotifyClientID, ClientSecret: cfg.SpotifyClientSecret, Endpoint: spotify.Endpoint, RedirectURL: cfg.SpotifyRedirectURI}
			newTok, err := oc.TokenSource(rctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
			if err != nil {
				return "", "", time.Time{}, "", err
			}
			return newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, "", nil
		})
	}

	// 7tv emote lookup for the overlay (optional)
	var emoteClient *emotes.Client
	if cfg.SevenTVUserID != "" {
		emoteClient = &emotes.Client{UserID: cfg.SevenTVUserID}
	}

	// Overlay HTTP server
	go func() {
		if err := server.Start(ctx, cfg, database, serializer, emoteClient); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
