// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., Twitch chat), use the per-feature Validate helpers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string
	BotID              string
	OwnerID            string

	// Chat behavior
	StreamerName   string
	MentionTrigger string
	CommandPrefix  string

	// OpenAI
	OpenAIKey   string
	OpenAIModel string
	AIMaxTurns  int

	// TTS
	TTSFile string
	TTSLang string

	// HTTP server
	HTTPAddr string

	// Database
	DBPath string

	// YouTube OAuth + live chat
	YTClientID     string
	YTClientSecret string
	YTRedirectURI  string
	YTVideoID      string

	// Spotify
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyPollInterval time.Duration
	PresenceFile        string

	// Emotes (7tv lookup, optional)
	SevenTVUserID string
}

// Load reads environment variables and applies defaults. It doesn't fail if platform
// creds are missing; use the Validate helpers when a feature requires them. Missing
// optional variables disable features (e.g., YouTube relay, Spotify presence).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.BotID = os.Getenv("BOT_ID")
	cfg.OwnerID = os.Getenv("OWNER_ID")

	cfg.StreamerName = os.Getenv("STREAMER_NAME")
	if cfg.StreamerName == "" {
		cfg.StreamerName = cfg.TwitchChannel
	}
	cfg.MentionTrigger = os.Getenv("MENTION_TRIGGER")
	if cfg.MentionTrigger == "" {
		cfg.MentionTrigger = "sharko"
	}
	cfg.CommandPrefix = os.Getenv("COMMAND_PREFIX")
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.AIMaxTurns = 20
	if v := os.Getenv("AI_MAX_TURNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid AI_MAX_TURNS: %q", v)
		}
		cfg.AIMaxTurns = n
	}

	cfg.TTSFile = os.Getenv("TTS_FILE")
	if cfg.TTSFile == "" {
		cfg.TTSFile = "tts.mp3"
	}
	cfg.TTSLang = os.Getenv("TTS_LANG")
	if cfg.TTSLang == "" {
		cfg.TTSLang = "en"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":5000"
	}

	cfg.DBPath = os.Getenv("DB_PATH")
	if cfg.DBPath == "" {
		cfg.DBPath = "sharkbot.db"
	}

	cfg.YTClientID = os.Getenv("YT_CLIENT_ID")
	cfg.YTClientSecret = os.Getenv("YT_CLIENT_SECRET")
	cfg.YTRedirectURI = os.Getenv("YT_REDIRECT_URI")
	cfg.YTVideoID = os.Getenv("YT_VIDEO_ID")

	cfg.SpotifyClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	cfg.SpotifyClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	cfg.SpotifyRedirectURI = os.Getenv("SPOTIFY_REDIRECT_URI")
	cfg.SpotifyPollInterval = 10 * time.Second
	if v := os.Getenv("SPOTIFY_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SPOTIFY_POLL_INTERVAL: %q", v)
		}
		cfg.SpotifyPollInterval = d
	}
	cfg.PresenceFile = os.Getenv("PRESENCE_FILE")
	if cfg.PresenceFile == "" {
		cfg.PresenceFile = "spotify_now_playing.txt"
	}

	cfg.SevenTVUserID = os.Getenv("SEVENTV_USER_ID")

	return cfg, nil
}

// ValidateChatReady checks required fields for connecting to Twitch chat.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// ValidateAIReady checks required fields for the AI responder.
func (c *Config) ValidateAIReady() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	return nil
}

// ValidateYouTubeReady checks required fields for YouTube live chat relay.
func (c *Config) ValidateYouTubeReady() error {
	if c.YTClientID == "" || c.YTClientSecret == "" || c.YTVideoID == "" {
		return fmt.Errorf("missing youtube env: require YT_CLIENT_ID, YT_CLIENT_SECRET, YT_VIDEO_ID")
	}
	return nil
}

// ValidateSpotifyReady checks required fields for the presence poller.
func (c *Config) ValidateSpotifyReady() error {
	if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
		return fmt.Errorf("missing spotify env: require SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET")
	}
	return nil
}
