package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cbera/sharkbot/chatlog"
	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/links"
	"github.com/cbera/sharkbot/telemetry"
)

// aiApology is posted when the responder fails; raw errors never reach chat.
const aiApology = "Sorry, my brain glitched out. Ask me again in a bit."

// Incoming is one normalized chat message from either platform.
type Incoming struct {
	User     string
	UserID   string
	Text     string
	Platform string // "twitch" or "youtube"
	IsMod    bool
	IsOwner  bool
}

// Speaker sends text to one platform's chat.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Responder produces the persona's reply to a prompt.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Enqueuer accepts reply text for audio synthesis.
type Enqueuer interface {
	Enqueue(text string) (<-chan error, error)
}

// Notifier fires a local cue when ordinary chat arrives.
type Notifier interface {
	Notify(event string)
}

// NopNotifier ignores every event.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

// Bot routes inbound messages to the log, the responder, the TTS queue, and
// the opposite platform. All dependencies are interfaces so tests stub them.
type Bot struct {
	cfg      *config.Config
	log      *chatlog.Log
	links    *links.Store
	ai       Responder
	tts      Enqueuer
	notifier Notifier

	// speakers is mutated after startup (YouTube registers once its live
	// chat id resolves) while handlers read it, hence the lock.
	mu       sync.RWMutex
	speakers map[string]Speaker

	slog *slog.Logger
}

func NewBot(cfg *config.Config, log *chatlog.Log, ls *links.Store) *Bot {
	return &Bot{
		cfg:      cfg,
		log:      log,
		links:    ls,
		notifier: NopNotifier{},
		speakers: make(map[string]Speaker),
		slog:     slog.With(slog.String("component", "chat")),
	}
}

// SetResponder wires the AI session; nil leaves mentions unanswered.
func (b *Bot) SetResponder(r Responder) { b.ai = r }

// SetTTS wires the audio queue; nil skips synthesis.
func (b *Bot) SetTTS(e Enqueuer) { b.tts = e }

// SetNotifier replaces the local cue sink.
func (b *Bot) SetNotifier(n Notifier) {
	if n != nil {
		b.notifier = n
	}
}

// SetSpeaker registers the outbound side of a platform.
func (b *Bot) SetSpeaker(platform string, s Speaker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speakers[platform] = s
}

func (b *Bot) speaker(platform string) (Speaker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.speakers[platform]
	return s, ok
}

// HandleMessage runs one inbound message through classification. Errors are
// logged and absorbed; chat handling never propagates failures to the caller.
func (b *Bot) HandleMessage(ctx context.Context, msg Incoming) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	telemetry.MessagesIngested.WithLabelValues(msg.Platform).Inc()
	kind, rest := Classify(msg.Text, b.cfg.MentionTrigger, b.cfg.CommandPrefix)
	switch kind {
	case KindClear:
		if !msg.IsOwner {
			b.slog.Debug("clear command from non-owner ignored", slog.String("user", msg.User))
			return
		}
		if err := b.log.Clear(ctx); err != nil {
			b.slog.Warn("clear failed", slog.Any("err", err))
		}
	case KindMention:
		b.handleMention(ctx, msg, rest)
	case KindCommand:
		b.handleCommand(ctx, msg, rest)
	default:
		b.handleOrdinary(ctx, msg)
	}
}

func (b *Bot) handleMention(ctx context.Context, msg Incoming, prompt string) {
	if err := b.log.Append(ctx, msg.User, msg.Text, msg.Platform); err != nil {
		b.slog.Warn("append failed", slog.Any("err", err))
	}
	if b.ai == nil || prompt == "" {
		return
	}
	telemetry.AICalls.Inc()
	var reply string
	var err error
	telemetry.TimeFunc(telemetry.AIReplyDuration, func() {
		reply, err = b.ai.Reply(ctx, prompt)
	})
	if err != nil {
		telemetry.AIFailures.Inc()
		b.slog.Warn("ai reply failed", slog.Any("err", err), slog.String("user", msg.User))
		b.sayChunked(ctx, msg.Platform, aiApology)
		return
	}
	b.sayChunked(ctx, msg.Platform, reply)
	if b.tts != nil {
		if _, err := b.tts.Enqueue(reply); err != nil {
			b.slog.Warn("tts enqueue failed", slog.Any("err", err))
		}
	}
}

func (b *Bot) handleOrdinary(ctx context.Context, msg Incoming) {
	if err := b.log.Append(ctx, msg.User, msg.Text, msg.Platform); err != nil {
		b.slog.Warn("append failed", slog.Any("err", err))
	}
	b.notifier.Notify("message")
	b.relay(ctx, msg)
}

// relay forwards ordinary chat to the other platform with attribution. The
// bot's own account never relays.
func (b *Bot) relay(ctx context.Context, msg Incoming) {
	if msg.UserID != "" && msg.UserID == b.cfg.BotID {
		return
	}
	if strings.EqualFold(msg.User, b.cfg.TwitchBotUsername) {
		return
	}
	target := "youtube"
	if msg.Platform == "youtube" {
		target = "twitch"
	}
	sp, ok := b.speaker(target)
	if !ok {
		return
	}
	line := fmt.Sprintf("%s from %s: %s", msg.User, msg.Platform, msg.Text)
	for _, chunk := range SplitMessage(line) {
		if err := sp.Say(ctx, chunk); err != nil {
			b.slog.Warn("relay send failed", slog.Any("err", err), slog.String("target", target))
			return
		}
	}
	telemetry.MessagesRelayed.WithLabelValues(msg.Platform).Inc()
}

func (b *Bot) sayChunked(ctx context.Context, platform, text string) {
	sp, ok := b.speaker(platform)
	if !ok {
		return
	}
	for _, chunk := range SplitMessage(text) {
		if err := sp.Say(ctx, chunk); err != nil {
			b.slog.Warn("send failed", slog.Any("err", err), slog.String("platform", platform))
			return
		}
	}
}

// HandleClearChat maps a Twitch CLEARCHAT event onto the rolling log: a
// targeted clear removes that user's rows, a channel-wide clear empties it.
func (b *Bot) HandleClearChat(ctx context.Context, targetUser string) {
	if targetUser == "" {
		if err := b.log.Clear(ctx); err != nil {
			b.slog.Warn("clearchat clear failed", slog.Any("err", err))
		}
		return
	}
	n, err := b.log.DeleteByUser(ctx, targetUser)
	if err != nil {
		b.slog.Warn("clearchat delete failed", slog.Any("err", err), slog.String("user", targetUser))
		return
	}
	b.slog.Info("moderation removal", slog.String("user", targetUser), slog.Int64("rows", n))
}
