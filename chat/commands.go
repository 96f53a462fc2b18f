package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cbera/sharkbot/telemetry"
)

// linkCommands resolve straight to a stored link by their own name.
var linkCommands = map[string]bool{
	"pob":     true,
	"profile": true,
	"ign":     true,
	"socials": true,
}

// handleCommand dispatches a prefix command. Commands are never persisted and
// never relayed. rest is "word args..." with the prefix already stripped.
func (b *Bot) handleCommand(ctx context.Context, msg Incoming, rest string) {
	word, args, _ := strings.Cut(rest, " ")
	word = strings.ToLower(word)
	args = strings.TrimSpace(args)
	telemetry.CommandsHandled.Inc()

	switch {
	case word == "hi":
		b.sayChunked(ctx, msg.Platform, fmt.Sprintf("Hey %s, welcome in!", msg.User))
	case word == "say":
		if !msg.IsMod && !msg.IsOwner {
			return
		}
		if args != "" {
			b.sayChunked(ctx, msg.Platform, args)
		}
	case word == "links":
		b.sayAllLinks(ctx, msg.Platform)
	case linkCommands[word]:
		b.sayLink(ctx, msg.Platform, word)
	default:
		b.slog.Debug("unknown command ignored", slog.String("command", word))
	}
}

func (b *Bot) sayLink(ctx context.Context, platform, key string) {
	val, err := b.links.Get(ctx, key)
	if err != nil {
		b.slog.Warn("link lookup failed", slog.Any("err", err), slog.String("key", key))
		return
	}
	if val == "" {
		b.sayChunked(ctx, platform, fmt.Sprintf("No %s link set yet.", key))
		return
	}
	b.sayChunked(ctx, platform, val)
}

func (b *Bot) sayAllLinks(ctx context.Context, platform string) {
	all, err := b.links.All(ctx)
	if err != nil {
		b.slog.Warn("links listing failed", slog.Any("err", err))
		return
	}
	if len(all) == 0 {
		b.sayChunked(ctx, platform, "No links set yet.")
		return
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+all[k])
	}
	b.sayChunked(ctx, platform, strings.Join(parts, " | "))
}
