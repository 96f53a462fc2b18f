package chat

import "strings"

// Kind is the path an inbound message takes through the bot.
type Kind int

const (
	// KindOrdinary is plain chat: persisted and relayed.
	KindOrdinary Kind = iota
	// KindClear is the owner-only log reset.
	KindClear
	// KindMention addresses the bot persona by its trigger word.
	KindMention
	// KindCommand is a prefix command backed by the link store.
	KindCommand
)

// clearCommand resets the rolling log; owner only.
const clearCommand = "!clearchat"

// Classify inspects the first whitespace-delimited token, case-insensitively.
// For mentions, rest is the text with the trigger token stripped; for commands,
// rest is the command word without its prefix plus any arguments.
func Classify(text, trigger, prefix string) (Kind, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return KindOrdinary, ""
	}
	first := trimmed
	var remainder string
	if i := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\t' }); i >= 0 {
		first = trimmed[:i]
		remainder = strings.TrimSpace(trimmed[i:])
	}
	lower := strings.ToLower(first)
	switch {
	case lower == clearCommand:
		return KindClear, ""
	case trigger != "" && lower == strings.ToLower(trigger):
		return KindMention, remainder
	case prefix != "" && strings.HasPrefix(lower, prefix) && len(first) > len(prefix):
		rest := strings.TrimPrefix(first, prefix)
		if remainder != "" {
			rest += " " + remainder
		}
		return KindCommand, rest
	default:
		return KindOrdinary, trimmed
	}
}
