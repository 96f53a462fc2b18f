package chat

const (
	// maxSendLen is the largest message sent as a single line.
	maxSendLen = 500

	// splitAt is where an oversized message is cut into its first chunk.
	splitAt = 450

	// hardLimit is the point past which a message is not sent at all.
	hardLimit = 900

	// TooLongNotice replaces messages beyond the hard limit.
	TooLongNotice = "Message is too long."
)

// SplitMessage breaks an outbound message into sendable chunks. Up to
// maxSendLen the message goes out whole; between that and hardLimit it is cut
// at splitAt with the remainder as a second chunk; past hardLimit only the
// fixed notice is sent.
func SplitMessage(text string) []string {
	runes := []rune(text)
	switch {
	case len(runes) <= maxSendLen:
		return []string{text}
	case len(runes) <= hardLimit:
		return []string{string(runes[:splitAt]), string(runes[splitAt:])}
	default:
		return []string{TooLongNotice}
	}
}
