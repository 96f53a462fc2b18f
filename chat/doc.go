// Package chat contains message classification, the cross-platform relay, and
// the platform entrypoints.
//
// It provides three entrypoints:
//   - StartTwitchChat: connects the IRC client for TWITCH_CHANNEL, feeds every
//     message through the Bot, and maps CLEARCHAT events onto the rolling log.
//   - StartYouTubeRelay: resolves the live chat id for YT_VIDEO_ID and polls
//     liveChatMessages at the API-advised interval, feeding messages through
//     the same Bot.
//   - StartLiveAnnouncer: polls Twitch stream status and posts a go-live line
//     into chat when the channel transitions from offline to live.
//
// Every inbound message takes exactly one of four paths: the owner clear
// command, the mention trigger (AI reply plus TTS), a prefix command backed by
// the link store, or ordinary chat which is persisted and relayed to the other
// platform.
package chat
