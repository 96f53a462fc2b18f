package chat

import (
	"log/slog"
	"os/exec"
)

// SoundNotifier runs a local command (e.g. a sound player) for each ordinary
// chat message. The command runs detached so a slow player never blocks
// ingestion.
type SoundNotifier struct {
	Command string
	Args    []string
}

func (s SoundNotifier) Notify(event string) {
	if s.Command == "" {
		return
	}
	cmd := exec.Command(s.Command, s.Args...)
	go func() {
		if err := cmd.Run(); err != nil {
			slog.Debug("sound cue failed", slog.Any("err", err), slog.String("event", event))
		}
	}()
}
