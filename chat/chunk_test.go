package chat

import (
	"strings"
	"testing"
)

func TestSplitMessageWhole(t *testing.T) {
	chunks := SplitMessage("gg")
	if len(chunks) != 1 || chunks[0] != "gg" {
		t.Errorf("chunks = %v", chunks)
	}
	exact := strings.Repeat("a", 500)
	chunks = SplitMessage(exact)
	if len(chunks) != 1 || chunks[0] != exact {
		t.Errorf("500-char message should go out whole, got %d chunks", len(chunks))
	}
}

func TestSplitMessageTwoChunks(t *testing.T) {
	msg := strings.Repeat("b", 650)
	chunks := SplitMessage(msg)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if len(chunks[0]) != 450 {
		t.Errorf("first chunk length = %d, want 450", len(chunks[0]))
	}
	if len(chunks[1]) != 200 {
		t.Errorf("second chunk length = %d, want 200", len(chunks[1]))
	}
	if chunks[0]+chunks[1] != msg {
		t.Error("chunks do not reassemble the original message")
	}
}

func TestSplitMessageUpperBoundary(t *testing.T) {
	msg := strings.Repeat("c", 900)
	chunks := SplitMessage(msg)
	if len(chunks) != 2 {
		t.Fatalf("900-char message should split, got %d chunks", len(chunks))
	}
	if len(chunks[1]) != 450 {
		t.Errorf("second chunk length = %d, want 450", len(chunks[1]))
	}
}

func TestSplitMessageTooLong(t *testing.T) {
	chunks := SplitMessage(strings.Repeat("d", 901))
	if len(chunks) != 1 || chunks[0] != TooLongNotice {
		t.Errorf("chunks = %v, want only the too-long notice", chunks)
	}
}

func TestSplitMessageCountsRunes(t *testing.T) {
	// 600 multi-byte runes: must split at rune 450, not mid-rune.
	msg := strings.Repeat("ü", 600)
	chunks := SplitMessage(msg)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if got := len([]rune(chunks[0])); got != 450 {
		t.Errorf("first chunk runes = %d, want 450", got)
	}
	if !strings.HasPrefix(chunks[1], "ü") {
		t.Error("second chunk starts mid-rune")
	}
}
