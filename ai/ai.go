// Package ai wraps chat completions behind a Session that owns the
// conversation history: a pinned persona turn plus a sliding window of the
// most recent user/assistant turns.
package ai

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultPersona keeps replies short enough to post to chat and speak aloud.
const DefaultPersona = "You are Sharko, a sarcastic shark co-host on a livestream. Reply as a short paragraph of less than 50 words."

// Completer is the slice of the OpenAI client the session uses; tests stub it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Session holds one conversation. The persona turn is pinned at index 0 and
// survives trimming; everything after it is a window of at most maxTurns
// entries. Safe for use from multiple ingestion goroutines.
type Session struct {
	mu       sync.Mutex
	client   Completer
	model    string
	maxTurns int
	history  []openai.ChatCompletionMessage
}

// NewSession builds a session. persona may be empty, in which case
// DefaultPersona is pinned. maxTurns <= 0 falls back to 20.
func NewSession(client Completer, model, persona string, maxTurns int) *Session {
	if persona == "" {
		persona = DefaultPersona
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Session{
		client:   client,
		model:    model,
		maxTurns: maxTurns,
		history: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: persona},
		},
	}
}

// Reply appends prompt as a user turn, calls the completion API with the full
// retained history, records the assistant reply, and returns its text. On API
// failure the user turn is kept, no assistant turn is recorded, and the error
// is returned; callers decide what (if anything) viewers see.
func (s *Session) Reply(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trimLocked()
	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.history,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	reply := resp.Choices[0].Message.Content
	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply, nil
}

// trimLocked drops the oldest non-persona turns so at most maxTurns remain
// before the next prompt is appended. Caller holds mu.
func (s *Session) trimLocked() {
	if len(s.history) <= 1 {
		return
	}
	turns := s.history[1:]
	if len(turns) >= s.maxTurns {
		turns = turns[len(turns)-s.maxTurns+1:]
	}
	s.history = append(s.history[:1], turns...)
}

// Len reports the retained history length including the persona turn.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// NewClient builds the real OpenAI client for main.
func NewClient(apiKey string) *openai.Client {
	return openai.NewClient(apiKey)
}
