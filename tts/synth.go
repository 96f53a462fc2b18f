package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	translateTTSURL = "https://translate.google.com/translate_tts"

	// The endpoint rejects long q values; split text at whitespace below this
	// and concatenate the returned MP3 segments (frames concatenate cleanly).
	maxChunkLen = 180
)

// GoogleSynthesizer renders speech through the Google Translate TTS endpoint.
type GoogleSynthesizer struct {
	Lang       string
	HTTPClient *http.Client
}

func (g *GoogleSynthesizer) http() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

func (g *GoogleSynthesizer) lang() string {
	if g.Lang != "" {
		return g.Lang
	}
	return "en"
}

// Synthesize fetches MP3 audio for text, one request per chunk.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}
	var out []byte
	for _, chunk := range splitChunks(text, maxChunkLen) {
		audio, err := g.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, audio...)
	}
	return out, nil
}

func (g *GoogleSynthesizer) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.lang())
	q.Set("q", chunk)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, translateTTSURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request: status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}
	return audio, nil
}

// splitChunks breaks text at whitespace into pieces of at most max runes,
// hard-splitting only when a single token exceeds max on its own.
func splitChunks(text string, max int) []string {
	words := strings.Fields(text)
	var chunks []string
	var cur strings.Builder
	for _, w := range words {
		for len(w) > max {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, w[:max])
			w = w[max:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(w) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
