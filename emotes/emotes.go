// Package emotes fetches the streamer's 7tv emote set so the overlay can
// render emote names in the chat feed. The set is cached; lookups past the
// cache window refetch lazily.
package emotes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const cacheTTL = 10 * time.Minute

// Client looks up a 7tv user's active emote set.
type Client struct {
	UserID     string
	HTTPClient *http.Client
	BaseURL    string // override for tests; defaults to 7tv.io/v3

	mu        sync.Mutex
	cached    []string
	fetchedAt time.Time
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://7tv.io/v3"
}

// Names returns the emote names in the user's active set, cached for a few
// minutes. A fetch failure returns the stale cache when one exists.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	if c.UserID == "" {
		return nil, fmt.Errorf("no 7tv user id configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && time.Since(c.fetchedAt) < cacheTTL {
		return c.cached, nil
	}
	names, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			slog.Debug("emote refetch failed, serving stale set", slog.Any("err", err))
			return c.cached, nil
		}
		return nil, err
	}
	c.cached = names
	c.fetchedAt = time.Now()
	return names, nil
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/users/"+c.UserID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("7tv request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("7tv request: status %d", resp.StatusCode)
	}
	var body struct {
		EmoteSet struct {
			Emotes []struct {
				Name string `json:"name"`
			} `json:"emotes"`
		} `json:"emote_set"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("7tv decode: %w", err)
	}
	names := make([]string, 0, len(body.EmoteSet.Emotes))
	for _, e := range body.EmoteSet.Emotes {
		names = append(names, e.Name)
	}
	return names, nil
}
