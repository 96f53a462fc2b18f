// Package spotify provides a thin Spotify Web API client scoped to the
// now-playing lookup and the presence poller that mirrors it into a flat file
// for the OBS overlay. Tokens are persisted via the TokenStore interface.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cbera/sharkbot/config"
)

const provider = "spotify"

// Endpoint is Spotify's OAuth2 provider endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, scope string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, scope string, err error)
}

type Client struct {
	cfg     *config.Config
	db      TokenStore
	oauth   *oauth2.Config
	BaseURL string // override for tests; defaults to api.spotify.com/v1
}

func New(cfg *config.Config, ts TokenStore) *Client {
	oauth := &oauth2.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  cfg.SpotifyRedirectURI,
		Scopes:       []string{"user-read-playback-state"},
	}
	return &Client{cfg: cfg, db: ts, oauth: oauth}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.spotify.com/v1"
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	scope := strings.Join(c.oauth.Scopes, " ")
	if err := c.db.UpsertOAuthToken(ctx, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
		return nil, fmt.Errorf("persist spotify token: %w", err)
	}
	return tok, nil
}

func (c *Client) refreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, _, err := c.db.GetOAuthToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if access == "" && refresh == "" {
		return nil, errors.New("no spotify token stored")
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: expiry}
	if time.Until(tok.Expiry) > 2*time.Minute {
		return tok, nil
	}
	newTok, err := c.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return tok, err
	}
	scope := strings.Join(c.oauth.Scopes, " ")
	if err := c.db.UpsertOAuthToken(ctx, provider, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, scope); err != nil {
		return newTok, fmt.Errorf("persist refreshed spotify token: %w", err)
	}
	return newTok, nil
}

// Track is the currently playing item, reduced to what the overlay shows.
type Track struct {
	Name    string
	Artists []string
}

// Line renders the overlay presence line for the track.
func (t Track) Line() string {
	return "♫ " + t.Name + " - " + strings.Join(t.Artists, ", ")
}

// NotPlayingLine is written when no track is active.
const NotPlayingLine = "No music playing"

// NowPlaying returns the active track, or (nil, nil) when nothing is playing.
func (c *Client) NowPlaying(ctx context.Context) (*Track, error) {
	tok, err := c.refreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/me/player", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify player request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	// 204 means no active device/session.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("spotify player: status %d: %s", resp.StatusCode, string(b))
	}
	var body struct {
		IsPlaying bool `json:"is_playing"`
		Item      *struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"item"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spotify player decode: %w", err)
	}
	if !body.IsPlaying || body.Item == nil {
		return nil, nil
	}
	tr := &Track{Name: body.Item.Name}
	for _, a := range body.Item.Artists {
		tr.Artists = append(tr.Artists, a.Name)
	}
	return tr, nil
}
