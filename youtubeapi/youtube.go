// Package youtubeapi wraps Google OAuth2 client config and the YouTube Data API
// for reading and posting live chat messages on the active broadcast. Tokens are
// persisted via the provided TokenStore interface so they survive restarts and
// refresh transparently.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/cbera/sharkbot/config"
)

const provider = "youtube"

type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, scope string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, scope string, err error)
}

type Service struct {
	cfg   *config.Config
	db    TokenStore
	oauth *oauth2.Config
}

func New(cfg *config.Config, ts TokenStore) *Service {
	oauth := &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.force-ssl"},
	}
	return &Service{cfg: cfg, db: ts, oauth: oauth}
}

func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	scope := strings.Join(s.oauth.Scopes, " ")
	if err := s.db.UpsertOAuthToken(ctx, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
		return nil, fmt.Errorf("persist youtube token: %w", err)
	}
	return tok, nil
}

func (s *Service) refreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, _, err := s.db.GetOAuthToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if access == "" && refresh == "" {
		return nil, errors.New("no youtube token stored")
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: expiry}
	if time.Until(tok.Expiry) > 2*time.Minute {
		return tok, nil
	}
	newTok, err := s.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return tok, err
	}
	scope := strings.Join(s.oauth.Scopes, " ")
	if err := s.db.UpsertOAuthToken(ctx, provider, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, scope); err != nil {
		return newTok, fmt.Errorf("persist refreshed youtube token: %w", err)
	}
	return newTok, nil
}

func (s *Service) Client(ctx context.Context) (*yt.Service, error) {
	tok, err := s.refreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	client := s.oauth.Client(ctx, tok)
	return yt.New(client)
}

// ResolveLiveChatID looks up the active live chat for a video. Returns an
// error when the video has no live chat attached (not live, or chat disabled).
func ResolveLiveChatID(svc *yt.Service, videoID string) (string, error) {
	if svc == nil {
		return "", fmt.Errorf("nil youtube service")
	}
	if videoID == "" {
		return "", fmt.Errorf("empty video id")
	}
	res, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Do()
	if err != nil {
		return "", fmt.Errorf("youtube videos.list: %w", err)
	}
	if len(res.Items) == 0 || res.Items[0].LiveStreamingDetails == nil {
		return "", fmt.Errorf("video %s has no live streaming details", videoID)
	}
	id := res.Items[0].LiveStreamingDetails.ActiveLiveChatId
	if id == "" {
		return "", fmt.Errorf("video %s has no active live chat", videoID)
	}
	return id, nil
}

// ChatMessage is one live chat message normalized for the relay.
type ChatMessage struct {
	AuthorID    string
	AuthorName  string
	Text        string
	PublishedAt time.Time
}

// ChatPage is one page of live chat messages plus the cursor and server-advised
// poll delay for the next request.
type ChatPage struct {
	Messages      []ChatMessage
	NextPageToken string
	PollInterval  time.Duration
}

// ListMessages fetches one page of live chat messages. Pass an empty pageToken
// on the first call; thereafter pass the NextPageToken from the previous page.
func ListMessages(svc *yt.Service, liveChatID, pageToken string) (*ChatPage, error) {
	if svc == nil {
		return nil, fmt.Errorf("nil youtube service")
	}
	call := svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"})
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube liveChatMessages.list: %w", err)
	}
	page := &ChatPage{
		NextPageToken: res.NextPageToken,
		PollInterval:  time.Duration(res.PollingIntervalMillis) * time.Millisecond,
	}
	for _, item := range res.Items {
		if item.Snippet == nil || item.AuthorDetails == nil {
			continue
		}
		msg := ChatMessage{
			AuthorID:   item.AuthorDetails.ChannelId,
			AuthorName: item.AuthorDetails.DisplayName,
			Text:       item.Snippet.DisplayMessage,
		}
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			msg.PublishedAt = t
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

// InsertMessage posts text into the live chat as the authorized account.
func InsertMessage(svc *yt.Service, liveChatID, text string) error {
	if svc == nil {
		return fmt.Errorf("nil youtube service")
	}
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: liveChatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	if _, err := svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Do(); err != nil {
		return fmt.Errorf("youtube liveChatMessages.insert: %w", err)
	}
	return nil
}
