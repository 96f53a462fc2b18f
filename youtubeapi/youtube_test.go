package youtubeapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cbera/sharkbot/config"
)

// mockTokenStore implements TokenStore for testing
type mockTokenStore struct {
	tokens map[string]tokenData
}

type tokenData struct {
	access  string
	refresh string
	expiry  time.Time
	scope   string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]tokenData)}
}

func (m *mockTokenStore) UpsertOAuthToken(_ context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, scope string) error {
	m.tokens[provider] = tokenData{access: accessToken, refresh: refreshToken, expiry: expiry, scope: scope}
	return nil
}

func (m *mockTokenStore) GetOAuthToken(_ context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, scope string, err error) {
	if data, ok := m.tokens[provider]; ok {
		return data.access, data.refresh, data.expiry, data.scope, nil
	}
	return "", "", time.Time{}, "", nil
}

func testConfig() *config.Config {
	return &config.Config{
		YTClientID:     "test-client-id",
		YTClientSecret: "test-secret",
		YTRedirectURI:  "http://localhost/callback",
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	store := newMockTokenStore()

	svc := New(cfg, store)
	if svc == nil {
		t.Fatal("New() returned nil")
	}
	if svc.cfg != cfg {
		t.Error("service config not set correctly")
	}
	if svc.db != store {
		t.Error("service token store not set correctly")
	}
	if svc.oauth == nil {
		t.Fatal("oauth config is nil")
	}
	if len(svc.oauth.Scopes) != 1 || !strings.Contains(svc.oauth.Scopes[0], "youtube.force-ssl") {
		t.Errorf("scopes = %v, want force-ssl live chat scope", svc.oauth.Scopes)
	}
}

func TestAuthCodeURL(t *testing.T) {
	svc := New(testConfig(), newMockTokenStore())

	url := svc.AuthCodeURL("test-state")
	if url == "" {
		t.Error("AuthCodeURL returned empty string")
	}
	if !strings.Contains(url, "client_id=test-client-id") {
		t.Errorf("URL missing client_id: %s", url)
	}
	if !strings.Contains(url, "state=test-state") {
		t.Errorf("URL missing state: %s", url)
	}
	if !strings.Contains(url, "access_type=offline") {
		t.Errorf("URL missing access_type=offline: %s", url)
	}
}

func TestRefreshIfNeeded_NoToken(t *testing.T) {
	svc := New(testConfig(), newMockTokenStore())

	_, err := svc.refreshIfNeeded(context.Background())
	if err == nil {
		t.Error("refreshIfNeeded() should return error when no token stored")
	}
	if !strings.Contains(err.Error(), "no youtube token") {
		t.Errorf("error = %v, want error about no token", err)
	}
}

func TestRefreshIfNeeded_ValidToken(t *testing.T) {
	store := newMockTokenStore()
	svc := New(testConfig(), store)

	futureExpiry := time.Now().Add(10 * time.Minute)
	if err := store.UpsertOAuthToken(context.Background(), "youtube", "valid-token", "refresh-token", futureExpiry, ""); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	token, err := svc.refreshIfNeeded(context.Background())
	if err != nil {
		t.Errorf("refreshIfNeeded() error = %v", err)
	}
	if token.AccessToken != "valid-token" {
		t.Errorf("token.AccessToken = %s, want valid-token", token.AccessToken)
	}
}

func TestResolveLiveChatID_NilService(t *testing.T) {
	if _, err := ResolveLiveChatID(nil, "vid123"); err == nil {
		t.Error("ResolveLiveChatID() with nil service should return error")
	}
}

func TestResolveLiveChatID_EmptyVideoID(t *testing.T) {
	_, err := ResolveLiveChatID(nil, "")
	if err == nil {
		t.Error("expected error for empty video id")
	}
}

func TestListMessages_NilService(t *testing.T) {
	if _, err := ListMessages(nil, "chat-id", ""); err == nil {
		t.Error("ListMessages() with nil service should return error")
	}
}

func TestInsertMessage_NilService(t *testing.T) {
	if err := InsertMessage(nil, "chat-id", "hello"); err == nil {
		t.Error("InsertMessage() with nil service should return error")
	}
}
