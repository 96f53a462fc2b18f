package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cbera/sharkbot/chatlog"
	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/db"
	"github.com/cbera/sharkbot/telemetry"
	"github.com/cbera/sharkbot/tts"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	os.Exit(m.Run())
}

type nopSynth struct{}

func (nopSynth) Synthesize(context.Context, string) ([]byte, error) {
	return []byte("mp3"), nil
}

type fixture struct {
	handler http.Handler
	db      *sql.DB
	log     *chatlog.Log
	ttsPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "server_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(context.Background(), d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ttsPath := filepath.Join(t.TempDir(), "tts.mp3")
	cfg := &config.Config{StreamerName: "cbera", HTTPAddr: ":0"}
	serializer := tts.NewSerializer(nopSynth{}, ttsPath, 4)
	return &fixture{
		handler: NewMux(cfg, d, serializer, nil),
		db:      d,
		log:     chatlog.New(d),
		ttsPath: ttsPath,
	}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMessagesEmptyList(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/messages")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msgs []chatlog.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rec.Body.String())
	}
	if len(msgs) != 0 {
		t.Errorf("messages = %v, want empty array", msgs)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want literal []", rec.Body.String())
	}
}

func TestMessagesReturnsRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, m := range []struct{ user, text string }{
		{"a", "first"}, {"b", "second"},
	} {
		if err := f.log.Append(ctx, m.user, m.text, "twitch"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	rec := f.get(t, "/api/messages?max_age_hours=2&limit=10")
	var msgs []chatlog.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Errorf("order = %q, %q, want oldest first", msgs[0].Text, msgs[1].Text)
	}
	if msgs[0].Platform != "twitch" || msgs[0].User != "a" {
		t.Errorf("fields = %+v", msgs[0])
	}
}

func TestMessagesStoreFailureRendersEmpty(t *testing.T) {
	f := newFixture(t)
	_ = f.db.Close()
	rec := f.get(t, "/api/messages")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty list", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestTTSMetaLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/tts")
	var meta map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta["exists"] != false {
		t.Errorf("exists = %v, want false", meta["exists"])
	}
	if meta["timestamp"] != nil {
		t.Errorf("timestamp = %v, want null", meta["timestamp"])
	}

	if err := os.WriteFile(f.ttsPath, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write tts file: %v", err)
	}
	rec = f.get(t, "/api/tts")
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta["exists"] != true {
		t.Errorf("exists = %v, want true", meta["exists"])
	}
	if _, err := time.Parse(time.RFC3339, meta["timestamp"].(string)); err != nil {
		t.Errorf("timestamp %v not RFC3339: %v", meta["timestamp"], err)
	}
	if meta["size"].(float64) != float64(len("mp3-bytes")) {
		t.Errorf("size = %v", meta["size"])
	}
	if meta["url"] != "/api/tts/audio" {
		t.Errorf("url = %v", meta["url"])
	}
}

func TestTTSAudioServesFile(t *testing.T) {
	f := newFixture(t)

	if rec := f.get(t, "/api/tts/audio"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any audio", rec.Code)
	}

	if err := os.WriteFile(f.ttsPath, []byte("AUDIO"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, path := range []string{"/api/tts/audio", "/tts.mp3"} {
		rec := f.get(t, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
			t.Errorf("%s content-type = %q", path, ct)
		}
		if rec.Body.String() != "AUDIO" {
			t.Errorf("%s body = %q", path, rec.Body.String())
		}
	}
}

func TestLinksRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/links")
	if strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Errorf("empty store body = %q, want {}", rec.Body.String())
	}

	post := httptest.NewRequest(http.MethodPost, "/api/links",
		strings.NewReader(`{"pob":"https://pobb.in/abc","socials":"https://linktr.ee/cbera"}`))
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, post)
	if rec.Code != http.StatusOK {
		t.Fatalf("post status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.get(t, "/api/links")
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["pob"] != "https://pobb.in/abc" || got["socials"] != "https://linktr.ee/cbera" {
		t.Errorf("links = %v", got)
	}
}

func TestLinksRejectsInvalidJSON(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStreamer(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/streamer")
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["streamer_name"] != "cbera" {
		t.Errorf("streamer_name = %q", got["streamer_name"])
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	if rec := f.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	_ = f.db.Close()
	if rec := f.get(t, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want 503", rec.Code)
	}
}

func TestEmotesUnconfigured(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/emotes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/messages", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing permissive CORS header")
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/streamer", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("correlation id = %q, want echoed corr-123", got)
	}
	rec = f.get(t, "/api/streamer")
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("correlation id not generated")
	}
}
