package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := Migrate(context.Background(), d); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func TestMigrateIdempotent(t *testing.T) {
	d := openTestDB(t)
	// Running the full schema pass again must not error.
	if err := Migrate(context.Background(), d); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	for _, table := range []string{"messages", "links", "oauth_tokens"} {
		var name string
		err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	// Missing provider returns zero values, not an error.
	access, refresh, expiry, scope, err := GetOAuthToken(ctx, d, "spotify")
	if err != nil {
		t.Fatalf("GetOAuthToken(missing): %v", err)
	}
	if access != "" || refresh != "" || !expiry.IsZero() || scope != "" {
		t.Errorf("expected zero values for missing provider, got %q %q %v %q", access, refresh, expiry, scope)
	}

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := UpsertOAuthToken(ctx, d, "spotify", "access-1", "refresh-1", exp, "user-read-playback-state"); err != nil {
		t.Fatalf("UpsertOAuthToken: %v", err)
	}
	access, refresh, expiry, scope, err = GetOAuthToken(ctx, d, "spotify")
	if err != nil {
		t.Fatalf("GetOAuthToken: %v", err)
	}
	if access != "access-1" || refresh != "refresh-1" || scope != "user-read-playback-state" {
		t.Errorf("got (%q, %q, %q)", access, refresh, scope)
	}
	if !expiry.Equal(exp) {
		t.Errorf("expiry = %v, want %v", expiry, exp)
	}

	// Upsert replaces the existing row.
	if err := UpsertOAuthToken(ctx, d, "spotify", "access-2", "refresh-2", exp, ""); err != nil {
		t.Fatalf("UpsertOAuthToken(update): %v", err)
	}
	access, refresh, _, _, err = GetOAuthToken(ctx, d, "spotify")
	if err != nil {
		t.Fatalf("GetOAuthToken: %v", err)
	}
	if access != "access-2" || refresh != "refresh-2" {
		t.Errorf("after update got (%q, %q)", access, refresh)
	}

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM oauth_tokens WHERE provider='spotify'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("provider rows = %d, want 1", count)
	}
}

func TestTokenStoreAdapter(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	ts := &TokenStoreAdapter{DB: d}
	exp := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
	if err := ts.UpsertOAuthToken(ctx, "youtube", "a", "r", exp, "scope"); err != nil {
		t.Fatalf("adapter upsert: %v", err)
	}
	access, refresh, _, scope, err := ts.GetOAuthToken(ctx, "youtube")
	if err != nil {
		t.Fatalf("adapter get: %v", err)
	}
	if access != "a" || refresh != "r" || scope != "scope" {
		t.Errorf("adapter got (%q, %q, %q)", access, refresh, scope)
	}
}
