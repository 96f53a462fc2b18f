package oauth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbera/sharkbot/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "oauth_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(context.Background(), d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func seedToken(t *testing.T, d *sql.DB, provider, access, refresh string, expiry time.Time, scope string) {
	t.Helper()
	if err := db.UpsertOAuthToken(context.Background(), d, provider, access, refresh, expiry, scope); err != nil {
		t.Fatalf("seed token: %v", err)
	}
}

func TestRefreshOnceOutsideWindowSkips(t *testing.T) {
	d := openTestDB(t)
	seedToken(t, d, "test-provider", "access123", "refresh456", time.Now().Add(time.Hour), "scope1")

	refreshCalled := false
	fn := func(_ context.Context, _ string) (string, string, time.Time, string, error) {
		refreshCalled = true
		return "new-access", "new-refresh", time.Now().Add(2 * time.Hour), "scope1", nil
	}

	refreshOnce(context.Background(), d, "test-provider", 30*time.Minute, fn)
	if refreshCalled {
		t.Error("refresh should not run for a token expiring in 1h with a 30m window")
	}
}

func TestRefreshOnceWithinWindowRefreshes(t *testing.T) {
	d := openTestDB(t)
	seedToken(t, d, "test-provider", "old-access", "old-refresh", time.Now().Add(5*time.Minute), "scope1")

	newExpiry := time.Now().Add(2 * time.Hour)
	fn := func(_ context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if refreshToken != "old-refresh" {
			t.Errorf("refresh called with token %q, want old-refresh", refreshToken)
		}
		return "new-access", "new-refresh", newExpiry, "scope2", nil
	}

	refreshOnce(context.Background(), d, "test-provider", 15*time.Minute, fn)

	access, refresh, _, scope, err := db.GetOAuthToken(context.Background(), d, "test-provider")
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	if access != "new-access" {
		t.Errorf("access = %q, want new-access", access)
	}
	if refresh != "new-refresh" {
		t.Errorf("refresh = %q, want new-refresh", refresh)
	}
	if scope != "scope2" {
		t.Errorf("scope = %q, want scope2", scope)
	}
}

func TestRefreshOnceErrorLeavesRow(t *testing.T) {
	d := openTestDB(t)
	seedToken(t, d, "test-provider", "old-access", "old-refresh", time.Now().Add(5*time.Minute), "scope1")

	fn := func(_ context.Context, _ string) (string, string, time.Time, string, error) {
		return "", "", time.Time{}, "", errors.New("refresh failed")
	}

	refreshOnce(context.Background(), d, "test-provider", 15*time.Minute, fn)

	access, _, _, _, err := db.GetOAuthToken(context.Background(), d, "test-provider")
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	if access != "old-access" {
		t.Errorf("access = %q, want untouched old-access", access)
	}
}

func TestRefreshOnceNoRefreshTokenSkips(t *testing.T) {
	d := openTestDB(t)
	seedToken(t, d, "test-provider", "access123", "", time.Now().Add(5*time.Minute), "scope1")

	refreshCalled := false
	fn := func(_ context.Context, _ string) (string, string, time.Time, string, error) {
		refreshCalled = true
		return "new-access", "new-refresh", time.Now().Add(2 * time.Hour), "scope1", nil
	}

	refreshOnce(context.Background(), d, "test-provider", 15*time.Minute, fn)
	if refreshCalled {
		t.Error("refresh should not be called when refresh_token is empty")
	}
}

func TestRefreshOncePreservesRefreshTokenAndScope(t *testing.T) {
	d := openTestDB(t)
	seedToken(t, d, "test-provider", "old-access", "original-refresh", time.Now().Add(5*time.Minute), "scope1")

	fn := func(_ context.Context, _ string) (string, string, time.Time, string, error) {
		return "new-access", "", time.Now().Add(2 * time.Hour), "", nil
	}

	refreshOnce(context.Background(), d, "test-provider", 15*time.Minute, fn)

	_, refresh, _, scope, err := db.GetOAuthToken(context.Background(), d, "test-provider")
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	if refresh != "original-refresh" {
		t.Errorf("refresh = %q, want preserved original-refresh", refresh)
	}
	if scope != "scope1" {
		t.Errorf("scope = %q, want preserved scope1", scope)
	}
}

func TestStartRefresherCancellation(t *testing.T) {
	d := openTestDB(t)

	fn := func(_ context.Context, _ string) (string, string, time.Time, string, error) {
		return "access", "refresh", time.Now().Add(time.Hour), "scope", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	StartRefresher(ctx, d, "test-provider", time.Second, 15*time.Minute, fn)
	cancel()

	// Give the goroutine a moment to observe cancellation; the test passing
	// without a leak detector complaint is the assertion.
	time.Sleep(50 * time.Millisecond)
}
