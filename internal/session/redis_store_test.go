package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })
	return sessions, mr
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "::not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	sessions, _ := newTestStore(t)
	ctx := context.Background()

	err := sessions.SaveRefreshSession(ctx, "hash-1", TokenData{ReaderID: "r1", AuthID: "auth|1"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	data, err := sessions.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession() error = %v", err)
	}
	if data.ReaderID != "r1" || data.AuthID != "auth|1" {
		t.Fatalf("unexpected session %+v", data)
	}
	if data.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be stamped")
	}
}

func TestRefreshSessionExpires(t *testing.T) {
	sessions, mr := newTestStore(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "short", TokenData{ReaderID: "r1"}, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := sessions.LookupRefreshSession(ctx, "short"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPastExpiryFallsBackToDefaultTTL(t *testing.T) {
	sessions, mr := newTestStore(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "stale", TokenData{ReaderID: "r1"}, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	if ttl := mr.TTL("ink:refresh:stale"); ttl != defaultSessionTTL {
		t.Fatalf("expected default ttl, got %v", ttl)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	sessions, _ := newTestStore(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "gone", TokenData{ReaderID: "r1"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	if err := sessions.RevokeRefreshSession(ctx, "gone"); err != nil {
		t.Fatalf("RevokeRefreshSession() error = %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
	if err := sessions.RevokeRefreshSession(ctx, "never-existed"); err != nil {
		t.Fatalf("revoking an unknown session should succeed, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	sessions, _ := newTestStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	_ = sessions.SaveRefreshSession(ctx, "a", TokenData{ReaderID: "r1"}, exp)
	_ = sessions.SaveRefreshSession(ctx, "b", TokenData{ReaderID: "r2"}, exp)
	_ = sessions.RevokeRefreshSession(ctx, "a")

	data, err := sessions.LookupRefreshSession(ctx, "b")
	if err != nil || data.ReaderID != "r2" {
		t.Fatalf("expected r2 session to survive, got %+v, %v", data, err)
	}
}

func TestRevokedAccessTokens(t *testing.T) {
	sessions, mr := newTestStore(t)
	ctx := context.Background()

	if err := sessions.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeAccessToken() error = %v", err)
	}
	revoked, err := sessions.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v, %v", revoked, err)
	}
	if revoked, _ := sessions.IsAccessTokenRevoked(ctx, "jti-2"); revoked {
		t.Fatal("jti-2 should not be revoked")
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := sessions.IsAccessTokenRevoked(ctx, "jti-1"); revoked {
		t.Fatal("denylist entry should expire with the token")
	}

	if err := sessions.RevokeAccessToken(ctx, "expired", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("revoking an expired token should be a no-op, got %v", err)
	}
	if mr.Exists("ink:revoked:expired") {
		t.Fatal("expired token should not be stored")
	}
}
