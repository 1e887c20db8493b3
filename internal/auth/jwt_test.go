package auth

import (
	"testing"
	"time"

	"crm-relay/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.OpsConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "crm-relay",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return m
}

func TestManager_IssueAndVerify(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, "ops", "admin")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if claims.Operator != "ops" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestManager_RejectsExpiredAccessToken(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, "ops", "admin")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestManager_RejectsTokenTypeMismatch(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, "ops", "admin")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// A refresh token must not pass an access-token check; it also carries no role.
	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, now.Add(time.Minute)); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestNewManager_RequiresSecret(t *testing.T) {
	if _, err := NewManager(config.OpsConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
