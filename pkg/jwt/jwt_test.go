package jwt_test

import (
	"testing"
	"time"

	"github.com/nimbuschat/nimbus/pkg/jwt"
)

func newTestManager(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager("test-secret", time.Minute, time.Hour, "nimbus-test")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := jwt.NewManager("", time.Minute, time.Hour, "nimbus-test"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestManager(t)

	access, refresh, accessExp, refreshExp, err := m.GenerateTokenPair("u1", "u1@example.com", "alice")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if accessExp >= refreshExp {
		t.Errorf("access token should expire before refresh token (%d >= %d)", accessExp, refreshExp)
	}

	claims, err := m.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken(access) failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" || claims.Username != "alice" {
		t.Errorf("unexpected access claims: %+v", claims)
	}
	if claims.Type != "access" {
		t.Errorf("expected type access, got %s", claims.Type)
	}

	claims, err = m.ValidateToken(refresh)
	if err != nil {
		t.Fatalf("ValidateToken(refresh) failed: %v", err)
	}
	if claims.Type != "refresh" {
		t.Errorf("expected type refresh, got %s", claims.Type)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}

	// A token signed with a different secret must not validate.
	other, _ := jwt.NewManager("other-secret", time.Minute, time.Hour, "nimbus-test")
	access, _, _, _, err := other.GenerateTokenPair("u1", "", "")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if _, err := m.ValidateToken(access); err == nil {
		t.Error("expected error for token signed with wrong secret")
	}
}

func TestExpiredToken(t *testing.T) {
	m, err := jwt.NewManager("test-secret", -time.Minute, time.Hour, "nimbus-test")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	access, _, _, _, err := m.GenerateTokenPair("u1", "", "")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if _, err := m.ValidateToken(access); err != jwt.ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRevocation(t *testing.T) {
	m := newTestManager(t)

	access, _, _, _, err := m.GenerateTokenPair("u1", "", "")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	m.RevokeUserTokens("u1")

	if _, err := m.ValidateToken(access); err != jwt.ErrRevokedToken {
		t.Errorf("expected ErrRevokedToken, got %v", err)
	}

	// Logout immediately followed by login: the new pair must validate
	// even when issue and revocation share the same wall-clock second.
	access, _, _, _, err = m.GenerateTokenPair("u1", "", "")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if _, err := m.ValidateToken(access); err != nil {
		t.Errorf("token issued after revocation should validate, got %v", err)
	}

	// Other users are unaffected.
	access, _, _, _, _ = m.GenerateTokenPair("u2", "", "")
	if _, err := m.ValidateToken(access); err != nil {
		t.Errorf("revocation leaked to another user: %v", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	m := newTestManager(t)

	_, refresh, _, _, err := m.GenerateTokenPair("u1", "u1@example.com", "alice")
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	access, _, _, _, err := m.RefreshTokens(refresh)
	if err != nil {
		t.Fatalf("RefreshTokens failed: %v", err)
	}
	claims, err := m.ValidateToken(access)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("expected user u1, got %s", claims.UserID)
	}

	// An access token is not accepted in place of a refresh token.
	if _, _, _, _, err := m.RefreshTokens(access); err == nil {
		t.Error("expected error when refreshing with an access token")
	}
}
