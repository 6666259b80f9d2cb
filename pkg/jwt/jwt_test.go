package jwt

import (
	"testing"
	"time"

	"clinic-scheduling/config"

	"github.com/google/uuid"
)

func newTestService(expiry time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  expiry,
		RefreshExpiry: 2 * expiry,
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestService(time.Minute)
	userID := uuid.New()

	token, tokenID, err := svc.GenerateAccessToken(userID, "ana@clinic.test", 3)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.RoleID != 3 {
		t.Errorf("RoleID = %d, want 3", claims.RoleID)
	}
	if claims.TokenType != AccessToken {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, AccessToken)
	}
	if claims.TokenID != tokenID {
		t.Errorf("TokenID = %q, want %q", claims.TokenID, tokenID)
	}
}

func TestRefreshTokenType(t *testing.T) {
	svc := newTestService(time.Minute)

	token, _, err := svc.GenerateRefreshToken(uuid.New(), "ana@clinic.test", 2)
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.TokenType != RefreshToken {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, RefreshToken)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := newTestService(time.Minute).GenerateAccessToken(uuid.New(), "a@b.c", 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	other := NewJWTService(config.JWTConfig{Secret: "other-secret", AccessExpiry: time.Minute})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, _, err := svc.GenerateAccessToken(uuid.New(), "a@b.c", 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}
