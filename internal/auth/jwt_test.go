package auth

import (
	"testing"
	"time"

	"lotto-server/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func setJWTTestConfig(t *testing.T) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWT.Secret = "unit-test-secret"
	cfg.Auth.JWT.AccessTokenTTL = 900
	cfg.Auth.JWT.RefreshTokenTTL = 86400
	cfg.Auth.JWT.Issuer = "lotto-server"
	config.Set(cfg)
}

func parseTestToken(t *testing.T, tokenString string) *JWTClaims {
	t.Helper()
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("unit-test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		t.Fatalf("token invalid after parse")
	}
	return claims
}

func TestGenerateAccessToken(t *testing.T) {
	setJWTTestConfig(t)

	tok, err := GenerateAccessToken(42, "player_42", 3, "app_demo")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims := parseTestToken(t, tok)
	if claims.UserID != 42 {
		t.Fatalf("user_id = %d, want 42", claims.UserID)
	}
	if claims.Username != "player_42" {
		t.Fatalf("username = %q, want player_42", claims.Username)
	}
	if claims.PlatformID != 3 {
		t.Fatalf("platform_id = %d, want 3", claims.PlatformID)
	}
	if claims.AppKey != "app_demo" {
		t.Fatalf("app_key = %q, want app_demo", claims.AppKey)
	}
	if claims.TokenType != "access" {
		t.Fatalf("token_type = %q, want access", claims.TokenType)
	}
	if claims.Issuer != "lotto-server" {
		t.Fatalf("issuer = %q, want lotto-server", claims.Issuer)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("exp/iat missing")
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 900*time.Second {
		t.Fatalf("access ttl = %v, want 900s", ttl)
	}
}

func TestGenerateRefreshTokenTTL(t *testing.T) {
	setJWTTestConfig(t)

	tok, err := GenerateRefreshToken(7, "player_7", 1, "app_demo")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims := parseTestToken(t, tok)
	if claims.TokenType != "refresh" {
		t.Fatalf("token_type = %q, want refresh", claims.TokenType)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 86400*time.Second {
		t.Fatalf("refresh ttl = %v, want 86400s", ttl)
	}
}

func TestGenerateTokenWithoutConfig(t *testing.T) {
	config.Set(nil)
	if _, err := GenerateAccessToken(1, "x", 1, "k"); err == nil {
		t.Fatalf("expected error when config not loaded")
	}
}
