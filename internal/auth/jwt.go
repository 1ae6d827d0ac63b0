package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/config"
	infrds "lotto-server/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTClaims 玩家令牌的 Claims 结构
type JWTClaims struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	PlatformID int8   `json:"platform_id"`
	AppKey     string `json:"app_key"`
	TokenType  string `json:"token_type"` // access / refresh
	jwt.RegisteredClaims
}

// GenerateAccessToken 生成访问令牌
func GenerateAccessToken(userID int64, username string, platformID int8, appKey string) (string, error) {
	return generateToken(userID, username, platformID, appKey, "access")
}

// GenerateRefreshToken 生成刷新令牌
func GenerateRefreshToken(userID int64, username string, platformID int8, appKey string) (string, error) {
	return generateToken(userID, username, platformID, appKey, "refresh")
}

func generateToken(userID int64, username string, platformID int8, appKey, tokenType string) (string, error) {
	cfg := config.Get()
	if cfg == nil {
		return "", fmt.Errorf("config not loaded")
	}

	ttlSec := cfg.Auth.JWT.AccessTokenTTL
	if tokenType == "refresh" {
		ttlSec = cfg.Auth.JWT.RefreshTokenTTL
	}

	now := time.Now()
	claims := JWTClaims{
		UserID:     userID,
		Username:   username,
		PlatformID: platformID,
		AppKey:     appKey,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSec) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Auth.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Auth.JWT.Secret))
}

// VerifyJWTToken 从 Authorization 头解析并验证玩家令牌。
// 签名算法固定 HMAC，黑名单命中视为已撤销
func VerifyJWTToken(ctx *beegocontext.Context) (*JWTClaims, error) {
	authHeader := strings.TrimSpace(ctx.Input.Header("Authorization"))
	if authHeader == "" {
		return nil, ErrMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrInvalidTokenFormat
	}
	tokenString := parts[1]

	cfg := config.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(cfg.Auth.JWT.Secret), nil
	})
	if err != nil {
		logger.Warn("jwt parse failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
		logger.Warn("token is blacklisted",
			zap.Int64("user_id", claims.UserID),
			zap.String("token_type", claims.TokenType))
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RevokeToken 撤销令牌：写入 Redis 黑名单，TTL 对齐令牌剩余有效期。
// Redis 不可用时降级放行，撤销只在断连窗口内失效
func RevokeToken(ctx context.Context, tokenString string, expiresAt time.Time) error {
	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, cannot revoke token")
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// 已过期的令牌无需入黑名单
		return nil
	}

	key := infrds.TokenBlacklistKey(tokenString)
	if err := rdb.SetEx(ctx, key, "1", ttl).Err(); err != nil {
		logger.Warn("failed to add token to blacklist", zap.Error(err))
		return err
	}

	logger.Info("token revoked", zap.Duration("ttl", ttl))
	return nil
}

// IsTokenBlacklisted 查询令牌是否已撤销，Redis 异常时降级为未撤销
func IsTokenBlacklisted(ctx context.Context, tokenString string) bool {
	rdb := infrds.Client()
	if rdb == nil {
		return false
	}

	exists, err := rdb.Exists(ctx, infrds.TokenBlacklistKey(tokenString)).Result()
	if err != nil {
		logger.Warn("failed to check token blacklist", zap.Error(err))
		return false
	}

	return exists > 0
}
