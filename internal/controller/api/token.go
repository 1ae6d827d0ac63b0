package api

import (
	"strings"

	"lotto-server/internal/auth"
	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/config"
	infmysql "lotto-server/internal/infra/mysql"
	"lotto-server/internal/model"

	beego "github.com/beego/beego/v2/server/web"
)

// AuthController 玩家令牌签发与撤销。
// 平台签名换取玩家 JWT：平台过滤器先验明来路，这里补建玩家档案并下发令牌对
type AuthController struct{ beego.Controller }

// Token 签发令牌：POST /api/auth/token（平台签名认证）
func (c *AuthController) Token() {
	traceID := helper.GetTraceID(c.Ctx)

	var platformID int8
	platformUserID := ""
	platformUserName := ""
	appKey := ""
	if v := c.Ctx.Input.GetData("platform_id"); v != nil {
		if pid, ok := v.(int8); ok {
			platformID = pid
		}
	}
	if v := c.Ctx.Input.GetData("platform_user_id"); v != nil {
		if s, ok := v.(string); ok {
			platformUserID = s
		}
	}
	if v := c.Ctx.Input.GetData("platform_user_name"); v != nil {
		if s, ok := v.(string); ok {
			platformUserName = s
		}
	}
	if v := c.Ctx.Input.GetData("platform"); v != nil {
		if p, ok := v.(*auth.Platform); ok {
			appKey = p.AppKey
		}
	}
	if appKey == "" {
		if cfg := config.Get(); cfg != nil && cfg.Auth.DemoMode {
			appKey = cfg.Auth.DemoPlatform.AppKey
		}
	}
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	// 首次换取令牌时顺带落地玩家档案，后续购票/领奖直接按平台身份定位
	player, err := model.GetOrCreatePlayer(c.Ctx.Request.Context(), infmysql.SQLX(),
		platformID, platformUserID, platformUserName)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	accessToken, err := auth.GenerateAccessToken(player.ID, player.Username, platformID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(player.ID, player.Username, platformID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	cfg := config.Get()
	response.Success(&c.Controller, map[string]any{
		"access_token":     accessToken,
		"refresh_token":    refreshToken,
		"token_type":       "Bearer",
		"expires_in":       cfg.Auth.JWT.AccessTokenTTL,
		"player_id":        player.ID,
		"platform_user_id": platformUserID,
	}, traceID)
}

// Logout 撤销令牌：POST /api/auth/logout（玩家令牌认证）
// 撤销写 Redis 黑名单，令牌自然过期前不再可用
func (c *AuthController) Logout() {
	traceID := helper.GetTraceID(c.Ctx)

	claims, ok := c.Ctx.Input.GetData("jwt_claims").(*auth.JWTClaims)
	if !ok || claims == nil || claims.ExpiresAt == nil {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	authHeader := strings.TrimSpace(c.Ctx.Input.Header("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		return
	}

	if err := auth.RevokeToken(c.Ctx.Request.Context(), parts[1], claims.ExpiresAt.Time); err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]any{"revoked": true}, traceID)
}
