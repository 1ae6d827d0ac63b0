package middleware

import (
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/auth"
	"lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// UserAuthFilter 玩家认证（JWT）。
// 购票、领奖等玩家接口经此提取 user_id，并校验令牌与平台签名的一致性
func UserAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)

	returnError := func(httpCode int, bizCode int, message string) {
		ctx.Output.SetStatus(httpCode)
		ctx.Output.JSON(response.APIResponse{
			Code:      bizCode,
			Message:   message,
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		switch err {
		case auth.ErrMissingToken:
			returnError(401, response.CodeUnauthorized, "缺少认证Token")
		case auth.ErrInvalidTokenFormat:
			returnError(401, response.CodeInvalidToken, "Token格式无效")
		case auth.ErrInvalidToken:
			returnError(401, response.CodeInvalidToken, "Token无效")
		case auth.ErrTokenExpired:
			returnError(401, response.CodeTokenExpired, "Token已过期")
		case auth.ErrTokenRevoked:
			returnError(401, response.CodeTokenRevoked, "Token已撤销")
		default:
			returnError(401, response.CodeUnauthorized, "认证失败")
		}
		return
	}

	// 平台签名过滤器在前时校验两者归属一致，跨平台的令牌直接拒绝
	if platformID := ctx.Input.GetData("platform_id"); platformID != nil {
		if claims.PlatformID != platformID.(int8) {
			logger.Warn("platform mismatch",
				zap.String("trace_id", traceID),
				zap.Int8("token_platform_id", claims.PlatformID),
				zap.Int8("request_platform_id", platformID.(int8)))
			returnError(403, response.CodeForbidden, "平台不匹配")
			return
		}
	}

	ctx.Input.SetData("user_id", claims.UserID)
	ctx.Input.SetData("username", claims.Username)
	ctx.Input.SetData("jwt_claims", claims)

	// 未经平台过滤器的路由从令牌补齐平台信息
	if ctx.Input.GetData("platform_id") == nil {
		ctx.Input.SetData("platform_id", claims.PlatformID)
		ctx.Input.SetData("app_key", claims.AppKey)
	}

	logger.Debug("user authentication successful",
		zap.String("trace_id", traceID),
		zap.Int64("user_id", claims.UserID),
		zap.String("username", claims.Username),
		zap.Int8("platform_id", claims.PlatformID))
}
