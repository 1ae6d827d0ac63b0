package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	chelper "lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/config"
	infrds "lotto-server/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// limitRule 单个维度的限流规则
type limitRule struct {
	dimension string
	key       string
	limit     int
	windowSec int
}

// RateLimitFilter 多维度限流：全局、按IP、按平台、按用户。
// 平台/用户维度依赖认证过滤器先注入身份，匿名请求只受全局与IP约束
func RateLimitFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	if cfg == nil || !cfg.RateLimit.Enabled {
		return
	}

	traceID := helper.GetTraceID(ctx)
	rdb := infrds.Client()
	if rdb == nil {
		// Redis 不可用时降级放行
		logger.Warn("redis not available, skip rate limit", zap.String("trace_id", traceID))
		return
	}

	var rules []limitRule
	if cfg.RateLimit.Global.RequestsPerSecond > 0 {
		rules = append(rules, limitRule{"global", "all", cfg.RateLimit.Global.RequestsPerSecond, 1})
	}
	if cfg.RateLimit.ByIP.RequestsPerSecond > 0 {
		rules = append(rules, limitRule{"ip", chelper.RealIP(ctx.Request),
			cfg.RateLimit.ByIP.RequestsPerSecond, cfg.RateLimit.ByIP.WindowSeconds})
	}
	if cfg.RateLimit.ByPlatform.RequestsPerSecond > 0 {
		if platformID := ctx.Input.GetData("platform_id"); platformID != nil {
			rules = append(rules, limitRule{"platform", fmt.Sprintf("platform_%d", platformID.(int8)),
				cfg.RateLimit.ByPlatform.RequestsPerSecond, cfg.RateLimit.ByPlatform.WindowSeconds})
		}
	}
	if cfg.RateLimit.ByUser.RequestsPerSecond > 0 {
		if platformUserID := ctx.Input.GetData("platform_user_id"); platformUserID != nil {
			rules = append(rules, limitRule{"user", "user_" + platformUserID.(string),
				cfg.RateLimit.ByUser.RequestsPerSecond, cfg.RateLimit.ByUser.WindowSeconds})
		}
	}

	reqCtx := ctx.Request.Context()
	for _, r := range rules {
		if checkRateLimit(reqCtx, rdb, r) {
			continue
		}
		logger.Warn("rate limit exceeded",
			zap.String("trace_id", traceID),
			zap.String("dimension", r.dimension),
			zap.String("key", r.key))
		ctx.Output.SetStatus(429)
		ctx.Output.JSON(response.APIResponse{
			Code:      response.CodeRateLimitExceeded,
			Message:   "请求频率超限，请稍后重试",
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
		return
	}
}

// checkRateLimit 滑动窗口计数（Redis Sorted Set）。
// Redis 异常一律降级放行，限流不能变成故障放大器
func checkRateLimit(ctx context.Context, rdb *redis.Client, r limitRule) bool {
	if rdb == nil {
		return true
	}

	windowSec := r.windowSec
	if windowSec <= 0 {
		windowSec = 1
	}

	redisKey := infrds.RateLimitKey(r.dimension, r.key)
	now := time.Now().Unix()
	windowStart := now - int64(windowSec)

	pipe := rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCount(ctx, redisKey, strconv.FormatInt(windowStart, 10), "+inf")
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d_%d", now, time.Now().UnixNano()),
	})
	pipe.Expire(ctx, redisKey, time.Duration(windowSec+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("rate limit check failed", zap.Error(err))
		return true
	}

	count, err := countCmd.Result()
	if err != nil {
		logger.Warn("rate limit count failed", zap.Error(err))
		return true
	}

	return count < int64(r.limit)
}
