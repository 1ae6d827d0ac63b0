package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	chelper "lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/config"
	infrds "lotto-server/internal/infra/redis"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// Platform 接入平台信息
type Platform struct {
	PlatformID int8     `json:"platform_id"`
	AppKey     string   `json:"app_key"`
	AppSecret  string   `json:"app_secret"`
	Name       string   `json:"name"`
	Status     int8     `json:"status"`
	RateLimit  int      `json:"rate_limit"`
	AllowedIPs []string `json:"allowed_ips"`
}

// 签名时间戳允许的偏移窗口与 Nonce 留存时长
const (
	signatureFreshnessSec = 300
	nonceTTL              = 10 * time.Minute
	maxNonceLen           = 64
)

// signedHeaders 平台签名请求必带的四个头
type signedHeaders struct {
	appKey    string
	timestamp string
	nonce     string
	signature string
}

func extractSignedHeaders(ctx *beegocontext.Context) (*signedHeaders, error) {
	h := &signedHeaders{
		appKey:    strings.TrimSpace(ctx.Input.Header("X-Platform-Key")),
		timestamp: strings.TrimSpace(ctx.Input.Header("X-Timestamp")),
		nonce:     strings.TrimSpace(ctx.Input.Header("X-Nonce")),
		signature: strings.TrimSpace(ctx.Input.Header("X-Signature")),
	}
	if h.appKey == "" || h.timestamp == "" || h.nonce == "" || h.signature == "" {
		logger.Warn("missing authentication headers",
			zap.String("app_key", h.appKey),
			zap.Bool("has_timestamp", h.timestamp != ""),
			zap.Bool("has_nonce", h.nonce != ""),
			zap.Bool("has_signature", h.signature != ""))
		return nil, ErrMissingAuthHeaders
	}
	return h, nil
}

// VerifyPlatformSignature 验证平台签名。
// 时间戳窗口 + Nonce 一次性消费构成防重放；签名覆盖请求体，
// 防止购票/领奖报文被白名单内的中间节点篡改
func VerifyPlatformSignature(ctx *beegocontext.Context) (*Platform, error) {
	h, err := extractSignedHeaders(ctx)
	if err != nil {
		return nil, err
	}

	// 时间戳窗口校验
	ts, err := strconv.ParseInt(h.timestamp, 10, 64)
	if err != nil {
		logger.Warn("invalid timestamp format", zap.String("timestamp", h.timestamp))
		return nil, ErrTimestampExpired
	}
	diff := time.Now().Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	if diff > signatureFreshnessSec {
		logger.Warn("timestamp expired",
			zap.Int64("timestamp", ts),
			zap.Int64("diff_seconds", diff))
		return nil, ErrTimestampExpired
	}

	// Nonce 一次性消费
	if err := checkAndSetNonce(ctx.Request.Context(), h.appKey, h.nonce); err != nil {
		logger.Warn("nonce check failed",
			zap.String("app_key", h.appKey),
			zap.String("nonce", h.nonce),
			zap.Error(err))
		return nil, err
	}

	platform, err := GetPlatformByAppKey(h.appKey)
	if err != nil {
		logger.Warn("platform not found", zap.String("app_key", h.appKey))
		return nil, ErrInvalidPlatform
	}

	if platform.Status != 1 {
		logger.Warn("platform is disabled",
			zap.String("app_key", h.appKey),
			zap.Int8("status", platform.Status))
		return nil, ErrPlatformDisabled
	}

	// IP 白名单校验（配置了才生效），白名单条目支持 CIDR
	if len(platform.AllowedIPs) > 0 {
		clientIP := chelper.RealIP(ctx.Request)
		ok, ipErr := chelper.IPAllowed(clientIP, platform.AllowedIPs)
		if ipErr != nil || !ok {
			logger.Warn("ip not allowed",
				zap.String("app_key", h.appKey),
				zap.String("client_ip", clientIP),
				zap.Strings("allowed_ips", platform.AllowedIPs),
				zap.Error(ipErr))
			return nil, ErrIPNotAllowed
		}
	}

	body := readRequestBody(ctx)
	expectedSig := generateSignature(h.appKey, h.timestamp, h.nonce, body, platform.AppSecret)

	// 恒定时间比较，日志只留签名前缀
	if !secureCompare(h.signature, expectedSig) {
		logger.Warn("signature verification failed",
			zap.String("app_key", h.appKey),
			zap.String("expected", expectedSig[:16]+"..."),
			zap.String("received", h.signature[:min(len(h.signature), 16)]+"..."))
		return nil, ErrInvalidSignature
	}

	logger.Debug("platform authentication successful",
		zap.String("app_key", h.appKey),
		zap.Int8("platform_id", platform.PlatformID))

	return platform, nil
}

// GetPlatformByAppKey 在配置的平台列表中按 AppKey 检索
func GetPlatformByAppKey(appKey string) (*Platform, error) {
	cfg := config.Get()
	if cfg == nil || cfg.Auth.Platforms == nil {
		return nil, ErrInvalidPlatform
	}

	for _, p := range cfg.Auth.Platforms {
		if p.AppKey == appKey {
			return &Platform{
				PlatformID: p.PlatformID,
				AppKey:     p.AppKey,
				AppSecret:  p.AppSecret,
				Name:       p.Name,
				Status:     p.Status,
				RateLimit:  p.RateLimit,
				AllowedIPs: p.AllowedIPs,
			}, nil
		}
	}

	return nil, ErrInvalidPlatform
}

// checkAndSetNonce Nonce 防重放：首次见到入 Redis，窗口内再次出现即拒绝。
// Redis 不可用时降级放行，时间戳窗口仍然兜底
func checkAndSetNonce(ctx context.Context, appKey, nonce string) error {
	// Nonce 仅允许字母数字并限制长度，防止拼出异常的 Redis key
	if len(nonce) > maxNonceLen || !chelper.CtypeAlnum(nonce) {
		return ErrInvalidNonce
	}

	rdb := infrds.Client()
	if rdb == nil {
		logger.Warn("redis not available, skip nonce check")
		return nil
	}

	nonceKey := infrds.NonceKey(appKey, nonce)

	exists, err := rdb.Exists(ctx, nonceKey).Result()
	if err != nil {
		logger.Warn("redis exists check failed", zap.Error(err))
		return nil
	}
	if exists > 0 {
		return ErrNonceReused
	}

	if err := rdb.SetEx(ctx, nonceKey, "1", nonceTTL).Err(); err != nil {
		logger.Warn("redis setex failed", zap.Error(err))
	}
	return nil
}

// generateSignature 签名算法：HMAC-SHA256(app_key + timestamp + nonce + body, app_secret)
func generateSignature(appKey, timestamp, nonce, body, secret string) string {
	signString := appKey + timestamp + nonce + body
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signString))
	return hex.EncodeToString(h.Sum(nil))
}

// secureCompare 恒定时间字符串比较
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// readRequestBody 取参与签名的请求体。
// beego 开 copyrequestbody 后 RequestBody 可重复读，结果缓存进 ctx data
func readRequestBody(ctx *beegocontext.Context) string {
	if ctx.Request.Method == "GET" || ctx.Request.Method == "DELETE" {
		return ""
	}

	if body := ctx.Input.GetData("request_body"); body != nil {
		if bodyStr, ok := body.(string); ok {
			return bodyStr
		}
	}

	bodyStr := string(ctx.Input.RequestBody)
	ctx.Input.SetData("request_body", bodyStr)

	return bodyStr
}

// IsValidPlatformUserID 平台侧用户ID格式：1~64 位字母数字下划线连字符
func IsValidPlatformUserID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}

	for _, c := range id {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-') {
			return false
		}
	}

	return true
}
