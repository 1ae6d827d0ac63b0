package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixTicketIdemResult：购票幂等"结果缓存"Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（PurchaseOutput JSON），用于后续重复请求直接返回。
	PrefixTicketIdemResult = "ticket:idem:result:"
	// PrefixTicketIdemLock：购票幂等"进行中锁"Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixTicketIdemLock = "ticket:idem:lock:"

	// PrefixGameInfo：游戏局信息缓存（票价/容量/截止时间等），用于大厅快速查询
	PrefixGameInfo = "lotto:game:"
	// PrefixGameResult：开奖结果缓存
	PrefixGameResult = "lotto:result:"
)

// IdemResultKey：构造幂等"结果缓存"的完整 Key。
// 形如：ticket:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixTicketIdemResult + k }

// IdemLockKey：构造幂等"进行中锁"的完整 Key。
// 形如：ticket:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixTicketIdemLock + k }

// GameInfoKey：构造游戏局信息缓存 Key。形如：lotto:game:{game_id}
func GameInfoKey(gameID string) string { return PrefixGameInfo + gameID }

// GameResultKey：构造开奖结果缓存 Key。形如：lotto:result:{game_id}
func GameResultKey(gameID string) string { return PrefixGameResult + gameID }

// TokenBlacklistKey：已撤销 JWT 的黑名单 Key。形如：token:blacklist:{token}
func TokenBlacklistKey(token string) string { return "token:blacklist:" + token }

// NonceKey：平台签名防重放的 Nonce Key。形如：nonce:{app_key}:{nonce}
func NonceKey(appKey, nonce string) string { return "nonce:" + appKey + ":" + nonce }

// RateLimitKey：滑动窗口限流 Key。形如：ratelimit:{dimension}:{key}
func RateLimitKey(dimension, key string) string { return "ratelimit:" + dimension + ":" + key }
