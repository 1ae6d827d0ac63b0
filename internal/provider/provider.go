package provider

import "context"

// 随机数与时间锁均为外部协作方，核心只依赖接口。
// 回调为异步：请求立即返回 request_id，结果稍后通过回调送达，
// 核心按局记录期望的 request_id，不匹配的回调一律忽略。

// SeedCallback 随机种子送达回调
type SeedCallback func(ctx context.Context, requestID string, seed []byte)

// RandomnessProvider 随机种子协作方。
// 每局在 drawing 阶段恰好发起一次请求。
type RandomnessProvider interface {
	// RequestSeed 发起一次种子请求并返回 request_id；
	// 种子稍后通过注册的回调异步送达。
	RequestSeed(ctx context.Context) (string, error)
}

// UnlockCallback 解锁信号送达回调，proof 为解锁凭据（托管密钥）
type UnlockCallback func(ctx context.Context, requestID string, proof []byte)

// TimeLockProvider 时间锁协作方。payload 为托管负载（封存密钥），
// 解锁时间到达前托管方不交付凭据。
type TimeLockProvider interface {
	// RequestUnlock 发起一次解锁请求并返回 request_id；
	// 解锁条件满足后凭据通过注册的回调异步送达。
	RequestUnlock(ctx context.Context, unlockAtMs int64, payload []byte) (string, error)
}
