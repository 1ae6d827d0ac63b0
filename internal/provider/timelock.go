package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// LocalTimeLock 本地时间锁实现：托管封存密钥，到达解锁时间后
// 将密钥作为凭据异步回调。时间条件由托管方而非核心校验——
// 解锁时间未到时托管方不交付，提前的人工触发也会被拒绝。
type LocalTimeLock struct {
	cb UnlockCallback

	mu     sync.Mutex
	escrow map[string]escrowEntry
}

type escrowEntry struct {
	payload    []byte
	unlockAtMs int64
}

var ErrNotDue = errors.New("timelock: unlock time not reached")

func NewLocalTimeLock(cb UnlockCallback) *LocalTimeLock {
	return &LocalTimeLock{cb: cb, escrow: make(map[string]escrowEntry)}
}

func (p *LocalTimeLock) RequestUnlock(ctx context.Context, unlockAtMs int64, payload []byte) (string, error) {
	requestID := uuid.NewString()

	p.mu.Lock()
	p.escrow[requestID] = escrowEntry{
		payload:    append([]byte(nil), payload...),
		unlockAtMs: unlockAtMs,
	}
	p.mu.Unlock()

	// 解锁回调可能在数小时后触发，脱离请求上下文的取消链
	detached := context.WithoutCancel(ctx)
	delay := time.Until(time.UnixMilli(unlockAtMs))
	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			<-timer.C
		}
		proof, err := p.Release(requestID)
		if err != nil {
			logger.Warn("[provider] unlock release failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
		logger.Info("[provider] unlock proof delivered", zap.String("request_id", requestID))
		p.cb(detached, requestID, proof)
	}()

	return requestID, nil
}

// Release 取出托管凭据。解锁时间未到返回 ErrNotDue（条件校验在托管方）。
// 成功取出后托管项即删除，同一请求不会二次交付。
func (p *LocalTimeLock) Release(requestID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.escrow[requestID]
	if !ok {
		return nil, errors.New("timelock: unknown request id")
	}
	if time.Now().UnixMilli() < e.unlockAtMs {
		return nil, ErrNotDue
	}
	delete(p.escrow, requestID)
	return e.payload, nil
}
