package provider

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// LocalRandomness 本地随机源实现：crypto/rand 生成256位种子，
// 经固定延迟后异步回调，模拟外部随机信标的交付节奏。
// 生产部署应替换为可验证随机源（VRF/信标），接口不变。
type LocalRandomness struct {
	cb    SeedCallback
	delay time.Duration
}

func NewLocalRandomness(cb SeedCallback, delay time.Duration) *LocalRandomness {
	return &LocalRandomness{cb: cb, delay: delay}
}

func (p *LocalRandomness) RequestSeed(ctx context.Context) (string, error) {
	requestID := uuid.NewString()

	seed := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return "", err
	}

	// 回调必须在请求结束后仍能送达，脱离请求上下文的取消链
	detached := context.WithoutCancel(ctx)
	go func() {
		if p.delay > 0 {
			timer := time.NewTimer(p.delay)
			defer timer.Stop()
			<-timer.C
		}
		logger.Info("[provider] seed delivered", zap.String("request_id", requestID))
		p.cb(detached, requestID, seed)
	}()

	return requestID, nil
}
