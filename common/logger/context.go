package logger

import (
	"context"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// GetTraceID 取出链路ID，未注入时返回空串
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceID 注入链路ID。WithoutCancel 派生的 context 仍保留该值，
// 供异步回调还原请求来源
func WithTraceID(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceId)
}
