package middleware

import (
	"lotto-server/common/logger"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

// RequestIDFilter 为每个请求分配 X-Request-Id 并回写响应头。
// 同时注入 request context：开奖/解锁等异步回调脱离请求后仍可取回 trace_id。
func RequestIDFilter(ctx *context.Context) {
	id := ctx.Input.Header("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Request = ctx.Request.WithContext(logger.WithTraceID(ctx.Request.Context(), id))
	ctx.Output.Header("X-Request-Id", id)
}
