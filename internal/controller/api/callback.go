package api

import (
	"encoding/hex"
	"errors"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/draw"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// CallbackController 处理外部协作方回调：
// - POST /api/seed_callback   随机源送达种子
// - POST /api/unlock_callback 时间锁送达解锁凭据
// 回调是异步且可能重放的：request_id 不匹配、局状态不符的回调
// 一律按无操作处理并返回成功，协作方无需区分。
type CallbackController struct{ beego.Controller }

// SeedCallback 随机种子送达：POST /api/seed_callback
func (c *CallbackController) SeedCallback() {
	sp, ok, msg := helper.ParseAndValidateSeedCallback(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	seed, err := draw.ParseSeed(sp.Seed)
	if err != nil {
		response.BadRequest(&c.Controller, "seed must be 64 hex chars", traceID)
		return
	}

	if err := drawSvc.OnSeedReceived(c.Ctx.Request.Context(), service.SeedInput{
		RequestID: sp.RequestId,
		Seed:      seed,
		TraceID:   traceID,
	}); err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// UnlockCallback 解锁凭据送达：POST /api/unlock_callback
// 解封失败时封存结果保持不动（审计已落库），返回 500 由协作方重试
func (c *CallbackController) UnlockCallback() {
	up, ok, msg := helper.ParseAndValidateUnlockCallback(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	proof, err := hex.DecodeString(up.Proof)
	if err != nil {
		response.BadRequest(&c.Controller, "proof must be hex encoded", traceID)
		return
	}

	if err := newSealService().OnUnlockReceived(c.Ctx.Request.Context(), service.UnlockInput{
		RequestID: up.RequestId,
		Proof:     proof,
		TraceID:   traceID,
	}); err != nil {
		if errors.Is(err, service.ErrUnsealFailed) {
			response.Error(&c.Controller, 500, response.CodeUnsealFailed, traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}
