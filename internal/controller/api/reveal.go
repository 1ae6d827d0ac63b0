package api

import (
	"errors"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// RevealController 紧急揭晓接口：POST /api/emergency_reveal
// 管理员后备通道：时间锁协作方长时间未回调时，由管理员带外取得
// 开奖号码并提交。仅在解锁时间加上升级窗口之后可用。
type RevealController struct{ beego.Controller }

// 紧急揭晓请求参数
type EmergencyRevealRequestParam struct {
	GameId   string `json:"game_id"`  // 游戏ID
	Numbers  []int  `json:"numbers"`  // 带外取得的开奖号码
	Operator string `json:"operator"` // 操作管理员（必填，落审计）
}

// EmergencyReveal 执行紧急揭晓
func (c *RevealController) EmergencyReveal() {
	ep, ok, msg := helper.ParseAndValidateEmergencyReveal(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	if err := newSealService().EmergencyReveal(c.Ctx.Request.Context(), service.EmergencyInput{
		GameID:   ep.GameId,
		Numbers:  ep.Numbers,
		Operator: ep.Operator,
		TraceID:  traceID,
	}); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			response.NotFound(&c.Controller, "游戏不存在", traceID)
			return
		}
		// 局不在 sealed 状态或无封存记录
		if errors.Is(err, service.ErrSealNotFound) {
			response.Conflict(&c.Controller, response.CodeInvalidPhase, traceID)
			return
		}
		// 升级窗口未到
		if errors.Is(err, service.ErrRevealTooEarly) {
			response.Conflict(&c.Controller, response.CodeRevealTooEarly, traceID)
			return
		}
		if errors.Is(err, service.ErrInvalidNumbers) {
			response.ErrorWithMessage(&c.Controller, 400, response.CodeInvalidNumbers,
				response.ErrorMessages[response.CodeInvalidNumbers], traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"game_id": ep.GameId,
		"phase":   "finished",
	}, traceID)
}
