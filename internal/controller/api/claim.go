package api

import (
	"errors"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

type ClaimController struct{ beego.Controller }

// 领奖请求参数
type ClaimRequestParam struct {
	GameId   string `json:"game_id"`   // 游戏ID
	TicketNo string `json:"ticket_no"` // 票号
}

// Claim 领奖接口：POST /api/claim
// 仅 finished 状态可领奖；零奖金的票同样标记已领，保证领奖只发生一次
func (c *ClaimController) Claim() {
	cp, ok, msg := helper.ParseAndValidateClaim(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newClaimService()
	traceID := helper.GetTraceID(c.Ctx)

	// 领奖人身份由认证中间件注入，票归属以此为准
	platformID := int8(cp.Platform)
	platformUserID := ""
	if v := c.Ctx.Input.GetData("platform_id"); v != nil {
		if pid, ok := v.(int8); ok {
			platformID = pid
		}
	}
	if v := c.Ctx.Input.GetData("platform_user_id"); v != nil {
		if puid, ok := v.(string); ok {
			platformUserID = puid
		}
	}
	if platformUserID == "" {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeUnauthorized, "未授权", traceID)
		return
	}

	out, err := svc.ClaimPrize(c.Ctx.Request.Context(), service.ClaimInput{
		GameID:         cp.GameId,
		TicketNo:       cp.TicketNo,
		PlatformID:     platformID,
		PlatformUserID: platformUserID,
		TraceID:        traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			response.NotFound(&c.Controller, "游戏不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrTicketNotFound) {
			response.NotFound(&c.Controller, "票不存在", traceID)
			return
		}
		// 非 finished 状态不可领奖
		if errors.Is(err, service.ErrNotClaimable) {
			response.Conflict(&c.Controller, response.CodeInvalidPhase, traceID)
			return
		}
		// 票归属他人
		if errors.Is(err, service.ErrNotTicketOwner) {
			response.ErrorWithMessage(&c.Controller, 403, response.CodeNotTicketOwner,
				response.ErrorMessages[response.CodeNotTicketOwner], traceID)
			return
		}
		// 重复领奖
		if errors.Is(err, service.ErrAlreadyClaimed) {
			response.Conflict(&c.Controller, response.CodeAlreadyClaimed, traceID)
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
		"ticket_no":      out.TicketNo,
		"prize":          out.Prize,
		"remain_balance": out.RemainBalance,
	}, traceID)
}
