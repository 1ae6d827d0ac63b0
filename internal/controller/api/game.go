package api

import (
	"errors"
	"strings"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

type GameController struct{ beego.Controller }

// 建局请求参数
type CreateGameRequestParam struct {
	TicketPrice string `json:"ticket_price"` // 票价（字符串金额，最多两位小数）
	MaxTickets  int    `json:"max_tickets"`  // 票量上限
	EndTime     int64  `json:"end_time"`     // 售票截止时间（Unix 毫秒）
	SealEnabled bool   `json:"seal_enabled"` // 是否延迟揭晓
	UnlockTime  int64  `json:"unlock_time"`  // 解锁时间（仅 seal_enabled 时必填）
	Operator    string `json:"operator"`     // 操作人（可选）
}

// CreateGame 建局接口：POST /api/game
// 建局即开售（phase=active），票价与容量建局后不可变更
func (c *GameController) CreateGame() {
	gp, ok, msg := helper.ParseAndValidateCreateGame(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	// 金额在边界层折算为最小货币单位，服务层只处理整数
	priceUnits, ok := helper.MoneyToUnits(gp.TicketPrice)
	if !ok || priceUnits <= 0 {
		response.BadRequest(&c.Controller, "ticket_price must be positive", traceID)
		return
	}

	out, err := gameSvc.CreateGame(c.Ctx.Request.Context(), service.CreateGameInput{
		TicketPrice: priceUnits,
		MaxTickets:  gp.MaxTickets,
		EndTime:     gp.EndTime,
		SealEnabled: gp.SealEnabled,
		UnlockTime:  gp.UnlockTime,
		TraceID:     traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidGameConfig) {
			response.ErrorWithMessage(&c.Controller, 400, response.CodeInvalidGameConfig,
				response.ErrorMessages[response.CodeInvalidGameConfig], traceID)
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
		"game_id": out.GameID,
		"phase":   out.Phase,
	}, traceID)
}

// EndGame 截止售票接口：POST /api/game/end
// 到达截止时间后调用，状态 active -> drawing 并向随机源发起种子请求
func (c *GameController) EndGame() {
	lp, ok, msg := helper.ParseAndValidateLifecycle(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	err := gameSvc.EndGame(c.Ctx.Request.Context(), service.GameLifecycleInput{
		GameID:   lp.GameId,
		Operator: lp.Operator,
		TraceID:  traceID,
	})
	if err != nil {
		c.writeLifecycleError(err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"game_id": lp.GameId,
		"phase":   "drawing",
	}, traceID)
}

// PauseGame 紧急暂停接口：POST /api/game/pause
// 仅允许在一票未售时暂停，状态 active -> waiting
func (c *GameController) PauseGame() {
	lp, ok, msg := helper.ParseAndValidateLifecycle(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	err := gameSvc.PauseGame(c.Ctx.Request.Context(), service.GameLifecycleInput{
		GameID:   lp.GameId,
		Operator: lp.Operator,
		TraceID:  traceID,
	})
	if err != nil {
		c.writeLifecycleError(err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"game_id": lp.GameId,
		"phase":   "waiting",
	}, traceID)
}

// ResumeGame 恢复售票接口：POST /api/game/resume
// 状态 waiting -> active
func (c *GameController) ResumeGame() {
	lp, ok, msg := helper.ParseAndValidateLifecycle(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	err := gameSvc.ResumeGame(c.Ctx.Request.Context(), service.GameLifecycleInput{
		GameID:   lp.GameId,
		Operator: lp.Operator,
		TraceID:  traceID,
	})
	if err != nil {
		c.writeLifecycleError(err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"game_id": lp.GameId,
		"phase":   "active",
	}, traceID)
}

// WithdrawRemainder 提取结算后未派出的奖池余额：POST /api/game/withdraw_remainder
// 仅限已结算的局，重复提取返回冲突
func (c *GameController) WithdrawRemainder() {
	lp, ok, msg := helper.ParseAndValidateLifecycle(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	remainder, err := gameSvc.WithdrawRemainder(c.Ctx.Request.Context(), service.GameLifecycleInput{
		GameID:   lp.GameId,
		Operator: lp.Operator,
		TraceID:  traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotSettled) || errors.Is(err, service.ErrNoRemainder) {
			response.Conflict(&c.Controller, response.CodeInvalidPhase, traceID)
			return
		}
		c.writeLifecycleError(err, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"game_id":       lp.GameId,
		"remainder":     remainder,
		"remainder_str": helper.UnitsToMoney(remainder),
	}, traceID)
}

// writeLifecycleError 生命周期事件的统一错误映射
func (c *GameController) writeLifecycleError(err error, traceID string) {
	if errors.Is(err, service.ErrGameNotFound) {
		response.NotFound(&c.Controller, "游戏不存在", traceID)
		return
	}
	if errors.Is(err, service.ErrDeadlineNotReached) {
		response.Conflict(&c.Controller, response.CodeDeadlineNotMet, traceID)
		return
	}
	if errors.Is(err, service.ErrPauseWithTickets) {
		response.Conflict(&c.Controller, response.CodePauseWithTickets, traceID)
		return
	}
	if errors.Is(err, service.ErrBadRequest) {
		response.BadRequest(&c.Controller, "invalid request", traceID)
		return
	}
	// 非法状态跳转（状态机直接返回描述性错误）
	if strings.Contains(err.Error(), "invalid transition") {
		response.Conflict(&c.Controller, response.CodeInvalidPhase, traceID)
		return
	}
	response.InternalError(&c.Controller, traceID)
}
