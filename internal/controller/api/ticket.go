package api

import (
	"errors"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

type TicketController struct{ beego.Controller }

// 购票请求参数
type PurchaseRequestParam struct {
	GameId  string `json:"game_id"` // 游戏ID
	Numbers []int  `json:"numbers"` // 所选号码（3个互不相同的 1-100 整数）
	Payment string `json:"payment"` // 支付金额（必须等于票价）
	/*
		幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证"同一次购票只生效一次"。
		使用约定：
		- 对于"同一次购票"的所有重试，请传相同的 idempotency_key；
		- 业务语义不同（如号码/局不同）的请求必须使用不同的 key；
		- 建议生成方式：UUID（推荐）。
		服务端幂等保证（多层防护）：
		1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则视为重复请求，返回首次请求的结果；
		3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
	*/
	IdempotencyKey string `json:"idempotency_key"`
}

// Purchase 购票接口：POST /api/ticket
func (c *TicketController) Purchase() {
	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	pp, ok, msg := helper.ParseAndValidatePurchase(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newTicketService()
	traceID := helper.GetTraceID(c.Ctx)

	// 从 context 提取平台信息（由认证中间件注入）
	platformID := int8(pp.Platform)
	platformUserID := ""
	platformUserName := ""

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
	if v := c.Ctx.Input.GetData("platform_user_name"); v != nil {
		if pname, ok := v.(string); ok {
			platformUserName = pname
		}
	}
	if platformUserID == "" {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeUnauthorized, "未授权", traceID)
		return
	}

	// 金额在边界层折算为最小货币单位
	paymentUnits, okMoney := helper.MoneyToUnits(pp.Payment)
	if !okMoney || paymentUnits <= 0 {
		response.BadRequest(&c.Controller, "payment must be positive", traceID)
		return
	}

	out, err := svc.PurchaseTicket(c.Ctx.Request.Context(), service.PurchaseInput{
		GameID:           pp.GameId,
		PlatformID:       platformID,
		PlatformUserID:   platformUserID,
		PlatformUserName: platformUserName,
		Numbers:          pp.Numbers,
		Payment:          paymentUnits,
		IdempotencyKey:   pp.IdempotencyKey,
		TraceID:          traceID,
	})
	if err != nil {
		// MySQL 唯一键冲突
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		if errors.Is(err, service.ErrGameNotFound) {
			response.NotFound(&c.Controller, "游戏不存在", traceID)
			return
		}
		// 当前阶段不可售票
		if errors.Is(err, service.ErrSaleNotOpen) {
			response.Conflict(&c.Controller, response.CodeInvalidPhase, traceID)
			return
		}
		// 售票窗口已关闭
		if errors.Is(err, service.ErrSaleClosed) {
			response.Conflict(&c.Controller, response.CodeSaleClosed, traceID)
			return
		}
		// 票已售罄
		if errors.Is(err, service.ErrSoldOut) {
			response.Conflict(&c.Controller, response.CodeSoldOut, traceID)
			return
		}
		// 号码不合法
		if errors.Is(err, service.ErrInvalidNumbers) {
			response.ErrorWithMessage(&c.Controller, 400, response.CodeInvalidNumbers,
				response.ErrorMessages[response.CodeInvalidNumbers], traceID)
			return
		}
		// 支付金额与票价不符
		if errors.Is(err, service.ErrWrongPayment) {
			response.ErrorWithMessage(&c.Controller, 400, response.CodeWrongPayment,
				response.ErrorMessages[response.CodeWrongPayment], traceID)
			return
		}
		// 余额不足
		if errors.Is(err, service.ErrInsufficientFunds) {
			response.ErrorWithMessage(&c.Controller, 400, response.CodeInsufficient,
				response.ErrorMessages[response.CodeInsufficient], traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	// 成功响应
	response.Success(&c.Controller, map[string]interface{}{
		"ticket_no":      out.TicketNo,
		"seq":            out.Seq,
		"remain_balance": out.RemainBalance,
	}, traceID)
}
