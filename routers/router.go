package routers

import (
	"lotto-server/internal/config"
	"lotto-server/internal/controller/api"
	"lotto-server/internal/metrics"
	"lotto-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// Register 注册HTTP路由与全局过滤器。
// 依赖全局配置，必须在 config.Set 之后调用。
func Register() {
	cfg := config.Get()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 玩家侧 API（需要认证） ==========

	// 平台认证；开启 JWT 后玩家接口在签名之上再验玩家令牌
	jwtEnabled := cfg != nil && cfg.Auth.JWT.Enabled && !cfg.Auth.DemoMode
	installPlayerAuth := func(route string) {
		if cfg != nil && cfg.Auth.DemoMode {
			// 演示模式：简化认证
			beego.InsertFilter(route, beego.BeforeExec, middleware.DemoAuthFilter)
			return
		}
		// 生产模式：平台签名认证
		beego.InsertFilter(route, beego.BeforeExec, middleware.PlatformAuthFilter)
		if jwtEnabled {
			beego.InsertFilter(route, beego.BeforeExec, middleware.UserAuthFilter)
		}
	}

	// 令牌签发：平台签名换取玩家 JWT；撤销走玩家令牌认证
	if cfg != nil && cfg.Auth.DemoMode {
		beego.InsertFilter("/api/auth/token", beego.BeforeExec, middleware.DemoAuthFilter)
	} else {
		beego.InsertFilter("/api/auth/token", beego.BeforeExec, middleware.PlatformAuthFilter)
	}
	beego.Router("/api/auth/token", &api.AuthController{}, "post:Token")
	beego.InsertFilter("/api/auth/logout", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/auth/logout", &api.AuthController{}, "post:Logout")

	// 购票接口：认证 + 限流
	installPlayerAuth("/api/ticket")
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/ticket", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/ticket", &api.TicketController{}, "post:Purchase")

	// 领奖接口
	installPlayerAuth("/api/claim")
	beego.Router("/api/claim", &api.ClaimController{}, "post:Claim")

	// 玩家查询接口（玩家只能查询自己的数据）
	installPlayerAuth("/api/player/*")
	beego.Router("/api/player/tickets", &api.QueryController{}, "get:PlayerTickets")
	beego.Router("/api/player/history", &api.QueryController{}, "get:PlayerHistory")

	// ========== 公开查询 API（无需认证） ==========

	beego.Router("/api/games", &api.QueryController{}, "get:ListGames")
	beego.Router("/api/game/:game_id", &api.QueryController{}, "get:GetGame")
	beego.Router("/api/game/:game_id/results", &api.QueryController{}, "get:GetResults")
	beego.Router("/api/game/:game_id/ticket/:seq", &api.QueryController{}, "get:GetTicket")

	// ========== 管理 API（需要管理员认证） ==========

	adminRoutes := []string{
		"/api/game", "/api/game/end", "/api/game/pause", "/api/game/resume",
		"/api/game/withdraw_remainder", "/api/emergency_reveal",
	}
	if cfg != nil && cfg.Auth.Admin.Enabled {
		for _, route := range adminRoutes {
			beego.InsertFilter(route, beego.BeforeExec, middleware.AdminAuthFilter)
		}
		// 审计轨迹与整局票明细查询同样走管理员认证
		beego.InsertFilter("/api/game/:game_id/audit", beego.BeforeExec, middleware.AdminAuthFilter)
		beego.InsertFilter("/api/game/:game_id/tickets", beego.BeforeExec, middleware.AdminAuthFilter)
	}
	beego.Router("/api/game", &api.GameController{}, "post:CreateGame")
	beego.Router("/api/game/end", &api.GameController{}, "post:EndGame")
	beego.Router("/api/game/pause", &api.GameController{}, "post:PauseGame")
	beego.Router("/api/game/resume", &api.GameController{}, "post:ResumeGame")
	beego.Router("/api/game/withdraw_remainder", &api.GameController{}, "post:WithdrawRemainder")
	beego.Router("/api/emergency_reveal", &api.RevealController{}, "post:EmergencyReveal")
	beego.Router("/api/game/:game_id/audit", &api.QueryController{}, "get:GetAudit")
	beego.Router("/api/game/:game_id/tickets", &api.QueryController{}, "get:GetGameTickets")

	// ========== 协作方回调 API ==========
	// 随机源与时间锁通过回调送达结果；回调自带 request_id 防串用，
	// 不匹配的回调按无操作处理
	beego.Router("/api/seed_callback", &api.CallbackController{}, "post:SeedCallback")
	beego.Router("/api/unlock_callback", &api.CallbackController{}, "post:UnlockCallback")
}
