package api

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	chelper "lotto-server/common/helper"
	helper "lotto-server/internal/common/helper"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/model"

	beego "github.com/beego/beego/v2/server/web"
	goredis "github.com/redis/go-redis/v9"
)

// QueryController 提供查询接口（大厅/玩家侧只读）
// GET /api/games                          最近的局列表
// GET /api/game/:game_id                  单局信息（Redis 优先，DB 回源并回填）
// GET /api/game/:game_id/results          开奖结果与中奖名单
// GET /api/game/:game_id/ticket/:seq      按局内序号查询单张票
// GET /api/player/tickets                 当前玩家的购票记录
// GET /api/player/history                 当前玩家的购票/领奖流水
type QueryController struct {
	beego.Controller
}

const (
	gameInfoBackfillTTL   = 20 * time.Second
	gameResultBackfillTTL = 2 * time.Minute
)

// GetGame 查询单局信息
func (c *QueryController) GetGame() {
	gameID := c.Ctx.Input.Param(":game_id")
	if gameID == "" {
		c.CustomAbort(400, "game_id is required")
		return
	}

	ctx := c.Ctx.Request.Context()

	var gameInfo map[string]any

	// Redis 优先
	if r := infrds.Client(); r != nil {
		if bs, err := r.Get(ctx, infrds.GameInfoKey(gameID)).Bytes(); err == nil {
			_ = json.Unmarshal(bs, &gameInfo)
		} else if err != goredis.Nil {
			c.CustomAbort(503, "redis error")
			return
		}
	}

	if gameInfo == nil {
		// DB fallback：从数据库读取，并回填 Redis
		gs, err := model.GetGameSnapshot(ctx, infmysql.SQLX(), gameID)
		if err != nil {
			if chelper.IsNoRows(err) {
				c.CustomAbort(404, "game not found")
				return
			}
			c.CustomAbort(503, "db error")
			return
		}
		gameInfo = snapshotToMap(gs)

		if r := infrds.Client(); r != nil {
			if b, e := json.Marshal(gameInfo); e == nil {
				_ = r.Set(ctx, infrds.GameInfoKey(gameID), b, gameInfoBackfillTTL).Err()
			}
		}
	}

	c.Data["json"] = map[string]any{
		"ok":   true,
		"game": gameInfo,
	}
	_ = c.ServeJSON()
}

// GetResults 查询开奖结果与中奖名单
func (c *QueryController) GetResults() {
	gameID := c.Ctx.Input.Param(":game_id")
	if gameID == "" {
		c.CustomAbort(400, "game_id is required")
		return
	}

	ctx := c.Ctx.Request.Context()

	var drawResult map[string]any

	if r := infrds.Client(); r != nil {
		if bs, err := r.Get(ctx, infrds.GameResultKey(gameID)).Bytes(); err == nil {
			_ = json.Unmarshal(bs, &drawResult)
		} else if err != goredis.Nil {
			c.CustomAbort(503, "redis error")
			return
		}
	}

	// 中奖名单始终从 DB 读（名单可能较大，不进缓存）。
	// game_results 仅含中奖票；未中奖票的结算结果在票行上，走单票/玩家查询
	winners, err := model.ListGameResults(ctx, infmysql.SQLX(), gameID)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	if drawResult == nil {
		gs, err := model.GetGameSnapshot(ctx, infmysql.SQLX(), gameID)
		if err != nil {
			if chelper.IsNoRows(err) {
				c.CustomAbort(404, "game not found")
				return
			}
			c.CustomAbort(503, "db error")
			return
		}
		if gs.WinningNumbers == "" {
			// 尚未开奖
			c.Data["json"] = map[string]any{
				"ok":      true,
				"game_id": gameID,
				"phase":   gs.PhaseStr,
			}
			_ = c.ServeJSON()
			return
		}
		drawResult = map[string]any{
			"game_id":         gameID,
			"winning_numbers": gs.WinningNumbers,
			"phase":           gs.PhaseStr,
			"prize_pool":      gs.PrizePool,
			"total_tickets":   gs.TicketsSold,
		}
		if r := infrds.Client(); r != nil {
			if b, e := json.Marshal(drawResult); e == nil {
				_ = r.Set(ctx, infrds.GameResultKey(gameID), b, gameResultBackfillTTL).Err()
			}
		}
	}

	c.Data["json"] = map[string]any{
		"ok":          true,
		"draw_result": drawResult,
		"winners":     winners,
	}
	_ = c.ServeJSON()
}

// GetTicket 按局内序号查询单张票
func (c *QueryController) GetTicket() {
	gameID := c.Ctx.Input.Param(":game_id")
	seqStr := c.Ctx.Input.Param(":seq")
	if gameID == "" || seqStr == "" {
		c.CustomAbort(400, "game_id and seq are required")
		return
	}
	if !chelper.CtypeDigit(seqStr) {
		c.CustomAbort(400, "seq must be a positive integer")
		return
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq <= 0 {
		c.CustomAbort(400, "seq must be a positive integer")
		return
	}

	t, err := model.GetTicketBySeq(c.Ctx.Request.Context(), infmysql.SQLX(), gameID, seq)
	if err != nil {
		if chelper.IsNoRows(err) {
			c.CustomAbort(404, "ticket not found")
			return
		}
		c.CustomAbort(503, "db error")
		return
	}

	c.Data["json"] = map[string]any{
		"ok":     true,
		"ticket": t,
	}
	_ = c.ServeJSON()
}

// ListGames 最近的局列表（管理/大厅）
func (c *QueryController) ListGames() {
	limit := 0
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	list, err := model.ListRecentGames(c.Ctx.Request.Context(), infmysql.SQLX(), limit)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	c.Data["json"] = map[string]any{
		"ok":    true,
		"games": list,
	}
	_ = c.ServeJSON()
}

// GetAudit 查询单局的状态机审计轨迹（管理/排障）
func (c *QueryController) GetAudit() {
	gameID := c.Ctx.Input.Param(":game_id")
	if gameID == "" {
		c.CustomAbort(400, "game_id is required")
		return
	}

	limit := 0
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	records, err := model.ListGameAudit(c.Ctx.Request.Context(), infmysql.SQLX(), gameID, limit)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	total, err := model.CountGameAudit(c.Ctx.Request.Context(), infmysql.SQLX(), gameID)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	// 附带展示友好的时间字符串
	events := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		events = append(events, map[string]any{
			"event_type":     rec.EventType,
			"prev_state":     rec.PrevState,
			"next_state":     rec.NextState,
			"operator":       rec.Operator,
			"source":         rec.Source,
			"payload":        rec.Payload,
			"created_at":     rec.CreatedAt,
			"created_at_str": chelper.MilliUnixToStr(rec.CreatedAt),
		})
	}

	c.Data["json"] = map[string]any{
		"ok":     true,
		"total":  total,
		"events": events,
	}
	_ = c.ServeJSON()
}

// GetGameTickets 整局票明细（管理/对账），按局内序号排列
func (c *QueryController) GetGameTickets() {
	gameID := c.Ctx.Input.Param(":game_id")
	if gameID == "" {
		c.CustomAbort(400, "game_id is required")
		return
	}

	limit := 0
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	ctx := c.Ctx.Request.Context()

	g, err := model.GetGame(ctx, infmysql.SQLX(), gameID)
	if err != nil {
		if chelper.IsNoRows(err) {
			c.CustomAbort(404, "game not found")
			return
		}
		c.CustomAbort(503, "db error")
		return
	}

	records, err := model.ListGameTickets(ctx, infmysql.SQLX(), gameID, limit)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	c.Data["json"] = map[string]any{
		"ok":           true,
		"game_id":      g.GameID,
		"phase":        g.PhaseStr,
		"tickets_sold": g.TicketsSold,
		"prize_pool":   g.PrizePool,
		"tickets":      records,
	}
	_ = c.ServeJSON()
}

// PlayerTickets 当前玩家的购票记录（身份由认证中间件注入）
func (c *QueryController) PlayerTickets() {
	p, ok := c.currentPlayer()
	if !ok {
		return
	}

	gameID := strings.TrimSpace(c.Ctx.Input.Query("game_id"))
	limit := 0
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	records, err := model.ListPlayerTickets(c.Ctx.Request.Context(), infmysql.SQLX(), p.ID, gameID, limit)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	c.Data["json"] = map[string]any{
		"ok":      true,
		"tickets": records,
	}
	_ = c.ServeJSON()
}

// PlayerHistory 当前玩家的购票/领奖流水
func (c *QueryController) PlayerHistory() {
	p, ok := c.currentPlayer()
	if !ok {
		return
	}

	limit := 0
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil {
			limit = v
		}
	}

	records, err := model.ListPlayerHistory(c.Ctx.Request.Context(), infmysql.SQLX(), p.ID, limit)
	if err != nil {
		c.CustomAbort(503, "db error")
		return
	}

	c.Data["json"] = map[string]any{
		"ok":      true,
		"history": records,
	}
	_ = c.ServeJSON()
}

// currentPlayer 从认证中间件注入的数据定位玩家；
// 未认证返回 401，玩家不存在返回 404（从未购过票的玩家没有记录）
func (c *QueryController) currentPlayer() (*model.Player, bool) {
	platformID := int8(0)
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
		c.CustomAbort(401, "unauthorized")
		return nil, false
	}

	p, err := model.GetPlayerByPlatformUser(context.Background(), infmysql.SQLX(), platformID, platformUserID)
	if err != nil {
		if chelper.IsNoRows(err) {
			c.CustomAbort(404, "player not found")
			return nil, false
		}
		c.CustomAbort(503, "db error")
		return nil, false
	}
	return p, true
}

// snapshotToMap 组装单局信息，金额同时给出展示友好的字符串
func snapshotToMap(gs *model.GameSnapshot) map[string]any {
	return map[string]any{
		"game_id":          gs.GameID,
		"ticket_price":     gs.TicketPrice,
		"ticket_price_str": helper.UnitsToMoney(gs.TicketPrice),
		"max_tickets":      gs.MaxTickets,
		"tickets_sold":     gs.TicketsSold,
		"prize_pool":       gs.PrizePool,
		"phase":            gs.PhaseStr,
		"start_time":       gs.StartTime,
		"end_time":         gs.EndTime,
		"seal_enabled":     gs.SealEnabled,
		"unlock_time":      gs.UnlockTime,
		"winning_numbers":  gs.WinningNumbers,
		"ready_to_reveal":  gs.PhaseStr == "sealed" && gs.UnlockTime > 0 && time.Now().UnixMilli() >= gs.UnlockTime,
	}
}
