package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// LotteryGame 对应 lottery_games 表
// 说明：时间为毫秒时间戳在 Repo 层转换；状态采用"数值码+冗余字符串"双写
// phase: 1=waiting 2=active 3=drawing 4=sealed 5=finished
// 金额字段（ticket_price/prize_pool）为最小货币单位的整数，避免浮点误差
// is_settled: 0=未结算 1=已结算（防止重复结算）
type LotteryGame struct {
	ID             int64  `db:"id"`
	GameID         string `db:"game_id"`         // 业务游戏ID（唯一）
	TicketPrice    int64  `db:"ticket_price"`    // 单张票价（最小单位，>0）
	MaxTickets     int    `db:"max_tickets"`     // 票量上限（>0）
	TicketsSold    int    `db:"tickets_sold"`    // 已售票数（亦即下一张票序号-1）
	PrizePool      int64  `db:"prize_pool"`      // 奖池累计（票款之和）
	Phase          int8   `db:"phase"`           // 状态码
	PhaseStr       string `db:"phase_str"`       // 状态字符串快照
	StartTime      int64  `db:"start_time"`      // 开售时间（毫秒）
	EndTime        int64  `db:"end_time"`        // 截止时间（毫秒），到达后方可 game_end
	SealEnabled    int8   `db:"seal_enabled"`    // 是否延迟揭晓: 0=否 1=是
	UnlockTime     int64  `db:"unlock_time"`     // 封存解锁时间（毫秒，仅 seal_enabled=1 时有效）
	SeedRequestID  string `db:"seed_request_id"` // 随机种子请求ID（防串局）
	WinningNumbers string `db:"winning_numbers"` // 开奖号码(JSON数组，未开奖为空串)
	IsSettled      int8   `db:"is_settled"`      // 是否已结算: 0=未结算 1=已结算
	TraceID        string `db:"trace_id"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

// 状态码与字符串的双向映射（与 internal/state 的字符串保持一致）
func PhaseCode(s string) int8 {
	switch s {
	case "waiting":
		return 1
	case "active":
		return 2
	case "drawing":
		return 3
	case "sealed":
		return 4
	case "finished":
		return 5
	default:
		return 0
	}
}

func PhaseStr(c int8) string {
	switch c {
	case 1:
		return "waiting"
	case 2:
		return "active"
	case 3:
		return "drawing"
	case 4:
		return "sealed"
	case 5:
		return "finished"
	default:
		return ""
	}
}

// Insert 创建新的一局（初始状态 active，开售即生效）
func (g *LotteryGame) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	st := g.StartTime
	if st == 0 {
		st = now
	}

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO lottery_games (game_id, ticket_price, max_tickets, tickets_sold, prize_pool,
		phase, phase_str, start_time, end_time, seal_enabled, unlock_time,
		seed_request_id, winning_numbers, is_settled, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?, ?, ?, ?, ?, '', '', 0, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, g.GameID, g.TicketPrice, g.MaxTickets,
		g.Phase, PhaseStr(g.Phase), st, g.EndTime, g.SealEnabled, g.UnlockTime,
		g.TraceID, now, now)
	return err
}

// GetGameForUpdate 在事务中按游戏ID加锁并返回整行（用于购票/状态流转时的串行化）
func GetGameForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string) (*LotteryGame, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, game_id, ticket_price, max_tickets, tickets_sold, prize_pool,
		phase, phase_str, start_time, end_time, seal_enabled, unlock_time,
		seed_request_id, winning_numbers, is_settled, trace_id, created_at, updated_at
		FROM lottery_games WHERE game_id = ? FOR UPDATE`
	var g LotteryGame
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGameBySeedRequestForUpdate 按种子请求ID加锁查询（种子回调入口）
// 匹配不到行即说明回调过期或与任何在局请求不符
func GetGameBySeedRequestForUpdate(ctx context.Context, exec sqlx.ExtContext, requestID string) (*LotteryGame, error) {
	sqlStr := `SELECT id, game_id, ticket_price, max_tickets, tickets_sold, prize_pool,
		phase, phase_str, start_time, end_time, seal_enabled, unlock_time,
		seed_request_id, winning_numbers, is_settled, trace_id, created_at, updated_at
		FROM lottery_games WHERE seed_request_id = ? FOR UPDATE`
	var g LotteryGame
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, requestID); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGame 获取游戏信息（不加锁）
func GetGame(ctx context.Context, exec sqlx.ExtContext, gameID string) (*LotteryGame, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, game_id, ticket_price, max_tickets, tickets_sold, prize_pool,
		phase, phase_str, start_time, end_time, seal_enabled, unlock_time,
		seed_request_id, winning_numbers, is_settled, trace_id, created_at, updated_at
		FROM lottery_games WHERE game_id = ?`
	var g LotteryGame
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdatePhase 更新游戏状态（数值码与字符串双写）
func UpdatePhase(ctx context.Context, exec sqlx.ExtContext, gameID string, newPhase int8) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE lottery_games SET phase = ?, phase_str = ?, updated_at = ? WHERE game_id = ?"
	args := []interface{}{newPhase, PhaseStr(newPhase), now, gameID}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// SetSeedRequest 记录种子请求ID并推进到 drawing 状态（game_end 时调用）
func SetSeedRequest(ctx context.Context, exec sqlx.ExtContext, gameID, requestID string) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE lottery_games SET seed_request_id = ?, phase = 3, phase_str = 'drawing', updated_at = ? WHERE game_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, requestID, now, gameID)
	return err
}

// UpdateDrawResult 写入开奖号码并推进状态
func UpdateDrawResult(ctx context.Context, exec sqlx.ExtContext, gameID, numbersJSON string, newPhase int8) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE lottery_games SET winning_numbers = ?, phase = ?, phase_str = ?, updated_at = ? WHERE game_id = ?"
	args := []interface{}{numbersJSON, newPhase, PhaseStr(newPhase), now, gameID}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// SellTicket 在持有行锁的前提下累加已售票数与奖池，返回本次分配的票序号
// 调用方必须先 GetGameForUpdate 并完成容量/状态校验
func SellTicket(ctx context.Context, exec sqlx.ExtContext, g *LotteryGame) (int, error) {
	now := time.Now().UnixMilli()
	seq := g.TicketsSold + 1

	sqlStr := "UPDATE lottery_games SET tickets_sold = ?, prize_pool = prize_pool + ?, updated_at = ? WHERE game_id = ?"
	if _, err := exec.ExecContext(ctx, sqlStr, seq, g.TicketPrice, now, g.GameID); err != nil {
		return 0, err
	}
	return seq, nil
}

// DeductPool 在持有行锁的前提下从奖池扣减金额（结算后提取未派出余额）
// 条件写保证并发下不会扣成负数
func DeductPool(ctx context.Context, exec sqlx.ExtContext, gameID string, amount int64) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE lottery_games SET prize_pool = prize_pool - ?, updated_at = ? WHERE game_id = ? AND prize_pool >= ?"
	result, err := exec.ExecContext(ctx, sqlStr, amount, now, gameID, amount)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkGameSettled 标记已结算并进入 finished 状态
func MarkGameSettled(ctx context.Context, exec sqlx.ExtContext, gameID string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE lottery_games SET is_settled = 1, phase = 5, phase_str = 'finished', updated_at = ? WHERE game_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, now, gameID)
	return err
}

// GameSnapshot 提供 GET 接口所需的最小字段集合
type GameSnapshot struct {
	GameID         string `db:"game_id" json:"game_id"`
	TicketPrice    int64  `db:"ticket_price" json:"ticket_price"`
	MaxTickets     int    `db:"max_tickets" json:"max_tickets"`
	TicketsSold    int    `db:"tickets_sold" json:"tickets_sold"`
	PrizePool      int64  `db:"prize_pool" json:"prize_pool"`
	PhaseStr       string `db:"phase_str" json:"phase"`
	StartTime      int64  `db:"start_time" json:"start_time"`
	EndTime        int64  `db:"end_time" json:"end_time"`
	SealEnabled    int8   `db:"seal_enabled" json:"seal_enabled"`
	UnlockTime     int64  `db:"unlock_time" json:"unlock_time"`
	WinningNumbers string `db:"winning_numbers" json:"winning_numbers"`
}

// GetGameSnapshot 按游戏ID查询所需字段（无锁读取）
func GetGameSnapshot(ctx context.Context, exec sqlx.ExtContext, gameID string) (*GameSnapshot, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT game_id, ticket_price, max_tickets, tickets_sold, prize_pool, phase_str,
		start_time, end_time, seal_enabled, unlock_time, winning_numbers
		FROM lottery_games WHERE game_id = ?`
	var gs GameSnapshot
	if err := sqlx.GetContext(ctx, exec, &gs, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &gs, nil
}

// ListRecentGames 按创建时间倒序列出最近的游戏（管理/大厅列表）
func ListRecentGames(ctx context.Context, db *sqlx.DB, limit int) ([]GameSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	sqlStr := `SELECT game_id, ticket_price, max_tickets, tickets_sold, prize_pool, phase_str,
		start_time, end_time, seal_enabled, unlock_time, winning_numbers
		FROM lottery_games ORDER BY id DESC LIMIT ?`

	var list []GameSnapshot
	if err := db.SelectContext(ctx, &list, sqlStr, limit); err != nil {
		return nil, err
	}
	return list, nil
}
