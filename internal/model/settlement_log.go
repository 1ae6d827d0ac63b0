package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettlementLog 结算日志表（防止重复结算）
// 唯一键 game_id：同一局第二次结算会触发唯一键冲突
type SettlementLog struct {
	ID             int64  `db:"id"`              // 自增ID
	GameID         string `db:"game_id"`         // 游戏ID
	WinningNumbers string `db:"winning_numbers"` // 开奖号码(JSON)
	TotalTickets   int    `db:"total_tickets"`   // 参与结算的票数
	TotalPayout    int64  `db:"total_payout"`    // 总派奖金额(最小单位)
	Operator       string `db:"operator"`        // 操作人/来源
	TraceID        string `db:"trace_id"`        // 链路追踪ID
	CreatedAt      int64  `db:"created_at"`      // 创建时间（13位毫秒时间戳）
}

// CreateSettlementLog 创建结算日志（利用唯一索引防止重复结算）
// 如果返回唯一键冲突错误，说明该局已经结算过
func CreateSettlementLog(ctx context.Context, exec sqlx.ExtContext, log *SettlementLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO settlement_log (game_id, winning_numbers, total_tickets, total_payout, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.GameID, log.WinningNumbers, log.TotalTickets, log.TotalPayout, log.Operator, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}

// UpdateSettlementStats 回写结算统计（票数与总派奖）
func UpdateSettlementStats(ctx context.Context, exec sqlx.ExtContext, gameID string, totalTickets int, totalPayout int64) error {
	sqlStr := "UPDATE settlement_log SET total_tickets = ?, total_payout = ? WHERE game_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, totalTickets, totalPayout, gameID)
	return err
}

// GetSettlementLog 查询结算日志
func GetSettlementLog(ctx context.Context, db *sqlx.DB, gameID string) (*SettlementLog, error) {
	sqlStr := `SELECT id, game_id, winning_numbers, total_tickets, total_payout, operator, trace_id, created_at
	           FROM settlement_log WHERE game_id = ? LIMIT 1`

	var log SettlementLog
	if err := db.GetContext(ctx, &log, sqlStr, gameID); err != nil {
		return nil, err
	}

	return &log, nil
}
