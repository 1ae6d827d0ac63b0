package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// PlayerHistory 对应 player_history 表（玩家行为流水，追加式）
// action: 1=purchase 购票 2=claim 领奖，同时冗余 action_str 便于查询
type PlayerHistory struct {
	ID        int64  `db:"id"`
	PlayerID  int64  `db:"player_id"`
	GameID    string `db:"game_id"`
	TicketNo  string `db:"ticket_no"`
	Action    int8   `db:"action"`
	ActionStr string `db:"action_str"`
	Amount    int64  `db:"amount"` // 购票=票价，领奖=奖金
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

const (
	ActionPurchase int8 = 1
	ActionClaim    int8 = 2
)

func actionStr(c int8) string {
	switch c {
	case ActionPurchase:
		return "purchase"
	case ActionClaim:
		return "claim"
	default:
		return ""
	}
}

// Insert 追加一条玩家流水（action 数值码与字符串双写）
func (h *PlayerHistory) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO player_history (player_id, game_id, ticket_no, action, action_str, amount, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{h.PlayerID, h.GameID, h.TicketNo, h.Action, actionStr(h.Action), h.Amount, h.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// HistoryRecord 玩家流水查询用的投影
type HistoryRecord struct {
	GameID    string `db:"game_id" json:"game_id"`
	TicketNo  string `db:"ticket_no" json:"ticket_no"`
	ActionStr string `db:"action_str" json:"action"`
	Amount    int64  `db:"amount" json:"amount"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// ListPlayerHistory 查询玩家流水，按时间倒序
func ListPlayerHistory(ctx context.Context, db *sqlx.DB, playerID int64, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	sqlStr := `SELECT game_id, ticket_no, action_str, amount, created_at
		FROM player_history WHERE player_id = ? ORDER BY id DESC LIMIT ?`

	var records []HistoryRecord
	if err := db.SelectContext(ctx, &records, sqlStr, playerID, limit); err != nil {
		return nil, err
	}
	return records, nil
}
