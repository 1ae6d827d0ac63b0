package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// GameResult 对应 game_results 表（每张中奖票一行，结算时批量写入）
// tier: 命中个数(1/2/3)，未中奖的票不入此表
type GameResult struct {
	ID        int64  `db:"id"`
	GameID    string `db:"game_id"`
	TicketNo  string `db:"ticket_no"`
	Seq       int    `db:"seq"`
	PlayerID  int64  `db:"player_id"`
	Numbers   string `db:"numbers"` // 票面号码(JSON)
	Tier      int    `db:"tier"`    // 命中个数
	Prize     int64  `db:"prize"`   // 应得奖金(最小单位)
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert 插入一条中奖记录
func (r *GameResult) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO game_results (game_id, ticket_no, seq, player_id, numbers, tier, prize, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, r.GameID, r.TicketNo, r.Seq, r.PlayerID, r.Numbers, r.Tier, r.Prize, r.TraceID, now)
	return err
}

// ResultRow 开奖结果查询用的轻量投影
type ResultRow struct {
	TicketNo string `db:"ticket_no" json:"ticket_no"`
	Seq      int    `db:"seq" json:"seq"`
	PlayerID int64  `db:"player_id" json:"player_id"`
	Numbers  string `db:"numbers" json:"numbers"`
	Tier     int    `db:"tier" json:"tier"`
	Prize    int64  `db:"prize" json:"prize"`
}

// ListGameResults 按游戏ID查询中奖记录（无锁，供查询接口使用）
func ListGameResults(ctx context.Context, db *sqlx.DB, gameID string) ([]ResultRow, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT ticket_no, seq, player_id, numbers, tier, prize
		FROM game_results WHERE game_id = ? ORDER BY tier DESC, seq ASC`

	var list []ResultRow
	if err := db.SelectContext(ctx, &list, sqlStr, gameID); err != nil {
		return nil, err
	}
	return list, nil
}
