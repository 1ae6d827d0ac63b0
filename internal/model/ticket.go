package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Ticket 对应 tickets 表
// 票序号 seq 在单局内从1开始连续递增，唯一键(game_id, seq)
// claimed: 0=未领奖 1=已领奖
type Ticket struct {
	ID             int64  `db:"id"`
	TicketNo       string `db:"ticket_no"`       // 票号(业务唯一键)
	GameID         string `db:"game_id"`         // 游戏ID
	Seq            int    `db:"seq"`             // 局内票序号(从1开始连续)
	PlayerID       int64  `db:"player_id"`       // 玩家ID（内部ID）
	Numbers        string `db:"numbers"`         // 所选号码(JSON数组，升序入库)
	Paid           int64  `db:"paid"`            // 支付金额(等于票价)
	Claimed        int8   `db:"claimed"`         // 领奖状态
	Prize          int64  `db:"prize"`           // 中奖金额(结算后写入)
	Matches        int    `db:"matches"`         // 命中个数(结算后写入)
	IdempotencyKey string `db:"idempotency_key"` // 幂等键
	TraceID        string `db:"trace_id"`        // 链路追踪ID
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

// Insert 插入一张票（seq 由调用方在持有游戏行锁时分配）
func (t *Ticket) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO tickets (ticket_no, game_id, seq, player_id, numbers, paid, claimed, prize, matches,
		idempotency_key, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, t.TicketNo, t.GameID, t.Seq, t.PlayerID, t.Numbers, t.Paid,
		t.IdempotencyKey, t.TraceID, now, now)
	return err
}

// ListByGameForUpdate 按游戏ID查询全部票（FOR UPDATE），结算时在事务中调用
func ListByGameForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string) ([]Ticket, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, ticket_no, game_id, seq, player_id, numbers, paid
		FROM tickets WHERE game_id = ? ORDER BY seq ASC FOR UPDATE`

	var list []Ticket
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, gameID); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTicketForUpdate 按票号加锁查询（领奖时在事务中调用）
func GetTicketForUpdate(ctx context.Context, exec sqlx.ExtContext, ticketNo string) (*Ticket, error) {
	sqlStr := `SELECT id, ticket_no, game_id, seq, player_id, numbers, paid, claimed, prize, matches,
		idempotency_key, trace_id, created_at, updated_at
		FROM tickets WHERE ticket_no = ? FOR UPDATE`
	var t Ticket
	if err := sqlx.GetContext(ctx, exec, &t, sqlStr, ticketNo); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTicket 按票号查询（不加锁）
func GetTicket(ctx context.Context, exec sqlx.ExtContext, ticketNo string) (*Ticket, error) {
	sqlStr := `SELECT id, ticket_no, game_id, seq, player_id, numbers, paid, claimed, prize, matches,
		idempotency_key, trace_id, created_at, updated_at
		FROM tickets WHERE ticket_no = ?`
	var t Ticket
	if err := sqlx.GetContext(ctx, exec, &t, sqlStr, ticketNo); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateSettlement 结算后回写命中个数与奖金
func UpdateTicketSettlement(ctx context.Context, exec sqlx.ExtContext, id int64, matches int, prize int64) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE tickets SET matches = ?, prize = ?, updated_at = ? WHERE id = ?"
	args := []interface{}{matches, prize, now, id}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// MarkTicketClaimed 标记已领奖（零奖金的票同样标记，保证领奖只发生一次）
func MarkTicketClaimed(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE tickets SET claimed = 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}

// TicketRecord 购票记录（用于查询接口）
type TicketRecord struct {
	TicketNo  string `db:"ticket_no" json:"ticket_no"`
	GameID    string `db:"game_id" json:"game_id"`
	Seq       int    `db:"seq" json:"seq"`
	Numbers   string `db:"numbers" json:"numbers"`
	Paid      int64  `db:"paid" json:"paid"`
	Claimed   int8   `db:"claimed" json:"claimed"`
	Prize     int64  `db:"prize" json:"prize"`
	Matches   int    `db:"matches" json:"matches"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// ListPlayerTickets 查询玩家的购票记录
// gameID 可选，为空则查询所有；limit 默认 10，最多 100
func ListPlayerTickets(ctx context.Context, db *sqlx.DB, playerID int64, gameID string, limit int) ([]TicketRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	var sqlStr string
	var args []interface{}

	if gameID != "" {
		sqlStr = `SELECT ticket_no, game_id, seq, numbers, paid, claimed, prize, matches, created_at, updated_at
			FROM tickets
			WHERE player_id = ? AND game_id = ?
			ORDER BY id DESC
			LIMIT ?`
		args = []interface{}{playerID, gameID, limit}
	} else {
		sqlStr = `SELECT ticket_no, game_id, seq, numbers, paid, claimed, prize, matches, created_at, updated_at
			FROM tickets
			WHERE player_id = ?
			ORDER BY id DESC
			LIMIT ?`
		args = []interface{}{playerID, limit}
	}

	var records []TicketRecord
	if err := db.SelectContext(ctx, &records, sqlStr, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// GetTicketBySeq 按局内序号查询单张票（无锁，供查询接口使用）
func GetTicketBySeq(ctx context.Context, exec sqlx.ExtContext, gameID string, seq int) (*TicketRecord, error) {
	sqlStr := `SELECT ticket_no, game_id, seq, numbers, paid, claimed, prize, matches, created_at, updated_at
		FROM tickets WHERE game_id = ? AND seq = ?`
	var t TicketRecord
	if err := sqlx.GetContext(ctx, exec, &t, sqlStr, gameID, seq); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListGameTickets 查询某局的全部票（无锁，供查询接口使用）
func ListGameTickets(ctx context.Context, db *sqlx.DB, gameID string, limit int) ([]TicketRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	sqlStr := `SELECT ticket_no, game_id, seq, numbers, paid, claimed, prize, matches, created_at, updated_at
		FROM tickets WHERE game_id = ? ORDER BY seq ASC LIMIT ?`

	var records []TicketRecord
	if err := db.SelectContext(ctx, &records, sqlStr, gameID, limit); err != nil {
		return nil, err
	}
	return records, nil
}
