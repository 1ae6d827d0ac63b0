package model

import (
	"context"
	"time"

	"lotto-server/common"

	goqu "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// GameEventAudit 对应 game_event_audit 表（状态机审计）
// event_type 采用数值枚举（1=game_create 2=pause 3=resume 4=game_end
// 5=draw_sealed 6=draw_settled 7=seal_reveal 8=emergency_reveal 9=prize_claim）
// prev_state/next_state 使用字符串快照，便于直观查询
type GameEventAudit struct {
	ID int64 `db:"id"`
	// 游戏ID
	GameID string `db:"game_id"`
	// 事件类型（数值枚举，见上）
	EventType int8   `db:"event_type"`
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// 审计事件枚举
const (
	AuditGameCreate      int8 = 1
	AuditPause           int8 = 2
	AuditResume          int8 = 3
	AuditGameEnd         int8 = 4
	AuditDrawSealed      int8 = 5
	AuditDrawSettled     int8 = 6
	AuditSealReveal      int8 = 7
	AuditEmergencyReveal int8 = 8
	AuditPrizeClaim      int8 = 9
	AuditPoolWithdraw    int8 = 10
)

// Insert
func (e *GameEventAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO game_event_audit (game_id, event_type, prev_state, next_state, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.GameID, e.EventType, e.PrevState, e.NextState, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// AuditRecord 审计查询用的投影
type AuditRecord struct {
	EventType int8   `db:"event_type" json:"event_type"`
	PrevState string `db:"prev_state" json:"prev_state"`
	NextState string `db:"next_state" json:"next_state"`
	Operator  string `db:"operator" json:"operator"`
	Source    string `db:"source" json:"source"`
	Payload   string `db:"payload" json:"payload"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// ListGameAudit 按游戏ID查询审计轨迹（升序）。
// 只读查询走通用 goqu 查询器，写路径保持原生 SQL。
func ListGameAudit(ctx context.Context, db *sqlx.DB, gameID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []AuditRecord
	err := common.SelectAllCtx(ctx, &records, common.ReadQuery{
		Db:    db,
		Table: "game_event_audit",
		Cols:  common.DBFields(AuditRecord{}),
		Where: []exp.Expression{goqu.C("game_id").Eq(gameID)},
		Order: []exp.OrderedExpression{goqu.C("id").Asc()},
		Limit: uint(limit),
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountGameAudit 统计单局审计事件总数，供列表截断时提示调用方
func CountGameAudit(ctx context.Context, db *sqlx.DB, gameID string) (int64, error) {
	return common.CountCtx(ctx, db, "game_event_audit", goqu.C("game_id").Eq(gameID))
}
