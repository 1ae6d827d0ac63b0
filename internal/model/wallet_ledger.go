package model

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// WalletLedger 对应 wallet_ledger 表（追加式账本）
// 说明：金额为非负的最小货币单位整数；方向由 before_amount/after_amount 与 biz_type 推导
// biz_type: 1=purchase 购票 2=prize 派奖 3=refund 退款 4=adjust 后台调整
// 同时冗余 biz_type_str 便于查询
type WalletLedger struct {
	ID           int64  `db:"id"`
	PlayerID     int64  `db:"player_id"`
	BizType      int    `db:"biz_type"`
	BizTypeStr   string `db:"biz_type_str"`
	Amount       int64  `db:"amount"`
	BeforeAmount int64  `db:"before_amount"`
	AfterAmount  int64  `db:"after_amount"`
	TicketNo     string `db:"ticket_no"`
	GameID       string `db:"game_id"`
	Remark       string `db:"remark"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// Insert 新增一条账本记录（biz_type 数值码与字符串双写）
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	code := l.BizType
	str := l.BizTypeStr
	if code == 0 && str != "" {
		switch strings.ToLower(str) {
		case "purchase":
			code = 1
		case "prize":
			code = 2
		case "refund":
			code = 3
		case "adjust":
			code = 4
		}
	}
	if str == "" && code != 0 {
		switch code {
		case 1:
			str = "purchase"
		case 2:
			str = "prize"
		case 3:
			str = "refund"
		case 4:
			str = "adjust"
		}
	}
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO wallet_ledger (player_id, biz_type, biz_type_str, amount, before_amount, after_amount, ticket_no, game_id, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.PlayerID, code, str, l.Amount, l.BeforeAmount, l.AfterAmount, l.TicketNo, l.GameID, l.Remark, l.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
