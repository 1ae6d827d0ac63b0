package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SealedDraw 对应 sealed_draws 表（延迟揭晓的封存记录）
// 每局至多一条（唯一键 game_id）；密钥托管在外部时间锁服务，库内只存密文
// revealed: 0=未揭晓 1=已揭晓
type SealedDraw struct {
	ID              int64  `db:"id"`
	GameID          string `db:"game_id"`
	RequestID       string `db:"request_id"`  // 时间锁解锁请求ID（防串局）
	Ciphertext      string `db:"ciphertext"`  // 封存的开奖号码密文(hex)
	Nonce           string `db:"nonce"`       // AES-GCM nonce(hex)
	UnlockTime      int64  `db:"unlock_time"` // 约定解锁时间（毫秒）
	Revealed        int8   `db:"revealed"`
	RevealedNumbers string `db:"revealed_numbers"` // 揭晓后的明文号码(JSON)
	TraceID         string `db:"trace_id"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

// Insert 插入封存记录（唯一键 game_id 防止一局封存两次）
func (s *SealedDraw) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO sealed_draws (game_id, request_id, ciphertext, nonce, unlock_time, revealed, revealed_numbers, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, s.GameID, s.RequestID, s.Ciphertext, s.Nonce, s.UnlockTime, s.TraceID, now, now)
	return err
}

// GetSealedDrawForUpdate 在事务中按游戏ID加锁查询封存记录
func GetSealedDrawForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string) (*SealedDraw, error) {
	sqlStr := `SELECT id, game_id, request_id, ciphertext, nonce, unlock_time, revealed, revealed_numbers,
		trace_id, created_at, updated_at
		FROM sealed_draws WHERE game_id = ? FOR UPDATE`
	var s SealedDraw
	if err := sqlx.GetContext(ctx, exec, &s, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSealedDrawByRequestID 按解锁请求ID查询（解锁回调入口）
func GetSealedDrawByRequestID(ctx context.Context, exec sqlx.ExtContext, requestID string) (*SealedDraw, error) {
	sqlStr := `SELECT id, game_id, request_id, ciphertext, nonce, unlock_time, revealed, revealed_numbers,
		trace_id, created_at, updated_at
		FROM sealed_draws WHERE request_id = ?`
	var s SealedDraw
	if err := sqlx.GetContext(ctx, exec, &s, sqlStr, requestID); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkRevealed 揭晓成功后回写明文号码
func MarkRevealed(ctx context.Context, exec sqlx.ExtContext, gameID, numbersJSON string) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE sealed_draws SET revealed = 1, revealed_numbers = ?, updated_at = ? WHERE game_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, numbersJSON, now, gameID)
	return err
}
