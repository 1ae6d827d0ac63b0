package model

import (
	"context"
	"time"

	chelper "lotto-server/common/helper"
	"lotto-server/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Player 玩家表
// 玩家唯一标识 = platform_id + platform_user_id
// 余额为最小货币单位的整数
type Player struct {
	ID             int64  `db:"player_id"`        // 自增ID（内部使用）
	PlatformID     int8   `db:"platform_id"`      // 平台ID
	PlatformUserID string `db:"platform_user_id"` // 平台用户ID
	Username       string `db:"username"`         // 用户名（可选）
	Balance        int64  `db:"balance"`          // 余额（最小单位）
	Status         int8   `db:"status"`           // 状态: 1=正常 0=禁用
	CreatedAt      int64  `db:"created_at"`       // 创建时间（13位毫秒时间戳）
	UpdatedAt      int64  `db:"updated_at"`       // 更新时间（13位毫秒时间戳）
}

// GetPlayerByPlatformUser 根据平台ID和平台用户ID查询玩家
func GetPlayerByPlatformUser(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID string) (*Player, error) {
	query := `SELECT player_id, platform_id, platform_user_id, username, balance, status, created_at, updated_at
	          FROM players
	          WHERE platform_id = ? AND platform_user_id = ?
	          LIMIT 1`

	var p Player
	err := db.GetContext(ctx, &p, query, platformID, platformUserID)
	if err != nil {
		if chelper.IsNoRows(err) {
			return nil, err
		}
		logger.Error("get player by platform user failed",
			zap.Int8("platform_id", platformID),
			zap.String("platform_user_id", platformUserID),
			zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// GetPlayerByIDForUpdate 根据内部ID查询玩家（加锁）
// 必须在事务中调用
func GetPlayerByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, playerID int64) (*Player, error) {
	query := `SELECT player_id, platform_id, platform_user_id, username, balance, status, created_at, updated_at
	          FROM players
	          WHERE player_id = ?
	          FOR UPDATE`

	var p Player
	err := sqlx.GetContext(ctx, exec, &p, query, playerID)
	if err != nil {
		if chelper.IsNoRows(err) {
			return nil, err
		}
		logger.Error("get player by id for update failed",
			zap.Int64("player_id", playerID),
			zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// Insert 插入玩家
func (p *Player) Insert(ctx context.Context, db *sqlx.DB) error {
	now := time.Now().UnixMilli()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO players (platform_id, platform_user_id, username, balance, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := db.ExecContext(ctx, query,
		p.PlatformID, p.PlatformUserID, p.Username, p.Balance, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Error("insert player failed",
			zap.Int8("platform_id", p.PlatformID),
			zap.String("platform_user_id", p.PlatformUserID),
			zap.Error(err))
		return err
	}

	id, _ := result.LastInsertId()
	p.ID = id

	logger.Info("player created",
		zap.Int64("id", p.ID),
		zap.Int8("platform_id", p.PlatformID),
		zap.String("platform_user_id", p.PlatformUserID),
		zap.String("username", p.Username))

	return nil
}

// UpdatePlayerBalance 更新玩家余额
func UpdatePlayerBalance(ctx context.Context, exec sqlx.ExtContext, playerID int64, newBalance int64) error {
	now := time.Now().UnixMilli()
	query := `UPDATE players SET balance = ?, updated_at = ? WHERE player_id = ?`

	_, err := exec.ExecContext(ctx, query, newBalance, now, playerID)
	if err != nil {
		logger.Error("update player balance failed",
			zap.Int64("player_id", playerID),
			zap.Int64("new_balance", newBalance),
			zap.Error(err))
		return err
	}

	return nil
}

// GetOrCreatePlayer 获取或创建玩家（自动注册）
// 如果玩家不存在，自动创建；如果存在，返回现有玩家
func GetOrCreatePlayer(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID, username string) (*Player, error) {
	// 1. 先查询玩家是否存在
	p, err := GetPlayerByPlatformUser(ctx, db, platformID, platformUserID)
	if err == nil {
		return p, nil // 玩家已存在
	}

	// 2. 玩家不存在，自动创建
	if chelper.IsNoRows(err) {
		newPlayer := &Player{
			PlatformID:     platformID,
			PlatformUserID: platformUserID,
			Username:       username,
			Balance:        0, // 初始余额
			Status:         1, // 正常状态
		}

		if err := newPlayer.Insert(ctx, db); err != nil {
			// 处理并发创建的情况（唯一索引冲突），重新查询
			if isMySQLDuplicateKeyError(err) {
				logger.Info("concurrent player creation detected, retry query",
					zap.Int8("platform_id", platformID),
					zap.String("platform_user_id", platformUserID))
				return GetPlayerByPlatformUser(ctx, db, platformID, platformUserID)
			}
			return nil, err
		}

		return newPlayer, nil
	}

	return nil, err
}

// isMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func isMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// MySQL 错误码 1062: Duplicate entry
	return err.Error() != "" && (err.Error() == "Error 1062" ||
		err.Error() == "Error 1062: Duplicate entry" ||
		err.Error() == "Duplicate entry")
}

// GetPlayerBalance 获取玩家余额（非锁查询）
func GetPlayerBalance(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID string) (int64, error) {
	query := `SELECT balance FROM players WHERE platform_id = ? AND platform_user_id = ? LIMIT 1`

	var balance int64
	err := db.GetContext(ctx, &balance, query, platformID, platformUserID)
	if err != nil {
		logger.Error("get player balance failed",
			zap.Int8("platform_id", platformID),
			zap.String("platform_user_id", platformUserID),
			zap.Error(err))
		return 0, err
	}

	return balance, nil
}
