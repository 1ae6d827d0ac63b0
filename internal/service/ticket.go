package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lotto-server/internal/draw"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// 处理购票业务逻辑
const (
	BIZ_TYPE_PURCHASE = 1
)

// PurchaseInput 输入参数
// Numbers 为3个互不相同的 [1,100] 整数；Payment 必须与票价完全一致
type PurchaseInput struct {
	GameID           string
	PlatformID       int8   // 平台ID
	PlatformUserID   string // 平台用户ID
	PlatformUserName string // 平台用户名（可选）
	Numbers          []int
	Payment          int64
	IdempotencyKey   string
	TraceID          string
}

type PurchaseOutput struct {
	TicketNo      string
	Seq           int
	RemainBalance int64
}

type TicketService interface {
	PurchaseTicket(ctx context.Context, in PurchaseInput) (*PurchaseOutput, error)
}

type ticketService struct{}

func NewTicketService() TicketService { return &ticketService{} }

const (
	// Redis 进行中锁 TTL：建议小于最短售票窗口，避免长时间阻塞重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：用于重复请求直接返回第一次成功结果；应覆盖到大多数"短时重试"窗口
	idemResultTTL = 1 * time.Minute
)

// PurchaseTicket 处理购票主流程
func (s *ticketService) PurchaseTicket(ctx context.Context, in PurchaseInput) (*PurchaseOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPurchase(result, start) }()

	// ========== 号码与支付校验 ==========
	// 1. 号码恰好3个、互不相同、均在 [1,100]
	// 2. 支付金额必须为正
	// ================================
	if err := draw.ValidateNumbers(in.Numbers); err != nil {
		fmt.Printf("[Purchase] 号码校验失败: numbers=%v, error=%v, trace_id=%s\n",
			in.Numbers, err, in.TraceID)
		return nil, ErrInvalidNumbers
	}
	if in.Payment <= 0 {
		fmt.Printf("[Purchase] 支付金额必须大于0: payment=%d, trace_id=%s\n",
			in.Payment, in.TraceID)
		return nil, ErrWrongPayment
	}

	// 打印接收到的购票请求
	fmt.Printf("[Purchase] 收到购票请求: game_id=%s, platform_id=%d, platform_user_id=%s, numbers=%v, payment=%d, idem_key=%s, trace_id=%s\n",
		in.GameID, in.PlatformID, in.PlatformUserID, in.Numbers, in.Payment, in.IdempotencyKey, in.TraceID)

	// Redis 快路径：若已有结果缓存，直接返回
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out PurchaseOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Purchase] Redis 缓存命中: idem_key=%s, ticket_no=%s, trace_id=%s\n",
					in.IdempotencyKey, out.TicketNo, in.TraceID)
				result = "success_idempotent"
				return &out, nil
			}
		}
		// ========== 分布式锁 ==========
		// 1. 生成唯一锁值（UUID）防止误删其他请求的锁
		// 2. 使用 SetNX 获取锁
		// 3. 使用 Lua 脚本原子释放（仅当锁值匹配时删除）
		// ================================

		// 生成唯一锁值，防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)

		// 进行中锁，吸收瞬时重复
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			// 检查是否有缓存的结果
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out PurchaseOutput
				if json.Unmarshal(bs, &out) == nil {
					fmt.Printf("[Purchase] Redis 缓存命中（重复请求）: idem_key=%s, ticket_no=%s, trace_id=%s\n",
						in.IdempotencyKey, out.TicketNo, in.TraceID)
					result = "success_idempotent"
					return &out, nil
				}
			}
			fmt.Printf("[Purchase] 重复请求进行中: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}

		// 使用 Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			res, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
			if err != nil {
				fmt.Printf("[Purchase] 释放分布式锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			} else if res == int64(0) {
				fmt.Printf("[Purchase] 分布式锁已被其他请求释放或过期: idem_key=%s, trace_id=%s\n",
					in.IdempotencyKey, in.TraceID)
			}
		}()
	}

	// 开启 MySQL 事务（带默认超时，防止长事务影响并发）。
	// 若上游 ctx 已设置 deadline，则沿用；否则使用默认 defaultTxTimeout。
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[Purchase] 开启事务失败: error=%v, game_id=%s, trace_id=%s\n",
			err, in.GameID, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 获取或创建玩家（自动注册）
	player, err := getOrCreatePlayerInTx(txCtx, tx, in.PlatformID, in.PlatformUserID, in.PlatformUserName)
	if err != nil {
		fmt.Printf("[Purchase] 获取或创建玩家失败: error=%v, platform_id=%d, platform_user_id=%s, trace_id=%s\n",
			err, in.PlatformID, in.PlatformUserID, in.TraceID)
		return nil, fmt.Errorf("failed to get or create player: %w", err)
	}

	// 生成票号（使用可读格式，使用内部玩家ID）
	ticketNo := generateTicketNo(player.ID)

	// 获取游戏并锁定：行锁保证 tickets_sold/容量/状态的串行校验
	g, err := model.GetGameForUpdate(txCtx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			fmt.Printf("[Purchase] 游戏不存在: game_id=%s, trace_id=%s\n", in.GameID, in.TraceID)
			return nil, ErrGameNotFound
		}
		fmt.Printf("[Purchase] 查询游戏失败: error=%v, game_id=%s, trace_id=%s\n",
			err, in.GameID, in.TraceID)
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	// 校验状态：仅 active 允许购票
	phase := model.PhaseStr(g.Phase)
	if phase != "active" {
		fmt.Printf("[Purchase] 游戏状态不允许购票: phase=%s(%d), game_id=%s, trace_id=%s\n",
			phase, g.Phase, in.GameID, in.TraceID)
		return nil, ErrSaleNotOpen
	}

	// 验证售票窗口：endTime 为开售截止点本身，到点即停售，与同一瞬间的 EndGame 判定一致
	now := time.Now().UnixMilli()
	if saleWindowClosed(now, g.EndTime) {
		fmt.Printf("[Purchase] 售票窗口已关闭: now=%d, end_time=%d, game_id=%s, trace_id=%s\n",
			now, g.EndTime, in.GameID, in.TraceID)
		return nil, ErrSaleClosed
	}

	// 验证容量
	if g.TicketsSold >= g.MaxTickets {
		fmt.Printf("[Purchase] 票已售罄: sold=%d, max=%d, game_id=%s, trace_id=%s\n",
			g.TicketsSold, g.MaxTickets, in.GameID, in.TraceID)
		return nil, ErrSoldOut
	}

	// 验证支付金额：必须与票价完全一致，不设找零
	if in.Payment != g.TicketPrice {
		fmt.Printf("[Purchase] 支付金额与票价不符: payment=%d, ticket_price=%d, game_id=%s, trace_id=%s\n",
			in.Payment, g.TicketPrice, in.GameID, in.TraceID)
		return nil, ErrWrongPayment
	}

	// 幂等：先占幂等键，ref 记录 ticket_no
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "purchase", Ref: ticketNo}).Insert(txCtx, tx); err != nil {
		// 若幂等冲突：尝试返回上次结果
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			fmt.Printf("[Purchase] 幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			_ = tx.Rollback()
			// Redis 先查
			if r := infrds.Client(); r != nil {
				if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
					var out PurchaseOutput
					if json.Unmarshal(bs, &out) == nil {
						fmt.Printf("[Purchase] 从 Redis 返回上次结果: ticket_no=%s, trace_id=%s\n",
							out.TicketNo, in.TraceID)
						result = "success_idempotent"
						return &out, nil
					}
				}
			}
			// DB 回源：根据幂等键查 ticket_no，再查票与余额
			ref, e1 := model.SelectRefByIdemKey(txCtx, infmysql.SQLX(), in.IdempotencyKey)
			if e1 == nil && ref != "" {
				t, e2 := model.GetTicket(txCtx, infmysql.SQLX(), ref)
				if e2 == nil {
					bal, e3 := model.GetPlayerBalance(txCtx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID)
					if e3 == nil {
						fmt.Printf("[Purchase] 从数据库返回上次结果: ticket_no=%s, trace_id=%s\n",
							ref, in.TraceID)
						result = "success_idempotent"
						return &PurchaseOutput{TicketNo: t.TicketNo, Seq: t.Seq, RemainBalance: bal}, nil
					}
				}
			}
		}
		fmt.Printf("[Purchase] 插入幂等键失败: error=%v, idem_key=%s, trace_id=%s\n",
			err, in.IdempotencyKey, in.TraceID)
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	// 校验玩家状态（player 已经在事务中加锁）
	if player.Status != 1 {
		fmt.Printf("[Purchase] 玩家状态异常: player_id=%d, status=%d, trace_id=%s\n",
			player.ID, player.Status, in.TraceID)
		return nil, errors.New("player disabled")
	}
	// 校验余额
	if player.Balance < in.Payment {
		return nil, ErrInsufficientFunds
	}

	before := player.Balance
	after := before - in.Payment

	// 更新余额
	if err := model.UpdatePlayerBalance(txCtx, tx, player.ID, after); err != nil {
		return nil, err
	}

	// 写账本，此处为扣款
	ledger := &model.WalletLedger{
		PlayerID:     player.ID,
		BizType:      BIZ_TYPE_PURCHASE, //1
		BizTypeStr:   "purchase",        // 冗余
		Amount:       in.Payment,
		BeforeAmount: before,
		AfterAmount:  after,
		TicketNo:     ticketNo,
		GameID:       in.GameID,
		Remark:       "ticket purchase deduct",
		TraceID:      in.TraceID,
	}
	if err := ledger.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Purchase] 写入账本失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	// 分配票序号并累加奖池（持有游戏行锁，序号连续无空洞）
	seq, err := model.SellTicket(txCtx, tx, g)
	if err != nil {
		return nil, err
	}

	// 落票（号码升序入库）
	t := &model.Ticket{
		TicketNo:       ticketNo,
		GameID:         in.GameID,
		Seq:            seq,
		PlayerID:       player.ID,
		Numbers:        numbersToJSON(draw.Normalize(in.Numbers)),
		Paid:           in.Payment,
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := t.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Purchase] 创建票失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	// 玩家流水
	hist := &model.PlayerHistory{
		PlayerID: player.ID,
		GameID:   in.GameID,
		TicketNo: ticketNo,
		Action:   model.ActionPurchase,
		Amount:   in.Payment,
		TraceID:  in.TraceID,
	}
	if err := hist.Insert(txCtx, tx); err != nil {
		return nil, err
	}

	// Outbox 消息（异步）
	payload := map[string]any{
		"event":            "ticket_purchased",
		"ticket_no":        ticketNo,
		"game_id":          in.GameID,
		"seq":              seq,
		"player_id":        player.ID,
		"platform_id":      in.PlatformID,
		"platform_user_id": in.PlatformUserID,
	}
	if err := model.CreateOutbox(txCtx, tx, "ticket_purchased", ticketNo, payload); err != nil {
		fmt.Printf("[Purchase] 写入 Outbox 失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Purchase] 提交事务失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, ticketNo, in.TraceID)
		return nil, err
	}

	result = "success"
	out := &PurchaseOutput{TicketNo: ticketNo, Seq: seq, RemainBalance: after}

	// 写入 Redis 结果缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
	}

	return out, nil
}

// getOrCreatePlayerInTx 在事务中获取或创建玩家
// 如果玩家不存在，自动创建；如果存在，返回现有玩家并加锁
// saleWindowClosed 到达 endTime 即停售。闭局判定以同一时刻为界，
// 同一毫秒内的购票与闭局请求由游戏行锁串行化后各自得到一致结果
func saleWindowClosed(nowMs, endTimeMs int64) bool {
	return nowMs >= endTimeMs
}

func getOrCreatePlayerInTx(ctx context.Context, tx *sqlx.Tx, platformID int8, platformUserID, username string) (*model.Player, error) {
	// 1. 先尝试加锁查询
	query := `SELECT player_id, platform_id, platform_user_id, username, balance, status, created_at, updated_at
	          FROM players
	          WHERE platform_id = ? AND platform_user_id = ?
	          FOR UPDATE`
	var p model.Player
	err := tx.GetContext(ctx, &p, query, platformID, platformUserID)
	if err == nil {
		return &p, nil // 玩家已存在
	}

	// 2. 如果玩家不存在，创建玩家
	if strings.Contains(err.Error(), "no rows") {
		now := time.Now().UnixMilli() // 13位毫秒时间戳
		newPlayer := &model.Player{
			PlatformID:     platformID,
			PlatformUserID: platformUserID,
			Username:       username,
			Balance:        0, // 初始余额
			Status:         1, // 正常状态
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		// 在事务中插入
		ins := `INSERT INTO players (platform_id, platform_user_id, username, balance, status, created_at, updated_at)
		          VALUES (?, ?, ?, ?, ?, ?, ?)`
		result, err := tx.ExecContext(ctx, ins,
			newPlayer.PlatformID, newPlayer.PlatformUserID, newPlayer.Username, newPlayer.Balance, newPlayer.Status, newPlayer.CreatedAt, newPlayer.UpdatedAt)
		if err != nil {
			// 处理并发创建的情况（唯一索引冲突）
			if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
				// 重新查询并加锁
				var again model.Player
				if e := tx.GetContext(ctx, &again, query, platformID, platformUserID); e != nil {
					return nil, e
				}
				return &again, nil
			}
			return nil, err
		}

		id, _ := result.LastInsertId()
		newPlayer.ID = id

		return newPlayer, nil
	}

	return nil, err
}
