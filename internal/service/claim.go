package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	infmysql "lotto-server/internal/infra/mysql"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// 账本业务码：派奖
const BIZ_TYPE_PRIZE = 2

// ClaimInput 领奖参数。票归属按平台身份校验
type ClaimInput struct {
	GameID         string
	TicketNo       string
	PlatformID     int8
	PlatformUserID string
	TraceID        string
}

type ClaimOutput struct {
	TicketNo      string
	Prize         int64
	RemainBalance int64
}

type ClaimService interface {
	ClaimPrize(ctx context.Context, in ClaimInput) (*ClaimOutput, error)
}

type claimService struct{}

func NewClaimService() ClaimService { return &claimService{} }

// ClaimPrize 领奖主流程：
// 仅 finished 状态可领；票必须属于调用方且未领过。
// 零奖金的票同样标记 claimed 并写流水（只是不动余额），保证领奖恰好发生一次
func (s *claimService) ClaimPrize(ctx context.Context, in ClaimInput) (*ClaimOutput, error) {
	if in.GameID == "" || in.TicketNo == "" {
		return nil, ErrBadRequest
	}

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordClaim(result, start) }()

	fmt.Printf("[Claim] 收到领奖请求: game_id=%s, ticket_no=%s, platform_id=%d, platform_user_id=%s, trace_id=%s\n",
		in.GameID, in.TicketNo, in.PlatformID, in.PlatformUserID, in.TraceID)

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 先锁游戏行再锁票：与结算路径保持相同加锁顺序，避免死锁
	g, err := model.GetGameForUpdate(txCtx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	if model.PhaseStr(g.Phase) != state.StateFinished {
		fmt.Printf("[Claim] 游戏未结束，不能领奖: phase=%s, game_id=%s, trace_id=%s\n",
			model.PhaseStr(g.Phase), in.GameID, in.TraceID)
		return nil, ErrNotClaimable
	}

	t, err := model.GetTicketForUpdate(txCtx, tx, in.TicketNo)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if t.GameID != in.GameID {
		return nil, ErrTicketNotFound
	}

	// 归属校验
	caller, err := model.GetPlayerByPlatformUser(txCtx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrNotTicketOwner
		}
		return nil, err
	}
	if t.PlayerID != caller.ID {
		fmt.Printf("[Claim] 票归属校验失败: ticket_player=%d, caller=%d, ticket_no=%s, trace_id=%s\n",
			t.PlayerID, caller.ID, in.TicketNo, in.TraceID)
		return nil, ErrNotTicketOwner
	}

	if t.Claimed == 1 {
		fmt.Printf("[Claim] 票已领奖: ticket_no=%s, trace_id=%s\n", in.TicketNo, in.TraceID)
		return nil, ErrAlreadyClaimed
	}

	if err := model.MarkTicketClaimed(txCtx, tx, t.ID); err != nil {
		return nil, err
	}

	// 零奖金不动余额，只标记与记录
	balance := caller.Balance
	if t.Prize > 0 {
		player, err := model.GetPlayerByIDForUpdate(txCtx, tx, t.PlayerID)
		if err != nil {
			return nil, err
		}
		if player.Status != 1 {
			return nil, errors.New("player disabled")
		}

		before := player.Balance
		after := before + t.Prize
		if err := model.UpdatePlayerBalance(txCtx, tx, player.ID, after); err != nil {
			return nil, err
		}
		balance = after

		ledger := &model.WalletLedger{
			PlayerID:     player.ID,
			BizType:      BIZ_TYPE_PRIZE, //2
			BizTypeStr:   "prize",        // 冗余
			Amount:       t.Prize,
			BeforeAmount: before,
			AfterAmount:  after,
			TicketNo:     t.TicketNo,
			GameID:       t.GameID,
			Remark:       "prize payout",
			TraceID:      in.TraceID,
		}
		if err := ledger.Insert(txCtx, tx); err != nil {
			fmt.Printf("[Claim] 写入账本失败: error=%v, ticket_no=%s, trace_id=%s\n",
				err, t.TicketNo, in.TraceID)
			return nil, err
		}
	}

	// 玩家流水（零奖金同样记录）
	hist := &model.PlayerHistory{
		PlayerID: t.PlayerID,
		GameID:   t.GameID,
		TicketNo: t.TicketNo,
		Action:   model.ActionClaim,
		Amount:   t.Prize,
		TraceID:  in.TraceID,
	}
	if err := hist.Insert(txCtx, tx); err != nil {
		return nil, err
	}

	// Outbox 消息（零奖金同样发出领奖事件）
	payload := map[string]any{
		"event":     "prize_claimed",
		"ticket_no": t.TicketNo,
		"game_id":   t.GameID,
		"player_id": t.PlayerID,
		"prize":     t.Prize,
		"matches":   t.Matches,
	}
	if err := model.CreateOutbox(txCtx, tx, "prize_claimed", t.TicketNo, payload); err != nil {
		return nil, err
	}

	aud := &model.GameEventAudit{
		GameID:    t.GameID,
		EventType: model.AuditPrizeClaim,
		PrevState: state.StateFinished,
		NextState: state.StateFinished,
		Operator:  in.PlatformUserID,
		Source:    "api",
		Payload:   toJSON(payload),
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(txCtx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Claim] 提交事务失败: error=%v, ticket_no=%s, trace_id=%s\n",
			err, in.TicketNo, in.TraceID)
		return nil, err
	}

	result = "success"
	fmt.Printf("[Claim] 领奖完成: ticket_no=%s, prize=%d, remain_balance=%d, trace_id=%s\n",
		t.TicketNo, t.Prize, balance, in.TraceID)
	return &ClaimOutput{TicketNo: t.TicketNo, Prize: t.Prize, RemainBalance: balance}, nil
}
