package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lotto-server/internal/config"
	"lotto-server/internal/draw"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/prize"
	"lotto-server/internal/provider"
	"lotto-server/internal/sealbox"
	"lotto-server/internal/state"

	"github.com/jmoiron/sqlx"
)

// SeedInput 随机源回调参数
type SeedInput struct {
	RequestID string
	Seed      []byte
	TraceID   string
}

type DrawService interface {
	OnSeedReceived(ctx context.Context, in SeedInput) error
}

type drawService struct {
	lock provider.TimeLockProvider
}

func NewDrawService(lock provider.TimeLockProvider) DrawService {
	return &drawService{lock: lock}
}

// OnSeedReceived 处理随机种子回调：
// 1) 按 request_id 定位游戏（查不到即视为过期/串局回调，no-op）
// 2) 由种子确定性推导开奖号码
// 3) 延迟揭晓开启 -> 封存密文 + 发起时间锁解锁请求，状态 drawing -> sealed
// 4) 未开启 -> 直接结算，状态 drawing -> finished
func (s *drawService) OnSeedReceived(ctx context.Context, in SeedInput) error {
	if in.RequestID == "" || len(in.Seed) == 0 {
		fmt.Printf("[Draw] 参数校验失败: request_id=%s, seed_len=%d, trace_id=%s\n",
			in.RequestID, len(in.Seed), in.TraceID)
		return ErrBadRequest
	}

	// 指标：在输入校验通过后开始计时
	start := time.Now()
	resultLabel := "fail"
	outcomeLabel := "unknown"
	defer func() { metrics.RecordDraw(resultLabel, outcomeLabel, start) }()

	fmt.Printf("[Draw] 收到种子回调: request_id=%s, trace_id=%s\n", in.RequestID, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// 按 request_id 定位游戏并加锁。匹配不到说明回调过期或串局：
	// 记录后静默吸收，不能让陈旧回调影响任何一局
	g, err := model.GetGameBySeedRequestForUpdate(ctx, tx, in.RequestID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			fmt.Printf("[Draw] 回调与任何在局请求不匹配，忽略: request_id=%s, trace_id=%s\n",
				in.RequestID, in.TraceID)
			resultLabel = "success_idempotent"
			outcomeLabel = "mismatch"
			return nil
		}
		return err
	}

	// 已结算：重复回调，幂等返回
	if g.IsSettled == 1 {
		fmt.Printf("[Draw] 该局已结算，跳过重复回调: game_id=%s, trace_id=%s\n",
			g.GameID, in.TraceID)
		resultLabel = "success_idempotent"
		return nil
	}

	// 仅 drawing 状态接受种子（封存后重复到达的种子同样忽略）
	phase := model.PhaseStr(g.Phase)
	if phase != state.StateDrawing {
		fmt.Printf("[Draw] 游戏状态不接受种子回调，忽略: phase=%s, game_id=%s, trace_id=%s\n",
			phase, g.GameID, in.TraceID)
		resultLabel = "success_idempotent"
		outcomeLabel = "mismatch"
		return nil
	}

	// 确定性推导开奖号码
	numbers, err := draw.Derive(in.Seed)
	if err != nil {
		fmt.Printf("[Draw] 号码推导失败: game_id=%s, error=%v, trace_id=%s\n",
			g.GameID, err, in.TraceID)
		return err
	}
	numbersJSON := numbersToJSON(numbers)

	fmt.Printf("[Draw] 开奖号码已推导: game_id=%s, numbers=%s, seal_enabled=%d, trace_id=%s\n",
		g.GameID, numbersJSON, g.SealEnabled, in.TraceID)

	// 延迟揭晓：密文落库，密钥托管给时间锁服务
	if g.SealEnabled == 1 {
		box, key, err := sealbox.Seal([]byte(numbersJSON))
		if err != nil {
			return err
		}

		// 解锁请求在事务内发起：回调方会被本局行锁串行化到提交之后
		unlockReqID, err := s.lock.RequestUnlock(ctx, g.UnlockTime, key)
		if err != nil {
			fmt.Printf("[Draw] 时间锁请求失败: game_id=%s, error=%v, trace_id=%s\n",
				g.GameID, err, in.TraceID)
			return err
		}

		sd := &model.SealedDraw{
			GameID:     g.GameID,
			RequestID:  unlockReqID,
			Ciphertext: box.Ciphertext,
			Nonce:      box.Nonce,
			UnlockTime: g.UnlockTime,
			TraceID:    in.TraceID,
		}
		if err := sd.Insert(ctx, tx); err != nil {
			return err
		}

		if err := model.UpdatePhase(ctx, tx, g.GameID, model.PhaseCode(state.StateSealed)); err != nil {
			return err
		}

		payload := map[string]any{
			"event":             "game_sealed",
			"game_id":           g.GameID,
			"unlock_time":       g.UnlockTime,
			"unlock_request_id": unlockReqID,
			"trace_id":          in.TraceID,
		}
		if err := model.CreateOutbox(ctx, tx, "game_sealed", g.GameID, payload); err != nil {
			return err
		}

		aud := &model.GameEventAudit{
			GameID:    g.GameID,
			EventType: model.AuditDrawSealed,
			PrevState: state.StateDrawing,
			NextState: state.StateSealed,
			Operator:  "system",
			Source:    "provider",
			Payload:   toJSON(map[string]any{"unlock_time": g.UnlockTime, "unlock_request_id": unlockReqID}),
			TraceID:   in.TraceID,
		}
		if err := aud.Insert(ctx, tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		resultLabel = "success"
		outcomeLabel = "sealed"
		fmt.Printf("[Draw] 开奖结果已封存: game_id=%s, unlock_time=%d, unlock_request_id=%s, ciphertext=%s..., trace_id=%s\n",
			g.GameID, g.UnlockTime, unlockReqID, firstN(box.Ciphertext, 16), in.TraceID)
		return nil
	}

	// 未开启延迟揭晓：直接结算
	summary, err := settleGame(ctx, tx, g, numbers, "system", "provider",
		model.AuditDrawSettled, state.StateDrawing, in.TraceID)
	if err != nil {
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Draw] 结算日志已存在，跳过重复结算: game_id=%s, trace_id=%s\n",
				g.GameID, in.TraceID)
			resultLabel = "success_idempotent"
			return nil
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Draw] 提交事务失败: game_id=%s, error=%v, trace_id=%s\n",
			g.GameID, err, in.TraceID)
		return err
	}

	cacheGameResult(ctx, g.GameID, numbersJSON, summary)

	resultLabel = "success"
	outcomeLabel = "settled"
	fmt.Printf("[Draw] 开奖结算完成: game_id=%s, numbers=%s, total_tickets=%d, total_payout=%d, pool_remainder=%d, trace_id=%s\n",
		g.GameID, numbersJSON, summary.TotalTickets, summary.TotalPayout, summary.PoolRemainder, in.TraceID)
	return nil
}

// settlementSummary 单局结算的统计结果
type settlementSummary struct {
	TotalTickets  int
	WinnerCount   int
	TotalPayout   int64
	PoolRemainder int64
}

// settleGame 结算单局（调用方持有游戏行锁并最终提交事务）：
// 1) 结算日志唯一键兜底防重
// 2) 回写开奖号码
// 3) PrizeCalculator 计算每张票的命中与奖金（奖金在领奖时才入账）
// 4) 中奖票写 game_results，所有票回写命中数
// 5) 标记已结算，状态推进到 finished，写审计与 Outbox
func settleGame(ctx context.Context, tx *sqlx.Tx, g *model.LotteryGame, numbers []int,
	operator, source string, auditType int8, prevState, traceID string) (*settlementSummary, error) {

	numbersJSON := numbersToJSON(numbers)

	// ========== 幂等性保护: 结算日志唯一键 ==========
	slog := &model.SettlementLog{
		GameID:         g.GameID,
		WinningNumbers: numbersJSON,
		TotalTickets:   0, // 稍后更新
		TotalPayout:    0, // 稍后更新
		Operator:       operator,
		TraceID:        traceID,
	}
	if err := model.CreateSettlementLog(ctx, tx, slog); err != nil {
		return nil, err
	}

	// 回写开奖号码（状态先保持，由 MarkGameSettled 统一推进）
	if err := model.UpdateDrawResult(ctx, tx, g.GameID, numbersJSON, g.Phase); err != nil {
		return nil, err
	}

	// 锁定全部票并计算奖金
	tickets, err := model.ListByGameForUpdate(ctx, tx, g.GameID)
	if err != nil {
		return nil, err
	}

	fmt.Printf("[Settle] 找到 %d 张待结算票: game_id=%s, trace_id=%s\n",
		len(tickets), g.GameID, traceID)

	picks := make([]prize.Pick, 0, len(tickets))
	byID := make(map[int64]model.Ticket, len(tickets))
	for _, t := range tickets {
		nums, err := numbersFromJSON(t.Numbers)
		if err != nil {
			return nil, fmt.Errorf("ticket %s has malformed numbers: %w", t.TicketNo, err)
		}
		picks = append(picks, prize.Pick{Seq: int64(t.Seq), PlayerID: t.PlayerID, Numbers: nums})
		byID[int64(t.Seq)] = t
	}

	awards := prize.Distribute(picks, numbers, g.PrizePool, prizeCfg())
	totalPayout := prize.TotalPrize(awards)

	winners := 0
	for _, a := range awards {
		t := byID[a.Seq]
		if err := model.UpdateTicketSettlement(ctx, tx, t.ID, a.Matches, a.Prize); err != nil {
			return nil, err
		}
		// 每张票的结算结果（matches/prize/claimed）都落在票行上；
		// game_results 只收中奖票，作为中奖名单供查询接口直接返回。
		// 未中奖票的结果经 GetTicket / PlayerTickets 从票行读取
		if a.Matches == 0 {
			continue
		}
		winners++
		gr := &model.GameResult{
			GameID:   g.GameID,
			TicketNo: t.TicketNo,
			Seq:      t.Seq,
			PlayerID: t.PlayerID,
			Numbers:  t.Numbers,
			Tier:     a.Matches,
			Prize:    a.Prize,
			TraceID:  traceID,
		}
		if err := gr.Insert(ctx, tx); err != nil {
			return nil, err
		}
	}

	// ========== 幂等性保护: 标记为已结算 ==========
	if err := model.MarkGameSettled(ctx, tx, g.GameID); err != nil {
		return nil, err
	}

	if err := model.UpdateSettlementStats(ctx, tx, g.GameID, len(tickets), totalPayout); err != nil {
		return nil, err
	}

	// 未派出的奖池余额（截断除法的余数 + 无人中奖档位）只报告不清零，
	// 由后台经 withdraw_remainder 接口另行提取
	remainder := g.PrizePool - totalPayout

	payload := map[string]any{
		"event":           "game_finished",
		"game_id":         g.GameID,
		"winning_numbers": numbersJSON,
		"total_tickets":   len(tickets),
		"winner_count":    winners,
		"total_payout":    totalPayout,
		"pool_remainder":  remainder,
		"trace_id":        traceID,
	}
	if err := model.CreateOutbox(ctx, tx, "game_finished", g.GameID, payload); err != nil {
		return nil, err
	}

	aud := &model.GameEventAudit{
		GameID:    g.GameID,
		EventType: auditType,
		PrevState: prevState,
		NextState: state.StateFinished,
		Operator:  operator,
		Source:    source,
		Payload:   toJSON(payload),
		TraceID:   traceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return nil, err
	}

	return &settlementSummary{
		TotalTickets:  len(tickets),
		WinnerCount:   winners,
		TotalPayout:   totalPayout,
		PoolRemainder: remainder,
	}, nil
}

// prizeCfg 从动态配置读取派奖策略（默认百分比奖池 70/20/10）
func prizeCfg() prize.Config {
	cfg := prize.Config{
		Mode:       prize.ModePool,
		PoolPct3:   config.GetThreshold("prize_pool_pct_tier3", 70),
		PoolPct2:   config.GetThreshold("prize_pool_pct_tier2", 20),
		PoolPct1:   config.GetThreshold("prize_pool_pct_tier1", 10),
		FixedTier3: config.GetThreshold("prize_fixed_tier3", 1000),
		FixedTier2: config.GetThreshold("prize_fixed_tier2", 100),
		FixedTier1: config.GetThreshold("prize_fixed_tier1", 10),
	}
	if config.GetFeatureFlag("prize_fixed_mode") {
		cfg.Mode = prize.ModeFixed
	}
	return cfg
}

// cacheGameResult 结算提交后写 Redis 结果缓存，便于查询接口快速返回
func cacheGameResult(ctx context.Context, gameID, numbersJSON string, sum *settlementSummary) {
	r := infrds.Client()
	if r == nil {
		return
	}
	val := map[string]any{
		"game_id":         gameID,
		"winning_numbers": numbersJSON,
		"phase":           state.StateFinished,
		"is_settled":      1,
		"total_tickets":   sum.TotalTickets,
		"winner_count":    sum.WinnerCount,
		"total_payout":    sum.TotalPayout,
	}
	if b, e := json.Marshal(val); e == nil {
		_ = r.Set(ctx, infrds.GameResultKey(gameID), b, 2*time.Minute).Err()
	}
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
