package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/provider"
	"lotto-server/internal/state"

	"github.com/google/uuid"
)

// CreateGameInput 建局参数
// EndTime 为毫秒时间戳；SealEnabled 开启时 UnlockTime 必填且晚于 EndTime
type CreateGameInput struct {
	TicketPrice int64
	MaxTickets  int
	EndTime     int64
	SealEnabled bool
	UnlockTime  int64
	TraceID     string
}

type CreateGameOutput struct {
	GameID string
	Phase  string
}

type GameLifecycleInput struct {
	GameID   string
	Operator string
	TraceID  string
}

type GameService interface {
	CreateGame(ctx context.Context, in CreateGameInput) (*CreateGameOutput, error)
	EndGame(ctx context.Context, in GameLifecycleInput) error
	PauseGame(ctx context.Context, in GameLifecycleInput) error
	ResumeGame(ctx context.Context, in GameLifecycleInput) error
	WithdrawRemainder(ctx context.Context, in GameLifecycleInput) (int64, error)
}

type gameService struct {
	rng provider.RandomnessProvider
}

func NewGameService(rng provider.RandomnessProvider) GameService {
	return &gameService{rng: rng}
}

const gameInfoTTL = 10 * time.Minute // 大厅游戏信息缓存

// CreateGame 建局：校验配置，落库后即进入 active（开售）状态
func (s *gameService) CreateGame(ctx context.Context, in CreateGameInput) (*CreateGameOutput, error) {
	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordGameEvent(resultLabel, "game_create", start) }()

	// ========== 建局参数验证 ==========
	// 1. 票价必须为正
	// 2. 票量上限必须为正
	// 3. 截止时间必须晚于当前
	// 4. 延迟揭晓时解锁时间必须晚于截止时间
	// ================================
	now := time.Now().UnixMilli()
	if in.TicketPrice <= 0 {
		fmt.Printf("[CreateGame] 票价必须大于0: ticket_price=%d, trace_id=%s\n", in.TicketPrice, in.TraceID)
		return nil, ErrInvalidGameConfig
	}
	if in.MaxTickets <= 0 {
		fmt.Printf("[CreateGame] 票量上限必须大于0: max_tickets=%d, trace_id=%s\n", in.MaxTickets, in.TraceID)
		return nil, ErrInvalidGameConfig
	}
	if in.EndTime <= now {
		fmt.Printf("[CreateGame] 截止时间必须晚于当前: end_time=%d, now=%d, trace_id=%s\n", in.EndTime, now, in.TraceID)
		return nil, ErrInvalidGameConfig
	}
	if in.SealEnabled && in.UnlockTime <= in.EndTime {
		fmt.Printf("[CreateGame] 解锁时间必须晚于截止时间: unlock_time=%d, end_time=%d, trace_id=%s\n", in.UnlockTime, in.EndTime, in.TraceID)
		return nil, ErrInvalidGameConfig
	}

	gameID := strings.ReplaceAll(uuid.New().String(), "-", "")

	fmt.Printf("[CreateGame] 收到建局请求: game_id=%s, ticket_price=%d, max_tickets=%d, end_time=%d, seal_enabled=%v, trace_id=%s\n",
		gameID, in.TicketPrice, in.MaxTickets, in.EndTime, in.SealEnabled, in.TraceID)

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

	sealEnabled := int8(0)
	unlockTime := int64(0)
	if in.SealEnabled {
		sealEnabled = 1
		unlockTime = in.UnlockTime
	}

	g := &model.LotteryGame{
		GameID:      gameID,
		TicketPrice: in.TicketPrice,
		MaxTickets:  in.MaxTickets,
		Phase:       model.PhaseCode(state.StateActive),
		EndTime:     in.EndTime,
		SealEnabled: sealEnabled,
		UnlockTime:  unlockTime,
		TraceID:     in.TraceID,
	}
	if err := g.Insert(txCtx, tx); err != nil {
		fmt.Printf("[CreateGame] 建局落库失败: game_id=%s, error=%v, trace_id=%s\n", gameID, err, in.TraceID)
		return nil, err
	}

	// Outbox 消息（事务内写入）
	payload := map[string]any{
		"event":        "game_created",
		"game_id":      gameID,
		"ticket_price": in.TicketPrice,
		"max_tickets":  in.MaxTickets,
		"end_time":     in.EndTime,
		"seal_enabled": in.SealEnabled,
		"trace_id":     in.TraceID,
	}
	if err := model.CreateOutbox(txCtx, tx, "game_created", gameID, payload); err != nil {
		return nil, err
	}

	// 审计
	aud := &model.GameEventAudit{
		GameID:    gameID,
		EventType: model.AuditGameCreate,
		PrevState: "",
		NextState: state.StateActive,
		Operator:  "admin",
		Source:    "api",
		Payload:   toJSON(payload),
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(txCtx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[CreateGame] 提交事务失败: game_id=%s, error=%v, trace_id=%s\n", gameID, err, in.TraceID)
		return nil, err
	}

	// 事务提交后写 Redis（避免未提交数据被读取）
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"game_id":      gameID,
			"ticket_price": in.TicketPrice,
			"max_tickets":  in.MaxTickets,
			"tickets_sold": 0,
			"end_time":     in.EndTime,
			"seal_enabled": sealEnabled,
			"phase":        state.StateActive,
		}
		if b, e := json.Marshal(val); e == nil {
			_ = r.Set(ctx, infrds.GameInfoKey(gameID), b, gameInfoTTL).Err()
		}
	}

	resultLabel = "success"
	fmt.Printf("[CreateGame] 建局完成: game_id=%s, phase=active, trace_id=%s\n", gameID, in.TraceID)
	return &CreateGameOutput{GameID: gameID, Phase: state.StateActive}, nil
}

// EndGame 截止售票并发起随机种子请求，状态 active -> drawing
// 种子请求在事务内发起：回调方自己的事务会被本局行锁串行化，
// 保证 seed_request_id 在回调落库前已可见
func (s *gameService) EndGame(ctx context.Context, in GameLifecycleInput) error {
	if in.GameID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordGameEvent(resultLabel, state.EvtGameEnd, start) }()

	fmt.Printf("[GameEvent] game_end: 收到截止请求, game_id=%s, trace_id=%s\n", in.GameID, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	g, err := model.GetGameForUpdate(ctx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrGameNotFound
		}
		return err
	}

	prev := model.PhaseStr(g.Phase)
	next, err := state.NextState(prev, state.EvtGameEnd)
	if err != nil {
		fmt.Printf("[GameEvent] 状态转换失败: %s --game_end--> ?, game_id=%s, trace_id=%s\n",
			prev, in.GameID, in.TraceID)
		return err
	}
	_ = next // game_end 的落库由 SetSeedRequest 一并完成（phase=drawing）

	// 必须到达截止时间才能封盘
	now := time.Now().UnixMilli()
	if now < g.EndTime {
		fmt.Printf("[GameEvent] 截止时间未到: now=%d, end_time=%d, game_id=%s, trace_id=%s\n",
			now, g.EndTime, in.GameID, in.TraceID)
		return ErrDeadlineNotReached
	}

	// 向随机源发起种子请求；request_id 与本局绑定，防止跨局串用
	requestID, err := s.rng.RequestSeed(ctx)
	if err != nil {
		fmt.Printf("[GameEvent] 随机种子请求失败: game_id=%s, error=%v, trace_id=%s\n",
			in.GameID, err, in.TraceID)
		return err
	}

	if err := model.SetSeedRequest(ctx, tx, in.GameID, requestID); err != nil {
		return err
	}

	payload := map[string]any{
		"event":           "game_drawing",
		"game_id":         in.GameID,
		"tickets_sold":    g.TicketsSold,
		"prize_pool":      g.PrizePool,
		"seed_request_id": requestID,
		"trace_id":        in.TraceID,
	}
	if err := model.CreateOutbox(ctx, tx, "game_drawing", in.GameID, payload); err != nil {
		return err
	}

	aud := &model.GameEventAudit{
		GameID:    in.GameID,
		EventType: model.AuditGameEnd,
		PrevState: prev,
		NextState: state.StateDrawing,
		Operator:  operatorOrSystem(in.Operator),
		Source:    "api",
		Payload:   toJSON(payload),
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[GameEvent] 提交事务失败: game_id=%s, error=%v, trace_id=%s\n",
			in.GameID, err, in.TraceID)
		return err
	}

	// 售票结束后删除大厅缓存
	if r := infrds.Client(); r != nil {
		_ = r.Del(ctx, infrds.GameInfoKey(in.GameID)).Err()
	}

	resultLabel = "success"
	fmt.Printf("[GameEvent] game_end 处理完成: game_id=%s, prev=%s, next=drawing, seed_request_id=%s, trace_id=%s\n",
		in.GameID, prev, requestID, in.TraceID)
	return nil
}

// PauseGame 紧急暂停，状态 active -> waiting
// 仅允许在未售出任何票时暂停，避免对已购票玩家造成悬置
func (s *gameService) PauseGame(ctx context.Context, in GameLifecycleInput) error {
	return s.lifecycleEvent(ctx, in, state.EvtPause, model.AuditPause)
}

// ResumeGame 恢复售票，状态 waiting -> active
func (s *gameService) ResumeGame(ctx context.Context, in GameLifecycleInput) error {
	return s.lifecycleEvent(ctx, in, state.EvtResume, model.AuditResume)
}

func (s *gameService) lifecycleEvent(ctx context.Context, in GameLifecycleInput, evt string, auditType int8) error {
	if in.GameID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordGameEvent(resultLabel, evt, start) }()

	fmt.Printf("[GameEvent] 收到事件: event=%s, game_id=%s, trace_id=%s\n", evt, in.GameID, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	g, err := model.GetGameForUpdate(ctx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrGameNotFound
		}
		return err
	}

	prev := model.PhaseStr(g.Phase)
	next, err := state.NextState(prev, evt)
	if err != nil {
		fmt.Printf("[GameEvent] 状态转换失败: %s --%s--> ?, game_id=%s, trace_id=%s\n",
			prev, evt, in.GameID, in.TraceID)
		return err
	}

	// 暂停仅限一票未售的局
	if evt == state.EvtPause && g.TicketsSold > 0 {
		fmt.Printf("[GameEvent] 暂停被拒绝: 已售出 %d 张票, game_id=%s, trace_id=%s\n",
			g.TicketsSold, in.GameID, in.TraceID)
		return ErrPauseWithTickets
	}

	if err := model.UpdatePhase(ctx, tx, in.GameID, model.PhaseCode(next)); err != nil {
		return err
	}

	aud := &model.GameEventAudit{
		GameID:    in.GameID,
		EventType: auditType,
		PrevState: prev,
		NextState: next,
		Operator:  operatorOrSystem(in.Operator),
		Source:    "api",
		Payload:   "{}",
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	// 暂停/恢复都使大厅缓存失效，下一次查询回源
	if r := infrds.Client(); r != nil {
		_ = r.Del(ctx, infrds.GameInfoKey(in.GameID)).Err()
	}

	resultLabel = "success"
	fmt.Printf("[GameEvent] 事件处理完成: event=%s, game_id=%s, prev=%s, next=%s, trace_id=%s\n",
		evt, in.GameID, prev, next, in.TraceID)
	return nil
}

// WithdrawRemainder 提取结算后未派出的奖池余额（截断除法余数 + 无人中奖档位）
// 仅限已结算的局；扣减后奖池等于总派奖额，重复调用没有余额可提、直接拒绝
func (s *gameService) WithdrawRemainder(ctx context.Context, in GameLifecycleInput) (int64, error) {
	if in.GameID == "" {
		return 0, ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordGameEvent(resultLabel, "pool_withdraw", start) }()

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	g, err := model.GetGameForUpdate(ctx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return 0, ErrGameNotFound
		}
		return 0, err
	}

	if g.IsSettled != 1 {
		fmt.Printf("[GameEvent] 余额提取被拒绝: 未结算, game_id=%s, trace_id=%s\n", in.GameID, in.TraceID)
		return 0, ErrNotSettled
	}

	sl, err := model.GetSettlementLog(ctx, infmysql.SQLX(), in.GameID)
	if err != nil {
		return 0, err
	}

	remainder := g.PrizePool - sl.TotalPayout
	if remainder <= 0 {
		fmt.Printf("[GameEvent] 余额提取被拒绝: 无可提余额, game_id=%s, pool=%d, payout=%d, trace_id=%s\n",
			in.GameID, g.PrizePool, sl.TotalPayout, in.TraceID)
		return 0, ErrNoRemainder
	}

	ok, err := model.DeductPool(ctx, tx, in.GameID, remainder)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoRemainder
	}

	// 账本：player_id=0 表示资金池（后台）侧的流水
	ledger := &model.WalletLedger{
		PlayerID:   0,
		BizTypeStr: "adjust",
		Amount:     remainder,
		GameID:     in.GameID,
		Remark:     "pool remainder withdraw",
		TraceID:    in.TraceID,
	}
	if err := ledger.Insert(ctx, tx); err != nil {
		return 0, err
	}

	payload := map[string]any{
		"event":     "pool_withdraw",
		"game_id":   in.GameID,
		"remainder": remainder,
		"operator":  operatorOrSystem(in.Operator),
		"trace_id":  in.TraceID,
	}
	if err := model.CreateOutbox(ctx, tx, "pool_withdraw", in.GameID, payload); err != nil {
		return 0, err
	}

	aud := &model.GameEventAudit{
		GameID:    in.GameID,
		EventType: model.AuditPoolWithdraw,
		PrevState: state.StateFinished,
		NextState: state.StateFinished,
		Operator:  operatorOrSystem(in.Operator),
		Source:    "api",
		Payload:   toJSON(payload),
		TraceID:   in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	resultLabel = "success"
	fmt.Printf("[GameEvent] 余额提取完成: game_id=%s, remainder=%d, trace_id=%s\n",
		in.GameID, remainder, in.TraceID)
	return remainder, nil
}

func operatorOrSystem(op string) string {
	if op == "" {
		return "system"
	}
	return op
}
