package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lotto-server/internal/config"
	"lotto-server/internal/draw"
	infmysql "lotto-server/internal/infra/mysql"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/sealbox"
	"lotto-server/internal/state"
)

// UnlockInput 时间锁回调参数。Proof 为托管的解密密钥
type UnlockInput struct {
	RequestID string
	Proof     []byte
	TraceID   string
}

// EmergencyInput 紧急揭晓参数。号码由管理员从随机源侧带外获取
type EmergencyInput struct {
	GameID   string
	Numbers  []int
	Operator string
	TraceID  string
}

type SealService interface {
	OnUnlockReceived(ctx context.Context, in UnlockInput) error
	EmergencyReveal(ctx context.Context, in EmergencyInput) error
}

type sealService struct{}

func NewSealService() SealService { return &sealService{} }

// 紧急通道的默认升级等待窗口：解锁时间后再等 24 小时
const defaultEscalationWindowMs = int64(24 * time.Hour / time.Millisecond)

// OnUnlockReceived 处理时间锁解锁回调：
// 用 proof 解开封存密文并结算，状态 sealed -> finished。
// 解密失败被吸收（记审计、返回错误），游戏保持 sealed 等待紧急通道。
func (s *sealService) OnUnlockReceived(ctx context.Context, in UnlockInput) error {
	if in.RequestID == "" || len(in.Proof) == 0 {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordReveal(resultLabel, "unlock", start) }()

	fmt.Printf("[Unseal] 收到解锁回调: request_id=%s, trace_id=%s\n", in.RequestID, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// 按解锁请求ID定位封存记录，匹配不到视为过期/串局回调
	sd, err := model.GetSealedDrawByRequestID(ctx, tx, in.RequestID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			fmt.Printf("[Unseal] 回调与任何封存记录不匹配，忽略: request_id=%s, trace_id=%s\n",
				in.RequestID, in.TraceID)
			resultLabel = "success_idempotent"
			return nil
		}
		return err
	}

	// 锁定游戏行，之后的校验与结算在行锁下串行
	g, err := model.GetGameForUpdate(ctx, tx, sd.GameID)
	if err != nil {
		return err
	}

	// 已揭晓/已结算：重复回调，幂等返回
	if sd.Revealed == 1 || g.IsSettled == 1 {
		fmt.Printf("[Unseal] 该局已揭晓，跳过重复回调: game_id=%s, trace_id=%s\n",
			sd.GameID, in.TraceID)
		resultLabel = "success_idempotent"
		return nil
	}

	if model.PhaseStr(g.Phase) != state.StateSealed {
		fmt.Printf("[Unseal] 游戏状态不接受解锁回调，忽略: phase=%s, game_id=%s, trace_id=%s\n",
			model.PhaseStr(g.Phase), sd.GameID, in.TraceID)
		resultLabel = "success_idempotent"
		return nil
	}

	// 解封。失败不是致命错误：记审计后游戏保持 sealed，等待时间锁重试或紧急通道
	plaintext, err := sealbox.Open(sealbox.Box{Nonce: sd.Nonce, Ciphertext: sd.Ciphertext}, in.Proof)
	if err != nil {
		fmt.Printf("[Unseal] 解封失败，游戏保持封存状态: game_id=%s, error=%v, trace_id=%s\n",
			sd.GameID, err, in.TraceID)
		aud := &model.GameEventAudit{
			GameID:    sd.GameID,
			EventType: model.AuditSealReveal,
			PrevState: state.StateSealed,
			NextState: state.StateSealed,
			Operator:  "system",
			Source:    "provider",
			Payload:   toJSON(map[string]any{"unseal_error": err.Error(), "request_id": in.RequestID}),
			TraceID:   in.TraceID,
		}
		if e := aud.Insert(ctx, tx); e != nil {
			return e
		}
		// 只提交审计行，状态不变
		if e := tx.Commit(); e != nil {
			return e
		}
		return ErrUnsealFailed
	}

	numbers, err := numbersFromJSON(string(plaintext))
	if err != nil {
		return fmt.Errorf("sealed plaintext malformed: %w", err)
	}
	if err := draw.ValidateNumbers(numbers); err != nil {
		return fmt.Errorf("sealed plaintext invalid: %w", err)
	}

	if err := model.MarkRevealed(ctx, tx, sd.GameID, string(plaintext)); err != nil {
		return err
	}

	summary, err := settleGame(ctx, tx, g, numbers, "system", "provider",
		model.AuditSealReveal, state.StateSealed, in.TraceID)
	if err != nil {
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Unseal] 结算日志已存在，跳过重复结算: game_id=%s, trace_id=%s\n",
				sd.GameID, in.TraceID)
			resultLabel = "success_idempotent"
			return nil
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Unseal] 提交事务失败: game_id=%s, error=%v, trace_id=%s\n",
			sd.GameID, err, in.TraceID)
		return err
	}

	cacheGameResult(ctx, sd.GameID, string(plaintext), summary)

	resultLabel = "success"
	fmt.Printf("[Unseal] 封存揭晓并结算完成: game_id=%s, numbers=%s, total_payout=%d, trace_id=%s\n",
		sd.GameID, string(plaintext), summary.TotalPayout, in.TraceID)
	return nil
}

// EmergencyReveal 紧急揭晓：时间锁服务失联时的管理员兜底通道。
// 仅允许在 unlock_time + 升级等待窗口之后使用，结算效果与正常揭晓完全一致
func (s *sealService) EmergencyReveal(ctx context.Context, in EmergencyInput) error {
	if in.GameID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordReveal(resultLabel, "emergency", start) }()

	if err := draw.ValidateNumbers(in.Numbers); err != nil {
		fmt.Printf("[Emergency] 号码校验失败: game_id=%s, numbers=%v, error=%v, trace_id=%s\n",
			in.GameID, in.Numbers, err, in.TraceID)
		return ErrInvalidNumbers
	}

	fmt.Printf("[Emergency] 收到紧急揭晓请求: game_id=%s, numbers=%v, operator=%s, trace_id=%s\n",
		in.GameID, in.Numbers, in.Operator, in.TraceID)

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

	if g.IsSettled == 1 {
		fmt.Printf("[Emergency] 该局已结算，跳过: game_id=%s, trace_id=%s\n", in.GameID, in.TraceID)
		resultLabel = "success_idempotent"
		return nil
	}

	if model.PhaseStr(g.Phase) != state.StateSealed {
		fmt.Printf("[Emergency] 游戏未处于封存状态: phase=%s, game_id=%s, trace_id=%s\n",
			model.PhaseStr(g.Phase), in.GameID, in.TraceID)
		return ErrSealNotFound
	}

	sd, err := model.GetSealedDrawForUpdate(ctx, tx, in.GameID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrSealNotFound
		}
		return err
	}

	// 升级等待窗口：解锁时间之后仍需等待窗口期，优先让正常回调完成
	window := config.GetThreshold("emergency_escalation_window_ms", defaultEscalationWindowMs)
	now := time.Now().UnixMilli()
	if !emergencyWindowOpen(now, sd.UnlockTime, window) {
		fmt.Printf("[Emergency] 升级等待窗口未到: now=%d, unlock_time=%d, window_ms=%d, game_id=%s, trace_id=%s\n",
			now, sd.UnlockTime, window, in.GameID, in.TraceID)
		return ErrRevealTooEarly
	}

	numbers := draw.Normalize(in.Numbers)
	numbersJSON := numbersToJSON(numbers)

	if err := model.MarkRevealed(ctx, tx, in.GameID, numbersJSON); err != nil {
		return err
	}

	summary, err := settleGame(ctx, tx, g, numbers, operatorOrSystem(in.Operator), "emergency",
		model.AuditEmergencyReveal, state.StateSealed, in.TraceID)
	if err != nil {
		if isMySQLDuplicateKeyError(err) {
			resultLabel = "success_idempotent"
			return nil
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	cacheGameResult(ctx, in.GameID, numbersJSON, summary)

	resultLabel = "success"
	fmt.Printf("[Emergency] 紧急揭晓完成: game_id=%s, numbers=%s, operator=%s, total_payout=%d, trace_id=%s\n",
		in.GameID, numbersJSON, in.Operator, summary.TotalPayout, in.TraceID)
	return nil
}

// emergencyWindowOpen 升级等待窗口：解锁时间加窗口期之后才放行人工揭晓，
// 边界时刻本身仍属等待期，优先让正常回调完成
func emergencyWindowOpen(nowMs, unlockTimeMs, windowMs int64) bool {
	return nowMs > unlockTimeMs+windowMs
}
