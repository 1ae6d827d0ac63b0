package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/shopspring/decimal"

	chelper "lotto-server/common/helper"
	"lotto-server/internal/draw"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// MoneyToUnits 把金额字符串转换为最小货币单位（分）。
// 入参须先通过 IsMoneyFormat 校验；超过两位小数返回 false。
func MoneyToUnits(s string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	units := d.Shift(2)
	if !units.IsInteger() || units.IsNegative() {
		return 0, false
	}
	return units.IntPart(), true
}

// UnitsToMoney 把最小货币单位（分）格式化为两位小数金额字符串
func UnitsToMoney(units int64) string {
	return chelper.TrimDecimal(decimal.NewFromInt(units).Shift(-2))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// parseNumbersCSV 解析 "3,17,42" 形式的号码列表（表单分支用）
func parseNumbersCSV(s string) ([]int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// -------- CreateGame helpers --------

// CreateGameParsed 为解析后的建局入参（与控制器/服务层解耦）。
// 金额字段在边界层是字符串，由 MoneyToUnits 统一折算成分。
type CreateGameParsed struct {
	TicketPrice string `json:"ticket_price"`
	MaxTickets  int    `json:"max_tickets"`
	EndTime     int64  `json:"end_time"` // Unix 毫秒
	SealEnabled bool   `json:"seal_enabled"`
	UnlockTime  int64  `json:"unlock_time"` // Unix 毫秒，仅 seal_enabled 时必填
	Operator    string `json:"operator"`
}

func ParseCreateGameFromJSON(r io.Reader) (CreateGameParsed, bool, string) {
	var out CreateGameParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return CreateGameParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseCreateGameFromForm(ctx *beegocontext.Context) (CreateGameParsed, bool, string) {
	var out CreateGameParsed
	out.TicketPrice = strings.TrimSpace(ctx.Input.Query("ticket_price"))

	mtStr := strings.TrimSpace(ctx.Input.Query("max_tickets"))
	if mtStr != "" {
		n, err := strconv.Atoi(mtStr)
		if err != nil {
			return CreateGameParsed{}, false, "max_tickets must be integer"
		}
		out.MaxTickets = n
	}

	if ts := strings.TrimSpace(ctx.Input.Query("end_time")); ts != "" {
		v, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return CreateGameParsed{}, false, "end_time must be unix milliseconds"
		}
		out.EndTime = v
	}

	seStr := strings.ToLower(strings.TrimSpace(ctx.Input.Query("seal_enabled")))
	out.SealEnabled = seStr == "1" || seStr == "true"

	if ts := strings.TrimSpace(ctx.Input.Query("unlock_time")); ts != "" {
		v, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return CreateGameParsed{}, false, "unlock_time must be unix milliseconds"
		}
		out.UnlockTime = v
	}

	out.Operator = strings.TrimSpace(ctx.Input.Query("operator"))
	return out, true, ""
}

// ValidateCreateGame 对通用字段做二次校验（适用于 JSON 与 FORM）
func ValidateCreateGame(in *CreateGameParsed) (bool, string) {
	in.TicketPrice = strings.TrimSpace(in.TicketPrice)
	if in.TicketPrice == "" || !IsMoneyFormat(in.TicketPrice) {
		return false, "ticket_price must be numeric with up to 2 decimals"
	}
	if len(in.TicketPrice) > 32 {
		return false, "invalid request"
	}
	if in.MaxTickets <= 0 {
		return false, "max_tickets must be positive"
	}
	if in.EndTime <= 0 {
		return false, "end_time must be unix milliseconds"
	}
	if in.SealEnabled && in.UnlockTime <= in.EndTime {
		return false, "unlock_time must be after end_time"
	}
	if len(in.Operator) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateCreateGame 按 Content-Type 自动解析并做统一校验
func ParseAndValidateCreateGame(ctx *beegocontext.Context) (CreateGameParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCreateGameFromJSON, ParseCreateGameFromForm)
	if !ok {
		return CreateGameParsed{}, false, msg
	}
	if ok, msg := ValidateCreateGame(&out); !ok {
		return CreateGameParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Purchase helpers --------

// PurchaseParsed 为解析后的购票入参
type PurchaseParsed struct {
	GameId         string `json:"game_id"`
	Numbers        []int  `json:"numbers"`
	Payment        string `json:"payment"`
	Platform       int    `json:"platform"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ParsePurchaseFromJSON 解析 JSON 到 PurchaseParsed。失败返回 false 与错误消息。
func ParsePurchaseFromJSON(r io.Reader) (PurchaseParsed, bool, string) {
	var out PurchaseParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PurchaseParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParsePurchaseFromForm 从表单读取字段并做强校验。失败返回 false 与可读错误信息。
func ParsePurchaseFromForm(ctx *beegocontext.Context) (PurchaseParsed, bool, string) {
	var out PurchaseParsed
	out.GameId = strings.TrimSpace(ctx.Input.Query("game_id"))
	if out.GameId == "" {
		return PurchaseParsed{}, false, "game_id required"
	}

	nums, ok := parseNumbersCSV(ctx.Input.Query("numbers"))
	if !ok {
		return PurchaseParsed{}, false, "numbers must be comma separated integers"
	}
	out.Numbers = nums

	out.Payment = strings.TrimSpace(ctx.Input.Query("payment"))
	if out.Payment == "" || !IsMoneyFormat(out.Payment) {
		return PurchaseParsed{}, false, "payment must be numeric with up to 2 decimals"
	}

	// platform: 可选，默认 1；如传入，需为 1..127 的整数
	pStr := strings.TrimSpace(ctx.Input.Query("platform"))
	if pStr == "" {
		out.Platform = 1
	} else {
		pn, err := strconv.Atoi(pStr)
		if err != nil || pn <= 0 || pn >= 128 {
			out.Platform = 1
		} else {
			out.Platform = pn
		}
	}

	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	if out.IdempotencyKey == "" {
		return PurchaseParsed{}, false, "idempotency_key required"
	}

	return out, true, ""
}

// ValidatePurchase 对通用字段做二次校验（适用于 JSON 与 FORM）
func ValidatePurchase(in *PurchaseParsed) (bool, string) {
	if in.GameId == "" || strings.TrimSpace(in.Payment) == "" || in.IdempotencyKey == "" {
		return false, "missing or invalid fields"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.GameId) > 64 || len(in.IdempotencyKey) > 64 || len(in.Payment) > 32 {
		return false, "invalid request"
	}
	if err := draw.ValidateNumbers(in.Numbers); err != nil {
		return false, fmt.Sprintf("numbers must be %d distinct integers in [%d,%d]",
			draw.NumberCount, draw.NumberMin, draw.NumberMax)
	}
	if !IsMoneyFormat(in.Payment) {
		return false, "payment must be numeric with up to 2 decimals"
	}
	if in.Platform <= 0 || in.Platform >= 128 {
		in.Platform = 1
	}
	return true, ""
}

// ParseAndValidatePurchase 按 Content-Type 自动解析并做统一校验
func ParseAndValidatePurchase(ctx *beegocontext.Context) (PurchaseParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePurchaseFromJSON, ParsePurchaseFromForm)
	if !ok {
		return PurchaseParsed{}, false, msg
	}
	if ok, msg := ValidatePurchase(&out); !ok {
		return PurchaseParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Claim helpers --------

type ClaimParsed struct {
	GameId   string `json:"game_id"`
	TicketNo string `json:"ticket_no"`
	Platform int    `json:"platform"`
}

func ParseClaimFromJSON(r io.Reader) (ClaimParsed, bool, string) {
	var out ClaimParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ClaimParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseClaimFromForm(ctx *beegocontext.Context) (ClaimParsed, bool, string) {
	var out ClaimParsed
	out.GameId = strings.TrimSpace(ctx.Input.Query("game_id"))
	out.TicketNo = strings.TrimSpace(ctx.Input.Query("ticket_no"))
	if pStr := strings.TrimSpace(ctx.Input.Query("platform")); pStr != "" {
		if pn, err := strconv.Atoi(pStr); err == nil {
			out.Platform = pn
		}
	}
	return out, true, ""
}

func ValidateClaim(in *ClaimParsed) (bool, string) {
	in.GameId = strings.TrimSpace(in.GameId)
	in.TicketNo = strings.TrimSpace(in.TicketNo)
	if in.GameId == "" || in.TicketNo == "" {
		return false, "missing required fields: game_id/ticket_no"
	}
	if len(in.GameId) > 64 || len(in.TicketNo) > 64 {
		return false, "invalid request"
	}
	// 票号格式：LT + 时间串 + 玩家尾号 + 随机位，整体字母数字
	if !chelper.CtypeAlnum(in.TicketNo) {
		return false, "invalid ticket_no format"
	}
	if in.Platform <= 0 || in.Platform >= 128 {
		in.Platform = 1
	}
	return true, ""
}

func ParseAndValidateClaim(ctx *beegocontext.Context) (ClaimParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseClaimFromJSON, ParseClaimFromForm)
	if !ok {
		return ClaimParsed{}, false, msg
	}
	if ok, msg := ValidateClaim(&out); !ok {
		return ClaimParsed{}, false, msg
	}
	return out, true, ""
}

// -------- SeedCallback helpers --------

// seedHexRe 校验种子为 64 位十六进制（256 bit）
var seedHexRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

type SeedCallbackParsed struct {
	RequestId string `json:"request_id"`
	Seed      string `json:"seed"` // hex 编码，64 字符
}

func ParseSeedCallbackFromJSON(r io.Reader) (SeedCallbackParsed, bool, string) {
	var out SeedCallbackParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return SeedCallbackParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseSeedCallbackFromForm(ctx *beegocontext.Context) (SeedCallbackParsed, bool, string) {
	var out SeedCallbackParsed
	out.RequestId = strings.TrimSpace(ctx.Input.Query("request_id"))
	out.Seed = strings.TrimSpace(ctx.Input.Query("seed"))
	return out, true, ""
}

func ValidateSeedCallback(in *SeedCallbackParsed) (bool, string) {
	in.RequestId = strings.TrimSpace(in.RequestId)
	in.Seed = strings.TrimSpace(in.Seed)
	if in.RequestId == "" || in.Seed == "" {
		return false, "missing required fields: request_id/seed"
	}
	if len(in.RequestId) > 64 {
		return false, "invalid request"
	}
	if !seedHexRe.MatchString(in.Seed) {
		return false, "seed must be 64 hex chars"
	}
	return true, ""
}

func ParseAndValidateSeedCallback(ctx *beegocontext.Context) (SeedCallbackParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSeedCallbackFromJSON, ParseSeedCallbackFromForm)
	if !ok {
		return SeedCallbackParsed{}, false, msg
	}
	if ok, msg := ValidateSeedCallback(&out); !ok {
		return SeedCallbackParsed{}, false, msg
	}
	return out, true, ""
}

// -------- UnlockCallback helpers --------

type UnlockCallbackParsed struct {
	RequestId string `json:"request_id"`
	Proof     string `json:"proof"` // hex 编码的解封凭据，可为空
}

func ParseUnlockCallbackFromJSON(r io.Reader) (UnlockCallbackParsed, bool, string) {
	var out UnlockCallbackParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return UnlockCallbackParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseUnlockCallbackFromForm(ctx *beegocontext.Context) (UnlockCallbackParsed, bool, string) {
	var out UnlockCallbackParsed
	out.RequestId = strings.TrimSpace(ctx.Input.Query("request_id"))
	out.Proof = strings.TrimSpace(ctx.Input.Query("proof"))
	return out, true, ""
}

func ValidateUnlockCallback(in *UnlockCallbackParsed) (bool, string) {
	in.RequestId = strings.TrimSpace(in.RequestId)
	if in.RequestId == "" {
		return false, "request_id required"
	}
	if len(in.RequestId) > 64 || len(in.Proof) > 256 {
		return false, "invalid request"
	}
	return true, ""
}

func ParseAndValidateUnlockCallback(ctx *beegocontext.Context) (UnlockCallbackParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseUnlockCallbackFromJSON, ParseUnlockCallbackFromForm)
	if !ok {
		return UnlockCallbackParsed{}, false, msg
	}
	if ok, msg := ValidateUnlockCallback(&out); !ok {
		return UnlockCallbackParsed{}, false, msg
	}
	return out, true, ""
}

// -------- EmergencyReveal helpers --------

type EmergencyRevealParsed struct {
	GameId   string `json:"game_id"`
	Numbers  []int  `json:"numbers"`
	Operator string `json:"operator"`
}

func ParseEmergencyRevealFromJSON(r io.Reader) (EmergencyRevealParsed, bool, string) {
	var out EmergencyRevealParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return EmergencyRevealParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseEmergencyRevealFromForm(ctx *beegocontext.Context) (EmergencyRevealParsed, bool, string) {
	var out EmergencyRevealParsed
	out.GameId = strings.TrimSpace(ctx.Input.Query("game_id"))
	nums, ok := parseNumbersCSV(ctx.Input.Query("numbers"))
	if !ok {
		return EmergencyRevealParsed{}, false, "numbers must be comma separated integers"
	}
	out.Numbers = nums
	out.Operator = strings.TrimSpace(ctx.Input.Query("operator"))
	return out, true, ""
}

func ValidateEmergencyReveal(in *EmergencyRevealParsed) (bool, string) {
	in.GameId = strings.TrimSpace(in.GameId)
	in.Operator = strings.TrimSpace(in.Operator)
	if chelper.IsEmptyString(in.GameId) || chelper.IsEmptyString(in.Operator) {
		return false, "missing required fields: game_id/operator"
	}
	if len(in.GameId) > 64 || len(in.Operator) > 64 {
		return false, "invalid request"
	}
	if err := draw.ValidateNumbers(in.Numbers); err != nil {
		return false, fmt.Sprintf("numbers must be %d distinct integers in [%d,%d]",
			draw.NumberCount, draw.NumberMin, draw.NumberMax)
	}
	return true, ""
}

func ParseAndValidateEmergencyReveal(ctx *beegocontext.Context) (EmergencyRevealParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseEmergencyRevealFromJSON, ParseEmergencyRevealFromForm)
	if !ok {
		return EmergencyRevealParsed{}, false, msg
	}
	if ok, msg := ValidateEmergencyReveal(&out); !ok {
		return EmergencyRevealParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Lifecycle helpers (end/pause/resume) --------

type LifecycleParsed struct {
	GameId   string `json:"game_id"`
	Operator string `json:"operator"`
}

func ParseLifecycleFromJSON(r io.Reader) (LifecycleParsed, bool, string) {
	var out LifecycleParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return LifecycleParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseLifecycleFromForm(ctx *beegocontext.Context) (LifecycleParsed, bool, string) {
	var out LifecycleParsed
	out.GameId = strings.TrimSpace(ctx.Input.Query("game_id"))
	out.Operator = strings.TrimSpace(ctx.Input.Query("operator"))
	return out, true, ""
}

func ValidateLifecycle(in *LifecycleParsed) (bool, string) {
	in.GameId = strings.TrimSpace(in.GameId)
	if in.GameId == "" {
		return false, "game_id required"
	}
	if len(in.GameId) > 64 || len(in.Operator) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

func ParseAndValidateLifecycle(ctx *beegocontext.Context) (LifecycleParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseLifecycleFromJSON, ParseLifecycleFromForm)
	if !ok {
		return LifecycleParsed{}, false, msg
	}
	if ok, msg := ValidateLifecycle(&out); !ok {
		return LifecycleParsed{}, false, msg
	}
	return out, true, ""
}
