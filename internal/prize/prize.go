package prize

// 奖金计算。金额一律使用最小货币单位的 int64，百分比池的除法
// 为向下取整整除，余数不再分配（留存奖池，属约定行为而非缺陷）。

// 派奖策略模式
const (
	ModeFixed = "fixed" // 固定梯度：按命中数发放固定金额，与奖池无关
	ModePool  = "pool"  // 百分比池：按命中数梯度预留奖池百分比，梯度内均分
)

// Config 派奖配置（来自配置中心 prize 段）
type Config struct {
	Mode string

	// 固定梯度金额，下标含义：命中3/2/1
	FixedTier3 int64
	FixedTier2 int64
	FixedTier1 int64

	// 百分比池，三个梯度的奖池占比（百分数，合计应 <= 100）
	PoolPct3 int64
	PoolPct2 int64
	PoolPct1 int64
}

// DefaultConfig 默认 70/20/10 百分比池
func DefaultConfig() Config {
	return Config{
		Mode:     ModePool,
		PoolPct3: 70,
		PoolPct2: 20,
		PoolPct1: 10,
	}
}

// MatchCount 计算票面号码与开奖号码的交集大小。
// 每个号码最多计一次，即使入参异常出现重复也不会重复计数。
func MatchCount(ticket, winning []int) int {
	win := make(map[int]bool, len(winning))
	for _, n := range winning {
		win[n] = true
	}
	matches := 0
	for _, n := range ticket {
		if win[n] {
			matches++
			delete(win, n)
		}
	}
	return matches
}

// TierPool 按百分比从总奖池中切出某一梯度的额度（整除截断）
func TierPool(pool, percent int64) int64 {
	if pool <= 0 || percent <= 0 {
		return 0
	}
	return pool * percent / 100
}

// SplitTier 将梯度额度在该梯度的中奖票之间均分（整除截断）。
// 无人中奖时返回0，余数留存不分配。
func SplitTier(tierPool int64, winners int) int64 {
	if winners <= 0 || tierPool <= 0 {
		return 0
	}
	return tierPool / int64(winners)
}

// fixedAward 固定梯度策略下单票奖金
func fixedAward(matches int, cfg Config) int64 {
	switch matches {
	case 3:
		return cfg.FixedTier3
	case 2:
		return cfg.FixedTier2
	case 1:
		return cfg.FixedTier1
	}
	return 0
}

// Pick 参与结算的一张票（纯数据，与存储层解耦）
type Pick struct {
	Seq      int64
	PlayerID int64
	Numbers  []int
}

// Award 单票结算结果
type Award struct {
	Seq      int64
	PlayerID int64
	Matches  int
	Prize    int64
}

// Distribute 对一局的全部票计算命中数与奖金。
// 固定梯度：逐票查表；百分比池：先统计各梯度中奖票数，
// 再切池均分。输出顺序与入参一致（即购票顺序）。
func Distribute(picks []Pick, winning []int, pool int64, cfg Config) []Award {
	awards := make([]Award, len(picks))
	tierWinners := [4]int{}
	for i, p := range picks {
		m := MatchCount(p.Numbers, winning)
		awards[i] = Award{Seq: p.Seq, PlayerID: p.PlayerID, Matches: m}
		tierWinners[m]++
	}

	if cfg.Mode == ModeFixed {
		for i := range awards {
			awards[i].Prize = fixedAward(awards[i].Matches, cfg)
		}
		return awards
	}

	// 百分比池
	perWinner := [4]int64{
		3: SplitTier(TierPool(pool, cfg.PoolPct3), tierWinners[3]),
		2: SplitTier(TierPool(pool, cfg.PoolPct2), tierWinners[2]),
		1: SplitTier(TierPool(pool, cfg.PoolPct1), tierWinners[1]),
	}
	for i := range awards {
		awards[i].Prize = perWinner[awards[i].Matches]
	}
	return awards
}

// TotalPrize 汇总一局的派奖总额（结算日志用）
func TotalPrize(awards []Award) int64 {
	var total int64
	for _, a := range awards {
		total += a.Prize
	}
	return total
}
