package prize

import "testing"

func TestMatchCount(t *testing.T) {
	winning := []int{7, 34, 90}
	cases := []struct {
		ticket []int
		want   int
	}{
		{[]int{7, 34, 90}, 3},
		{[]int{90, 7, 34}, 3}, // 顺序无关
		{[]int{7, 34, 2}, 2},
		{[]int{7, 23, 45}, 1},
		{[]int{12, 34, 56}, 1},
		{[]int{1, 2, 3}, 0},
		{nil, 0},
		// 异常入参也不会重复计数
		{[]int{7, 7, 7}, 1},
	}
	for _, c := range cases {
		if got := MatchCount(c.ticket, winning); got != c.want {
			t.Fatalf("MatchCount(%v) = %d, want %d", c.ticket, got, c.want)
		}
	}
}

func TestSplitTierTruncation(t *testing.T) {
	// 整除截断：100 / 3 = 33，余1不分配
	if got := SplitTier(100, 3); got != 33 {
		t.Fatalf("SplitTier(100,3) = %d, want 33", got)
	}
	if got := SplitTier(100, 0); got != 0 {
		t.Fatalf("SplitTier(100,0) = %d, want 0", got)
	}
	if got := SplitTier(0, 5); got != 0 {
		t.Fatalf("SplitTier(0,5) = %d, want 0", got)
	}
}

func TestTierPool(t *testing.T) {
	if got := TierPool(1000, 70); got != 700 {
		t.Fatalf("TierPool(1000,70) = %d, want 700", got)
	}
	// 999*10/100 = 99（截断）
	if got := TierPool(999, 10); got != 99 {
		t.Fatalf("TierPool(999,10) = %d, want 99", got)
	}
	if got := TierPool(-5, 10); got != 0 {
		t.Fatalf("TierPool(-5,10) = %d, want 0", got)
	}
}

func TestDistributeFixedTier(t *testing.T) {
	cfg := Config{Mode: ModeFixed, FixedTier3: 1000, FixedTier2: 100, FixedTier1: 10}
	winning := []int{7, 34, 90}
	picks := []Pick{
		{Seq: 0, PlayerID: 1, Numbers: []int{7, 23, 45}},  // 1 match
		{Seq: 1, PlayerID: 2, Numbers: []int{12, 34, 56}}, // 1 match
		{Seq: 2, PlayerID: 3, Numbers: []int{7, 34, 90}},  // 3 matches
		{Seq: 3, PlayerID: 4, Numbers: []int{1, 2, 3}},    // 0 matches
	}
	awards := Distribute(picks, winning, 0, cfg)
	wantPrize := []int64{10, 10, 1000, 0}
	wantMatch := []int{1, 1, 3, 0}
	for i, a := range awards {
		if a.Matches != wantMatch[i] || a.Prize != wantPrize[i] {
			t.Fatalf("award[%d] = {matches:%d prize:%d}, want {%d %d}",
				i, a.Matches, a.Prize, wantMatch[i], wantPrize[i])
		}
	}
}

func TestDistributePoolPolicy(t *testing.T) {
	cfg := DefaultConfig() // 70/20/10
	winning := []int{7, 34, 90}
	pool := int64(1000)
	picks := []Pick{
		{Seq: 0, PlayerID: 1, Numbers: []int{7, 34, 2}},  // 2 matches
		{Seq: 1, PlayerID: 2, Numbers: []int{7, 34, 5}},  // 2 matches
		{Seq: 2, PlayerID: 3, Numbers: []int{7, 34, 11}}, // 2 matches
		{Seq: 3, PlayerID: 4, Numbers: []int{7, 1, 2}},   // 1 match
		{Seq: 4, PlayerID: 5, Numbers: []int{50, 60, 70}},
	}
	awards := Distribute(picks, winning, pool, cfg)

	// 2中梯度：1000*20/100=200，3人均分 -> 66，余2留存
	for i := 0; i < 3; i++ {
		if awards[i].Prize != 66 {
			t.Fatalf("tier-2 award[%d] = %d, want 66", i, awards[i].Prize)
		}
	}
	// 1中梯度：1000*10/100=100，1人独得
	if awards[3].Prize != 100 {
		t.Fatalf("tier-1 award = %d, want 100", awards[3].Prize)
	}
	if awards[4].Prize != 0 {
		t.Fatalf("no-match award = %d, want 0", awards[4].Prize)
	}

	// 派奖总额不得超过总奖池（仅在整除时取等）
	if total := TotalPrize(awards); total > pool {
		t.Fatalf("total payout %d exceeds pool %d", total, pool)
	}
}

func TestDistributePoolNoWinners(t *testing.T) {
	cfg := DefaultConfig()
	picks := []Pick{
		{Seq: 0, PlayerID: 1, Numbers: []int{1, 2, 3}},
	}
	awards := Distribute(picks, []int{7, 34, 90}, 10000, cfg)
	if awards[0].Prize != 0 || awards[0].Matches != 0 {
		t.Fatalf("unexpected award: %+v", awards[0])
	}
	if TotalPrize(awards) != 0 {
		t.Fatalf("payout should be zero with no winners")
	}
}

func TestDistributePayoutNeverExceedsPool(t *testing.T) {
	cfg := DefaultConfig()
	winning := []int{7, 34, 90}
	// 构造各梯度都有中奖票的混合场景
	picks := []Pick{
		{Seq: 0, PlayerID: 1, Numbers: []int{7, 34, 90}},
		{Seq: 1, PlayerID: 2, Numbers: []int{7, 34, 90}},
		{Seq: 2, PlayerID: 3, Numbers: []int{7, 34, 1}},
		{Seq: 3, PlayerID: 4, Numbers: []int{7, 2, 3}},
		{Seq: 4, PlayerID: 5, Numbers: []int{90, 4, 5}},
		{Seq: 5, PlayerID: 6, Numbers: []int{11, 12, 13}},
	}
	for _, pool := range []int64{1, 7, 99, 1000, 999999, 1000003} {
		awards := Distribute(picks, winning, pool, cfg)
		if total := TotalPrize(awards); total > pool {
			t.Fatalf("pool=%d: payout %d exceeds pool", pool, total)
		}
	}
}
