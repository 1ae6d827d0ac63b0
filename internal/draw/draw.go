package draw

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
)

// 开奖号码的取值契约：3个互不相同的整数，范围 [1,100]。
// 该契约同时约束购票号码与开奖号码。
const (
	NumberCount = 3
	NumberMin   = 1
	NumberMax   = 100

	// SeedBytes 随机种子字节数（256位）
	SeedBytes = 32

	// maxAttempts 去重重试上限。100个候选值取3个，碰撞概率极低，
	// 该上限在实践中不可达，仅作为防御性保护。
	maxAttempts = 1000
)

var (
	ErrDrawExhausted = errors.New("draw retry budget exhausted")
	ErrBadSeed       = errors.New("seed must be 32 bytes")
)

// Derive 由随机种子确定性地推导3个互不相同的开奖号码。
// 算法：对 seed||index||collisions 做 sha256，取前8字节按大端转 uint64，
// 对100取模加1得到候选值；候选值重复则递增碰撞计数重算。
// 输出升序排列，保证同一种子任何时候得到同一（且可比较的）结果。
func Derive(seed []byte) ([]int, error) {
	if len(seed) != SeedBytes {
		return nil, ErrBadSeed
	}

	picks := make([]int, 0, NumberCount)
	attempts := 0
	for i := 0; i < NumberCount; i++ {
		collisions := uint64(0)
		for {
			if attempts >= maxAttempts {
				return nil, ErrDrawExhausted
			}
			attempts++

			candidate := deriveOne(seed, uint64(i), collisions)
			if !contains(picks, candidate) {
				picks = append(picks, candidate)
				break
			}
			collisions++
		}
	}

	sort.Ints(picks)
	return picks, nil
}

func deriveOne(seed []byte, index, collisions uint64) int {
	var suffix [16]byte
	binary.BigEndian.PutUint64(suffix[0:8], index)
	binary.BigEndian.PutUint64(suffix[8:16], collisions)

	h := sha256.New()
	h.Write(seed)
	h.Write(suffix[:])
	sum := h.Sum(nil)

	span := uint64(NumberMax - NumberMin + 1)
	return int(binary.BigEndian.Uint64(sum[:8])%span) + NumberMin
}

func contains(picks []int, n int) bool {
	for _, p := range picks {
		if p == n {
			return true
		}
	}
	return false
}

// ParseSeed 解析十六进制编码的种子字符串（64个hex字符 = 32字节）
func ParseSeed(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("seed is not valid hex: %w", err)
	}
	if len(b) != SeedBytes {
		return nil, ErrBadSeed
	}
	return b, nil
}

// ValidateNumbers 校验号码组合是否满足取值契约：
// 恰好3个、互不相同、均在 [1,100] 内。顺序无关。
func ValidateNumbers(nums []int) error {
	if len(nums) != NumberCount {
		return fmt.Errorf("expect exactly %d numbers, got %d", NumberCount, len(nums))
	}
	seen := make(map[int]bool, NumberCount)
	for _, n := range nums {
		if n < NumberMin || n > NumberMax {
			return fmt.Errorf("number %d out of range [%d,%d]", n, NumberMin, NumberMax)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// Normalize 返回升序排列的号码副本，入库前统一排序便于比较与展示。
func Normalize(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}
