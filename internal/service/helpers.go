package service

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// numbersToJSON 号码入库统一为 JSON 数组字符串
func numbersToJSON(nums []int) string {
	b, _ := json.Marshal(nums)
	return string(b)
}

func numbersFromJSON(s string) ([]int, error) {
	var nums []int
	if err := json.Unmarshal([]byte(s), &nums); err != nil {
		return nil, err
	}
	return nums, nil
}

// generateTicketNo 生成可读的票号
// 格式：LT{YYYYMMDDHHmmss}{玩家ID后4位}{随机3位十六进制}
// 示例：LT202608261430251001A3F
//   - 可读：包含日期、时间、玩家信息
//   - 有序：按时间排序
//   - 唯一：时间 + 玩家 + 随机数保证唯一性
func generateTicketNo(playerID int64) string {
	now := time.Now()
	dateTime := now.Format("20060102150405")
	playerSuffix := fmt.Sprintf("%04d", playerID%10000)
	randomBytes := make([]byte, 2)
	rand.Read(randomBytes)
	randomHex := strings.ToUpper(hex.EncodeToString(randomBytes)[:3])

	return fmt.Sprintf("LT%s%s%s", dateTime, playerSuffix, randomHex)
}

// isMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func isMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	// MySQL 错误码 1062: Duplicate entry
	return strings.Contains(errMsg, "Error 1062") ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "duplicate key")
}
