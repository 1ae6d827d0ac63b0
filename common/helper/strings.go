package helper

import (
	"database/sql"
	"errors"
	"strings"
)

// CtypeDigit 判断字符串是否全为 ASCII 数字，空串视为否
func CtypeDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CtypeAlnum 判断字符串是否全为 ASCII 字母或数字。
// ticket_no、nonce 一类外部入参在进入 SQL 或 Redis key 前先过这里
func CtypeAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// IsEmptyString 判断去除首尾空白后是否为空
func IsEmptyString(str string) bool {
	return strings.TrimSpace(str) == ""
}

// IsNoRows 统一的空结果判定，模型层调用方不直接依赖 database/sql
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
