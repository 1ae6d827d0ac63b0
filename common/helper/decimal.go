package helper

import (
	"github.com/shopspring/decimal"
)

// TrimDecimal 金额展示统一四舍五入到2位小数。
// 注意不能用截断，派奖金额 xx.995 一类的值截断会少一分
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}
