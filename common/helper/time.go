package helper

import (
	"time"
)

// Unix 时间戳转为日期格式
func TimeUnixToStr(t int64) string {

	return time.Unix(t, 0).Format("2006-01-02 15:04:05")
}

// MilliUnixToStr 毫秒时间戳转为日期格式（库内时间戳统一为毫秒）
func MilliUnixToStr(ms int64) string {
	return TimeUnixToStr(ms / 1000)
}
