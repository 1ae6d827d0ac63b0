package common

import (
	"fmt"
	"runtime"
	"time"
)

// Printf 带时间与调用位置的控制台输出，通用查询器的错误日志走这里
func Printf(format string, v ...interface{}) {
	_, file, line, _ := runtime.Caller(1)
	fmt.Println(time.Now().Format("2006-01-02 15:04:05.000"), "|",
		fmt.Sprintf("%s:%d", file, line), "|", fmt.Sprintf(format, v...))
}
