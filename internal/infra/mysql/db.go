package mysql

import "database/sql"

// 全局 *sql.DB 句柄，启动时由 main 注入（common.InitDB 建连）
var db *sql.DB

// UseDB 注入外部初始化好的连接，nil 注入忽略
func UseDB(d *sql.DB) {
	if d == nil {
		return
	}
	db = d
}

// DB 返回全局 *sql.DB 句柄，就绪探针直接 Ping 它
func DB() *sql.DB { return db }
