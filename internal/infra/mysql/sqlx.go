package mysql

import (
	"sync"

	"github.com/jmoiron/sqlx"
)

var (
	once   sync.Once
	sqlxDB *sqlx.DB
)

// SQLX 把注入的 *sql.DB 包成 sqlx 句柄，模型层事务和查询都走它。
// 首次调用时构建，UseDB 必须先于任何模型访问
func SQLX() *sqlx.DB {
	once.Do(func() {
		if DB() != nil {
			sqlxDB = sqlx.NewDb(DB(), "mysql")
		}
	})
	return sqlxDB
}
