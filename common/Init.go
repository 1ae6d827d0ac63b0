package common

import (
	"time"

	"lotto-server/common/logger"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmoiron/sqlx"
)

// 初始化master db
func InitDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {

	db, err := sqlx.Connect("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf("InitDB sqlx.Connect", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 会话级超时，降低锁等待时长
	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	err = db.Ping()
	if err != nil {
		logger.Fatalf("InitDB failed:", zap.Error(err))
	}

	return db
}

// 初始化Redis单机连接
func InitRedis(dsn string, psd string, db int) *goredis.Client {
	reddb := goredis.NewClient(&goredis.Options{
		Network:         "tcp",
		Addr:            dsn,
		Username:        "",
		DB:              db,
		Password:        psd,
		DialTimeout:     10 * time.Second, // 设置连接超时
		ReadTimeout:     10 * time.Second, // 设置读取超时
		WriteTimeout:    5 * time.Second,  // 设置写入超时
		PoolSize:        500,              // 连接池最大socket连接数，默认为5倍CPU数
		MinIdleConns:    100,              // 在启动阶段创建指定数量的Idle连接，并长期维持idle状态的连接数不少于指定数量
		PoolTimeout:     11 * time.Second, // 当所有连接都处在繁忙状态时，客户端等待可用连接的最大等待时长
		MaxRetries:      1,                // 命令执行失败时，最多重试多少次，默认为0即不重试
		ConnMaxIdleTime: 2 * time.Minute,  // 闲置超时，-1表示取消闲置超时检查
	})
	return reddb
}
