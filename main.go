package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lotto-server/common"
	"lotto-server/common/logger"
	"lotto-server/internal/config"
	"lotto-server/internal/controller/api"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/provider"
	"lotto-server/internal/service"
	"lotto-server/internal/worker"
	"lotto-server/routers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Printf("load config failed: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)
	config.SetCurrent(cfg)

	logger.InitLogger()
	defer logger.Sync()
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新：仅刷新动态配置快照（功能开关、业务阈值），
	// 连接类配置变更需要重启生效
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		config.SetCurrent(newCfg)
		logger.Info("[main] config reloaded")
	}); err != nil {
		logger.Warn("[main] config watch unavailable", zap.Error(err))
	}

	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	if cfg.Database.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second)
	}
	infmysql.UseDB(db.DB)

	if cfg.Redis.Addr != "" {
		infrds.UseClient(common.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
		if err := infrds.Ping(ctx, 3*time.Second); err != nil {
			logger.Fatalf("redis ping failed", zap.Error(err))
		}
	}

	// 服务装配顺序：先建封存服务，时间锁回调指向它；
	// 抽奖服务持有时间锁（开奖后托管密钥）；随机源回调指向抽奖服务
	sealSvc := service.NewSealService()
	timeLock := provider.NewLocalTimeLock(func(cbCtx context.Context, requestID string, proof []byte) {
		// 脱离取消链的回调 context 仍保留原请求的 trace_id
		in := service.UnlockInput{RequestID: requestID, Proof: proof, TraceID: logger.GetTraceID(cbCtx)}
		if err := sealSvc.OnUnlockReceived(cbCtx, in); err != nil {
			logger.Warn("[main] unlock callback rejected",
				zap.String("request_id", requestID), zap.String("trace_id", in.TraceID), zap.Error(err))
		}
	})
	drawSvc := service.NewDrawService(timeLock)
	seedDelay := time.Duration(config.GetThreshold("seed_delivery_delay_ms", 3000)) * time.Millisecond
	rng := provider.NewLocalRandomness(func(cbCtx context.Context, requestID string, seed []byte) {
		in := service.SeedInput{RequestID: requestID, Seed: seed, TraceID: logger.GetTraceID(cbCtx)}
		if err := drawSvc.OnSeedReceived(cbCtx, in); err != nil {
			logger.Warn("[main] seed callback rejected",
				zap.String("request_id", requestID), zap.String("trace_id", in.TraceID), zap.Error(err))
		}
	}, seedDelay)
	api.InitServices(rng, timeLock)
	routers.Register()

	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)

	if cfg.Observability.EnableProm && cfg.Observability.PromAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Observability.PromAddr, mux); err != nil {
				logger.Warn("[main] metrics server stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("[main] shutdown signal received")
		cancel()
		wg.Wait()
		beego.BeeApp.Server.Shutdown(context.Background())
	}()

	logger.Info("[main] lotto-server starting", zap.Int("port", cfg.Server.Port))
	beego.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}
