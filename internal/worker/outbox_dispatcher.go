package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	beego "github.com/beego/beego/v2/server/web"

	"lotto-server/common/logger"
	infmysql "lotto-server/internal/infra/mysql"
	infmq "lotto-server/internal/infra/rocketmq"
	"lotto-server/internal/model"

	"go.uber.org/zap"
)

// 每轮扫描的批量与节奏
const (
	outboxScanInterval = 1 * time.Second
	outboxScanBatch    = 100
)

// StartOutboxDispatcher 启动 Outbox 投递循环，经 ctx 优雅退出。
// MQ 未启用时不启动，事件仍然保留在 outbox 表里
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup) {
	if !infmq.Enabled() {
		return
	}
	wg.Add(1)
	pub := infmq.PublisherInstance()
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(outboxScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dispatchPendingOutbox(ctx, pub)
			}
		}
	}()
}

// dispatchPendingOutbox 扫描一批 pending 记录并逐条投递。
// 单条失败只累计该条的重试计数，不影响同批其他记录
func dispatchPendingOutbox(ctx context.Context, pub infmq.Publisher) {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := model.ListOutboxPending(c, infmysql.SQLX(), outboxScanBatch)
	cancel()
	if err != nil {
		logger.Warn("outbox: list pending failed", zap.Error(err))
		return
	}
	for _, r := range rows {
		if err := pub.Publish(r.Topic, []byte(r.Payload)); err != nil {
			_ = model.MarkOutboxFailed(ctx, infmysql.SQLX(), r.ID, truncateErr(err))
			continue
		}
		if err := model.MarkOutboxSent(ctx, infmysql.SQLX(), r.ID); err != nil {
			logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
		}
	}
}

// truncateErr 错误文本入库前截断，last_error 列宽有限
func truncateErr(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	if len(b) > 240 {
		return string(b[:240])
	}
	return string(b)
}

// StartInboxConsumer 启动 SimpleConsumer，把生命周期事件可靠落库到 inbox 表（message_id 去重）。
// 配置项：
// - rocketmq_endpoint 或 rocketmq_namesrv
// - rocketmq_consumer_group
// - rocketmq_consume_topics（可空，回退到 rocketmq_producer_topics）
func StartInboxConsumer(ctx context.Context, wg *sync.WaitGroup) {
	// SDK 日志重定向到控制台
	rmq.ResetLogger()

	endpoint, _ := beego.AppConfig.String("rocketmq_endpoint")
	if endpoint == "" {
		endpoint, _ = beego.AppConfig.String("rocketmq_namesrv")
	}
	if endpoint == "" {
		return
	}
	// endpoint 清洗与生产者侧一致
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	logger.Info("[mq] consumer endpoint", zap.String("endpoint", endpoint))

	group, _ := beego.AppConfig.String("rocketmq_consumer_group")
	if group == "" {
		logger.Warn("[mq] consumer not started: empty rocketmq_consumer_group")
		return
	}
	topicsStr, _ := beego.AppConfig.String("rocketmq_consume_topics")
	if topicsStr == "" {
		topicsStr, _ = beego.AppConfig.String("rocketmq_producer_topics")
	}
	if topicsStr == "" {
		logger.Warn("[mq] consumer not started: empty topics")
		return
	}
	ak, _ := beego.AppConfig.String("rocketmq_access_key")
	sk, _ := beego.AppConfig.String("rocketmq_secret_key")
	if strings.TrimSpace(ak) == "" || strings.TrimSpace(sk) == "" {
		logger.Warn("[mq] consumer not started: missing access/secret key")
		return
	}
	cfg := &rmq.Config{Endpoint: endpoint, ConsumerGroup: group}
	cfg.Credentials = &credentials.SessionCredentials{AccessKey: ak, AccessSecret: sk}

	// 多 topic 订阅，默认 SUB_ALL
	subs := map[string]*rmq.FilterExpression{}
	for _, t := range strings.Split(topicsStr, ",") {
		t = strings.TrimSpace(strings.ReplaceAll(t, ".", "_"))
		if t == "" {
			continue
		}
		subs[t] = rmq.SUB_ALL
	}

	awaitDuration := 5 * time.Second
	maxMessageNum := int32(16)
	invisibleDuration := 20 * time.Second

	// 带重试启动，容器编排下 MQ 可能晚于本服务就绪
	var sc rmq.SimpleConsumer
	var err error
	for i := 0; i < 6; i++ {
		sc, err = rmq.NewSimpleConsumer(cfg,
			rmq.WithAwaitDuration(awaitDuration),
			rmq.WithSubscriptionExpressions(subs),
		)
		if err == nil {
			if e := sc.Start(); e == nil {
				break
			} else {
				err = e
			}
		}
		logger.Warn("[mq] simple consumer start retry", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}
	if err != nil {
		logger.Error("[mq] start simple consumer failed", zap.Error(err))
		return
	}
	logger.Info("[mq] inbox consumer started", zap.String("group", group), zap.String("topics", topicsStr))

	wg.Add(1)

	go func() {
		defer wg.Done()

		defer sc.GracefulStop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				mvs, err := sc.Receive(ctx, maxMessageNum, invisibleDuration)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("[mq] receive error", zap.Error(err))
					continue
				}
				for _, mv := range mvs {
					if !consumeInboxMessage(ctx, mv) {
						continue
					}
					if err := sc.Ack(ctx, mv); err != nil {
						logger.Warn("[mq] ack failed", zap.String("id", mv.GetMessageId()), zap.Error(err))
					}
				}
			}
		}
	}()
}

// consumeInboxMessage 单条消息落库，成功才允许 Ack。
// 落库失败留给可见性超时重投，靠 message_id 唯一键兜底去重
func consumeInboxMessage(ctx context.Context, mv *rmq.MessageView) bool {
	id := mv.GetMessageId()
	topic := mv.GetTopic()
	body := mv.GetBody()
	if err := model.UpsertInbox(ctx, infmysql.SQLX(), id, topic, string(body), time.Now().UnixMilli()); err != nil {
		logger.Warn("[mq] upsert inbox failed", zap.String("id", id), zap.String("topic", topic), zap.Error(err))
		return false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return true
	}
	evt, _ := payload["event"].(string)
	gameID, _ := payload["game_id"].(string)
	switch evt {
	case "game_finished":
		numbers, _ := payload["winning_numbers"].(string)
		logger.Info("[mq] consumed settlement", zap.String("game_id", gameID), zap.String("winning_numbers", numbers))
	case "game_sealed":
		logger.Info("[mq] consumed seal notice", zap.String("game_id", gameID))
	case "pool_withdraw":
		logger.Info("[mq] consumed pool withdraw", zap.String("game_id", gameID))
	}
	return true
}
