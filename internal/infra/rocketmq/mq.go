package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	beego "github.com/beego/beego/v2/server/web"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// Publisher 是 Outbox 投递器看到的最小发布面
type Publisher interface {
	Publish(topic string, body []byte) error
}

var (
	initOnce sync.Once
	enabled  bool
	prod     rmq.Producer
	pub      Publisher
)

// Enabled 返回 MQ 是否已配置且生产者启动成功
func Enabled() bool { initOnce.Do(initMQ); return enabled }

// PublisherInstance 返回当前发布器，MQ 未启用时为丢弃消息的占位实现
func PublisherInstance() Publisher {
	initOnce.Do(initMQ)
	if pub == nil {
		pub = &stubPublisher{}
	}
	return pub
}

type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(topic string, body []byte) error {
	if r.p == nil {
		return nil
	}
	msg := &rmq.Message{Topic: topic, Body: body}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.p.Send(ctx, msg)
	return err
}

// stubPublisher 在 MQ 未启用时吞掉消息，开奖/结算事件仍留在 outbox 表里可追溯
type stubPublisher struct{}

func (s *stubPublisher) Publish(topic string, body []byte) error {
	logger.Warn("[mq disabled] drop message", zap.String("topic", topic))
	return nil
}

// disableMQ 统一降级入口
func disableMQ(reason string, fields ...zap.Field) {
	enabled = false
	pub = &stubPublisher{}
	if reason != "" {
		logger.Warn("rocketmq disabled: "+reason, fields...)
	}
}

func initMQ() {
	// SDK 默认往 /logs 写文件日志，先重置掉
	rmq.ResetLogger()

	endpoint, _ := beego.AppConfig.String("rocketmq_endpoint")
	if endpoint == "" {
		// 兼容早期配置键
		endpoint, _ = beego.AppConfig.String("rocketmq_namesrv")
	}
	if endpoint == "" {
		disableMQ("")
		return
	}
	// endpoint 清洗：去 scheme，多地址只取第一个
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	ak, _ := beego.AppConfig.String("rocketmq_access_key")
	sk, _ := beego.AppConfig.String("rocketmq_secret_key")
	topicsStr, _ := beego.AppConfig.String("rocketmq_producer_topics")

	// 缺少凭证时直接降级，底层 SDK 在 Sign 阶段会对空凭证崩溃
	if strings.TrimSpace(ak) == "" || strings.TrimSpace(sk) == "" {
		disableMQ("missing access/secret key while endpoint present")
		return
	}

	cfg := &rmq.Config{Endpoint: endpoint}
	cfg.Credentials = &credentials.SessionCredentials{AccessKey: ak, AccessSecret: sk}
	logger.Info("rocketmq producer config", zap.String("endpoint", endpoint), zap.String("topics", topicsStr))

	var opts []rmq.ProducerOption
	if topicsStr != "" {
		parts := strings.Split(topicsStr, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(strings.ReplaceAll(parts[i], ".", "_"))
		}
		opts = append(opts, rmq.WithTopics(parts...))
	}

	p, err := rmq.NewProducer(cfg, opts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		disableMQ("")
		return
	}

	// 启动放到 goroutine，SDK 在 endpoint 不通时会阻塞很久
	startDone := make(chan error, 1)
	go func() {
		startDone <- p.Start()
	}()

	select {
	case err := <-startDone:
		if err != nil {
			disableMQ("producer start failed, fall back to stub publisher", zap.Error(err))
			return
		}
		prod = p
		pub = &rmqPublisher{p: p}
		enabled = true
		logger.Info("rocketmq enabled", zap.String("endpoint", endpoint))
	case <-time.After(2 * time.Second):
		disableMQ("producer start timeout, fall back to stub publisher")
	}
}
