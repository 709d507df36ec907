// Package worker 从 RabbitMQ 消费匹配请求，运行匹配引擎并回写结果
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ats-match-go/internal/config"
	"ats-match-go/internal/engine"
	"ats-match-go/internal/logger"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/tracing"
	"ats-match-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("worker")

// Analyzer 匹配引擎接口，便于测试替换
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobText string) (*types.MatchResult, error)
}

// MatchConsumer 匹配请求消费者
type MatchConsumer struct {
	mq       storage.MessageQueue
	analyzer Analyzer
	cfg      config.RabbitMQConfig
}

// NewMatchConsumer 创建消费者
func NewMatchConsumer(mq storage.MessageQueue, analyzer Analyzer, cfg config.RabbitMQConfig) *MatchConsumer {
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	if cfg.ConsumerWorkers <= 0 {
		cfg.ConsumerWorkers = 1
	}
	return &MatchConsumer{mq: mq, analyzer: analyzer, cfg: cfg}
}

// Setup 声明交换机、请求队列并绑定
func (c *MatchConsumer) Setup() error {
	if err := c.mq.EnsureExchange(c.cfg.MatchEventsExchange, "topic", true); err != nil {
		return fmt.Errorf("声明匹配事件交换机失败: %w", err)
	}
	if err := c.mq.EnsureQueue(c.cfg.MatchRequestQueue, true); err != nil {
		return fmt.Errorf("声明匹配请求队列失败: %w", err)
	}
	if err := c.mq.BindQueue(c.cfg.MatchRequestQueue, c.cfg.MatchEventsExchange, c.cfg.MatchRequestRouting); err != nil {
		return fmt.Errorf("绑定匹配请求队列失败: %w", err)
	}
	return nil
}

// Start 启动 ConsumerWorkers 个并行消费者。ctx 取消后全部退出，返回的通道随之关闭。
func (c *MatchConsumer) Start(ctx context.Context) (<-chan struct{}, error) {
	if err := c.Setup(); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.ConsumerWorkers; i++ {
		done, err := c.mq.StartConsumer(ctx, c.cfg.MatchRequestQueue, c.cfg.PrefetchCount, c.Handle)
		if err != nil {
			return nil, fmt.Errorf("启动第 %d 个消费者失败: %w", i+1, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	logger.Info().
		Str("queue", c.cfg.MatchRequestQueue).
		Int("workers", c.cfg.ConsumerWorkers).
		Msg("匹配请求消费者已启动")
	return allDone, nil
}

// Handle 处理单条匹配请求:
// 消息不合法时丢弃；输入错误作为结果回写；发布失败或被取消时重新入队。
func (c *MatchConsumer) Handle(ctx context.Context, body []byte) storage.Decision {
	ctx, span := tracer.Start(ctx, "worker.HandleMatchRequest", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var msg types.MatchRequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		logger.Warn().Err(err).Str("body", tracing.SafeText(string(body))).Msg("匹配请求消息格式错误，丢弃")
		return storage.Reject
	}
	if msg.RequestID == "" {
		err := errors.New("request_id 缺失")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		logger.Warn().Msg("匹配请求缺少 request_id，丢弃")
		return storage.Reject
	}
	span.SetAttributes(attribute.String("request_id", msg.RequestID))
	ctx = logger.WithRequestID(ctx, msg.RequestID)
	log := logger.Ctx(ctx)

	out := types.MatchResultMessage{RequestID: msg.RequestID}
	result, err := c.analyzer.Analyze(ctx, msg.ResumeText, msg.JobDescriptionText)
	switch {
	case err == nil:
		out.Result = result
	case engine.IsInputError(err):
		out.Error = err.Error()
	default:
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		log.Error().Err(err).Msg("匹配分析失败，重新入队")
		return storage.Requeue
	}
	out.CompletedAt = time.Now().UTC()

	if err := c.mq.PublishJSON(ctx, c.cfg.MatchEventsExchange, c.cfg.MatchResultRoutingKey, out, true); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		tracing.RecordRabbitMQNack(span, msg.RequestID, "publish_result_failed")
		log.Error().Err(err).Msg("发布匹配结果失败，重新入队")
		return storage.Requeue
	}

	ev := log.Info()
	if out.Result != nil {
		ev = ev.Int("score", out.Result.Score).Str("level", out.Result.ATSStatus.Level)
	} else {
		ev = ev.Str("error", out.Error)
	}
	ev.Msg("匹配请求处理完成")
	return storage.Ack
}
