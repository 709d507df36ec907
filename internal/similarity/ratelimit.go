package similarity

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"ats-match-go/internal/logger"

	"github.com/cloudwego/eino/components/embedding"
)

const (
	defaultRetryWait  = time.Second
	defaultMaxRetries = 3
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	now            func() time.Time
}

// NewTokenBucket 按每分钟请求数创建令牌桶，capacity<=0 时取 qpm 的一半
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}
	tb := &TokenBucket{
		rate:     float64(qpm) / 60.0,
		capacity: float64(capacity),
		tokens:   float64(capacity), // 初始填满
		now:      time.Now,
	}
	tb.lastRefillTime = tb.now()
	return tb
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 有令牌时消耗一个并返回 true
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RateLimitedEmbedder 对远程向量化调用限流，并对临时性错误指数退避重试
type RateLimitedEmbedder struct {
	original   Embedder
	bucket     *TokenBucket
	retryWait  time.Duration
	maxRetries int
}

var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder 包装 original，qpm 为每分钟允许的请求数
func NewRateLimitedEmbedder(original Embedder, qpm int) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		original:   original,
		bucket:     NewTokenBucket(qpm, qpm/2),
		retryWait:  defaultRetryWait,
		maxRetries: defaultMaxRetries,
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedEmbedder) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedEmbedder {
	rl.retryWait = waitTime
	rl.maxRetries = maxRetries
	return rl
}

// Name 与被包装的策略一致，缓存键不变
func (rl *RateLimitedEmbedder) Name() string {
	return rl.original.Name()
}

// ModelVersion 与被包装的策略一致
func (rl *RateLimitedEmbedder) ModelVersion() string {
	return ModelVersion(rl.original)
}

// EmbedStrings 限流后调用被包装的策略
func (rl *RateLimitedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	var (
		out [][]float64
		err error
	)
	for retry := 0; retry <= rl.maxRetries; retry++ {
		if err = rl.bucket.Wait(ctx); err != nil {
			return nil, err
		}
		out, err = rl.original.EmbedStrings(ctx, texts, opts...)
		if err == nil {
			return out, nil
		}
		if !isRetryableError(err) || retry >= rl.maxRetries {
			return nil, err
		}

		backoff := rl.retryWait * time.Duration(1<<uint(retry))
		logger.Ctx(ctx).Debug().Err(err).Int("retry", retry+1).Dur("backoff", backoff).Msg("远程向量化失败，稍后重试")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, err
}

// isRetryableError 限流、服务端错误和网络超时可以重试；ctx 取消不重试
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
