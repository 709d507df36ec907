package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ats-match-go/internal/config"
	"ats-match-go/internal/constants"
	"ats-match-go/internal/tracing"

	"github.com/redis/go-redis/extra/redisotel/v9" // Redis OpenTelemetry钩子
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// HASH 字段
const (
	fieldVector       = "vector"
	fieldModelVersion = "model_version"
)

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("ats-match-go/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// SetVector 将向量和模型版本存入 Redis HASH，并设置过期时间。
// 实现 similarity.VectorStore。
func (r *Redis) SetVector(ctx context.Context, key string, vector []float64, modelVersion string, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	ctx, span := redisTracer.Start(ctx, "Redis.SetVector", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HSET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		attribute.Int("vector.dimensions", len(vector)),
	)

	vectorJSON, err := encodeVector(vector)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return err
	}
	if ttl <= 0 {
		ttl = constants.EmbeddingCacheTTL
	}

	// 使用 pipeline 原子化操作
	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, key, fieldVector, vectorJSON, fieldModelVersion, modelVersion)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("设置向量缓存失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetVector 从 Redis HASH 中获取向量和模型版本，不存在时返回 ErrNotFound。
func (r *Redis) GetVector(ctx context.Context, key string) ([]float64, string, error) {
	if r.Client == nil {
		return nil, "", fmt.Errorf("redis client is not initialized")
	}
	ctx, span := redisTracer.Start(ctx, "Redis.GetVector", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HMGET"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)

	vals, err := r.Client.HMGet(ctx, key, fieldVector, fieldModelVersion).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, "", err
	}
	vector, version, err := decodeHash(vals)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// key 不存在不算错误
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			span.SetStatus(codes.Ok, "key not found")
		} else {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		}
		return nil, "", err
	}
	span.SetAttributes(attribute.Bool("db.redis.key_exists", true))
	return vector, version, nil
}

func encodeVector(vector []float64) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("序列化向量失败: %w", err)
	}
	return string(data), nil
}

// decodeHash 解析 HMGET vector model_version 的返回值
func decodeHash(vals []any) ([]float64, string, error) {
	if len(vals) < 2 || vals[0] == nil {
		return nil, "", ErrNotFound
	}
	vectorJSON, ok := vals[0].(string)
	if !ok || vectorJSON == "" {
		return nil, "", fmt.Errorf("向量缓存格式错误")
	}
	var vector []float64
	if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
		return nil, "", fmt.Errorf("反序列化向量失败: %w", err)
	}
	if vals[1] == nil {
		return nil, "", fmt.Errorf("向量模型版本未找到")
	}
	modelVersion, ok := vals[1].(string)
	if !ok {
		return nil, "", fmt.Errorf("向量模型版本格式错误")
	}
	return vector, modelVersion, nil
}
