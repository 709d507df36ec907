package similarity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ats-match-go/internal/constants"
	"ats-match-go/internal/logger"

	"golang.org/x/sync/singleflight"
)

// VectorStore 二级向量缓存(例如 Redis)，只作为加速层，失败不影响结果
type VectorStore interface {
	GetVector(ctx context.Context, key string) ([]float64, string, error)
	SetVector(ctx context.Context, key string, vector []float64, modelVersion string, ttl time.Duration) error
}

// CacheConfig 缓存参数
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type cacheEntry struct {
	vector    []float64
	expiresAt time.Time
}

// VectorCache 按内容哈希缓存向量: L1 进程内 + 可选 L2。
// 同一个 key 的并发请求只计算一次。
type VectorCache struct {
	mu         sync.RWMutex
	l1         map[string]*cacheEntry
	l2         VectorStore
	ttl        time.Duration
	maxEntries int
	group      singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

// NewVectorCache 创建缓存，l2 可以为 nil
func NewVectorCache(cfg CacheConfig, l2 VectorStore) *VectorCache {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.EmbeddingCacheTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = constants.DefaultCacheEntries
	}
	return &VectorCache{
		l1:         make(map[string]*cacheEntry),
		l2:         l2,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
	}
}

// Key 由模型版本和内容哈希组成缓存键
func Key(modelVersion, contentHash string) string {
	return fmt.Sprintf(constants.KeyEmbeddingVector, modelVersion, contentHash)
}

// GetOrCompute 原子化的读取或计算。compute 只在 L1/L2 都未命中时调用，
// 且同一 key 同时只有一个 compute 在执行。
// 共享的 compute 不继承任一调用方的取消信号，每个调用方只按自己的 ctx 提前返回。
func (c *VectorCache) GetOrCompute(ctx context.Context, key, modelVersion string, compute func(ctx context.Context) ([]float64, error)) ([]float64, error) {
	if v, ok := c.getL1(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.getL1(key); ok {
			c.hits.Add(1)
			return v, nil
		}
		if c.l2 != nil {
			vec, version, err := c.l2.GetVector(shared, key)
			if err == nil && len(vec) > 0 && version == modelVersion {
				c.hits.Add(1)
				c.setL1(key, vec)
				return vec, nil
			}
		}

		c.misses.Add(1)
		c.computes.Add(1)
		vec, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.setL1(key, vec)
		if c.l2 != nil {
			if err := c.l2.SetVector(shared, key, vec, modelVersion, c.ttl); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("写入二级向量缓存失败")
			}
		}
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float64), nil
	}
}

func (c *VectorCache) getL1(key string) ([]float64, bool) {
	c.mu.RLock()
	e, ok := c.l1[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.l1, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.vector, true
}

func (c *VectorCache) setL1(key string, vec []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.l1[key] = &cacheEntry{vector: vec, expiresAt: time.Now().Add(c.ttl)}
}

// evictLocked 超过容量时先删过期项，再删最早过期的项
func (c *VectorCache) evictLocked() {
	if len(c.l1) < c.maxEntries {
		return
	}
	now := time.Now()
	for k, e := range c.l1 {
		if now.After(e.expiresAt) {
			delete(c.l1, k)
		}
	}
	for len(c.l1) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range c.l1 {
			if oldestKey == "" || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = k, e.expiresAt
			}
		}
		delete(c.l1, oldestKey)
	}
}

// CacheStats 缓存统计
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
	Entries  int   `json:"entries"`
}

// Stats 返回当前统计
func (c *VectorCache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.l1)
	c.mu.RUnlock()
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
		Entries:  n,
	}
}
