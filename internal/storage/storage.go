package storage

import (
	"context"
	"fmt"
	"strings"

	"ats-match-go/internal/config"
	"ats-match-go/internal/logger"
)

// Storage 存储管理器，聚合所有外部依赖。两者都是可选的。
type Storage struct {
	// 消息队列
	RabbitMQ *RabbitMQ

	// 键值存储，作为向量二级缓存
	Redis *Redis
}

// NewStorage 按配置初始化外部依赖。
// 单个组件失败只记录警告；配置了却全部失败时返回错误。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string
	configured := 0

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		configured++
		logger.Info().Msg("初始化RabbitMQ...")
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	// 初始化Redis（仅在启用二级缓存时）
	if cfg.Cache.Enabled && cfg.Cache.UseRedis && cfg.Redis.Address != "" {
		configured++
		logger.Info().Str("address", cfg.Redis.Address).Msg("初始化Redis...")
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		logger.Debug().Msg("Redis二级缓存未启用, 跳过初始化")
	}

	if configured > 0 && storage.RabbitMQ == nil && storage.Redis == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
