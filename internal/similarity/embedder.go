// Package similarity 计算简历与岗位描述之间的语义相似度(0~100)
package similarity

import (
	"fmt"
	"strings"

	"ats-match-go/internal/textnorm"

	"github.com/cloudwego/eino/components/embedding"
)

const (
	// StrategyHashing 本地特征哈希向量
	StrategyHashing = "hashing-tfidf"
	// StrategyRemote OpenAI 兼容的远程 embedding 接口
	StrategyRemote = "remote"
)

// Embedder 文本向量化策略，兼容 eino 的 embedding.Embedder
type Embedder interface {
	embedding.Embedder
	// Name 策略名称；未实现 Versioned 时同时作为缓存键的一部分
	Name() string
}

// Versioned 可选接口: 向量结果还依赖名称之外的参数(维度、词表)时，
// 由 ModelVersion 给出完整版本，缓存键和二级缓存的模型版本都使用它
type Versioned interface {
	ModelVersion() string
}

// ModelVersion 返回策略的模型版本，未实现 Versioned 时退回 Name
func ModelVersion(e Embedder) string {
	if v, ok := e.(Versioned); ok {
		return v.ModelVersion()
	}
	return e.Name()
}

// EmbedderConfig 选择和配置向量化策略
type EmbedderConfig struct {
	Strategy   string
	Dimensions int
	Model      string
	BaseURL    string
	APIKey     string
	TimeoutSec int
	QPM        int // 远程接口每分钟请求上限，<=0 不限流
}

// NewEmbedder 根据配置创建向量化策略
func NewEmbedder(norm *textnorm.Normalizer, cfg EmbedderConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategyHashing:
		return NewHashingEmbedder(norm, cfg.Dimensions), nil
	case StrategyRemote:
		remote, err := NewRemoteEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.QPM > 0 {
			return NewRateLimitedEmbedder(remote, cfg.QPM), nil
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("未知的向量化策略: %q", cfg.Strategy)
	}
}
