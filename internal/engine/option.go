package engine

import (
	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/similarity"
)

// Components 可替换的外部组件，未设置时按配置创建
type Components struct {
	Lexicon     *lexicon.Lexicon       // 词表
	Embedder    similarity.Embedder    // 向量化策略
	VectorStore similarity.VectorStore // 二级向量缓存
}

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// WithLexicon 使用已加载的词表
func WithLexicon(lex *lexicon.Lexicon) ComponentOpt {
	return func(c *Components) {
		c.Lexicon = lex
	}
}

// WithEmbedder 设置向量化策略
func WithEmbedder(embedder similarity.Embedder) ComponentOpt {
	return func(c *Components) {
		c.Embedder = embedder
	}
}

// WithVectorStore 设置二级向量缓存(例如 Redis)
func WithVectorStore(store similarity.VectorStore) ComponentOpt {
	return func(c *Components) {
		c.VectorStore = store
	}
}
