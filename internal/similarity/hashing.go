package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ats-match-go/internal/textnorm"

	"github.com/cespare/xxhash/v2"
	"github.com/cloudwego/eino/components/embedding"
)

// DefaultDimensions 本地哈希向量默认维度
const DefaultDimensions = 1024

const bigramWeight = 0.5

// HashingEmbedder 基于特征哈希的本地向量化: 词干一元/二元特征，次线性TF，带符号哈希，L2归一化。
// 同一文本总是得到相同向量。
type HashingEmbedder struct {
	norm *textnorm.Normalizer
	dims int
}

var _ Embedder = (*HashingEmbedder)(nil)

// NewHashingEmbedder 创建本地向量化器
func NewHashingEmbedder(norm *textnorm.Normalizer, dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingEmbedder{norm: norm, dims: dims}
}

// Name 策略名称
func (h *HashingEmbedder) Name() string {
	return StrategyHashing
}

// ModelVersion 策略名、维度和词表指纹，任一变化都会使旧向量失效
func (h *HashingEmbedder) ModelVersion() string {
	return fmt.Sprintf("%s:d%d:%s", StrategyHashing, h.dims, h.norm.Lexicon().Fingerprint())
}

// GetDimensions 向量维度
func (h *HashingEmbedder) GetDimensions() int {
	return h.dims
}

// EmbedStrings 实现 embedding.Embedder
func (h *HashingEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashingEmbedder) embed(text string) []float64 {
	vec := make([]float64, h.dims)
	tokens := h.norm.Tokens(text)
	if len(tokens) == 0 {
		return vec
	}

	tf := make(map[string]float64, len(tokens)*2)
	for i, tok := range tokens {
		tf[tok]++
		if i > 0 {
			tf[tokens[i-1]+" "+tok] += bigramWeight
		}
	}

	// 按特征排序累加，保证浮点结果稳定
	features := make([]string, 0, len(tf))
	for f := range tf {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, feature := range features {
		freq := tf[feature]
		sum := xxhash.Sum64String(feature)
		idx := sum % uint64(h.dims)
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		vec[idx] += sign * (1 + math.Log(freq))
	}

	normalize(vec)
	return vec
}

func normalize(vec []float64) {
	var sq float64
	for _, v := range vec {
		sq += v * v
	}
	if sq == 0 {
		return
	}
	n := math.Sqrt(sq)
	for i := range vec {
		vec[i] /= n
	}
}
