// Package keywords 从岗位描述文档中提取加权的必备关键词
package keywords

import (
	"sort"
	"strings"

	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/types"
)

const (
	// DefaultMaxKeywords 默认最多保留的关键词数量
	DefaultMaxKeywords = 40
	// DefaultPositionalBonus 出现在任职要求上下文中的权重系数
	DefaultPositionalBonus = 1.5
)

// Config 提取器参数
type Config struct {
	MaxKeywords     int
	PositionalBonus float64
}

// Extractor 关键词提取器，只读可并发
type Extractor struct {
	norm *textnorm.Normalizer
	cfg  Config
}

// NewExtractor 创建提取器，未设置的参数取默认值
func NewExtractor(norm *textnorm.Normalizer, cfg Config) *Extractor {
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = DefaultMaxKeywords
	}
	if cfg.PositionalBonus < 1 {
		cfg.PositionalBonus = DefaultPositionalBonus
	}
	return &Extractor{norm: norm, cfg: cfg}
}

type candidate struct {
	key        string
	forms      []string
	surfaces   []string
	display    string
	weight     float64
	firstIndex int
	tokens     int
}

// ExtractRequired 提取必备关键词。
// 权重 = 出现次数 * 位置系数；同义词合并；短语之间存在包含关系时只保留先被接受的一个。
// 结果按权重降序、首次出现位置升序排列，最多 MaxKeywords 个。
func (e *Extractor) ExtractRequired(job *types.Document) []types.Keyword {
	if job.IsEmpty() {
		return []types.Keyword{}
	}

	groups := make(map[string]*candidate)
	keys := make([]string, 0, len(job.Phrases))
	for k := range job.Phrases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		stat := job.Phrases[key]
		weight := float64(stat.Count)
		if stat.SectionHits > 0 {
			weight *= e.cfg.PositionalBonus
		}

		groupKey := key
		if canon, ok := e.norm.Canonical(key); ok {
			groupKey = "syn:" + canon
		}

		c, ok := groups[groupKey]
		if !ok {
			groups[groupKey] = &candidate{
				key:        key,
				forms:      []string{key},
				surfaces:   []string{stat.Surface},
				display:    stat.Surface,
				weight:     weight,
				firstIndex: stat.FirstIndex,
				tokens:     stat.TokenCount,
			}
			continue
		}
		// 同义写法合并时取最大权重，避免子短语重复计数
		c.forms = append(c.forms, key)
		c.surfaces = append(c.surfaces, stat.Surface)
		if weight > c.weight {
			c.weight = weight
		}
		if stat.FirstIndex < c.firstIndex || (stat.FirstIndex == c.firstIndex && stat.TokenCount > c.tokens) {
			c.key = key
			c.display = stat.Surface
			c.firstIndex = stat.FirstIndex
			c.tokens = stat.TokenCount
		}
	}

	cands := make([]*candidate, 0, len(groups))
	for _, c := range groups {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if a.tokens != b.tokens {
			return a.tokens > b.tokens
		}
		if a.firstIndex != b.firstIndex {
			return a.firstIndex < b.firstIndex
		}
		return a.key < b.key
	})

	// 去重时同权重的长短语优先，避免先接受子短语
	var accepted []*candidate
	for _, c := range cands {
		if overlapsAny(c, accepted) {
			continue
		}
		accepted = append(accepted, c)
	}

	// 截断只看权重和首次出现位置
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].weight != accepted[j].weight {
			return accepted[i].weight > accepted[j].weight
		}
		return accepted[i].firstIndex < accepted[j].firstIndex
	})
	if len(accepted) > e.cfg.MaxKeywords {
		accepted = accepted[:e.cfg.MaxKeywords]
	}

	out := make([]types.Keyword, 0, len(accepted))
	for _, c := range accepted {
		out = append(out, types.Keyword{
			Normalized: c.key,
			Display:    c.display,
			Surfaces:   c.surfaces,
			Weight:     c.weight,
			Required:   true,
			FirstIndex: c.firstIndex,
			Forms:      c.forms,
			TokenCount: c.tokens,
		})
	}
	return out
}

func overlapsAny(c *candidate, accepted []*candidate) bool {
	for _, a := range accepted {
		for _, f := range c.forms {
			for _, g := range a.forms {
				if containsPhrase(f, g) || containsPhrase(g, f) {
					return true
				}
			}
		}
	}
	return false
}

// containsPhrase 判断 outer 是否在词边界上包含 inner
func containsPhrase(outer, inner string) bool {
	if outer == inner {
		return true
	}
	return strings.Contains(" "+outer+" ", " "+inner+" ")
}
