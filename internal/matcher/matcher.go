// Package matcher 判断岗位关键词在简历中的命中情况
package matcher

import (
	"math"
	"sort"
	"strings"

	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/types"

	"github.com/agnivade/levenshtein"
)

const (
	// DefaultFuzzyThreshold 编辑距离相似度阈值
	DefaultFuzzyThreshold = 0.85
	// minFuzzyLength 过短的短语不做模糊匹配
	minFuzzyLength = 5
)

// Config 匹配参数
type Config struct {
	FuzzyThreshold float64
}

// Matcher 关键词匹配器，只读可并发
type Matcher struct {
	norm *textnorm.Normalizer
	cfg  Config
}

// New 创建匹配器
func New(norm *textnorm.Normalizer, cfg Config) *Matcher {
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Matcher{norm: norm, cfg: cfg}
}

// resumeIndex 单次匹配中复用的简历索引
type resumeIndex struct {
	doc       *types.Document
	canonical map[string]int // 同义词规范短语 -> 出现次数
	unigrams  map[string]int
	sorted    []string // 按字典序排列的短语，保证模糊匹配结果稳定
}

func (m *Matcher) index(resume *types.Document) *resumeIndex {
	idx := &resumeIndex{
		doc:       resume,
		canonical: make(map[string]int),
		unigrams:  make(map[string]int),
	}
	for key, stat := range resume.Phrases {
		if canon, ok := m.norm.Canonical(key); ok {
			idx.canonical[canon] += stat.Count
		}
		if stat.TokenCount == 1 {
			idx.unigrams[key] = stat.Count
		}
		idx.sorted = append(idx.sorted, key)
	}
	sort.Strings(idx.sorted)
	return idx
}

// Match 依次尝试精确、同义词、词干、模糊四种方式匹配每个关键词。
// 命中率按去重后的关键词计算；没有关键词时命中率为0。
func (m *Matcher) Match(resume *types.Document, required []types.Keyword) *types.KeywordAnalysis {
	analysis := types.EmptyKeywordAnalysis()
	analysis.TotalJobKeywords = len(required)
	if len(required) == 0 {
		return analysis
	}

	idx := m.index(resume)
	for _, kw := range required {
		entry := types.KeywordMatch{Keyword: kw}
		if mt, freq, ok := m.matchOne(idx, kw); ok {
			entry.Matched = true
			entry.MatchType = mt
			entry.Frequency = max(freq, 1)
			analysis.TotalMatched++
			analysis.Matching = append(analysis.Matching, kw.Display)
			analysis.Density[kw.Display] = entry.Frequency
		} else {
			analysis.Missing = append(analysis.Missing, kw.Display)
		}
		analysis.Entries = append(analysis.Entries, entry)
	}

	analysis.MatchPercentage = round2(float64(analysis.TotalMatched) / float64(analysis.TotalJobKeywords) * 100)
	return analysis
}

func (m *Matcher) matchOne(idx *resumeIndex, kw types.Keyword) (types.MatchType, int, bool) {
	forms := kw.Forms
	if len(forms) == 0 {
		forms = []string{kw.Normalized}
	}

	// 精确匹配
	exact := 0
	for _, f := range forms {
		if stat, ok := idx.doc.Phrases[f]; ok {
			exact += stat.Count
		}
	}
	if exact > 0 {
		return types.MatchExact, exact, true
	}

	// 同义词
	for _, f := range forms {
		if canon, ok := m.norm.Canonical(f); ok {
			if n := idx.canonical[canon]; n > 0 {
				return types.MatchSynonym, n, true
			}
		}
	}

	// 多词短语的所有词干都出现在简历中
	for _, f := range forms {
		stems := strings.Fields(f)
		if len(stems) < 2 {
			continue
		}
		least := math.MaxInt
		for _, s := range stems {
			n := idx.unigrams[s]
			if n < least {
				least = n
			}
		}
		if least > 0 {
			return types.MatchStem, least, true
		}
	}

	// 编辑距离
	bestRatio, bestCount := 0.0, 0
	for _, f := range forms {
		if len(f) < minFuzzyLength {
			continue
		}
		tokens := len(strings.Fields(f))
		for _, key := range idx.sorted {
			stat := idx.doc.Phrases[key]
			if stat.TokenCount != tokens || len(key) < minFuzzyLength {
				continue
			}
			if r := Ratio(f, key); r >= m.cfg.FuzzyThreshold && r > bestRatio {
				bestRatio, bestCount = r, stat.Count
			}
		}
	}
	if bestRatio > 0 {
		return types.MatchFuzzy, bestCount, true
	}
	return "", 0, false
}

// Ratio 归一化的编辑距离相似度，取值 [0,1]
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
