// Package gaps 把未命中的必备关键词整理成分级的技能缺口
package gaps

import (
	"math"
	"sort"

	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/types"
)

// DefaultMaxResources 每个缺口最多给出的学习资源数
const DefaultMaxResources = 3

// Analyzer 技能缺口分析器，创建后只读
type Analyzer struct {
	lex          *lexicon.Lexicon
	byKey        map[string][]string // 规范化短语 -> 资源
	maxResources int
}

// New 创建分析器。资源表中的关键词和同义词写法都会被规范化，
// 以便用提取出的关键词直接查找。
func New(norm *textnorm.Normalizer, maxResources int) *Analyzer {
	if maxResources <= 0 {
		maxResources = DefaultMaxResources
	}
	lex := norm.Lexicon()
	a := &Analyzer{
		lex:          lex,
		byKey:        make(map[string][]string),
		maxResources: maxResources,
	}
	for _, k := range lex.ResourceKeys() {
		if key := norm.Key(k); key != "" {
			a.byKey[key] = lex.Resources(k)
		}
	}
	// 同义词写法指向规范写法的资源
	for _, g := range lex.SynonymGroups() {
		res := lex.Resources(g.Canonical)
		if len(res) == 0 {
			continue
		}
		for _, alias := range append([]string{g.Canonical}, g.Aliases...) {
			key := norm.Key(alias)
			if _, exists := a.byKey[key]; key != "" && !exists {
				a.byKey[key] = res
			}
		}
	}
	return a
}

// Analyze 未命中关键词按权重降序排列，前 1/3 为 high，接下来 1/3 为 medium，其余为 low
func (a *Analyzer) Analyze(analysis *types.KeywordAnalysis) []types.SkillGap {
	if analysis == nil {
		return []types.SkillGap{}
	}
	missing := analysis.UnmatchedEntries()
	if len(missing) == 0 {
		return []types.SkillGap{}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Keyword.Weight > missing[j].Keyword.Weight
	})

	n := len(missing)
	high := int(math.Ceil(float64(n) / 3))
	medium := int(math.Ceil(2*float64(n)/3)) - high

	out := make([]types.SkillGap, 0, n)
	for i, m := range missing {
		importance := types.ImportanceLow
		switch {
		case i < high:
			importance = types.ImportanceHigh
		case i < high+medium:
			importance = types.ImportanceMedium
		}
		out = append(out, types.SkillGap{
			Skill:      m.Keyword.Display,
			Importance: importance,
			Resources:  a.Resources(m.Keyword),
			Weight:     m.Keyword.Weight,
		})
	}
	return out
}

// Resources 查找关键词的学习资源，找不到时给出通用的检索建议
func (a *Analyzer) Resources(kw types.Keyword) []string {
	res := a.lex.Resources(kw.Display)
	if len(res) == 0 {
		res = a.byKey[kw.Normalized]
	}
	for _, form := range kw.Forms {
		if len(res) > 0 {
			break
		}
		res = a.byKey[form]
	}
	if len(res) == 0 {
		return []string{"Search for " + kw.Display + " courses"}
	}
	if len(res) > a.maxResources {
		res = res[:a.maxResources]
	}
	return append([]string(nil), res...)
}
