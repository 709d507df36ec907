// Package recommend 根据分析结果生成可执行的改进建议
package recommend

import (
	"fmt"
	"strings"

	"ats-match-go/internal/types"
)

const (
	// DefaultMaxRecommendations 默认最多给出的建议条数
	DefaultMaxRecommendations = 6

	skillThreshold    = 70.0
	semanticThreshold = 60.0
	densityThreshold  = 5.0
	maxListedKeywords = 5
	maxListedMatched  = 3
)

// Composer 建议生成器，输出只依赖输入，顺序固定
type Composer struct {
	max int
}

// NewComposer 创建建议生成器
func NewComposer(max int) *Composer {
	if max <= 0 {
		max = DefaultMaxRecommendations
	}
	return &Composer{max: max}
}

// Compose 按固定顺序生成建议:
// 补充缺失关键词、优先弥补高重要度缺口、改写经历措辞、量化已命中技能。
// 条件模板先占位，高重要度缺口只填充剩余名额，缺口再多也不会挤掉模板建议。
// 都不适用时给出一条总体肯定的建议。
func (c *Composer) Compose(breakdown types.ScoreBreakdown, analysis *types.KeywordAnalysis, gaps []types.SkillGap) []string {
	if analysis == nil {
		analysis = types.EmptyKeywordAnalysis()
	}

	var head, tail []string
	if breakdown.SkillMatch < skillThreshold && len(gaps) > 0 {
		names := make([]string, 0, maxListedKeywords)
		for _, g := range gaps {
			if len(names) == maxListedKeywords {
				break
			}
			names = append(names, g.Skill)
		}
		head = append(head, fmt.Sprintf("Add these %d missing keywords to your resume where they genuinely apply: %s.",
			len(gaps), strings.Join(names, ", ")))
	}

	if breakdown.SemanticSimilarity < semanticThreshold {
		tail = append(tail, "Rephrase experience bullets to better mirror the role's language.")
	}

	if len(analysis.Matching) > 0 && breakdown.KeywordDensityBonus < densityThreshold {
		matched := analysis.Matching
		if len(matched) > maxListedMatched {
			matched = matched[:maxListedMatched]
		}
		tail = append(tail, fmt.Sprintf("Reinforce matched skills (%s) with concrete, quantified achievements.", strings.Join(matched, ", ")))
	}

	out := make([]string, 0, c.max)
	out = append(out, head...)
	for _, g := range gaps {
		if len(out)+len(tail) >= c.max {
			break
		}
		if g.Importance != types.ImportanceHigh {
			continue
		}
		if len(g.Resources) > 0 {
			out = append(out, fmt.Sprintf("Prioritize building %s experience: %s.", g.Skill, g.Resources[0]))
		} else {
			out = append(out, fmt.Sprintf("Prioritize building %s experience.", g.Skill))
		}
	}
	out = append(out, tail...)

	if len(out) == 0 {
		out = append(out, "Your resume is well aligned with this role; tailor the summary section to the company's priorities.")
	}
	if len(out) > c.max {
		out = out[:c.max]
	}
	return out
}
