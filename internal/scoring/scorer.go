// Package scoring 按加权公式计算综合得分并给出 ATS 评级
package scoring

import (
	"math"

	"ats-match-go/internal/types"
)

const (
	DefaultSkillWeight    = 0.6
	DefaultSemanticWeight = 0.3
	// DefaultDensityNorm 命中关键词平均出现该次数时密度加分满分
	DefaultDensityNorm = 3.0
	// MaxDensityBonus 密度加分上限
	MaxDensityBonus = 10.0
)

// 评级
const (
	LevelHigh      = "high"
	LevelMedium    = "medium"
	LevelLowMedium = "low_medium"
	LevelLow       = "low"
)

var statusBands = []struct {
	min    int
	status types.ATSStatus
}{
	{85, types.ATSStatus{Level: LevelHigh, Label: "Excellent Match"}},
	{70, types.ATSStatus{Level: LevelMedium, Label: "Strong Match"}},
	{50, types.ATSStatus{Level: LevelLowMedium, Label: "Good Match"}},
	{0, types.ATSStatus{Level: LevelLow, Label: "Needs Improvement"}},
}

// Config 评分权重
type Config struct {
	SkillWeight    float64
	SemanticWeight float64
	DensityNorm    float64
}

// Scorer 评分器，无状态
type Scorer struct {
	cfg Config
}

// New 创建评分器，权重都为0时使用默认权重
func New(cfg Config) *Scorer {
	if cfg.SkillWeight == 0 && cfg.SemanticWeight == 0 {
		cfg.SkillWeight = DefaultSkillWeight
		cfg.SemanticWeight = DefaultSemanticWeight
	}
	if cfg.DensityNorm <= 0 {
		cfg.DensityNorm = DefaultDensityNorm
	}
	return &Scorer{cfg: cfg}
}

// Score 计算分项和综合得分:
// overall = round(clamp(w_skill*skill + w_sem*semantic + density_bonus, 0, 100))
func (s *Scorer) Score(analysis *types.KeywordAnalysis, semantic float64) (int, types.ScoreBreakdown) {
	var skill float64
	if analysis != nil {
		skill = analysis.MatchPercentage
	}
	breakdown := types.ScoreBreakdown{
		SkillMatch:          round2(clamp(skill, 0, 100)),
		SemanticSimilarity:  round2(clamp(semantic, 0, 100)),
		KeywordDensityBonus: round2(s.DensityBonus(analysis)),
	}
	raw := s.cfg.SkillWeight*breakdown.SkillMatch +
		s.cfg.SemanticWeight*breakdown.SemanticSimilarity +
		breakdown.KeywordDensityBonus
	return int(math.Round(clamp(raw, 0, 100))), breakdown
}

// DensityBonus min(10, 10 * 命中关键词平均出现次数 / density_norm)，无命中时为0
func (s *Scorer) DensityBonus(analysis *types.KeywordAnalysis) float64 {
	if analysis == nil || len(analysis.Density) == 0 {
		return 0
	}
	total := 0
	for _, n := range analysis.Density {
		total += n
	}
	avg := float64(total) / float64(len(analysis.Density))
	return math.Min(MaxDensityBonus, MaxDensityBonus*avg/s.cfg.DensityNorm)
}

// StatusFor 根据综合得分返回评级
func StatusFor(score int) types.ATSStatus {
	for _, band := range statusBands {
		if score >= band.min {
			return band.status
		}
	}
	return statusBands[len(statusBands)-1].status
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
