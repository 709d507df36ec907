package recommend

import (
	"fmt"
	"testing"

	"ats-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gap(skill string, importance types.Importance, resources ...string) types.SkillGap {
	return types.SkillGap{Skill: skill, Importance: importance, Resources: resources}
}

func TestCompose_WorkedExample(t *testing.T) {
	analysis := types.EmptyKeywordAnalysis()
	analysis.Matching = []string{"python", "sql"}
	gaps := []types.SkillGap{
		gap("aws", types.ImportanceHigh, "AWS Skill Builder"),
		gap("communication skills", types.ImportanceMedium, "Toastmasters"),
	}
	recs := NewComposer(0).Compose(types.ScoreBreakdown{SkillMatch: 50, SemanticSimilarity: 30, KeywordDensityBonus: 3.33}, analysis, gaps)

	assert.Equal(t, []string{
		"Add these 2 missing keywords to your resume where they genuinely apply: aws, communication skills.",
		"Prioritize building aws experience: AWS Skill Builder.",
		"Rephrase experience bullets to better mirror the role's language.",
		"Reinforce matched skills (python, sql) with concrete, quantified achievements.",
	}, recs)
}

func TestCompose_WellAligned(t *testing.T) {
	analysis := types.EmptyKeywordAnalysis()
	analysis.Matching = []string{"go"}
	recs := NewComposer(0).Compose(types.ScoreBreakdown{SkillMatch: 100, SemanticSimilarity: 90, KeywordDensityBonus: 10}, analysis, nil)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "well aligned")
}

func TestCompose_HighSkillSkipsMissingList(t *testing.T) {
	gaps := []types.SkillGap{gap("terraform", types.ImportanceHigh)}
	recs := NewComposer(0).Compose(types.ScoreBreakdown{SkillMatch: 80, SemanticSimilarity: 75, KeywordDensityBonus: 10}, nil, gaps)
	assert.Equal(t, []string{"Prioritize building terraform experience."}, recs)
}

func TestCompose_CapAndListLimit(t *testing.T) {
	var gaps []types.SkillGap
	for i := 0; i < 10; i++ {
		gaps = append(gaps, gap(fmt.Sprintf("s%d", i), types.ImportanceHigh, "r"))
	}
	recs := NewComposer(0).Compose(types.ScoreBreakdown{}, nil, gaps)
	require.Len(t, recs, DefaultMaxRecommendations)
	assert.Equal(t, "Add these 10 missing keywords to your resume where they genuinely apply: s0, s1, s2, s3, s4.", recs[0])
	assert.Equal(t, "Prioritize building s0 experience: r.", recs[1])

	recs = NewComposer(2).Compose(types.ScoreBreakdown{}, nil, gaps)
	assert.Len(t, recs, 2)
}

func TestCompose_TemplatesSurviveManyHighGaps(t *testing.T) {
	var gaps []types.SkillGap
	for i := 0; i < 9; i++ {
		gaps = append(gaps, gap(fmt.Sprintf("skill%d", i), types.ImportanceHigh, "course"))
	}
	analysis := types.EmptyKeywordAnalysis()
	analysis.Matching = []string{"python"}

	cases := []struct {
		name      string
		max       int
		breakdown types.ScoreBreakdown
		wantLen   int
		want      []string
	}{
		{
			name:      "low skill and semantic",
			max:       0,
			breakdown: types.ScoreBreakdown{SkillMatch: 10, SemanticSimilarity: 5, KeywordDensityBonus: 10},
			wantLen:   DefaultMaxRecommendations,
			want: []string{
				"Add these 9 missing keywords to your resume where they genuinely apply: skill0, skill1, skill2, skill3, skill4.",
				"Rephrase experience bullets to better mirror the role's language.",
			},
		},
		{
			name:      "low density as well",
			max:       0,
			breakdown: types.ScoreBreakdown{SkillMatch: 10, SemanticSimilarity: 5, KeywordDensityBonus: 1},
			wantLen:   DefaultMaxRecommendations,
			want: []string{
				"Rephrase experience bullets to better mirror the role's language.",
				"Reinforce matched skills (python) with concrete, quantified achievements.",
			},
		},
		{
			name:      "templates fill a small cap",
			max:       3,
			breakdown: types.ScoreBreakdown{SkillMatch: 10, SemanticSimilarity: 5, KeywordDensityBonus: 1},
			wantLen:   3,
			want: []string{
				"Add these 9 missing keywords to your resume where they genuinely apply: skill0, skill1, skill2, skill3, skill4.",
				"Rephrase experience bullets to better mirror the role's language.",
				"Reinforce matched skills (python) with concrete, quantified achievements.",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs := NewComposer(tc.max).Compose(tc.breakdown, analysis, gaps)
			require.Len(t, recs, tc.wantLen)
			for _, w := range tc.want {
				assert.Contains(t, recs, w)
			}
		})
	}
}

func TestCompose_Deterministic(t *testing.T) {
	analysis := types.EmptyKeywordAnalysis()
	analysis.Matching = []string{"a", "b", "c", "d"}
	gaps := []types.SkillGap{gap("x", types.ImportanceHigh, "rx"), gap("y", types.ImportanceLow)}
	c := NewComposer(0)
	first := c.Compose(types.ScoreBreakdown{SkillMatch: 40}, analysis, gaps)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Compose(types.ScoreBreakdown{SkillMatch: 40}, analysis, gaps))
	}
	assert.Contains(t, first, "Reinforce matched skills (a, b, c) with concrete, quantified achievements.")
}
