package gaps

import (
	"fmt"
	"testing"

	"ats-match-go/internal/keywords"
	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/matcher"
	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNormalizer(t *testing.T) *textnorm.Normalizer {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return textnorm.New(lex)
}

func analyze(t *testing.T, norm *textnorm.Normalizer, resume, job string) *types.KeywordAnalysis {
	t.Helper()
	kws := keywords.NewExtractor(norm, keywords.Config{}).ExtractRequired(norm.Normalize(types.KindJob, job))
	return matcher.New(norm, matcher.Config{}).Match(norm.Normalize(types.KindResume, resume), kws)
}

func TestAnalyze_WorkedExample(t *testing.T) {
	norm := newNormalizer(t)
	a := New(norm, 0)
	gaps := a.Analyze(analyze(t, norm, "Python developer with SQL experience", "Require 3+ years Python, SQL, and AWS. Must have strong communication skills."))

	require.Len(t, gaps, 2)
	assert.Equal(t, "aws", gaps[0].Skill)
	assert.Equal(t, types.ImportanceHigh, gaps[0].Importance)
	assert.Equal(t, "AWS Skill Builder: Cloud Practitioner Essentials", gaps[0].Resources[0])
	assert.Len(t, gaps[0].Resources, 3)

	assert.Equal(t, "communication skills", gaps[1].Skill)
	assert.Equal(t, types.ImportanceMedium, gaps[1].Importance)
	assert.NotEmpty(t, gaps[1].Resources)
}

func TestAnalyze_NoGaps(t *testing.T) {
	norm := newNormalizer(t)
	a := New(norm, 0)
	gaps := a.Analyze(analyze(t, norm, "Python and SQL", "Required: Python, SQL."))
	assert.NotNil(t, gaps)
	assert.Empty(t, gaps)

	assert.Empty(t, a.Analyze(nil))
}

func TestAnalyze_Tiers(t *testing.T) {
	norm := newNormalizer(t)
	a := New(norm, 0)

	tests := []struct {
		n                 int
		high, medium, low int
	}{
		{1, 1, 0, 0},
		{2, 1, 1, 0},
		{3, 1, 1, 1},
		{4, 2, 1, 1},
		{7, 3, 2, 2},
		{9, 3, 3, 3},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("n=%d", tc.n), func(t *testing.T) {
			analysis := types.EmptyKeywordAnalysis()
			for i := 0; i < tc.n; i++ {
				name := fmt.Sprintf("skill%d", i)
				analysis.Entries = append(analysis.Entries, types.KeywordMatch{
					Keyword: types.Keyword{Normalized: name, Display: name, Weight: float64(i + 1)},
				})
			}
			gaps := a.Analyze(analysis)
			require.Len(t, gaps, tc.n)

			counts := map[types.Importance]int{}
			for _, g := range gaps {
				counts[g.Importance]++
			}
			assert.Equal(t, tc.high, counts[types.ImportanceHigh])
			assert.Equal(t, tc.medium, counts[types.ImportanceMedium])
			assert.Equal(t, tc.low, counts[types.ImportanceLow])

			// 权重最高的排在最前
			assert.Equal(t, fmt.Sprintf("skill%d", tc.n-1), gaps[0].Skill)
			for i := 1; i < len(gaps); i++ {
				assert.GreaterOrEqual(t, gaps[i-1].Weight, gaps[i].Weight)
			}
		})
	}
}

func TestAnalyze_StableForEqualWeights(t *testing.T) {
	norm := newNormalizer(t)
	analysis := types.EmptyKeywordAnalysis()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		analysis.Entries = append(analysis.Entries, types.KeywordMatch{
			Keyword: types.Keyword{Normalized: name, Display: name, Weight: 1},
		})
	}
	gaps := New(norm, 0).Analyze(analysis)
	assert.Equal(t, "zeta", gaps[0].Skill)
	assert.Equal(t, "alpha", gaps[1].Skill)
	assert.Equal(t, "mid", gaps[2].Skill)
}

func TestResources(t *testing.T) {
	norm := newNormalizer(t)
	a := New(norm, 2)

	// 同义词写法使用规范写法的资源
	k8s := a.Resources(types.Keyword{Normalized: "k8s", Display: "k8s"})
	assert.Equal(t, []string{"Kubernetes Basics (kubernetes.io)", "Certified Kubernetes Application Developer (CKAD)"}, k8s)

	unknown := a.Resources(types.Keyword{Normalized: "fortran", Display: "fortran"})
	assert.Equal(t, []string{"Search for fortran courses"}, unknown)

	// 通过合并进来的写法查找
	viaForm := a.Resources(types.Keyword{Normalized: "xyz", Display: "xyz", Forms: []string{"xyz", "python"}})
	assert.Equal(t, "The Python Tutorial (docs.python.org)", viaForm[0])
	assert.Len(t, viaForm, 2)
}
