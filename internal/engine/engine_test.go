package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ats-match-go/internal/config"
	"ats-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	workedResume = "Python developer with SQL experience"
	workedJob    = "Require 3+ years Python, SQL, and AWS. Must have strong communication skills."
)

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) EmbedStrings(context.Context, []string, ...embedding.Option) ([][]float64, error) {
	return nil, errors.New("connection refused")
}

// countingEmbedder 统计被调用的次数，向量固定
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Name() string { return "counting" }
func (c *countingEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	c.mu.Lock()
	c.calls += len(texts)
	c.mu.Unlock()
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func newEngine(t *testing.T, opts ...ComponentOpt) *Engine {
	t.Helper()
	e, err := New(config.Default(), opts...)
	require.NoError(t, err)
	return e
}

func TestAnalyze_WorkedExample(t *testing.T) {
	e := newEngine(t)
	result, err := e.Analyze(context.Background(), workedResume, workedJob)
	require.NoError(t, err)

	ka := result.KeywordAnalysis
	assert.ElementsMatch(t, []string{"python", "sql"}, ka.Matching)
	assert.Equal(t, []string{"aws", "communication skills"}, ka.Missing)
	assert.NotContains(t, ka.Missing, "require", "招聘套话不应成为关键词")
	assert.Equal(t, 4, ka.TotalJobKeywords)
	assert.InDelta(t, 50.0, ka.MatchPercentage, 0.01)
	assert.Equal(t, 50.0, result.ScoreBreakdown.SkillMatch)

	assert.GreaterOrEqual(t, result.Score, 0)
	assert.LessOrEqual(t, result.Score, 100)
	assert.Equal(t, "hashing-tfidf", result.SimilarityBackend)
	assert.Empty(t, result.Degraded)

	require.Len(t, result.SkillGaps, 2)
	assert.Equal(t, types.ImportanceHigh, result.SkillGaps[0].Importance)
	assert.NotEmpty(t, result.Recommendations)
	assert.True(t, strings.HasPrefix(result.Recommendations[0], "Add these 2 missing keywords"))
	assert.Contains(t, result.Summary, "2 of 4 required keywords matched (50%)")
}

func TestAnalyze_BothEmptyRejected(t *testing.T) {
	e := newEngine(t)
	_, err := e.Analyze(context.Background(), "", "   \n\t")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInput)
	assert.True(t, IsInputError(err))

	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "analyze", ae.Op)
}

func TestAnalyze_OneSideEmpty(t *testing.T) {
	e := newEngine(t)

	result, err := e.Analyze(context.Background(), "", workedJob)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, "low", result.ATSStatus.Level)
	assert.Contains(t, result.Summary, "resume text is empty")
	assert.Equal(t, []string{DegradedEmptyResume}, result.Degraded)
	assert.Empty(t, result.KeywordAnalysis.Matching)

	result, err = e.Analyze(context.Background(), workedResume, "!!! ???")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0.0, result.ScoreBreakdown.SkillMatch)
	assert.Equal(t, 0.0, result.KeywordAnalysis.MatchPercentage)
	assert.Equal(t, []string{DegradedEmptyJob}, result.Degraded)
}

func TestAnalyze_EmbeddingUnavailableDegrades(t *testing.T) {
	e := newEngine(t, WithEmbedder(failingEmbedder{}))
	result, err := e.Analyze(context.Background(), workedResume, workedJob)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.ScoreBreakdown.SemanticSimilarity)
	assert.Equal(t, []string{DegradedSemantic}, result.Degraded)
	assert.Contains(t, result.Summary, "unavailable")
	// 关键词部分不受影响
	assert.InDelta(t, 50.0, result.KeywordAnalysis.MatchPercentage, 0.01)
	// 0.6*50 + 0 + 10/3
	assert.Equal(t, 33, result.Score)
}

func TestAnalyze_IdenticalText(t *testing.T) {
	e := newEngine(t)
	text := "Required: Go, Kubernetes, PostgreSQL and gRPC. Nice to have: Terraform."
	result, err := e.Analyze(context.Background(), text, text)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.ScoreBreakdown.SkillMatch)
	assert.Equal(t, 100.0, result.ScoreBreakdown.SemanticSimilarity)
	assert.Empty(t, result.SkillGaps)
	assert.GreaterOrEqual(t, result.Score, 90)
}

func TestAnalyze_DeterministicJSON(t *testing.T) {
	e := newEngine(t)
	resume := "Senior backend engineer. Go, Kafka, Redis, PostgreSQL, Docker and Kubernetes (k8s). Led a team of 5."
	job := `About us: we build payments.
Requirements:
- 5+ years of Go or Java
- Kubernetes, Terraform and AWS
- Strong communication skills`

	first, err := e.Analyze(context.Background(), resume, job)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		// 新引擎避免只比较缓存结果
		again, err := newEngine(t).Analyze(context.Background(), resume, job)
		require.NoError(t, err)
		got, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestAnalyze_TooLong(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MaxTextChars = 10
	e, err := New(cfg)
	require.NoError(t, err)

	_, err = e.Analyze(context.Background(), "python and sql developer", "python")
	assert.ErrorIs(t, err, ErrInput)
}

func TestAnalyze_Concurrent(t *testing.T) {
	e := newEngine(t)
	var wg sync.WaitGroup
	scores := make([]int, 16)
	for i := range scores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Analyze(context.Background(), workedResume, workedJob)
			if assert.NoError(t, err) {
				scores[i] = r.Score
			}
		}(i)
	}
	wg.Wait()
	for _, s := range scores {
		assert.Equal(t, scores[0], s)
	}
}

func TestAnalyzeBatch_OrderAndReuse(t *testing.T) {
	emb := &countingEmbedder{}
	e := newEngine(t, WithEmbedder(emb))

	jobs := []string{
		"Required: Python.",
		"",
		"Required: SQL and AWS.",
		"Required: Rust.",
	}
	items, err := e.AnalyzeBatch(context.Background(), workedResume, jobs)
	require.NoError(t, err)
	require.Len(t, items, len(jobs))

	assert.Equal(t, 100.0, items[0].Result.KeywordAnalysis.MatchPercentage)
	assert.Equal(t, []string{DegradedEmptyJob}, items[1].Result.Degraded)
	assert.InDelta(t, 50.0, items[2].Result.KeywordAnalysis.MatchPercentage, 0.01)
	assert.Equal(t, 0.0, items[3].Result.KeywordAnalysis.MatchPercentage)

	// 简历向量只计算一次: 1 份简历 + 3 份非空岗位
	assert.Equal(t, 4, emb.calls)
	assert.Equal(t, int64(4), e.CacheStats().Computes)
}

func TestAnalyzeBatch_Limits(t *testing.T) {
	e := newEngine(t)
	_, err := e.AnalyzeBatch(context.Background(), workedResume, nil)
	assert.ErrorIs(t, err, ErrInput)

	jobs := make([]string, 21)
	for i := range jobs {
		jobs[i] = fmt.Sprintf("Required: skill%d", i)
	}
	_, err = e.AnalyzeBatch(context.Background(), workedResume, jobs)
	assert.ErrorIs(t, err, ErrInput)

	// 全空的条目只影响自身
	items, err := e.AnalyzeBatch(context.Background(), "", []string{"", workedJob})
	require.NoError(t, err)
	assert.NotEmpty(t, items[0].Error)
	assert.Equal(t, []string{DegradedEmptyResume}, items[1].Result.Degraded)
}

func TestNew_ConfigurationError(t *testing.T) {
	cfg := config.Default()
	cfg.Lexicon.SynonymsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = config.Default()
	cfg.Embedding.Strategy = "word2vec"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAnalysisError_Message(t *testing.T) {
	err := NewEmbeddingError("similarity", errors.New("timeout"))
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "similarity")
	assert.Contains(t, err.Error(), "timeout")
}
