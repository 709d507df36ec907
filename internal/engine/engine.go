// Package engine 串联规范化、关键词提取、匹配、相似度、评分、缺口分析和建议生成，
// 对一份简历和一份岗位描述给出完整的匹配结果。
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"
	"unicode/utf8"

	"ats-match-go/internal/config"
	"ats-match-go/internal/constants"
	"ats-match-go/internal/gaps"
	"ats-match-go/internal/keywords"
	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/logger"
	"ats-match-go/internal/matcher"
	"ats-match-go/internal/recommend"
	"ats-match-go/internal/scoring"
	"ats-match-go/internal/similarity"
	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/tracing"
	"ats-match-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// 降级标记
const (
	DegradedSemantic    = "semantic_similarity_unavailable"
	DegradedEmptyResume = "resume_empty"
	DegradedEmptyJob    = "job_description_empty"
)

var tracer = otel.Tracer("engine")

// Engine 匹配引擎。创建后只读，可被多个 goroutine 同时使用。
type Engine struct {
	lex       *lexicon.Lexicon
	norm      *textnorm.Normalizer
	extractor *keywords.Extractor
	matcher   *matcher.Matcher
	estimator *similarity.Estimator
	cache     *similarity.VectorCache
	scorer    *scoring.Scorer
	gaps      *gaps.Analyzer
	composer  *recommend.Composer

	workers      int
	batchLimit   int
	maxTextChars int
}

// New 根据配置创建引擎。词表或向量化配置不合法时返回 ErrConfiguration。
func New(cfg *config.Config, opts ...ComponentOpt) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	comps := &Components{}
	for _, opt := range opts {
		opt(comps)
	}

	lex := comps.Lexicon
	if lex == nil {
		var err error
		lex, err = lexicon.Load(lexicon.Files{
			StopwordsFile: cfg.Lexicon.StopwordsFile,
			SynonymsFile:  cfg.Lexicon.SynonymsFile,
			ResourcesFile: cfg.Lexicon.ResourcesFile,
		})
		if err != nil {
			return nil, NewConfigurationError("load_lexicon", err)
		}
	}
	norm := textnorm.New(lex)

	embedder := comps.Embedder
	if embedder == nil {
		var err error
		embedder, err = similarity.NewEmbedder(norm, similarity.EmbedderConfig{
			Strategy:   cfg.Embedding.Strategy,
			Dimensions: cfg.Embedding.Dimensions,
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			TimeoutSec: int(config.GetDuration(cfg.Embedding.Timeout, 10*time.Second) / time.Second),
			QPM:        cfg.Embedding.QPM,
		})
		if err != nil {
			return nil, NewConfigurationError("create_embedder", err)
		}
	}

	var cache *similarity.VectorCache
	if cfg.Cache.Enabled {
		cache = similarity.NewVectorCache(similarity.CacheConfig{
			TTL:        config.GetDuration(cfg.Cache.TTL, constants.EmbeddingCacheTTL),
			MaxEntries: cfg.Cache.MaxEntries,
		}, comps.VectorStore)
	}

	e := &Engine{
		lex:  lex,
		norm: norm,
		extractor: keywords.NewExtractor(norm, keywords.Config{
			MaxKeywords:     cfg.Matcher.MaxKeywords,
			PositionalBonus: cfg.Matcher.PositionalBonus,
		}),
		matcher:   matcher.New(norm, matcher.Config{FuzzyThreshold: cfg.Matcher.FuzzyThreshold}),
		estimator: similarity.NewEstimator(embedder, cache, cfg.Engine.Workers),
		cache:     cache,
		scorer: scoring.New(scoring.Config{
			SkillWeight:    cfg.Matcher.SkillWeight,
			SemanticWeight: cfg.Matcher.SemanticWeight,
			DensityNorm:    cfg.Matcher.DensityNorm,
		}),
		gaps:         gaps.New(norm, cfg.Matcher.MaxResources),
		composer:     recommend.NewComposer(cfg.Matcher.MaxRecommendations),
		workers:      cfg.Engine.Workers,
		batchLimit:   cfg.Engine.BatchLimit,
		maxTextChars: cfg.Engine.MaxTextChars,
	}
	if e.batchLimit <= 0 {
		e.batchLimit = constants.DefaultBatchLimit
	}
	if e.maxTextChars <= 0 {
		e.maxTextChars = constants.DefaultMaxTextChars
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}

	stop, groups, res := lex.Stats()
	logger.Info().
		Str("similarity_backend", embedder.Name()).
		Bool("cache", cache != nil).
		Bool("l2_cache", comps.VectorStore != nil).
		Int("stop_words", stop).
		Int("synonym_groups", groups).
		Int("resources", res).
		Msg("匹配引擎初始化完成")
	return e, nil
}

// Backend 相似度后端名称
func (e *Engine) Backend() string {
	return e.estimator.Backend()
}

// Lexicon 当前使用的词表
func (e *Engine) Lexicon() *lexicon.Lexicon {
	return e.lex
}

// CacheStats 向量缓存统计，未启用缓存时为零值
func (e *Engine) CacheStats() similarity.CacheStats {
	if e.cache == nil {
		return similarity.CacheStats{}
	}
	return e.cache.Stats()
}

// Analyze 对一份简历和一份岗位描述进行匹配分析。
// 两者都为空时返回 ErrInput；只有一方为空时返回零分结果并在 summary 中说明。
func (e *Engine) Analyze(ctx context.Context, resumeText, jobText string) (*types.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "engine.Analyze")
	defer span.End()

	if err := e.checkLength("resume_text", resumeText); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if err := e.checkLength("job_description_text", jobText); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	resume := e.norm.Normalize(types.KindResume, resumeText)
	job := e.norm.Normalize(types.KindJob, jobText)
	result, err := e.analyzeDocuments(ctx, resume, job)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("match.score", result.Score),
		attribute.String("match.level", result.ATSStatus.Level),
		attribute.Int("match.keywords", result.KeywordAnalysis.TotalJobKeywords),
	)
	return result, nil
}

// AnalyzeBatch 一份简历对多个岗位描述并发分析，结果顺序与输入一致。
// 简历只规范化一次，向量由缓存复用；单个岗位的错误写入对应条目，不影响其他条目。
func (e *Engine) AnalyzeBatch(ctx context.Context, resumeText string, jobTexts []string) ([]types.BatchItem, error) {
	ctx, span := tracer.Start(ctx, "engine.AnalyzeBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(jobTexts)))

	if len(jobTexts) == 0 {
		err := NewInputError("analyze_batch", "岗位描述列表为空")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if len(jobTexts) > e.batchLimit {
		err := NewInputError("analyze_batch", fmt.Sprintf("岗位描述数量 %d 超过上限 %d", len(jobTexts), e.batchLimit))
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if err := e.checkLength("resume_text", resumeText); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	resume := e.norm.Normalize(types.KindResume, resumeText)
	items := make([]types.BatchItem, len(jobTexts))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, jobText := range jobTexts {
		i, jobText := i, jobText
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i] = types.BatchItem{Error: err.Error()}
				return nil
			}
			if err := e.checkLength("job_description_text", jobText); err != nil {
				items[i] = types.BatchItem{Error: err.Error()}
				return nil
			}
			job := e.norm.Normalize(types.KindJob, jobText)
			result, err := e.analyzeDocuments(ctx, resume, job)
			if err != nil {
				items[i] = types.BatchItem{Error: err.Error()}
				return nil
			}
			items[i] = types.BatchItem{Result: result}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeTimeout)
		return nil, err
	}
	return items, nil
}

func (e *Engine) checkLength(field, text string) error {
	if n := utf8.RuneCountInString(text); n > e.maxTextChars {
		return NewInputError("validate", fmt.Sprintf("%s 长度 %d 超过上限 %d", field, n, e.maxTextChars))
	}
	return nil
}

func (e *Engine) analyzeDocuments(ctx context.Context, resume, job *types.Document) (*types.MatchResult, error) {
	switch {
	case resume.IsEmpty() && job.IsEmpty():
		return nil, NewInputError("analyze", "简历和岗位描述都为空")
	case resume.IsEmpty():
		return e.emptyResult(DegradedEmptyResume,
			"The resume text is empty or contains no readable words, so no match could be computed.",
			"Provide the full resume text to receive a complete analysis."), nil
	case job.IsEmpty():
		return e.emptyResult(DegradedEmptyJob,
			"The job description is empty or contains no readable words, so no required keywords could be extracted.",
			"Provide the full job description text to receive a complete analysis."), nil
	}

	required := e.extractor.ExtractRequired(job)
	analysis := e.matcher.Match(resume, required)

	var degraded []string
	semantic, err := e.estimator.Similarity(ctx, resume, job)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Ctx(ctx).Warn().
			Err(NewEmbeddingError("similarity", err)).
			Str("similarity_backend", e.estimator.Backend()).
			Msg("语义相似度计算失败，按0分处理")
		semantic = 0
		degraded = append(degraded, DegradedSemantic)
	}

	score, breakdown := e.scorer.Score(analysis, semantic)
	status := scoring.StatusFor(score)
	skillGaps := e.gaps.Analyze(analysis)
	recs := e.composer.Compose(breakdown, analysis, skillGaps)

	return &types.MatchResult{
		Score:             score,
		Summary:           summarize(score, status, analysis, breakdown, len(degraded) > 0),
		ATSStatus:         status,
		ScoreBreakdown:    breakdown,
		KeywordAnalysis:   analysis,
		Recommendations:   recs,
		SkillGaps:         skillGaps,
		SimilarityBackend: e.estimator.Backend(),
		Degraded:          degraded,
	}, nil
}

// emptyResult 只有一方输入为空时的零分结果
func (e *Engine) emptyResult(flag, summary, recommendation string) *types.MatchResult {
	return &types.MatchResult{
		Score:             0,
		Summary:           summary,
		ATSStatus:         scoring.StatusFor(0),
		KeywordAnalysis:   types.EmptyKeywordAnalysis(),
		Recommendations:   []string{recommendation},
		SkillGaps:         []types.SkillGap{},
		SimilarityBackend: e.estimator.Backend(),
		Degraded:          []string{flag},
	}
}

func summarize(score int, status types.ATSStatus, analysis *types.KeywordAnalysis, b types.ScoreBreakdown, semanticDegraded bool) string {
	var msg string
	if analysis.TotalJobKeywords == 0 {
		msg = fmt.Sprintf("%s (%d/100): no required keywords could be extracted from the job description; semantic similarity %s%%.",
			status.Label, score, formatPct(b.SemanticSimilarity))
	} else {
		msg = fmt.Sprintf("%s (%d/100): %d of %d required keywords matched (%s%%); semantic similarity %s%%.",
			status.Label, score, analysis.TotalMatched, analysis.TotalJobKeywords,
			formatPct(analysis.MatchPercentage), formatPct(b.SemanticSimilarity))
	}
	if semanticDegraded {
		msg += " Semantic similarity was unavailable and scored as 0."
	}
	return msg
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsInputError 判断错误是否为输入错误，供接口层映射为 400
func IsInputError(err error) bool {
	return errors.Is(err, ErrInput)
}
