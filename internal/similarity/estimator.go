package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"ats-match-go/internal/tracing"
	"ats-match-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("similarity")

// Estimator 语义相似度估计器。向量计算经过缓存，并受工作池并发上限约束。
type Estimator struct {
	embedder Embedder
	cache    *VectorCache
	pool     *semaphore.Weighted
}

// NewEstimator 创建估计器。workers<=0 时使用 CPU 数；cache 为 nil 时不缓存。
func NewEstimator(embedder Embedder, cache *VectorCache, workers int) *Estimator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Estimator{
		embedder: embedder,
		cache:    cache,
		pool:     semaphore.NewWeighted(int64(workers)),
	}
}

// Backend 当前向量化策略名称
func (e *Estimator) Backend() string {
	return e.embedder.Name()
}

// Similarity 返回 100*max(0, cos(v_resume, v_job))，保留两位小数
func (e *Estimator) Similarity(ctx context.Context, resume, job *types.Document) (float64, error) {
	ctx, span := tracer.Start(ctx, "similarity.Estimate")
	defer span.End()
	span.SetAttributes(attribute.String("embedder", e.embedder.Name()))

	var vr, vj []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vr, err = e.Vector(gctx, resume)
		return err
	})
	g.Go(func() error {
		var err error
		vj, err = e.Vector(gctx, job)
		return err
	})
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExternal)
		return 0, err
	}

	cos, err := Cosine(vr, vj)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return 0, err
	}
	score := math.Round(100*math.Max(0, cos)*100) / 100
	return math.Min(100, score), nil
}

// Vector 返回文档的向量，优先走缓存
func (e *Estimator) Vector(ctx context.Context, doc *types.Document) ([]float64, error) {
	compute := func(ctx context.Context) ([]float64, error) {
		if err := e.pool.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer e.pool.Release(1)

		vecs, err := e.embedder.EmbedStrings(ctx, []string{doc.Raw})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("向量化返回 %d 个结果，期望 1 个", len(vecs))
		}
		return vecs[0], nil
	}

	if e.cache == nil {
		return compute(ctx)
	}
	version := ModelVersion(e.embedder)
	return e.cache.GetOrCompute(ctx, Key(version, doc.ContentHash), version, compute)
}

// Cosine 余弦相似度；任一向量为零向量时返回0
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("向量维度不一致: %d != %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
