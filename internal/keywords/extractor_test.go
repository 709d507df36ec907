package keywords

import (
	"fmt"
	"strings"
	"testing"

	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/textnorm"
	"ats-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, cfg Config) (*textnorm.Normalizer, *Extractor) {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	norm := textnorm.New(lex)
	return norm, NewExtractor(norm, cfg)
}

func displays(kws []types.Keyword) []string {
	out := make([]string, 0, len(kws))
	for _, k := range kws {
		out = append(out, k.Display)
	}
	return out
}

func TestExtractRequired_WorkedExample(t *testing.T) {
	norm, ex := setup(t, Config{})
	job := norm.Normalize(types.KindJob, "Require 3+ years Python, SQL, and AWS. Must have strong communication skills.")

	kws := ex.ExtractRequired(job)
	assert.Equal(t, []string{"python", "sql", "aws", "communication skills"}, displays(kws))
	for _, k := range kws {
		assert.True(t, k.Required)
		assert.InDelta(t, 1.5, k.Weight, 1e-9, "位于任职要求句子中，权重应乘以1.5")
	}
}

func TestExtractRequired_EmptyJob(t *testing.T) {
	norm, ex := setup(t, Config{})
	kws := ex.ExtractRequired(norm.Normalize(types.KindJob, "   "))
	assert.NotNil(t, kws)
	assert.Empty(t, kws)
}

func TestExtractRequired_FrequencyOrdering(t *testing.T) {
	norm, ex := setup(t, Config{})
	job := norm.Normalize(types.KindJob, "Kafka pipelines. Docker. Docker images. Docker swarm. Kafka.")

	kws := ex.ExtractRequired(job)
	require.NotEmpty(t, kws)
	assert.Equal(t, "docker", kws[0].Display)
	assert.Equal(t, 3.0, kws[0].Weight)
	assert.Equal(t, "kafka", kws[1].Display)

	for _, k := range kws {
		assert.NotContains(t, k.Normalized, "docker ", "包含已接受关键词的短语应被去重")
	}
}

func TestExtractRequired_SynonymsCollapse(t *testing.T) {
	norm, ex := setup(t, Config{})
	job := norm.Normalize(types.KindJob, "Kubernetes. K8s. JavaScript; JS")

	kws := ex.ExtractRequired(job)
	var kube, js int
	for _, k := range kws {
		switch k.Display {
		case "kubernetes", "k8s":
			kube++
		case "javascript", "js":
			js++
		}
	}
	assert.Equal(t, 1, kube)
	assert.Equal(t, 1, js)
}

func TestExtractRequired_MaxKeywords(t *testing.T) {
	norm, ex := setup(t, Config{MaxKeywords: 5})
	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, fmt.Sprintf("tool%c%c", 'a'+i, 'a'+i))
	}
	job := norm.Normalize(types.KindJob, strings.Join(parts, ", "))

	kws := ex.ExtractRequired(job)
	assert.Len(t, kws, 5)
	assert.Equal(t, "toolaa", kws[0].Display, "权重相同时按首次出现排序")
}

func TestExtractRequired_CapTieBreak(t *testing.T) {
	tests := []struct {
		name string
		max  int
		job  string
		want []string
	}{
		{"同权重时先出现的短词保留", 1, "Required: Kafka, distributed systems.", []string{"kafka"}},
		{"同权重时先出现的长短语保留", 1, "Required: distributed systems, Kafka.", []string{"distributed systems"}},
		{"权重优先于出现位置", 1, "Kafka. Docker. Docker.", []string{"docker"}},
		{"名额足够时全部保留", 2, "Required: Kafka, distributed systems.", []string{"kafka", "distributed systems"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			norm, ex := setup(t, Config{MaxKeywords: tc.max})
			kws := ex.ExtractRequired(norm.Normalize(types.KindJob, tc.job))
			assert.Equal(t, tc.want, displays(kws))
		})
	}
}

func TestExtractRequired_Deterministic(t *testing.T) {
	norm, ex := setup(t, Config{})
	text := "We need Go, gRPC, Redis and PostgreSQL. Requirements: distributed systems, Go, observability."
	first := ex.ExtractRequired(norm.Normalize(types.KindJob, text))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ex.ExtractRequired(norm.Normalize(types.KindJob, text)))
	}
}
