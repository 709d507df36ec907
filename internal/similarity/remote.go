package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ats-match-go/internal/logger"
	"ats-match-go/internal/tracing"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRemoteModel   = "text-embedding-v3"
	defaultRemoteBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	defaultRemoteTimeout = 10 * time.Second
)

// RemoteEmbedder 调用 OpenAI 兼容的 embeddings 接口(默认阿里云 DashScope 兼容模式)
type RemoteEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	httpClient *http.Client
}

var _ Embedder = (*RemoteEmbedder)(nil)

// NewRemoteEmbedder 创建远程向量化器
func NewRemoteEmbedder(cfg EmbedderConfig) (*RemoteEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	r := &RemoteEmbedder{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
	}
	if r.model == "" {
		r.model = defaultRemoteModel
	}
	if r.baseURL == "" {
		r.baseURL = defaultRemoteBaseURL
	}
	if cfg.TimeoutSec > 0 {
		r.httpClient.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return r, nil
}

// Name 策略名称，包含模型名以区分缓存
func (r *RemoteEmbedder) Name() string {
	return StrategyRemote + ":" + r.model
}

// GetDimensions 请求的向量维度
func (r *RemoteEmbedder) GetDimensions() int {
	return r.dimensions
}

type embeddingRequest struct {
	Input          any    `json:"input"` // string or []string
	Model          string `json:"model"`
	Dimensions     int    `json:"dimensions,omitempty"`
	EncodingFormat string `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// StatusError 接口返回了非 200 状态码
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("API调用失败, 状态码: %d, 类型: %s, 错误: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API调用失败, 状态码: %d, 响应: %s", e.StatusCode, e.Message)
}

// Temporary 限流和服务端错误可以重试
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// EmbedStrings 实现 embedding.Embedder
func (r *RemoteEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) (_ [][]float64, err error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, span := tracer.Start(ctx, "similarity.RemoteEmbed",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("embedding.texts", len(texts))))
	defer func() {
		var statusErr *StatusError
		switch {
		case err == nil:
		case errors.As(err, &statusErr):
			tracing.RecordHTTPError(span, err, statusErr.StatusCode)
		default:
			tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		}
		span.End()
	}()

	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)
	model := r.model
	if options.Model != nil && *options.Model != "" {
		model = *options.Model
	}

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	body, err := json.Marshal(embeddingRequest{
		Input:          input,
		Model:          model,
		Dimensions:     r.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var wrapped struct {
			Error apiError `json:"error"`
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error.Message != "" {
			statusErr.Type, statusErr.Message = wrapped.Error.Type, wrapped.Error.Message
		} else {
			statusErr.Message = fmt.Sprintf("%.200s", string(raw))
		}
		return nil, statusErr
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息=%s, Code=%s", parsed.Error.Type, parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("返回的向量数量 %d 与输入数量 %d 不一致", len(parsed.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("返回的向量下标越界: %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}

	logger.Debug().
		Str("model", model).
		Int("texts", len(texts)).
		Int("prompt_tokens", parsed.Usage.PromptTokens).
		Dur("elapsed", time.Since(start)).
		Msg("远程向量化完成")
	return out, nil
}
