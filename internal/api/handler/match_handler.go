package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ats-match-go/internal/engine"
	"ats-match-go/internal/logger"
	"ats-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"
)

// MatchEngine 匹配引擎接口
type MatchEngine interface {
	Analyze(ctx context.Context, resumeText, jobText string) (*types.MatchResult, error)
	AnalyzeBatch(ctx context.Context, resumeText string, jobTexts []string) ([]types.BatchItem, error)
}

// MatchHandler 处理简历与岗位描述匹配请求
type MatchHandler struct {
	engine   MatchEngine
	validate *validator.Validate
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(eng MatchEngine) *MatchHandler {
	return &MatchHandler{
		engine:   eng,
		validate: validator.New(),
	}
}

// HandleMatch 单个岗位匹配
// POST /api/v1/match
func (h *MatchHandler) HandleMatch(ctx context.Context, c *app.RequestContext) {
	var req types.MatchRequest
	if err := h.decode(c, &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Analyze(ctx, req.ResumeText, req.JobDescriptionText)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	logger.Ctx(ctx).Info().
		Int("score", result.Score).
		Str("level", result.ATSStatus.Level).
		Int("keywords", result.KeywordAnalysis.TotalJobKeywords).
		Msg("匹配完成")
	c.JSON(consts.StatusOK, result)
}

// HandleBatchMatch 一份简历对多个岗位
// POST /api/v1/match/batch
func (h *MatchHandler) HandleBatchMatch(ctx context.Context, c *app.RequestContext) {
	var req types.BatchMatchRequest
	if err := h.decode(c, &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	items, err := h.engine.AnalyzeBatch(ctx, req.ResumeText, req.JobDescriptionTexts)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	logger.Ctx(ctx).Info().Int("jobs", len(items)).Msg("批量匹配完成")
	c.JSON(consts.StatusOK, types.BatchMatchResponse{Results: items})
}

// decode 解析并校验 JSON 请求体
func (h *MatchHandler) decode(c *app.RequestContext, dst any) error {
	body := c.Request.Body()
	if len(body) == 0 {
		return errors.New("请求体不能为空")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("请求体不是合法的JSON: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("请求参数校验失败: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("请求参数校验失败: %v", err)
	}
	return nil
}

func (h *MatchHandler) writeError(ctx context.Context, c *app.RequestContext, err error) {
	switch {
	case engine.IsInputError(err):
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "请求已取消或超时"})
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("匹配分析失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "内部错误"})
	}
}
