package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ats-match-go/internal/api/handler"
	"ats-match-go/internal/engine"
	"ats-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine 固定返回值的引擎
type stubEngine struct {
	result *types.MatchResult
	items  []types.BatchItem
	err    error
}

func (s *stubEngine) Analyze(context.Context, string, string) (*types.MatchResult, error) {
	return s.result, s.err
}

func (s *stubEngine) AnalyzeBatch(context.Context, string, []string) ([]types.BatchItem, error) {
	return s.items, s.err
}

func newTestServer(eng handler.MatchEngine) *server.Hertz {
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	mh := handler.NewMatchHandler(eng)
	h.POST("/match", mh.HandleMatch)
	h.POST("/match/batch", mh.HandleBatchMatch)
	return h
}

func perform(h *server.Hertz, path string, payload any) *ut.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(payload)
	return ut.PerformRequest(h.Engine, "POST", path, &ut.Body{Body: &buf, Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func errorOf(t *testing.T, resp *ut.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body["error"]
}

func TestHandleMatch_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"input error", engine.NewInputError("analyze", "简历和岗位描述都为空"), consts.StatusBadRequest},
		{"cancelled", context.Canceled, consts.StatusServiceUnavailable},
		{"internal", errors.New("boom"), consts.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&stubEngine{err: tc.err})
			resp := perform(h, "/match", types.MatchRequest{ResumeText: "a", JobDescriptionText: "b"})
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, errorOf(t, resp))
		})
	}
}

func TestHandleMatch_InternalErrorHidden(t *testing.T) {
	h := newTestServer(&stubEngine{err: errors.New("redis: connection refused")})
	resp := perform(h, "/match", types.MatchRequest{ResumeText: "a", JobDescriptionText: "b"})
	assert.Equal(t, consts.StatusInternalServerError, resp.Code)
	assert.NotContains(t, errorOf(t, resp), "redis")
}

func TestHandleMatch_OK(t *testing.T) {
	want := &types.MatchResult{
		Score:           72,
		ATSStatus:       types.ATSStatus{Level: "medium", Label: "Strong Match"},
		KeywordAnalysis: types.EmptyKeywordAnalysis(),
	}
	h := newTestServer(&stubEngine{result: want})
	resp := perform(h, "/match", types.MatchRequest{ResumeText: "a", JobDescriptionText: "b"})
	require.Equal(t, consts.StatusOK, resp.Code)

	var got types.MatchResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, 72, got.Score)
	assert.Equal(t, "Strong Match", got.ATSStatus.Label)
}

func TestHandleBatchMatch(t *testing.T) {
	items := []types.BatchItem{
		{Result: &types.MatchResult{Score: 10, KeywordAnalysis: types.EmptyKeywordAnalysis()}},
		{Error: "输入不合法"},
	}
	h := newTestServer(&stubEngine{items: items})
	resp := perform(h, "/match/batch", types.BatchMatchRequest{ResumeText: "a", JobDescriptionTexts: []string{"x", "y"}})
	require.Equal(t, consts.StatusOK, resp.Code)

	var out types.BatchMatchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, 10, out.Results[0].Result.Score)
	assert.Equal(t, "输入不合法", out.Results[1].Error)
}

func TestHandleBatchMatch_ValidationMessage(t *testing.T) {
	h := newTestServer(&stubEngine{})
	resp := perform(h, "/match/batch", types.BatchMatchRequest{ResumeText: "a"})
	assert.Equal(t, consts.StatusBadRequest, resp.Code)
	assert.Contains(t, errorOf(t, resp), "JobDescriptionTexts")
}
