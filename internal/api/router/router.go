package router

import (
	"context"
	"time"

	"ats-match-go/internal/api/handler"
	"ats-match-go/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, matchHandler *handler.MatchHandler) {
	h.Use(RequestID(), AccessLog())

	api := h.Group("/api/v1")

	api.POST("/match", matchHandler.HandleMatch)
	api.POST("/match/batch", matchHandler.HandleBatchMatch)

	// 添加健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

// RequestID 为每个请求分配ID，沿用客户端传入的 X-Request-ID
func RequestID() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		id := string(ctx.GetHeader(HeaderRequestID))
		if id == "" {
			if u, err := uuid.NewV7(); err == nil {
				id = u.String()
			} else {
				id = uuid.Must(uuid.NewV4()).String()
			}
		}
		ctx.Response.Header.Set(HeaderRequestID, id)
		ctx.Next(logger.WithRequestID(c, id))
	}
}

// AccessLog 记录请求与响应
func AccessLog() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		log := logger.Ctx(c)
		log.Debug().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Msg("Request")
		ctx.Next(c)
		log.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("Response")
	}
}
