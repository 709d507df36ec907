package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ats-match-go/internal/api/handler"
	"ats-match-go/internal/api/router"
	"ats-match-go/internal/config"
	"ats-match-go/internal/engine"
	appCoreLogger "ats-match-go/internal/logger"
	"ats-match-go/internal/storage"
	"ats-match-go/internal/tracing"
	"ats-match-go/internal/worker"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"        //nolint:gochecknoglobals
	serviceName = "ats-match-go" //nolint:gochecknoglobals
)

// @title ATS Match API
// @version 1.0
// @description 简历与岗位描述匹配评分服务
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	logCloser, err := appCoreLogger.Init(appCoreLogger.Config(cfg.Logger))
	if err != nil {
		glog.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()
	appCoreLogger.BridgeHertz()
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = serviceName
	}
	if cfg.Tracing.ServiceVersion == "" {
		cfg.Tracing.ServiceVersion = version
	}
	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续运行: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	var opts []engine.ComponentOpt
	if storageManager.Redis != nil {
		opts = append(opts, engine.WithVectorStore(storageManager.Redis))
	}
	matchEngine, err := engine.New(cfg, opts...)
	if err != nil {
		glog.Fatalf("初始化匹配引擎失败: %v", err)
	}
	glog.Infof("匹配引擎初始化成功，相似度后端: %s", matchEngine.Backend())

	var workerDone <-chan struct{}
	if storageManager.RabbitMQ != nil {
		consumer := worker.NewMatchConsumer(storageManager.RabbitMQ, matchEngine, cfg.RabbitMQ)
		workerDone, err = consumer.Start(ctx)
		if err != nil {
			glog.Fatalf("启动匹配请求消费者失败: %v", err)
		}
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Server.MaxBodyBytes),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, handler.NewMatchHandler(matchEngine))
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	// 先停止消费者，再关闭 HTTP
	cancel()
	if workerDone != nil {
		select {
		case <-workerDone:
			glog.Info("匹配请求消费者已停止")
		case <-time.After(10 * time.Second):
			glog.Warn("等待消费者退出超时")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}
	glog.Info("优雅退出完成")
}
