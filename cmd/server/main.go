package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tonito-Sam/nsq-sub005/internal/config"
	"github.com/Tonito-Sam/nsq-sub005/internal/health"
	"github.com/Tonito-Sam/nsq-sub005/internal/identity"
	"github.com/Tonito-Sam/nsq-sub005/internal/logger"
	"github.com/Tonito-Sam/nsq-sub005/internal/mailer"
	"github.com/Tonito-Sam/nsq-sub005/internal/monitoring"
	"github.com/Tonito-Sam/nsq-sub005/internal/service"
	httptransport "github.com/Tonito-Sam/nsq-sub005/internal/transport/http"
)

// main 启动 NexSq 出站邮件中继服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting nexsq mail relay",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化 SMTP 传输：在监听开始前同步完成，之后只读。
	// 两级配置都失败时 smtpMailer 为 nil，发送端点快速失败，
	// 但进程继续提供健康检查与重发端点。
	var outbound mailer.Mailer
	if smtpMailer := mailer.Init(cfg, log); smtpMailer != nil {
		outbound = smtpMailer
	} else {
		log.Error("mail transport unavailable, send endpoints will fail fast")
	}

	// 初始化 Supabase 客户端（缺配置时为 nil）
	var idp service.IdentityProvider
	if client := identity.NewClient(cfg.Supabase, log); client != nil {
		idp = client
		log.Info("supabase identity client configured", zap.String("url", cfg.Supabase.URL))
	} else {
		log.Warn("supabase credentials missing, verification resend disabled")
	}

	// 初始化服务层
	dispatchService := service.NewDispatchService(outbound, metrics, log)
	resendService := service.NewResendService(idp, cfg.Resend, metrics, log)

	// 初始化健康检查
	healthChecker := health.NewChecker(dispatchService, resendService, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:   cfg,
		Dispatch: dispatchService,
		Resend:   resendService,
		Metrics:  metrics,
		Logger:   log,
	})

	// 健康检查处理器（用于 Kubernetes 等）
	router.GET("/health/live", gin.WrapF(healthChecker.LiveEndpoint))
	router.GET("/health/ready", gin.WrapF(healthChecker.ReadyEndpoint))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.HTTPHandler()))

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
