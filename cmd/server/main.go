package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"consult-gateway/internal/config"
	"consult-gateway/internal/logging"
	"consult-gateway/internal/metrics"
	"consult-gateway/internal/protocol/consult"
	"consult-gateway/internal/server"
	ecu "consult-gateway/internal/usecase/consult"
)

const idleTimeout = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 配置加载
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.Log)
	defer logger.Sync()

	cat, err := consult.NewDefaultCatalog()
	if err != nil {
		logger.Fatal("Invalid register catalog", zap.Error(err))
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 2. 会话管理与服务
	sm := ecu.NewSessionManager(m, logger)
	srv := server.NewTCPServer(cfg.Server, cat, sm, m, logger)

	go func() {
		if err := srv.Start(context.Background()); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 清理长时间无数据的会话
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			if n := sm.CheckIdle(idleTimeout); n > 0 {
				logger.Info("Idle sessions closed", zap.Int("count", n))
			}
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}
