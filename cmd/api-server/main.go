// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"codefix-admin/internal/apiserver/server"
	"codefix-admin/internal/config"
	"codefix-admin/internal/shared/infra"
	"codefix-admin/pkg/logging"
)

func main() {
	// 加载配置（.env.{env} → {env}.yaml → 环境变量）
	cfg := config.Load()
	log := logging.New(cfg.Log)
	defer log.Sync()

	log.Info("starting api server", zap.String("env", string(cfg.Env)), zap.String("config", cfg.String()))

	inf, err := infra.New(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize infrastructure", zap.Error(err))
	}
	defer inf.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := server.New(server.Options{Config: cfg, Infra: inf, Registry: registry, Logger: log})
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := s.Bootstrap(bootCtx); err != nil {
		log.Error("failed to bootstrap admin user", zap.Error(err))
	}
	bootCancel()

	s.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http").Logger),
	}

	// 优雅关闭
	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	log.Info("api server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
