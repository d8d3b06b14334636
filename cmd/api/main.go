// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yourusername/pawsitive-placements/internal/config"
	"github.com/yourusername/pawsitive-placements/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	go func() {
		if err := app.Run(); err != nil {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithFields(log.Fields{
		"addr": app.server.Addr,
		"mode": cfg.GinMode,
	}).Info("api server started")

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("graceful shutdown failed")
	}
	log.Info("api server stopped cleanly")
}
