package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"candleservice/config"
	"candleservice/internal/app"
	"candleservice/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.Log.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// build the index, then serve
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start candle service", zap.Error(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("candle service stopped with error", zap.Error(err))
		return
	}
	log.Info("candle service stopped")
}
