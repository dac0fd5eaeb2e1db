package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Ninjatosba/arbitrage-detector/internal/app"
	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger, err := app.NewLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	logger.Info("arbitrage detector stopped")
}
