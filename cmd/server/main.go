package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zerochat/zerochat-server/internal/app"
	"github.com/zerochat/zerochat-server/internal/config"
	"github.com/zerochat/zerochat-server/internal/log"
)

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	bootLog := log.New("info")
	cfg, path, err := config.Load(bootLog, configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)

	logger.Info().Str("addr", cfg.Addr).Str("config", path).Msg("starting zerochat server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
