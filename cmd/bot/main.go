// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/bot"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Optional path to a config file (environment variables override it)")
	envFile := flag.String("env", ".env", "Path to the .env file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Debug = cfg.Debug
	log := logger.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	log.Info("🚀 Starting pump.fun sniper")
	err = bot.NewRunner(cfg, log.Logger).Run(ctx)
	stop()

	if err != nil {
		log.Error("💥 Bot stopped with error", zap.Error(err))
		_ = log.Close()
		os.Exit(1)
	}
	_ = log.Close()
}
