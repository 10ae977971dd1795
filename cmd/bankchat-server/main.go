package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bankchat/pkg/ai"
	_ "bankchat/pkg/ai/providers"
	"bankchat/pkg/config"
	"bankchat/pkg/gateway"
	"bankchat/pkg/insight"
	"bankchat/pkg/logging"
	"bankchat/pkg/server"
	"bankchat/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to the configuration file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info("bankchat-server"))
		return
	}

	// A missing .env file is normal; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg, logging.Options{Stderr: true, Component: "server"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}
	logger.Info("server_start",
		"version", version.Summary(),
		"provider", cfg.LLMProvider,
		"model", cfg.Active().Model,
		"config_path", *configPath,
		"backends", ai.DefaultRegistry.Types(),
	)
	if cfg.Active().ResolveAPIKey() == "" && cfg.LLMProvider != config.ProviderBedrock {
		logger.Warn("server_missing_api_key", "provider", cfg.LLMProvider, "env", cfg.Active().APIKeyEnv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	gw := gateway.New(cfg, gateway.WithLogger(logger))
	analyzer := insight.New(ctx, cfg, logger)
	srv := server.New(gw, server.WithAnalyzer(analyzer), server.WithLogger(logger))

	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}
