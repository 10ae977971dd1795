package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bankchat/pkg/client"
	"bankchat/pkg/config"
	"bankchat/pkg/logging"
	"bankchat/pkg/ui"
	"bankchat/pkg/version"

	tea "charm.land/bubbletea/v2"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to the configuration file")
	serverURL := flag.String("server", "", "bankchat server URL (overrides client.server_url)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info("bankchat"))
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Client.ServerURL = *serverURL
	}

	// stderr shares the screen with the UI, so the client logs to file only.
	logger, err := logging.Init(cfg, logging.Options{Component: "client"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}
	logger.Info("client_start", "version", version.Summary(), "server_url", cfg.Client.ServerURL)

	api := client.New(cfg.Client.ServerURL, nil)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := ui.RunLines(ctx, os.Stdin, os.Stdout, api, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(ui.NewModel(api, logger))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running UI: %v\n", err)
		os.Exit(1)
	}
}
