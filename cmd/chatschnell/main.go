package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/chatschnell/internal/backend"
	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/codefionn/chatschnell/internal/web"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	configPath := flag.String("config", config.GetConfigPath(), "path to config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatschnell %s\n", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	logger.Info("chatschnell %s starting", version)

	runner, err := backend.New(cfg.Backend)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	hub := web.NewHub()
	messenger := web.NewMessenger(hub)
	orch := orchestrator.New(cfg, runner, messenger)

	srv, err := web.NewServer(cfg, hub, messenger, orch)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	watcher, err := config.Watch(*configPath, func(updated *config.Config) {
		logger.Global().SetLevel(logger.ParseLevel(updated.LogLevel))
		orch.UpdateConfig(updated)
	})
	if err != nil {
		logger.Warn("Config hot reload unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	fmt.Printf("chatschnell listening, connect with %s\n", srv.GetURL())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %s, shutting down", sig)

	if err := srv.Stop(); err != nil {
		logger.Error("Stopping server: %v", err)
	}
	orch.Shutdown()

	return nil
}
