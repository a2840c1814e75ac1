package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	audiocacheimpl "github.com/foxseedlab/madoguchin/external/audiocache"
	configloader "github.com/foxseedlab/madoguchin/external/config"
	"github.com/foxseedlab/madoguchin/external/gateway"
	reasonerimpl "github.com/foxseedlab/madoguchin/external/reasoner"
	repositoryimpl "github.com/foxseedlab/madoguchin/external/repository"
	synthesizerimpl "github.com/foxseedlab/madoguchin/external/synthesizer"
	transcriberimpl "github.com/foxseedlab/madoguchin/external/transcriber"
	webhookimpl "github.com/foxseedlab/madoguchin/external/webhook"
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/session"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching gateway")
	runGateway(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	reasonerimpl.RegisterDI(injector)
	synthesizerimpl.RegisterDI(injector)
	audiocacheimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	gateway.RegisterDI(injector)

	return injector
}

func runGateway(injector do.Injector) {
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}
	server, err := do.Invoke[*gateway.Server](injector)
	if err != nil {
		slog.Error("failed to resolve gateway server", "error", err)
		os.Exit(1)
	}

	watchdogCtx, stopWatchdog := context.WithCancel(context.Background())
	defer stopWatchdog()
	go manager.RunWatchdog(watchdogCtx)

	done := make(chan struct{})
	go func() {
		if err := server.Run(); err != nil {
			slog.Error("gateway run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	stopWatchdog()
	manager.Shutdown()
	if err := server.Shutdown(); err != nil {
		slog.Error("gateway shutdown failed", "error", err)
	}
}
