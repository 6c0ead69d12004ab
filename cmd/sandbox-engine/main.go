package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensandbox/control-plane/internal/api"
	"github.com/opensandbox/control-plane/internal/authstore"
	"github.com/opensandbox/control-plane/internal/cleanup"
	"github.com/opensandbox/control-plane/internal/config"
	"github.com/opensandbox/control-plane/internal/dockerprovider"
	"github.com/opensandbox/control-plane/internal/k8sprovider"
	"github.com/opensandbox/control-plane/internal/provider"
	"github.com/opensandbox/control-plane/internal/sandboxsvc"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting sandbox-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"runtime", cfg.Runtime.Type,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	authStore, err := authstore.New(initCtx, authstore.Config{DSN: cfg.Database.DSN})
	if err != nil {
		slog.Error("failed to connect to api-key store", "error", err)
		os.Exit(1)
	}
	defer authStore.Close()

	slog.Info("running api-key store migrations")
	if err := authstore.Migrate(initCtx, authStore.DB()); err != nil {
		slog.Error("failed to run api-key store migrations", "error", err)
		os.Exit(1)
	}

	prov, err := newProvider(initCtx, cfg)
	if err != nil {
		slog.Error("failed to create runtime provider", "error", err)
		os.Exit(1)
	}
	defer prov.Close()

	svc := sandboxsvc.New(serviceConfig(cfg), prov)

	slog.Info("reconciling sandbox state from runtime")
	if err := svc.Reconcile(initCtx); err != nil {
		slog.Error("failed to reconcile sandbox state", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := cleanup.NewSweeper(svc, cfg.Pending.FailureTTL)
	sweeper.Start(ctx)

	server := api.NewServer(api.ServerConfig{Host: cfg.Server.Host, Port: cfg.Server.Port}, svc, authStore)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("sandbox-engine stopped")
}

// closableProvider is satisfied by both runtime providers; Close isn't
// part of provider.Provider itself since the sandbox service never
// needs to call it.
type closableProvider interface {
	provider.Provider
	Close() error
}

// newProvider constructs the runtime provider selected by cfg.Runtime.Type.
// config.Config.Validate already rejects any other value.
func newProvider(ctx context.Context, cfg *config.Config) (closableProvider, error) {
	switch cfg.Runtime.Type {
	case "docker":
		dcfg := dockerprovider.DefaultConfig()
		dcfg.Host = cfg.Docker.Host
		dcfg.TLSCertDir = cfg.Docker.TLSCertDir
		dcfg.APITimeout = cfg.Docker.APITimeout
		dcfg.NetworkMode = dockerprovider.NetworkMode(cfg.Docker.NetworkMode)
		dcfg.ExecdImage = cfg.Runtime.ExecdImage
		dcfg.PublicHost = cfg.Runtime.PublicHost
		return dockerprovider.New(ctx, dcfg)
	case "kubernetes":
		kcfg := k8sprovider.DefaultConfig()
		kcfg.Kubeconfig = cfg.K8s.Kubeconfig
		kcfg.Namespace = cfg.Runtime.Namespace
		kcfg.ExecdImage = cfg.Runtime.ExecdImage
		kcfg.PublicHost = cfg.Runtime.PublicHost
		kcfg.TemplatePath = cfg.K8s.TemplatePath
		kcfg.PollInterval = cfg.K8s.PollInterval
		kcfg.PollTimeout = cfg.K8s.PollTimeout
		return k8sprovider.New(kcfg)
	default:
		return nil, fmt.Errorf("unsupported runtime type: %q", cfg.Runtime.Type)
	}
}

func serviceConfig(cfg *config.Config) sandboxsvc.Config {
	sc := sandboxsvc.DefaultConfig()
	sc.RuntimeType = sandboxsvc.RuntimeType(cfg.Runtime.Type)
	sc.Namespace = cfg.Runtime.Namespace
	sc.ExecdImage = cfg.Runtime.ExecdImage
	sc.PendingFailureTTL = cfg.Pending.FailureTTL
	sc.PollInterval = cfg.K8s.PollInterval
	sc.PollTimeout = cfg.K8s.PollTimeout
	return sc
}
