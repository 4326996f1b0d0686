package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	demomw "github.com/tendant/chi-demo/middleware"
	"github.com/tendant/portfolio-content/pkg/portfolio/api"
	"github.com/tendant/portfolio-content/pkg/portfolio/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from .env and the environment
	serverConfig, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(newLogger(serverConfig))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := serverConfig.BuildService(ctx, registry)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer rt.Close()

	handler, err := newRouter(serverConfig, rt, registry)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Portfolio server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"storage", serverConfig.StorageBackend,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.CollectorTimeout+10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	// Let scheduled orphan deletions finish before connections close
	if err := rt.Service.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Orphan deletions still pending at exit", "error", err)
	}

	slog.Info("Server exiting")
	return nil
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// newRouter sets up the HTTP routes
func newRouter(cfg *config.ServerConfig, rt *config.Runtime, gatherer prometheus.Gatherer) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rt.Metrics.Middleware)

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Static serving of locally stored uploads
	if rt.Local != nil {
		prefix := rt.Local.URLPrefix()
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(rt.Local.BaseDir()))))
	}

	var guards []func(http.Handler) http.Handler
	switch {
	case cfg.APIKeySHA256 != "":
		apiKeyMiddleware, err := demomw.ApiKeyMiddleware(demomw.ApiKeyConfig{
			APIKeys: map[string]string{"admin": cfg.APIKeySHA256},
		})
		if err != nil {
			return nil, fmt.Errorf("initialize API key middleware: %w", err)
		}
		guards = append(guards, apiKeyMiddleware)
	case cfg.IsDevelopment():
		slog.Warn("API_KEY_SHA256 not set, mutating routes are unprotected")
	default:
		return nil, errors.New("API_KEY_SHA256 is required outside development")
	}

	r.Mount("/api", api.NewHandler(rt.Service).Routes(guards...))
	return r, nil
}
