// Package main provides the entry point for the paper rank service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-rank-service/internal/app"
	"github.com/helixir/paper-rank-service/internal/config"
	"github.com/helixir/paper-rank-service/internal/observability"
	httpserver "github.com/helixir/paper-rank-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Logging)
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-rank-service server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	components, err := app.New(cfg, logger, metrics)
	if err != nil {
		return err
	}
	for _, src := range components.Registry.EnabledSources() {
		logger.Info().Str("source", src.Name()).Msg("paper source enabled")
	}
	if n := len(cfg.PaperSources.Scholar.Proxies); n > 0 {
		logger.Info().Int("proxies", n).Msg("scholar requests use rotating proxies")
	}

	httpCfg := httpserver.Config{
		Address:            cfg.Server.HTTPAddress(),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        2 * cfg.Server.ReadTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		MaxRequestBodySize: cfg.Server.MaxRequestBodySize,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		DefaultMaxResults:  cfg.Search.DefaultMaxResults,
		SearchTimeout:      cfg.Search.Timeout,
	}
	if cfg.Static.Enabled {
		httpCfg.StaticDir = cfg.Static.Directory
		httpCfg.StaticFiles = cfg.Static.Files
	}

	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Registry:  components.Registry,
		Merger:    components.Merger,
		Ranker:    components.Ranker,
		Assistant: components.Assistant,
		Metrics:   metrics,
		Logger:    logger,
	})

	// Prometheus metrics are served on a separate port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Str("llm_provider", cfg.LLM.Provider).
		Str("llm_model", cfg.LLM.Model)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-rank-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-rank-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-rank-service shutdown complete")
	return nil
}
