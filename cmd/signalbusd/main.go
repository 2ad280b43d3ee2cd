// Command signalbusd runs the SignalBus daemon: it binds the
// configured Unix socket, serves the line-framed request protocol, and
// exposes Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"signalbus/internal/config"
	"signalbus/internal/engine"
	"signalbus/internal/logging"
	"signalbus/internal/metrics"
	"signalbus/internal/sweeper"
	"signalbus/internal/sysmetrics"
	"signalbus/internal/transport"
)

func main() {
	debug := flag.Bool("debug", false, "force log level to debug, overriding SIGNALBUS_LOG_LEVEL")
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	cfg.Log(logger)

	eng := engine.New(cfg.HistorySize, cfg.QueueCapacity, cfg.DefaultTokenTTL, logger)
	bootstrapToken, err := eng.InitializeDefaults()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize default admin user/token")
	}
	logger.Info().Str("bootstrap_token", bootstrapToken).Msg("bootstrap admin token issued; rotate it after first login")

	registry := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := transport.New(cfg.SocketPath, eng, registry, cfg.ConnRateBurst, cfg.ConnRatePerSec, logger)
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start transport")
	}

	sweep := sweeper.New(eng, registry, cfg.SweepInterval, logger)
	go sweep.Run(ctx)

	sampler := sysmetrics.New(registry, 5*time.Second, logger)
	go sampler.Run(ctx)

	if cfg.MetricsAddr == "" {
		logger.Info().Msg("metrics exporter disabled (SIGNALBUS_METRICS_ADDR is empty)")
	} else {
		go func() {
			if err := runMetricsServer(ctx, cfg.MetricsAddr, registry, logger); err != nil {
				// The metrics exporter is optional; its failure must not
				// take down the accept loop or in-flight connections.
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	server.Stop()
	logger.Info().Msg("transport stopped")
}

func runMetricsServer(ctx context.Context, addr string, registry *metrics.Registry, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics http server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics http server shutdown error")
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
