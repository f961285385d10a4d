package cli

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shoplift-io/accessgate/internal/admin"
	"github.com/shoplift-io/accessgate/internal/bypass"
	"github.com/shoplift-io/accessgate/internal/config"
	"github.com/shoplift-io/accessgate/internal/gate"
	"github.com/shoplift-io/accessgate/internal/metrics"
	"github.com/shoplift-io/accessgate/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the accessgate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	encryptionKey, err := cfg.DecodeEncryptionKey()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DatabasePath, encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close() //nolint:errcheck

	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	var rules *gate.RuleInstaller
	if cfg.EdgeRulesPath != "" {
		rules = gate.NewRuleInstaller(cfg.EdgeRulesPath)
	}

	adminHandler := admin.NewHandler(store, cfg.AdminPassword, rules, logLevel, logger)
	bypassHandler := bypass.NewHandler(store, logger)
	checker := gate.NewChecker(store, store, logger)

	r := chi.NewRouter()
	r.Get("/gate/check", checker.HandleCheck(adminHandler.HasOperatorSession))
	r.Mount("/bypass", bypassHandler.NewRouter())
	r.Mount("/", adminHandler.NewRouter())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("accessgate listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsListenAddr)
		errCh <- metricsSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)        //nolint:errcheck
	_ = metricsSrv.Shutdown(shutdownCtx) //nolint:errcheck

	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
