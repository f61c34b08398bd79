package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/api"
	"github.com/rajasatyajit/FeedMonitor/internal/broadcast"
	"github.com/rajasatyajit/FeedMonitor/internal/capture"
	"github.com/rajasatyajit/FeedMonitor/internal/database"
	"github.com/rajasatyajit/FeedMonitor/internal/extractor"
	"github.com/rajasatyajit/FeedMonitor/internal/geocoder"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/metrics"
	middlewares "github.com/rajasatyajit/FeedMonitor/internal/middleware"
	"github.com/rajasatyajit/FeedMonitor/internal/monitor"
	"github.com/rajasatyajit/FeedMonitor/internal/store"
	"github.com/rajasatyajit/FeedMonitor/internal/transcriber"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the feed monitors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting FeedMonitor",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
		"capture_mode", cfg.Capture.Mode,
		"transcribe_mode", cfg.Recognition.Mode,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(context.Background())

	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	feedStore := store.New(db)

	var geo monitor.Geocoder
	if cfg.Geocode.Enabled {
		client, err := geocoder.NewFromConfig(cfg.Geocode, cfg.Redis)
		if err != nil {
			return fmt.Errorf("initialize geocoder: %w", err)
		}
		geo = client
	}

	hub := broadcast.New(cfg.Broadcast.SendTimeout)
	runner := monitor.NewRunner(
		feedStore,
		capture.New(cfg),
		transcriber.New(cfg),
		extractor.New(),
		geo,
		hub,
		monitor.OptionsFromConfig(cfg),
	)
	if err := runner.Validate(); err != nil {
		// Monitors started now will mark themselves errored
		logger.Warn("Runtime validation failed", "error", err)
	}

	supervisor := monitor.NewSupervisor(runner, feedStore, cfg.Monitor.ResetOnShutdown)
	if cfg.Monitor.ResumeActive {
		if _, err := supervisor.ResumeActive(ctx); err != nil {
			logger.Warn("Failed to resume some monitors", "error", err)
		}
	}

	handler := api.NewHandler(feedStore, supervisor, hub, Version, BuildTime, GitCommit)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(cfg, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		logger.Error("Monitors did not stop cleanly", "error", err)
	}
	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}

	logger.Info("Server exited")
	return runErr
}

// newRouter applies the global middleware. Request timeouts cover the
// REST routes only; the websocket route stays open until the peer leaves.
func newRouter(cfg *config.Config, handler *api.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.Server.CORSOrigins))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
		handler.RegisterRoutes(r)
	})
	handler.RegisterStream(r)

	return r
}

func startMetricsServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("Starting metrics server", "address", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
