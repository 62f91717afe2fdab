package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"fingerprinter/internal/database"
	"fingerprinter/internal/filesystem"
	"fingerprinter/internal/handlers"
	"fingerprinter/internal/hashers"
	"fingerprinter/internal/logging"
	"fingerprinter/internal/metrics"
	"fingerprinter/internal/middleware"
	"fingerprinter/internal/startup"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only queries over the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().String("listen", startup.DefaultListen, "address to listen on")
	c.bind(cmd.Flags(), map[string]string{startup.KeyListen: "listen"})
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	startTime := time.Now()
	startup.PrintBanner()

	config, err := c.loadConfig()
	if err != nil {
		return err
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(config.Volumes()))
	metrics.InitializeMetrics(hashers.Names())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	db, err := openDatabase(ctx, config.DatabasePath)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	collector := metrics.NewCollector(db, config.DatabasePath, time.Minute)
	collector.Start()
	defer collector.Stop()

	handler, router, err := newServer(db)
	if err != nil {
		return err
	}
	startup.LogHTTPRoutes(router, middleware.DefaultLoggingConfig().LogHealthChecks)

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Listen:          config.Listen,
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	startup.LogShutdownInitiated("interrupt")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	startup.LogShutdownComplete()
	return nil
}

// newServer builds the query router and wraps it in the logging and
// compression middleware.
func newServer(db *database.Database) (http.Handler, *mux.Router, error) {
	router := setupRouter(handlers.New(db))

	compress, err := middleware.Compression(middleware.DefaultCompressionConfig())
	if err != nil {
		return nil, nil, err
	}
	logged := middleware.Logger(middleware.DefaultLoggingConfig())(router)
	return compress(logged), router, nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	// Registered on the root router so a wrong method answers 405, not 404.
	r.HandleFunc("/api/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/api/file", h.GetFile).Methods("GET")
	r.HandleFunc("/api/files", h.ListFiles).Methods("GET")
	r.HandleFunc("/api/hashes/{algorithm}/{value}", h.FindByHash).Methods("GET")

	return r
}
