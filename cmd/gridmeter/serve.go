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

	"github.com/jgoulah/gridmeter/internal/api"
	"github.com/jgoulah/gridmeter/internal/logging"
	"github.com/jgoulah/gridmeter/internal/observability"
	"github.com/jgoulah/gridmeter/internal/publisher"
	"github.com/jgoulah/gridmeter/internal/report"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts an HTTP server accepting readings and serving statistics. Hourly
deltas produced by each reading are exported to the sinks enabled in config.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: http_addr from config, then :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}
	weights, err := cfg.GetWeights()
	if err != nil {
		return fmt.Errorf("loading weights: %w", err)
	}

	lg, err := logging.New(cfg.LogFile, slog.LevelInfo)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer lg.Close()

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pub, err := publisher.New(cfg, lg.Logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	opts := api.Options{
		Store:         db,
		Weights:       weights,
		Admin:         db,
		Reporter:      report.NewReporter(cfg.Report.GetPictureDir(), cfg.Report.GetUnit()),
		Metrics:       observability.NewMetrics(),
		IsAdmin:       cfg.IsAdmin,
		Location:      loc,
		HourlyWindow:  cfg.Report.GetHourlyWindow(),
		ExportTimeout: api.DefaultExportTimeout,
		Logger:        lg.Logger,
	}
	if pub.Enabled() {
		opts.Publisher = pub
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.GetHTTPAddr()
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(api.NewHandler(opts)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting", "addr", addr, "db", getDBPath(cfg), "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	lg.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	lg.Info("server stopped")
	return nil
}
