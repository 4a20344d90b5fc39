package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctgov/compliance/internal/dashboard"
	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/logging"
	"github.com/ctgov/compliance/internal/metrics"
	"github.com/ctgov/compliance/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compliance dashboards over HTTP",
	Long: `Start the HTTP server exposing every dashboard as JSON.

Routes:
  GET /health
  GET /metrics
  GET /api/trials
  GET /api/search
  GET /api/organizations/:org_ids
  GET /api/compare
  GET /api/users/:user_id
  GET /api/reporting
  GET /api/funding-sources`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}

	result := cfg.Validate()
	if !result.IsValid() {
		for _, e := range result.Errors {
			fmt.Printf("  • %s\n", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	for _, w := range result.Warnings {
		logger.Warn("Configuration warning", zap.String("field", w.Field), zap.String("message", w.Message))
	}

	m := metrics.NewCollector()

	database, err := openDatabase(cfg, db.WithCacheObserver(m.ObserveCacheLookup))
	if err != nil {
		return err
	}
	defer database.Close()

	svc := dashboard.NewService(database,
		dashboard.WithActionItemsPerPage(cfg.Reporting.ActionItemsPerPage),
	)
	srv := server.New(cfg.Server, svc, logger, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("ctgov starting",
		zap.String("version", Version),
		zap.String("database", database.Path()),
		zap.Bool("query_cache", cfg.Cache.Enabled),
	)

	return srv.Run(ctx)
}
