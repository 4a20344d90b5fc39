package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ctgov/compliance/internal/config"
	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/paths"
)

var (
	// Version info (set by ldflags)
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"

	// Global flags
	cfgFile string
	dbPath  string
	verbose bool

	// Shared command flags
	format string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ctgov",
	Short: "Clinical trial reporting compliance",
	Long: `ctgov tracks whether clinical trials report their results on time.

It serves the compliance dashboards over HTTP and prints the same
listings and reports in the terminal.

Example:
  ctgov db init
  ctgov db seed fixtures.yaml
  ctgov serve
  ctgov report show --start 2024-01-01 --end 2024-06-30`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default .ctgov.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default $XDG_DATA_HOME/ctgov/ctgov.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search order:
		// 1. Current directory (.ctgov.yaml)
		// 2. XDG config dir (config.yaml)
		viper.AddConfigPath(".")
		viper.AddConfigPath(paths.ConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ctgov")
	}

	viper.SetEnvPrefix("CTGOV")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile == "" {
		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err == nil && verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig loads the effective configuration, keeping --db over the file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = paths.DatabasePath()
	}
	return cfg, nil
}

// openDatabase opens the configured database with its cache and reporting
// settings applied
func openDatabase(cfg *config.Config, opts ...db.Option) (*db.DB, error) {
	opts = append(opts, db.WithHighRiskOverdueDays(cfg.Reporting.HighRiskOverdueDays))
	if cfg.Cache.Enabled {
		opts = append(opts, db.WithQueryCache(cfg.Cache.Size, cfg.Cache.TTL))
	}

	database, err := db.Open(cfg.Database.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Init(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}
