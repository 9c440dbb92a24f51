package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/redeemstat/internal/analyzer"
	"github.com/jgoulah/redeemstat/internal/config"
	"github.com/jgoulah/redeemstat/internal/database"
	"github.com/jgoulah/redeemstat/internal/logger"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "redeemstat",
	Short: "Track and forecast redemption code usage",
	Long: `redeemstat imports redemption codes from the hosted backend or a CSV export,
stores them in a local SQLite database, and reports redemption rates, peak
weekdays, growth trends and a usage forecast.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./redeemstat.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "redeemstat.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// newLogger builds the logger from config, honoring --log-level
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logCfg := cfg.Log
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	log, err := logger.New("redeemstat", &logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

// setup loads config and logger, the common prelude of every command
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newAnalyzer creates an analyzer with the configured thresholds
func newAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return analyzer.New(analyzer.WithThresholds(cfg.AnalyzerThresholds()))
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
