package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/jgoulah/gridmeter/internal/database"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "gridmeter",
	Short: "Track cumulative electricity meter readings per subscriber",
	Long: `GridMeter records cumulative electricity meter readings, spreads the energy
between consecutive readings over the hours in between using a time-of-day
weight table, and reports month-to-date and daily usage statistics.
Data is stored in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is db_path from config, then ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetDBPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	if path != database.MemoryPath {
		// Ensure directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	return database.New(path)
}

// localNow returns the current time in the configured zone
func localNow(cfg *config.Config) (time.Time, error) {
	loc, err := cfg.GetLocation()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}
