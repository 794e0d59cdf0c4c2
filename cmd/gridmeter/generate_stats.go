package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jgoulah/gridmeter/internal/logging"
	"github.com/jgoulah/gridmeter/internal/publisher"
	"github.com/spf13/cobra"
)

var generateStatsCmd = &cobra.Command{
	Use:   "generate-stats",
	Short: "Generate statistics in Home Assistant from backfilled states",
	Long:  `Calls AppDaemon endpoint to compile statistics from individual hourly delta states. Run this after publishing to populate the Energy dashboard.`,
	Args:  cobra.NoArgs,
	RunE:  runGenerateStats,
}

func init() {
	rootCmd.AddCommand(generateStatsCmd)
}

func runGenerateStats(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Generate Statistics started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.HomeAssistant.Enabled {
		return fmt.Errorf("Home Assistant is not enabled in config")
	}

	lg, err := logging.New(cfg.LogFile, slog.LevelWarn)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer lg.Close()

	// Only the Home Assistant sink is needed here
	haOnly := *cfg
	haOnly.MQTT.Enabled = false
	haOnly.Kafka.Enabled = false
	pub, err := publisher.New(&haOnly, lg.Logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	fmt.Printf("Generating statistics for %s...\n", cfg.HomeAssistant.EntityID)
	result, err := pub.GenerateStatistics(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Statistics generated successfully\n")
	fmt.Printf("  - Inserted: %d new statistics records\n", result.Inserted)
	fmt.Printf("  - Updated: %d existing statistics records\n", result.Updated)
	fmt.Printf("  - Total hours: %d\n", result.TotalHours)
	return nil
}
