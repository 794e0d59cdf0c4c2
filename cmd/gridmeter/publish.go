package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jgoulah/gridmeter/internal/logging"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/internal/publisher"
	"github.com/jgoulah/gridmeter/pkg/models"
	"github.com/spf13/cobra"
)

var (
	publishSince string
	publishUntil string
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish <subscriber>",
	Short: "Publish hourly deltas to MQTT, Kafka and Home Assistant",
	Long:  `Reads stored hourly deltas from the database and sends them to every sink enabled in the config.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish hours since this date (YYYY-MM-DD or relative like 7d)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish hours until this date (YYYY-MM-DD)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of hours to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	subscriberID, err := parseSubscriber(args[0])
	if err != nil {
		return err
	}

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	now, err := localNow(cfg)
	if err != nil {
		return err
	}

	lg, err := logging.New(cfg.LogFile, slog.LevelInfo)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer lg.Close()

	// Create publisher
	pub, err := publisher.New(cfg, lg.Logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()
	if !pub.Enabled() {
		return fmt.Errorf("no publish target is enabled in config")
	}

	// Open database
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Parse date filters if provided
	from := time.Time{}
	to := meter.Naive(now)
	if publishSince != "" {
		from, err = parseDate(publishSince, now)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
	}
	if publishUntil != "" {
		until, err := parseDate(publishUntil, now)
		if err != nil {
			return fmt.Errorf("parsing --until date: %w", err)
		}
		to = until.Add(24*time.Hour - time.Second)
	}

	deltas, err := db.DeltasInRange(cmd.Context(), subscriberID, from, to)
	if err != nil {
		return fmt.Errorf("listing hourly deltas: %w", err)
	}
	if len(deltas) == 0 {
		fmt.Printf("No hourly deltas in range for subscriber %d\n", subscriberID)
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(deltas) > publishLimit {
		deltas = deltas[:publishLimit]
		fmt.Printf("Limiting to %d hours (--limit flag)\n", publishLimit)
	}

	fmt.Printf("Publishing %d hours for subscriber %d...\n", len(deltas), subscriberID)
	published := 0
	for _, batch := range dayBatches(deltas) {
		day := batch[0].HourStart.Format("2006-01-02")
		if err := pub.PublishDeltas(cmd.Context(), batch); err != nil {
			fmt.Printf("%s (%d hours) FAILED: %v\n", day, len(batch), err)
			continue
		}
		fmt.Printf("%s (%d hours) ✓\n", day, len(batch))
		published += len(batch)
	}

	fmt.Printf("\nTotal hours published: %d/%d\n", published, len(deltas))
	return nil
}

// dayBatches splits ordered deltas into one batch per calendar day
func dayBatches(deltas []models.HourlyDelta) [][]models.HourlyDelta {
	var batches [][]models.HourlyDelta
	for i, d := range deltas {
		if i == 0 || d.HourStart.YearDay() != deltas[i-1].HourStart.YearDay() || d.HourStart.Year() != deltas[i-1].HourStart.Year() {
			batches = append(batches, nil)
		}
		batches[len(batches)-1] = append(batches[len(batches)-1], d)
	}
	return batches
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string, now time.Time) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			n := meter.Naive(now).AddDate(0, 0, -days)
			return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
