package main

import (
	"fmt"
	"strconv"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/spf13/cobra"
)

var recordNoStats bool

var recordCmd = &cobra.Command{
	Use:   "record <subscriber> <value> [HH:MM[:SS]] [YYYY-MM-DD]",
	Short: "Record a meter reading",
	Long: `Stores a cumulative meter reading and spreads the energy used since the
previous reading over the hours in between. Time defaults to the current
minute and date to today, both in the configured timezone.`,
	Args: cobra.RangeArgs(2, 4),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().BoolVar(&recordNoStats, "no-stats", false, "Do not print statistics after recording")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	subscriberID, err := parseSubscriber(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}
	var timeOfDay, date string
	if len(args) > 2 {
		timeOfDay = args[2]
	}
	if len(args) > 3 {
		date = args[3]
	}

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	weights, err := cfg.GetWeights()
	if err != nil {
		return fmt.Errorf("loading weights: %w", err)
	}
	now, err := localNow(cfg)
	if err != nil {
		return err
	}

	ts, err := meter.NormalizeTimestamp(now, timeOfDay, date)
	if err != nil {
		return err
	}

	// Open database
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	engine := meter.NewEngine(db, weights)
	deltas, err := engine.RecordReading(cmd.Context(), subscriberID, value, ts)
	if err != nil {
		return fmt.Errorf("recording reading: %w", err)
	}

	fmt.Printf("✓ Record added: %s %.3f (%d hourly deltas)\n", meter.FormatTimestamp(ts), value, len(deltas))

	if recordNoStats {
		return nil
	}
	return printStats(cmd, cfg, db, subscriberID, meter.Naive(now), true)
}

func parseSubscriber(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subscriber id %q", arg)
	}
	return id, nil
}
