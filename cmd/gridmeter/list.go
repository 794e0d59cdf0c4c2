package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/spf13/cobra"
)

var listHourly bool

var listCmd = &cobra.Command{
	Use:   "list <subscriber>",
	Short: "List stored readings",
	Long:  `Displays the raw readings of a subscriber, or the derived hourly deltas with --hourly.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listHourly, "hourly", false, "List hourly deltas instead of raw readings")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	subscriberID, err := parseSubscriber(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open database
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	unit := cfg.Report.GetUnit()

	if listHourly {
		deltas, err := db.ListDeltas(cmd.Context(), subscriberID)
		if err != nil {
			return fmt.Errorf("listing hourly deltas: %w", err)
		}
		if len(deltas) == 0 {
			fmt.Printf("No hourly deltas found for subscriber %d\n", subscriberID)
			return nil
		}

		fmt.Printf("\nSubscriber %d Hourly Deltas:\n", subscriberID)
		fmt.Println("----------------------------------------")
		fmt.Printf("%-20s  %12s\n", "Hour", unit)
		fmt.Println("----------------------------------------")

		var total float64
		for _, d := range deltas {
			fmt.Printf("%-20s  %12.3f\n", meter.FormatTimestamp(d.HourStart), d.Delta)
			total += d.Delta
		}

		fmt.Println("----------------------------------------")
		fmt.Printf("Total: %s %s (%s hours)\n", humanize.CommafWithDigits(total, 2), unit, humanize.Comma(int64(len(deltas))))
		return nil
	}

	readings, err := db.ListReadings(cmd.Context(), subscriberID)
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}
	if len(readings) == 0 {
		fmt.Printf("No readings found for subscriber %d\n", subscriberID)
		return nil
	}

	fmt.Printf("\nSubscriber %d Readings:\n", subscriberID)
	fmt.Println("----------------------------------------")
	fmt.Printf("%-20s  %12s\n", "Timestamp", unit)
	fmt.Println("----------------------------------------")

	for _, r := range readings {
		fmt.Printf("%-20s  %12.2f\n", meter.FormatTimestamp(r.Timestamp), r.Value)
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("%s records\n", humanize.Comma(int64(len(readings))))
	return nil
}
