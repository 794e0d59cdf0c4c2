package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridmeter/internal/importer"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/spf13/cobra"
)

var importSubscriber int64

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Bulk import readings from a CSV file",
	Long: `Reads a CSV export with a value column and either a timestamp column
(YYYY-MM-DD HH:MM:SS) or date and time columns. An optional subscriber column
overrides --subscriber. Readings are recorded oldest first; readings that
already exist are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Int64Var(&importSubscriber, "subscriber", 0, "Subscriber for rows without a subscriber column")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	readings, problems, err := importer.ParseCSV(f, importSubscriber)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Printf("⚠ Skipped %s\n", p)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	weights, err := cfg.GetWeights()
	if err != nil {
		return fmt.Errorf("loading weights: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Importing %s readings...\n", humanize.Comma(int64(len(readings))))
	result, err := importer.Import(cmd.Context(), meter.NewEngine(db, weights), readings)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Imported %s readings, %s hourly deltas (%s duplicates skipped)\n",
		humanize.Comma(int64(result.Imported)), humanize.Comma(int64(result.Deltas)), humanize.Comma(int64(result.Duplicates)))
	return nil
}
