package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/jgoulah/gridmeter/internal/database"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/internal/report"
	"github.com/spf13/cobra"
)

var (
	statsAsOf     string
	statsNoCharts bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <subscriber>",
	Short: "Show consumption statistics",
	Long: `Prints month-to-date consumption, the delta from the previous reading and
daily average and standard deviation, and writes SVG charts of daily usage.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAsOf, "as-of", "", "Reference time (YYYY-MM-DD or YYYY-MM-DD HH:MM:SS, default: now)")
	statsCmd.Flags().BoolVar(&statsNoCharts, "no-charts", false, "Only print the text summary")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	subscriberID, err := parseSubscriber(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	now, err := localNow(cfg)
	if err != nil {
		return err
	}

	asOf := meter.Naive(now)
	if statsAsOf != "" {
		if len(statsAsOf) == len("2006-01-02") {
			asOf, err = meter.NormalizeTimestamp(now, "23:59:59", statsAsOf)
		} else {
			asOf, err = meter.ParseTimestamp(statsAsOf)
		}
		if err != nil {
			return err
		}
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return printStats(cmd, cfg, db, subscriberID, asOf, !statsNoCharts)
}

// printStats prints the text summary and, when charts is set, the paths of
// the rendered chart artifacts.
func printStats(cmd *cobra.Command, cfg *config.Config, db *database.DB, subscriberID int64, asOf time.Time, charts bool) error {
	stats := meter.NewStats(db)
	rep, err := stats.Report(cmd.Context(), subscriberID, asOf, cfg.Report.GetHourlyWindow())
	if err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}

	reporter := report.NewReporter(cfg.Report.GetPictureDir(), cfg.Report.GetUnit())
	if !charts {
		fmt.Println(reporter.Text(rep))
		return nil
	}

	out, err := reporter.Render(rep)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	fmt.Println(out.Text)
	for _, path := range out.Charts {
		fmt.Printf("Chart: %s\n", path)
	}
	return nil
}
