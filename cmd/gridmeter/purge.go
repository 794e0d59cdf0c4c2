package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge <subscriber>",
	Short: "Delete all readings and hourly deltas of a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "Confirm deletion")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	subscriberID, err := parseSubscriber(args[0])
	if err != nil {
		return err
	}
	if !purgeYes {
		return fmt.Errorf("refusing to delete history of subscriber %d without --yes", subscriberID)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Purge(cmd.Context(), subscriberID); err != nil {
		return fmt.Errorf("purging subscriber %d: %w", subscriberID, err)
	}

	fmt.Printf("✓ Deleted all records of subscriber %d\n", subscriberID)
	return nil
}
