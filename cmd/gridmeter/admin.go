package main

import (
	"fmt"
	"strings"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/spf13/cobra"
)

var adminAs int64

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Privileged database operations",
	Long:  `Commands reserved for the subscriber configured as admin_id.`,
}

var adminExecCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "Execute a raw SQL statement",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdminExec,
}

var adminDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the readings and hourly delta tables",
	Args:  cobra.NoArgs,
	RunE:  runAdminDrop,
}

func init() {
	adminCmd.PersistentFlags().Int64Var(&adminAs, "as", 0, "Subscriber id of the caller")
	adminCmd.AddCommand(adminExecCmd, adminDropCmd)
	rootCmd.AddCommand(adminCmd)
}

func requireAdmin(cfg *config.Config) error {
	if !cfg.IsAdmin(adminAs) {
		return fmt.Errorf("subscriber %d is not the administrator", adminAs)
	}
	return nil
}

func runAdminExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := requireAdmin(cfg); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	result, err := db.Exec(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runAdminDrop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := requireAdmin(cfg); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.DropTables(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("✓ Tables dropped")
	return nil
}
