package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/logger"
	"github.com/procurelab/reqnotify/internal/notifylog"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove notification log entries older than the retention window",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().Int("days", 0, "Retention window in days (overrides DAYS_TO_KEEP)")
}

func runPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	days := cfg.DaysToKeep
	if cmd.Flags().Changed("days") {
		days, _ = cmd.Flags().GetInt("days")
	}
	if days <= 0 {
		return fmt.Errorf("retention window must be positive, got %d", days)
	}

	log := logger.NewCLI(cfg.SlogLevel())
	store := notifylog.NewFileStore(cfg.NotifyLogFile(), log)

	before := len(store.All())
	if err := store.Prune(days); err != nil {
		return fmt.Errorf("pruning notification log: %w", err)
	}
	after := len(store.All())

	fmt.Printf("Pruned %d of %d entries (keeping %d days).\n", before-after, before, days)
	return nil
}
