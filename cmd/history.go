package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/logger"
	"github.com/procurelab/reqnotify/internal/notifylog"
)

var historyCmd = &cobra.Command{
	Use:   "history [scenario]",
	Short: "Show recent notification log entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	scenario := ""
	if len(args) == 1 {
		scenario = args[0]
	}
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewCLI(cfg.SlogLevel())

	store := notifylog.NewFileStore(cfg.NotifyLogFile(), log)
	entries := store.History(scenario, limit)
	if len(entries) == 0 {
		fmt.Println("No notifications recorded.")
		return nil
	}

	for _, e := range entries {
		fmt.Println(titleStyle.Render(fmt.Sprintf("%s  %s", e.Timestamp.Format("2006-01-02 15:04"), e.Scenario)))
		fmt.Printf("%s %s\n", labelStyle.Render("subject"), e.Subject)
		fmt.Printf("%s %s\n", labelStyle.Render("to"), e.Recipient)
		fmt.Printf("%s %s\n", labelStyle.Render("requests"), strings.Join(e.RequestIDs, ", "))
		fmt.Println()
	}
	return nil
}
