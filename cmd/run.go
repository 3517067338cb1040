package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/logger"
	"github.com/procurelab/reqnotify/internal/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	excludeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run one scenario immediately",
	Long: `Evaluate a scenario once: load the current requests, apply the dedup
and resend policies, and send the notification email.

With --dry-run the decision sets are printed and nothing is sent or logged.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "Compute the decision sets without sending or logging")
}

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewCLI(cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	sc, err := a.scenarios.Get(name)
	if err != nil {
		return fmt.Errorf("loading scenario %q: %w", name, err)
	}
	if sc == nil {
		return fmt.Errorf("scenario %q not found", name)
	}

	res, err := a.runner.Run(ctx, sc, workflow.RunOptions{DryRun: dryRun, Trigger: "cli"})
	if err != nil {
		return err
	}

	printRunResult(res, dryRun)
	return nil
}

func printRunResult(res *workflow.RunResult, dryRun bool) {
	header := fmt.Sprintf("Scenario %q", res.Scenario)
	if dryRun {
		header += " (dry run)"
	}
	fmt.Println(titleStyle.Render(header))

	fmt.Printf("%s %d\n", labelStyle.Render("current"), res.Current)
	fmt.Printf("%s %d\n", labelStyle.Render("excluded"), res.Excluded)
	fmt.Printf("%s %d\n", labelStyle.Render("resend"), res.Resent)
	fmt.Printf("%s %d\n", labelStyle.Render("notified"), res.Notified)

	if len(res.ExcludedIDs) > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("skipped"),
			excludeStyle.Render(strings.Join(res.ExcludedIDs, ", ")))
	}
	for _, snap := range res.ToNotify {
		line := fmt.Sprintf("%s  status=%s  changed=%s", snap.ID, snap.StatusID, snap.ChangeDateTime)
		fmt.Printf("%s %s\n", labelStyle.Render("notify"), okStyle.Render(line))
	}

	switch {
	case res.Notified == 0:
		fmt.Println(okStyle.Render("Nothing to notify."))
	case dryRun:
		fmt.Println(warnStyle.Render("Dry run: no email was sent and no log entry was written."))
	case res.LogWriteFailed:
		fmt.Println(warnStyle.Render("Email sent, but the notification log could not be written; the next run may re-notify."))
	default:
		fmt.Println(okStyle.Render(fmt.Sprintf("Email sent to %s.", strings.Join(res.Recipients, ", "))))
	}
}
