package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/procurelab/reqnotify/internal/api"
	"github.com/procurelab/reqnotify/internal/build"
	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/logger"
	"github.com/procurelab/reqnotify/internal/scheduler"
	"github.com/procurelab/reqnotify/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and scenario scheduler",
	Long:  "Start the REST API server and run configured scenarios on their schedules.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT env var)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := os.MkdirAll(cfg.ScenariosDir(), 0o750); err != nil {
		return fmt.Errorf("creating scenarios directory: %w", err)
	}

	log := logger.New(cfg.LogDir(), cfg.SlogLevel())
	log.Info("starting reqnotify", "version", build.Version, "port", cfg.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := scheduler.New(scheduler.Config{
		Scenarios:      a.scenarios,
		Runner:         a.runner,
		Logger:         log,
		MaxConcurrency: cfg.MaxConcurrentRuns,
	})
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	apiSrv := api.New(a.scenarios, a.runner, a.notifyLog, a.runs, a.routing, log)
	srv := server.New(apiSrv, cfg.Port, log)

	fmt.Fprintf(os.Stderr, "reqnotify %s listening on http://localhost:%d\n", build.Version, cfg.Port)
	fmt.Fprintf(os.Stderr, "  GET  /api/scenarios            → list scenarios\n")
	fmt.Fprintf(os.Stderr, "  POST /api/scenarios/{name}/run → trigger a run\n")
	fmt.Fprintf(os.Stderr, "  GET  /api/history              → notification log\n")
	fmt.Fprintf(os.Stderr, "  GET  /metrics                  → prometheus metrics\n")

	return srv.Run(ctx)
}
