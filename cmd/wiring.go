package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/eventbus"
	"github.com/procurelab/reqnotify/internal/notification"
	"github.com/procurelab/reqnotify/internal/notifylog"
	"github.com/procurelab/reqnotify/internal/report"
	"github.com/procurelab/reqnotify/internal/requests"
	"github.com/procurelab/reqnotify/internal/storage"
	"github.com/procurelab/reqnotify/internal/workflow"
)

// app bundles the wired collaborators shared by the serve and run commands.
type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	scenarios *config.FSScenarioStore
	notifyLog *notifylog.FileStore
	routing   *config.RoutingCache
	source    *requests.PostgresSource
	provider  notification.Provider
	runs      storage.RunStore
	bus       eventbus.EventBus
	runner    *workflow.Runner

	closers []func()
}

// newApp wires the application from cfg. withBus controls whether the event
// bus and ops alerting are started (the one-shot commands don't need them).
func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, withBus bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.scenarios = config.NewFSScenarioStore(cfg.ScenariosDir())
	a.notifyLog = notifylog.NewFileStore(cfg.NotifyLogFile(), logger)
	a.routing = config.NewRoutingCache(cfg.RoutingFile(), cfg.RoutingTTL, logger)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	source, err := requests.NewPostgresSource(ctx, requests.PostgresConfig{
		URL:          cfg.DatabaseURL,
		MaxConns:     cfg.DBMaxConns,
		QueryTimeout: cfg.DBQueryTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to workflow database: %w", err)
	}
	a.source = source
	a.closers = append(a.closers, source.Close)

	a.provider = notification.NewSMTPProvider(notification.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		FromAddr:   cfg.SMTPFrom,
		Encryption: cfg.SMTPEncryption,
	})

	db, err := storage.NewSQLiteDB(cfg.AuditDBFile())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	a.runs = storage.NewSQLiteRunStore(db)
	a.closers = append(a.closers, func() { _ = db.Close() })

	var exporter workflow.Exporter
	if cfg.GoogleCredentialsFile != "" && cfg.GoogleSpreadsheetID != "" {
		se, err := report.NewSheetsExporter(ctx, cfg.GoogleCredentialsFile, cfg.GoogleSpreadsheetID)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("configuring sheets export: %w", err)
		}
		exporter = se
	}

	if withBus {
		a.bus = eventbus.New(0, logger)
		a.closers = append(a.closers, a.bus.Close)
		if cfg.OpsEmail != "" {
			alerter := workflow.NewFailureAlerter(a.provider, cfg.OpsEmail, logger)
			a.bus.Subscribe(alerter.Handle)
		}
	}

	a.runner = workflow.NewRunner(workflow.RunnerConfig{
		Log:      a.notifyLog,
		Source:   a.source,
		Provider: a.provider,
		Routing:  a.routing,
		Exporter: exporter,
		Runs:     a.runs,
		Bus:      a.bus,
		Defaults: workflow.Defaults{
			LookbackDays: cfg.LookbackDays,
			DaysToWait:   cfg.DaysToWait,
			DaysToKeep:   cfg.DaysToKeep,
		},
		Logger: logger,
	})
	return a, nil
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
