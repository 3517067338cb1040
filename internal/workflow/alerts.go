package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/procurelab/reqnotify/internal/eventbus"
	"github.com/procurelab/reqnotify/internal/notification"
)

// FailureAlerter emails the operations address whenever a scenario run
// fails. Subscribe its Handle method on the event bus.
type FailureAlerter struct {
	provider notification.Provider
	opsEmail string
	logger   *slog.Logger
}

// NewFailureAlerter creates a FailureAlerter targeting opsEmail.
func NewFailureAlerter(provider notification.Provider, opsEmail string, logger *slog.Logger) *FailureAlerter {
	return &FailureAlerter{provider: provider, opsEmail: opsEmail, logger: logger}
}

// Handle sends an alert for run-failure events and ignores everything else.
func (a *FailureAlerter) Handle(e eventbus.Event) {
	if e.Type != eventbus.EventRunFailed || a.opsEmail == "" {
		return
	}

	scenario := e.Payload["scenario"]
	body := fmt.Sprintf("Scenario %q failed at %s.\n\nRun: %s\nError: %s\n",
		scenario, e.Timestamp.Format(time.RFC3339),
		e.Payload["run_id"], e.Payload["error"])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg := notification.Message{
		Subject: notification.BuildSubject("Run failed: " + scenario),
		Body:    body,
		To:      []string{a.opsEmail},
	}
	if err := a.provider.Send(ctx, msg); err != nil {
		a.logger.Warn("failed to send ops alert", "scenario", scenario, "error", err)
	}
}
