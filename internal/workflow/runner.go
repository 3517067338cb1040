// Package workflow orchestrates one scenario run end to end: load the
// current request snapshot, apply the dedup/resend policies, send the email,
// and record what was sent in the notification log.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/eventbus"
	"github.com/procurelab/reqnotify/internal/metrics"
	"github.com/procurelab/reqnotify/internal/notification"
	"github.com/procurelab/reqnotify/internal/notifylog"
	"github.com/procurelab/reqnotify/internal/report"
	"github.com/procurelab/reqnotify/internal/requests"
	"github.com/procurelab/reqnotify/internal/storage"
)

// Exporter pushes report rows to an external spreadsheet after a send.
type Exporter interface {
	Export(ctx context.Context, scenario string, rows []requests.Snapshot, sentAt time.Time) error
}

// Defaults are the application-level policy scalars used when a scenario
// does not override them.
type Defaults struct {
	LookbackDays int
	DaysToWait   int
	DaysToKeep   int
}

// RunnerConfig holds the collaborators of a Runner. Log, Source, Provider
// and Logger are required; the rest are optional.
type RunnerConfig struct {
	Log      notifylog.Store
	Source   requests.Source
	Provider notification.Provider
	Routing  *config.RoutingCache
	Exporter Exporter
	Runs     storage.RunStore
	Bus      eventbus.EventBus
	Defaults Defaults
	Logger   *slog.Logger
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Runner executes scenario runs. A run is single-threaded and holds no state
// between invocations beyond the persisted notification log; restarting a
// run that never appended a log entry is always safe.
//
// Runs of the same scenario are serialized: the log store assumes a single
// writer, so overlapping runs would race on the log file.
type Runner struct {
	cfg   RunnerConfig
	now   func() time.Time
	locks sync.Map // scenario name → *sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{cfg: cfg, now: now}
}

// RunOptions modify a single run.
type RunOptions struct {
	// DryRun computes the decision sets without sending or logging anything.
	DryRun bool
	// Trigger records what initiated the run ("schedule", "api", "cli").
	Trigger string
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	DryRun   bool   `json:"dry_run"`

	Current  int `json:"current"`
	Excluded int `json:"excluded"`
	Resent   int `json:"resent"`
	Notified int `json:"notified"`

	// ToNotify lists the requests that were (or, in a dry run, would be)
	// included in the email.
	ToNotify    []requests.Snapshot `json:"to_notify"`
	ExcludedIDs []string            `json:"excluded_ids"`
	ResendIDs   []string            `json:"resend_ids"`

	Recipients []string `json:"recipients,omitempty"`

	// LogWriteFailed is set when the email went out but the notification
	// log could not be persisted. The next run may re-notify; that is the
	// accepted failure mode, a duplicate is preferred over a silent drop.
	LogWriteFailed bool `json:"log_write_failed,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Run executes one scenario evaluation. It returns an error only when the
// run produced no send decision at all (snapshot load or delivery failure);
// storage write failures after a successful send are reported on the result.
func (r *Runner) Run(ctx context.Context, sc *config.Scenario, opts RunOptions) (*RunResult, error) {
	lockIface, _ := r.locks.LoadOrStore(sc.Name, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	res := &RunResult{
		RunID:     uuid.NewString(),
		Scenario:  sc.Name,
		DryRun:    opts.DryRun,
		StartedAt: r.now(),
	}
	log := r.cfg.Logger.With("scenario", sc.Name, "run_id", res.RunID)

	result, err := r.run(ctx, sc, opts, res, log)
	res.FinishedAt = r.now()

	r.observe(ctx, sc, opts, res, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, sc *config.Scenario, opts RunOptions, res *RunResult, log *slog.Logger) (*RunResult, error) {
	now := res.StartedAt

	current, err := r.cfg.Source.Current(ctx, sc.Query)
	if err != nil {
		return nil, fmt.Errorf("loading current requests for %q: %w", sc.Name, err)
	}
	res.Current = len(current)

	entries := r.cfg.Log.All()

	lookback := sc.LookbackDays
	if lookback <= 0 {
		lookback = r.cfg.Defaults.LookbackDays
	}
	excluded := notifylog.RequestsToExclude(entries, sc.Name, current, lookback, now)

	resend := notifylog.IDSet{}
	if sc.Resend {
		daysToWait := sc.DaysToWait
		if daysToWait <= 0 {
			daysToWait = r.cfg.Defaults.DaysToWait
		}
		resend = notifylog.RequestsToResend(entries, sc.Name, current, daysToWait, now)
	}

	res.ExcludedIDs = excluded.Sorted()
	res.ResendIDs = resend.Sorted()
	res.Excluded = len(excluded)
	res.Resent = len(resend)

	// toNotify = current − excluded, plus resend candidates. Resend ids are
	// by construction present in the current snapshot.
	var toNotify []requests.Snapshot
	for _, snap := range current {
		if snap.ID == "" {
			continue
		}
		if !excluded.Contains(snap.ID) || resend.Contains(snap.ID) {
			toNotify = append(toNotify, snap)
		}
	}
	res.ToNotify = toNotify
	res.Notified = len(toNotify)

	if len(toNotify) == 0 {
		log.Info("nothing to notify", "current", res.Current, "excluded", res.Excluded)
		return res, nil
	}

	recipients := sc.Recipients
	if r.cfg.Routing != nil {
		if routed := r.cfg.Routing.RecipientsFor(sc.Name); len(routed) > 0 {
			recipients = routed
		}
	}
	res.Recipients = recipients

	if opts.DryRun {
		log.Info("dry run complete", "would_notify", res.Notified)
		return res, nil
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("scenario %q has no recipients", sc.Name)
	}

	msg := notification.Message{
		Subject: notification.BuildSubject(sc.Subject),
		Body:    buildBody(sc, toNotify, resend),
		To:      recipients,
	}
	if sc.AttachReport {
		buf, err := report.BuildXLSX(toNotify, now)
		if err != nil {
			return nil, fmt.Errorf("building report for %q: %w", sc.Name, err)
		}
		msg.Attachments = append(msg.Attachments, notification.Attachment{
			Name:        report.FileName(sc.Name, now),
			ContentType: report.XLSXContentType,
			Reader:      buf,
		})
	}

	if err := r.cfg.Provider.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("sending notification for %q: %w", sc.Name, err)
	}
	metrics.EmailsSentTotal.WithLabelValues(sc.Name).Inc()
	log.Info("notification sent", "notified", res.Notified, "recipients", len(recipients))

	// Single mutation point: record exactly the ids that were emailed, with
	// their fingerprints and send timestamps, or future decisions are wrong.
	entry := notifylog.Entry{
		Timestamp:          now,
		Scenario:           sc.Name,
		Recipient:          strings.Join(recipients, ", "),
		Subject:            msg.Subject,
		ChangeFingerprints: make(map[string]string, len(toNotify)),
		SentDates:          make(map[string]time.Time, len(toNotify)),
	}
	for _, snap := range toNotify {
		entry.RequestIDs = append(entry.RequestIDs, snap.ID)
		entry.ChangeFingerprints[snap.ID] = snap.ChangeDateTime
		entry.SentDates[snap.ID] = now
	}
	if err := r.cfg.Log.Append(entry); err != nil {
		// Best-effort durability: the email is already out, so surface the
		// failure without undoing the run. The next run re-notifies at worst.
		log.Warn("failed to persist notification log entry", "error", err)
		res.LogWriteFailed = true
	}

	daysToKeep := sc.DaysToKeep
	if daysToKeep <= 0 {
		daysToKeep = r.cfg.Defaults.DaysToKeep
	}
	if err := r.cfg.Log.Prune(daysToKeep); err != nil {
		log.Warn("failed to prune notification log", "error", err)
	}

	if sc.ExportToSheets && r.cfg.Exporter != nil {
		if err := r.cfg.Exporter.Export(ctx, sc.Name, toNotify, now); err != nil {
			log.Warn("spreadsheet export failed", "error", err)
		}
	}

	return res, nil
}

// observe records metrics, the audit row and the lifecycle event for a
// finished run, regardless of outcome.
func (r *Runner) observe(ctx context.Context, sc *config.Scenario, opts RunOptions, res *RunResult, runErr error) {
	status := "ok"
	if runErr != nil {
		status = "failed"
	}

	metrics.RunsTotal.WithLabelValues(sc.Name, status).Inc()
	metrics.RunDuration.WithLabelValues(sc.Name).Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	if runErr == nil && !opts.DryRun {
		metrics.RequestsDecided.WithLabelValues(sc.Name, "excluded").Add(float64(res.Excluded))
		metrics.RequestsDecided.WithLabelValues(sc.Name, "resent").Add(float64(res.Resent))
		metrics.RequestsDecided.WithLabelValues(sc.Name, "notified").Add(float64(res.Notified))
	}

	if r.cfg.Runs != nil {
		rec := storage.RunRecord{
			ID:         res.RunID,
			Scenario:   sc.Name,
			Trigger:    opts.Trigger,
			DryRun:     opts.DryRun,
			Current:    res.Current,
			Excluded:   res.Excluded,
			Resent:     res.Resent,
			Notified:   res.Notified,
			Status:     status,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
		}
		if runErr != nil {
			rec.ErrorMsg = runErr.Error()
		}
		if err := r.cfg.Runs.RecordRun(ctx, rec); err != nil {
			r.cfg.Logger.Warn("failed to record run audit row",
				"scenario", sc.Name, "run_id", res.RunID, "error", err)
		}
	}

	if r.cfg.Bus != nil && !opts.DryRun {
		payload := map[string]string{
			"run_id":   res.RunID,
			"scenario": sc.Name,
			"notified": strconv.Itoa(res.Notified),
		}
		eventType := eventbus.EventRunFinished
		if runErr != nil {
			eventType = eventbus.EventRunFailed
			payload["error"] = runErr.Error()
		}
		r.cfg.Bus.Publish(eventType, payload)
	}
}

// buildBody renders the plain-text email body: one line per request, with
// reminders called out.
func buildBody(sc *config.Scenario, toNotify []requests.Snapshot, resend notifylog.IDSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d request(s) require attention in workflow %q.\n\n", len(toNotify), sc.Name)
	for _, snap := range toNotify {
		if resend.Contains(snap.ID) {
			fmt.Fprintf(&b, "Reminder: request %s is still pending (status %s, unchanged since %s).\n",
				snap.ID, snap.StatusID, snap.ChangeDateTime)
			continue
		}
		fmt.Fprintf(&b, "Request %s is awaiting action (status %s, last change %s).\n",
			snap.ID, snap.StatusID, snap.ChangeDateTime)
	}
	return b.String()
}
