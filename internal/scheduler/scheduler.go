// Package scheduler runs notification scenarios on their configured
// schedules using gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/workflow"
)

// Config holds the scheduler configuration.
type Config struct {
	Scenarios      config.ScenarioStore
	Runner         *workflow.Runner
	Logger         *slog.Logger
	MaxConcurrency int
}

// Scheduler manages scheduled scenario execution using gocron.
type Scheduler struct {
	cron      gocron.Scheduler
	cfg       Config
	jobs      map[string]uuid.UUID // scenario name → gocron job UUID
	mu        sync.Mutex
	semaphore chan struct{}
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 3
	}

	return &Scheduler{
		cron:      cron,
		cfg:       cfg,
		jobs:      make(map[string]uuid.UUID),
		semaphore: make(chan struct{}, maxConc),
		logger:    cfg.Logger,
	}, nil
}

// Start loads scenarios from the store, schedules those with a schedule
// config, and starts the gocron scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	scenarios, err := s.cfg.Scenarios.List()
	if err != nil {
		return fmt.Errorf("loading scenarios: %w", err)
	}

	for _, sc := range scenarios {
		if !hasSchedule(sc.Schedule) {
			continue
		}
		if err := s.ScheduleScenario(sc); err != nil {
			s.logger.Warn("failed to schedule scenario on startup",
				"scenario", sc.Name, "error", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scenario scheduler started", "scheduled", len(s.jobs))
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// ScheduleScenario adds or replaces a scenario's schedule in gocron.
func (s *Scheduler) ScheduleScenario(sc *config.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[sc.Name]; ok {
		if err := s.cron.RemoveJob(jobID); err != nil {
			s.logger.Warn("failed to remove existing job", "scenario", sc.Name, "error", err)
		}
		delete(s.jobs, sc.Name)
	}

	jobDef, err := buildJobDefinition(sc.Schedule)
	if err != nil {
		return fmt.Errorf("building job definition for %q: %w", sc.Name, err)
	}

	name := sc.Name
	job, err := s.cron.NewJob(jobDef, gocron.NewTask(func() {
		s.executeScenario(name)
	}))
	if err != nil {
		return fmt.Errorf("scheduling scenario %q: %w", sc.Name, err)
	}

	s.jobs[sc.Name] = job.ID()
	s.logger.Info("scenario scheduled", "scenario", sc.Name)
	return nil
}

// UnscheduleScenario removes a scenario from the gocron scheduler.
func (s *Scheduler) UnscheduleScenario(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[name]; ok {
		if err := s.cron.RemoveJob(jobID); err != nil {
			s.logger.Warn("failed to remove job", "scenario", name, "error", err)
		}
		delete(s.jobs, name)
		s.logger.Info("scenario unscheduled", "scenario", name)
	}
}

// executeScenario reloads the scenario definition and runs it, holding a
// global concurrency slot for the duration. The Runner serializes runs of
// the same scenario.
func (s *Scheduler) executeScenario(name string) {
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	sc, err := s.cfg.Scenarios.Get(name)
	if err != nil || sc == nil {
		s.logger.Warn("scheduled scenario no longer loadable", "scenario", name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.cfg.Runner.Run(ctx, sc, workflow.RunOptions{Trigger: "schedule"}); err != nil {
		s.logger.Error("scheduled run failed", "scenario", name, "error", err)
	}
}

func hasSchedule(cfg config.ScheduleConfig) bool {
	return cfg.Cron != "" || cfg.EveryMinutes > 0 || cfg.EveryHours > 0 || cfg.EveryDays > 0
}

// buildJobDefinition converts a scenario's schedule config into a gocron JobDefinition.
func buildJobDefinition(cfg config.ScheduleConfig) (gocron.JobDefinition, error) {
	if cfg.Cron != "" {
		return gocron.CronJob(cfg.Cron, false), nil
	}
	if cfg.EveryMinutes > 0 {
		return gocron.DurationJob(time.Duration(cfg.EveryMinutes) * time.Minute), nil
	}
	if cfg.EveryHours > 0 {
		return gocron.DurationJob(time.Duration(cfg.EveryHours) * time.Hour), nil
	}
	if cfg.EveryDays > 0 {
		if cfg.AtTime != "" {
			if def, err := buildDailyAtTimeJob(cfg); err == nil {
				return def, nil
			}
		}
		return gocron.DurationJob(time.Duration(cfg.EveryDays) * 24 * time.Hour), nil
	}
	return nil, fmt.Errorf("scenario has no schedule")
}

// buildDailyAtTimeJob parses an "HH:MM" at_time string and returns a DailyJob definition.
func buildDailyAtTimeJob(cfg config.ScheduleConfig) (gocron.JobDefinition, error) {
	parts := strings.Split(cfg.AtTime, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid at_time format: %s", cfg.AtTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("parsing hour from at_time: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("parsing minute from at_time: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("at_time values out of range: %d:%d", hour, minute)
	}
	if cfg.EveryDays < 0 {
		return nil, fmt.Errorf("every_days must be positive, got %d", cfg.EveryDays)
	}
	return gocron.DailyJob(
		uint(cfg.EveryDays), //nolint:gosec // bounds checked above
		gocron.NewAtTimes(gocron.NewAtTime(
			uint(hour),   //nolint:gosec // bounds checked above
			uint(minute), //nolint:gosec // bounds checked above
			0,
		)),
	), nil
}
