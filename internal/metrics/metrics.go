// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts completed scenario runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqnotify_runs_total",
		Help: "Completed scenario runs by scenario and status.",
	}, []string{"scenario", "status"})

	// RunDuration observes end-to-end run duration per scenario.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reqnotify_run_duration_seconds",
		Help:    "End-to-end scenario run duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scenario"})

	// EmailsSentTotal counts notification emails actually delivered.
	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqnotify_emails_sent_total",
		Help: "Notification emails sent by scenario.",
	}, []string{"scenario"})

	// RequestsDecided counts per-request policy decisions.
	RequestsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqnotify_requests_decided_total",
		Help: "Per-request policy outcomes by scenario and decision.",
	}, []string{"scenario", "decision"})
)
