package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AppConfig{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, c.SlogLevel())
		})
	}
}

func TestAppConfig_Paths(t *testing.T) {
	c := &AppConfig{DataDir: "/data"}

	tests := []struct {
		name string
		fn   func() string
		want string
	}{
		{"LogDir", c.LogDir, "/data/logs"},
		{"ScenariosDir", c.ScenariosDir, "/data/scenarios"},
		{"NotifyLogFile", c.NotifyLogFile, "/data/notifications.json"},
		{"RoutingFile", c.RoutingFile, "/data/routing.yaml"},
		{"AuditDBFile", c.AuditDBFile, "/data/reqnotify.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REQNOTIFY_DATA_DIR", "/tmp/test-reqnotify")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOOKBACK_DAYS", "14")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/test-reqnotify", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 14, cfg.LookbackDays)
	// Untouched scalars keep their defaults.
	assert.Equal(t, 3, cfg.DaysToWait)
	assert.Equal(t, 90, cfg.DaysToKeep)
}
