package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelab/reqnotify/internal/config"
)

func TestHasSchedule(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ScheduleConfig
		want bool
	}{
		{"empty", config.ScheduleConfig{}, false},
		{"cron", config.ScheduleConfig{Cron: "0 9 * * 1-5"}, true},
		{"every minutes", config.ScheduleConfig{EveryMinutes: 15}, true},
		{"every hours", config.ScheduleConfig{EveryHours: 4}, true},
		{"every days", config.ScheduleConfig{EveryDays: 1}, true},
		{"at_time alone is not a schedule", config.ScheduleConfig{AtTime: "09:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasSchedule(tt.cfg))
		})
	}
}

func TestBuildJobDefinition(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ScheduleConfig
		wantErr bool
	}{
		{"cron", config.ScheduleConfig{Cron: "*/5 * * * *"}, false},
		{"every minutes", config.ScheduleConfig{EveryMinutes: 10}, false},
		{"every hours", config.ScheduleConfig{EveryHours: 2}, false},
		{"every days", config.ScheduleConfig{EveryDays: 1}, false},
		{"daily at time", config.ScheduleConfig{EveryDays: 1, AtTime: "09:30"}, false},
		{"bad at_time falls back to interval", config.ScheduleConfig{EveryDays: 1, AtTime: "not-a-time"}, false},
		{"no schedule", config.ScheduleConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := buildJobDefinition(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, def)
		})
	}
}

func TestBuildDailyAtTimeJob(t *testing.T) {
	tests := []struct {
		name    string
		atTime  string
		wantErr bool
	}{
		{"valid", "09:30", false},
		{"midnight", "00:00", false},
		{"end of day", "23:59", false},
		{"missing minute", "09", true},
		{"hour out of range", "24:00", true},
		{"minute out of range", "09:60", true},
		{"not numeric", "aa:bb", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildDailyAtTimeJob(config.ScheduleConfig{EveryDays: 1, AtTime: tt.atTime})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
