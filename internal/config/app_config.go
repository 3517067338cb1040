package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8790.
	Port int `envconfig:"PORT" default:"8790"`

	// DataDir is the root data directory. Defaults to ~/.reqnotify.
	DataDir string `envconfig:"REQNOTIFY_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is the Postgres connection string of the workflow system
	// that supplies current request snapshots.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// DBMaxConns bounds the request-source connection pool.
	DBMaxConns int32 `envconfig:"DB_MAX_CONNS" default:"4"`

	// DBQueryTimeout bounds each snapshot query.
	DBQueryTimeout time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"30s"`

	// SMTP connection settings for outgoing notifications.
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// OpsEmail receives run-failure alerts. Alerts are disabled when empty.
	OpsEmail string `envconfig:"OPS_EMAIL"`

	// Default policy scalars; scenarios may override them individually.
	LookbackDays int `envconfig:"LOOKBACK_DAYS" default:"30"`
	DaysToWait   int `envconfig:"DAYS_TO_WAIT" default:"3"`
	DaysToKeep   int `envconfig:"DAYS_TO_KEEP" default:"90"`

	// RoutingTTL is how long loaded mail routing rules stay cached.
	RoutingTTL time.Duration `envconfig:"ROUTING_TTL" default:"5m"`

	// Google Sheets export of sent reports. Disabled when either is empty.
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	GoogleSpreadsheetID   string `envconfig:"GOOGLE_SPREADSHEET_ID"`

	// MaxConcurrentRuns bounds how many scenario runs may execute at once.
	MaxConcurrentRuns int `envconfig:"MAX_CONCURRENT_RUNS" default:"3"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.reqnotify if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".reqnotify")
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.reqnotify/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ScenariosDir returns the directory holding scenario YAML files.
func (c *AppConfig) ScenariosDir() string {
	return filepath.Join(c.DataDir, "scenarios")
}

// NotifyLogFile returns the path of the notification log JSON document.
func (c *AppConfig) NotifyLogFile() string {
	return filepath.Join(c.DataDir, "notifications.json")
}

// RoutingFile returns the path of the mail routing rules YAML file.
func (c *AppConfig) RoutingFile() string {
	return filepath.Join(c.DataDir, "routing.yaml")
}

// AuditDBFile returns the path of the run-audit SQLite database.
func (c *AppConfig) AuditDBFile() string {
	return filepath.Join(c.DataDir, "reqnotify.db")
}
