package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one notification workflow: which requests to consider,
// whom to notify, when to run, and how the dedup/resend policies are tuned.
type Scenario struct {
	// Name identifies the scenario; it keys the notification log history.
	Name string `yaml:"name"`

	// Subject of the outgoing email.
	Subject string `yaml:"subject"`

	// Recipients receive the notification. Routing rules, when present for
	// this scenario, take precedence.
	Recipients []string `yaml:"recipients"`

	// Query selects the current requests. It must return three columns:
	// id, status id, change token.
	Query string `yaml:"query"`

	// Schedule controls when the scenario runs under the serve command.
	Schedule ScheduleConfig `yaml:"schedule"`

	// LookbackDays bounds which past log entries the exclusion policy
	// consults. Zero means the application default.
	LookbackDays int `yaml:"lookback_days"`

	// Resend enables reminder emails for requests that stayed unchanged for
	// DaysToWait days after being notified.
	Resend     bool `yaml:"resend"`
	DaysToWait int  `yaml:"days_to_wait"`

	// DaysToKeep is the log retention horizon. Zero means the application default.
	DaysToKeep int `yaml:"days_to_keep"`

	// AttachReport attaches a generated XLSX listing the notified requests.
	AttachReport bool `yaml:"attach_report"`

	// ExportToSheets additionally appends the report rows to the configured
	// Google spreadsheet after a successful send.
	ExportToSheets bool `yaml:"export_to_sheets"`
}

// ScheduleConfig describes when a scenario runs. Exactly one of Cron or the
// interval fields should be set; AtTime refines EveryDays ("HH:MM").
type ScheduleConfig struct {
	Cron         string `yaml:"cron"`
	EveryMinutes int    `yaml:"every_minutes"`
	EveryHours   int    `yaml:"every_hours"`
	EveryDays    int    `yaml:"every_days"`
	AtTime       string `yaml:"at_time"`
}

// ScenarioStore defines the interface for scenario persistence.
type ScenarioStore interface {
	List() ([]*Scenario, error)
	Get(name string) (*Scenario, error)
	Save(sc *Scenario) error
	Delete(name string) error
}

// FSScenarioStore implements ScenarioStore on the local filesystem.
// Each scenario is stored as a YAML file: <dir>/<name>.yaml
type FSScenarioStore struct {
	dir string
}

// NewFSScenarioStore creates an FSScenarioStore rooted at dir.
func NewFSScenarioStore(dir string) *FSScenarioStore {
	return &FSScenarioStore{dir: dir}
}

func (s *FSScenarioStore) List() ([]*Scenario, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Scenario{}, nil
		}
		return nil, fmt.Errorf("reading scenarios dir: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		sc, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		if sc != nil {
			scenarios = append(scenarios, sc)
		}
	}
	if scenarios == nil {
		scenarios = []*Scenario{}
	}
	return scenarios, nil
}

func (s *FSScenarioStore) Get(name string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading scenario %q: %w", name, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %q: %w", name, err)
	}
	if sc.Name == "" {
		sc.Name = name
	}
	if sc.Resend && sc.DaysToWait == 0 {
		sc.DaysToWait = 3
	}
	return &sc, nil
}

func (s *FSScenarioStore) Save(sc *Scenario) error {
	if err := validateScenarioForSave(sc); err != nil {
		return err
	}
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshaling scenario %q: %w", sc.Name, err)
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("creating scenarios dir: %w", err)
	}
	path := filepath.Join(s.dir, sc.Name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing scenario %q: %w", sc.Name, err)
	}
	return nil
}

func (s *FSScenarioStore) Delete(name string) error {
	path := filepath.Join(s.dir, name+".yaml")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("scenario %q not found", name)
		}
		return fmt.Errorf("deleting scenario %q: %w", name, err)
	}
	return nil
}

func validateScenarioForSave(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if strings.ContainsAny(sc.Name, "/\\") {
		return fmt.Errorf("scenario name must not contain path separators")
	}
	if sc.Subject == "" {
		return fmt.Errorf("scenario subject is required")
	}
	if sc.Query == "" {
		return fmt.Errorf("scenario query is required")
	}
	if sc.Resend && sc.DaysToWait <= 0 {
		return fmt.Errorf("days_to_wait must be positive when resend is enabled")
	}
	return nil
}
