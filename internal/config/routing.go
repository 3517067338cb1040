package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RoutingRules maps a scenario name to the recipients that should be
// notified for it. Rules override a scenario's own recipient list.
type RoutingRules struct {
	Recipients map[string][]string `yaml:"recipients"`
}

// RoutingCache loads mail routing rules from a YAML file and caches them
// with a fixed time-to-live, so edits to the file take effect without a
// restart while steady-state runs avoid rereading it.
// It is safe for concurrent use.
type RoutingCache struct {
	mu        sync.RWMutex
	path      string
	ttl       time.Duration
	rules     *RoutingRules
	expiresAt time.Time
	logger    *slog.Logger
}

// NewRoutingCache creates a RoutingCache reading from path with the given TTL.
func NewRoutingCache(path string, ttl time.Duration, logger *slog.Logger) *RoutingCache {
	return &RoutingCache{path: path, ttl: ttl, logger: logger}
}

// RecipientsFor returns the configured recipients for scenario, or nil when
// no rule exists. A missing or unreadable rules file yields no rules; the
// caller falls back to the scenario's own recipient list.
func (c *RoutingCache) RecipientsFor(scenario string) []string {
	rules := c.current()
	if rules == nil || rules.Recipients == nil {
		return nil
	}
	return rules.Recipients[scenario]
}

// Invalidate clears the cache expiry so the next read reloads the file.
func (c *RoutingCache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *RoutingCache) current() *RoutingRules {
	c.mu.RLock()
	if c.rules != nil && time.Now().Before(c.expiresAt) {
		rules := c.rules
		c.mu.RUnlock()
		return rules
	}
	c.mu.RUnlock()

	rules, err := loadRoutingRules(c.path)
	if err != nil {
		c.logger.Warn("loading routing rules failed, using empty rules",
			"path", c.path, "error", err)
		rules = &RoutingRules{}
	}

	c.mu.Lock()
	c.rules = rules
	c.expiresAt = time.Now().Add(c.ttl)
	c.mu.Unlock()
	return rules
}

func loadRoutingRules(path string) (*RoutingRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &RoutingRules{}, nil
		}
		return nil, fmt.Errorf("reading routing rules: %w", err)
	}
	var rules RoutingRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing routing rules: %w", err)
	}
	return &rules, nil
}
