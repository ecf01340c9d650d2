// Package config loads the declarative manifest: which resources
// should exist, where, and the timing knobs shared by every operation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atoll-cloud/atoll/await"
	"github.com/atoll-cloud/atoll/paginate"
	"github.com/atoll-cloud/atoll/types"
)

// Config represents the main configuration
type Config struct {
	Version    string               `yaml:"version"`
	Region     string               `yaml:"region,omitempty"`
	Defaults   Defaults             `yaml:"defaults,omitempty"`
	PolicyDir  string               `yaml:"policy_dir,omitempty"`
	JournalDir string               `yaml:"journal_dir,omitempty"`
	StoreDir   string               `yaml:"store_dir,omitempty"`
	Resources  []types.ResourceSpec `yaml:"resources"`
}

// Defaults are the shared timing knobs. Unset fields fall back to the
// library defaults.
type Defaults struct {
	PageSize     int           `yaml:"page_size,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Defaults.PageSize == 0 {
		c.Defaults.PageSize = paginate.DefaultPageSize
	}
	if c.Defaults.Timeout == 0 {
		c.Defaults.Timeout = await.DefaultTimeout
	}
	if c.Defaults.PollInterval == 0 {
		c.Defaults.PollInterval = await.DefaultInterval
	}

	// Resources inherit the top-level region unless they set their own.
	for i := range c.Resources {
		if c.Resources[i].Region == "" {
			c.Resources[i].Region = c.Region
		}
		if c.Resources[i].State == "" {
			c.Resources[i].State = types.IntentPresent
		}
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	for i, r := range c.Resources {
		if r.Kind == "" {
			return fmt.Errorf("resource %d: kind is required", i)
		}
		if r.Name == "" && r.Attrs["id"] == "" {
			return fmt.Errorf("resource %d (%s): name or id is required", i, r.Kind)
		}
		if !r.State.Valid() {
			return fmt.Errorf("resource %d (%s %q): invalid state %q", i, r.Kind, r.Name, r.State)
		}
	}

	return nil
}
