// Package config loads the YAML settings shared by the arenagrid commands.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"arenagrid.ai/internal/objects"
)

type Config struct {
	Host    HostConfig    `yaml:"host"`
	Query   QueryConfig   `yaml:"query"`
	Journal JournalConfig `yaml:"journal"`
	Serve   ServeConfig   `yaml:"serve"`
}

// HostConfig says how to reach a remote host.
type HostConfig struct {
	URL            string        `yaml:"url"`
	ClientName     string        `yaml:"client_name"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	ValidateFrames bool          `yaml:"validate_frames"`
}

type QueryConfig struct {
	Strict     bool                    `yaml:"strict"`
	RangeCheck bool                    `yaml:"range_check"`
	Path       objects.FindPathOptions `yaml:"path"`
}

// JournalConfig enables call journaling. Empty paths disable the
// corresponding sink.
type JournalConfig struct {
	Dir     string `yaml:"dir"`
	IndexDB string `yaml:"index_db"`
}

// ServeConfig drives cmd/hostsim.
type ServeConfig struct {
	Addr           string `yaml:"addr"`
	Name           string `yaml:"name"`
	Scenario       string `yaml:"scenario"`
	ValidateFrames bool   `yaml:"validate_frames"`
}

func Defaults() Config {
	return Config{
		Host: HostConfig{
			URL:         "ws://127.0.0.1:8090/v1/host",
			ClientName:  "arenagrid",
			CallTimeout: 5 * time.Second,
		},
		Query: QueryConfig{RangeCheck: true},
		Serve: ServeConfig{
			Addr:     ":8090",
			Name:     "hostsim",
			Scenario: "./configs/scenarios/power_split.yaml",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	d := Defaults()
	c.Host.URL = strings.TrimSpace(c.Host.URL)
	c.Host.ClientName = strings.TrimSpace(c.Host.ClientName)
	if c.Host.ClientName == "" {
		c.Host.ClientName = d.Host.ClientName
	}
	if c.Host.CallTimeout <= 0 {
		c.Host.CallTimeout = d.Host.CallTimeout
	}
	c.Journal.Dir = strings.TrimSpace(c.Journal.Dir)
	c.Journal.IndexDB = strings.TrimSpace(c.Journal.IndexDB)
	c.Serve.Addr = strings.TrimSpace(c.Serve.Addr)
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	if strings.TrimSpace(c.Serve.Name) == "" {
		c.Serve.Name = d.Serve.Name
	}
}

func (c Config) Validate() error {
	if c.Host.URL != "" {
		u, err := url.Parse(c.Host.URL)
		if err != nil {
			return fmt.Errorf("host.url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("host.url: scheme must be ws or wss, got %q", u.Scheme)
		}
	}
	if c.Host.CallTimeout > time.Minute {
		return fmt.Errorf("host.call_timeout: %s exceeds one minute", c.Host.CallTimeout)
	}
	p := c.Query.Path
	if p.PlainCost < 0 || p.SwampCost < 0 || p.MaxOps < 0 || p.MaxCost < 0 {
		return fmt.Errorf("query.path: costs and limits must be non-negative")
	}
	if p.HeuristicWeight != 0 && (p.HeuristicWeight < 1 || p.HeuristicWeight > 9) {
		return fmt.Errorf("query.path.heuristic_weight: %v not in [1, 9]", p.HeuristicWeight)
	}
	return nil
}

// QueryOptions turns the query section into options for the objects
// package queries.
func (c Config) QueryOptions(extra ...objects.QueryOption) []objects.QueryOption {
	opts := []objects.QueryOption{objects.WithRangeCheck(c.Query.RangeCheck)}
	if c.Query.Strict {
		opts = append(opts, objects.WithStrict())
	}
	return append(opts, extra...)
}

// PathOptions returns the configured search options, or nil when none are
// set.
func (c Config) PathOptions() *objects.FindPathOptions {
	p := c.Query.Path
	if p.PlainCost == 0 && p.SwampCost == 0 && !p.Flee && p.MaxOps == 0 && p.MaxCost == 0 && p.HeuristicWeight == 0 {
		return nil
	}
	return &p
}
