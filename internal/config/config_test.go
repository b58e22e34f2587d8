package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load("../../configs/arenagrid.yaml")
	if err != nil {
		t.Fatalf("load arenagrid.yaml: %v", err)
	}
	if cfg.Host.CallTimeout != 3*time.Second {
		t.Fatalf("call_timeout=%s want 3s", cfg.Host.CallTimeout)
	}
	if !cfg.Host.ValidateFrames || !cfg.Query.RangeCheck || cfg.Query.Strict {
		t.Fatalf("unexpected flags: %+v %+v", cfg.Host, cfg.Query)
	}
	p := cfg.PathOptions()
	if p == nil || p.PlainCost != 2 || p.SwampCost != 10 || p.MaxOps != 20000 {
		t.Fatalf("path options mismatch: %+v", p)
	}
	if cfg.Journal.IndexDB == "" || cfg.Serve.Scenario == "" {
		t.Fatalf("journal/serve not loaded: %+v %+v", cfg.Journal, cfg.Serve)
	}
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Query.RangeCheck || cfg.PathOptions() != nil {
		t.Fatalf("defaults mismatch: %+v", cfg.Query)
	}
	if got := len(cfg.QueryOptions()); got != 1 {
		t.Fatalf("default query options=%d want 1", got)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("query:\n  strict: true\nhost:\n  call_timeout: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Query.Strict || !cfg.Query.RangeCheck {
		t.Fatalf("query mismatch: %+v", cfg.Query)
	}
	if cfg.Host.CallTimeout != Defaults().Host.CallTimeout {
		t.Fatalf("zero timeout should normalize to default, got %s", cfg.Host.CallTimeout)
	}
	if cfg.Host.URL != Defaults().Host.URL {
		t.Fatalf("host url lost: %q", cfg.Host.URL)
	}
	if got := len(cfg.QueryOptions()); got != 2 {
		t.Fatalf("strict query options=%d want 2", got)
	}
}

func TestConfigValidate(t *testing.T) {
	for name, mut := range map[string]func(*Config){
		"http scheme":     func(c *Config) { c.Host.URL = "http://localhost/v1/host" },
		"huge timeout":    func(c *Config) { c.Host.CallTimeout = time.Hour },
		"negative cost":   func(c *Config) { c.Query.Path.SwampCost = -1 },
		"heuristic range": func(c *Config) { c.Query.Path.HeuristicWeight = 0.5 },
	} {
		cfg := Defaults()
		mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
