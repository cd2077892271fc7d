package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if len(cfg.Templates) != 1 || cfg.Templates[0] != "**" {
		t.Errorf("expected catch-all template, got %v", cfg.Templates)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unsupported version",
			modify:  func(c *Config) { c.Version = 2 },
			wantErr: true,
		},
		{
			name:    "no templates",
			modify:  func(c *Config) { c.Templates = nil },
			wantErr: true,
		},
		{
			name:    "negative workers",
			modify:  func(c *Config) { c.Workers = -1 },
			wantErr: true,
		},
		{
			name: "valid dependency rule",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{
					ID: "r1", Type: RuleDependency,
					Namespace: "internal/*/domain", Policy: "should_not",
					Target: "internal/*/infrastructure",
				}}
			},
			wantErr: false,
		},
		{
			name: "rule missing id",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{Type: RuleDependency, Namespace: "a", Target: "b"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate rule id",
			modify: func(c *Config) {
				c.Rules = []RuleDef{
					{ID: "r", Type: RuleDependency, Namespace: "a", Target: "b"},
					{ID: "r", Type: RuleDependency, Namespace: "c", Target: "d"},
				}
			},
			wantErr: true,
		},
		{
			name: "unknown rule type",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{ID: "r", Type: "forbidden"}}
			},
			wantErr: true,
		},
		{
			name: "naming rule without suffix",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{ID: "r", Type: RuleNaming, Namespace: "a"}}
			},
			wantErr: true,
		},
		{
			name: "naming rule with bad kind",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{ID: "r", Type: RuleNaming, Namespace: "a", Suffix: "X", Kind: "klass"}}
			},
			wantErr: true,
		},
		{
			name: "dependency rule with bad policy",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{ID: "r", Type: RuleDependency, Namespace: "a", Target: "b", Policy: "must_not"}}
			},
			wantErr: true,
		},
		{
			name: "isolation matrix without template",
			modify: func(c *Config) {
				c.Rules = []RuleDef{{ID: "r", Type: RuleIsolationMatrix}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "archlens.yaml")

	content := `
version: 1
root: "/test/project"
module_prefix: "example.com/proj"
templates:
  - "internal/*/domain"
  - "internal/*/infrastructure/**"
include:
  - "internal/**"
exclude:
  - "internal/gen/**"
workers: 4
warn_empty_selection: true
rules:
  - id: no-domain-to-infra
    type: dependency
    namespace: "internal/*/domain"
    policy: should_not
    target: "internal/*/infrastructure"
  - id: domain-repositories
    type: naming
    namespace: "internal/*/domain"
    suffix: Repository
    kind: interface
  - id: domain-isolation
    type: isolation-matrix
    template: "internal/*"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Root != "/test/project" {
		t.Errorf("expected root /test/project, got %s", cfg.Root)
	}
	if cfg.ModulePrefix != "example.com/proj" {
		t.Errorf("expected module prefix example.com/proj, got %s", cfg.ModulePrefix)
	}
	if len(cfg.Templates) != 2 {
		t.Errorf("expected 2 templates, got %d", len(cfg.Templates))
	}
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if !cfg.WarnEmptySelection {
		t.Error("expected warn_empty_selection to be set")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}

	rules, err := cfg.StaticRules()
	if err != nil {
		t.Fatalf("StaticRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 static rules, got %d", len(rules))
	}
	if rules[0].ID != "no-domain-to-infra" {
		t.Errorf("expected rule no-domain-to-infra first, got %s", rules[0].ID)
	}

	matrix := cfg.MatrixDefs()
	if len(matrix) != 1 || matrix[0].ID != "domain-isolation" {
		t.Errorf("expected one isolation-matrix def, got %v", matrix)
	}
}

func TestStaticRules_BadPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules = []RuleDef{{
		ID: "r", Type: RuleDependency,
		Namespace: "internal/[bad", Target: "x",
	}}

	if _, err := cfg.StaticRules(); err == nil {
		t.Error("expected error for malformed namespace pattern")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Root:         "/override/path",
		ModulePrefix: "example.com/app",
		Rules:        []RuleDef{{ID: "r", Type: RuleDependency, Namespace: "a", Target: "b"}},
	}

	base.Merge(override)

	if base.Root != "/override/path" {
		t.Errorf("expected root /override/path, got %s", base.Root)
	}
	// Templates should remain from base since override didn't set them
	if len(base.Templates) != 1 || base.Templates[0] != "**" {
		t.Errorf("expected templates to remain default, got %v", base.Templates)
	}
	if len(base.Rules) != 1 {
		t.Errorf("expected override rules, got %v", base.Rules)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "archlens.yaml")

	cfg := DefaultConfig()
	cfg.ModulePrefix = "example.com/saved"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.ModulePrefix != "example.com/saved" {
		t.Errorf("expected module prefix example.com/saved, got %s", loaded.ModulePrefix)
	}
}
