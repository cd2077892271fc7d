// Package config provides configuration loading and management for Archlens.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/archlens/rule"
	"github.com/c360studio/archlens/scan"
)

// Rule types accepted in configuration files.
const (
	RuleDependency      = "dependency"
	RuleNaming          = "naming"
	RuleIsolationMatrix = "isolation-matrix"
)

// Config represents the complete Archlens configuration.
type Config struct {
	// Version is the config schema version. Only version 1 is accepted.
	Version int `yaml:"version"`

	// Root is the project root to analyze (auto-detected from git if empty).
	Root string `yaml:"root"`

	// Templates are the namespace templates that classify files into
	// modules. Defaults to a single catch-all template.
	Templates []string `yaml:"templates"`

	// ModulePrefix is stripped from import paths before resolution, e.g.
	// a Go module path.
	ModulePrefix string `yaml:"module_prefix"`

	// Include and Exclude are doublestar globs over root-relative paths.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// Workers bounds scan parallelism. Zero means auto.
	Workers int `yaml:"workers"`

	// WarnEmptySelection reports rules whose selector matched no module.
	WarnEmptySelection bool `yaml:"warn_empty_selection"`

	Rules []RuleDef `yaml:"rules"`
}

// RuleDef is one rule as written in the config file. The fields used depend
// on Type: dependency rules take namespace/policy/target, naming rules take
// namespace/suffix and an optional kind, isolation-matrix rules take a
// template with wildcard captures.
type RuleDef struct {
	ID        string `yaml:"id"`
	Type      string `yaml:"type"`
	Namespace string `yaml:"namespace"`
	Policy    string `yaml:"policy"`
	Target    string `yaml:"target"`
	Suffix    string `yaml:"suffix"`
	Kind      string `yaml:"kind"`
	Template  string `yaml:"template"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		Templates: []string{"**"},
		Exclude:   nil, // scan defaults apply
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	if len(c.Templates) == 0 {
		return fmt.Errorf("templates must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	seen := map[string]bool{}
	for i, def := range c.Rules {
		if def.ID == "" {
			return fmt.Errorf("rules[%d]: id is required", i)
		}
		if seen[def.ID] {
			return fmt.Errorf("rules[%d]: duplicate id %q", i, def.ID)
		}
		seen[def.ID] = true
		if err := def.validate(); err != nil {
			return fmt.Errorf("rule %s: %w", def.ID, err)
		}
	}
	return nil
}

func (d RuleDef) validate() error {
	switch d.Type {
	case RuleDependency:
		if d.Namespace == "" || d.Target == "" {
			return fmt.Errorf("dependency rule needs namespace and target")
		}
		if _, err := parsePolicy(d.Policy); err != nil {
			return err
		}
	case RuleNaming:
		if d.Namespace == "" || d.Suffix == "" {
			return fmt.Errorf("naming rule needs namespace and suffix")
		}
		if d.Kind != "" {
			if _, err := scan.ParseKind(d.Kind); err != nil {
				return err
			}
		}
		if _, err := parsePolicy(d.Policy); err != nil {
			return err
		}
	case RuleIsolationMatrix:
		if d.Template == "" {
			return fmt.Errorf("isolation-matrix rule needs a template")
		}
	default:
		return fmt.Errorf("unknown rule type %q", d.Type)
	}
	return nil
}

func parsePolicy(policy string) (rule.Quantifier, error) {
	switch policy {
	case "", "should":
		return rule.Should, nil
	case "should_not", "should-not":
		return rule.ShouldNot, nil
	}
	return "", fmt.Errorf("unknown policy %q", policy)
}

// StaticRules converts the dependency and naming definitions into evaluable
// rules. Isolation-matrix definitions are excluded; they expand against the
// built graph via MatrixDefs.
func (c *Config) StaticRules() ([]rule.Rule, error) {
	var rules []rule.Rule
	for _, def := range c.Rules {
		switch def.Type {
		case RuleDependency:
			q, err := parsePolicy(def.Policy)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", def.ID, err)
			}
			r, err := rule.New(def.ID, rule.ResidesInNamespace(def.Namespace), q, rule.HaveDependencyOn(def.Target))
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		case RuleNaming:
			q, err := parsePolicy(def.Policy)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", def.ID, err)
			}
			assertion := rule.HaveNameEndingWith(def.Suffix)
			if def.Kind != "" {
				assertion = assertion.OfKind(scan.SymbolKind(def.Kind))
			}
			r, err := rule.New(def.ID, rule.ResidesInNamespace(def.Namespace), q, assertion)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// MatrixDefs returns the isolation-matrix definitions.
func (c *Config) MatrixDefs() []RuleDef {
	var defs []RuleDef
	for _, def := range c.Rules {
		if def.Type == RuleIsolationMatrix {
			defs = append(defs, def)
		}
	}
	return defs
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Root != "" {
		c.Root = other.Root
	}
	if len(other.Templates) > 0 {
		c.Templates = other.Templates
	}
	if other.ModulePrefix != "" {
		c.ModulePrefix = other.ModulePrefix
	}
	if len(other.Include) > 0 {
		c.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
	if other.WarnEmptySelection {
		c.WarnEmptySelection = true
	}
	if len(other.Rules) > 0 {
		c.Rules = other.Rules
	}
}
