package config

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the file name searched for in the working
	// directory and its parents.
	ProjectConfigFile = "archlens.yaml"

	// UserConfigDir holds the user-level config, relative to the home
	// directory.
	UserConfigDir = ".config/archlens"

	// UserConfigFile is the file name inside UserConfigDir.
	UserConfigFile = "config.yaml"
)

// Loader assembles the effective configuration from layered sources. Layers
// merge in order of increasing precedence: built-in defaults, the user file,
// then the nearest project file found walking up from the working directory.
type Loader struct {
	logger *slog.Logger

	// WorkDir and HomeDir override the process working directory and the
	// user's home directory. Empty values use the process defaults.
	WorkDir string
	HomeDir string
}

// NewLoader creates a loader using the process working and home directories.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load merges all configuration layers and validates the result. A missing
// layer is skipped silently; an unreadable or malformed one is skipped with
// a warning so a broken user file cannot take every project down.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	layers := []struct{ name, path string }{
		{"user", l.UserConfigPath()},
		{"project", l.FindProjectConfig()},
	}
	for _, layer := range layers {
		if layer.path == "" {
			continue
		}
		loaded, err := LoadFromFile(layer.path)
		switch {
		case err == nil:
			cfg.Merge(loaded)
			l.logger.Debug("Merged config layer",
				slog.String("layer", layer.name),
				slog.String("path", layer.path))
		case errors.Is(err, os.ErrNotExist):
			l.logger.Debug("Config layer absent",
				slog.String("layer", layer.name),
				slog.String("path", layer.path))
		default:
			l.logger.Warn("Skipping unreadable config layer",
				slog.String("layer", layer.name),
				slog.String("path", layer.path),
				slog.String("error", err.Error()))
		}
	}

	if cfg.Root == "" {
		cfg.Root = l.defaultRoot()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureUserConfig writes the default user config file unless one already
// exists. An existing file is never touched.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.UserConfigPath()
	if path == "" {
		return "", errors.New("no home directory for user config")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", path))
	return path, nil
}

// UserConfigPath returns the user-level config path, or "" when no home
// directory can be resolved.
func (l *Loader) UserConfigPath() string {
	home := l.HomeDir
	if home == "" {
		resolved, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		home = resolved
	}
	return filepath.Join(home, filepath.FromSlash(UserConfigDir), UserConfigFile)
}

// FindProjectConfig walks from the working directory toward the filesystem
// root and returns the first archlens.yaml found, or "".
func (l *Loader) FindProjectConfig() string {
	dir := l.workDir()
	for dir != "" {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// defaultRoot picks a project root when no layer set one: the enclosing git
// repository if there is one, the working directory otherwise.
func (l *Loader) defaultRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = l.workDir()
	if output, err := cmd.Output(); err == nil {
		root := strings.TrimSpace(string(output))
		l.logger.Debug("Detected git root", slog.String("path", root))
		return root
	}
	return l.workDir()
}

func (l *Loader) workDir() string {
	if l.WorkDir != "" {
		return l.WorkDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}
