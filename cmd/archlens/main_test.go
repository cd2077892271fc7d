package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"internal/user/domain/user.go": `package domain

import "example.com/proj/internal/user/infrastructure/db"

type User struct{ ID string }

type UserRepository struct{}

func Load() db.Conn { return db.Conn{} }
`,
		"internal/user/infrastructure/db/db.go": `package db

type Conn struct{}
`,
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func writeConfig(t *testing.T, root string) string {
	t.Helper()
	content := `
version: 1
module_prefix: "example.com/proj"
rules:
  - id: no-domain-to-infra
    type: dependency
    namespace: "internal/*/domain"
    policy: should_not
    target: "internal/*/infrastructure"
`
	path := filepath.Join(root, "archlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_ReportsViolations(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	out, err := execute(t, "run", "--config", cfg, "--root", root, "--format", "json")
	require.ErrorIs(t, err, errViolations)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "failed", rep["status"])
}

func TestRunCommand_Passes(t *testing.T) {
	root := writeProject(t)
	cfg := filepath.Join(root, "clean.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("version: 1\nmodule_prefix: example.com/proj\n"), 0o644))

	out, err := execute(t, "run", "--config", cfg, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "passed")
}

func TestLayerCommand(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	out, err := execute(t, "layer", "internal/*/domain", "internal/*/infrastructure",
		"--config", cfg, "--root", root)
	require.ErrorIs(t, err, errViolations)
	assert.Contains(t, out, "internal/user/domain/user.go:3")
}

func TestNamingCommand_KindMismatch(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	out, err := execute(t, "naming", "internal/*/domain", "Repository",
		"--kind", "interface", "--config", cfg, "--root", root)
	require.ErrorIs(t, err, errViolations)
	assert.Contains(t, out, "UserRepository is a struct, expected interface")
}

func TestNamingCommand_BadKind(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	_, err := execute(t, "naming", "internal/**", "Repository",
		"--kind", "klass", "--config", cfg, "--root", root)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errViolations))
}

func TestInitCommand(t *testing.T) {
	root := t.TempDir()
	seed := filepath.Join(root, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("version: 1\n"), 0o644))

	out, err := execute(t, "init", "--config", seed, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "archlens.yaml")

	_, err = os.Stat(filepath.Join(root, "archlens.yaml"))
	require.NoError(t, err)

	// A second run refuses to overwrite.
	_, err = execute(t, "init", "--config", seed, "--root", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestExportCommand(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	out, err := execute(t, "export", "--config", cfg, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph modules {")
	assert.Contains(t, out, " -> ")
}

func TestRootCommand_BadFormat(t *testing.T) {
	root := writeProject(t)
	cfg := writeConfig(t, root)

	_, err := execute(t, "run", "--config", cfg, "--root", root, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
