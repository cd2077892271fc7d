package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter parses ".src" files whose content is one import target per
// line; a line "!" triggers a parse error.
type fakeAdapter struct{}

func (fakeAdapter) Language() string      { return "src" }
func (fakeAdapter) Extensions() []string  { return []string{".src"} }
func (fakeAdapter) NormalizeImport(fromDir, raw string) string { return raw }

func (fakeAdapter) ParseFile(path string, content []byte) (*File, error) {
	file := &File{Path: path, Language: "src"}
	for i, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "!" {
			return nil, errors.New("unparsable")
		}
		file.Imports = append(file.Imports, Import{Path: line, Line: i + 1})
	}
	return file, nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(fakeAdapter{})
	return reg
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestScanner_Scan_SortedAndFiltered(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b/two.src":          "a/one",
		"a/one.src":          "",
		"vendor/dep/dep.src": "",
		"notes.txt":          "ignored, no adapter",
	})

	s := NewScanner(Config{Registry: newTestRegistry()})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"a/one.src", "b/two.src"}, paths, "sorted, vendor excluded, non-source ignored")
	assert.Empty(t, result.Warnings)
}

func TestScanner_Scan_ExtractionWarning(t *testing.T) {
	root := writeTree(t, map[string]string{
		"good.src": "dep",
		"bad.src":  "!",
	})

	s := NewScanner(Config{Registry: newTestRegistry()})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err, "extraction failures must not abort the scan")

	require.Len(t, result.Files, 1)
	assert.Equal(t, "good.src", result.Files[0].Path)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "bad.src", result.Warnings[0].Path)
	assert.Contains(t, result.Warnings[0].Reason, "extract imports")
}

func TestScanner_Scan_IncludeExcludeGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.src":       "",
		"src/gen/a.src":   "",
		"scripts/run.src": "",
	})

	s := NewScanner(Config{
		Registry: newTestRegistry(),
		Include:  []string{"src/**"},
		Exclude:  []string{"src/gen/*"},
	})
	result, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, "src/a.src", result.Files[0].Path)
}

func TestScanner_Scan_UnreadableRoot(t *testing.T) {
	s := NewScanner(Config{Registry: newTestRegistry()})

	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read project root")
}

func TestScanner_Scan_Cancelled(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 50; i++ {
		files[fmt.Sprintf("pkg/f%02d.src", i)] = "dep"
	}
	root := writeTree(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(Config{Registry: newTestRegistry()})
	_, err := s.Scan(ctx, root)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Scan_Idempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/one.src": "b/two\nc/three",
		"b/two.src": "c/three",
	})

	s := NewScanner(Config{Registry: newTestRegistry(), Workers: 4})
	first, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestDefaultConfig_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.Workers, 2)
	assert.LessOrEqual(t, cfg.Workers, 16)
	assert.Contains(t, cfg.Exclude, "vendor")
}
