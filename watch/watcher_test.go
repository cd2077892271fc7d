package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcher_EmitsDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal"), 0o755))

	w, err := NewWatcher(Config{
		Root:          root,
		Extensions:    []string{".go"},
		DebounceDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	defer func() {
		cancel()
		_ = w.Stop()
	}()

	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "a.go"), []byte("package internal\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "b.go"), []byte("package internal\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored\n"), 0o644))

	batch := waitForBatch(t, w)
	assert.Contains(t, batch, "internal/a.go")
	assert.Contains(t, batch, "internal/b.go")
	assert.NotContains(t, batch, "notes.txt")
	assert.IsIncreasing(t, batch, "batches are sorted")
}

func TestWatcher_StopClosesChanges(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(Config{
		Root:          root,
		Extensions:    []string{".go"},
		DebounceDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	// Leave a change pending so a flush can race the shutdown.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, w.Stop())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-w.Changes():
			if !ok {
				return // closed by the event goroutine
			}
		case <-deadline:
			t.Fatal("changes channel never closed after Stop")
		}
	}
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(Config{
		Root:          root,
		Extensions:    []string{".go"},
		DebounceDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	defer func() {
		cancel()
		_ = w.Stop()
	}()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "new.go"), []byte("package pkg\n"), 0o644))

	batch := waitForBatch(t, w)
	assert.Contains(t, batch, "pkg/new.go")
}
