package guardrail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherRerunsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "ci.yml")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0644))

	w, err := NewWatcher([]CheckSpec{{Label: "ci", Path: target}}, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { changes <- struct{}{} })
	}()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("v2"), 0644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherRequiresExistingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone", "ci.yml")
	_, err := NewWatcher([]CheckSpec{{Label: "ci", Path: missing}}, 0, nil)
	require.Error(t, err)
}
