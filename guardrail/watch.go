package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a watcher is created with a zero debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-runs guardrail checks when any target file changes.
//
// Parent directories are watched rather than the files themselves so that
// editors replacing a file by rename, and files that do not exist yet, are
// still noticed.
type Watcher struct {
	targets  map[string]bool
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given specs and registers the watches
// before returning.
func NewWatcher(specs []CheckSpec, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]bool, len(specs))
	dirs := make(map[string]bool)
	for _, spec := range specs {
		abs, err := filepath.Abs(spec.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", spec.Path, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	watched := 0
	for _, dir := range sortedKeys(dirs) {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("Skipping watch on missing directory", "dir", dir)
			continue
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		watched++
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, fmt.Errorf("no guardrail directory exists to watch")
	}

	return &Watcher{
		targets:  targets,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Run blocks until ctx is cancelled, calling onChange once per debounced
// burst of changes to a target file. The underlying watcher is closed on return.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.fsw.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Guardrail target changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return w.targets[filepath.Clean(event.Name)]
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
