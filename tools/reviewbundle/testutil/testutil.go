// Package testutil provides fixtures for code that drives the review bundle tool.
package testutil

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/c360studio/strictgate/tools/reviewbundle"
)

// WriteBundle writes a tar.gz at path containing one small regular file per name.
func WriteBundle(t testing.TB, path string, names ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create bundle dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, name := range names {
		body := []byte("fixture " + name + "\n")
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if _, err := tw.Write(body); err != nil {
			t.Fatalf("write body %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

// MockRunner is a thread-safe reviewbundle.Runner for tests.
//
// Results are keyed by subcommand ("create", "verify"); the subcommand is the
// first argv element after the configured command prefix. OnCreate, when set,
// runs before a create result is returned so tests can drop bundle files the
// way the real tool would.
type MockRunner struct {
	mu sync.Mutex

	// PrefixLen is the number of argv elements making up the tool command.
	PrefixLen int
	Results   map[string]reviewbundle.Result
	OnCreate  func(argv []string)

	calls [][]string
}

// Run implements reviewbundle.Runner.
func (m *MockRunner) Run(_ context.Context, _ string, argv []string) reviewbundle.Result {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), argv...))
	onCreate := m.OnCreate
	m.mu.Unlock()

	sub := ""
	if len(argv) > m.PrefixLen {
		sub = argv[m.PrefixLen]
	}
	if sub == "create" && onCreate != nil {
		onCreate(argv)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.Results[sub]
	res.Argv = argv
	return res
}

// Calls returns the argv of every invocation so far.
func (m *MockRunner) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}
