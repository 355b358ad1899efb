package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	t.Logf("stderr:\n%s", stderr.String())
	return stdout.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStderr string
	}{
		{name: "success", err: nil, wantCode: 0},
		{name: "failed verdict is silent", err: errChecksFailed, wantCode: 1},
		{name: "wrapped failed verdict is silent", err: errors.Join(errChecksFailed), wantCode: 1},
		{name: "other errors are printed", err: errors.New("load config: boom"), wantCode: 1, wantStderr: "Error: load config: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.wantCode, exitCode(tt.err, &stderr))
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "strictgate version "+Version+" (build: "+BuildTime+")\n", out)
}

func TestConfigInit(t *testing.T) {
	home := isolateHome(t)

	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)

	path := filepath.Join(home, ".config", "strictgate", "config.yaml")
	assert.Equal(t, "User config: "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report_scan_limit: 120")

	// A second init keeps the existing file.
	require.NoError(t, os.WriteFile(path, []byte("ritual:\n  report_scan_limit: 5\n"), 0644))
	_, err = runCLI(t, "config", "init")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report_scan_limit: 5")
}

func TestUnknownFlagIsAnError(t *testing.T) {
	isolateHome(t)
	_, err := runCLI(t, "guardrails", "--no-such-flag")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errChecksFailed))
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		warnOff bool
	}{
		{level: "debug", debug: true},
		{level: "INFO"},
		{level: "warn"},
		{level: "error", warnOff: true},
		{level: "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level, &bytes.Buffer{})
			ctx := context.Background()
			assert.Equal(t, tt.debug, logger.Handler().Enabled(ctx, -4))
			assert.Equal(t, !tt.warnOff, logger.Handler().Enabled(ctx, 4))
		})
	}
}
