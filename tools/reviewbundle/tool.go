// Package reviewbundle drives the external review bundle tool and inspects
// the archives it produces.
//
// The tool is treated as a command-line contract:
//
//	<command> create --mode <mode> --out-dir <dir>
//	<command> verify <bundle>
//
// A successful verify prints a line containing PassMarker.
package reviewbundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// PassMarker is printed by `verify` when a bundle checks out.
const PassMarker = "PASS:"

// ModeStrict is the bundle mode used by the strict ritual.
const ModeStrict = "strict"

// Result captures one finished invocation of the tool.
type Result struct {
	Argv     []string
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is set when the process could not be started or was killed.
	// A non-zero exit alone leaves Err nil.
	Err error
}

// Combined returns stdout and stderr joined by a newline.
func (r Result) Combined() string {
	return r.Stdout + "\n" + r.Stderr
}

// Passed reports whether the combined output carries the PASS marker. The
// exit code is ignored.
func (r Result) Passed() bool {
	return strings.Contains(r.Combined(), PassMarker)
}

// Runner executes an argv in a directory.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) Result
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes argv, capturing stdout and stderr separately.
func (ExecRunner) Run(ctx context.Context, dir string, argv []string) Result {
	res := Result{Argv: argv}
	if len(argv) == 0 {
		res.ExitCode = -1
		res.Err = errors.New("empty command")
		return res
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("run %s: %w", argv[0], err)
	}
	return res
}

// Tool invokes the review bundle command.
type Tool struct {
	command []string
	dir     string
	runner  Runner
}

// NewTool creates a tool invoking command (argv prefix) from dir. A nil runner
// uses ExecRunner.
func NewTool(command []string, dir string, runner Runner) *Tool {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tool{
		command: append([]string(nil), command...),
		dir:     dir,
		runner:  runner,
	}
}

// CreateArgv returns the argv of a create invocation.
func (t *Tool) CreateArgv(mode, outDir string) []string {
	return t.argv("create", "--mode", mode, "--out-dir", outDir)
}

// VerifyArgv returns the argv of a verify invocation.
func (t *Tool) VerifyArgv(bundlePath string) []string {
	return t.argv("verify", bundlePath)
}

// Create asks the tool to write a bundle of the given mode into outDir.
func (t *Tool) Create(ctx context.Context, mode, outDir string) Result {
	return t.runner.Run(ctx, t.dir, t.CreateArgv(mode, outDir))
}

// Verify asks the tool to verify the bundle at bundlePath.
func (t *Tool) Verify(ctx context.Context, bundlePath string) Result {
	return t.runner.Run(ctx, t.dir, t.VerifyArgv(bundlePath))
}

func (t *Tool) argv(args ...string) []string {
	argv := make([]string, 0, len(t.command)+len(args))
	argv = append(argv, t.command...)
	return append(argv, args...)
}
