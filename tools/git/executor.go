// Package git runs the read-only git queries the strict ritual depends on.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotRepository is returned when the executor root is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Status is the parsed form of `git status --porcelain`.
type Status struct {
	// Raw is the unmodified porcelain output.
	Raw       string
	Staged    []string
	Modified  []string
	Untracked []string
}

// Clean reports whether the working tree has no changes at all.
func (s Status) Clean() bool {
	return strings.TrimSpace(s.Raw) == ""
}

// Executor runs git commands in a repository root
type Executor struct {
	repoRoot string
}

// NewExecutor creates a new git executor with the given repository root
func NewExecutor(repoRoot string) *Executor {
	return &Executor{repoRoot: repoRoot}
}

// RepoRoot returns the directory git commands run in.
func (e *Executor) RepoRoot() string {
	return e.repoRoot
}

// HeadSHA resolves the current commit with `git rev-parse HEAD`.
func (e *Executor) HeadSHA(ctx context.Context) (string, error) {
	out, err := e.runGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	sha := strings.TrimSpace(out)
	if sha == "" {
		return "", fmt.Errorf("git rev-parse HEAD: empty output")
	}
	return sha, nil
}

// Status runs `git status --porcelain` and parses the result.
func (e *Executor) Status(ctx context.Context) (Status, error) {
	if !e.isGitRepo(ctx) {
		return Status{}, ErrNotRepository
	}

	out, err := e.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return Status{}, err
	}
	return ParseStatus(out), nil
}

// Toplevel returns the root of the work tree containing the executor root.
func (e *Executor) Toplevel(ctx context.Context) (string, error) {
	out, err := e.runGit(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ParseStatus splits porcelain v1 output into staged, modified and untracked paths.
func ParseStatus(output string) Status {
	status := Status{Raw: output}
	if strings.TrimSpace(output) == "" {
		return status
	}

	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		file := strings.TrimSpace(line[3:])

		switch {
		case code[0] == '?' && code[1] == '?':
			status.Untracked = append(status.Untracked, file)
		case code[0] != ' ':
			status.Staged = append(status.Staged, file)
		case code[1] != ' ':
			status.Modified = append(status.Modified, file)
		}
	}
	return status
}

// runGit runs git and returns stdout. Stderr is folded into the error on failure.
func (e *Executor) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return stdout.String(), fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return stdout.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, detail)
	}
	return stdout.String(), nil
}

// isGitRepo checks if the repo root is a git repository
func (e *Executor) isGitRepo(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = e.repoRoot
	return cmd.Run() == nil
}
