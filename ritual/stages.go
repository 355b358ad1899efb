package ritual

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/strictgate/tools/reviewbundle"
)

// HeadPrefixLen is how many characters of HEAD appear in bundle file names.
const HeadPrefixLen = 12

// evidenceRoot is the archive subtree listed when the expected evidence is missing.
const evidenceRoot = "review/evidence"

// resolveHead is stage A.
func (v *Verifier) resolveHead(ctx context.Context, s State) Outcome {
	head, err := v.git.HeadSHA(ctx)
	if err != nil {
		v.console.Error("git rev-parse HEAD failed: %v", err)
		return Abort(s, "A", fmt.Sprintf("git rev-parse HEAD failed: %v", err))
	}
	s.Head = head
	v.console.OK("HEAD=%s", head)
	return Continue(s)
}

// cleanTree is stage B. Any porcelain output at all fails the ritual.
func (v *Verifier) cleanTree(ctx context.Context, s State) Outcome {
	status, err := v.git.Status(ctx)
	if err != nil {
		v.console.Error("git status failed: %v", err)
		return Abort(s, "B", fmt.Sprintf("git status failed: %v", err))
	}
	if !status.Clean() {
		v.console.Error("git repository is dirty (strict prohibited).")
		v.console.Hint("untracked/modified files are present. Stash or remove them.")
		v.logger.Debug("Dirty working tree",
			"staged", status.Staged,
			"modified", status.Modified,
			"untracked", status.Untracked)
		return Abort(s, "B", "git repository is dirty")
	}
	v.console.OK("git clean (%d bytes)", len(status.Raw))
	return Continue(s)
}

// locateReport is stage C: the newest report, within the scan window, that
// mentions HEAD.
func (v *Verifier) locateReport(_ context.Context, s State) Outcome {
	dir := v.resolve(v.opts.ReportDir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		v.console.Error("%s missing", v.opts.ReportDir)
		v.console.Hint("Run 'nix run .#prverify' first")
		return Abort(s, "C", v.opts.ReportDir+" missing")
	}

	files, err := Snapshot(os.DirFS(dir), v.opts.ReportPattern)
	if err != nil {
		v.console.Error("cannot scan %s: %v", v.opts.ReportDir, err)
		return Abort(s, "C", fmt.Sprintf("cannot scan %s: %v", v.opts.ReportDir, err))
	}
	window := Limit(NewestFirst(files), v.opts.ReportScanLimit)
	if len(files) > len(window) {
		v.logger.Debug("Report scan window truncated", "found", len(files), "scanned", len(window))
	}

	head := []byte(s.Head)
	for _, f := range window {
		display := filepath.Join(v.opts.ReportDir, f.Path)
		data, err := v.readFile(filepath.Join(dir, f.Path))
		if err != nil {
			v.console.Skip("read failed: %s: %v", display, err)
			continue
		}
		if bytes.Contains(data, head) {
			s.ReportPath = display
			v.console.OK("REPORT=%s", display)
			return Continue(s)
		}
	}

	v.console.Error("no prverify report contains HEAD")
	v.console.Hint("Re-run 'nix run .#prverify' with current HEAD")
	return Abort(s, "C", "no prverify report contains HEAD")
}

// createBundle is stage D. The create command is best effort: its exit
// status is only logged, and the stage outcome depends solely on whether a
// matching bundle exists afterwards.
func (v *Verifier) createBundle(ctx context.Context, s State) Outcome {
	dir := v.resolve(v.opts.BundleDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Warn("Cannot create bundle directory", "dir", dir, "error", err)
	}

	res := v.tool.Create(ctx, reviewbundle.ModeStrict, v.opts.BundleDir)
	v.echo(res)
	v.logger.Debug("Bundle create finished", "exit_code", res.ExitCode)

	files, err := Snapshot(os.DirFS(dir), "*.tar.gz")
	if err != nil {
		v.logger.Warn("Cannot scan bundle directory", "dir", dir, "error", err)
	}

	bundle, ok := SelectBundle(files, reviewbundle.ModeStrict, s.Head)
	if !ok {
		v.console.Error("%s bundle not found", reviewbundle.ModeStrict)
		return Abort(s, "D", "strict bundle not found")
	}

	s.BundlePath = filepath.Join(v.opts.BundleDir, bundle.Path)
	v.console.OK("BUNDLE_STRICT=%s", s.BundlePath)
	return Continue(s)
}

// SelectBundle picks the newest bundle of mode whose name ends in the HEAD
// prefix, falling back to the newest bundle of that mode for any commit.
func SelectBundle(files []FileInfo, mode, head string) (FileInfo, bool) {
	headPrefix := head
	if len(headPrefix) > HeadPrefixLen {
		headPrefix = headPrefix[:HeadPrefixLen]
	}

	if f, ok := SelectLatest(files, MatchName(fmt.Sprintf("*_*%s_*_%s.tar.gz", mode, headPrefix))); ok {
		return f, true
	}
	return SelectLatest(files, MatchName(fmt.Sprintf("*_%s_*.tar.gz", mode)))
}

// verifyBundle is stage E. Only the PASS marker counts; the exit code does not.
func (v *Verifier) verifyBundle(ctx context.Context, s State) Outcome {
	res := v.tool.Verify(ctx, s.BundlePath)
	v.echo(res)
	if !res.Passed() {
		v.console.Error("verify did not report PASS")
		return Abort(s, "E", "verify did not report PASS")
	}
	v.console.OK("verify PASS")
	return Continue(s)
}

// checkEvidence is stage F: the matched report must be inside the bundle.
func (v *Verifier) checkEvidence(_ context.Context, s State) Outcome {
	want := EvidencePath(v.opts.EvidencePrefix, s.ReportPath)

	names, err := v.listMembers(v.resolve(s.BundlePath))
	if err != nil {
		v.console.Error("tar check failed: %v", err)
		return Abort(s, "F", fmt.Sprintf("tar check failed: %v", err))
	}

	for _, n := range names {
		if n == want {
			v.console.OK("tar contains evidence: %s", want)
			return Continue(s)
		}
	}

	v.console.Error("tar missing evidence: %s", want)
	v.console.Printf("     Found evidence: %q", reviewbundle.MembersContaining(names, evidenceRoot))
	return Abort(s, "F", "tar missing evidence: "+want)
}

// EvidencePath is the archive member expected for a report file.
func EvidencePath(prefix, reportPath string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + filepath.Base(reportPath)
}

// echo mirrors a finished tool invocation on the console.
func (v *Verifier) echo(res reviewbundle.Result) {
	v.console.Command(res.Argv)
	if res.Err != nil {
		v.console.Error("subprocess failed: %v", res.Err)
		return
	}
	v.console.Output(res.Stdout)
	v.console.Output(res.Stderr)
	v.console.ReturnCode(res.ExitCode)
}
