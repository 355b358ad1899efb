// Package ritual implements the strict ritual: a fixed chain of gates proving
// that the current commit has a matching verification report and a strict
// review bundle carrying that report as evidence.
//
// Stages run in order A through F. Each stage receives the State produced by
// the previous one and returns an Outcome that either continues with an
// updated State or aborts. Once a stage aborts, every later stage is recorded
// as skipped and performs no side effects, so a failed verdict is final.
package ritual

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/strictgate/config"
	"github.com/c360studio/strictgate/console"
	"github.com/c360studio/strictgate/tools/git"
	"github.com/c360studio/strictgate/tools/reviewbundle"
)

// Final console lines.
const (
	CompleteMessage = "STRICT RITUAL COMPLETE"
	FailedMessage   = "STRICT RITUAL FAILED (see logs above)"
)

// State is threaded through the stages. Stages never mutate the State they
// receive; they return a modified copy.
type State struct {
	RunID      string `json:"run_id"`
	Head       string `json:"head,omitempty"`
	ReportPath string `json:"report,omitempty"`
	BundlePath string `json:"bundle,omitempty"`
}

// Failure describes why a stage aborted the ritual.
type Failure struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Outcome is what a stage returns: a State to continue with, or a Failure.
type Outcome struct {
	State   State
	Failure *Failure
}

// Continue returns an Outcome that hands s to the next stage.
func Continue(s State) Outcome {
	return Outcome{State: s}
}

// Abort returns an Outcome that stops the ritual at stage.
func Abort(s State, stage, reason string) Outcome {
	return Outcome{State: s, Failure: &Failure{Stage: stage, Reason: reason}}
}

// Stage is one gate of the ritual.
type Stage struct {
	ID   string
	Name string
	Run  func(ctx context.Context, s State) Outcome
}

// StageStatus is the recorded result of a stage.
type StageStatus string

// Stage statuses.
const (
	StatusPassed  StageStatus = "passed"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// StageRecord is the per-stage entry of a Verdict.
type StageRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"-"`
}

// Verdict is the result of a full ritual run.
type Verdict struct {
	RunID   string        `json:"run_id"`
	OK      bool          `json:"ok"`
	State   State         `json:"state"`
	Failure *Failure      `json:"failure,omitempty"`
	Stages  []StageRecord `json:"stages"`
}

// Git is the version control surface the ritual needs.
type Git interface {
	HeadSHA(ctx context.Context) (string, error)
	Status(ctx context.Context) (git.Status, error)
}

// BundleTool is the external review bundle command.
type BundleTool interface {
	Create(ctx context.Context, mode, outDir string) reviewbundle.Result
	Verify(ctx context.Context, bundlePath string) reviewbundle.Result
}

// Options locates reports and bundles. Directories may be relative to Root;
// console output and State keep them in the form given here.
type Options struct {
	Root            string
	ReportDir       string
	ReportPattern   string
	ReportScanLimit int
	BundleDir       string
	EvidencePrefix  string
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:            cfg.Repo.Path,
		ReportDir:       cfg.Ritual.ReportDir,
		ReportPattern:   cfg.Ritual.ReportPattern,
		ReportScanLimit: cfg.Ritual.ReportScanLimit,
		BundleDir:       cfg.Ritual.BundleDir,
		EvidencePrefix:  cfg.Ritual.EvidencePrefix,
	}
}

// Verifier runs the strict ritual.
type Verifier struct {
	git     Git
	tool    BundleTool
	opts    Options
	console *console.Console
	logger  *slog.Logger

	readFile    func(path string) ([]byte, error)
	listMembers func(path string) ([]string, error)
	newRunID    func() string
	observe     func(StageRecord)
}

// NewVerifier creates a Verifier. A nil logger uses slog.Default and a nil
// console writes to stdout.
func NewVerifier(g Git, tool BundleTool, opts Options, c *console.Console, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = console.New(nil)
	}
	if opts.ReportScanLimit <= 0 {
		opts.ReportScanLimit = config.DefaultReportScanLimit
	}
	return &Verifier{
		git:         g,
		tool:        tool,
		opts:        opts,
		console:     c,
		logger:      logger,
		readFile:    os.ReadFile,
		listMembers: reviewbundle.ListMembers,
		newRunID:    uuid.NewString,
	}
}

// WithObserver registers a callback invoked after every stage, skipped ones included.
func (v *Verifier) WithObserver(fn func(StageRecord)) *Verifier {
	v.observe = fn
	return v
}

// Stages returns the ritual gates in execution order.
func (v *Verifier) Stages() []Stage {
	return []Stage{
		{ID: "A", Name: "resolve-head", Run: v.resolveHead},
		{ID: "B", Name: "clean-tree", Run: v.cleanTree},
		{ID: "C", Name: "locate-report", Run: v.locateReport},
		{ID: "D", Name: "create-bundle", Run: v.createBundle},
		{ID: "E", Name: "verify-bundle", Run: v.verifyBundle},
		{ID: "F", Name: "check-evidence", Run: v.checkEvidence},
	}
}

// Run executes every stage and prints the final verdict line.
func (v *Verifier) Run(ctx context.Context) Verdict {
	return v.run(ctx, v.Stages())
}

func (v *Verifier) run(ctx context.Context, stages []Stage) Verdict {
	state := State{RunID: v.newRunID()}
	verdict := Verdict{RunID: state.RunID, Stages: make([]StageRecord, 0, len(stages))}
	logger := v.logger.With("run_id", state.RunID)
	logger.Debug("Strict ritual started", "stages", len(stages))

	var failure *Failure
	for _, stage := range stages {
		record := StageRecord{ID: stage.ID, Name: stage.Name}

		if failure != nil {
			record.Status = StatusSkipped
			logger.Debug("Stage skipped", "stage", stage.ID, "name", stage.Name)
			v.record(&verdict, record)
			continue
		}

		start := time.Now()
		outcome := stage.Run(ctx, state)
		record.Duration = time.Since(start)

		state = outcome.State
		if outcome.Failure != nil {
			failure = outcome.Failure
			record.Status = StatusFailed
			logger.Info("Stage failed", "stage", stage.ID, "name", stage.Name, "reason", failure.Reason)
		} else {
			record.Status = StatusPassed
			logger.Debug("Stage passed", "stage", stage.ID, "name", stage.Name, "duration", record.Duration)
		}
		v.record(&verdict, record)
	}

	verdict.State = state
	verdict.Failure = failure
	verdict.OK = failure == nil

	if verdict.OK {
		v.console.OK(CompleteMessage)
	} else {
		v.console.Error(FailedMessage)
	}
	return verdict
}

func (v *Verifier) record(verdict *Verdict, record StageRecord) {
	verdict.Stages = append(verdict.Stages, record)
	if v.observe != nil {
		v.observe(record)
	}
}

// resolve anchors a configured path at the repository root.
func (v *Verifier) resolve(path string) string {
	if filepath.IsAbs(path) || v.opts.Root == "" {
		return path
	}
	return filepath.Join(v.opts.Root, path)
}
