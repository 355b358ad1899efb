package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/strictgate/config"
	"github.com/c360studio/strictgate/console"
	"github.com/c360studio/strictgate/guardrail"
	"github.com/c360studio/strictgate/metrics"
	"github.com/c360studio/strictgate/ritual"
	"github.com/c360studio/strictgate/tools/git"
	"github.com/c360studio/strictgate/tools/reviewbundle"
)

// App wires configuration, console output and metrics into the checks.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	console *console.Console

	// Metrics
	metrics     *metrics.Recorder
	metricsFile string

	// bundleRunner executes the review bundle tool; nil runs it with os/exec.
	bundleRunner reviewbundle.Runner
}

// NewApp loads configuration and prepares an application writing console
// lines to stdout and logs to stderr.
func NewApp(opts *globalOptions, stdout, stderr io.Writer) (*App, error) {
	logger := newLogger(opts.logLevel, stderr)
	slog.SetDefault(logger)

	loader := config.NewLoader(logger)

	var repoPath string
	if opts.repoPath != "" {
		abs, err := filepath.Abs(opts.repoPath)
		if err != nil {
			return nil, fmt.Errorf("resolve repo path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat repo path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", abs)
		}
		repoPath = abs
		loader.WithWorkDir(abs)
	}

	cfg, err := loader.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if repoPath != "" {
		cfg.Repo.Path = repoPath
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" && cfg.Metrics.Textfile != "" {
		metricsFile = cfg.ResolvePath(cfg.Metrics.Textfile)
	}

	logger.Debug("Configuration loaded", "repo", cfg.Repo.Path, "metrics_file", metricsFile)

	return &App{
		cfg:         cfg,
		logger:      logger,
		console:     console.New(stdout),
		metrics:     metrics.NewRecorder(),
		metricsFile: metricsFile,
	}, nil
}

// RunGuardrails checks every configured guardrail once.
func (a *App) RunGuardrails() error {
	return a.checkGuardrails(guardrail.ChecksFromConfig(a.cfg))
}

// WatchGuardrails runs the guardrails, then again after every debounced
// change to a target file, until ctx is cancelled. The result of the last run
// is returned.
func (a *App) WatchGuardrails(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = a.cfg.Guardrails.Debounce
	}
	specs := guardrail.ChecksFromConfig(a.cfg)

	w, err := guardrail.NewWatcher(specs, debounce, a.logger)
	if err != nil {
		return fmt.Errorf("start guardrail watch: %w", err)
	}

	last := a.checkGuardrails(specs)
	a.logger.Info("Watching guardrail files", "files", len(specs), "debounce", debounce)

	if err := w.Run(ctx, func() { last = a.checkGuardrails(specs) }); err != nil {
		return err
	}
	a.logger.Info("Guardrail watch stopped")
	return last
}

func (a *App) checkGuardrails(specs []guardrail.CheckSpec) error {
	report := guardrail.NewValidator(a.logger).Run(specs)
	guardrail.WriteReport(a.console, report)

	for _, r := range report.Results {
		a.metrics.ObserveGuardrailCheck(r.Spec.Label, r.Spec.Path, r.Passed(), len(r.Missing))
	}
	a.metrics.ObserveGuardrailRun(report.Errors)
	a.flushMetrics()

	if !report.OK() {
		return errChecksFailed
	}
	return nil
}

// RunRitual runs the strict ritual for HEAD. When recordPath is set the
// verdict is also written there as JSON, whether or not it passed.
func (a *App) RunRitual(ctx context.Context, recordPath string) error {
	tool := reviewbundle.NewTool(a.cfg.Ritual.BundleCommand, a.cfg.Repo.Path, a.bundleRunner)
	verifier := ritual.NewVerifier(
		git.NewExecutor(a.cfg.Repo.Path),
		tool,
		ritual.OptionsFromConfig(a.cfg),
		a.console,
		a.logger,
	).WithObserver(func(r ritual.StageRecord) {
		a.metrics.ObserveStage(r.ID, stageMetric(r.Status))
	})

	verdict := verifier.Run(ctx)
	a.metrics.ObserveRitual(verdict.OK)
	a.flushMetrics()

	if recordPath != "" {
		if err := ritual.WriteRecord(recordPath, verdict); err != nil {
			return err
		}
		a.logger.Debug("Ritual record written", "path", recordPath)
	}

	if !verdict.OK {
		return errChecksFailed
	}
	return nil
}

// flushMetrics writes the metrics textfile if one is configured. Export
// failures are logged and never change a verdict.
func (a *App) flushMetrics() {
	if a.metricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
		a.logger.Warn("Failed to write metrics", "path", a.metricsFile, "error", err)
	}
}

func stageMetric(s ritual.StageStatus) int {
	switch s {
	case ritual.StatusPassed:
		return metrics.StagePassed
	case ritual.StatusSkipped:
		return metrics.StageSkipped
	default:
		return metrics.StageFailed
	}
}
