// Package main provides the strictgate binary entry point.
// Strictgate runs the repository guardrail checks and the strict review
// ritual that ties a commit to its verification report and review bundle.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/strictgate/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "strictgate"
)

// errChecksFailed is returned when a verdict is negative. The console output
// already explains why, so main does not print it again.
var errChecksFailed = errors.New("checks failed")

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if !errors.Is(err, errChecksFailed) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	repoPath    string
	logLevel    string
	metricsFile string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Repository guardrails and strict review ritual",
		Long: `Strictgate guards a repository's release hygiene.

It provides:
- guardrails: required strings in CI workflows and documentation
- ritual: HEAD, clean tree, prverify report, strict review bundle and evidence

Results are printed as OK:/ERROR: lines; the exit code is 0 only when every
check passes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&opts.repoPath, "repo", "", "Repository path to operate on (default: git root)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	cmd.AddCommand(
		guardrailsCmd(opts),
		ritualCmd(opts),
		configCmd(opts),
		versionCmd(),
	)

	return cmd
}

func guardrailsCmd(opts *globalOptions) *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "guardrails",
		Short: "Check that guardrail files contain their required strings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if watch {
				return app.WatchGuardrails(cmd.Context(), debounce)
			}
			return app.RunGuardrails()
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever a guardrail file changes")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before re-running in watch mode (default from config)")
	return cmd
}

func ritualCmd(opts *globalOptions) *cobra.Command {
	var recordPath string

	cmd := &cobra.Command{
		Use:   "ritual",
		Short: "Run the strict review ritual for HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return app.RunRitual(cmd.Context(), recordPath)
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Write the verdict as JSON to this path")
	return cmd
}

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage strictgate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default user config if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.logLevel, cmd.ErrOrStderr())
			path, err := config.NewLoader(logger).EnsureUserConfig()
			if err != nil {
				return fmt.Errorf("init user config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User config: %s\n", path)
			return nil
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// newLogger builds the stderr text logger for the given level name.
func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
