// Package guardrail verifies that configuration and documentation files
// contain the literal strings a change has promised to keep in place.
package guardrail

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrNotUTF8 is reported when a target file cannot be decoded as UTF-8 text.
var ErrNotUTF8 = errors.New("file is not valid UTF-8")

// CheckSpec names a file and the substrings it must contain.
type CheckSpec struct {
	Section  string   // Report heading, e.g. "1. CI Configuration"
	Label    string   // Human label, e.g. "CI Workflow"
	Path     string   // File to inspect
	Required []string // Literal substrings; order is the reporting order
}

// CheckResult is the outcome of checking one CheckSpec.
type CheckResult struct {
	Spec    CheckSpec
	Found   bool     // File exists
	Missing []string // Required substrings absent from the file
	Err     error    // Read or decode failure
}

// Passed reports whether the file exists, was readable and contains every
// required substring.
func (r CheckResult) Passed() bool {
	return r.Found && r.Err == nil && len(r.Missing) == 0
}

// Report aggregates the results of one validator run.
type Report struct {
	Results []CheckResult
	Errors  int
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.Errors == 0
}

// Validator checks files against their guardrail strings.
type Validator struct {
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// NewValidator creates a validator reading from the local filesystem.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger, readFile: os.ReadFile}
}

// Check inspects a single file. A missing file fails without looking at the
// required strings; read and decode errors also fail the check.
func (v *Validator) Check(spec CheckSpec) CheckResult {
	result := CheckResult{Spec: spec}

	data, err := v.readFile(spec.Path)
	if errors.Is(err, fs.ErrNotExist) {
		v.logger.Debug("Guardrail target missing", "label", spec.Label, "path", spec.Path)
		return result
	}
	result.Found = true
	if err != nil {
		result.Err = fmt.Errorf("read %s: %w", spec.Path, err)
		v.logger.Warn("Guardrail target unreadable", "path", spec.Path, "error", err)
		return result
	}
	if !utf8.Valid(data) {
		result.Err = fmt.Errorf("read %s: %w", spec.Path, ErrNotUTF8)
		v.logger.Warn("Guardrail target not UTF-8", "path", spec.Path)
		return result
	}

	result.Missing = MissingStrings(string(data), spec.Required)
	v.logger.Debug("Guardrail checked",
		"label", spec.Label,
		"path", spec.Path,
		"required", len(spec.Required),
		"missing", len(result.Missing))
	return result
}

// Run checks every spec in order. A failing file never stops the run.
func (v *Validator) Run(specs []CheckSpec) *Report {
	report := &Report{Results: make([]CheckResult, 0, len(specs))}
	for _, spec := range specs {
		result := v.Check(spec)
		if !result.Passed() {
			report.Errors++
		}
		report.Results = append(report.Results, result)
	}
	return report
}

// MissingStrings returns the required substrings not present in content, in
// the order they were given.
func MissingStrings(content string, required []string) []string {
	var missing []string
	for _, s := range required {
		if !strings.Contains(content, s) {
			missing = append(missing, s)
		}
	}
	return missing
}
