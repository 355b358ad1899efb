package guardrail

import (
	"path/filepath"

	"github.com/c360studio/strictgate/config"
)

// Paths of the built-in sqlx guardrail targets, relative to the repository root.
const (
	CIWorkflowPath = ".github/workflows/ci.yml"
	SQLxDocPath    = "docs/guardrails/sqlx.md"
	SOTDocPath     = "docs/pr/PR-TBD-v0.22.0-epic-a-robust-sqlx.md"
)

// DefaultChecks returns the sqlx-cli upgrade guardrails rooted at root.
func DefaultChecks(root string) []CheckSpec {
	return []CheckSpec{
		{
			Section: "1. CI Configuration",
			Label:   "CI Workflow",
			Path:    filepath.Join(root, CIWorkflowPath),
			Required: []string{
				"future-incompat-report",
				".local/ci/future_incompat.txt",
				"sqlx-cli --version 0.8.6",
				"tee -a .local/ci/sqlx_cli_install.log",
				"SQLX_OFFLINE=true",
				"actions/cache@v4",
			},
		},
		{
			Section: "2. Documentation",
			Label:   "SQLx Guardrail Docs",
			Path:    filepath.Join(root, SQLxDocPath),
			Required: []string{
				"SQLX_OFFLINE=true",
				"sqlx_cli_install.log",
				".local/ci/",
			},
		},
		{
			Section: "3. SOT (Source of Truth)",
			Label:   "SOT",
			Path:    filepath.Join(root, SOTDocPath),
			Required: []string{
				"actions/cache@v4",
				"sqlx_cli_install.log",
				"0.8.6",
			},
		},
	}
}

// ChecksFromConfig returns the configured checks, or the built-in ones when
// the configuration does not declare any.
func ChecksFromConfig(cfg *config.Config) []CheckSpec {
	if len(cfg.Guardrails.Checks) == 0 {
		return DefaultChecks(cfg.Repo.Path)
	}

	specs := make([]CheckSpec, 0, len(cfg.Guardrails.Checks))
	for _, c := range cfg.Guardrails.Checks {
		label := c.Label
		if label == "" {
			label = filepath.Base(c.Path)
		}
		specs = append(specs, CheckSpec{
			Section:  c.Section,
			Label:    label,
			Path:     cfg.ResolvePath(c.Path),
			Required: append([]string(nil), c.Required...),
		})
	}
	return specs
}
