package guardrail

import (
	"github.com/c360studio/strictgate/console"
)

// Summary lines printed after a run.
const (
	PassedSummary = "All Guardrail Validations PASSED."
	failedSummary = "Validation FAILED with %d errors."
)

// WriteReport prints the per-file results followed by the overall verdict.
func WriteReport(c *console.Console, report *Report) {
	for _, result := range report.Results {
		writeResult(c, result)
	}

	c.Blank()
	if report.OK() {
		c.OK(PassedSummary)
		return
	}
	c.Error(failedSummary, report.Errors)
}

func writeResult(c *console.Console, result CheckResult) {
	spec := result.Spec
	if spec.Section != "" {
		c.Blank()
		c.Printf("--- %s ---", spec.Section)
	}
	c.Printf("Checking %s in %s...", spec.Label, spec.Path)

	switch {
	case !result.Found:
		c.Error("file not found: %s", spec.Path)
	case result.Err != nil:
		c.Error("cannot check %s: %v", spec.Path, result.Err)
	case len(result.Missing) > 0:
		c.Error("missing content in %s:", spec.Path)
		for _, m := range result.Missing {
			c.Printf("  - '%s'", m)
		}
	default:
		c.OK("%s", spec.Path)
	}
}
