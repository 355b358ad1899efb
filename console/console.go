// Package console writes the line-oriented verification log that humans and
// CI tooling grep for. Every line starts with a fixed marker such as "OK:" or
// "ERROR:"; structured diagnostics go through slog instead.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Markers prefixed to console lines.
const (
	MarkerOK    = "OK:"
	MarkerError = "ERROR:"
	MarkerHint  = "HINT:"
	MarkerSkip  = "SKIP:"
	MarkerCmd   = "CMD:"
	MarkerRC    = "RC:"
)

// Console writes marker lines to an underlying writer.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a Console writing to w. A nil writer means stdout.
func New(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Println writes a raw line.
func (c *Console) Println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Printf writes a formatted raw line. A trailing newline is added if missing.
func (c *Console) Printf(format string, args ...any) {
	c.Println(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Blank writes an empty line.
func (c *Console) Blank() {
	c.Println("")
}

// OK writes an "OK:" line.
func (c *Console) OK(format string, args ...any) {
	c.marker(MarkerOK, format, args...)
}

// Error writes an "ERROR:" line.
func (c *Console) Error(format string, args ...any) {
	c.marker(MarkerError, format, args...)
}

// Hint writes a "HINT:" remediation line.
func (c *Console) Hint(format string, args ...any) {
	c.marker(MarkerHint, format, args...)
}

// Skip writes a "SKIP:" line.
func (c *Console) Skip(format string, args ...any) {
	c.marker(MarkerSkip, format, args...)
}

// Command echoes an external command line before it runs.
func (c *Console) Command(argv []string) {
	c.marker(MarkerCmd, "%s", strings.Join(argv, " "))
}

// Output echoes captured command output, skipping whitespace-only text.
func (c *Console) Output(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.Println(strings.TrimRight(text, " \t\r\n"))
}

// ReturnCode writes the "RC:" line for a finished command.
func (c *Console) ReturnCode(code int) {
	c.marker(MarkerRC, "%d", code)
}

func (c *Console) marker(marker, format string, args ...any) {
	c.Println(marker + " " + fmt.Sprintf(format, args...))
}
