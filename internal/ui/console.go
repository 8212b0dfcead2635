// Package ui renders pipeline progress and run reports on a terminal.
// Output is colorized with fatih/color; color is dropped automatically when
// the writer is not a terminal or NO_COLOR is set.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/hpn/hpn-blog-pipeline/internal/adapter"
	"github.com/hpn/hpn-blog-pipeline/internal/domain"
	"github.com/hpn/hpn-blog-pipeline/internal/extract"
	"github.com/hpn/hpn-blog-pipeline/internal/output"
	"github.com/hpn/hpn-blog-pipeline/internal/pipeline"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	neonBlue = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// Latency thresholds for stage timings.
const (
	fastStage = 10 * time.Second
	slowStage = 60 * time.Second
)

// Console prints progress and reports to a writer. It implements
// pipeline.Observer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

var _ pipeline.Observer = (*Console)(nil)

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// ══════════════════════════════════════════════════════════════════════════════
// STAGE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// StageStarted prints a progress line such as "[2/5] write ...".
func (c *Console) StageStarted(name domain.StageName, index, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	infoBadge.Fprintf(c.out, "[%d/%d]", index, total)
	fmt.Fprint(c.out, " ")
	accentText.Fprint(c.out, strings.ToUpper(string(name)))
	mutedText.Fprintln(c.out, " running...")
}

// StageFinished prints the stage timing and token counts.
func (c *Console) StageFinished(rec domain.StageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	successText.Fprint(c.out, "  ✓ ")
	fmt.Fprintf(c.out, "%-8s ", rec.Name)
	c.printLatency(rec.Elapsed)
	if rec.Model != "" {
		mutedText.Fprintf(c.out, "  model:%s", rec.Model)
	}
	if rec.TotalTokens != nil {
		mutedText.Fprintf(c.out, "  tokens:%d", *rec.TotalTokens)
	}
	if fr := adapter.FinishReason(rec.FinishReason); fr == adapter.FinishLength || fr == adapter.FinishContentFilter {
		warningText.Fprintf(c.out, "  (%s)", rec.FinishReason)
	}
	fmt.Fprintln(c.out)
}

// ══════════════════════════════════════════════════════════════════════════════
// RUN REPORT
// ══════════════════════════════════════════════════════════════════════════════

// PrintReport prints the per-stage summary of a finished run and where the
// post was written.
func (c *Console) PrintReport(report *pipeline.Report, written output.Written) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	mutedText.Fprintln(c.out, "  ┌──────────────────────────────────────────┐")
	for _, rec := range report.Stages {
		mutedText.Fprint(c.out, "  │ ")
		fmt.Fprintf(c.out, "%-10s", rec.Name)
		c.printLatency(rec.Elapsed)
		fmt.Fprintln(c.out)
	}
	mutedText.Fprint(c.out, "  │ ")
	fmt.Fprintf(c.out, "%-10s", "total")
	neonBlue.Fprintln(c.out, formatElapsed(report.Total))
	mutedText.Fprintln(c.out, "  └──────────────────────────────────────────┘")

	u := report.Usage
	infoBadge.Fprint(c.out, "[USAGE]")
	fmt.Fprintf(c.out, " prompt:%d completion:%d total:%d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	if !u.Complete() {
		warningText.Fprintf(c.out, "  (not reported by %s, ~%d estimated)", joinStages(u.Unreported), u.EstimatedTokens)
	}
	fmt.Fprintln(c.out)

	infoBadge.Fprint(c.out, "[POST]")
	fmt.Fprint(c.out, " ")
	accentText.Fprintln(c.out, report.Result.Title)
	if len(report.Result.Tags) > 0 {
		mutedText.Fprintf(c.out, "       tags: %s\n", strings.Join(report.Result.Tags, ", "))
	}
	if report.Extraction == extract.Fallback {
		warningBadge.Fprint(c.out, "[SEO]")
		warningText.Fprintln(c.out, " reply was not JSON; metadata fell back to defaults")
	}

	successBadge.Fprint(c.out, " OK ")
	fmt.Fprint(c.out, " ")
	successText.Fprintln(c.out, written.Markdown)
	if written.Sidecar != "" {
		mutedText.Fprintf(c.out, "     seo: %s\n", written.Sidecar)
	}
	if written.HTML != "" {
		mutedText.Fprintf(c.out, "     html: %s\n", written.HTML)
	}
}

// PrintFailure reports a failed or cancelled run. Elapsed is cumulative from
// the start of the run.
func (c *Console) PrintFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	se, ok := pipeline.AsStageError(err)
	switch {
	case ok && se.Cancelled():
		warningBadge.Fprint(c.out, "[CANCELLED]")
		warningText.Fprintf(c.out, " cancelled at %s after %s\n", se.Stage, formatElapsed(se.Elapsed))
	case ok:
		errorBadge.Fprint(c.out, " FAILED ")
		fmt.Fprint(c.out, " ")
		errorText.Fprintf(c.out, "stage %s failed after %s\n", se.Stage, formatElapsed(se.Elapsed))
		mutedText.Fprintf(c.out, "  %v\n", errors.Unwrap(se))
	default:
		errorBadge.Fprint(c.out, " ERROR ")
		fmt.Fprint(c.out, " ")
		errorText.Fprintln(c.out, err.Error())
	}
}

// printLatency prints a duration with a color gradient.
// Green: < 10s, Yellow: < 60s, Red: >= 60s
func (c *Console) printLatency(d time.Duration) {
	s := fmt.Sprintf("%8s", formatElapsed(d))
	switch {
	case d < fastStage:
		successText.Fprint(c.out, s)
	case d < slowStage:
		warningText.Fprint(c.out, s)
	default:
		errorText.Fprint(c.out, s)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintStartupInfo prints the listen address and the selected provider.
func (c *Console) PrintStartupInfo(host string, port int, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	infoBadge.Fprint(c.out, "[SERVER]")
	fmt.Fprint(c.out, " Listening on ")
	neonBlue.Fprintf(c.out, "http://%s:%d\n", host, port)

	infoBadge.Fprint(c.out, "[SERVER]")
	fmt.Fprint(c.out, " Provider: ")
	accentText.Fprintln(c.out, provider)

	fmt.Fprintln(c.out)
	mutedText.Fprintln(c.out, "  ┌─────────────────────────────────────────────────┐")
	mutedText.Fprint(c.out, "  │ ")
	methodPOST.Fprint(c.out, " POST ")
	fmt.Fprint(c.out, " /v1/blogs ")
	mutedText.Fprint(c.out, "  Generate a post            ")
	mutedText.Fprintln(c.out, " │")
	mutedText.Fprint(c.out, "  │ ")
	methodGET.Fprint(c.out, " GET  ")
	fmt.Fprint(c.out, " /health   ")
	mutedText.Fprint(c.out, "  Provider and busy state    ")
	mutedText.Fprintln(c.out, " │")
	mutedText.Fprintln(c.out, "  └─────────────────────────────────────────────────┘")
	fmt.Fprintln(c.out)
}

// PrintShutdown prints a shutdown message.
func (c *Console) PrintShutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out)
	warningBadge.Fprint(c.out, "[SHUTDOWN]")
	warningText.Fprintln(c.out, " Graceful shutdown initiated...")
}

// PrintGoodbye prints the final message after the server stopped.
func (c *Console) PrintGoodbye() {
	c.mu.Lock()
	defer c.mu.Unlock()

	successBadge.Fprint(c.out, " OK ")
	fmt.Fprint(c.out, " ")
	successText.Fprintln(c.out, "Server stopped.")
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// formatElapsed rounds d for display: milliseconds below one second, tenths
// of a second above.
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}

func joinStages(names []domain.StageName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
