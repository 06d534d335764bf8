package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mvp-joe/depgraph/internal/bundle"
	"github.com/schollz/progressbar/v3"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

var stageDescriptions = map[bundle.Stage]string{
	bundle.StageGraph:   "Parsing dependency graph",
	bundle.StageConfig:  "Parsing configuration dump",
	bundle.StageResolve: "Resolving references",
	bundle.StageWrite:   "Writing bundle",
	bundle.StageScript:  "Writing script copy",
}

// CLIProgressReporter implements bundle.ProgressReporter with a stage progress bar.
type CLIProgressReporter struct {
	quiet bool
	out   io.Writer
	bar   *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   out,
	}
}

func (c *CLIProgressReporter) OnStageStart(stage bundle.Stage) {
	if c.quiet {
		return
	}
	if c.bar == nil {
		c.bar = progressbar.NewOptions(len(bundle.Stages),
			progressbar.OptionSetWriter(c.out),
			progressbar.OptionSetDescription(stageDescriptions[stage]),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
		)
		return
	}
	c.bar.Describe(stageDescriptions[stage])
}

func (c *CLIProgressReporter) OnStageComplete(stage bundle.Stage, detail string) {
	if c.quiet {
		return
	}
	if c.bar != nil {
		c.bar.Clear()
	}
	successColor.Fprint(c.out, "✓ ")
	fmt.Fprintf(c.out, "%s: %s\n", stageDescriptions[stage], detail)
	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(summary *bundle.Summary) {
	if c.quiet {
		return
	}
	if c.bar != nil {
		c.bar.Clear()
		c.bar = nil
	}
	printSummary(c.out, summary)
}

// printSummary writes the end-of-build report.
func printSummary(w io.Writer, s *bundle.Summary) {
	fmt.Fprintln(w)
	successColor.Fprintf(w, "✓ Bundle written: %s (%.1fs)\n", s.OutputPath, s.Duration.Seconds())
	fmt.Fprintf(w, "  Nodes:    %s\n", formatNumber(s.Nodes))
	fmt.Fprintf(w, "  Edges:    %s\n", formatNumber(s.Edges))
	fmt.Fprintf(w, "  Modules:  %s\n", formatNumber(s.Modules))
	if s.ScriptPath != "" {
		fmt.Fprintf(w, "  Script:   %s\n", s.ScriptPath)
	}

	tagLine := fmt.Sprintf("  Found %s/%s InputTag references (%.1f%%)\n",
		formatNumber(s.ResolvedTags), formatNumber(s.InputTags), s.ResolutionRate())
	if s.ResolvedTags < s.InputTags {
		warnColor.Fprint(w, tagLine)
	} else {
		fmt.Fprint(w, tagLine)
	}

	if s.SkippedEdges > 0 || s.SkippedStatements > 0 || s.LabelCollisions > 0 {
		faintColor.Fprintf(w, "  Skipped: %d edges, %d statements; %d duplicate labels\n",
			s.SkippedEdges, s.SkippedStatements, s.LabelCollisions)
	}
}

// formatNumber formats integer with thousand separators.
// Example: 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
