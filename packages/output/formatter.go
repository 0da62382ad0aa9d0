package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
	FormatTAP     = "tap"
	FormatXLSX    = "xlsx"
)

// Formatter renders a run. It observes plans as they execute and receives
// the final RunResult.
type Formatter interface {
	runner.Observer
	FormatHeader(version string)
	FormatResult(result *runner.RunResult)
	FormatError(err error)
}

// Flushable is implemented by formatters that write a report after the run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Options configures New.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter registered under format.
func New(format string, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatConsole:
		return NewConsoleFormatter(
			WithWriter(opts.Writer),
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
		), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(opts.Writer)), nil
	case FormatJUnit:
		return NewJUnitFormatter(JUnitWithWriter(opts.Writer)), nil
	case FormatTAP:
		return NewTAPFormatter(TAPWithWriter(opts.Writer)), nil
	case FormatXLSX:
		return NewXLSXFormatter(XLSXWithWriter(opts.Writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatConsole, FormatJSON, FormatJUnit, FormatTAP, FormatXLSX}
}

// IsBinary reports whether format produces a report that must not be
// written to a terminal.
func IsBinary(format string) bool {
	return strings.EqualFold(format, FormatXLSX)
}

// reportObserver gives report formatters no-op progress hooks.
type reportObserver struct{}

func (reportObserver) PlanStarted(int, int, *plan.Plan) {}
func (reportObserver) PlanFinished(int, int, *runner.PlanResult) {}
func (reportObserver) FormatHeader(string) {}
func (reportObserver) FormatError(error) {}

func planName(res *runner.PlanResult) string {
	if res.Plan == nil {
		return ""
	}
	return res.Plan.DisplayName()
}

func planPath(res *runner.PlanResult) string {
	if res.Plan == nil {
		return ""
	}
	return res.Plan.Path
}

// capturedVariables flattens the captures of a plan for reports.
func capturedVariables(res *runner.PlanResult) map[string]string {
	if len(res.Captures) == 0 {
		return nil
	}
	out := make(map[string]string, len(res.Captures))
	for _, c := range res.Captures {
		out[c.Variable] = c.Value.Text()
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
