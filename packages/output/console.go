package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gertd/go-pluralize"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// Tagline follows the version in the console banner.
const Tagline = "Test It. REST It."

const maxBodyDisplay = 2000

// ConsoleFormatter writes the progress log as plans run.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
	plural  *pluralize.Client

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	bold   func(a ...any) string
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
		plural: pluralize.NewClient(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	if f.noColor {
		color.NoColor = true
	}

	f.green = color.New(color.FgGreen).SprintFunc()
	f.red = color.New(color.FgRed).SprintFunc()
	f.yellow = color.New(color.FgYellow).SprintFunc()
	f.cyan = color.New(color.FgCyan).SprintFunc()
	f.bold = color.New(color.Bold).SprintFunc()
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s v%s - %s\n", f.bold("tstit"), strings.TrimPrefix(version, "v"), Tagline)
}

func (f *ConsoleFormatter) PlanStarted(index, total int, p *plan.Plan) {
	if index == 0 {
		fmt.Fprintf(f.writer, "found %s\n", f.plural.Pluralize("testplan", total, true))
	}
	fmt.Fprintf(f.writer, "processing %s...\n", p.Path)
}

func (f *ConsoleFormatter) PlanFinished(_, _ int, res *runner.PlanResult) {
	if f.verbose {
		f.writeExchange(res)
	}
	for _, note := range res.Notes {
		fmt.Fprintf(f.writer, "  %s\n", f.yellow(note))
	}

	if res.Succeeded() {
		fmt.Fprintf(f.writer, "  %s testplan succeeded %s\n", f.green("✓"), f.cyan(fmt.Sprintf("(%dms)", res.Duration.Milliseconds())))
		if f.verbose {
			for _, c := range res.Captures {
				fmt.Fprintf(f.writer, "    $%s = %s\n", c.Variable, c.Value.Text())
			}
		}
		return
	}

	fmt.Fprintf(f.writer, "  %s testplan failed: %s\n", f.red("✗"), res.Err)
	if f.verbose && res.Validation != nil && !res.Validation.Passed {
		if diff := res.Validation.Diff(); diff != "" {
			for _, line := range strings.Split(diff, "\n") {
				fmt.Fprintf(f.writer, "    %s\n", colorDiffLine(f, line))
			}
		}
	}
}

func (f *ConsoleFormatter) writeExchange(res *runner.PlanResult) {
	if req := res.Request; req != nil {
		fmt.Fprintf(f.writer, "  %s %s\n", f.bold(req.Method), req.URL)
		for _, name := range req.HeaderNames() {
			fmt.Fprintf(f.writer, "    %s: %s\n", name, req.Headers[name])
		}
		if len(req.Body) > 0 {
			fmt.Fprintf(f.writer, "    %s\n", truncate(string(req.Body), maxBodyDisplay))
		}
	}
	if resp := res.Response; resp != nil {
		fmt.Fprintf(f.writer, "  %s %s\n", f.bold("->"), resp.Summary())
		if len(resp.Body) > 0 {
			body := resp.BodyString()
			if !res.Body.IsNull() && !res.Body.IsScalar() {
				body = res.Body.Indent()
			}
			for _, line := range strings.Split(truncate(body, maxBodyDisplay), "\n") {
				fmt.Fprintf(f.writer, "    %s\n", line)
			}
		}
	}
}

func colorDiffLine(f *ConsoleFormatter, line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return f.bold(line)
	case strings.HasPrefix(line, "+"):
		return f.green(line)
	case strings.HasPrefix(line, "-"):
		return f.red(line)
	case strings.HasPrefix(line, "@@"):
		return f.cyan(line)
	default:
		return line
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	success := fmt.Sprintf("%d", result.Succeeded)
	failed := fmt.Sprintf("%d", result.Failed)
	if result.Failed > 0 {
		failed = f.red(failed)
	} else {
		success = f.green(success)
	}
	fmt.Fprintf(f.writer, "test execution completed, success: %s, failed: %s\n", success, failed)

	if f.verbose && result.Latency.Count > 0 {
		l := result.Latency
		fmt.Fprintf(f.writer, "Latency: min %s, p50 %s, p95 %s, p99 %s, max %s\n", l.Min, l.P50, l.P95, l.P99, l.Max)
	}
	fmt.Fprintf(f.writer, "Time: %dms\n", result.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", f.red("Error:"), err)
}
