package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// TAPFormatter formats run results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	reportObserver
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number   int
	name     string
	passed   bool
	kind     string
	error    string
	notes    []string
	duration time.Duration
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	for _, r := range result.Results {
		f.testCount++
		tr := tapResult{
			number:   f.testCount,
			name:     planName(r),
			passed:   r.Succeeded(),
			notes:    r.Notes,
			duration: r.Duration,
		}
		if r.Err != nil {
			tr.kind = r.Err.Kind.String()
			tr.error = r.Err.Error()
		}
		f.results = append(f.results, tr)
	}
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		if r.passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
		} else {
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
		}
		for _, note := range r.notes {
			fmt.Fprintf(f.writer, "# %s\n", note)
		}
		if r.passed {
			continue
		}

		fmt.Fprintf(f.writer, "  ---\n")
		fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(r.error))
		fmt.Fprintf(f.writer, "  severity: %s\n", r.kind)
		fmt.Fprintf(f.writer, "  duration_ms: %d\n", r.duration.Milliseconds())
		fmt.Fprintf(f.writer, "  ...\n")
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
