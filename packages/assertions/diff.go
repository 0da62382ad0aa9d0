package assertions

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between the expected and actual values at
// the mismatch path. It is empty for a passed result.
func (r *Result) Diff() string {
	if r.Passed {
		return ""
	}

	actual := r.Actual.Indent()
	if r.Missing {
		actual = "<missing>"
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Expected.Indent() + "\n"),
		B:        difflib.SplitLines(actual + "\n"),
		FromFile: "expected " + r.Path,
		ToFile:   "actual " + r.Path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimRight(text, "\n")
}
