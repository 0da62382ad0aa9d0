package assertions

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// RootPath names the whole document.
const RootPath = "$"

var (
	comparisonPattern = regexp.MustCompile(`^(>=|<=|>|<)\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)$`)
	identPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Result is the outcome of a validation. On failure Path, Expected and
// Actual describe the first mismatch found.
type Result struct {
	Passed   bool
	Path     string
	Message  string
	Expected value.Value
	Actual   value.Value
	// Missing is set when the mismatch is an expected key absent from the
	// actual tree.
	Missing bool
	// Notes are informational and never affect Passed.
	Notes []string
}

// Err returns nil for a passed result and the failure description
// otherwise.
func (r *Result) Err() error {
	if r.Passed {
		return nil
	}
	return errors.New(r.Summary())
}

// Summary describes the result in one line.
func (r *Result) Summary() string {
	if r.Passed {
		return "validation passed"
	}
	return fmt.Sprintf("validation failed at %s: %s", r.Path, r.Message)
}

// Validate checks that expected is a subset of actual.
func Validate(actual, expected value.Value) *Result {
	v := &validator{}
	res := v.match(RootPath, actual, expected)
	if res == nil {
		res = &Result{Passed: true}
	}
	res.Notes = v.notes
	return res
}

type validator struct {
	notes []string
}

func (v *validator) match(path string, actual, expected value.Value) *Result {
	if expected.Kind() == value.String && actual.Kind() == value.Number {
		if op, operand, ok := parseComparison(expected.Str()); ok {
			return v.compare(path, actual, expected, op, operand)
		}
	}

	if actual.Kind() != expected.Kind() {
		return mismatch(path, actual, expected,
			fmt.Sprintf("type mismatch: expected %s %s, got %s %s", expected.Kind(), expected, actual.Kind(), actual))
	}

	switch expected.Kind() {
	case value.Null:
		return nil
	case value.Bool:
		if actual.Bool() != expected.Bool() {
			return mismatch(path, actual, expected, fmt.Sprintf("expected %s, got %s", expected, actual))
		}
	case value.Number:
		if !value.NumbersEqual(actual, expected) {
			return mismatch(path, actual, expected, fmt.Sprintf("expected %s, got %s", expected, actual))
		}
	case value.String:
		if actual.Str() != expected.Str() {
			return mismatch(path, actual, expected, fmt.Sprintf("expected %s, got %s", expected, actual))
		}
	case value.Sequence:
		if actual.Len() != expected.Len() {
			return mismatch(path, actual, expected,
				fmt.Sprintf("expected %d elements, got %d", expected.Len(), actual.Len()))
		}
		for i, item := range expected.Items() {
			if res := v.match(IndexPath(path, i), actual.Items()[i], item); res != nil {
				return res
			}
		}
	case value.Mapping:
		for _, m := range expected.Members() {
			child := KeyPath(path, m.Key)
			got, ok := actual.Get(m.Key)
			if !ok {
				res := mismatch(child, value.NullValue(), m.Value, "missing key")
				res.Missing = true
				return res
			}
			if res := v.match(child, got, m.Value); res != nil {
				return res
			}
		}
	}
	return nil
}

func (v *validator) compare(path string, actual, expected value.Value, op string, operand value.Value) *Result {
	v.notes = append(v.notes, fmt.Sprintf("actual: %s, expected: %s", actual.Text(), expected.Str()))

	c := value.Compare(actual, operand)
	var ok bool
	switch op {
	case ">":
		ok = c > 0
	case ">=":
		ok = c >= 0
	case "<":
		ok = c < 0
	case "<=":
		ok = c <= 0
	}
	if ok {
		return nil
	}
	return mismatch(path, actual, expected, fmt.Sprintf("expected %s, got %s", expected.Str(), actual.Text()))
}

func parseComparison(s string) (string, value.Value, bool) {
	m := comparisonPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", value.Value{}, false
	}
	operand, err := value.NumberFromText(m[2])
	if err != nil {
		return "", value.Value{}, false
	}
	return m[1], operand, true
}

func mismatch(path string, actual, expected value.Value, msg string) *Result {
	return &Result{
		Passed:   false,
		Path:     path,
		Message:  msg,
		Expected: expected,
		Actual:   actual,
	}
}

// KeyPath appends a mapping key to a path: $.data, $["odd key"].
func KeyPath(parent, key string) string {
	if identPattern.MatchString(key) {
		return parent + "." + key
	}
	return parent + "[" + strconv.Quote(key) + "]"
}

// IndexPath appends a sequence index to a path: $.items[2].
func IndexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}
