package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite groups the plans of one directory.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	File      string        `xml:"file,attr,omitempty"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure is an API or validation failure: the backend answered but
// not as expected.
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError is a plan that could not be checked at all.
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitFormatter formats run results as JUnit XML
type JUnitFormatter struct {
	reportObserver
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	timestamp := result.StartedAt.Format(time.RFC3339)
	index := make(map[string]int)

	for _, r := range result.Results {
		dir := filepath.Dir(planPath(r))
		i, ok := index[dir]
		if !ok {
			i = len(f.testSuites)
			index[dir] = i
			f.testSuites = append(f.testSuites, JUnitTestSuite{Name: dir, Timestamp: timestamp})
		}
		suite := &f.testSuites[i]

		tc := JUnitTestCase{
			Name:      planName(r),
			ClassName: dir,
			File:      planPath(r),
			Time:      r.Duration.Seconds(),
		}
		if len(r.Notes) > 0 {
			tc.SystemOut = strings.Join(r.Notes, "\n")
		}

		if r.Err != nil {
			switch r.Err.Kind {
			case runner.KindAPI, runner.KindValidation:
				suite.Failures++
				content := ""
				if r.Validation != nil {
					content = r.Validation.Diff()
				}
				tc.Failure = &JUnitFailure{
					Message: r.Err.Error(),
					Type:    r.Err.Kind.String(),
					Content: content,
				}
			default:
				suite.Errors++
				tc.Error = &JUnitError{
					Message: r.Err.Error(),
					Type:    r.Err.Kind.String(),
				}
			}
		}

		suite.Tests++
		suite.Time += r.Duration.Seconds()
		suite.TestCases = append(suite.TestCases, tc)
	}
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
	}

	suites := JUnitTestSuites{
		Name:       "tstit",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(suites)
}
