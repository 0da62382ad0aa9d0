// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: progress log on the terminal, colored when attached to a TTY
//   - JSON: machine-readable JSON report
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//   - XLSX: spreadsheet report
//
// Every formatter is a runner.Observer. Report formats accumulate results
// and implement Flushable to write them once the run is over.
package output
