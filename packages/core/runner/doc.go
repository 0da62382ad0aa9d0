// Package runner executes testplans.
//
// It provides functionality for:
//   - Running plans strictly one after another, in load order
//   - Resolving placeholders from the Variable Store before each request
//   - Classifying failures (resolution, transport, API, validation, extraction)
//   - Applying extraction rules after a successful validation
//   - Aggregating counts and request latency for the run
//
// A failing plan never stops the run; only the caller decides what a
// failed run means.
package runner
