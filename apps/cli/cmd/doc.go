// Package cmd implements the tstit CLI commands using Cobra.
//
// The root command runs testplans:
//
//	tstit examples/customer
//
// Available subcommands:
//   - validate: Load testplans without executing them
//   - list: Show testplans in execution order
//   - history: Show recent runs from the run-history database
//   - schema: Print the JSON Schema of the testplan format
//   - version: Show tstit version information
//   - completion: Generate shell completion scripts
//
// Flags default to TSTIT_* environment variables, and both override the
// config file.
package cmd
