package cmd

import (
	"errors"
	"fmt"
)

// Exit codes for the tstit CLI
const (
	// ExitSuccess indicates every testplan succeeded
	ExitSuccess = 0

	// ExitTestFailure indicates one or more testplans failed
	ExitTestFailure = 1

	// ExitLoadError indicates a testplan could not be discovered or parsed
	ExitLoadError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code of a failed command. A nil Err
// exits silently.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error {
	return e.Err
}

func withExitCode(code int, err error) error {
	return &exitError{Code: code, Err: err}
}

func usageError(format string, args ...any) error {
	return withExitCode(ExitUsageError, fmt.Errorf(format, args...))
}

func configError(err error) error {
	return withExitCode(ExitConfigError, err)
}

func loadError(err error) error {
	return withExitCode(ExitLoadError, err)
}

// exitCode maps a command error to the process exit status. Errors cobra
// raises itself (unknown flags, bad arguments) are usage errors.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitUsageError
}
