package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func newRootCmd(fs afero.Fs) *cobra.Command {
	opts := &runOptions{fs: fs}

	rootCmd := &cobra.Command{
		Use:   "tstit [paths...]",
		Short: "Test It. REST It.",
		Long: `tstit runs declarative REST API testplans written in TOML.

Every path is a testplan file or a directory searched for *.toml files.
Plans run one at a time in lexical order; values assigned from one
response are available to later plans as $NAME placeholders.

Examples:
  tstit --url http://localhost:8080 examples/customer
  TSTIT_URL=http://localhost:8080 TSTIT_TKN=secret tstit examples/customer -v
  tstit examples/customer -o junit --output-file report.xml
  tstit examples/customer --watch`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          opts.run,
	}
	rootCmd.SetVersionTemplate("tstit version {{.Version}}\n")
	opts.addFlags(rootCmd)

	rootCmd.AddCommand(newValidateCmd(fs))
	rootCmd.AddCommand(newListCmd(fs))
	rootCmd.AddCommand(newHistoryCmd(fs))
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	return rootCmd
}

// Execute runs the CLI and exits the process with its exit code.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(afero.NewOsFs())
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.Err != nil) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// newLogger returns the diagnostic logger: debug records with -v,
// warnings only otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
