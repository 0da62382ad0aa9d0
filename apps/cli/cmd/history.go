package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/config"
	"github.com/abdul-hamid-achik/tstit/packages/db"
)

type historyOptions struct {
	configPath string
	history    string
	limit      int
	runID      string
}

func newHistoryCmd(fs afero.Fs) *cobra.Command {
	o := &historyOptions{}
	c := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the run-history database",
		Long: `Show runs recorded with --history, newest first, or the testplans of
one run with --run.

Examples:
  tstit history --history runs.db
  tstit history --history runs.db --run 9b2f1c4e-...`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return o.run(c, fs)
		},
	}
	c.Flags().StringVar(&o.configPath, "config", getEnvString(envConfig, ""), "Path to config file (env: TSTIT_CONFIG)")
	c.Flags().StringVar(&o.history, "history", getEnvString(envHistory, ""), "SQLite run-history database (env: TSTIT_HISTORY)")
	c.Flags().IntVarP(&o.limit, "limit", "n", getEnvInt("TSTIT_HISTORY_LIMIT", 20), "Number of runs to show (env: TSTIT_HISTORY_LIMIT)")
	c.Flags().StringVar(&o.runID, "run", "", "Show the testplans of one run")
	return c
}

func (o *historyOptions) run(c *cobra.Command, fs afero.Fs) error {
	conn := o.history
	if conn == "" {
		cfg, err := config.Load(fs, o.configPath)
		if err != nil {
			return configError(err)
		}
		conn = cfg.History
	}
	if conn == "" {
		return configError(errors.New("no history database configured (set --history, TSTIT_HISTORY or history in the config file)"))
	}

	h, err := db.Open(conn)
	if err != nil {
		return configError(err)
	}
	defer h.Close()

	tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if o.runID != "" {
		plans, err := h.PlanResults(c.Context(), o.runID)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			return fmt.Errorf("run %s not found", o.runID)
		}
		fmt.Fprintln(tw, "#\tTESTPLAN\tSTATE\tSTATUS\tDURATION\tERROR")
		for _, p := range plans {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				p.Position+1, p.Path, p.State, statusText(p.StatusCode), p.Duration.Round(time.Millisecond), p.Error)
		}
		return nil
	}

	runs, err := h.RecentRuns(c.Context(), o.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.OutOrStdout(), "no runs recorded")
		return nil
	}
	fmt.Fprintln(tw, "RUN\tSTARTED\tTOTAL\tSUCCEEDED\tFAILED\tDURATION\tP95")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Total, r.Succeeded, r.Failed,
			r.Duration.Round(time.Millisecond), r.P95.Round(time.Millisecond))
	}
	return nil
}

func statusText(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}
