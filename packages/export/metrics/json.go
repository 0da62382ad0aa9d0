package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
)

// RunStarter is implemented by exporters that keep per-run state. The
// collector calls StartRun before the first plan of a run is recorded.
type RunStarter interface {
	StartRun(runID string)
}

// JSONExporter writes one JSON report per run, to a file, a writer or both.
type JSONExporter struct {
	fs       afero.Fs
	writer   io.Writer
	filePath string
	pretty   bool

	runID     string
	startTime time.Time
	plans     []*PlanMetrics
}

type JSONOption func(*JSONExporter)

func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile writes the report to path, replacing it on every run.
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

// WithJSONFs sets the filesystem the report file is written to.
func WithJSONFs(fs afero.Fs) JSONOption {
	return func(j *JSONExporter) {
		j.fs = fs
	}
}

func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{
		fs:     afero.NewOsFs(),
		pretty: true,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.StartRun("")
	return j
}

// StartRun drops the plans of the previous run and restarts the clock.
func (j *JSONExporter) StartRun(runID string) {
	j.runID = runID
	j.startTime = time.Now()
	j.plans = make([]*PlanMetrics, 0)
}

// JSONMetricsOutput is the report of a single run.
type JSONMetricsOutput struct {
	Metadata    JSONMetadata      `json:"metadata"`
	Summary     *AggregateMetrics `json:"summary"`
	PlanResults []*PlanMetrics    `json:"plan_results"`
}

type JSONMetadata struct {
	RunID       string `json:"run_id,omitempty"`
	GeneratedAt string `json:"generated_at"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Duration    string `json:"duration"`
	Version     string `json:"version"`
}

// Export writes the report of the current run.
func (j *JSONExporter) Export(_ context.Context, summary *AggregateMetrics) error {
	end := time.Now()
	report := JSONMetricsOutput{
		Metadata: JSONMetadata{
			RunID:       j.runID,
			GeneratedAt: end.Format(time.RFC3339),
			StartTime:   j.startTime.Format(time.RFC3339),
			EndTime:     end.Format(time.RFC3339),
			Duration:    end.Sub(j.startTime).String(),
			Version:     "1.0",
		},
		Summary:     summary,
		PlanResults: j.plans,
	}

	data, err := j.marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if j.filePath != "" {
		if err := afero.WriteFile(j.fs, j.filePath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if j.writer != nil {
		if _, err := fmt.Fprintf(j.writer, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (j *JSONExporter) marshal(report JSONMetricsOutput) ([]byte, error) {
	if j.pretty {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}

func (j *JSONExporter) ExportSingle(_ context.Context, metric *PlanMetrics) error {
	j.plans = append(j.plans, metric)
	return nil
}

func (j *JSONExporter) Close(context.Context) error {
	return nil
}
