// Package metrics provides metrics export functionality for tstit runs.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// PlanMetrics represents metrics collected from one plan
type PlanMetrics struct {
	RunID         string    `json:"run_id"`
	PlanName      string    `json:"plan_name"`
	PlanPath      string    `json:"plan_path"`
	RequestMethod string    `json:"request_method,omitempty"`
	RequestURL    string    `json:"request_url,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	DurationMs    float64   `json:"duration_ms"`
	Succeeded     bool      `json:"succeeded"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	NoteCount     int       `json:"note_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// AggregateMetrics represents aggregated metrics over a run
type AggregateMetrics struct {
	RunID           string           `json:"run_id,omitempty"`
	TotalPlans      int64            `json:"total_plans"`
	SuccessCount    int64            `json:"success_count"`
	FailureCount    int64            `json:"failure_count"`
	TotalDurationMs float64          `json:"total_duration_ms"`
	MinDurationMs   float64          `json:"min_duration_ms"`
	MaxDurationMs   float64          `json:"max_duration_ms"`
	AvgDurationMs   float64          `json:"avg_duration_ms"`
	P50DurationMs   float64          `json:"p50_duration_ms"`
	P95DurationMs   float64          `json:"p95_duration_ms"`
	P99DurationMs   float64          `json:"p99_duration_ms"`
	StatusCodes     map[int]int64    `json:"status_codes"`
	ErrorKinds      map[string]int64 `json:"error_kinds"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports the run aggregate to the target destination
	Export(ctx context.Context, metrics *AggregateMetrics) error

	// ExportSingle exports a single plan metric
	ExportSingle(ctx context.Context, metric *PlanMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close(ctx context.Context) error
}

const maxDurationMicros = 3_600_000_000

// Collector turns plan results into metrics. It observes a run and hands
// every metric to its exporters.
type Collector struct {
	runID     string
	metrics   []*PlanMetrics
	aggregate *AggregateMetrics
	histogram *hdrhistogram.Histogram
	exporters []Exporter
	errs      []error
}

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		metrics:   make([]*PlanMetrics, 0),
		exporters: exporters,
		histogram: hdrhistogram.New(1, maxDurationMicros, 3),
		aggregate: &AggregateMetrics{
			StatusCodes: make(map[int]int64),
			ErrorKinds:  make(map[string]int64),
		},
	}
}

// SetRunID tags subsequent metrics with the run they belong to and resets
// exporters that keep per-run state.
func (c *Collector) SetRunID(id string) {
	c.runID = id
	c.aggregate.RunID = id
	for _, exp := range c.exporters {
		if rs, ok := exp.(RunStarter); ok {
			rs.StartRun(id)
		}
	}
}

func (c *Collector) PlanStarted(int, int, *plan.Plan) {}

func (c *Collector) PlanFinished(_, _ int, res *runner.PlanResult) {
	c.Record(FromPlanResult(c.runID, res))
}

// FromPlanResult builds the metric of a finished plan.
func FromPlanResult(runID string, res *runner.PlanResult) *PlanMetrics {
	m := &PlanMetrics{
		RunID:      runID,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
		Succeeded:  res.Succeeded(),
		NoteCount:  len(res.Notes),
		Timestamp:  time.Now(),
	}
	if res.Plan != nil {
		m.PlanName = res.Plan.DisplayName()
		m.PlanPath = res.Plan.Path
	}
	if res.Request != nil {
		m.RequestMethod = res.Request.Method
		m.RequestURL = res.Request.URL
	}
	if res.Response != nil {
		m.StatusCode = res.Response.StatusCode
	}
	if res.Err != nil {
		m.ErrorKind = res.Err.Kind.String()
	}
	return m
}

// Record records a plan metric
func (c *Collector) Record(m *PlanMetrics) {
	c.metrics = append(c.metrics, m)
	c.updateAggregate(m)

	for _, exp := range c.exporters {
		if err := exp.ExportSingle(context.Background(), m); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

func (c *Collector) updateAggregate(m *PlanMetrics) {
	a := c.aggregate
	a.TotalPlans++
	a.TotalDurationMs += m.DurationMs

	if m.Succeeded {
		a.SuccessCount++
	} else {
		a.FailureCount++
		a.ErrorKinds[m.ErrorKind]++
	}

	if a.TotalPlans == 1 {
		a.MinDurationMs = m.DurationMs
		a.MaxDurationMs = m.DurationMs
	} else {
		if m.DurationMs < a.MinDurationMs {
			a.MinDurationMs = m.DurationMs
		}
		if m.DurationMs > a.MaxDurationMs {
			a.MaxDurationMs = m.DurationMs
		}
	}
	a.AvgDurationMs = a.TotalDurationMs / float64(a.TotalPlans)

	if m.StatusCode != 0 {
		a.StatusCodes[m.StatusCode]++
	}

	us := int64(m.DurationMs * 1000)
	if us < 1 {
		us = 1
	}
	if us > maxDurationMicros {
		us = maxDurationMicros
	}
	_ = c.histogram.RecordValue(us)
	a.P50DurationMs = float64(c.histogram.ValueAtQuantile(50)) / 1000
	a.P95DurationMs = float64(c.histogram.ValueAtQuantile(95)) / 1000
	a.P99DurationMs = float64(c.histogram.ValueAtQuantile(99)) / 1000
}

// GetAggregate returns the aggregated metrics
func (c *Collector) GetAggregate() *AggregateMetrics {
	return c.aggregate
}

// Metrics returns the recorded plan metrics in order.
func (c *Collector) Metrics() []*PlanMetrics {
	return c.metrics
}

// Flush exports the aggregate to every exporter. Errors from earlier
// ExportSingle calls are reported here too.
func (c *Collector) Flush(ctx context.Context) error {
	errs := c.errs
	c.errs = nil
	for _, exp := range c.exporters {
		if err := exp.Export(ctx, c.aggregate); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all exporters
func (c *Collector) Close(ctx context.Context) error {
	var errs []error
	for _, exp := range c.exporters {
		if err := exp.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
