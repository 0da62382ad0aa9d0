package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
	"github.com/abdul-hamid-achik/tstit/packages/http"
)

func planResults() []*runner.PlanResult {
	req := http.NewRequest("GET", "http://localhost/v1/customer/1")
	return []*runner.PlanResult{
		{
			Plan:     &plan.Plan{Path: "a.toml", Name: "first"},
			State:    runner.Succeeded,
			Request:  req,
			Response: &http.Response{StatusCode: 200},
			Notes:    []string{"actual: 2, expected: >0"},
			Duration: 10 * time.Millisecond,
		},
		{
			Plan:     &plan.Plan{Path: "b.toml"},
			State:    runner.Failed,
			Request:  req,
			Response: &http.Response{StatusCode: 404},
			Err:      &runner.PlanError{Kind: runner.KindAPI, Err: errors.New("API error 404: NOT_FOUND")},
			Duration: 30 * time.Millisecond,
		},
		{
			Plan:     &plan.Plan{Path: "c.toml"},
			State:    runner.Failed,
			Err:      &runner.PlanError{Kind: runner.KindResolution, Err: errors.New("undefined variable $X")},
			Duration: 20 * time.Millisecond,
		},
	}
}

func observe(c *Collector) {
	results := planResults()
	for i, r := range results {
		c.PlanStarted(i, len(results), r.Plan)
		c.PlanFinished(i, len(results), r)
	}
}

func TestCollector_Aggregate(t *testing.T) {
	c := NewCollector()
	c.SetRunID("run-1")
	observe(c)

	a := c.GetAggregate()
	assert.Equal(t, "run-1", a.RunID)
	assert.Equal(t, int64(3), a.TotalPlans)
	assert.Equal(t, int64(1), a.SuccessCount)
	assert.Equal(t, int64(2), a.FailureCount)
	assert.Equal(t, 10.0, a.MinDurationMs)
	assert.Equal(t, 30.0, a.MaxDurationMs)
	assert.Equal(t, 20.0, a.AvgDurationMs)
	assert.InDelta(t, 20.0, a.P50DurationMs, 0.1)
	assert.InDelta(t, 30.0, a.P99DurationMs, 0.1)
	assert.Equal(t, map[int]int64{200: 1, 404: 1}, a.StatusCodes)
	assert.Equal(t, map[string]int64{"api": 1, "resolution": 1}, a.ErrorKinds)

	m := c.Metrics()
	require.Len(t, m, 3)
	assert.Equal(t, "first", m[0].PlanName)
	assert.Equal(t, "GET", m[0].RequestMethod)
	assert.Equal(t, 1, m[0].NoteCount)
	assert.Equal(t, "run-1", m[1].RunID)
	assert.Equal(t, "c.toml", m[2].PlanName)
	assert.Empty(t, m[2].RequestMethod)
}

type failingExporter struct{ NoOpExporter }

func (failingExporter) ExportSingle(context.Context, *PlanMetrics) error {
	return errors.New("single failed")
}

func (failingExporter) Export(context.Context, *AggregateMetrics) error {
	return errors.New("export failed")
}

func TestCollector_FlushReportsErrors(t *testing.T) {
	c := NewCollector(&failingExporter{}, NewNoOpExporter())
	observe(c)

	err := c.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single failed")
	assert.Contains(t, err.Error(), "export failed")
	assert.NoError(t, c.Close(context.Background()))
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "metrics.json")
	exp := NewJSONExporter(WithJSONWriter(&buf), WithJSONFile(path), WithJSONPretty(false))

	c := NewCollector(exp)
	observe(c)
	require.NoError(t, c.Flush(context.Background()))

	var out JSONMetricsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, int64(3), out.Summary.TotalPlans)
	require.Len(t, out.PlanResults, 3)
	assert.Equal(t, "api", out.PlanResults[1].ErrorKind)
	assert.Equal(t, "1.0", out.Metadata.Version)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, bytes.TrimSpace(buf.Bytes()), data)
}

func TestJSONExporter_EachRunStandsAlone(t *testing.T) {
	fs := afero.NewMemMapFs()
	exp := NewJSONExporter(WithJSONFs(fs), WithJSONFile("/out/metrics.json"), WithJSONPretty(false))

	first := NewCollector(exp)
	first.SetRunID("run-1")
	observe(first)
	require.NoError(t, first.Flush(context.Background()))

	second := NewCollector(exp)
	second.SetRunID("run-2")
	res := planResults()[0]
	second.PlanFinished(0, 1, res)
	require.NoError(t, second.Flush(context.Background()))

	data, err := afero.ReadFile(fs, "/out/metrics.json")
	require.NoError(t, err)

	var out JSONMetricsOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "run-2", out.Metadata.RunID)
	assert.Equal(t, "run-2", out.Summary.RunID)
	assert.Equal(t, int64(1), out.Summary.TotalPlans)
	require.Len(t, out.PlanResults, 1)
	assert.Equal(t, "run-2", out.PlanResults[0].RunID)
	assert.Equal(t, "first", out.PlanResults[0].PlanName)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestOTLPExporter(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	exp, err := newOTLPExporter(ctx, reader, "test")
	require.NoError(t, err)

	c := NewCollector(exp)
	observe(c)
	require.NoError(t, c.Flush(ctx))

	got := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(t, got["tstit_plans_total"]))
	assert.Equal(t, int64(2), sumOf(t, got["tstit_plan_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["tstit_runs_total"]))

	hist, ok := got["tstit_plan_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	require.NoError(t, c.Close(ctx))
}

func TestNewOTLPExporter_RequiresEndpoint(t *testing.T) {
	_, err := NewOTLPExporter(context.Background(), OTLPConfig{})
	assert.EqualError(t, err, "OTLP endpoint not configured")
}
