package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/tstit/packages/assertions"
	"github.com/abdul-hamid-achik/tstit/packages/capture"
	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/http"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// State is the position of a plan in its lifecycle. Succeeded and Failed
// are terminal.
type State int

const (
	Pending State = iota
	Resolving
	Executing
	Validating
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolving:
		return "resolving"
	case Executing:
		return "executing"
	case Validating:
		return "validating"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlanResult is the outcome of one plan.
type PlanResult struct {
	Plan  *plan.Plan
	State State
	// FailedAt is the state the plan was in when it failed.
	FailedAt   State
	Err        *PlanError
	Request    *http.Request
	Response   *http.Response
	Body       value.Value
	Validation *assertions.Result
	Notes      []string
	Captures   []capture.Captured
	Duration   time.Duration
}

func (r *PlanResult) Succeeded() bool {
	return r.State == Succeeded
}

// ErrorKind returns the failure kind, or 0 for a successful plan.
func (r *PlanResult) ErrorKind() ErrorKind {
	if r.Err == nil {
		return 0
	}
	return r.Err.Kind
}

// RunResult is the outcome of a whole run. It is the only input to the
// process exit status.
type RunResult struct {
	ID        uuid.UUID
	StartedAt time.Time
	Results   []*PlanResult
	Succeeded int
	Failed    int
	Duration  time.Duration
	Latency   LatencySummary
}

func (r *RunResult) Total() int {
	return len(r.Results)
}

// Success reports whether every plan succeeded.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

// LatencySummary describes the duration of the requests that got a
// response.
type LatencySummary struct {
	Count int64
	Min   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

const maxLatencyMicros = 3_600_000_000

// latencyRecorder keeps request durations in microseconds.
type latencyRecorder struct {
	histogram *hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{histogram: hdrhistogram.New(1, maxLatencyMicros, 3)}
}

func (l *latencyRecorder) record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyMicros {
		us = maxLatencyMicros
	}
	_ = l.histogram.RecordValue(us)
}

func (l *latencyRecorder) summary() LatencySummary {
	h := l.histogram
	if h.TotalCount() == 0 {
		return LatencySummary{}
	}
	micros := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencySummary{
		Count: h.TotalCount(),
		Min:   micros(h.Min()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   micros(h.ValueAtQuantile(50)),
		P95:   micros(h.ValueAtQuantile(95)),
		P99:   micros(h.ValueAtQuantile(99)),
		Max:   micros(h.Max()),
	}
}
