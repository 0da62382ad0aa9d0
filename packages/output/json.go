package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID    string      `json:"runId"`
	Summary  JSONSummary `json:"summary"`
	Plans    []JSONPlan  `json:"plans"`
	Latency  JSONLatency `json:"latency"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

type JSONSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JSONPlan represents a single plan result
type JSONPlan struct {
	Name      string            `json:"name"`
	File      string            `json:"file"`
	Succeeded bool              `json:"succeeded"`
	State     string            `json:"state"`
	FailedAt  string            `json:"failedAt,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  float64           `json:"duration"`
	Request   *JSONRequest      `json:"request,omitempty"`
	Response  *JSONResponse     `json:"response,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
	Captures  map[string]string `json:"captures,omitempty"`
}

type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

type JSONResponse struct {
	StatusCode int             `json:"statusCode"`
	Status     string          `json:"status"`
	Body       json.RawMessage `json:"body,omitempty"`
	Duration   float64         `json:"duration"`
}

// JSONLatency holds request latency percentiles in milliseconds.
type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	reportObserver
	writer io.Writer
	output JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		output: JSONOutput{Plans: make([]JSONPlan, 0)},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.output.RunID = result.ID.String()
	f.output.Summary = JSONSummary{
		Total:     result.Total(),
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	f.output.Latency = JSONLatency{
		Count: result.Latency.Count,
		Min:   millis(result.Latency.Min),
		Mean:  millis(result.Latency.Mean),
		P50:   millis(result.Latency.P50),
		P95:   millis(result.Latency.P95),
		P99:   millis(result.Latency.P99),
		Max:   millis(result.Latency.Max),
	}

	for _, r := range result.Results {
		p := JSONPlan{
			Name:      planName(r),
			File:      planPath(r),
			Succeeded: r.Succeeded(),
			State:     r.State.String(),
			Duration:  millis(r.Duration),
			Notes:     r.Notes,
			Captures:  capturedVariables(r),
		}
		if r.Err != nil {
			p.FailedAt = r.FailedAt.String()
			p.ErrorKind = r.Err.Kind.String()
			p.Error = r.Err.Error()
		}
		if r.Request != nil {
			p.Request = &JSONRequest{
				Method:  r.Request.Method,
				URL:     r.Request.URL,
				Headers: r.Request.Headers,
			}
		}
		if r.Response != nil {
			p.Response = &JSONResponse{
				StatusCode: r.Response.StatusCode,
				Status:     r.Response.Status,
				Duration:   millis(r.Response.Duration),
			}
			if !r.Body.IsNull() {
				if data, err := r.Body.MarshalJSON(); err == nil {
					p.Response.Body = data
				}
			}
		}
		f.output.Plans = append(f.output.Plans, p)
	}
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.output.Duration = millis(totalDuration)
	f.output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
