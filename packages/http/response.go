package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Value decodes the body into a Value Tree. An empty body is null, a JSON
// body (by content type or by content) is parsed, anything else is a
// string. A body declared as JSON that does not parse is an error.
func (r *Response) Value() (value.Value, error) {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return value.NullValue(), nil
	}
	if r.IsJSON() {
		v, err := value.ParseJSON(trimmed)
		if err != nil {
			return value.Value{}, fmt.Errorf("malformed JSON response: %w", err)
		}
		return v, nil
	}
	if v, err := value.ParseJSON(trimmed); err == nil {
		return v, nil
	}
	return value.StringOf(string(r.Body)), nil
}

func (r *Response) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// HasHeader reports whether the response carries key, even with an empty
// value.
func (r *Response) HasHeader(key string) bool {
	if r.Headers == nil {
		return false
	}
	_, ok := r.Headers[http.CanonicalHeaderKey(key)]
	return ok
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return plan.IsJSONContent(r.ContentType())
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Summary is a one-line description used in logs.
func (r *Response) Summary() string {
	status := r.Status
	if status == "" {
		status = fmt.Sprintf("%d", r.StatusCode)
	}
	return strings.TrimSpace(fmt.Sprintf("%s (%d bytes, %s)", status, len(r.Body), r.Duration.Round(time.Millisecond)))
}
