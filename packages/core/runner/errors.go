package runner

import (
	"fmt"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// ErrorKind classifies why a plan failed.
type ErrorKind int

const (
	KindResolution ErrorKind = iota + 1
	KindTransport
	KindAPI
	KindValidation
	KindExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindValidation:
		return "validation"
	case KindExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// PlanError is the failure of a single plan. It never aborts the run.
type PlanError struct {
	Kind ErrorKind
	Err  error
}

func (e *PlanError) Error() string {
	switch e.Kind {
	case KindAPI, KindValidation:
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// APIError is an error response from the backend: a non-2xx status, or in
// envelope mode a non-zero or missing code.
type APIError struct {
	StatusCode int
	Code       int64
	HasCode    bool
	Payload    value.Value
	Reason     string
}

func (e *APIError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Reason)
	case e.HasCode:
		return fmt.Sprintf("API error %d: %s", e.Code, e.Payload.Text())
	default:
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Payload.Text())
	}
}
