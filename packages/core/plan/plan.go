package plan

import (
	"net/http"
	"strings"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

const (
	// Extension is the file extension of testplans.
	Extension = ".toml"

	DefaultMethod      = http.MethodGet
	DefaultContentType = "application/json"
)

// Plan is a single testplan as loaded from disk. Plans are never modified
// after loading; the runner resolves placeholders into copies.
type Plan struct {
	Path string
	Name string
	In   Input
	Out  Output
}

type Input struct {
	Method      string
	URL         string
	ContentType string
	// Headers and Query are mappings of scalars, or null when absent.
	Headers value.Value
	Query   value.Value
	Body    value.Value
	HasBody bool
	// JSON is a pre-encoded request body, sent verbatim.
	JSON    string
	HasJSON bool
}

type Output struct {
	// Status is the expected status code, 0 when not asserted.
	Status int
	Error  bool
	Expect value.Value
	Assign []Assignment
}

// Assignment binds a response path to a variable name.
type Assignment struct {
	Path     string
	Variable string
}

// DisplayName returns the plan name, falling back to its path.
func (p *Plan) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Path
}

// ExpectsError reports whether the plan asserts an API error response.
func (o Output) ExpectsError() bool {
	return o.Error || (o.Status != 0 && (o.Status < 200 || o.Status >= 300))
}

// HasExpectation reports whether there is anything to validate the body
// against. An empty table counts as no expectation.
func (o Output) HasExpectation() bool {
	switch o.Expect.Kind() {
	case value.Null:
		return false
	case value.Mapping:
		return o.Expect.Len() > 0
	default:
		return true
	}
}

// IsJSONContent reports whether a content type carries JSON.
func IsJSONContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
