package plan

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// The document types below only describe the file format for the JSON
// Schema; decoding goes through the Value Tree in decode.go.

type document struct {
	Name string         `json:"name,omitempty" jsonschema_description:"Display name used in reports"`
	In   inputDocument  `json:"in" jsonschema_description:"The request to send"`
	Out  outputDocument `json:"out" jsonschema_description:"The expected response and extraction rules"`
	Plan *planDocument  `json:"plan,omitempty"`
}

type inputDocument struct {
	Method      string            `json:"method,omitempty" jsonschema:"default=GET,example=POST" jsonschema_description:"HTTP method, case-insensitive"`
	URL         string            `json:"url" jsonschema:"minLength=1" jsonschema_description:"Request URL relative to the base URL"`
	ContentType string            `json:"content_type,omitempty" jsonschema:"default=application/json"`
	Headers     map[string]scalar `json:"headers,omitempty"`
	Query       map[string]scalar `json:"query,omitempty"`
	Body        any               `json:"body,omitempty" jsonschema_description:"Request body encoded according to content_type"`
	JSON        string            `json:"json,omitempty" jsonschema_description:"Pre-encoded JSON body sent verbatim"`
}

type outputDocument struct {
	Status int               `json:"status,omitempty" jsonschema:"minimum=100,maximum=599"`
	Error  bool              `json:"error,omitempty" jsonschema_description:"The response is expected to be an API error"`
	Expect any               `json:"expect,omitempty" jsonschema_description:"Subset of the response body that must match"`
	Assign map[string]string `json:"assign,omitempty" jsonschema_description:"Response path to variable name"`
}

type planDocument struct {
	Exec string `json:"exec,omitempty" jsonschema:"enum=http,enum=curl"`
}

// scalar is any TOML value except tables and arrays.
type scalar any

// Schema returns the JSON Schema of the testplan format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(&document{})
	s.Title = "tstit testplan"
	s.Description = "A single REST API test: one request, its expected response and the variables it captures."
	return s
}

// SchemaJSON returns the indented JSON encoding of Schema.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
