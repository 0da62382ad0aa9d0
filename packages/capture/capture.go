package capture

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/tstit/packages/core/env"
	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/http"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// HeaderPrefix marks an assignment path that reads a response header.
const HeaderPrefix = "header:"

// ExtractionError reports an assignment whose path could not be read.
type ExtractionError struct {
	Path     string
	Variable string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot assign %q to $%s: %s", e.Path, e.Variable, e.Reason)
}

// Captured is a value read from a response, not yet stored.
type Captured struct {
	Variable string
	Path     string
	Value    value.Value
}

type Extractor struct {
	response *http.Response
	body     value.Value
}

// NewExtractor reads from resp; body is its decoded Value Tree.
func NewExtractor(resp *http.Response, body value.Value) *Extractor {
	return &Extractor{
		response: resp,
		body:     body,
	}
}

// Extract reads a single scalar at path.
func (e *Extractor) Extract(path string) (value.Value, error) {
	if name, ok := strings.CutPrefix(path, HeaderPrefix); ok {
		return e.extractFromHeader(strings.TrimSpace(name))
	}
	return e.extractFromBody(path)
}

func (e *Extractor) extractFromBody(path string) (value.Value, error) {
	v, err := e.body.Lookup(path)
	if err != nil {
		return value.Value{}, err
	}
	if !v.IsScalar() {
		return value.Value{}, fmt.Errorf("path resolves to a %s, only scalars can be assigned", v.Kind())
	}
	return v, nil
}

func (e *Extractor) extractFromHeader(name string) (value.Value, error) {
	if e.response == nil || !e.response.HasHeader(name) {
		return value.Value{}, fmt.Errorf("header %s not present", name)
	}
	return value.StringOf(e.response.Header(name)), nil
}

// ExtractAll evaluates every assignment in order. The first failing
// assignment aborts extraction.
func (e *Extractor) ExtractAll(assigns []plan.Assignment) ([]Captured, error) {
	captured := make([]Captured, 0, len(assigns))
	for _, a := range assigns {
		v, err := e.Extract(a.Path)
		if err != nil {
			return nil, &ExtractionError{Path: a.Path, Variable: a.Variable, Reason: err.Error()}
		}
		captured = append(captured, Captured{Variable: a.Variable, Path: a.Path, Value: v})
	}
	return captured, nil
}

// Apply stores captured values. Values are checked before the first write
// so a rejected value leaves the store untouched.
func Apply(store *env.Store, captured []Captured) error {
	for _, c := range captured {
		if !env.ValidName(c.Variable) || !c.Value.IsScalar() {
			return &ExtractionError{Path: c.Path, Variable: c.Variable, Reason: "not a storable scalar"}
		}
	}
	for _, c := range captured {
		if err := store.Set(c.Variable, c.Value); err != nil {
			return &ExtractionError{Path: c.Path, Variable: c.Variable, Reason: err.Error()}
		}
	}
	return nil
}

// ExtractAndApply extracts every assignment and stores them only when all
// of them succeeded.
func ExtractAndApply(store *env.Store, resp *http.Response, body value.Value, assigns []plan.Assignment) ([]Captured, error) {
	if len(assigns) == 0 {
		return nil, nil
	}
	captured, err := NewExtractor(resp, body).ExtractAll(assigns)
	if err != nil {
		return nil, err
	}
	if err := Apply(store, captured); err != nil {
		return nil, err
	}
	return captured, nil
}
