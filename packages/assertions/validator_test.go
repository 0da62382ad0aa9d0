package assertions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.ParseJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		passed   bool
		path     string
		message  string
	}{
		{name: "subset passes", actual: `{"a":1,"b":2}`, expected: `{"a":1}`, passed: true},
		{name: "missing key fails", actual: `{"a":1}`, expected: `{"a":1,"b":2}`, path: "$.b", message: "missing key"},
		{name: "numeric representation ignored", actual: `{"n":2.0}`, expected: `{"n":2}`, passed: true},
		{name: "sequence order matters", actual: `[1,2]`, expected: `[2,1]`, path: "$[0]", message: "expected 2, got 1"},
		{name: "sequence length", actual: `[1,2,3]`, expected: `[1,2]`, path: "$", message: "expected 2 elements, got 3"},
		{name: "empty expectation", actual: `{"a":1}`, expected: `{}`, passed: true},
		{name: "string exact", actual: `{"data":{"name":"alice"}}`, expected: `{"data":{"name":"bob"}}`, path: "$.data.name", message: `expected "bob", got "alice"`},
		{name: "bool", actual: `{"ok":false}`, expected: `{"ok":true}`, path: "$.ok", message: "expected true, got false"},
		{name: "null matches null", actual: `{"x":null}`, expected: `{"x":null}`, passed: true},
		{name: "type mismatch", actual: `{"data":"NOT_FOUND"}`, expected: `{"data":{"id":1}}`, path: "$.data", message: `type mismatch: expected mapping {"id":1}, got string "NOT_FOUND"`},
		{name: "string is not a number", actual: `{"code":0}`, expected: `{"code":"0"}`, path: "$.code", message: `type mismatch: expected string "0", got number 0`},
		{name: "nested sequence path", actual: `{"items":[{"id":1},{"id":2}]}`, expected: `{"items":[{"id":1},{"id":3}]}`, path: "$.items[1].id", message: "expected 3, got 2"},
		{name: "odd key path", actual: `{"odd key":1}`, expected: `{"odd key":2}`, path: `$["odd key"]`, message: "expected 2, got 1"},
		{name: "large integers exact", actual: `{"id":9007199254740993}`, expected: `{"id":9007199254740992}`, path: "$.id", message: "expected 9007199254740992, got 9007199254740993"},
		{name: "comparison passes", actual: `{"total":2}`, expected: `{"total":">0"}`, passed: true},
		{name: "comparison fails", actual: `{"total":0}`, expected: `{"total":">0"}`, path: "$.total", message: "expected >0, got 0"},
		{name: "comparison on string is literal", actual: `{"v":">0"}`, expected: `{"v":">0"}`, passed: true},
		{name: "less or equal", actual: `{"v":10}`, expected: `{"v":"<=10"}`, passed: true},
		{name: "greater or equal float", actual: `{"v":1.5}`, expected: `{"v":">= 1.5"}`, passed: true},
		{name: "less than negative", actual: `{"v":-3}`, expected: `{"v":"<-2"}`, passed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(mustJSON(t, tt.actual), mustJSON(t, tt.expected))
			assert.Equal(t, tt.passed, res.Passed, res.Summary())
			if tt.passed {
				assert.NoError(t, res.Err())
				return
			}
			assert.Equal(t, tt.path, res.Path)
			assert.Equal(t, tt.message, res.Message)
			assert.EqualError(t, res.Err(), "validation failed at "+tt.path+": "+tt.message)
		})
	}
}

func TestValidate_FirstMismatchInDocumentOrder(t *testing.T) {
	actual := mustJSON(t, `{"a":0,"b":0,"c":0}`)
	expected := mustJSON(t, `{"c":1,"a":1}`)

	res := Validate(actual, expected)
	require.False(t, res.Passed)
	assert.Equal(t, "$.c", res.Path)
}

func TestValidate_ComparisonNotes(t *testing.T) {
	res := Validate(
		mustJSON(t, `{"code":0,"data":{"total":2,"pages":1}}`),
		mustJSON(t, `{"code":0,"data":{"total":">0","pages":"<5"}}`),
	)
	require.True(t, res.Passed)
	assert.Equal(t, []string{"actual: 2, expected: >0", "actual: 1, expected: <5"}, res.Notes)
}

func TestValidate_NotesKeptOnFailure(t *testing.T) {
	res := Validate(mustJSON(t, `{"total":2,"name":"x"}`), mustJSON(t, `{"total":">0","name":"y"}`))
	require.False(t, res.Passed)
	assert.Equal(t, []string{"actual: 2, expected: >0"}, res.Notes)
}

func TestResult_Diff(t *testing.T) {
	res := Validate(mustJSON(t, `{"data":{"name":"alice","age":3}}`), mustJSON(t, `{"data":{"name":"bob"}}`))
	require.False(t, res.Passed)

	diff := res.Diff()
	assert.Contains(t, diff, "--- expected $.data.name")
	assert.Contains(t, diff, "+++ actual $.data.name")
	assert.Contains(t, diff, `-"bob"`)
	assert.Contains(t, diff, `+"alice"`)
}

func TestResult_DiffMissing(t *testing.T) {
	res := Validate(mustJSON(t, `{}`), mustJSON(t, `{"id":1}`))
	require.True(t, res.Missing)
	assert.Contains(t, res.Diff(), "+<missing>")
}

func TestResult_DiffPassed(t *testing.T) {
	res := Validate(mustJSON(t, `{"id":1}`), mustJSON(t, `{"id":1}`))
	assert.Empty(t, res.Diff())
	assert.Equal(t, "validation passed", res.Summary())
}

func TestKeyPath(t *testing.T) {
	assert.Equal(t, "$.data", KeyPath(RootPath, "data"))
	assert.Equal(t, `$["x-id"]`, KeyPath(RootPath, "x-id"))
	assert.Equal(t, "$.items[3]", IndexPath(KeyPath(RootPath, "items"), 3))
}
