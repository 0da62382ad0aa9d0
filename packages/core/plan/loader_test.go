package plan

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

const minimalPlan = `
[in]
url = "/v1/customer"

[out]
`

func writeFiles(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func paths(plans []*Plan) []string {
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = p.Path
	}
	return out
}

func TestLoader_Load_LexicalOrder(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/plans/30_patch.toml":        minimalPlan,
		"/plans/10_create.toml":       minimalPlan,
		"/plans/sub/25_nested.toml":   minimalPlan,
		"/plans/20_get.toml":          minimalPlan,
		"/plans/README.md":            "not a plan",
		"/plans/sub/ignored.toml.bak": "not a plan",
	})

	plans, err := NewLoader(fs).Load("/plans")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/plans/10_create.toml",
		"/plans/20_get.toml",
		"/plans/30_patch.toml",
		"/plans/sub/25_nested.toml",
	}, paths(plans))
}

func TestLoader_Load_InputsInGivenOrder(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/a/10_first.toml":  minimalPlan,
		"/b/05_second.toml": minimalPlan,
	})

	plans, err := NewLoader(fs).Load("/b", "/a", "/b/05_second.toml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/b/05_second.toml",
		"/a/10_first.toml",
		"/b/05_second.toml",
	}, paths(plans), "inputs are expanded independently and not de-duplicated")
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		input   string
		errPart string
	}{
		{
			name:    "missing path",
			files:   map[string]string{},
			input:   "/nope",
			errPart: "no such file or directory",
		},
		{
			name:    "explicit non-plan file",
			files:   map[string]string{"/plans/notes.txt": "x"},
			input:   "/plans/notes.txt",
			errPart: "not a testplan",
		},
		{
			name:    "malformed toml",
			files:   map[string]string{"/plans/10_bad.toml": "[in\nurl="},
			input:   "/plans",
			errPart: "malformed TOML",
		},
		{
			name:    "missing out",
			files:   map[string]string{"/plans/10_bad.toml": "[in]\nurl = \"/x\"\n"},
			input:   "/plans",
			errPart: "missing [out] section",
		},
		{
			name: "bad plan after good plan",
			files: map[string]string{
				"/plans/10_good.toml": minimalPlan,
				"/plans/20_bad.toml":  "[out]\n",
			},
			input:   "/plans",
			errPart: "missing [in] section",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := writeFiles(t, tt.files)
			_, err := NewLoader(fs).Load(tt.input)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "expected a LoadError, got %T", err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoader_Load_NoPlans(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/plans/readme.md": "hello"})

	_, err := NewLoader(fs).Load("/plans")
	assert.ErrorIs(t, err, ErrNoPlans)
}

func TestParse_FullDocument(t *testing.T) {
	src := `
name = "create customer"

[in]
method = "post"
url = "/v1/customer"
headers = { X-Request-Id = "abc", X-Retry = 1 }
query = { verbose = true }

[in.body]
name = "bob"
age = 42
tags = ["a", "b"]

[out]
status = 201

[out.expect]
code = 0
zeta = 1

[out.expect.alpha]
second = 2
first = 1

[out.assign]
data = "$CUSTOMER_ID"
"header:Location" = "CUSTOMER_URL"
`
	p, err := Parse("create.toml", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "create customer", p.DisplayName())
	assert.Equal(t, "post", p.In.Method)
	assert.Equal(t, "/v1/customer", p.In.URL)
	assert.Equal(t, DefaultContentType, p.In.ContentType)
	assert.True(t, p.In.HasBody)
	assert.Equal(t, `{"name":"bob","age":42,"tags":["a","b"]}`, p.In.Body.Text())
	assert.Equal(t, `{"X-Request-Id":"abc","X-Retry":1}`, p.In.Headers.Text())
	assert.Equal(t, `{"verbose":true}`, p.In.Query.Text())

	assert.Equal(t, 201, p.Out.Status)
	assert.False(t, p.Out.ExpectsError())
	assert.Equal(t, `{"code":0,"zeta":1,"alpha":{"second":2,"first":1}}`, p.Out.Expect.Text(),
		"expectation keys keep document order")
	assert.Equal(t, []Assignment{
		{Path: "data", Variable: "CUSTOMER_ID"},
		{Path: "header:Location", Variable: "CUSTOMER_URL"},
	}, p.Out.Assign)
}

func TestParse_PreEncodedJSONBody(t *testing.T) {
	src := `
[plan]
exec = "curl"

[in]
method = "PATCH"
url = "/v1/customer/$CUSTOMER_ID"
json = '{"name": "alice"}'

[out]
expect = { code = 0, total = ">0" }
`
	p, err := Parse("patch.toml", []byte(src))
	require.NoError(t, err)
	assert.True(t, p.In.HasJSON)
	assert.False(t, p.In.HasBody)
	assert.Equal(t, `{"name": "alice"}`, p.In.JSON)

	total, ok := p.Out.Expect.Get("total")
	require.True(t, ok)
	assert.Equal(t, value.StringOf(">0"), total)
}

func TestParse_Defaults(t *testing.T) {
	p, err := Parse("get.toml", []byte(minimalPlan))
	require.NoError(t, err)

	assert.Equal(t, "get.toml", p.DisplayName())
	assert.Equal(t, DefaultMethod, p.In.Method)
	assert.True(t, p.In.Headers.IsNull())
	assert.False(t, p.In.HasBody)
	assert.False(t, p.Out.HasExpectation())
	assert.Zero(t, p.Out.Status)
	assert.Empty(t, p.Out.Assign)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		errPart string
	}{
		{"unknown top-level key", "tags = 1\n" + minimalPlan, `unknown key "tags" in testplan`},
		{"unknown in key", "[in]\nurl = \"/x\"\nverb = \"GET\"\n[out]\n", `unknown key "verb" in [in]`},
		{"unknown out key", "[in]\nurl = \"/x\"\n[out]\nexpected = 1\n", `unknown key "expected" in [out]`},
		{"missing url", "[in]\nmethod = \"GET\"\n[out]\n", "missing in.url"},
		{"empty url", "[in]\nurl = \" \"\n[out]\n", "in.url must be a non-empty string"},
		{"url not a string", "[in]\nurl = 1\n[out]\n", "in.url must be a non-empty string"},
		{"body and json", "[in]\nurl = \"/x\"\njson = \"{}\"\nbody = { a = 1 }\n[out]\n", "mutually exclusive"},
		{"header not scalar", "[in]\nurl = \"/x\"\nheaders = { a = [1] }\n[out]\n", "in.headers.a must be a scalar"},
		{"status out of range", "[in]\nurl = \"/x\"\n[out]\nstatus = 42\n", "out.status must be an HTTP status code"},
		{"status not a number", "[in]\nurl = \"/x\"\n[out]\nstatus = \"ok\"\n", "out.status must be an HTTP status code"},
		{"error not a bool", "[in]\nurl = \"/x\"\n[out]\nerror = \"yes\"\n", "out.error must be a boolean"},
		{"bad variable", "[in]\nurl = \"/x\"\n[out.assign]\ndata = \"$1ID\"\n", "invalid variable name"},
		{"assign not a string", "[in]\nurl = \"/x\"\n[out.assign]\ndata = 1\n", "must name a variable"},
		{"method with a space", "[in]\nmethod = \"GET X\"\nurl = \"/x\"\n[out]\n", `in.method "GET X" is not a valid HTTP method`},
		{"infinite body number", "[in]\nurl = \"/x\"\nbody = { x = inf }\n[out]\n", "in.body.x: number +Inf has no JSON representation"},
		{"nan expectation", "[in]\nurl = \"/x\"\n[out]\nexpect = { x = nan }\n", "out.expect.x: number NaN has no JSON representation"},
		{"in not a table", "in = 1\n[out]\n", "[in] must be a table"},
		{"unsupported executor", "[plan]\nexec = \"wget\"\n" + minimalPlan, "unsupported wget executor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.toml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestOutput_ExpectsError(t *testing.T) {
	assert.False(t, Output{}.ExpectsError())
	assert.False(t, Output{Status: 204}.ExpectsError())
	assert.True(t, Output{Status: 404}.ExpectsError())
	assert.True(t, Output{Error: true}.ExpectsError())
}

func TestSchemaJSON(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	doc, err := value.ParseJSON(data)
	require.NoError(t, err)

	props, err := doc.Lookup("properties")
	require.NoError(t, err)
	for _, key := range []string{"name", "in", "out", "plan"} {
		_, ok := props.Get(key)
		assert.True(t, ok, "schema property %s", key)
	}

	required, err := doc.Lookup("required")
	require.NoError(t, err)
	assert.Equal(t, `["in","out"]`, required.Text())

	url, err := doc.Lookup("properties.in.properties.url.type")
	require.NoError(t, err)
	assert.Equal(t, "string", url.Str())
}
