package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, "Authorization", c.AuthHeader)
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetEnvelope())
	assert.True(t, c.IsDefault())
}

func TestGetters_NilPointers(t *testing.T) {
	c := &Config{}
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetEnvelope())
	assert.False(t, c.GetNoColor())
}

func TestLoad_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ".tstit.yaml", []byte(`
baseURL: http://localhost:8080
token: s3cr3t
timeout: 5s
envelope: true
validateSSL: false
rateLimit: 2.5
maxRedirects: 3
headers:
  X-Client: tstit
variables:
  TENANT: acme
metrics: [json, otlp]
`), 0644))

	c, err := Load(fs, "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", c.BaseURL)
	assert.Equal(t, "s3cr3t", c.Token)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.True(t, c.GetEnvelope())
	assert.False(t, c.GetValidateSSL())
	assert.True(t, c.GetFollowRedirects(), "unset values keep their default")
	assert.Equal(t, 2.5, c.RateLimit)
	assert.Equal(t, 3, c.MaxRedirects)
	assert.Equal(t, map[string]string{"X-Client": "tstit"}, c.Headers)
	assert.Equal(t, map[string]string{"TENANT": "acme"}, c.Variables)
	assert.Equal(t, []string{"json", "otlp"}, c.Metrics)
	assert.Equal(t, "Authorization", c.AuthHeader)
}

func TestLoad_JSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ".tstit.json", []byte(`{"baseURL": "https://api.example.com", "timeout": "250ms"}`), 0644))

	c, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.BaseURL)
	assert.Equal(t, 250*time.Millisecond, c.Timeout)
}

func TestFindAndLoadConfig_SearchOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "proj/tstit.yaml", []byte("baseURL: http://third\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "proj/.tstit.yml", []byte("baseURL: http://second\n"), 0644))

	c, err := FindAndLoadConfig(fs, "proj")
	require.NoError(t, err)
	assert.Equal(t, "http://second", c.BaseURL)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	c, err := FindAndLoadConfig(afero.NewMemMapFs(), ".")
	require.NoError(t, err)
	assert.True(t, c.IsDefault())
}

func TestLoad_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("baseURL: [unclosed\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "negative.yaml", []byte("timeout: -1s\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "duration.yaml", []byte("timeout: soon\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "redirects.yaml", []byte("maxRedirects: -2\n"), 0644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", "nope.yaml", "config nope.yaml: file not found"},
		{"malformed", "bad.yaml", "config bad.yaml:"},
		{"negative timeout", "negative.yaml", "timeout must not be negative"},
		{"bad duration", "duration.yaml", "config duration.yaml:"},
		{"negative redirects", "redirects.yaml", "maxRedirects must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fs, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.BaseURL = "http://file"
	base.Headers = map[string]string{"X-A": "1", "X-B": "1"}
	base.Variables = map[string]string{"A": "file"}

	over := &Config{
		BaseURL:      "http://flag",
		Envelope:     BoolPtr(true),
		Headers:      map[string]string{"X-B": "2"},
		Variables:    map[string]string{"B": "flag"},
		RateLimit:    10,
		MaxRedirects: 5,
	}

	got := base.Merge(over)

	want := DefaultConfig()
	want.BaseURL = "http://flag"
	want.Envelope = BoolPtr(true)
	want.RateLimit = 10
	want.MaxRedirects = 5
	want.Headers = map[string]string{"X-A": "1", "X-B": "2"}
	want.Variables = map[string]string{"A": "file", "B": "flag"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1", base.Headers["X-B"], "Merge does not modify the receiver")
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := DefaultConfig()
	c.BaseURL = "http://localhost:9000"
	c.Timeout = 2 * time.Second

	require.NoError(t, c.SaveConfig(fs, "out.yaml"))

	loaded, err := Load(fs, "out.yaml")
	require.NoError(t, err)
	if diff := cmp.Diff(c, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}
