package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

func TestClient_Do_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), NewRequest("get", server.URL+"/test"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Contains(t, resp.BodyString(), "hello")
}

func TestClient_Do_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL).SetBody("application/json", []byte(`{"name":"test"}`))
	resp, err := NewClient().Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Contains(t, resp.BodyString(), "123")
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Do(context.Background(), NewRequest("GET", server.URL))

	require.Error(t, err)
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := NewClient().Do(context.Background(), NewRequest("GET", addr))

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "GET", transportErr.Method)
	assert.Equal(t, addr, transportErr.URL)
}

func TestClient_ErrorStatusIsAResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"data":"NOT_FOUND"}`))
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL))

	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestClient_WithAuthToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithAuthToken("", "test-token"),
		WithDefaultHeaders(map[string]string{"User-Agent": "custom-agent"}),
	)
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_RequestHeadersOverrideDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plan-token", r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithAuthToken("X-Api-Key", "default-token"))
	req := NewRequest("GET", server.URL).SetHeader("X-Api-Key", "plan-token")
	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_FollowRedirects(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`final`))
			return
		}
		redirectCount++
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(true))
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL+"/redirect"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())
	assert.Equal(t, 1, redirectCount)
}

func TestClient_WithMaxRedirects(t *testing.T) {
	hops := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", hops), http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithMaxRedirects(2))
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL+"/start"))

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, 3, hops, "the first request plus two redirects")
	assert.Equal(t, "/hop/3", resp.Header("Location"))
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient(WithFollowRedirects(false))
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL+"/redirect"))

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/final", resp.Header("Location"))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{name: "valid http URL", url: "http://example.com/path"},
		{name: "valid https URL", url: "https://example.com/path"},
		{name: "invalid scheme", url: "ftp://example.com", wantErr: true, errMsg: "unsupported URL scheme"},
		{name: "missing scheme", url: "example.com/path", wantErr: true, errMsg: "unsupported URL scheme"},
		{name: "missing host", url: "http:///path", wantErr: true, errMsg: "URL must have a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_Value(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantKind    value.Kind
		wantText    string
		wantErr     bool
	}{
		{name: "json object", contentType: "application/json", body: `{"code":0,"data":7}`, wantKind: value.Mapping, wantText: `{"code":0,"data":7}`},
		{name: "json with charset", contentType: "application/json; charset=utf-8", body: `[1,2]`, wantKind: value.Sequence, wantText: `[1,2]`},
		{name: "json without content type", body: ` {"ok":true} `, wantKind: value.Mapping, wantText: `{"ok":true}`},
		{name: "empty body", contentType: "application/json", body: "", wantKind: value.Null, wantText: "null"},
		{name: "plain text", contentType: "text/plain", body: "pong", wantKind: value.String, wantText: "pong"},
		{name: "malformed json", contentType: "application/json", body: `{"code":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Headers: http.Header{}, Body: []byte(tt.body)}
			if tt.contentType != "" {
				resp.Headers.Set("Content-Type", tt.contentType)
			}

			got, err := resp.Value()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
			assert.Equal(t, tt.wantText, got.Text())
		})
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   bool
	}{
		{200, true},
		{201, true},
		{204, true},
		{299, true},
		{300, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.expected, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
	}
}

func TestResponse_HasHeader(t *testing.T) {
	resp := &Response{Headers: http.Header{"X-Empty": {""}}}
	assert.True(t, resp.HasHeader("x-empty"))
	assert.False(t, resp.HasHeader("X-Missing"))
	assert.False(t, (&Response{}).HasHeader("X-Empty"))
}

func TestBuildRequest_PlanInput(t *testing.T) {
	in := plan.Input{
		Method:      "patch",
		URL:         "/v1/customer/42",
		ContentType: plan.DefaultContentType,
		Headers:     value.MappingOf(value.Member{Key: "X-Trace", Value: value.IntOf(9)}),
		Query:       value.MappingOf(value.Member{Key: "dry", Value: value.BoolOf(true)}),
		Body:        value.MappingOf(value.Member{Key: "name", Value: value.StringOf("alice")}),
		HasBody:     true,
	}

	req, err := BuildRequest("http://api.local/base/", in)
	require.NoError(t, err)
	assert.Equal(t, "PATCH", req.Method)
	assert.Equal(t, "http://api.local/base/v1/customer/42?dry=true", req.URL)
	assert.Equal(t, "9", req.Headers["X-Trace"])
	assert.Equal(t, plan.DefaultContentType, req.ContentType)
	assert.Equal(t, `{"name":"alice"}`, string(req.Body))
}

func TestBuildRequest_RawJSON(t *testing.T) {
	in := plan.Input{URL: "/v1/customer", JSON: `{"name": "bob"}`, HasJSON: true}

	req, err := BuildRequest("http://api.local", in)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, `{"name": "bob"}`, string(req.Body))
}

func TestBuildRequest_InvalidURL(t *testing.T) {
	_, err := BuildRequest("", plan.Input{URL: "/v1/customer"})
	assert.ErrorContains(t, err, "needs a base URL")

	_, err = BuildRequest("ftp://files.local", plan.Input{URL: "/x"})
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestBuildRequest_InvalidMethod(t *testing.T) {
	_, err := BuildRequest("http://api.local", plan.Input{Method: "GET X", URL: "/x"})
	assert.EqualError(t, err, `invalid method "GET X"`)
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"http://h:3030", "/v1/customer", "http://h:3030/v1/customer"},
		{"http://h:3030/", "/v1/customer", "http://h:3030/v1/customer"},
		{"http://h:3030//", "v1/customer", "http://h:3030/v1/customer"},
		{"http://h/api", "/v1", "http://h/api/v1"},
		{"http://h/api", "https://other.example/x", "https://other.example/x"},
		{"http://h/api", "", "http://h/api"},
	}

	for _, tt := range tests {
		got, err := JoinURL(tt.base, tt.ref)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "JoinURL(%q, %q)", tt.base, tt.ref)
	}
}

func TestEncodeBody(t *testing.T) {
	form := value.MappingOf(
		value.Member{Key: "name", Value: value.StringOf("bob smith")},
		value.Member{Key: "age", Value: value.IntOf(42)},
	)

	tests := []struct {
		name        string
		contentType string
		body        value.Value
		want        string
		wantErr     bool
	}{
		{name: "json", contentType: "application/json", body: form, want: `{"name":"bob smith","age":42}`},
		{name: "vendor json", contentType: "application/vnd.api+json; charset=utf-8", body: value.SequenceOf(value.IntOf(1)), want: `[1]`},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: form, want: "age=42&name=bob+smith"},
		{name: "form needs a table", contentType: "application/x-www-form-urlencoded", body: value.StringOf("x"), wantErr: true},
		{name: "text", contentType: "text/plain", body: value.IntOf(5), want: "5"},
		{name: "text needs a scalar", contentType: "text/plain", body: form, wantErr: true},
		{name: "other with string", contentType: "application/xml", body: value.StringOf("<a/>"), want: "<a/>"},
		{name: "other with table", contentType: "application/xml", body: form, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeBody(tt.contentType, tt.body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
