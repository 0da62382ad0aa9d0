package http

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// Request is a fully built request, ready to send.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	ContentType string
	Body        []byte
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  strings.ToUpper(method),
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(contentType string, body []byte) *Request {
	r.ContentType = contentType
	r.Body = body
	return r
}

// HeaderNames returns the request header names in lexical order.
func (r *Request) HeaderNames() []string {
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// BuildRequest turns a resolved plan input into a request against
// baseURL. Placeholders must already be substituted.
func BuildRequest(baseURL string, in plan.Input) (*Request, error) {
	method := in.Method
	if method == "" {
		method = plan.DefaultMethod
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("invalid method %q", method)
	}

	target, err := JoinURL(baseURL, in.URL)
	if err != nil {
		return nil, err
	}
	if target, err = withQuery(target, in.Query); err != nil {
		return nil, err
	}
	if err := ValidateURL(target); err != nil {
		return nil, err
	}

	req := NewRequest(method, target)
	for _, h := range in.Headers.Members() {
		req.SetHeader(h.Key, h.Value.Text())
	}

	switch {
	case in.HasJSON:
		req.SetBody(plan.DefaultContentType, []byte(in.JSON))
	case in.HasBody:
		contentType := in.ContentType
		if contentType == "" {
			contentType = plan.DefaultContentType
		}
		body, err := EncodeBody(contentType, in.Body)
		if err != nil {
			return nil, err
		}
		req.SetBody(contentType, body)
	}
	return req, nil
}

// JoinURL joins a plan URL to the base URL. Absolute http(s) references
// are returned unchanged; otherwise the base path is kept as a prefix.
func JoinURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if lower := strings.ToLower(ref); strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref, nil
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("relative URL %q needs a base URL", ref)
	}
	if ref == "" {
		return base, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/"), nil
}

func withQuery(target string, query value.Value) (string, error) {
	if query.Len() == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", target, err)
	}
	q := u.Query()
	for _, m := range query.Members() {
		q.Set(m.Key, m.Value.Text())
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EncodeBody serializes body according to contentType: JSON for any
// content type mentioning json, url-encoded form data for
// application/x-www-form-urlencoded and plain text for text/*.
func EncodeBody(contentType string, body value.Value) ([]byte, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch {
	case plan.IsJSONContent(mediaType):
		return body.MarshalJSON()
	case mediaType == "application/x-www-form-urlencoded":
		if body.Kind() != value.Mapping {
			return nil, fmt.Errorf("form body must be a table, got %s", body.Kind())
		}
		form := url.Values{}
		for _, m := range body.Members() {
			if !m.Value.IsScalar() {
				return nil, fmt.Errorf("form field %s must be a scalar, got %s", m.Key, m.Value.Kind())
			}
			form.Set(m.Key, m.Value.Text())
		}
		return []byte(form.Encode()), nil
	case strings.HasPrefix(mediaType, "text/"):
		if !body.IsScalar() {
			return nil, fmt.Errorf("%s body must be a scalar, got %s", mediaType, body.Kind())
		}
		return []byte(body.Text()), nil
	default:
		if body.Kind() != value.String {
			return nil, fmt.Errorf("cannot encode a %s body as %s", body.Kind(), contentType)
		}
		return []byte(body.Str()), nil
	}
}
