package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/net/http/httpguts"

	"github.com/abdul-hamid-achik/tstit/packages/core/env"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

var (
	documentKeys = []string{"name", "in", "out", "plan"}
	inputKeys    = []string{"method", "url", "content_type", "headers", "query", "body", "json"}
	outputKeys   = []string{"status", "error", "expect", "assign"}
	executorKeys = []string{"exec"}
)

// Executors accepted in the optional [plan] section. All of them run
// through the built-in HTTP client.
var executors = map[string]bool{"": true, "http": true, "curl": true}

// Parse decodes a testplan document. path is only recorded on the plan.
func Parse(path string, data []byte) (*Plan, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("malformed TOML: %w", err)
	}

	doc, err := newKeyOrder(md.Keys()).convert(raw, nil)
	if err != nil {
		return nil, err
	}
	return fromDocument(path, doc)
}

func fromDocument(path string, doc value.Value) (*Plan, error) {
	if err := checkKeys("testplan", doc, documentKeys); err != nil {
		return nil, err
	}

	p := &Plan{Path: path}
	name, err := optionalString(doc, "name", "name")
	if err != nil {
		return nil, err
	}
	p.Name = name

	if section, ok := doc.Get("plan"); ok {
		if err := checkExecutor(section); err != nil {
			return nil, err
		}
	}

	section, err := requiredTable(doc, "in")
	if err != nil {
		return nil, err
	}
	if p.In, err = decodeInput(section); err != nil {
		return nil, err
	}

	section, err = requiredTable(doc, "out")
	if err != nil {
		return nil, err
	}
	if p.Out, err = decodeOutput(section); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeInput(section value.Value) (Input, error) {
	in := Input{
		Method:      DefaultMethod,
		ContentType: DefaultContentType,
	}
	if err := checkKeys("[in]", section, inputKeys); err != nil {
		return in, err
	}

	method, err := optionalString(section, "method", "in.method")
	if err != nil {
		return in, err
	}
	if method = strings.TrimSpace(method); method != "" {
		if !env.HasPlaceholders(method) && !httpguts.ValidHeaderFieldName(method) {
			return in, fmt.Errorf("in.method %q is not a valid HTTP method", method)
		}
		in.Method = method
	}

	raw, ok := section.Get("url")
	if !ok {
		return in, errors.New("missing in.url")
	}
	if raw.Kind() != value.String || strings.TrimSpace(raw.Str()) == "" {
		return in, fmt.Errorf("in.url must be a non-empty string, got %s", raw)
	}
	in.URL = strings.TrimSpace(raw.Str())

	contentType, err := optionalString(section, "content_type", "in.content_type")
	if err != nil {
		return in, err
	}
	if contentType != "" {
		in.ContentType = contentType
	}

	if in.Headers, err = scalarTable(section, "headers", "in.headers"); err != nil {
		return in, err
	}
	if in.Query, err = scalarTable(section, "query", "in.query"); err != nil {
		return in, err
	}

	in.Body, in.HasBody = section.Get("body")
	if raw, ok := section.Get("json"); ok {
		if raw.Kind() != value.String {
			return in, fmt.Errorf("in.json must be a string, got %s", raw.Kind())
		}
		in.JSON, in.HasJSON = raw.Str(), true
	}
	if in.HasBody && in.HasJSON {
		return in, errors.New("in.body and in.json are mutually exclusive")
	}
	return in, nil
}

func decodeOutput(section value.Value) (Output, error) {
	var out Output
	if err := checkKeys("[out]", section, outputKeys); err != nil {
		return out, err
	}

	if raw, ok := section.Get("status"); ok {
		code, isInt := raw.Int()
		if !isInt || code < 100 || code > 599 {
			return out, fmt.Errorf("out.status must be an HTTP status code, got %s", raw)
		}
		out.Status = int(code)
	}

	if raw, ok := section.Get("error"); ok {
		if raw.Kind() != value.Bool {
			return out, fmt.Errorf("out.error must be a boolean, got %s", raw.Kind())
		}
		out.Error = raw.Bool()
	}

	out.Expect, _ = section.Get("expect")

	raw, ok := section.Get("assign")
	if !ok {
		return out, nil
	}
	if raw.Kind() != value.Mapping {
		return out, fmt.Errorf("out.assign must be a table, got %s", raw.Kind())
	}
	for _, m := range raw.Members() {
		if m.Value.Kind() != value.String {
			return out, fmt.Errorf("out.assign.%s must name a variable, got %s", m.Key, m.Value)
		}
		name := env.NormalizeName(m.Value.Str())
		if !env.ValidName(name) {
			return out, fmt.Errorf("out.assign.%s: invalid variable name %q", m.Key, m.Value.Str())
		}
		out.Assign = append(out.Assign, Assignment{Path: m.Key, Variable: name})
	}
	return out, nil
}

func checkExecutor(section value.Value) error {
	if section.Kind() != value.Mapping {
		return fmt.Errorf("[plan] must be a table, got %s", section.Kind())
	}
	if err := checkKeys("[plan]", section, executorKeys); err != nil {
		return err
	}
	exec, err := optionalString(section, "exec", "plan.exec")
	if err != nil {
		return err
	}
	if !executors[strings.ToLower(exec)] {
		return fmt.Errorf("unsupported %s executor", exec)
	}
	return nil
}

func checkKeys(where string, table value.Value, allowed []string) error {
	for _, m := range table.Members() {
		known := false
		for _, k := range allowed {
			if m.Key == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown key %q in %s", m.Key, where)
		}
	}
	return nil
}

func requiredTable(doc value.Value, key string) (value.Value, error) {
	section, ok := doc.Get(key)
	if !ok {
		return value.Value{}, fmt.Errorf("missing [%s] section", key)
	}
	if section.Kind() != value.Mapping {
		return value.Value{}, fmt.Errorf("[%s] must be a table, got %s", key, section.Kind())
	}
	return section, nil
}

func optionalString(table value.Value, key, field string) (string, error) {
	raw, ok := table.Get(key)
	if !ok {
		return "", nil
	}
	if raw.Kind() != value.String {
		return "", fmt.Errorf("%s must be a string, got %s", field, raw.Kind())
	}
	return raw.Str(), nil
}

func scalarTable(table value.Value, key, field string) (value.Value, error) {
	raw, ok := table.Get(key)
	if !ok {
		return value.NullValue(), nil
	}
	if raw.Kind() != value.Mapping {
		return value.Value{}, fmt.Errorf("%s must be a table, got %s", field, raw.Kind())
	}
	for _, m := range raw.Members() {
		if !m.Value.IsScalar() || m.Value.IsNull() {
			return value.Value{}, fmt.Errorf("%s.%s must be a scalar, got %s", field, m.Key, m.Value.Kind())
		}
	}
	return raw, nil
}

// keyOrder records the document position of every key, indexed by the
// path of its parent table. Array indices are not part of the path, so
// every table of an array shares one ordering.
type keyOrder map[string]map[string]int

func newKeyOrder(keys []toml.Key) keyOrder {
	order := make(keyOrder)
	for _, k := range keys {
		if len(k) == 0 {
			continue
		}
		parent := strings.Join(k[:len(k)-1], "\x00")
		children, ok := order[parent]
		if !ok {
			children = make(map[string]int)
			order[parent] = children
		}
		if _, seen := children[k[len(k)-1]]; !seen {
			children[k[len(k)-1]] = len(children)
		}
	}
	return order
}

func (o keyOrder) convert(in any, path []string) (value.Value, error) {
	switch x := in.(type) {
	case map[string]any:
		keys := o.sortedKeys(x, path)
		members := make([]value.Member, 0, len(keys))
		for _, k := range keys {
			child, err := o.convert(x[k], append(path[:len(path):len(path)], k))
			if err != nil {
				return value.Value{}, err
			}
			members = append(members, value.Member{Key: k, Value: child})
		}
		return value.MappingOf(members...), nil
	case []map[string]any:
		items := make([]value.Value, 0, len(x))
		for _, elem := range x {
			item, err := o.convert(elem, path)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}
		return value.SequenceOf(items...), nil
	case []any:
		items := make([]value.Value, 0, len(x))
		for _, elem := range x {
			item, err := o.convert(elem, path)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}
		return value.SequenceOf(items...), nil
	default:
		v, err := value.FromAny(in)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w", strings.Join(path, "."), err)
		}
		return v, nil
	}
}

// sortedKeys orders keys by document position. Keys the metadata does not
// know about follow in lexical order.
func (o keyOrder) sortedKeys(m map[string]any, path []string) []string {
	positions := o[strings.Join(path, "\x00")]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		pi, iok := positions[keys[i]]
		pj, jok := positions[keys[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		default:
			return false
		}
	})
	return keys
}
