package env

import (
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

// placeholderPattern matches "$$", "${NAME}" and "$NAME".
var placeholderPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// UndefinedError lists the variables referenced but not bound in the Store.
type UndefinedError struct {
	Names []string
}

func (e *UndefinedError) Error() string {
	refs := make([]string, len(e.Names))
	for i, n := range e.Names {
		refs[i] = "$" + n
	}
	if len(refs) == 1 {
		return "undefined variable " + refs[0]
	}
	return "undefined variables " + strings.Join(refs, ", ")
}

// Resolver substitutes placeholders using the variables of a Store.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns a copy of v with every placeholder inside string scalars
// replaced. Mapping keys are left untouched. All undefined references in
// the tree are reported together.
func (r *Resolver) Resolve(v value.Value) (value.Value, error) {
	var missing []string
	out := r.walk(v, &missing)
	if len(missing) > 0 {
		return value.Value{}, &UndefinedError{Names: missing}
	}
	return out, nil
}

// ResolveString resolves a single string. A string made of exactly one
// placeholder yields the typed variable value; anything else yields the
// interpolated string.
func (r *Resolver) ResolveString(s string) (value.Value, error) {
	return r.Resolve(value.StringOf(s))
}

// Interpolate always produces text, even for an exact placeholder match.
func (r *Resolver) Interpolate(s string) (string, error) {
	var missing []string
	out := r.interpolate(s, &missing)
	if len(missing) > 0 {
		return "", &UndefinedError{Names: missing}
	}
	return out, nil
}

// HasPlaceholders reports whether s references any variable.
func HasPlaceholders(s string) bool {
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if m[0] != "$$" {
			return true
		}
	}
	return false
}

func (r *Resolver) walk(v value.Value, missing *[]string) value.Value {
	switch v.Kind() {
	case value.String:
		return r.resolveText(v.Str(), missing)
	case value.Sequence:
		items := make([]value.Value, len(v.Items()))
		for i, item := range v.Items() {
			items[i] = r.walk(item, missing)
		}
		return value.SequenceOf(items...)
	case value.Mapping:
		members := make([]value.Member, len(v.Members()))
		for i, m := range v.Members() {
			members[i] = value.Member{Key: m.Key, Value: r.walk(m.Value, missing)}
		}
		return value.MappingOf(members...)
	default:
		return v
	}
}

func (r *Resolver) resolveText(s string, missing *[]string) value.Value {
	if name, ok := exactPlaceholder(s); ok {
		if v, found := r.store.Get(name); found {
			return v
		}
		addMissing(missing, name)
		return value.StringOf(s)
	}
	return value.StringOf(r.interpolate(s, missing))
}

func (r *Resolver) interpolate(s string, missing *[]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if match == "$$" {
			return "$"
		}
		name := placeholderName(match)
		if v, ok := r.store.Get(name); ok {
			return v.Text()
		}
		addMissing(missing, name)
		return match
	})
}

func exactPlaceholder(s string) (string, bool) {
	loc := placeholderPattern.FindStringIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) || s == "$$" {
		return "", false
	}
	return placeholderName(s), true
}

func placeholderName(match string) string {
	name := strings.TrimPrefix(match, "$")
	name = strings.TrimPrefix(name, "{")
	return strings.TrimSuffix(name, "}")
}

func addMissing(missing *[]string, name string) {
	for _, n := range *missing {
		if n == name {
			return
		}
	}
	*missing = append(*missing, name)
}
