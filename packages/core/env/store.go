package env

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/tstit/packages/value"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be referenced by a placeholder.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// NormalizeName strips the optional leading "$" of a variable reference.
func NormalizeName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "$")
}

// Store is the run-wide variable registry. It is seeded once before a run
// and then only written by successful extractions. A Store is not safe for
// concurrent use; runs are sequential.
type Store struct {
	values map[string]value.Value
}

func NewStore() *Store {
	return &Store{values: make(map[string]value.Value)}
}

// Set binds name to a scalar value, replacing any previous binding.
func (s *Store) Set(name string, v value.Value) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid variable name %q", name)
	}
	if !v.IsScalar() {
		return fmt.Errorf("variable %s: cannot store a %s, only scalars", name, v.Kind())
	}
	s.values[name] = v
	return nil
}

func (s *Store) Get(name string) (value.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Seed binds every entry of vars as a string. Names that cannot be
// referenced by a placeholder are skipped.
func (s *Store) Seed(vars map[string]string) {
	for k, v := range vars {
		if ValidName(k) {
			s.values[k] = value.StringOf(v)
		}
	}
}

// Names returns the bound names in lexical order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Len() int {
	return len(s.values)
}
