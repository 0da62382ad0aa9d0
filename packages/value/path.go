package value

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitPath splits a dotted path into segments. Bracket indices are
// accepted as an alternative to numeric segments: "items[0].id" and
// "items.0.id" are equivalent. An empty path has no segments.
func SplitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	var segments []string
	for _, s := range strings.Split(path, ".") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Lookup walks path from v. Numeric segments index sequences; every other
// segment selects a mapping member.
func (v Value) Lookup(path string) (Value, error) {
	cur := v
	var walked []string
	for _, seg := range SplitPath(path) {
		walked = append(walked, seg)
		switch cur.kind {
		case Mapping:
			next, ok := cur.Get(seg)
			if !ok {
				return Value{}, fmt.Errorf("path %q not found", strings.Join(walked, "."))
			}
			cur = next
		case Sequence:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}, fmt.Errorf("path %q: %q is not a sequence index", strings.Join(walked, "."), seg)
			}
			next, ok := cur.Index(i)
			if !ok {
				return Value{}, fmt.Errorf("path %q: index %d out of range (length %d)", strings.Join(walked, "."), i, len(cur.items))
			}
			cur = next
		default:
			return Value{}, fmt.Errorf("path %q: cannot descend into %s", strings.Join(walked, "."), cur.kind)
		}
	}
	return cur, nil
}
