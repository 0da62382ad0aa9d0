package env

import (
	"os"
	"strings"
)

// SystemVariables returns the process environment. With a non-empty prefix
// only matching variables are returned, with the prefix removed.
func SystemVariables(prefix string) map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			vars[key] = val
			continue
		}
		if rest, found := strings.CutPrefix(key, prefix); found && rest != "" {
			vars[rest] = val
		}
	}
	return vars
}

// Merge combines variable sources; later sources win.
func Merge(sources ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}
