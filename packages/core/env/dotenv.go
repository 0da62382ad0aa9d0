package env

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// LoadDotEnv parses a .env file into key/value pairs.
// Supports: KEY=value, export KEY=value, KEY="quoted", KEY='single quoted', # comments.
// Nothing is exported to the process environment; the pairs are meant to
// seed a Store.
func LoadDotEnv(fs afero.Fs, path string) (map[string]string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(val))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file %s (line %d): %w", path, lineNo, err)
	}
	return vars, nil
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	first, last := val[0], val[len(val)-1]
	if (first == '"' || first == '\'') && first == last {
		return val[1 : len(val)-1]
	}
	return val
}
