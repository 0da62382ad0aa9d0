package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoPlans is returned when the inputs contain no testplans at all.
var ErrNoPlans = errors.New("no testplans found")

// LoadError reports a testplan that could not be loaded. Any LoadError
// aborts the run before a request is sent.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader discovers and parses testplans on a filesystem.
type Loader struct {
	fs afero.Fs
}

func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs}
}

// Load expands every input path, in the order given, and parses the
// discovered files. Paths from one directory run in lexical order; inputs
// are concatenated without de-duplication. The first failure stops
// loading.
func (l *Loader) Load(inputs ...string) ([]*Plan, error) {
	files, err := l.Discover(inputs...)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(files))
	for _, path := range files {
		p, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Discover returns the testplan files named by inputs without parsing
// them.
func (l *Loader) Discover(inputs ...string) ([]string, error) {
	var files []string
	for _, input := range inputs {
		found, err := l.expand(input)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, ErrNoPlans
	}
	return files, nil
}

// LoadFile reads and parses a single testplan.
func (l *Loader) LoadFile(path string) (*Plan, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	p, err := Parse(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return p, nil
}

func (l *Loader) expand(input string) ([]string, error) {
	info, err := l.fs.Stat(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: input, Err: errors.New("no such file or directory")}
		}
		return nil, &LoadError{Path: input, Err: err}
	}

	if !info.IsDir() {
		if !IsPlanFile(input) {
			return nil, &LoadError{Path: input, Err: fmt.Errorf("not a testplan, expected a %s file", Extension)}
		}
		return []string{input}, nil
	}

	var files []string
	err = afero.Walk(l.fs, input, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsPlanFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: input, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

// IsPlanFile reports whether path has the testplan extension.
func IsPlanFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}
