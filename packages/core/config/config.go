package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config represents the tstit configuration
type Config struct {
	BaseURL         string            `yaml:"baseURL,omitempty"`
	Token           string            `yaml:"token,omitempty"`
	AuthHeader      string            `yaml:"authHeader,omitempty"`
	Timeout         time.Duration     `yaml:"timeout,omitempty"`
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `yaml:"maxRedirects,omitempty"` // 0 keeps the client default
	ValidateSSL     *bool             `yaml:"validateSSL,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`   // Default headers for all requests
	Variables       map[string]string `yaml:"variables,omitempty"` // Seed values for the Variable Store
	Envelope        *bool             `yaml:"envelope,omitempty"`
	RateLimit       float64           `yaml:"rateLimit,omitempty"` // requests per second, 0 = unlimited
	History         string            `yaml:"history,omitempty"`   // SQLite run-history database
	Output          string            `yaml:"output,omitempty"`
	Metrics         []string          `yaml:"metrics,omitempty"`
	OTLPEndpoint    string            `yaml:"otlpEndpoint,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
}

// Error is a configuration problem: an unreadable or malformed file, or
// an invalid value.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BoolPtr returns a pointer to b, for optional settings.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetEnvelope returns the envelope setting, defaulting to false
func (c *Config) GetEnvelope() bool {
	return getBool(c.Envelope, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".tstit.yaml",
	".tstit.yml",
	"tstit.yaml",
	".tstit.json",
}

// LoadConfig loads configuration from the specified path or searches the
// working directory for a config file.
func LoadConfig(path string) (*Config, error) {
	return Load(afero.NewOsFs(), path)
}

// Load is LoadConfig on an arbitrary filesystem.
func Load(fsys afero.Fs, path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(fsys, path)
	}
	return FindAndLoadConfig(fsys, ".")
}

// FindAndLoadConfig searches for a config file in the given directory.
// Defaults are returned when there is none.
func FindAndLoadConfig(fsys afero.Fs, dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := fsys.Stat(configPath); err == nil {
			return loadConfigFromFile(fsys, configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadConfigFromFile(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Path: path, Err: errors.New("file not found")}
		}
		return nil, &Error{Path: path, Err: err}
	}

	config := DefaultConfig()
	if len(data) == 0 {
		return config, nil
	}
	// JSON is a subset of YAML, so one decoder serves both file kinds.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return config, nil
}

// Validate checks values a file or flag may have set out of range.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative, got %g", c.RateLimit)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("maxRedirects must not be negative, got %d", c.MaxRedirects)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Token != "" {
		result.Token = other.Token
	}
	if other.AuthHeader != "" {
		result.AuthHeader = other.AuthHeader
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OTLPEndpoint != "" {
		result.OTLPEndpoint = other.OTLPEndpoint
	}
	if len(other.Metrics) > 0 {
		result.Metrics = other.Metrics
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Envelope != nil {
		result.Envelope = other.Envelope
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Variables = mergeMaps(c.Variables, other.Variables)

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// SaveConfig saves the configuration to a file as YAML
func (c *Config) SaveConfig(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0644)
}
