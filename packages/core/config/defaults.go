package config

import "time"

const (
	DefaultTimeout    = 30 * time.Second
	DefaultAuthHeader = "Authorization"
	DefaultOutput     = "console"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		AuthHeader:      DefaultAuthHeader,
		Timeout:         DefaultTimeout,
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
		Envelope:        BoolPtr(false),
		Output:          DefaultOutput,
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.BaseURL == defaults.BaseURL &&
		c.Token == defaults.Token &&
		c.AuthHeader == defaults.AuthHeader &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.GetEnvelope() == defaults.GetEnvelope() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		len(c.Variables) == 0 &&
		c.RateLimit == defaults.RateLimit &&
		c.History == defaults.History &&
		c.Output == defaults.Output &&
		len(c.Metrics) == 0 &&
		c.OTLPEndpoint == defaults.OTLPEndpoint &&
		c.GetNoColor() == defaults.GetNoColor()
}
