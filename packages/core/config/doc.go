// Package config handles configuration loading and management for tstit.
//
// It provides functionality for:
//   - Loading configuration from .tstit.yaml, .tstit.yml, tstit.yaml or
//     .tstit.json files
//   - Default configuration values
//   - Layering flag and environment overrides on top of a file
package config
