// Package config loads, defaults, and validates the TOML configuration
// that drives the renaming pipeline.
package config
