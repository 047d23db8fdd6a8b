// Package config loads, normalizes, and validates the TOML configuration
// for the jukebox daemon and CLI.
package config
