// Package logging configures slog with console and JSON handlers plus the
// shared structured field vocabulary used across the daemon.
package logging
