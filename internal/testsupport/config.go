package testsupport

import (
	"path/filepath"
	"testing"

	"jukebox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SongsDir = filepath.Join(base, "songs")
	cfg.Paths.SamplesDir = filepath.Join(base, "samples")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRemote configures a remote delegation host on the test config.
func WithRemote(host, user string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.Host = host
		cfg.Remote.User = user
	}
}

// WithImportWorkers overrides the orchestrator worker bound.
func WithImportWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Import.Workers = workers
	}
}
