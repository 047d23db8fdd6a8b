package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	SongsDir   string `toml:"songs_dir"`
	SamplesDir string `toml:"samples_dir"`
	AssetsDir  string `toml:"assets_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Keypad contains configuration for the hardware input lines.
type Keypad struct {
	GPIOBaseDir    string `toml:"gpio_base_dir"`
	Lines          []int  `toml:"lines"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
	SamplesPerRead int    `toml:"samples_per_read"`
	ChipDevice     string `toml:"chip_device"`
}

// Player contains playback and control-loop timing configuration.
type Player struct {
	EntryTimeoutSeconds      int `toml:"entry_timeout_seconds"`
	SoundboardTimeoutSeconds int `toml:"soundboard_timeout_seconds"`
	MaxTrackNumber           int `toml:"max_track_number"`
	BankCount                int `toml:"bank_count"`
}

// Import contains configuration for the download/import pipeline.
type Import struct {
	Workers        int   `toml:"workers"`
	TimeoutSeconds int   `toml:"timeout_seconds"`
	MaxSampleBytes int64 `toml:"max_sample_bytes"`
	SampleRate     int   `toml:"sample_rate"`
}

// Remote contains configuration for delegating acquisition to a remote worker.
type Remote struct {
	Host           string `toml:"host"`
	User           string `toml:"user"`
	Port           int    `toml:"port"`
	IdentityFile   string `toml:"identity_file"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Imports        bool   `toml:"imports"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the jukebox daemon.
//
// Configuration sections by subsystem:
//   - Paths: media/asset directories, daemon state dir, API bind address
//   - Keypad: GPIO line numbers and sampling cadence
//   - Player: control-loop timeouts and slot ranges
//   - Import: worker-pool bound and normalization settings
//   - Remote: optional remote delegation host for heavy downloads
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Keypad        Keypad        `toml:"keypad"`
	Player        Player        `toml:"player"`
	Import        Import        `toml:"import"`
	Remote        Remote        `toml:"remote"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jukebox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jukebox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.SongsDir,
		c.Paths.SamplesDir,
		c.Paths.DataDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.AssetsDir) != "" {
		// Cue assets may live on read-only media; missing dir only disables cues.
		_ = os.MkdirAll(c.Paths.AssetsDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the slot database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jukebox.db")
}

// SocketPath returns the location of the IPC unix socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "jukebox.sock")
}

// LockPath returns the location of the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "jukebox.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "jukebox.log")
}

// FFplayBinary returns the playback executable name.
func (c *Config) FFplayBinary() string { return "ffplay" }

// FFmpegBinary returns the transcode executable name.
func (c *Config) FFmpegBinary() string { return "ffmpeg" }

// FFprobeBinary returns the media-probe executable name.
func (c *Config) FFprobeBinary() string { return "ffprobe" }

// SoxBinary returns the silence-trim executable name.
func (c *Config) SoxBinary() string { return "sox" }

// YtdlpBinary returns the URL fetch executable name.
func (c *Config) YtdlpBinary() string { return "yt-dlp" }

// SpotdlBinary returns the Spotify fetch executable name.
func (c *Config) SpotdlBinary() string { return "spotdl" }

// BpmTagBinary returns the tempo analysis executable name.
func (c *Config) BpmTagBinary() string { return "bpm-tag" }

// SSHBinary returns the remote shell executable name.
func (c *Config) SSHBinary() string { return "ssh" }

// SCPBinary returns the remote copy executable name.
func (c *Config) SCPBinary() string { return "scp" }

// RemoteConfigured reports whether a remote delegation host is set.
func (c *Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.Remote.Host) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
