package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeKeypad()
	c.normalizeImport()
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SongsDir, err = expandPath(c.Paths.SongsDir); err != nil {
		return fmt.Errorf("paths.songs_dir: %w", err)
	}
	if c.Paths.SamplesDir, err = expandPath(c.Paths.SamplesDir); err != nil {
		return fmt.Errorf("paths.samples_dir: %w", err)
	}
	if c.Paths.AssetsDir, err = expandPath(c.Paths.AssetsDir); err != nil {
		return fmt.Errorf("paths.assets_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeKeypad() {
	c.Keypad.GPIOBaseDir = strings.TrimSpace(c.Keypad.GPIOBaseDir)
	if c.Keypad.GPIOBaseDir == "" {
		c.Keypad.GPIOBaseDir = defaultGPIOBaseDir
	}
	if len(c.Keypad.Lines) == 0 {
		c.Keypad.Lines = append([]int{}, defaultKeypadLines...)
	}
	if c.Keypad.PollIntervalMs <= 0 {
		c.Keypad.PollIntervalMs = defaultPollIntervalMs
	}
	if c.Keypad.SamplesPerRead <= 0 {
		c.Keypad.SamplesPerRead = defaultSamplesPerRead
	}
	c.Keypad.ChipDevice = strings.TrimSpace(c.Keypad.ChipDevice)
	if c.Keypad.ChipDevice == "" {
		c.Keypad.ChipDevice = defaultChipDevice
	}
}

func (c *Config) normalizeImport() {
	if c.Import.Workers <= 0 {
		c.Import.Workers = defaultImportWorkers
	}
	if c.Import.TimeoutSeconds <= 0 {
		c.Import.TimeoutSeconds = defaultImportTimeoutSeconds
	}
	if c.Import.MaxSampleBytes <= 0 {
		c.Import.MaxSampleBytes = defaultMaxSampleBytes
	}
	if c.Import.SampleRate <= 0 {
		c.Import.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeRemote() error {
	c.Remote.Host = strings.TrimSpace(c.Remote.Host)
	c.Remote.User = strings.TrimSpace(c.Remote.User)
	if c.Remote.Port <= 0 {
		c.Remote.Port = defaultRemotePort
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = defaultRemoteTimeoutSeconds
	}
	if c.Remote.IdentityFile != "" {
		expanded, err := expandPath(c.Remote.IdentityFile)
		if err != nil {
			return fmt.Errorf("remote.identity_file: %w", err)
		}
		c.Remote.IdentityFile = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
