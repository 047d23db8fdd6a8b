package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateKeypad(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateKeypad() error {
	if len(c.Keypad.Lines) != 4 {
		return fmt.Errorf("keypad.lines must list exactly 4 GPIO lines, got %d", len(c.Keypad.Lines))
	}
	seen := make(map[int]struct{}, len(c.Keypad.Lines))
	for _, line := range c.Keypad.Lines {
		if line < 0 {
			return fmt.Errorf("keypad.lines contains negative line %d", line)
		}
		if _, ok := seen[line]; ok {
			return fmt.Errorf("keypad.lines contains duplicate line %d", line)
		}
		seen[line] = struct{}{}
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.EntryTimeoutSeconds <= 0 {
		return errors.New("player.entry_timeout_seconds must be positive")
	}
	if c.Player.SoundboardTimeoutSeconds <= 0 {
		return errors.New("player.soundboard_timeout_seconds must be positive")
	}
	if c.Player.MaxTrackNumber < 1 || c.Player.MaxTrackNumber > 9999 {
		return errors.New("player.max_track_number must be between 1 and 9999")
	}
	if c.Player.BankCount < 1 || c.Player.BankCount > 10 {
		return errors.New("player.bank_count must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.Workers > 8 {
		return errors.New("import.workers above 8 would exhaust the device; lower it")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.Host == "" {
		return nil
	}
	if c.Remote.User == "" {
		return errors.New("remote.user must be set when remote.host is configured")
	}
	if c.Remote.Port < 1 || c.Remote.Port > 65535 {
		return errors.New("remote.port must be a valid TCP port")
	}
	return nil
}
