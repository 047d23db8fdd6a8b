// Package bpm wraps the bpm-tag tempo analyzer.
package bpm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"jukebox/internal/config"
	"jukebox/internal/services"
)

var bpmPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s+BPM`)

// Client runs bpm-tag against a track and reads back the detected tempo.
type Client struct {
	binary string
	exec   services.Executor
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// New constructs a bpm client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		binary: cfg.BpmTagBinary(),
		exec:   services.NewCommandExecutor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Analyze tags path in place and returns the detected BPM.
func (c *Client) Analyze(ctx context.Context, path string) (float64, error) {
	var detected float64
	err := c.exec.Run(ctx, c.binary, []string{path}, func(line string) {
		if match := bpmPattern.FindStringSubmatch(line); match != nil {
			if value, parseErr := strconv.ParseFloat(match[1], 64); parseErr == nil {
				detected = value
			}
		}
	})
	if err != nil {
		return 0, fmt.Errorf("bpm-tag: %w", err)
	}
	if detected <= 0 {
		return 0, fmt.Errorf("bpm-tag: no tempo reported for %s", path)
	}
	return detected, nil
}
