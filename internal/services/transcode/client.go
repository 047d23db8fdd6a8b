// Package transcode normalizes audio files with ffmpeg, ffprobe, and sox.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jukebox/internal/config"
	"jukebox/internal/services"
)

// Client wraps the audio normalization tools.
type Client struct {
	ffmpegBinary  string
	ffprobeBinary string
	soxBinary     string
	exec          services.Executor
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

// New constructs a transcode client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		ffmpegBinary:  cfg.FFmpegBinary(),
		ffprobeBinary: cfg.FFprobeBinary(),
		soxBinary:     cfg.SoxBinary(),
		exec:          services.NewCommandExecutor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SampleRate probes the sample rate of the first audio stream.
func (c *Client) SampleRate(ctx context.Context, path string) (int, error) {
	var lines []string
	err := c.exec.Run(ctx, c.ffprobeBinary, []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}, func(line string) {
		lines = append(lines, strings.TrimSpace(line))
	})
	if err != nil {
		return 0, fmt.Errorf("probe sample rate: %w", err)
	}
	for _, line := range lines {
		if rate, convErr := strconv.Atoi(line); convErr == nil && rate > 0 {
			return rate, nil
		}
	}
	return 0, errors.New("transcode: ffprobe reported no sample rate")
}

// ToMP3 converts src to MP3 at the best VBR quality.
func (c *Client) ToMP3(ctx context.Context, src, dest string) error {
	if err := c.exec.Run(ctx, c.ffmpegBinary, []string{
		"-y", "-i", src, "-q:a", "0", dest,
	}, nil); err != nil {
		return fmt.Errorf("convert to mp3: %w", err)
	}
	return nil
}

// ToWAV converts src to WAV.
func (c *Client) ToWAV(ctx context.Context, src, dest string) error {
	if err := c.exec.Run(ctx, c.ffmpegBinary, []string{
		"-y", "-i", src, dest,
	}, nil); err != nil {
		return fmt.Errorf("convert to wav: %w", err)
	}
	return nil
}

// Resample rewrites src at the given sample rate.
func (c *Client) Resample(ctx context.Context, src, dest string, rate int) error {
	if rate <= 0 {
		return fmt.Errorf("transcode: invalid sample rate %d", rate)
	}
	if err := c.exec.Run(ctx, c.ffmpegBinary, []string{
		"-y", "-i", src, "-ar", strconv.Itoa(rate), dest,
	}, nil); err != nil {
		return fmt.Errorf("resample to %d Hz: %w", rate, err)
	}
	return nil
}

// TrimSilence removes leading silence from src. Sample clips must start the
// instant the key is pressed.
func (c *Client) TrimSilence(ctx context.Context, src, dest string) error {
	if err := c.exec.Run(ctx, c.soxBinary, []string{
		src, dest, "silence", "1", "0.1", "1%",
	}, nil); err != nil {
		return fmt.Errorf("trim silence: %w", err)
	}
	return nil
}
