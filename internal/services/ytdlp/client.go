// Package ytdlp fetches audio from streaming platforms via yt-dlp and spotdl.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/services"
)

var (
	youtubeLinkPattern  = regexp.MustCompile(`^(http(s)?://)?((w){3}\.)?youtu(be|\.be)?(\.com)?/.+`)
	youtubeVideoPattern = regexp.MustCompile(`(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)\S+`)
)

// IsSpotifyURL reports whether the link should be fetched with spotdl.
func IsSpotifyURL(link string) bool {
	return strings.Contains(strings.ToLower(link), "spotify.com")
}

// Client downloads a single track from a source URL into a directory.
type Client struct {
	ytdlpBinary  string
	spotdlBinary string
	timeout      time.Duration
	exec         services.Executor
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

// New constructs a fetch client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		ytdlpBinary:  cfg.YtdlpBinary(),
		spotdlBinary: cfg.SpotdlBinary(),
		timeout:      time.Duration(cfg.Import.TimeoutSeconds) * time.Second,
		exec:         services.NewCommandExecutor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch downloads the audio behind link into destDir as MP3 and returns the
// downloaded file path. Playlists are rejected up front.
func (c *Client) Fetch(ctx context.Context, link, destDir string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", errors.New("ytdlp: link is required")
	}
	if youtubeLinkPattern.MatchString(link) && !youtubeVideoPattern.MatchString(link) {
		return "", errors.New("ytdlp: youtube link is not a video link")
	}
	if IsSpotifyURL(link) && strings.Contains(strings.ToLower(link), "playlist") {
		return "", errors.New("ytdlp: playlists are not allowed, provide a single track URL")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var err error
	if IsSpotifyURL(link) {
		err = c.exec.Run(ctx, c.spotdlBinary, []string{
			"--format", "mp3",
			"--output", destDir,
			link,
		}, nil)
	} else {
		err = c.exec.Run(ctx, c.ytdlpBinary, []string{
			"--no-playlist",
			"-x",
			"--audio-format", "mp3",
			"-o", filepath.Join(destDir, "%(title)s.%(ext)s"),
			link,
		}, nil)
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}

	return NewestFile(destDir)
}

// NewestFile returns the most recently modified regular file in dir.
func NewestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list downloads: %w", err)
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", errors.New("ytdlp: no file was downloaded")
	}
	return newest, nil
}
