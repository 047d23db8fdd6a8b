// Package remote delegates download and transcode work to a configured worker
// host over SSH, sparing the jukebox's own CPU and network.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/services"
)

// Client runs acquisition commands on the remote worker and copies results back.
type Client struct {
	host         string
	user         string
	port         int
	identityFile string
	timeout      time.Duration
	sshBinary    string
	scpBinary    string
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

// New constructs a remote client, or nil when no host is configured.
func New(cfg *config.Config, opts ...Option) *Client {
	if !cfg.RemoteConfigured() {
		return nil
	}
	client := &Client{
		host:         cfg.Remote.Host,
		user:         cfg.Remote.User,
		port:         cfg.Remote.Port,
		identityFile: cfg.Remote.IdentityFile,
		timeout:      time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		sshBinary:    cfg.SSHBinary(),
		scpBinary:    cfg.SCPBinary(),
		exec:         services.NewCommandExecutor(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether delegation is available.
func (c *Client) Enabled() bool {
	return c != nil
}

func (c *Client) sshArgs(script string) []string {
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		"-p", strconv.Itoa(c.port),
	}
	if c.identityFile != "" {
		args = append(args, "-i", c.identityFile)
	}
	return append(args, c.user+"@"+c.host, script)
}

func (c *Client) run(ctx context.Context, script string, onOutput func(string)) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.exec.Run(ctx, c.sshBinary, c.sshArgs(script), onOutput)
}

// Fetch downloads link on the remote worker into remoteDir and returns the
// remote path of the downloaded file. The worker is expected to have yt-dlp
// and spotdl in its default environment.
func (c *Client) Fetch(ctx context.Context, link, remoteDir string, spotify bool) (string, error) {
	tool := "yt-dlp --no-playlist -x --audio-format mp3"
	if spotify {
		tool = "spotdl --format mp3"
	}
	script := fmt.Sprintf("mkdir -p %q && cd %q && %s %q && ls -1 %q",
		remoteDir, remoteDir, tool, link, remoteDir)

	var lines []string
	if err := c.run(ctx, script, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}); err != nil {
		return "", fmt.Errorf("remote fetch: %w", err)
	}
	if len(lines) == 0 {
		return "", errors.New("remote: fetch produced no file")
	}
	return remoteDir + "/" + lines[len(lines)-1], nil
}

// AnalyzeBPM runs bpm-tag on the remote file so the tags travel back with it.
// Failures are reported but are not fatal to an import.
func (c *Client) AnalyzeBPM(ctx context.Context, remotePath string) error {
	if err := c.run(ctx, fmt.Sprintf("bpm-tag %q", remotePath), nil); err != nil {
		return fmt.Errorf("remote bpm-tag: %w", err)
	}
	return nil
}

// CopyBack transfers a remote file to a local path with scp.
func (c *Client) CopyBack(ctx context.Context, remotePath, localPath string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-P", strconv.Itoa(c.port),
	}
	if c.identityFile != "" {
		args = append(args, "-i", c.identityFile)
	}
	args = append(args, c.user+"@"+c.host+":"+remotePath, localPath)
	if err := c.exec.Run(runCtx, c.scpBinary, args, nil); err != nil {
		return fmt.Errorf("copy back %s: %w", remotePath, err)
	}
	return nil
}

// Cleanup removes a remote working directory, best effort.
func (c *Client) Cleanup(ctx context.Context, remoteDir string) error {
	if remoteDir == "" || remoteDir == "/" {
		return errors.New("remote: refusing to remove suspicious directory")
	}
	if err := c.run(ctx, fmt.Sprintf("rm -rf %q", remoteDir), nil); err != nil {
		return fmt.Errorf("remote cleanup: %w", err)
	}
	return nil
}
