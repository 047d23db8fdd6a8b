package player

import (
	"context"
	"log/slog"
	"sync"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/services"
)

// Sampler plays short clips fire-and-forget. Clips overlap freely with each
// other and with the track engine.
type Sampler struct {
	ffplayBinary string
	exec         services.Executor
	logger       *slog.Logger
	wg           sync.WaitGroup
}

// SamplerOption configures the sampler.
type SamplerOption func(*Sampler)

// WithSamplerExecutor injects a custom executor (primarily for tests).
func WithSamplerExecutor(exec services.Executor) SamplerOption {
	return func(s *Sampler) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// NewSampler constructs a clip sampler.
func NewSampler(cfg *config.Config, logger *slog.Logger, opts ...SamplerOption) *Sampler {
	if logger == nil {
		logger = logging.NewNop()
	}
	sampler := &Sampler{
		ffplayBinary: cfg.FFplayBinary(),
		exec:         services.NewCommandExecutor(),
		logger:       logger.With(logging.String(logging.FieldComponent, "sampler")),
	}
	for _, opt := range opts {
		opt(sampler)
	}
	return sampler
}

// Play starts the clip at path and returns immediately. Errors are logged,
// never surfaced; a broken clip must not stall the soundboard.
func (s *Sampler) Play(ctx context.Context, path string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.exec.Run(ctx, s.ffplayBinary, []string{
			"-nodisp", "-autoexit", "-loglevel", "quiet",
			path,
		}, nil)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("sample playback failed",
				logging.String("path", path),
				logging.Error(err))
		}
	}()
}

// Wait blocks until all in-flight clips have finished. Used on shutdown.
func (s *Sampler) Wait() {
	s.wg.Wait()
}
