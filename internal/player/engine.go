// Package player owns the ffplay processes behind the jukebox: a single
// exclusive track engine plus a fire-and-forget sampler for soundboard clips.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/services"
	"jukebox/internal/slots"
)

// ErrBusy is returned when a track is started while another is playing.
var ErrBusy = errors.New("player: a track is already playing")

// Result classifies how a playback ended.
type Result string

const (
	// ResultFinished means the track played to its natural end.
	ResultFinished Result = "finished"
	// ResultAborted means the track was cut off on request.
	ResultAborted Result = "aborted"
	// ResultCrashed means the player process failed mid-track.
	ResultCrashed Result = "crashed"
)

// Outcome reports the end of one playback. Exactly one outcome is delivered
// per successful Start.
type Outcome struct {
	Track  slots.TrackSlot
	Result Result
	Err    error
}

type playback struct {
	track   slots.TrackSlot
	cancel  context.CancelFunc
	aborted bool
	done    chan struct{}
}

// Engine plays at most one track at a time and reports each ending on Done.
type Engine struct {
	ffplayBinary string
	exec         services.Executor
	logger       *slog.Logger

	mu       sync.Mutex
	current  *playback
	outcomes chan Outcome
}

// Option configures the engine.
type Option func(*Engine)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(e *Engine) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// NewEngine constructs a track playback engine.
func NewEngine(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := &Engine{
		ffplayBinary: cfg.FFplayBinary(),
		exec:         services.NewCommandExecutor(),
		logger:       logger.With(logging.String(logging.FieldComponent, "player")),
		outcomes:     make(chan Outcome, 8),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Done delivers one Outcome per playback, in start order.
func (e *Engine) Done() <-chan Outcome {
	return e.outcomes
}

// Playing reports the track currently playing, if any.
func (e *Engine) Playing() (slots.TrackSlot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return slots.TrackSlot{}, false
	}
	return e.current.track, true
}

// Start begins playing the track's audio file. It returns ErrBusy if another
// track is still playing.
func (e *Engine) Start(ctx context.Context, track slots.TrackSlot) error {
	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		return ErrBusy
	}
	playCtx, cancel := context.WithCancel(ctx)
	current := &playback{
		track:  track,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.current = current
	e.mu.Unlock()

	e.logger.Info("playback started",
		logging.Int(logging.FieldTrack, track.Number),
		logging.String("name", track.Name))

	go e.run(playCtx, current)
	return nil
}

func (e *Engine) run(ctx context.Context, current *playback) {
	err := e.exec.Run(ctx, e.ffplayBinary, []string{
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		current.track.AudioPath,
	}, nil)

	e.mu.Lock()
	aborted := current.aborted
	e.current = nil
	e.mu.Unlock()

	outcome := Outcome{Track: current.track, Result: ResultFinished}
	switch {
	case aborted || errors.Is(err, context.Canceled):
		outcome.Result = ResultAborted
	case err != nil:
		outcome.Result = ResultCrashed
		outcome.Err = fmt.Errorf("ffplay: %w", err)
		e.logger.Error("playback crashed",
			logging.Int(logging.FieldTrack, current.track.Number),
			logging.Error(err))
	}
	if outcome.Result != ResultCrashed {
		e.logger.Info("playback ended",
			logging.Int(logging.FieldTrack, current.track.Number),
			logging.String("result", string(outcome.Result)))
	}

	close(current.done)
	e.outcomes <- outcome
}

// Abort stops the current playback and waits for the player process to be
// reaped. Aborting while idle is a no-op.
func (e *Engine) Abort() {
	e.mu.Lock()
	current := e.current
	if current != nil {
		current.aborted = true
		current.cancel()
	}
	e.mu.Unlock()

	if current != nil {
		<-current.done
	}
}
