// Package feedback turns control-loop events into audible cues for the
// operator. The jukebox has no screen, so a wrong selection has to be heard.
package feedback

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/player"
)

// Sink receives control-loop events worth surfacing to the operator.
type Sink interface {
	// InvalidSelection fires when a selection cannot be parsed or is out of range.
	InvalidSelection(ctx context.Context, input string)
	// SlotEmpty fires when a confirmed track number has nothing stored.
	SlotEmpty(ctx context.Context, number int)
	// SampleMissing fires when a soundboard key has no clip in the active bank.
	SampleMissing(ctx context.Context, bank int, key string)
	// BankChanged fires after the active sample bank switches.
	BankChanged(ctx context.Context, bank int)
	// ImportFailed fires when a background import gives up on a slot.
	ImportFailed(ctx context.Context, target string)
}

// CueSink plays short cue clips from the assets directory and logs each event.
// Missing cue files degrade to log-only feedback.
type CueSink struct {
	assetsDir string
	sampler   *player.Sampler
	logger    *slog.Logger
}

// NewCueSink constructs the audible feedback sink.
func NewCueSink(cfg *config.Config, sampler *player.Sampler, logger *slog.Logger) *CueSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CueSink{
		assetsDir: cfg.Paths.AssetsDir,
		sampler:   sampler,
		logger:    logger.With(logging.String(logging.FieldComponent, "feedback")),
	}
}

func (s *CueSink) cue(ctx context.Context, name string) {
	if s.assetsDir == "" || s.sampler == nil {
		return
	}
	path := filepath.Join(s.assetsDir, name)
	if _, err := os.Stat(path); err != nil {
		return
	}
	s.sampler.Play(ctx, path)
}

// InvalidSelection implements Sink.
func (s *CueSink) InvalidSelection(ctx context.Context, input string) {
	s.logger.Info("invalid selection", logging.String("input", input))
	s.cue(ctx, "invalid.wav")
}

// SlotEmpty implements Sink.
func (s *CueSink) SlotEmpty(ctx context.Context, number int) {
	s.logger.Info("track slot is empty", logging.Int(logging.FieldTrack, number))
	s.cue(ctx, "empty.wav")
}

// SampleMissing implements Sink.
func (s *CueSink) SampleMissing(ctx context.Context, bank int, key string) {
	s.logger.Info("sample slot is empty",
		logging.Int(logging.FieldBank, bank),
		logging.String(logging.FieldSampleKey, key))
	s.cue(ctx, "empty.wav")
}

// BankChanged implements Sink.
func (s *CueSink) BankChanged(ctx context.Context, bank int) {
	s.logger.Info("sample bank changed", logging.Int(logging.FieldBank, bank))
	s.cue(ctx, "bank"+strconv.Itoa(bank)+".wav")
}

// ImportFailed implements Sink.
func (s *CueSink) ImportFailed(ctx context.Context, target string) {
	s.logger.Warn("import failed", logging.String("target", target))
	s.cue(ctx, "error.wav")
}

// NoopSink discards every event. Useful in tests.
type NoopSink struct{}

// NewNoopSink returns a sink that does nothing.
func NewNoopSink() *NoopSink { return &NoopSink{} }

// InvalidSelection implements Sink.
func (*NoopSink) InvalidSelection(context.Context, string) {}

// SlotEmpty implements Sink.
func (*NoopSink) SlotEmpty(context.Context, int) {}

// SampleMissing implements Sink.
func (*NoopSink) SampleMissing(context.Context, int, string) {}

// BankChanged implements Sink.
func (*NoopSink) BankChanged(context.Context, int) {}

// ImportFailed implements Sink.
func (*NoopSink) ImportFailed(context.Context, string) {}
