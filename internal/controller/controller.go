// Package controller runs the jukebox control loop: it consumes key events,
// drives track playback and the soundboard, and owns the inactivity timers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/feedback"
	"jukebox/internal/keypad"
	"jukebox/internal/logging"
	"jukebox/internal/player"
	"jukebox/internal/slots"
)

// State names the controller's current mode.
type State string

const (
	// StateIdle means no number entry, playback, or soundboard is active.
	StateIdle State = "idle"
	// StateEntering means a track number is being keyed in.
	StateEntering State = "entering"
	// StatePlaying means a track is playing.
	StatePlaying State = "playing"
	// StateSoundboard means keys trigger sample clips instead of digits.
	StateSoundboard State = "soundboard"
)

// PlaybackEngine is the part of the player the controller drives.
type PlaybackEngine interface {
	Start(ctx context.Context, track slots.TrackSlot) error
	Abort()
	Done() <-chan player.Outcome
}

// SamplePlayer triggers fire-and-forget clips.
type SamplePlayer interface {
	Play(ctx context.Context, path string)
}

// Repository is the part of the slot store the controller reads.
type Repository interface {
	GetTrack(ctx context.Context, number int) (*slots.TrackSlot, error)
	OccupiedTrackNumbers(ctx context.Context) ([]int, error)
	GetSample(ctx context.Context, bank int, key string) (*slots.SampleSlot, error)
}

// Snapshot is a point-in-time view of the controller for status reporting.
type Snapshot struct {
	State   State
	Buffer  string
	Track   int
	Shuffle bool
	Bank    int
}

// Controller is the single owner of the control state. All mutation happens
// on the run goroutine.
type Controller struct {
	engine  PlaybackEngine
	sampler SamplePlayer
	repo    Repository
	sink    feedback.Sink
	logger  *slog.Logger

	entryTimeout      time.Duration
	soundboardTimeout time.Duration
	maxTrackNumber    int
	maxDigits         int
	bankCount         int
	pickTrack         func(candidates []int) int

	state   State
	buffer  string
	track   slots.TrackSlot
	shuffle bool
	bank    int
	timer   *time.Timer

	snapMu sync.Mutex
	snap   Snapshot

	requests chan playRequest

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type playRequest struct {
	number int
	reply  chan error
}

// Option configures the controller.
type Option func(*Controller)

// WithTrackPicker overrides the random shuffle selection (for tests).
func WithTrackPicker(pick func(candidates []int) int) Option {
	return func(c *Controller) {
		if pick != nil {
			c.pickTrack = pick
		}
	}
}

// New constructs the control loop.
func New(cfg *config.Config, engine PlaybackEngine, sampler SamplePlayer, repo Repository, sink feedback.Sink, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = feedback.NewNoopSink()
	}
	ctrl := &Controller{
		engine:            engine,
		sampler:           sampler,
		repo:              repo,
		sink:              sink,
		logger:            logger.With(logging.String(logging.FieldComponent, "controller")),
		entryTimeout:      time.Duration(cfg.Player.EntryTimeoutSeconds) * time.Second,
		soundboardTimeout: time.Duration(cfg.Player.SoundboardTimeoutSeconds) * time.Second,
		maxTrackNumber:    cfg.Player.MaxTrackNumber,
		maxDigits:         len(strconv.Itoa(cfg.Player.MaxTrackNumber)),
		bankCount:         cfg.Player.BankCount,
		pickTrack: func(candidates []int) int {
			return candidates[rand.Intn(len(candidates))]
		},
		state:    StateIdle,
		requests: make(chan playRequest),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// Start launches the control loop consuming events until Stop. Calling
// Start on a running controller is a no-op; after Stop it may be started
// again.
func (c *Controller) Start(ctx context.Context, events <-chan keypad.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.timer = time.NewTimer(time.Hour)
	c.stopTimer()
	go c.run(runCtx, events, c.done)
}

// Stop shuts the loop down and aborts any playback.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.engine.Abort()
}

// Status returns the current controller snapshot.
func (c *Controller) Status() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

// StopPlayback aborts the current track on request from the IPC or HTTP
// surface. The resulting aborted outcome drives the state change on the run
// goroutine.
func (c *Controller) StopPlayback() {
	c.engine.Abort()
}

// PlayTrack starts the given track on request from the IPC surface. The
// request is handled on the run goroutine so it cannot race the keypad.
func (c *Controller) PlayTrack(ctx context.Context, number int) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return errors.New("controller not running")
	}

	req := playRequest{number: number, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errors.New("controller stopped")
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handlePlayRequest(ctx context.Context, number int) error {
	if number < 0 || number > c.maxTrackNumber {
		return fmt.Errorf("track number %d out of range 0..%d", number, c.maxTrackNumber)
	}
	track, err := c.repo.GetTrack(ctx, number)
	if err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			return fmt.Errorf("track %d is empty", number)
		}
		return err
	}
	if c.state == StatePlaying {
		c.abortPlayback()
	}
	c.toIdle()
	c.play(ctx, *track, false)
	if c.state != StatePlaying {
		return fmt.Errorf("track %d failed to start", number)
	}
	return nil
}

func (c *Controller) run(ctx context.Context, events <-chan keypad.Event, done chan struct{}) {
	defer close(done)
	for {
		c.publishSnapshot()
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.handleKey(ctx, event.Key)
		case outcome := <-c.engine.Done():
			c.handleOutcome(ctx, outcome)
		case req := <-c.requests:
			req.reply <- c.handlePlayRequest(ctx, req.number)
		case <-c.timer.C:
			c.handleTimeout()
		}
	}
}

func (c *Controller) publishSnapshot() {
	c.snapMu.Lock()
	c.snap = Snapshot{
		State:   c.state,
		Buffer:  c.buffer,
		Track:   c.track.Number,
		Shuffle: c.shuffle,
		Bank:    c.bank,
	}
	c.snapMu.Unlock()
}

func (c *Controller) stopTimer() {
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
}

func (c *Controller) resetTimer(d time.Duration) {
	c.stopTimer()
	c.timer.Reset(d)
}

func (c *Controller) toIdle() {
	c.stopTimer()
	c.state = StateIdle
	c.buffer = ""
	c.shuffle = false
	c.track = slots.TrackSlot{}
}

func (c *Controller) handleKey(ctx context.Context, key keypad.Key) {
	if key == keypad.KeyYellow {
		c.toggleSoundboard()
		return
	}
	switch c.state {
	case StateIdle:
		c.handleIdleKey(ctx, key)
	case StateEntering:
		c.handleEnteringKey(ctx, key)
	case StatePlaying:
		c.handlePlayingKey(ctx, key)
	case StateSoundboard:
		c.handleSoundboardKey(ctx, key)
	}
}

func (c *Controller) toggleSoundboard() {
	if c.state == StateSoundboard {
		c.logger.Info("soundboard off")
		c.toIdle()
		return
	}
	if c.state == StatePlaying {
		c.abortPlayback()
	}
	c.stopTimer()
	c.state = StateSoundboard
	c.buffer = ""
	c.shuffle = false
	c.bank = 0
	c.resetTimer(c.soundboardTimeout)
	c.logger.Info("soundboard on", logging.Int(logging.FieldBank, c.bank))
}

func (c *Controller) handleIdleKey(ctx context.Context, key keypad.Key) {
	if digit, ok := key.Digit(); ok {
		c.state = StateEntering
		c.buffer = strconv.Itoa(digit)
		c.resetTimer(c.entryTimeout)
		return
	}
	if key == keypad.KeyBlue {
		c.startShuffle(ctx)
	}
}

func (c *Controller) handleEnteringKey(ctx context.Context, key keypad.Key) {
	if digit, ok := key.Digit(); ok {
		if len(c.buffer) < c.maxDigits {
			c.buffer += strconv.Itoa(digit)
		}
		c.resetTimer(c.entryTimeout)
		return
	}
	switch {
	case key == keypad.KeyClear:
		c.toIdle()
	case key == keypad.KeyConfirm:
		buffer := c.buffer
		c.toIdle()
		c.confirmSelection(ctx, buffer)
	case key == keypad.KeyBlue:
		c.toIdle()
		c.startShuffle(ctx)
	default:
		c.resetTimer(c.entryTimeout)
	}
}

func (c *Controller) handlePlayingKey(ctx context.Context, key keypad.Key) {
	switch {
	case key == keypad.KeyRed:
		c.abortPlayback()
		c.toIdle()
	case key == keypad.KeyBlue && !c.shuffle:
		c.abortPlayback()
		c.startShuffle(ctx)
	}
}

// abortPlayback stops the engine and reaps the outcome of the current
// playback so it cannot be misread as belonging to a later track. Exactly one
// outcome is in flight whenever the controller is in the playing state.
func (c *Controller) abortPlayback() {
	c.engine.Abort()
	if c.state == StatePlaying {
		<-c.engine.Done()
	}
}

func (c *Controller) handleSoundboardKey(ctx context.Context, key keypad.Key) {
	switch {
	case key == keypad.KeyRed:
		c.bank = (c.bank + 1) % c.bankCount
		c.resetTimer(c.soundboardTimeout)
		c.sink.BankChanged(ctx, c.bank)
	case key == keypad.KeyBlue:
		c.bank = (c.bank - 1 + c.bankCount) % c.bankCount
		c.resetTimer(c.soundboardTimeout)
		c.sink.BankChanged(ctx, c.bank)
	default:
		sampleKey, ok := sampleKeyFor(key)
		if !ok {
			return
		}
		c.resetTimer(c.soundboardTimeout)
		c.playSample(ctx, sampleKey)
	}
}

// sampleKeyFor maps keypad keys to soundboard slot identifiers. Clear and
// Confirm double as the R and G pads while the soundboard is active.
func sampleKeyFor(key keypad.Key) (string, bool) {
	if digit, ok := key.Digit(); ok {
		return strconv.Itoa(digit), true
	}
	switch key {
	case keypad.KeyClear:
		return "R", true
	case keypad.KeyConfirm:
		return "G", true
	}
	return "", false
}

func (c *Controller) playSample(ctx context.Context, key string) {
	sample, err := c.repo.GetSample(ctx, c.bank, key)
	if err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			c.sink.SampleMissing(ctx, c.bank, key)
		} else {
			c.logger.Error("sample lookup failed",
				logging.Int(logging.FieldBank, c.bank),
				logging.String(logging.FieldSampleKey, key),
				logging.Error(err))
		}
		return
	}
	c.sampler.Play(ctx, sample.AudioPath)
}

func (c *Controller) confirmSelection(ctx context.Context, buffer string) {
	number, err := strconv.Atoi(buffer)
	if err != nil || number < 0 || number > c.maxTrackNumber {
		c.sink.InvalidSelection(ctx, buffer)
		return
	}
	track, err := c.repo.GetTrack(ctx, number)
	if err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			c.sink.SlotEmpty(ctx, number)
		} else {
			c.logger.Error("track lookup failed",
				logging.Int(logging.FieldTrack, number),
				logging.Error(err))
		}
		return
	}
	c.play(ctx, *track, false)
}

func (c *Controller) startShuffle(ctx context.Context) {
	candidates, err := c.repo.OccupiedTrackNumbers(ctx)
	if err != nil {
		c.logger.Error("shuffle candidate lookup failed", logging.Error(err))
		return
	}
	if len(candidates) == 0 {
		c.sink.SlotEmpty(ctx, -1)
		return
	}
	number := c.pickTrack(candidates)
	track, err := c.repo.GetTrack(ctx, number)
	if err != nil {
		c.logger.Error("shuffle track lookup failed",
			logging.Int(logging.FieldTrack, number),
			logging.Error(err))
		return
	}
	c.play(ctx, *track, true)
}

func (c *Controller) play(ctx context.Context, track slots.TrackSlot, shuffle bool) {
	if err := c.engine.Start(ctx, track); err != nil {
		c.logger.Error("playback start failed",
			logging.Int(logging.FieldTrack, track.Number),
			logging.Error(err))
		c.toIdle()
		return
	}
	c.stopTimer()
	c.state = StatePlaying
	c.track = track
	c.shuffle = shuffle
	c.buffer = ""
}

func (c *Controller) handleOutcome(ctx context.Context, outcome player.Outcome) {
	if outcome.Result == player.ResultAborted {
		// Controller-issued aborts reap their own outcome, so this one came
		// from the IPC or HTTP surface.
		if c.state == StatePlaying {
			c.toIdle()
		}
		return
	}
	if outcome.Result == player.ResultCrashed {
		c.logger.Error("player crashed mid-track",
			logging.Int(logging.FieldTrack, outcome.Track.Number),
			logging.Error(outcome.Err))
	}
	if c.state != StatePlaying {
		return
	}
	if c.shuffle {
		c.startShuffle(ctx)
		if c.state == StatePlaying {
			return
		}
	}
	c.toIdle()
}

func (c *Controller) handleTimeout() {
	switch c.state {
	case StateEntering:
		c.logger.Debug("number entry timed out")
		c.toIdle()
	case StateSoundboard:
		c.logger.Info("soundboard timed out")
		c.toIdle()
	}
}
