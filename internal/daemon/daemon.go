package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"jukebox/internal/config"
	"jukebox/internal/controller"
	"jukebox/internal/feedback"
	"jukebox/internal/importer"
	"jukebox/internal/keypad"
	"jukebox/internal/logging"
	"jukebox/internal/notifications"
	"jukebox/internal/player"
	"jukebox/internal/services"
	"jukebox/internal/slots"
)

// Daemon coordinates the jukebox subsystems and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *slots.Store
	engine     *player.Engine
	sampler    *player.Sampler
	ctrl       *controller.Controller
	orch       *importer.Orchestrator
	notifier   notifications.Service
	poller     *keypad.Poller
	hotplug    *keypad.HotplugMonitor
	reconciler *slots.Reconciler
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Options customizes daemon construction, primarily for tests.
type Options struct {
	KeypadReader    keypad.Reader
	PlayerExecutor  services.Executor
	ImporterOptions []importer.Option
}

// New constructs a daemon around an opened slot store.
func New(cfg *config.Config, store *slots.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var engineOpts []player.Option
	var samplerOpts []player.SamplerOption
	if opts.PlayerExecutor != nil {
		engineOpts = append(engineOpts, player.WithExecutor(opts.PlayerExecutor))
		samplerOpts = append(samplerOpts, player.WithSamplerExecutor(opts.PlayerExecutor))
	}
	engine := player.NewEngine(cfg, logger, engineOpts...)
	sampler := player.NewSampler(cfg, logger, samplerOpts...)

	notifier := notifications.NewService(cfg)
	sink := feedback.NewCueSink(cfg, sampler, logger)

	importerOpts := append([]importer.Option{importer.WithFeedbackSink(sink)}, opts.ImporterOptions...)
	orch := importer.New(cfg, store, notifier, logger, importerOpts...)

	ctrl := controller.New(cfg, engine, sampler, store, sink, logger)

	var pollerOpts []keypad.PollerOption
	if opts.KeypadReader != nil {
		pollerOpts = append(pollerOpts, keypad.WithReader(opts.KeypadReader))
	}
	poller := keypad.NewPoller(cfg, logger, pollerOpts...)

	d := &Daemon{
		cfg:        cfg,
		logger:     logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:      store,
		engine:     engine,
		sampler:    sampler,
		ctrl:       ctrl,
		orch:       orch,
		notifier:   notifier,
		poller:     poller,
		hotplug:    keypad.NewHotplugMonitor(cfg, logger, poller),
		reconciler: slots.NewReconciler(cfg, store, logger),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and launches every subsystem.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another jukebox daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.reconciler.Start(d.ctx); err != nil {
		d.logger.Warn("media reconciler degraded to sweep-only", logging.Error(err))
	}
	d.poller.Start(d.ctx)
	if err := d.hotplug.Start(d.ctx); err != nil {
		d.logger.Warn("keypad hotplug monitoring unavailable", logging.Error(err))
	}
	d.ctrl.Start(d.ctx, d.poller.Events())

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.Stop()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("jukebox daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the subsystems down in reverse dependency order and releases
// the instance lock.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.ctrl.Stop()
	d.hotplug.Stop()
	d.poller.Stop()
	d.reconciler.Stop()
	d.orch.Close()
	d.engine.Abort()
	d.sampler.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	if d.running.Swap(false) {
		d.logger.Info("jukebox daemon stopped")
	}
}

// Close stops the daemon and closes the slot store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddr reports the HTTP listener address, empty when the API is disabled
// or not started.
func (d *Daemon) APIAddr() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.addr()
}

// ListTracks returns every occupied track slot.
func (d *Daemon) ListTracks(ctx context.Context) ([]*slots.TrackSlot, error) {
	return d.store.ListTracks(ctx)
}

// ListSamples returns sample slots, either for one bank or all of them.
func (d *Daemon) ListSamples(ctx context.Context, bank int) ([]*slots.SampleSlot, error) {
	if bank < 0 {
		return d.store.ListAllSamples(ctx)
	}
	return d.store.ListSamples(ctx, bank)
}

// SubmitImport queues an import job.
func (d *Daemon) SubmitImport(target importer.Target, source importer.Source, name string) (importer.Job, error) {
	return d.orch.Submit(target, source, name)
}

// ImportJob returns a snapshot of the job with the given id.
func (d *Daemon) ImportJob(id uuid.UUID) (importer.Job, bool) {
	return d.orch.Job(id)
}

// ImportJobs returns all retained import jobs.
func (d *Daemon) ImportJobs() []importer.Job {
	return d.orch.Jobs()
}

// DeleteTrack clears a track slot and removes its audio file. In-flight
// playback of the track is left alone.
func (d *Daemon) DeleteTrack(ctx context.Context, number int) error {
	audioPath, err := d.store.DeleteTrack(ctx, number)
	if err != nil {
		return err
	}
	removeAsset(d.logger, audioPath)
	return nil
}

// DeleteSample clears a soundboard slot and removes its clip file.
func (d *Daemon) DeleteSample(ctx context.Context, bank int, key string) error {
	audioPath, err := d.store.DeleteSample(ctx, bank, slots.NormalizeSampleKey(key))
	if err != nil {
		return err
	}
	removeAsset(d.logger, audioPath)
	return nil
}

func removeAsset(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("asset file not removed",
			logging.String("path", filepath.Clean(path)),
			logging.Error(err))
	}
}

// PlayTrack routes a playback request through the control loop.
func (d *Daemon) PlayTrack(ctx context.Context, number int) error {
	return d.ctrl.PlayTrack(ctx, number)
}

// StopPlayback aborts the current track, if any.
func (d *Daemon) StopPlayback() {
	d.ctrl.StopPlayback()
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
