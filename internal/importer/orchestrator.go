// Package importer turns uploaded files and streaming links into installed
// slot assets, asynchronously and without ever blocking the control loop.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jukebox/internal/config"
	"jukebox/internal/feedback"
	"jukebox/internal/logging"
	"jukebox/internal/notifications"
	"jukebox/internal/services/bpm"
	"jukebox/internal/services/remote"
	"jukebox/internal/services/transcode"
	"jukebox/internal/services/ytdlp"
	"jukebox/internal/slots"
)

// Finished jobs stay queryable for this long after completion.
const jobRetention = time.Hour

// Fetcher downloads a link into a directory and returns the file path.
type Fetcher interface {
	Fetch(ctx context.Context, link, destDir string) (string, error)
}

// Transcoder normalizes audio files into the canonical slot formats.
type Transcoder interface {
	SampleRate(ctx context.Context, path string) (int, error)
	ToMP3(ctx context.Context, src, dest string) error
	ToWAV(ctx context.Context, src, dest string) error
	Resample(ctx context.Context, src, dest string, rate int) error
	TrimSilence(ctx context.Context, src, dest string) error
}

// TempoAnalyzer tags a track with its BPM.
type TempoAnalyzer interface {
	Analyze(ctx context.Context, path string) (float64, error)
}

// RemoteDelegate offloads fetch work to a configured worker host.
type RemoteDelegate interface {
	Enabled() bool
	Fetch(ctx context.Context, link, remoteDir string, spotify bool) (string, error)
	AnalyzeBPM(ctx context.Context, remotePath string) error
	CopyBack(ctx context.Context, remotePath, localPath string) error
	Cleanup(ctx context.Context, remoteDir string) error
}

// Orchestrator runs import jobs through a bounded worker pool with per-slot
// exclusivity.
type Orchestrator struct {
	cfg        *config.Config
	store      *slots.Store
	fetcher    Fetcher
	transcoder Transcoder
	tempo      TempoAnalyzer
	delegate   RemoteDelegate
	notifier   notifications.Service
	sink       feedback.Sink
	logger     *slog.Logger

	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	busy map[string]uuid.UUID
	jobs map[uuid.UUID]*Job
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithFetcher overrides the URL fetcher (for tests).
func WithFetcher(fetcher Fetcher) Option {
	return func(o *Orchestrator) {
		if fetcher != nil {
			o.fetcher = fetcher
		}
	}
}

// WithTranscoder overrides the audio normalizer (for tests).
func WithTranscoder(transcoder Transcoder) Option {
	return func(o *Orchestrator) {
		if transcoder != nil {
			o.transcoder = transcoder
		}
	}
}

// WithTempoAnalyzer overrides the BPM analyzer (for tests).
func WithTempoAnalyzer(tempo TempoAnalyzer) Option {
	return func(o *Orchestrator) {
		if tempo != nil {
			o.tempo = tempo
		}
	}
}

// WithRemoteDelegate overrides remote delegation (for tests).
func WithRemoteDelegate(delegate RemoteDelegate) Option {
	return func(o *Orchestrator) {
		o.delegate = delegate
	}
}

// WithFeedbackSink routes failure cues to the given sink.
func WithFeedbackSink(sink feedback.Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// New constructs an orchestrator wired to the real tool clients.
func New(cfg *config.Config, store *slots.Store, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	workers := cfg.Import.Workers
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	orch := &Orchestrator{
		cfg:        cfg,
		store:      store,
		fetcher:    ytdlp.New(cfg),
		transcoder: transcode.New(cfg),
		tempo:      bpm.New(cfg),
		notifier:   notifier,
		sink:       feedback.NewNoopSink(),
		logger:     logger.With(logging.String(logging.FieldComponent, "importer")),
		sem:        make(chan struct{}, workers),
		ctx:        ctx,
		cancel:     cancel,
		busy:       make(map[string]uuid.UUID),
		jobs:       make(map[uuid.UUID]*Job),
	}
	if delegate := remote.New(cfg); delegate.Enabled() {
		orch.delegate = delegate
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch
}

// Close stops accepting progress and waits for in-flight jobs.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// Submit queues an import for the target slot. It returns the job handle
// immediately, or ErrSlotBusy if an import for the same slot is in flight.
func (o *Orchestrator) Submit(target Target, source Source, displayName string) (Job, error) {
	if target.Kind == TargetSample {
		target.Key = slots.NormalizeSampleKey(target.Key)
	}
	if err := validateTarget(o.cfg, target); err != nil {
		return Job{}, err
	}
	if err := validateSource(source); err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:          uuid.New(),
		Target:      target,
		DisplayName: displayName,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	key := target.slotKey()
	o.mu.Lock()
	o.pruneLocked()
	if _, exists := o.busy[key]; exists {
		o.mu.Unlock()
		return Job{}, ErrSlotBusy
	}
	o.busy[key] = job.ID
	o.jobs[job.ID] = job
	o.mu.Unlock()

	o.logger.Info("import queued",
		logging.String(logging.FieldJobID, job.ID.String()),
		logging.String("target", target.String()))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.releaseSlot(key)
		o.runJob(job, source)
	}()

	return *job, nil
}

// Job returns a snapshot of the job with the given id.
func (o *Orchestrator) Job(id uuid.UUID) (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of all retained jobs, newest first.
func (o *Orchestrator) Jobs() []Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruneLocked()
	out := make([]Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActiveCount reports how many jobs are pending or running.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.busy)
}

func (o *Orchestrator) releaseSlot(key string) {
	o.mu.Lock()
	delete(o.busy, key)
	o.mu.Unlock()
}

func (o *Orchestrator) pruneLocked() {
	cutoff := time.Now().Add(-jobRetention)
	for id, job := range o.jobs {
		if job.Finished() && job.FinishedAt.Before(cutoff) {
			delete(o.jobs, id)
		}
	}
}

func (o *Orchestrator) setStatus(job *Job, status Status) {
	o.mu.Lock()
	job.Status = status
	if job.Finished() {
		job.FinishedAt = time.Now()
	}
	o.mu.Unlock()
}

func (o *Orchestrator) fail(job *Job, kind FailureKind, err error) {
	o.mu.Lock()
	job.Status = StatusFailed
	job.Failure = kind
	job.Error = err.Error()
	job.FinishedAt = time.Now()
	o.mu.Unlock()

	o.logger.Error("import failed",
		logging.String(logging.FieldJobID, job.ID.String()),
		logging.String("target", job.Target.String()),
		logging.String("stage", string(kind)),
		logging.Error(err))
	if notifyErr := o.notifier.NotifyImportFailed(o.ctx, job.Target.String(), err.Error()); notifyErr != nil {
		o.logger.Warn("failure notification not delivered", logging.Error(notifyErr))
	}
	o.sink.ImportFailed(o.ctx, job.Target.String())
}

func validateTarget(cfg *config.Config, target Target) error {
	switch target.Kind {
	case TargetTrack:
		if target.Number < 0 || target.Number > cfg.Player.MaxTrackNumber {
			return fmt.Errorf("importer: track number %d out of range 0..%d", target.Number, cfg.Player.MaxTrackNumber)
		}
	case TargetSample:
		if target.Bank < 0 || target.Bank >= cfg.Player.BankCount {
			return fmt.Errorf("importer: bank %d out of range 0..%d", target.Bank, cfg.Player.BankCount-1)
		}
		if !slots.ValidSampleKey(target.Key) {
			return fmt.Errorf("importer: invalid sample key %q", target.Key)
		}
	default:
		return fmt.Errorf("importer: unknown target kind %q", target.Kind)
	}
	return nil
}

func validateSource(source Source) error {
	switch source.Kind {
	case SourceLocalFile:
		if source.Path == "" {
			return errors.New("importer: local source requires a path")
		}
	case SourceURL:
		if source.URL == "" {
			return errors.New("importer: url source requires a link")
		}
	default:
		return fmt.Errorf("importer: unknown source kind %q", source.Kind)
	}
	return nil
}
