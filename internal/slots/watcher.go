package slots

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"

	"jukebox/internal/config"
	"jukebox/internal/logging"
)

// Reconciler keeps the slot database aligned with the media directories,
// picking up files added or removed outside the import pipeline.
type Reconciler struct {
	cfg    *config.Config
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewReconciler builds a reconciler for the configured songs and samples directories.
func NewReconciler(cfg *config.Config, store *Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "slot-reconciler"),
	}
}

// Start performs an initial directory sweep and begins watching for changes.
// A watch setup failure downgrades to sweep-only operation.
func (r *Reconciler) Start(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	if err := r.Sweep(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("directory watch unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "watch_setup_failed"),
			logging.String(logging.FieldImpact, "external file changes require a daemon restart"),
			logging.String(logging.FieldErrorHint, "check inotify limits"))
		return nil
	}

	watchDirs := []string{r.cfg.Paths.SongsDir, r.cfg.Paths.SamplesDir}
	entries, _ := os.ReadDir(r.cfg.Paths.SamplesDir)
	for _, entry := range entries {
		if entry.IsDir() {
			watchDirs = append(watchDirs, filepath.Join(r.cfg.Paths.SamplesDir, entry.Name()))
		}
	}
	for _, dir := range watchDirs {
		if err := watcher.Add(dir); err != nil {
			r.logger.Warn("failed to watch directory",
				logging.String("dir", dir),
				logging.Error(err))
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	r.watcher = watcher
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.watchLoop(watchCtx, watcher)
	return nil
}

// Stop shuts down the watcher.
func (r *Reconciler) Stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	watcher := r.watcher
	r.watcher = nil
	r.running = false
	r.mu.Unlock()

	cancel()
	_ = watcher.Close()
	r.wg.Wait()
}

// Sweep reconciles the database against the current directory contents.
func (r *Reconciler) Sweep(ctx context.Context) error {
	if err := r.sweepTracks(ctx); err != nil {
		return err
	}
	return r.sweepSamples(ctx)
}

func (r *Reconciler) sweepTracks(ctx context.Context) error {
	seen := map[int]struct{}{}
	entries, err := os.ReadDir(r.cfg.Paths.SongsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		number, name, ok := ParseTrackFileName(entry.Name())
		if !ok || number > r.cfg.Player.MaxTrackNumber {
			continue
		}
		seen[number] = struct{}{}
		path := filepath.Join(r.cfg.Paths.SongsDir, entry.Name())
		if current, err := r.store.GetTrack(ctx, number); err == nil && current.AudioPath == path {
			continue
		}
		if _, err := r.store.PutTrack(ctx, number, name, path); err != nil {
			return err
		}
	}

	numbers, err := r.store.OccupiedTrackNumbers(ctx)
	if err != nil {
		return err
	}
	for _, number := range numbers {
		if _, ok := seen[number]; ok {
			continue
		}
		slot, err := r.store.GetTrack(ctx, number)
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(slot.AudioPath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := r.store.DeleteTrack(ctx, number); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) sweepSamples(ctx context.Context) error {
	seen := map[string]struct{}{}
	banks, err := os.ReadDir(r.cfg.Paths.SamplesDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, bankEntry := range banks {
		if !bankEntry.IsDir() {
			continue
		}
		bank, err := strconv.Atoi(bankEntry.Name())
		if err != nil || bank < 0 || bank >= r.cfg.Player.BankCount {
			continue
		}
		bankDir := filepath.Join(r.cfg.Paths.SamplesDir, bankEntry.Name())
		files, err := os.ReadDir(bankDir)
		if err != nil {
			continue
		}
		for _, entry := range files {
			if entry.IsDir() {
				continue
			}
			key, name, ok := ParseSampleFileName(entry.Name())
			if !ok {
				continue
			}
			seen[sampleID(bank, key)] = struct{}{}
			path := filepath.Join(bankDir, entry.Name())
			if current, err := r.store.GetSample(ctx, bank, key); err == nil && current.AudioPath == path {
				continue
			}
			if _, err := r.store.PutSample(ctx, bank, key, name, path); err != nil {
				return err
			}
		}
	}

	samples, err := r.store.ListAllSamples(ctx)
	if err != nil {
		return err
	}
	for _, sample := range samples {
		if _, ok := seen[sampleID(sample.Bank, sample.Key)]; ok {
			continue
		}
		if _, statErr := os.Stat(sample.AudioPath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := r.store.DeleteSample(ctx, sample.Bank, sample.Key); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("directory watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"))
		}
	}
}

func (r *Reconciler) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New bank directory: start watching it.
			if filepath.Dir(event.Name) == r.cfg.Paths.SamplesDir {
				_ = watcher.Add(event.Name)
			}
			return
		}
		r.applyFile(ctx, event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		r.removeFile(ctx, event.Name)
	}
}

func (r *Reconciler) applyFile(ctx context.Context, path string) {
	base := filepath.Base(path)
	dir := filepath.Dir(path)

	if dir == r.cfg.Paths.SongsDir {
		number, name, ok := ParseTrackFileName(base)
		if !ok || number > r.cfg.Player.MaxTrackNumber {
			return
		}
		if _, err := r.store.PutTrack(ctx, number, name, path); err != nil {
			r.logger.Warn("failed to register track file",
				logging.Int(logging.FieldTrack, number),
				logging.Error(err))
			return
		}
		r.logger.Info("track registered from directory",
			logging.Int(logging.FieldTrack, number),
			logging.String("path", path),
			logging.String(logging.FieldEventType, "track_reconciled"))
		return
	}

	if filepath.Dir(dir) == r.cfg.Paths.SamplesDir {
		bank, err := strconv.Atoi(filepath.Base(dir))
		if err != nil || bank < 0 || bank >= r.cfg.Player.BankCount {
			return
		}
		key, name, ok := ParseSampleFileName(base)
		if !ok {
			return
		}
		if _, err := r.store.PutSample(ctx, bank, key, name, path); err != nil {
			r.logger.Warn("failed to register sample file",
				logging.Int(logging.FieldBank, bank),
				logging.String(logging.FieldSampleKey, key),
				logging.Error(err))
			return
		}
		r.logger.Info("sample registered from directory",
			logging.Int(logging.FieldBank, bank),
			logging.String(logging.FieldSampleKey, key),
			logging.String(logging.FieldEventType, "sample_reconciled"))
	}
}

func (r *Reconciler) removeFile(ctx context.Context, path string) {
	base := filepath.Base(path)
	dir := filepath.Dir(path)

	if dir == r.cfg.Paths.SongsDir {
		number, _, ok := ParseTrackFileName(base)
		if !ok {
			return
		}
		slot, err := r.store.GetTrack(ctx, number)
		if err != nil || slot.AudioPath != path {
			return
		}
		if _, err := r.store.DeleteTrack(ctx, number); err != nil && !errors.Is(err, ErrNotFound) {
			r.logger.Warn("failed to clear removed track",
				logging.Int(logging.FieldTrack, number),
				logging.Error(err))
		}
		return
	}

	if filepath.Dir(dir) == r.cfg.Paths.SamplesDir {
		bank, err := strconv.Atoi(filepath.Base(dir))
		if err != nil {
			return
		}
		key, _, ok := ParseSampleFileName(base)
		if !ok {
			return
		}
		slot, getErr := r.store.GetSample(ctx, bank, key)
		if getErr != nil || slot.AudioPath != path {
			return
		}
		if _, err := r.store.DeleteSample(ctx, bank, key); err != nil && !errors.Is(err, ErrNotFound) {
			r.logger.Warn("failed to clear removed sample",
				logging.Int(logging.FieldBank, bank),
				logging.String(logging.FieldSampleKey, key),
				logging.Error(err))
		}
	}
}

func sampleID(bank int, key string) string {
	return strconv.Itoa(bank) + "/" + key
}
