package importer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"jukebox/internal/config"
	"jukebox/internal/importer"
	"jukebox/internal/slots"
	"jukebox/internal/testsupport"
)

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

type fakeTranscoder struct {
	mu      sync.Mutex
	rate    int
	calls   []string
	gate    chan struct{}
	failOn  string
	trimmed int
}

func (f *fakeTranscoder) record(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.gate
	fail := f.failOn == name
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeTranscoder) SampleRate(context.Context, string) (int, error) {
	if err := f.record("probe"); err != nil {
		return 0, err
	}
	if f.rate == 0 {
		return 44100, nil
	}
	return f.rate, nil
}

func (f *fakeTranscoder) ToMP3(_ context.Context, src, dest string) error {
	if err := f.record("mp3"); err != nil {
		return err
	}
	return copyFile(src, dest)
}

func (f *fakeTranscoder) ToWAV(_ context.Context, src, dest string) error {
	if err := f.record("wav"); err != nil {
		return err
	}
	return copyFile(src, dest)
}

func (f *fakeTranscoder) Resample(_ context.Context, src, dest string, _ int) error {
	if err := f.record("resample"); err != nil {
		return err
	}
	return copyFile(src, dest)
}

func (f *fakeTranscoder) TrimSilence(_ context.Context, src, dest string) error {
	if err := f.record("trim"); err != nil {
		return err
	}
	f.mu.Lock()
	f.trimmed++
	f.mu.Unlock()
	return copyFile(src, dest)
}

type fakeFetcher struct {
	mu     sync.Mutex
	err    error
	called int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, destDir string) (string, error) {
	f.mu.Lock()
	f.called++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	path := filepath.Join(destDir, "Fetched Song.mp3")
	return path, os.WriteFile(path, []byte("audio"), 0o644)
}

type fakeTempo struct{}

func (fakeTempo) Analyze(context.Context, string) (float64, error) { return 120.5, nil }

type failingDelegate struct {
	mu      sync.Mutex
	fetched int
}

func (d *failingDelegate) Enabled() bool { return true }

func (d *failingDelegate) Fetch(context.Context, string, string, bool) (string, error) {
	d.mu.Lock()
	d.fetched++
	d.mu.Unlock()
	return "", errors.New("ssh: connection refused")
}

func (d *failingDelegate) AnalyzeBPM(context.Context, string) error       { return nil }
func (d *failingDelegate) CopyBack(context.Context, string, string) error { return nil }
func (d *failingDelegate) Cleanup(context.Context, string) error          { return nil }

type harness struct {
	cfg        *config.Config
	store      *slots.Store
	orch       *importer.Orchestrator
	transcoder *fakeTranscoder
	fetcher    *fakeFetcher
}

func newHarness(t *testing.T, opts ...func(*harness)) *harness {
	t.Helper()
	h := &harness{
		cfg:        testsupport.NewConfig(t),
		transcoder: &fakeTranscoder{},
		fetcher:    &fakeFetcher{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.store = testsupport.MustOpenStore(t, h.cfg)
	h.orch = importer.New(h.cfg, h.store, nil, nil,
		importer.WithTranscoder(h.transcoder),
		importer.WithFetcher(h.fetcher),
		importer.WithTempoAnalyzer(fakeTempo{}))
	t.Cleanup(h.orch.Close)
	return h
}

func (h *harness) localSource(t *testing.T, name string, size int64) importer.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteAudioFile(t, path, size)
	return importer.LocalFileSource(path)
}

func waitJob(t *testing.T, orch *importer.Orchestrator, id uuid.UUID) importer.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := orch.Job(id); ok && job.Finished() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job to finish")
	return importer.Job{}
}

func TestLocalTrackImportInstallsSlot(t *testing.T) {
	h := newHarness(t)

	job, err := h.orch.Submit(importer.TrackTarget(42), h.localSource(t, "upload.mp3", 64), "My Song")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Status != importer.StatusDone {
		t.Fatalf("job status = %s (%s)", finished.Status, finished.Error)
	}

	track, err := h.store.GetTrack(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if track.Name != "My Song" {
		t.Fatalf("track name = %q", track.Name)
	}
	if !strings.HasPrefix(track.AudioPath, h.cfg.Paths.SongsDir) {
		t.Fatalf("track installed outside songs dir: %q", track.AudioPath)
	}
	if _, err := os.Stat(track.AudioPath); err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
}

func TestConcurrentSameSlotSubmitsRejectSecond(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.transcoder.gate = gate

	first, err := h.orch.Submit(importer.TrackTarget(7), h.localSource(t, "a.mp3", 32), "a")
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	_, err = h.orch.Submit(importer.TrackTarget(7), h.localSource(t, "b.mp3", 32), "b")
	if !errors.Is(err, importer.ErrSlotBusy) {
		t.Fatalf("second Submit returned %v, want ErrSlotBusy", err)
	}

	// A different slot is not affected by the busy one.
	other, err := h.orch.Submit(importer.TrackTarget(8), h.localSource(t, "c.mp3", 32), "c")
	if err != nil {
		t.Fatalf("unrelated Submit failed: %v", err)
	}

	close(gate)
	if job := waitJob(t, h.orch, first.ID); job.Status != importer.StatusDone {
		t.Fatalf("first job status = %s (%s)", job.Status, job.Error)
	}
	if job := waitJob(t, h.orch, other.ID); job.Status != importer.StatusDone {
		t.Fatalf("unrelated job status = %s (%s)", job.Status, job.Error)
	}

	// Slot is free again once the first import finished.
	if _, err := h.orch.Submit(importer.TrackTarget(7), h.localSource(t, "d.mp3", 32), "d"); err != nil {
		t.Fatalf("resubmit after completion failed: %v", err)
	}
}

func TestFailedFetchLeavesSlotUntouched(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("video unavailable")

	job, err := h.orch.Submit(importer.TrackTarget(3), importer.URLSource("https://youtu.be/abc"), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Status != importer.StatusFailed || finished.Failure != importer.FailureAcquisition {
		t.Fatalf("job = %s/%s, want failed/acquisition", finished.Status, finished.Failure)
	}
	if _, err := h.store.GetTrack(context.Background(), 3); !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("slot was touched by a failed import: %v", err)
	}
}

func TestTranscodeFailureReportsStage(t *testing.T) {
	h := newHarness(t)
	h.transcoder.failOn = "mp3"

	job, err := h.orch.Submit(importer.TrackTarget(4), h.localSource(t, "x.mp3", 32), "x")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Failure != importer.FailureTranscode {
		t.Fatalf("failure = %s, want transcode", finished.Failure)
	}
}

func TestOversizedSampleRejected(t *testing.T) {
	h := newHarness(t)
	h.cfg.Import.MaxSampleBytes = 16

	job, err := h.orch.Submit(importer.SampleTarget(2, "r"), h.localSource(t, "big.wav", 64), "horn")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Status != importer.StatusFailed || finished.Failure != importer.FailureAcquisition {
		t.Fatalf("job = %s/%s, want failed/acquisition", finished.Status, finished.Failure)
	}
}

func TestSampleImportTrimsAndInstallsIntoBank(t *testing.T) {
	h := newHarness(t)

	job, err := h.orch.Submit(importer.SampleTarget(3, "r"), h.localSource(t, "clip.wav", 32), "Air Horn")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Status != importer.StatusDone {
		t.Fatalf("job status = %s (%s)", finished.Status, finished.Error)
	}

	sample, err := h.store.GetSample(context.Background(), 3, "R")
	if err != nil {
		t.Fatalf("GetSample failed: %v", err)
	}
	wantDir := filepath.Join(h.cfg.Paths.SamplesDir, "3")
	if filepath.Dir(sample.AudioPath) != wantDir {
		t.Fatalf("sample installed in %q, want %q", filepath.Dir(sample.AudioPath), wantDir)
	}
	if h.transcoder.trimmed != 1 {
		t.Fatalf("silence trim ran %d times, want 1", h.transcoder.trimmed)
	}
}

func TestRemoteFailureFallsBackToLocalFetch(t *testing.T) {
	delegate := &failingDelegate{}
	h := newHarness(t)
	h.orch = importer.New(h.cfg, h.store, nil, nil,
		importer.WithTranscoder(h.transcoder),
		importer.WithFetcher(h.fetcher),
		importer.WithTempoAnalyzer(fakeTempo{}),
		importer.WithRemoteDelegate(delegate))
	t.Cleanup(h.orch.Close)

	job, err := h.orch.Submit(importer.TrackTarget(11), importer.URLSource("https://youtu.be/abc"), "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	finished := waitJob(t, h.orch, job.ID)
	if finished.Status != importer.StatusDone {
		t.Fatalf("job status = %s (%s)", finished.Status, finished.Error)
	}
	if delegate.fetched != 1 {
		t.Fatalf("delegate fetch ran %d times, want 1", delegate.fetched)
	}
	if h.fetcher.called != 1 {
		t.Fatalf("local fetch ran %d times, want 1", h.fetcher.called)
	}
}

func TestReimportReplacesOldAsset(t *testing.T) {
	h := newHarness(t)

	old := filepath.Join(h.cfg.Paths.SongsDir, "9_old.mp3")
	testsupport.WriteAudioFile(t, old, 16)
	if _, err := h.store.PutTrack(context.Background(), 9, "old", old); err != nil {
		t.Fatalf("seed track: %v", err)
	}

	job, err := h.orch.Submit(importer.TrackTarget(9), h.localSource(t, "new.mp3", 32), "new")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if finished := waitJob(t, h.orch, job.ID); finished.Status != importer.StatusDone {
		t.Fatalf("job status = %s (%s)", finished.Status, finished.Error)
	}

	if _, err := os.Stat(old); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("old asset still present: %v", err)
	}
	track, err := h.store.GetTrack(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if track.Name != "new" {
		t.Fatalf("track name = %q, want new", track.Name)
	}
}

func TestSubmitValidatesTarget(t *testing.T) {
	h := newHarness(t)

	if _, err := h.orch.Submit(importer.TrackTarget(100000), h.localSource(t, "x.mp3", 8), ""); err == nil {
		t.Fatal("expected error for out-of-range track number")
	}
	if _, err := h.orch.Submit(importer.SampleTarget(3, "Z"), h.localSource(t, "y.wav", 8), ""); err == nil {
		t.Fatal("expected error for invalid sample key")
	}
}
