package controller_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/controller"
	"jukebox/internal/keypad"
	"jukebox/internal/player"
	"jukebox/internal/slots"
	"jukebox/internal/testsupport"
)

type fakeEngine struct {
	mu       sync.Mutex
	playing  *slots.TrackSlot
	started  []int
	outcomes chan player.Outcome
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{outcomes: make(chan player.Outcome, 8)}
}

func (f *fakeEngine) Start(_ context.Context, track slots.TrackSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing != nil {
		return player.ErrBusy
	}
	f.playing = &track
	f.started = append(f.started, track.Number)
	return nil
}

func (f *fakeEngine) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing == nil {
		return
	}
	track := *f.playing
	f.playing = nil
	f.outcomes <- player.Outcome{Track: track, Result: player.ResultAborted}
}

func (f *fakeEngine) Done() <-chan player.Outcome {
	return f.outcomes
}

// finish simulates the current playback ending on its own.
func (f *fakeEngine) finish(result player.Result) {
	f.mu.Lock()
	track := *f.playing
	f.playing = nil
	f.mu.Unlock()
	f.outcomes <- player.Outcome{Track: track, Result: result}
}

func (f *fakeEngine) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeRepo struct {
	tracks  map[int]*slots.TrackSlot
	samples map[string]*slots.SampleSlot
}

func newFakeRepo(trackNumbers ...int) *fakeRepo {
	repo := &fakeRepo{
		tracks:  make(map[int]*slots.TrackSlot),
		samples: make(map[string]*slots.SampleSlot),
	}
	for _, number := range trackNumbers {
		repo.tracks[number] = &slots.TrackSlot{Number: number, Name: "track", AudioPath: "/music/track.mp3"}
	}
	return repo
}

func (r *fakeRepo) GetTrack(_ context.Context, number int) (*slots.TrackSlot, error) {
	if track, ok := r.tracks[number]; ok {
		return track, nil
	}
	return nil, slots.ErrNotFound
}

func (r *fakeRepo) OccupiedTrackNumbers(context.Context) ([]int, error) {
	var numbers []int
	for number := range r.tracks {
		numbers = append(numbers, number)
	}
	return numbers, nil
}

func (r *fakeRepo) GetSample(_ context.Context, bank int, key string) (*slots.SampleSlot, error) {
	if sample, ok := r.samples[string(rune('0'+bank))+key]; ok {
		return sample, nil
	}
	return nil, slots.ErrNotFound
}

type recordSampler struct {
	mu    sync.Mutex
	paths []string
}

func (s *recordSampler) Play(_ context.Context, path string) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
}

type recordSink struct {
	mu            sync.Mutex
	invalid       int
	slotEmpty     int
	sampleMissing int
	bankChanges   []int
}

func (s *recordSink) InvalidSelection(context.Context, string) {
	s.mu.Lock()
	s.invalid++
	s.mu.Unlock()
}

func (s *recordSink) SlotEmpty(context.Context, int) {
	s.mu.Lock()
	s.slotEmpty++
	s.mu.Unlock()
}

func (s *recordSink) SampleMissing(context.Context, int, string) {
	s.mu.Lock()
	s.sampleMissing++
	s.mu.Unlock()
}

func (s *recordSink) BankChanged(_ context.Context, bank int) {
	s.mu.Lock()
	s.bankChanges = append(s.bankChanges, bank)
	s.mu.Unlock()
}

func (s *recordSink) ImportFailed(context.Context, string) {}

type harness struct {
	ctrl    *controller.Controller
	engine  *fakeEngine
	repo    *fakeRepo
	sampler *recordSampler
	sink    *recordSink
	events  chan keypad.Event
}

func newHarness(t *testing.T, cfg *config.Config, repo *fakeRepo) *harness {
	t.Helper()
	h := &harness{
		engine:  newFakeEngine(),
		repo:    repo,
		sampler: &recordSampler{},
		sink:    &recordSink{},
		events:  make(chan keypad.Event, 16),
	}
	h.ctrl = controller.New(cfg, h.engine, h.sampler, h.repo, h.sink, nil)
	h.ctrl.Start(context.Background(), h.events)
	t.Cleanup(h.ctrl.Stop)
	return h
}

func (h *harness) press(keys ...keypad.Key) {
	for _, key := range keys {
		h.events <- keypad.Event{Key: key}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitState(t *testing.T, state controller.State) {
	t.Helper()
	waitFor(t, "state "+string(state), func() bool {
		return h.ctrl.Status().State == state
	})
}

func TestDigitsConfirmStartsPlayback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.Key2, keypad.KeyConfirm)
	h.waitState(t, controller.StatePlaying)

	status := h.ctrl.Status()
	if status.Track != 42 || status.Shuffle {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestEntryTimeoutDiscardsBuffer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Player.EntryTimeoutSeconds = 1
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.Key2)
	h.waitState(t, controller.StateEntering)

	h.waitState(t, controller.StateIdle)
	if buffer := h.ctrl.Status().Buffer; buffer != "" {
		t.Fatalf("buffer survived timeout: %q", buffer)
	}
}

func TestClearDiscardsEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.KeyClear)
	h.waitState(t, controller.StateIdle)
	if h.engine.startCount() != 0 {
		t.Fatal("playback started from a cleared entry")
	}
}

func TestConfirmEmptySlotSignalsOperator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.Key7, keypad.KeyConfirm)
	waitFor(t, "slot-empty feedback", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return h.sink.slotEmpty == 1
	})
	if h.ctrl.Status().State != controller.StateIdle {
		t.Fatal("controller left entering state")
	}
}

func TestConfirmOutOfRangeIsInvalid(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Player.MaxTrackNumber = 400
	h := newHarness(t, cfg, newFakeRepo(999))

	h.press(keypad.Key9, keypad.Key9, keypad.Key9, keypad.KeyConfirm)
	waitFor(t, "invalid-selection feedback", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return h.sink.invalid == 1
	})
}

func TestRedAbortsPlayback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.Key2, keypad.KeyConfirm)
	h.waitState(t, controller.StatePlaying)

	h.press(keypad.KeyRed)
	h.waitState(t, controller.StateIdle)
	h.engine.mu.Lock()
	playing := h.engine.playing
	h.engine.mu.Unlock()
	if playing != nil {
		t.Fatal("engine still playing after red abort")
	}
}

func TestShuffleContinuesAfterNaturalEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(5, 9))

	h.press(keypad.KeyBlue)
	h.waitState(t, controller.StatePlaying)
	if !h.ctrl.Status().Shuffle {
		t.Fatal("shuffle flag not set")
	}

	h.engine.finish(player.ResultFinished)
	waitFor(t, "next shuffle pick", func() bool {
		return h.engine.startCount() == 2
	})
	if status := h.ctrl.Status(); status.State != controller.StatePlaying || !status.Shuffle {
		t.Fatalf("shuffle dropped after natural end: %+v", status)
	}
}

func TestShuffleWithNoTracksStaysIdle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.KeyBlue)
	waitFor(t, "empty-repository feedback", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return h.sink.slotEmpty == 1
	})
	if h.ctrl.Status().State != controller.StateIdle {
		t.Fatal("controller left idle with nothing to shuffle")
	}
}

func TestCrashEndsPlaybackLikeNaturalEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.Key2, keypad.KeyConfirm)
	h.waitState(t, controller.StatePlaying)

	h.engine.finish(player.ResultCrashed)
	h.waitState(t, controller.StateIdle)
}

func TestBankCyclesModTen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.KeyYellow)
	h.waitState(t, controller.StateSoundboard)
	if h.ctrl.Status().Bank != 0 {
		t.Fatalf("soundboard entered at bank %d, want 0", h.ctrl.Status().Bank)
	}

	for i := 0; i < 10; i++ {
		h.press(keypad.KeyRed)
	}
	waitFor(t, "ten bank changes", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return len(h.sink.bankChanges) == 10
	})
	if h.ctrl.Status().Bank != 0 {
		t.Fatalf("bank after ten red presses = %d, want 0", h.ctrl.Status().Bank)
	}

	h.press(keypad.KeyBlue)
	waitFor(t, "bank 9", func() bool {
		return h.ctrl.Status().Bank == 9
	})
}

func TestSoundboardTimeoutReturnsToIdle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Player.SoundboardTimeoutSeconds = 1
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.KeyYellow, keypad.KeyRed, keypad.KeyRed)
	h.waitState(t, controller.StateSoundboard)

	h.waitState(t, controller.StateIdle)
}

func TestSoundboardKeyTriggersClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	repo := newFakeRepo()
	repo.samples["03"] = &slots.SampleSlot{Bank: 0, Key: "3", AudioPath: "/samples/3_horn.wav"}
	h := newHarness(t, cfg, repo)

	h.press(keypad.KeyYellow, keypad.Key3)
	waitFor(t, "clip playback", func() bool {
		h.sampler.mu.Lock()
		defer h.sampler.mu.Unlock()
		return len(h.sampler.paths) == 1
	})
	if h.ctrl.Status().State != controller.StateSoundboard {
		t.Fatal("triggering a clip changed state")
	}
}

func TestSoundboardMissingSampleSignalsOperator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.KeyYellow, keypad.Key3)
	waitFor(t, "sample-missing feedback", func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return h.sink.sampleMissing == 1
	})
}

func TestYellowTogglesSoundboardOff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	h.press(keypad.KeyYellow)
	h.waitState(t, controller.StateSoundboard)
	h.press(keypad.KeyYellow)
	h.waitState(t, controller.StateIdle)
}

func TestPlayTrackRequestStartsPlayback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	if err := h.ctrl.PlayTrack(context.Background(), 42); err != nil {
		t.Fatalf("PlayTrack failed: %v", err)
	}
	h.waitState(t, controller.StatePlaying)
	if h.ctrl.Status().Track != 42 {
		t.Fatalf("playing track = %d, want 42", h.ctrl.Status().Track)
	}
}

func TestPlayTrackEmptySlotErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo())

	if err := h.ctrl.PlayTrack(context.Background(), 5); err == nil {
		t.Fatal("expected error for empty slot")
	}
}

func TestYellowDuringPlaybackAbortsAndOpensSoundboard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.press(keypad.Key4, keypad.Key2, keypad.KeyConfirm)
	h.waitState(t, controller.StatePlaying)

	h.press(keypad.KeyYellow)
	h.waitState(t, controller.StateSoundboard)
	h.engine.mu.Lock()
	playing := h.engine.playing
	h.engine.mu.Unlock()
	if playing != nil {
		t.Fatal("track kept playing after switching to soundboard")
	}
}

func TestControllerRestartsAfterStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, newFakeRepo(42))

	h.ctrl.Stop()
	h.ctrl.Stop()
	h.ctrl.Start(context.Background(), h.events)

	h.press(keypad.Key4, keypad.Key2, keypad.KeyConfirm)
	h.waitState(t, controller.StatePlaying)
	if h.ctrl.Status().Track != 42 {
		t.Fatalf("playing track = %d, want 42", h.ctrl.Status().Track)
	}
}

func TestPlayTrackBeforeStartErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctrl := controller.New(cfg, newFakeEngine(), &recordSampler{}, newFakeRepo(1), &recordSink{}, nil)

	if err := ctrl.PlayTrack(context.Background(), 1); err == nil {
		t.Fatal("expected error from a stopped controller")
	}
}
