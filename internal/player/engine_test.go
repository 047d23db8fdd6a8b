package player_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jukebox/internal/player"
	"jukebox/internal/slots"
	"jukebox/internal/testsupport"
)

// blockingExecutor simulates a player process that runs until released or the
// context is cancelled.
type blockingExecutor struct {
	mu      sync.Mutex
	started chan string
	release chan error
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{
		started: make(chan string, 4),
		release: make(chan error, 4),
	}
}

func (b *blockingExecutor) Run(ctx context.Context, _ string, args []string, _ func(string)) error {
	b.started <- args[len(args)-1]
	select {
	case err := <-b.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitOutcome(t *testing.T, engine *player.Engine) player.Outcome {
	t.Helper()
	select {
	case outcome := <-engine.Done():
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback outcome")
		return player.Outcome{}
	}
}

func TestStartRejectsConcurrentPlayback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := newBlockingExecutor()
	engine := player.NewEngine(cfg, nil, player.WithExecutor(exec))

	track := slots.TrackSlot{Number: 42, Name: "first", AudioPath: "/music/42_first.mp3"}
	if err := engine.Start(context.Background(), track); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-exec.started

	err := engine.Start(context.Background(), slots.TrackSlot{Number: 43})
	if !errors.Is(err, player.ErrBusy) {
		t.Fatalf("second Start returned %v, want ErrBusy", err)
	}

	exec.release <- nil
	outcome := waitOutcome(t, engine)
	if outcome.Result != player.ResultFinished {
		t.Fatalf("result = %q, want finished", outcome.Result)
	}
	if outcome.Track.Number != 42 {
		t.Fatalf("outcome track = %d, want 42", outcome.Track.Number)
	}
}

func TestAbortReapsAndAllowsRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := newBlockingExecutor()
	engine := player.NewEngine(cfg, nil, player.WithExecutor(exec))

	if err := engine.Start(context.Background(), slots.TrackSlot{Number: 7}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-exec.started

	engine.Abort()
	if _, playing := engine.Playing(); playing {
		t.Fatal("engine still reports a track playing after Abort")
	}

	outcome := waitOutcome(t, engine)
	if outcome.Result != player.ResultAborted {
		t.Fatalf("result = %q, want aborted", outcome.Result)
	}

	if err := engine.Start(context.Background(), slots.TrackSlot{Number: 8}); err != nil {
		t.Fatalf("Start after Abort failed: %v", err)
	}
	<-exec.started
	exec.release <- nil
	if outcome := waitOutcome(t, engine); outcome.Track.Number != 8 {
		t.Fatalf("outcome track = %d, want 8", outcome.Track.Number)
	}
}

func TestAbortWhileIdleIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := player.NewEngine(cfg, nil, player.WithExecutor(newBlockingExecutor()))

	engine.Abort()
	engine.Abort()
}

func TestCrashDeliversErrorOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := newBlockingExecutor()
	engine := player.NewEngine(cfg, nil, player.WithExecutor(exec))

	if err := engine.Start(context.Background(), slots.TrackSlot{Number: 3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-exec.started
	exec.release <- errors.New("segfault")

	outcome := waitOutcome(t, engine)
	if outcome.Result != player.ResultCrashed {
		t.Fatalf("result = %q, want crashed", outcome.Result)
	}
	if outcome.Err == nil {
		t.Fatal("crashed outcome carries no error")
	}
}

func TestSamplerOverlapsClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := newBlockingExecutor()
	sampler := player.NewSampler(cfg, nil, player.WithSamplerExecutor(exec))

	ctx := context.Background()
	sampler.Play(ctx, "/samples/1_horn.wav")
	sampler.Play(ctx, "/samples/2_airhorn.wav")

	first := <-exec.started
	second := <-exec.started
	if first == second {
		t.Fatalf("expected two distinct clips, got %q twice", first)
	}

	exec.release <- nil
	exec.release <- nil
	sampler.Wait()
}
