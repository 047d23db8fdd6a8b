package slots_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"jukebox/internal/slots"
	"jukebox/internal/testsupport"
)

func TestPutTrackRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.SongsDir, "42_Blue Monday.mp3")
	if _, err := store.PutTrack(ctx, 42, "Blue Monday", path); err != nil {
		t.Fatalf("PutTrack failed: %v", err)
	}

	slot, err := store.GetTrack(ctx, 42)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if slot.Name != "Blue Monday" {
		t.Fatalf("name = %q, want %q", slot.Name, "Blue Monday")
	}
	if slot.AudioPath != path {
		t.Fatalf("audio path = %q, want %q", slot.AudioPath, path)
	}
	if slot.CreatedAt.IsZero() || slot.UpdatedAt.IsZero() {
		t.Fatal("timestamps not recorded")
	}
}

func TestPutTrackReplacesExisting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.PutTrack(t, store, 7, "Old", filepath.Join(cfg.Paths.SongsDir, "7_Old.mp3"))
	newPath := filepath.Join(cfg.Paths.SongsDir, "7_New.mp3")
	if _, err := store.PutTrack(ctx, 7, "New", newPath); err != nil {
		t.Fatalf("PutTrack replace failed: %v", err)
	}

	slot, err := store.GetTrack(ctx, 7)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if slot.Name != "New" || slot.AudioPath != newPath {
		t.Fatalf("slot not replaced: %+v", slot)
	}

	tracks, err := store.ListTracks(ctx)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected a single slot after replace, got %d", len(tracks))
	}
}

func TestGetTrackMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.GetTrack(context.Background(), 999)
	if !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTrackReturnsPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.SongsDir, "3_Song.mp3")
	testsupport.PutTrack(t, store, 3, "Song", path)

	removed, err := store.DeleteTrack(ctx, 3)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if removed != path {
		t.Fatalf("removed path = %q, want %q", removed, path)
	}
	if _, err := store.GetTrack(ctx, 3); !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := store.DeleteTrack(ctx, 3); !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}

func TestOccupiedTrackNumbersOrdered(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	for _, number := range []int{9, 1, 400} {
		testsupport.PutTrack(t, store, number, "Track", filepath.Join(cfg.Paths.SongsDir, "x.mp3"))
	}

	numbers, err := store.OccupiedTrackNumbers(context.Background())
	if err != nil {
		t.Fatalf("OccupiedTrackNumbers failed: %v", err)
	}
	want := []int{1, 9, 400}
	if len(numbers) != len(want) {
		t.Fatalf("numbers = %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("numbers = %v, want %v", numbers, want)
		}
	}
}

func TestSampleLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.SamplesDir, "2", "R_Horn.wav")
	if _, err := store.PutSample(ctx, 2, "r", "Horn", path); err != nil {
		t.Fatalf("PutSample failed: %v", err)
	}

	slot, err := store.GetSample(ctx, 2, "R")
	if err != nil {
		t.Fatalf("GetSample failed: %v", err)
	}
	if slot.Key != "R" || slot.Name != "Horn" {
		t.Fatalf("unexpected sample: %+v", slot)
	}

	samples, err := store.ListSamples(ctx, 2)
	if err != nil {
		t.Fatalf("ListSamples failed: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample in bank 2, got %d", len(samples))
	}

	if _, err := store.DeleteSample(ctx, 2, "R"); err != nil {
		t.Fatalf("DeleteSample failed: %v", err)
	}
	if _, err := store.GetSample(ctx, 2, "R"); !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPutSampleRejectsInvalidKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.PutSample(context.Background(), 0, "Z", "Bad", "/tmp/z.wav"); err == nil {
		t.Fatal("expected error for invalid sample key")
	}
}

func TestConcurrentWritesToDifferentSlots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(number int) {
			defer wg.Done()
			path := filepath.Join(cfg.Paths.SongsDir, slots.TrackFileName(number, "Track"))
			if _, err := store.PutTrack(ctx, number, "Track", path); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent PutTrack failed: %v", err)
	}

	tracks, err := store.ListTracks(ctx)
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 20 {
		t.Fatalf("expected 20 tracks, got %d", len(tracks))
	}
}

func TestReadDuringUnrelatedWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.SongsDir, "5_Keep.mp3")
	testsupport.PutTrack(t, store, 5, "Keep", path)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 100; i < 140; i++ {
			_, _ = store.PutTrack(ctx, i, "Other", filepath.Join(cfg.Paths.SongsDir, "other.mp3"))
		}
	}()

	for i := 0; i < 40; i++ {
		slot, err := store.GetTrack(ctx, 5)
		if err != nil {
			t.Fatalf("GetTrack during writes failed: %v", err)
		}
		if slot.Name != "Keep" || slot.AudioPath != path {
			t.Fatalf("reader observed partial slot: %+v", slot)
		}
	}
	<-done
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.PutTrack(t, store, 1, "One", "/tmp/1_One.mp3")

	health := store.CheckHealth(context.Background())
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.TrackCount != 1 {
		t.Fatalf("track count = %d, want 1", health.TrackCount)
	}
}

func TestDeleteTrackReturnsCurrentPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	oldPath := filepath.Join(cfg.Paths.SongsDir, "7_old.mp3")
	newPath := filepath.Join(cfg.Paths.SongsDir, "7_new.mp3")
	if _, err := store.PutTrack(ctx, 7, "old", oldPath); err != nil {
		t.Fatalf("PutTrack failed: %v", err)
	}
	if _, err := store.PutTrack(ctx, 7, "new", newPath); err != nil {
		t.Fatalf("PutTrack replace failed: %v", err)
	}

	got, err := store.DeleteTrack(ctx, 7)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if got != newPath {
		t.Fatalf("DeleteTrack path = %q, want the reinstalled %q", got, newPath)
	}
	if _, err := store.DeleteTrack(ctx, 7); !errors.Is(err, slots.ErrNotFound) {
		t.Fatalf("second delete returned %v, want ErrNotFound", err)
	}
}

func TestDeleteRacingReinstallRemovesOneRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.PutTrack(ctx, 3, "seed", filepath.Join(cfg.Paths.SongsDir, "3_seed.mp3")); err != nil {
		t.Fatalf("PutTrack failed: %v", err)
	}

	reinstalled := filepath.Join(cfg.Paths.SongsDir, "3_fresh.mp3")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := store.PutTrack(ctx, 3, "fresh", reinstalled); err != nil {
			t.Errorf("concurrent PutTrack failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := store.DeleteTrack(ctx, 3); err != nil && !errors.Is(err, slots.ErrNotFound) {
			t.Errorf("concurrent DeleteTrack failed: %v", err)
		}
	}()
	wg.Wait()

	// Either order is valid, but the delete must have returned the path of
	// the row it actually removed, so the slot is empty or holds the fresh
	// row, never a stale one.
	slot, err := store.GetTrack(ctx, 3)
	if errors.Is(err, slots.ErrNotFound) {
		return
	}
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if slot.AudioPath != reinstalled {
		t.Fatalf("surviving row path = %q, want %q", slot.AudioPath, reinstalled)
	}
}
