package testsupport

import (
	"context"
	"testing"

	"jukebox/internal/config"
	"jukebox/internal/slots"
)

// MustOpenStore opens a slots.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *slots.Store {
	t.Helper()

	store, err := slots.Open(cfg)
	if err != nil {
		t.Fatalf("slots.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutTrack installs a track slot for tests using the provided store.
func PutTrack(t testing.TB, store *slots.Store, number int, name, audioPath string) *slots.TrackSlot {
	t.Helper()

	slot, err := store.PutTrack(context.Background(), number, name, audioPath)
	if err != nil {
		t.Fatalf("store.PutTrack: %v", err)
	}
	return slot
}
