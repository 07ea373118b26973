package testsupport

import (
	"context"
	"testing"

	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/storage"
	"shotbuddy/internal/thumbnail"
)

// MustOpenStore opens the project storage for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storage.Store {
	t.Helper()

	logger := logging.NewNop()
	store, err := storage.Open(cfg, thumbnail.New(cfg.Thumbnails, logger), logger)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustInsertShots appends count shots to the end of the board.
func MustInsertShots(t testing.TB, store *storage.Store, count int) []shot.Shot {
	t.Helper()

	out := make([]shot.Shot, 0, count)
	after := ""
	if existing, err := store.ListShots(context.Background()); err == nil && len(existing) > 0 {
		after = existing[len(existing)-1].Name
	}
	for i := 0; i < count; i++ {
		created, err := store.InsertShotAfter(context.Background(), after)
		if err != nil {
			t.Fatalf("store.InsertShotAfter(%q): %v", after, err)
		}
		out = append(out, created)
		after = created.Name
	}
	return out
}
