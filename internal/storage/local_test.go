package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/faults"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *Local {
	t.Helper()
	store, err := NewLocal(config.StorageConfig{Root: t.TempDir()}, newLogger())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loc, err := store.Put(ctx, []byte("audio-bytes"), "episodes/ep1/segments/segment_000.wav")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if loc == "" {
		t.Fatal("expected non-empty location")
	}

	data, err := store.Get(ctx, loc)
	if err != nil {
		t.Fatalf("get by location: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected data: %s", data)
	}

	// Relative paths resolve the same object.
	data, err = store.Get(ctx, "episodes/ep1/segments/segment_000.wav")
	if err != nil {
		t.Fatalf("get by path: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "episodes/none/final.mp3")
	if !faults.IsNotFound(err) {
		t.Fatalf("expected not-found fault, got %v", err)
	}
}

func TestListOrdersLexically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"segment_002.wav", "segment_000.wav", "segment_001.wav"} {
		if _, err := store.Put(ctx, []byte("x"), "episodes/ep1/segments/"+name); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	locations, err := store.List(ctx, "episodes/ep1/segments")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locations))
	}
	for i := 1; i < len(locations); i++ {
		if locations[i-1] >= locations[i] {
			t.Fatalf("locations not ordered: %v", locations)
		}
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	store := newTestStore(t)
	locations, err := store.List(context.Background(), "episodes/none/segments")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locations) != 0 {
		t.Fatalf("expected empty list, got %v", locations)
	}
}

func TestEscapingRootRejected(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Put(context.Background(), []byte("x"), "../outside.txt")
	var fe *faults.Error
	if !errors.As(err, &fe) || fe.Kind != faults.KindValidation {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	loc, err := store.Put(ctx, []byte("x"), "episodes/ep1/final.mp3")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, loc); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Exists(ctx, loc) {
		t.Fatal("expected object removed")
	}
	if err := store.Delete(ctx, loc); !faults.IsNotFound(err) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}
