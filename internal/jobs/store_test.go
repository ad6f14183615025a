package jobs

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/castforge-labs/castforge-core/internal/faults"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Both store implementations must satisfy the same behavior, so every
// case runs against both.
func eachStore(t *testing.T, run func(t *testing.T, store Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })
		run(t, store)
	})
	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), newLogger())
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		run(t, store)
	})
}

func TestCreateAndGet(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		job := &Job{ID: "job-1", TargetID: "ep-1", Status: StatusPending, Message: "Queued for processing"}
		if err := store.Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := store.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.TargetID != "ep-1" || got.Status != StatusPending {
			t.Fatalf("unexpected job: %+v", got)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Fatal("expected timestamps to be set")
		}
	})
}

func TestGetUnknownIsNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		if _, err := store.Get(context.Background(), "nope"); !faults.IsNotFound(err) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})
}

func TestUpdatePersistsResult(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		job := &Job{ID: "job-1", TargetID: "ep-1", Status: StatusPending}
		if err := store.Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}

		job.Status = StatusComplete
		job.Progress = 100
		job.Message = "Audio production complete"
		job.Result = &Result{Location: "/objects/episodes/ep-1/final.mp3", DurationSeconds: 312, SegmentCount: 14, FileSizeMB: 7.21}
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := store.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != StatusComplete || got.Progress != 100 {
			t.Fatalf("unexpected job after update: %+v", got)
		}
		if got.Result == nil || got.Result.DurationSeconds != 312 || got.Result.SegmentCount != 14 {
			t.Fatalf("result not persisted: %+v", got.Result)
		}
		if got.Result.FileSizeMB != 7.21 {
			t.Fatalf("file size not persisted: %v", got.Result.FileSizeMB)
		}
	})
}

func TestUpdateUnknownIsNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		err := store.Update(context.Background(), &Job{ID: "ghost", Status: StatusFailed})
		if !faults.IsNotFound(err) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})
}

func TestListByTargetNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		for i, id := range []string{"job-a", "job-b", "job-c"} {
			target := "ep-1"
			if i == 1 {
				target = "ep-2"
			}
			if err := store.Create(ctx, &Job{ID: id, TargetID: target, Status: StatusComplete}); err != nil {
				t.Fatalf("create %s: %v", id, err)
			}
			time.Sleep(2 * time.Millisecond)
		}

		forTarget, err := store.ListByTarget(ctx, "ep-1")
		if err != nil {
			t.Fatalf("list by target: %v", err)
		}
		if len(forTarget) != 2 {
			t.Fatalf("expected 2 jobs for ep-1, got %d", len(forTarget))
		}
		if forTarget[0].ID != "job-c" || forTarget[1].ID != "job-a" {
			t.Fatalf("expected newest first, got %s then %s", forTarget[0].ID, forTarget[1].ID)
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 jobs, got %d", len(all))
		}
	})
}

func TestDelete(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, &Job{ID: "job-1", TargetID: "ep-1", Status: StatusComplete}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := store.Delete(ctx, "job-1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.Get(ctx, "job-1"); !faults.IsNotFound(err) {
			t.Fatalf("expected job gone, got %v", err)
		}
		if err := store.Delete(ctx, "job-1"); !faults.IsNotFound(err) {
			t.Fatalf("expected not-found on second delete, got %v", err)
		}
	})
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job := &Job{ID: "job-1", TargetID: "ep-1", Status: StatusPending}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	snapshot, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	snapshot.Status = StatusFailed
	snapshot.Message = "mutated snapshot"

	fresh, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != StatusPending || fresh.Message != "" {
		t.Fatalf("snapshot mutation leaked into store: %+v", fresh)
	}
}
