package production

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/castforge-labs/castforge-core/internal/audio"
	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/episodes"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/jobs"
	"github.com/castforge-labs/castforge-core/internal/render"
	"github.com/castforge-labs/castforge-core/internal/storage"
	"github.com/castforge-labs/castforge-core/internal/tts"
)

const testScript = `DOUG: Welcome back to the show, everyone listening at home.
CLAIRE: Thanks Doug, today we are arguing about grid batteries again.
DOUG: Someone has to defend them from you.`

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, tts.SynthRequest) ([]byte, error) {
	return nil, errors.New("voice backend offline")
}

// slowSynth holds the pipeline in the render stage long enough for tests
// to observe a job in flight.
type slowSynth struct {
	inner tts.Synthesizer
}

func (s slowSynth) Synthesize(ctx context.Context, req tts.SynthRequest) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(250 * time.Millisecond):
	}
	return s.inner.Synthesize(ctx, req)
}

type harness struct {
	orch  *Orchestrator
	store jobs.Store
	eps   *episodes.EpisodeStore
}

func newHarness(t *testing.T, synth tts.Synthesizer) *harness {
	t.Helper()
	log := slog.Default()

	cfg := config.Default()
	cfg.Audio.Encoder = "wav"
	cfg.Production.RenderTimeoutMS = 10000
	cfg.Production.AssembleTimeoutMS = 10000

	objects, err := storage.NewLocal(config.StorageConfig{Root: t.TempDir()}, log)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	if synth == nil {
		synth = tts.NewMockSynth(cfg.TTS.SampleRate, cfg.TTS.Channels)
	}
	store := jobs.NewMemoryStore()
	eps := episodes.NewEpisodeStore()

	orch := NewOrchestrator(
		cfg.Production,
		cfg.Audio,
		store,
		eps,
		render.New(synth, objects, cfg.TTS.Voices, cfg.Production.RenderConcurrency, log),
		audio.NewAssembler(cfg.Audio, objects, log),
		nil,
		log,
	)
	t.Cleanup(orch.Close)
	return &harness{orch: orch, store: store, eps: eps}
}

func (h *harness) addEpisode(t *testing.T, id, script string) {
	t.Helper()
	err := h.eps.Put(context.Background(), &episodes.Episode{ID: id, Title: "t", Script: script})
	if err != nil {
		t.Fatalf("put episode: %v", err)
	}
}

func (h *harness) waitTerminal(t *testing.T, jobID string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.orch.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

func TestSubmitRunsToCompletion(t *testing.T) {
	h := newHarness(t, nil)
	h.addEpisode(t, "ep-1", testScript)

	job, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !started {
		t.Fatal("expected a new job")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("initial status = %s, want pending", job.Status)
	}

	final := h.waitTerminal(t, job.ID)
	if final.Status != jobs.StatusComplete {
		t.Fatalf("status = %s (%s), want complete", final.Status, final.Message)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %d, want 100", final.Progress)
	}
	if final.Result == nil {
		t.Fatal("completed job has no result")
	}
	if final.Result.SegmentCount != 3 {
		t.Fatalf("segment count = %d, want 3", final.Result.SegmentCount)
	}
	if final.Result.Location == "" || final.Result.DurationSeconds <= 0 {
		t.Fatalf("result = %+v", final.Result)
	}
}

func TestSubmitDeduplicatesPerTarget(t *testing.T) {
	h := newHarness(t, slowSynth{inner: tts.NewMockSynth(22050, 1)})
	h.addEpisode(t, "ep-1", testScript)

	first, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil || !started {
		t.Fatalf("first submit: started=%v err=%v", started, err)
	}
	second, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if started {
		t.Fatal("second submit started a duplicate job")
	}
	if second.ID != first.ID {
		t.Fatalf("second submit returned job %s, want existing %s", second.ID, first.ID)
	}

	h.waitTerminal(t, first.ID)

	// A terminal job no longer blocks admission.
	third, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if !started || third.ID == first.ID {
		t.Fatalf("expected a fresh job after completion, got started=%v id=%s", started, third.ID)
	}
}

func TestSubmitUnknownTarget(t *testing.T) {
	h := newHarness(t, nil)
	_, _, err := h.orch.Submit(context.Background(), "nope")
	if !faults.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestSubmitEmptyScript(t *testing.T) {
	h := newHarness(t, nil)
	h.addEpisode(t, "ep-1", "   ")
	_, _, err := h.orch.Submit(context.Background(), "ep-1")
	if !faults.IsValidation(err) {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestMarkerlessScriptFailsJob(t *testing.T) {
	h := newHarness(t, nil)
	h.addEpisode(t, "ep-1", "No speaker labels in this text at all.")

	job, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil || !started {
		t.Fatalf("submit: started=%v err=%v", started, err)
	}
	final := h.waitTerminal(t, job.ID)
	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if final.Message == "" {
		t.Fatal("failed job carries no message")
	}
	if final.Result != nil {
		t.Fatalf("failed job has result %+v", final.Result)
	}
}

func TestSynthFailureFailsJob(t *testing.T) {
	h := newHarness(t, failingSynth{})
	h.addEpisode(t, "ep-1", testScript)

	job, _, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	final := h.waitTerminal(t, job.ID)
	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}

	// The failed run is terminal, so the target accepts new work.
	_, started, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil || !started {
		t.Fatalf("resubmit after failure: started=%v err=%v", started, err)
	}
}

func TestLatestJobForTarget(t *testing.T) {
	h := newHarness(t, nil)
	h.addEpisode(t, "ep-1", testScript)

	if _, err := h.orch.LatestJobForTarget(context.Background(), "ep-1"); !faults.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found before any submit", err)
	}

	job, _, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.waitTerminal(t, job.ID)

	latest, err := h.orch.LatestJobForTarget(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != job.ID {
		t.Fatalf("latest = %s, want %s", latest.ID, job.ID)
	}
}

func TestFinalizeReusesStoredSegments(t *testing.T) {
	h := newHarness(t, nil)
	h.addEpisode(t, "ep-1", testScript)

	if _, err := h.orch.Finalize(context.Background(), "ep-1"); !faults.IsValidation(err) {
		t.Fatalf("err = %v, want validation before any render", err)
	}

	job, _, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	final := h.waitTerminal(t, job.ID)
	if final.Status != jobs.StatusComplete {
		t.Fatalf("status = %s", final.Status)
	}

	result, err := h.orch.Finalize(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.SegmentCount != final.Result.SegmentCount {
		t.Fatalf("segments = %d, want %d", result.SegmentCount, final.Result.SegmentCount)
	}
	if result.DurationSeconds != final.Result.DurationSeconds {
		t.Fatalf("duration = %d, want %d", result.DurationSeconds, final.Result.DurationSeconds)
	}
}

func TestDeleteJobRefusesInFlight(t *testing.T) {
	h := newHarness(t, slowSynth{inner: tts.NewMockSynth(22050, 1)})
	h.addEpisode(t, "ep-1", testScript)

	job, _, err := h.orch.Submit(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The job may finish before the delete lands; only a non-terminal
	// snapshot is entitled to the validation refusal.
	if err := h.orch.DeleteJob(context.Background(), job.ID); faults.IsValidation(err) {
		h.waitTerminal(t, job.ID)
		if err := h.orch.DeleteJob(context.Background(), job.ID); err != nil {
			t.Fatalf("delete terminal: %v", err)
		}
	} else if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.orch.GetJob(context.Background(), job.ID); !faults.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found after delete", err)
	}
}
