package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/script"
	"github.com/castforge-labs/castforge-core/internal/storage"
	"github.com/castforge-labs/castforge-core/internal/tts"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testVoices() map[string]string {
	return map[string]string{"doug": "voice-a", "claire": "voice-b"}
}

// scriptedSynth echoes the utterance back as bytes, optionally failing at
// a chosen call index to exercise the abort path.
type scriptedSynth struct {
	mu      sync.Mutex
	calls   int
	failAt  int
	failErr error
	delay   time.Duration
}

func (s *scriptedSynth) Synthesize(ctx context.Context, req tts.SynthRequest) ([]byte, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.failErr != nil && call == s.failAt {
		return nil, s.failErr
	}
	return []byte("audio:" + req.Voice + ":" + req.Text), nil
}

func testUtterances(n int) []script.Utterance {
	out := make([]script.Utterance, n)
	for i := range out {
		speaker := script.SpeakerDoug
		if i%2 == 1 {
			speaker = script.SpeakerClaire
		}
		out[i] = script.Utterance{Speaker: speaker, Text: fmt.Sprintf("Utterance number %d with several words.", i)}
	}
	return out
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewLocal(config.StorageConfig{Root: t.TempDir()}, newLogger())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestRenderPreservesOrder(t *testing.T) {
	store := newTestStore(t)
	synth := &scriptedSynth{delay: 5 * time.Millisecond}
	r := New(synth, store, testVoices(), 4, newLogger())

	utterances := testUtterances(9)
	segments, err := r.Render(context.Background(), "ep1", utterances)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(segments) != len(utterances) {
		t.Fatalf("expected %d segments, got %d", len(utterances), len(segments))
	}
	for i, seg := range segments {
		if seg.Speaker != utterances[i].Speaker || seg.Text != utterances[i].Text {
			t.Fatalf("segment %d out of order: %+v", i, seg)
		}
		if !strings.Contains(seg.Location, fmt.Sprintf("segment_%03d.wav", i)) {
			t.Fatalf("segment %d has wrong artifact path: %s", i, seg.Location)
		}
		data, err := store.Get(context.Background(), seg.Location)
		if err != nil {
			t.Fatalf("segment %d artifact missing: %v", i, err)
		}
		if string(data) != "audio:"+seg.VoiceRef+":"+seg.Text {
			t.Fatalf("segment %d artifact holds wrong audio", i)
		}
	}
}

func TestRenderEstimatesDuration(t *testing.T) {
	store := newTestStore(t)
	r := New(&scriptedSynth{}, store, testVoices(), 1, newLogger())

	// 30 words at 150 wpm is 12 seconds.
	text := strings.TrimSpace(strings.Repeat("word ", 30))
	segments, err := r.Render(context.Background(), "ep1", []script.Utterance{{Speaker: script.SpeakerDoug, Text: text}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if segments[0].EstimatedMS != 12000 {
		t.Fatalf("expected 12000ms estimate, got %d", segments[0].EstimatedMS)
	}
}

func TestRenderAbortsOnSynthesisFailure(t *testing.T) {
	store := newTestStore(t)
	boom := errors.New("voice backend unavailable")
	synth := &scriptedSynth{failAt: 2, failErr: boom}
	r := New(synth, store, testVoices(), 1, newLogger())

	segments, err := r.Render(context.Background(), "ep1", testUtterances(5))
	if segments != nil {
		t.Fatalf("expected no segments on failure, got %v", segments)
	}
	var segErr *SegmentError
	if !errors.As(err, &segErr) {
		t.Fatalf("expected SegmentError, got %v", err)
	}
	if segErr.Index != 2 {
		t.Fatalf("expected failure at index 2, got %d", segErr.Index)
	}
	if !faults.IsUpstream(err) {
		t.Fatalf("expected upstream classification, got %v", err)
	}
}

func TestRenderRejectsUnknownSpeakerVoice(t *testing.T) {
	store := newTestStore(t)
	r := New(&scriptedSynth{}, store, map[string]string{"doug": "voice-a"}, 2, newLogger())

	_, err := r.Render(context.Background(), "ep1", []script.Utterance{
		{Speaker: script.SpeakerClaire, Text: "Nobody configured my voice."},
	})
	if !faults.IsValidation(err) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

func TestRenderEmptyUtterancesIsValidation(t *testing.T) {
	store := newTestStore(t)
	r := New(&scriptedSynth{}, store, testVoices(), 2, newLogger())
	if _, err := r.Render(context.Background(), "ep1", nil); !faults.IsValidation(err) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}
