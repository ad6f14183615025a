// Package render turns parsed utterances into stored audio segment
// artifacts by fanning out over the TTS collaborator.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/script"
	"github.com/castforge-labs/castforge-core/internal/storage"
	"github.com/castforge-labs/castforge-core/internal/tts"
)

// wordsPerMinute is the fixed speaking rate used to estimate segment
// duration before any real measurement exists.
const wordsPerMinute = 150

// Segment is the rendered audio artifact for one utterance.
type Segment struct {
	Speaker     script.Speaker `json:"speaker"`
	Text        string         `json:"text"`
	VoiceRef    string         `json:"voice_ref"`
	Location    string         `json:"location,omitempty"`
	EstimatedMS int            `json:"estimated_ms"`
}

// SegmentError identifies which utterance sank a render call.
type SegmentError struct {
	Index   int
	Speaker script.Speaker
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("render segment %d (%s): %v", e.Index, e.Speaker, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Renderer synthesizes and persists one artifact per utterance.
type Renderer struct {
	synth       tts.Synthesizer
	store       storage.Store
	voices      map[string]string
	concurrency int
	log         *slog.Logger
}

func New(synth tts.Synthesizer, store storage.Store, voices map[string]string, concurrency int, log *slog.Logger) *Renderer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Renderer{
		synth:       synth,
		store:       store,
		voices:      voices,
		concurrency: concurrency,
		log:         log.With(slog.String("component", "renderer")),
	}
}

// Render produces segment artifacts in utterance order. Synthesis calls
// run on a bounded worker pool because each one is an independent
// high-latency remote call; results land in an index-addressed slice so
// the returned order always matches the input. On any failure the whole
// call aborts with a SegmentError wrapping the cause; artifacts already
// stored for earlier utterances are left in place but not returned.
func (r *Renderer) Render(ctx context.Context, targetID string, utterances []script.Utterance) ([]Segment, error) {
	if len(utterances) == 0 {
		return nil, faults.Validation("script produced no utterances to render")
	}

	segments := make([]Segment, len(utterances))
	for i, u := range utterances {
		voice, ok := r.voices[string(u.Speaker)]
		if !ok || voice == "" {
			return nil, faults.Validation("no voice configured for speaker %s", u.Speaker)
		}
		segments[i] = Segment{
			Speaker:     u.Speaker,
			Text:        u.Text,
			VoiceRef:    voice,
			EstimatedMS: estimateDurationMS(u.Text),
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sema     = make(chan struct{}, r.concurrency)
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i := range segments {
		select {
		case <-ctx.Done():
		case sema <- struct{}{}:
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sema }()
				if err := r.renderOne(ctx, targetID, idx, &segments[idx]); err != nil {
					fail(&SegmentError{Index: idx, Speaker: segments[idx].Speaker, Err: err})
				}
			}(i)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.Info("segments rendered",
		slog.String("target", targetID),
		slog.Int("count", len(segments)))
	return segments, nil
}

func (r *Renderer) renderOne(ctx context.Context, targetID string, idx int, seg *Segment) error {
	data, err := r.synth.Synthesize(ctx, tts.SynthRequest{Voice: seg.VoiceRef, Text: seg.Text})
	if err != nil {
		return faults.Upstream("synthesize", err)
	}
	path := fmt.Sprintf("episodes/%s/segments/segment_%03d.wav", targetID, idx)
	location, err := r.store.Put(ctx, data, path)
	if err != nil {
		return err
	}
	seg.Location = location
	return nil
}

func estimateDurationMS(text string) int {
	words := len(strings.Fields(text))
	return words * 60000 / wordsPerMinute
}
