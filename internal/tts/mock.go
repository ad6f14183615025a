package tts

import (
	"context"
	"math"
	"strings"
	"time"

	gaudio "github.com/go-audio/audio"

	"github.com/castforge-labs/castforge-core/internal/audio"
)

type mockSynth struct {
	sampleRate int
	channels   int
	delay      time.Duration
}

// NewMockSynth returns a Synthesizer that produces a quiet tone sized to
// the utterance's estimated spoken length (150 words per minute). The
// output is a real WAV clip so the full pipeline runs against it.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels, delay: 10 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.delay):
	}

	words := len(strings.Fields(req.Text))
	ms := words * 60000 / 150
	if ms < 200 {
		ms = 200
	}

	frames := m.sampleRate * ms / 1000
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{SampleRate: m.sampleRate, NumChannels: m.channels},
		Data:           make([]int, frames*m.channels),
		SourceBitDepth: 16,
	}
	// A low-level tone keeps normalization and compression exercised
	// without blowing out ears during manual runs.
	freq := 180.0
	if req.Voice != "" && req.Voice[len(req.Voice)-1]%2 == 0 {
		freq = 240.0
	}
	for frame := 0; frame < frames; frame++ {
		sample := int(3000 * math.Sin(2*math.Pi*freq*float64(frame)/float64(m.sampleRate)))
		for c := 0; c < m.channels; c++ {
			buf.Data[frame*m.channels+c] = sample
		}
	}
	return audio.EncodeWAV(buf)
}
