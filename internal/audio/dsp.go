package audio

import (
	"math"

	gaudio "github.com/go-audio/audio"
)

const fullScale16 = 32767.0

// appendBuffers concatenates b onto a in place-ish fashion, returning the
// combined buffer. Formats must already be reconciled by the caller.
func appendBuffers(a, b *gaudio.IntBuffer) *gaudio.IntBuffer {
	out := &gaudio.IntBuffer{
		Format:         a.Format,
		Data:           make([]int, 0, len(a.Data)+len(b.Data)),
		SourceBitDepth: 16,
	}
	out.Data = append(out.Data, a.Data...)
	out.Data = append(out.Data, b.Data...)
	return out
}

// appendWithCrossfade joins b onto a, blending the tail of a with the head
// of b over fadeMS. The overlap replaces a hard cut, so the result is
// shorter than plain concatenation by the fade length. Fades longer than
// either clip collapse to the longest feasible overlap.
func appendWithCrossfade(a, b *gaudio.IntBuffer, fadeMS int) *gaudio.IntBuffer {
	ch := a.Format.NumChannels
	overlapFrames := a.Format.SampleRate * fadeMS / 1000
	if max := len(a.Data) / ch; overlapFrames > max {
		overlapFrames = max
	}
	if max := len(b.Data) / ch; overlapFrames > max {
		overlapFrames = max
	}
	if overlapFrames <= 0 {
		return appendBuffers(a, b)
	}

	overlap := overlapFrames * ch
	out := &gaudio.IntBuffer{
		Format:         a.Format,
		Data:           make([]int, len(a.Data)+len(b.Data)-overlap),
		SourceBitDepth: 16,
	}
	copy(out.Data, a.Data[:len(a.Data)-overlap])

	base := len(a.Data) - overlap
	for frame := 0; frame < overlapFrames; frame++ {
		t := float64(frame+1) / float64(overlapFrames+1)
		for c := 0; c < ch; c++ {
			i := frame*ch + c
			mixed := float64(a.Data[base+i])*(1-t) + float64(b.Data[i])*t
			out.Data[base+i] = clamp16(mixed)
		}
	}
	copy(out.Data[base+overlap:], b.Data[overlap:])
	return out
}

// normalizePeak scales the whole buffer so its loudest sample sits just
// below full scale, matching headroom regardless of source loudness.
func normalizePeak(buf *gaudio.IntBuffer) {
	peak := 0
	for _, s := range buf.Data {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	if peak == 0 {
		return
	}
	gain := (fullScale16 * 0.99) / float64(peak)
	for i, s := range buf.Data {
		buf.Data[i] = clamp16(float64(s) * gain)
	}
}

// compressDynamicRange applies feed-forward compression with a running
// envelope follower. Parameters mirror a gentle speech leveler: gain
// reduction only above the threshold, smoothed by attack/release so the
// result does not pump audibly.
func compressDynamicRange(buf *gaudio.IntBuffer, thresholdDB, ratio, attackMS, releaseMS float64) {
	sr := float64(buf.Format.SampleRate)
	attack := math.Exp(-1.0 / (sr * attackMS / 1000.0))
	release := math.Exp(-1.0 / (sr * releaseMS / 1000.0))
	threshold := math.Pow(10, thresholdDB/20) * fullScale16

	ch := buf.Format.NumChannels
	envelope := 0.0
	for frame := 0; frame < len(buf.Data)/ch; frame++ {
		// Envelope tracks the peak across channels.
		peak := 0.0
		for c := 0; c < ch; c++ {
			v := math.Abs(float64(buf.Data[frame*ch+c]))
			if v > peak {
				peak = v
			}
		}
		if peak > envelope {
			envelope = attack*envelope + (1-attack)*peak
		} else {
			envelope = release*envelope + (1-release)*peak
		}

		gain := 1.0
		if envelope > threshold {
			overDB := 20 * math.Log10(envelope/threshold)
			reducedDB := overDB / ratio
			gain = math.Pow(10, (reducedDB-overDB)/20)
		}
		for c := 0; c < ch; c++ {
			i := frame*ch + c
			buf.Data[i] = clamp16(float64(buf.Data[i]) * gain)
		}
	}
}

func clamp16(v float64) int {
	if v > fullScale16 {
		return fullScale16
	}
	if v < -fullScale16 - 1 {
		return -fullScale16 - 1
	}
	return int(math.Round(v))
}
