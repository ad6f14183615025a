// Package audio implements the assembly engine: WAV decode/encode, the
// joining and mastering DSP, and export of the finished episode.
package audio

import (
	"bytes"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// memWriteSeeker adapts a byte slice to io.WriteSeeker so the wav encoder
// can emit into memory instead of a file.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		grown := make([]byte, need)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = m.pos + int(offset)
	case io.SeekEnd:
		next = len(m.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	m.pos = next
	return int64(next), nil
}

// DecodeWAV parses WAV bytes into an integer PCM buffer.
func DecodeWAV(data []byte) (*gaudio.IntBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decode wav: missing format information")
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return buf, nil
}

// EncodeWAV serializes a PCM buffer as 16-bit WAV bytes.
func EncodeWAV(buf *gaudio.IntBuffer) ([]byte, error) {
	var sink memWriteSeeker
	enc := wav.NewEncoder(&sink, buf.Format.SampleRate, 16, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return sink.buf, nil
}

// Silence returns a buffer of ms milliseconds of silence in the given
// format.
func Silence(format *gaudio.Format, ms int) *gaudio.IntBuffer {
	frames := format.SampleRate * ms / 1000
	return &gaudio.IntBuffer{
		Format:         &gaudio.Format{SampleRate: format.SampleRate, NumChannels: format.NumChannels},
		Data:           make([]int, frames*format.NumChannels),
		SourceBitDepth: 16,
	}
}

// DurationMS reports the playback length of a buffer in milliseconds.
func DurationMS(buf *gaudio.IntBuffer) int {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate == 0 || buf.Format.NumChannels == 0 {
		return 0
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	return frames * 1000 / buf.Format.SampleRate
}
