package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gaudio "github.com/go-audio/audio"
)

// Tags carries the metadata written into the exported file.
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// Encoder turns the mastered PCM track into the final deliverable bytes.
type Encoder interface {
	// Encode returns the encoded file contents and its extension
	// (without the dot).
	Encode(ctx context.Context, buf *gaudio.IntBuffer, tags Tags) ([]byte, string, error)
}

// WAVEncoder exports the track as plain WAV. It is the fallback when no
// ffmpeg binary is available and the encoder used throughout the tests.
type WAVEncoder struct{}

func (WAVEncoder) Encode(_ context.Context, buf *gaudio.IntBuffer, _ Tags) ([]byte, string, error) {
	data, err := EncodeWAV(buf)
	if err != nil {
		return nil, "", err
	}
	return data, "wav", nil
}

// FFmpegEncoder shells out to ffmpeg to produce a constant-bitrate MP3
// with metadata tags.
type FFmpegEncoder struct {
	Bin     string
	Bitrate string
}

func (f FFmpegEncoder) Encode(ctx context.Context, buf *gaudio.IntBuffer, tags Tags) ([]byte, string, error) {
	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, "", fmt.Errorf("ffmpeg binary not found: %w", err)
	}
	bitrate := f.Bitrate
	if bitrate == "" {
		bitrate = "192k"
	}

	wavBytes, err := EncodeWAV(buf)
	if err != nil {
		return nil, "", err
	}

	tmpDir, err := os.MkdirTemp("", "castforge-encode-")
	if err != nil {
		return nil, "", fmt.Errorf("create encode workspace: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "master.wav")
	outPath := filepath.Join(tmpDir, "final.mp3")
	if err := os.WriteFile(inPath, wavBytes, 0o644); err != nil {
		return nil, "", fmt.Errorf("stage master track: %w", err)
	}

	args := []string{"-y", "-i", inPath, "-vn", "-b:a", bitrate}
	if tags.Title != "" {
		args = append(args, "-metadata", "title="+tags.Title)
	}
	if tags.Artist != "" {
		args = append(args, "-metadata", "artist="+tags.Artist)
	}
	if tags.Album != "" {
		args = append(args, "-metadata", "album="+tags.Album)
	}
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, bin, args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return nil, "", fmt.Errorf("running ffmpeg: %w: %s", err, tail(output.String(), 400))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, "", fmt.Errorf("read encoded output: %w", err)
	}
	return data, "mp3", nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
