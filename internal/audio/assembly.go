package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	gaudio "github.com/go-audio/audio"

	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/storage"
)

// Result describes one finished assembly run.
type Result struct {
	Location        string  `json:"location"`
	DurationSeconds int     `json:"duration_seconds"`
	FileSizeMB      float64 `json:"file_size_mb"`
	SegmentCount    int     `json:"segment_count"`
}

// Assembler joins rendered segments into a single mastered episode track.
type Assembler struct {
	cfg   config.AudioConfig
	store storage.Store
	enc   Encoder
	log   *slog.Logger
}

func NewAssembler(cfg config.AudioConfig, store storage.Store, log *slog.Logger) *Assembler {
	var enc Encoder
	switch cfg.Encoder {
	case "wav":
		enc = WAVEncoder{}
	default:
		enc = FFmpegEncoder{Bin: cfg.FFmpegBin, Bitrate: cfg.Bitrate}
	}
	return &Assembler{
		cfg:   cfg,
		store: store,
		enc:   enc,
		log:   log.With(slog.String("component", "assembler")),
	}
}

// Assemble joins the ordered segments with fixed silence gaps, bookends the
// speech with optional intro/outro music via crossfades, masters the track,
// and exports it under the target's prefix. Missing intro/outro music
// degrades to speech-only output; an empty segment list is a validation
// failure.
func (a *Assembler) Assemble(ctx context.Context, targetID string, segmentLocations []string, introLoc, outroLoc string) (Result, error) {
	if len(segmentLocations) == 0 {
		return Result{}, faults.Validation("no audio segments to assemble")
	}

	speech, err := a.joinSegments(ctx, segmentLocations)
	if err != nil {
		return Result{}, err
	}

	final := speech
	if intro := a.loadMusic(ctx, introLoc); intro != nil {
		if reconciled, ok := reconcile(intro, speech.Format); ok {
			final = appendWithCrossfade(reconciled, final, a.cfg.IntroCrossfadeMS)
		} else {
			a.log.Warn("intro format mismatch, skipping", slog.String("location", introLoc))
		}
	}
	if outro := a.loadMusic(ctx, outroLoc); outro != nil {
		if reconciled, ok := reconcile(outro, speech.Format); ok {
			final = appendWithCrossfade(final, reconciled, a.cfg.OutroCrossfadeMS)
		} else {
			a.log.Warn("outro format mismatch, skipping", slog.String("location", outroLoc))
		}
	}

	normalizePeak(final)
	compressDynamicRange(final, -20.0, 4.0, 5.0, 50.0)

	durationSeconds := DurationMS(final) / 1000

	encoded, ext, err := a.enc.Encode(ctx, final, Tags{
		Title:  targetID,
		Artist: a.cfg.TagArtist,
		Album:  a.cfg.TagAlbum,
	})
	if err != nil {
		return Result{}, faults.Upstream("encode final track", err)
	}

	outPath := fmt.Sprintf("episodes/%s/final.%s", targetID, ext)
	location, err := a.store.Put(ctx, encoded, outPath)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Location:        location,
		DurationSeconds: durationSeconds,
		FileSizeMB:      math.Round(float64(len(encoded))/(1024*1024)*100) / 100,
		SegmentCount:    len(segmentLocations),
	}
	a.log.Info("episode assembled",
		slog.String("target", targetID),
		slog.Int("segments", result.SegmentCount),
		slog.Int("duration_s", result.DurationSeconds),
		slog.Float64("size_mb", result.FileSizeMB))
	return result, nil
}

// AssembleStored rebuilds the episode from segments already in storage,
// using the configured intro/outro music. It backs the manual finalize
// operation for re-mastering without a new render.
func (a *Assembler) AssembleStored(ctx context.Context, targetID string) (Result, error) {
	prefix := fmt.Sprintf("episodes/%s/segments", targetID)
	locations, err := a.store.List(ctx, prefix)
	if err != nil {
		return Result{}, err
	}
	if len(locations) == 0 {
		return Result{}, faults.Validation("no rendered segments for target %s", targetID)
	}
	return a.Assemble(ctx, targetID, locations, a.cfg.IntroPath, a.cfg.OutroPath)
}

// joinSegments decodes each segment in order and concatenates them with a
// fixed silence gap between consecutive segments only.
func (a *Assembler) joinSegments(ctx context.Context, locations []string) (*gaudio.IntBuffer, error) {
	var speech *gaudio.IntBuffer
	for i, loc := range locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := a.store.Get(ctx, loc)
		if err != nil {
			return nil, err
		}
		seg, err := DecodeWAV(data)
		if err != nil {
			return nil, faults.Upstream(fmt.Sprintf("decode segment %d", i), err)
		}
		if speech == nil {
			speech = seg
			continue
		}
		reconciled, ok := reconcile(seg, speech.Format)
		if !ok {
			return nil, faults.Validation("segment %d format %dHz/%dch does not match %dHz/%dch",
				i, seg.Format.SampleRate, seg.Format.NumChannels,
				speech.Format.SampleRate, speech.Format.NumChannels)
		}
		speech = appendBuffers(speech, Silence(speech.Format, a.cfg.SpeakerGapMS))
		speech = appendBuffers(speech, reconciled)
	}
	return speech, nil
}

// loadMusic fetches and decodes an optional music clip. Absence is not an
// error; decode failures are logged and skipped so a broken bumper never
// sinks an episode.
func (a *Assembler) loadMusic(ctx context.Context, location string) *gaudio.IntBuffer {
	if location == "" || !a.store.Exists(ctx, location) {
		return nil
	}
	data, err := a.store.Get(ctx, location)
	if err != nil {
		a.log.Warn("music clip unreadable, skipping", slog.String("location", location), slog.String("error", err.Error()))
		return nil
	}
	buf, err := DecodeWAV(data)
	if err != nil {
		a.log.Warn("music clip undecodable, skipping", slog.String("location", location), slog.String("error", err.Error()))
		return nil
	}
	return buf
}

// reconcile verifies a clip matches the reference format. Sample-rate
// conversion is out of scope, so mismatches are reported to the caller.
func reconcile(buf *gaudio.IntBuffer, ref *gaudio.Format) (*gaudio.IntBuffer, bool) {
	if buf.Format.SampleRate == ref.SampleRate && buf.Format.NumChannels == ref.NumChannels {
		return buf, true
	}
	return nil, false
}
