// Package tts abstracts the text-to-speech collaborator. Every backend
// returns a complete WAV clip for one utterance; streaming is not needed
// because segments are assembled only after all of them exist.
package tts

import "context"

// SynthRequest contains parameters to synthesize one utterance.
type SynthRequest struct {
	Voice string
	Text  string
}

// Synthesizer is the contract for producing audio from text.
type Synthesizer interface {
	// Synthesize returns encoded WAV bytes for the request. Context
	// cancellation aborts the call; any failure is an upstream error.
	Synthesize(ctx context.Context, req SynthRequest) ([]byte, error)
}
