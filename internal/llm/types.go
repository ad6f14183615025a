package llm

import "context"

// Request describes a single text-generation call.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Generator is a pluggable text-generation backend. Implementations
// return the full completion; failures surface as errors for the caller
// to classify.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
