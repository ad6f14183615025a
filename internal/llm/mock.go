package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct {
	responses []string
	index     int
}

// NewMockGenerator returns a Generator that replays canned responses in
// order, falling back to an echo of the prompt once they run out.
func NewMockGenerator(responses ...string) Generator {
	return &mockGenerator{responses: responses}
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	if m.index < len(m.responses) {
		resp := m.responses[m.index]
		m.index++
		return resp, nil
	}
	return "[mock completion for " + strings.TrimSpace(req.Prompt) + "]", nil
}
