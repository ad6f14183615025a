package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type httpSynth struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type httpSynthRequest struct {
	Text string `json:"text"`
}

// NewHTTPSynth talks to a hosted voice API. The voice reference is part
// of the URL path; the API key travels in a header.
func NewHTTPSynth(endpoint, apiKey string) Synthesizer {
	return &httpSynth{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   http.DefaultClient,
	}
}

func (h *httpSynth) Synthesize(ctx context.Context, req SynthRequest) ([]byte, error) {
	body, err := json.Marshal(httpSynthRequest{Text: req.Text})
	if err != nil {
		return nil, err
	}

	target := h.endpoint + "/v1/text-to-speech/" + url.PathEscape(req.Voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voice api returned %s: %s", resp.Status, detail)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("voice api returned empty audio")
	}
	return audio, nil
}
