package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Synthesizer converts reply text into playable audio.
type Synthesizer interface {
	// Speak renders text with the given voice model and returns the
	// audio bytes (MP3).
	Speak(ctx context.Context, text, voice string) ([]byte, error)
}

// DeepgramConfig configures the Deepgram Speak client.
type DeepgramConfig struct {
	APIKey  string
	BaseURL string // Default: https://api.deepgram.com
	Timeout time.Duration
}

// DeepgramClient calls the Deepgram Speak REST API. Deepgram has no Go
// SDK in use here; the REST surface is a single endpoint.
type DeepgramClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewDeepgramClient creates a Deepgram text-to-speech client.
func NewDeepgramClient(cfg DeepgramConfig) (*DeepgramClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &DeepgramClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type speakRequest struct {
	Text string `json:"text"`
}

// Speak renders text with the given aura voice model.
func (c *DeepgramClient) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(speakRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding speak request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/speak?model=%s", c.baseURL, url.QueryEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending speak request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio response: %w", err)
	}
	return audio, nil
}
