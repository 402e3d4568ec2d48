// Package speech wraps the hosted speech-to-text and text-to-speech
// collaborators. Both are opaque external services; this package only
// owns the client plumbing and error mapping.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ErrEmptyUtterance indicates the transcription service returned no
// speech. The turn pipeline surfaces it as "please repeat" without
// touching conversation state.
type ErrEmptyUtterance struct{}

func (ErrEmptyUtterance) Error() string {
	return "no speech detected, please repeat"
}

// WhisperConfig configures the Whisper transcription client.
type WhisperConfig struct {
	APIKey  string
	Model   string // Default: "whisper-large-v3"
	BaseURL string // Default: Groq's OpenAI-compatible endpoint.
}

// WhisperTranscriber transcribes audio through an OpenAI-compatible
// audio endpoint. The default deployment uses Groq-hosted Whisper.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcription client.
func NewWhisperTranscriber(cfg WhisperConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Transcribe sends raw WAV bytes to the transcription service and
// returns the transcript. A transcript with no speech yields
// ErrEmptyUtterance.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyUtterance{}
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "recorded_audio.wav",
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyUtterance{}
	}
	return text, nil
}
