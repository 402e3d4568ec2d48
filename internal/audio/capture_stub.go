//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
)

// Recorder stub when portaudio is not available.
type Recorder struct {
	logger *slog.Logger
}

func NewRecorder(sampleRate int, logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

func (r *Recorder) Start(_ context.Context) error {
	return fmt.Errorf("microphone capture not available: rebuild with -tags portaudio")
}

func (r *Recorder) Stop() error {
	return nil
}

func (r *Recorder) Record(_ context.Context) ([]byte, error) {
	return nil, fmt.Errorf("microphone capture not available")
}
