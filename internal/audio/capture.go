//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// Recorder captures one utterance at a time from the default input
// device. Recording ends on sustained silence or a hard length cap.
type Recorder struct {
	stream     *portaudio.Stream
	sampleRate int
	logger     *slog.Logger
	frame      []int16
}

// NewRecorder creates a microphone recorder.
func NewRecorder(sampleRate int, logger *slog.Logger) *Recorder {
	return &Recorder{sampleRate: sampleRate, logger: logger}
}

// Start initializes portaudio and opens the default input stream.
func (r *Recorder) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	const framesPerBuffer = 1024
	r.frame = make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), framesPerBuffer, r.frame)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	r.stream = stream

	if err := r.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	r.logger.Info("microphone started", "sampleRate", r.sampleRate)
	return nil
}

// Stop closes the stream and terminates portaudio.
func (r *Recorder) Stop() error {
	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// Record captures one utterance and returns it as WAV bytes.
func (r *Recorder) Record(ctx context.Context) ([]byte, error) {
	const silenceThreshold = 500
	maxSilenceFrames := r.sampleRate // ~1s of silence ends the utterance
	maxSamples := r.sampleRate * 10  // hard cap: 10s

	samples := make([]int16, 0, r.sampleRate*5)
	silenceFrames := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := r.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}
		samples = append(samples, r.frame...)

		isSilent := true
		for _, s := range r.frame {
			if s > silenceThreshold || s < -silenceThreshold {
				isSilent = false
				break
			}
		}

		if isSilent {
			silenceFrames += len(r.frame)
		} else {
			silenceFrames = 0
		}

		if silenceFrames > maxSilenceFrames && len(samples) > r.sampleRate {
			break
		}
		if len(samples) > maxSamples {
			break
		}
	}

	return EncodeWAV(samples, r.sampleRate)
}
