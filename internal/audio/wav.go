// Package audio provides microphone capture for the terminal client.
// Capture requires the portaudio build tag; without it a stub is
// compiled so the server build has no native dependency.
package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps 16-bit mono PCM samples in a RIFF/WAVE header.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	if err := binary.Write(&buf, binary.LittleEndian, int32(fileSize)); err != nil {
		return nil, err
	}
	buf.WriteString("WAVE")

	// fmt chunk: PCM, mono, 16-bit.
	buf.WriteString("fmt ")
	for _, v := range []any{
		int32(16),                  // chunk size
		int16(1),                   // PCM
		int16(1),                   // mono
		int32(sampleRate),          // sample rate
		int32(sampleRate * 2),      // byte rate
		int16(2),                   // block align
		int16(16),                  // bits per sample
	} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}

	buf.WriteString("data")
	if err := binary.Write(&buf, binary.LittleEndian, int32(dataSize)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
