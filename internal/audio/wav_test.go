package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	wav, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Fatal("missing RIFF header")
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatal("missing WAVE marker")
	}

	// Total size: 44-byte header + 2 bytes per sample.
	wantLen := 44 + len(samples)*2
	if len(wav) != wantLen {
		t.Fatalf("expected %d bytes, got %d", wantLen, len(wav))
	}

	// Sample rate field sits at offset 24.
	rate := binary.LittleEndian.Uint32(wav[24:28])
	if rate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", rate)
	}

	// data chunk size at offset 40.
	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataSize) != len(samples)*2 {
		t.Fatalf("expected data size %d, got %d", len(samples)*2, dataSize)
	}

	// First sample after the header.
	first := int16(binary.LittleEndian.Uint16(wav[44:46]))
	if first != samples[0] {
		t.Fatalf("expected first sample %d, got %d", samples[0], first)
	}
}

func TestEncodeWAV_Empty(t *testing.T) {
	wav, err := EncodeWAV(nil, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wav) != 44 {
		t.Fatalf("expected header only (44 bytes), got %d", len(wav))
	}
}
