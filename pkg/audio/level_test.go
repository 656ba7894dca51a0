package audio

import (
	"math"
	"testing"
)

func TestMaxAmplitude(t *testing.T) {
	// 0x1000 = 4096, then -8192 encoded little-endian
	frame := []byte{0x00, 0x10, 0x00, 0xE0}
	if got := MaxAmplitude(frame); got != 8192 {
		t.Errorf("Expected max amplitude 8192, got %d", got)
	}
}

func TestMaxAmplitudeSilence(t *testing.T) {
	if got := MaxAmplitude(make([]byte, 32)); got != 0 {
		t.Errorf("Expected 0 for silence, got %d", got)
	}
	if got := MaxAmplitude(nil); got != 0 {
		t.Errorf("Expected 0 for empty frame, got %d", got)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(make([]byte, 64)); got != 0 {
		t.Errorf("Expected RMS 0 for silence, got %f", got)
	}

	// Full-scale square wave: alternating +16384 and -16384
	frame := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x40, 0x00, 0xC0}
	got := RMS(frame)
	if math.Abs(got-0.5) > 0.001 {
		t.Errorf("Expected RMS 0.5, got %f", got)
	}
}
