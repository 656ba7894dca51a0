package audio

import (
	"math"
	"sync"
	"time"
)

// EchoSuppressor classifies microphone frames that are really speaker
// bleed. It keeps a rolling buffer of recently played audio and flags
// input that correlates highly with the tail of that buffer.
type EchoSuppressor struct {
	mu         sync.Mutex
	played     []byte
	maxBytes   int
	threshold  float64
	window     time.Duration
	lastPlayed time.Time
}

// NewEchoSuppressor returns a suppressor sized for ~2 seconds of 24kHz
// 16-bit mono playback.
func NewEchoSuppressor() *EchoSuppressor {
	return &EchoSuppressor{
		maxBytes:  96000,
		threshold: 0.55,
		// Covers playback-to-mic latency on typical hardware.
		window: 1200 * time.Millisecond,
	}
}

// SetThreshold adjusts the correlation threshold (0 to 1, lower flags
// more frames as echo).
func (es *EchoSuppressor) SetThreshold(threshold float64) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if threshold >= 0 && threshold <= 1 {
		es.threshold = threshold
	}
}

// RecordPlayed notes audio that was just queued for the speaker.
func (es *EchoSuppressor) RecordPlayed(frame []byte) {
	if len(frame) == 0 {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.played = append(es.played, frame...)
	if len(es.played) > es.maxBytes {
		es.played = es.played[len(es.played)-es.maxBytes:]
	}
	es.lastPlayed = time.Now()
}

// IsEcho reports whether a captured frame is primarily speaker echo.
// It is always false when nothing has played within the latency window.
func (es *EchoSuppressor) IsEcho(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	if time.Since(es.lastPlayed) > es.window || len(es.played) == 0 {
		return false
	}
	return correlation(frame, es.played) > es.threshold
}

// Clear forgets all recorded playback. Call on interruption so stale
// assistant audio cannot blind the detector.
func (es *EchoSuppressor) Clear() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.played = es.played[:0]
}

// correlation computes the normalized cross-correlation between the
// input frame and the tail of the reference buffer, clamped to [0, 1].
func correlation(input, reference []byte) float64 {
	in := toSamples(input)
	ref := toSamples(reference)
	if len(in) == 0 || len(ref) == 0 {
		return 0
	}

	n := len(in)
	if n > len(ref) {
		n = len(ref)
	}
	in = in[:n]
	ref = ref[len(ref)-n:]

	var dot, inEnergy, refEnergy float64
	for i := 0; i < n; i++ {
		dot += in[i] * ref[i]
		inEnergy += in[i] * in[i]
		refEnergy += ref[i] * ref[i]
	}

	norm := math.Sqrt(inEnergy * refEnergy)
	if norm == 0 {
		return 0
	}

	corr := dot / norm
	if corr < 0 {
		return 0
	}
	if corr > 1 {
		return 1
	}
	return corr
}

// toSamples converts 16-bit little-endian PCM to float64 samples in
// [-1, 1].
func toSamples(pcm []byte) []float64 {
	samples := make([]float64, 0, len(pcm)/2)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		samples = append(samples, float64(sample)/32768.0)
	}
	return samples
}
