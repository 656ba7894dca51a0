package audio

import "math"

// MaxAmplitude returns the largest absolute sample value in a 16-bit
// little-endian mono PCM frame. An empty or odd-length tail contributes
// nothing.
func MaxAmplitude(pcm []byte) int {
	max := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int(int16(pcm[i]) | int16(pcm[i+1])<<8)
		if sample < 0 {
			sample = -sample
		}
		if sample > max {
			max = sample
		}
	}
	return max
}

// RMS returns the root mean square level of a 16-bit little-endian mono
// PCM frame, normalized to [0, 1].
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		f := float64(sample) / 32768.0
		sum += f * f
	}

	return math.Sqrt(sum / float64(len(pcm)/2))
}
