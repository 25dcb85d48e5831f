// Package calibration implements the calibration engine: a windowed tone
// probe, synchronized play+record, and cross-correlation delay detection.
package calibration

import "math"

const (
	// SampleRate matches the session sample rate used elsewhere.
	SampleRate = 44100
	// ToneFrequency is the 1kHz calibration probe frequency.
	ToneFrequency = 1000.0
	// ToneDuration is the probe's audible duration.
	ToneDuration = 500 * 1e6 // nanoseconds, 500ms
	fadeMs       = 10
	flankMs      = 200
)

// GenerateTone synthesizes a windowed sine probe: fadeMs fade-in, a flat
// plateau, fadeMs fade-out, at 50% amplitude to leave headroom.
func GenerateTone(durationMs int, frequencyHz float64) []int16 {
	samples := SampleRate * durationMs / 1000
	fadeSamples := SampleRate * fadeMs / 1000
	tone := make([]int16, samples)

	for i := 0; i < samples; i++ {
		t := float64(i) / SampleRate
		v := math.Sin(2 * math.Pi * frequencyHz * t)

		envelope := 1.0
		if i < fadeSamples {
			envelope = float64(i) / float64(fadeSamples)
		} else if i >= samples-fadeSamples {
			envelope = float64(samples-1-i) / float64(fadeSamples)
		}

		v *= envelope * 0.5
		tone[i] = int16(v * 32767)
	}
	return tone
}

// FlankedProbe returns the tone flanked on both sides by flankMs of
// silence, the signal actually written to the playback stream so the
// recorder has clean silence to detect the tone's true onset against.
func FlankedProbe(tone []int16) []int16 {
	silence := make([]int16, SampleRate*flankMs/1000)
	out := make([]int16, 0, len(silence)*2+len(tone))
	out = append(out, silence...)
	out = append(out, tone...)
	out = append(out, silence...)
	return out
}
