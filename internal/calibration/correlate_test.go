package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDelayFindsKnownShift(t *testing.T) {
	tone := GenerateTone(50, 1000)
	shiftSamples := 220 // ~5ms @ 44.1kHz

	recorded := make([]int16, shiftSamples+len(tone)+500)
	copy(recorded[shiftSamples:], tone)

	result := DetectDelay(tone, recorded, SampleRate)

	expectedMs := float64(shiftSamples) / SampleRate * 1000
	assert.InDelta(t, expectedMs, result.DelayMs, 1.0)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestDetectDelayZeroSignalHasNoConfidence(t *testing.T) {
	ref := make([]int16, 100)
	rec := make([]int16, 100)
	result := DetectDelay(ref, rec, SampleRate)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestGenerateToneFadesInAndOut(t *testing.T) {
	tone := GenerateTone(500, 1000)
	assert.Equal(t, SampleRate/2, len(tone))
	assert.Equal(t, int16(0), tone[0])
	assert.Equal(t, int16(0), tone[len(tone)-1])
}

func TestFlankedProbeAddsSilence(t *testing.T) {
	tone := GenerateTone(500, 1000)
	probe := FlankedProbe(tone)
	silenceLen := SampleRate * flankMs / 1000
	assert.Equal(t, len(tone)+2*silenceLen, len(probe))
	assert.Equal(t, int16(0), probe[0])
	assert.Equal(t, int16(0), probe[len(probe)-1])
}
