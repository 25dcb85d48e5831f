package engine

import "sync/atomic"

// GainStage applies a saturating integer scalar multiply to a PCM block:
// sample * percent / 100, clamped to the int16 range. A gain of 100 is a
// no-op bypass so the common case costs nothing beyond a comparison.
type GainStage struct {
	percent atomic.Int32
}

// NewGainStage constructs a gain stage at the given percent (0-100).
func NewGainStage(percent int) *GainStage {
	g := &GainStage{}
	g.Set(percent)
	return g
}

// Set updates the gain live; safe to call from any goroutine while the
// engine's worker is concurrently reading it via Apply.
func (g *GainStage) Set(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	g.percent.Store(int32(percent))
}

// Get returns the current gain percent.
func (g *GainStage) Get() int {
	return int(g.percent.Load())
}

// Apply scales samples in place.
func (g *GainStage) Apply(samples Frame) {
	percent := g.percent.Load()
	if percent == 100 {
		return
	}
	for i, s := range samples {
		samples[i] = saturatingScale(s, percent)
	}
}

func saturatingScale(sample int16, percent int32) int16 {
	scaled := int32(sample) * percent / 100
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(scaled)
	}
}
