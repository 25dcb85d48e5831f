package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDelayLineCapacityRoundsUpToBlockMultiple(t *testing.T) {
	d := NewDelayLine(10, 44100, 4096, 1)
	// 10ms @ 44.1kHz = 441 samples, rounded up to one block.
	assert.Equal(t, 4096, d.Capacity())

	d2 := NewDelayLine(200, 44100, 4096, 1)
	// 200ms @ 44.1kHz = 8820 samples, rounded up to three blocks.
	assert.Equal(t, 8192+4096, d2.Capacity())
}

func TestDelayLineCapacityAccountsForChannels(t *testing.T) {
	d := NewDelayLine(10, 44100, 4096, 2)
	// Same 10ms, but each frame now carries 2 interleaved samples.
	assert.Equal(t, 4096*2, d.Capacity())
}

func TestDelayLineFirstBlockIsSilence(t *testing.T) {
	d := NewDelayLine(100, 44100, 4096, 1)
	in := make(Frame, 4096)
	for i := range in {
		in[i] = 1000
	}
	out := d.Process(in)
	for _, s := range out {
		assert.Equal(t, int16(0), s)
	}
}

func TestDelayLineEventuallyEmitsInput(t *testing.T) {
	d := NewDelayLine(100, 44100, 4096, 1)
	blocks := d.Capacity()/4096 + 1

	in := make(Frame, 4096)
	for i := range in {
		in[i] = 777
	}

	var last Frame
	for i := 0; i < blocks; i++ {
		last = d.Process(in)
	}
	assert.Equal(t, int16(777), last[0])
}

func TestZeroDelayIsTruePassThrough(t *testing.T) {
	d := NewDelayLine(0, 44100, 4096, 1)
	assert.Equal(t, 0, d.Capacity())

	in := make(Frame, 4096)
	for i := range in {
		in[i] = 777
	}

	// The very first block must come straight through, with no
	// injected one-block silence.
	out := d.Process(in)
	assert.Equal(t, int16(777), out[0])
	assert.Equal(t, int16(777), out[len(out)-1])
}

func TestDelayLinePreservesBlockLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		delayMs := rapid.IntRange(0, 2000).Draw(t, "delayMs")
		channels := rapid.SampledFrom([]int{1, 2}).Draw(t, "channels")
		blockSize := 4096
		d := NewDelayLine(delayMs, 44100, blockSize, channels)

		in := make(Frame, blockSize*channels)
		out := d.Process(in)
		assert.Equal(t, blockSize*channels, len(out))
		assert.Equal(t, 0, d.Capacity()%(blockSize*channels))
	})
}
