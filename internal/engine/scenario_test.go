package engine

import (
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSampleRate = 44100.0
	testChannels   = 2
	testBlockSize  = 4096
)

// sineBlocks synthesizes n interleaved-stereo blocks of a 440Hz sine wave,
// the fixture spec.md §8 calls for in Scenarios 1 and 2.
func sineBlocks(n int) []Frame {
	const freq = 440.0
	blocks := make([]Frame, n)
	sampleIndex := 0
	for b := 0; b < n; b++ {
		block := make(Frame, testBlockSize*testChannels)
		for f := 0; f < testBlockSize; f++ {
			t := float64(sampleIndex) / testSampleRate
			v := int16(math.Round(32000 * math.Sin(2*math.Pi*freq*t)))
			block[f*testChannels] = v
			block[f*testChannels+1] = v
			sampleIndex++
		}
		blocks[b] = block
	}
	return blocks
}

type mockCaptureStream struct {
	buf    []int16
	frames chan Frame
	quit   chan struct{}
}

func newMockCaptureStream(blocks []Frame) *mockCaptureStream {
	ch := make(chan Frame, len(blocks))
	for _, b := range blocks {
		ch <- b
	}
	return &mockCaptureStream{
		buf:    make([]int16, testBlockSize*testChannels),
		frames: ch,
		quit:   make(chan struct{}),
	}
}

func (m *mockCaptureStream) Start() error { return nil }
func (m *mockCaptureStream) Stop() error  { return nil }
func (m *mockCaptureStream) Close() error { return nil }
func (m *mockCaptureStream) Write() error { return nil }

func (m *mockCaptureStream) Read() error {
	select {
	case f, ok := <-m.frames:
		if !ok {
			return io.EOF
		}
		copy(m.buf, f)
		return nil
	case <-m.quit:
		return io.EOF
	}
}

type mockPlaybackStream struct {
	buf  []int16
	tick chan struct{}

	mu      sync.Mutex
	written []Frame
}

func newMockPlaybackStream(tick chan struct{}) *mockPlaybackStream {
	return &mockPlaybackStream{
		buf:  make([]int16, testBlockSize*testChannels),
		tick: tick,
	}
}

func (m *mockPlaybackStream) Start() error { return nil }
func (m *mockPlaybackStream) Stop() error  { return nil }
func (m *mockPlaybackStream) Close() error { return nil }
func (m *mockPlaybackStream) Read() error  { return nil }

func (m *mockPlaybackStream) Write() error {
	cp := make(Frame, len(m.buf))
	copy(cp, m.buf)
	m.mu.Lock()
	m.written = append(m.written, cp)
	m.mu.Unlock()
	m.tick <- struct{}{}
	return nil
}

func (m *mockPlaybackStream) Blocks() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.written))
	copy(out, m.written)
	return out
}

type mockBackend struct {
	capture   *mockCaptureStream
	playbacks map[int]*mockPlaybackStream
}

func (b *mockBackend) acquire() (func() error, error) {
	return func() error { return nil }, nil
}

func (b *mockBackend) openCapture(captureIndex int, useLoopback bool) (Stream, []int16, int, float64, error) {
	return b.capture, b.capture.buf, testChannels, testSampleRate, nil
}

func (b *mockBackend) openPlayback(deviceIndex, channels int, preferredRate float64) (Stream, []int16, error) {
	p := b.playbacks[deviceIndex]
	return p, p.buf, nil
}

func silentLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// TestScenarioPureFanOutNoDelay covers spec.md §8 Scenario 1: two sinks at
// gain=100/delay=0 must receive byte-identical copies of every captured
// block, with no injected latency.
func TestScenarioPureFanOutNoDelay(t *testing.T) {
	const numBlocks = 10
	blocks := sineBlocks(numBlocks)
	capture := newMockCaptureStream(blocks)

	tick := make(chan struct{}, numBlocks*2+8)
	sinkA := newMockPlaybackStream(tick)
	sinkB := newMockPlaybackStream(tick)

	e := New(0, []SinkConfig{
		{EndpointIndex: 1, Gain: 100, DelayMs: 0},
		{EndpointIndex: 2, Gain: 100, DelayMs: 0},
	}, false, nil, silentLogger())
	e.backend = &mockBackend{capture: capture, playbacks: map[int]*mockPlaybackStream{1: sinkA, 2: sinkB}}

	require.NoError(t, e.Start())

	for i := 0; i < numBlocks*2; i++ {
		select {
		case <-tick:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sink writes")
		}
	}

	close(capture.quit)
	require.NoError(t, e.Stop())

	gotA := sinkA.Blocks()
	gotB := sinkB.Blocks()
	require.Len(t, gotA, numBlocks)
	require.Len(t, gotB, numBlocks)
	for i := 0; i < numBlocks; i++ {
		assert.Equal(t, []int16(blocks[i]), []int16(gotA[i]), "sink A block %d", i)
		assert.Equal(t, []int16(blocks[i]), []int16(gotB[i]), "sink B block %d", i)
	}
}

// TestScenarioPerSinkDelay covers spec.md §8 Scenario 2: a sink with
// delay_ms=100 (rounding up to 2 blocks at this sample rate/block size)
// must receive 2 blocks of silence before the capture stream's block 0
// shows up, while a delay_ms=0 sink stays byte-identical throughout.
func TestScenarioPerSinkDelay(t *testing.T) {
	const numBlocks = 20
	blocks := sineBlocks(numBlocks)
	capture := newMockCaptureStream(blocks)

	tick := make(chan struct{}, numBlocks*2+8)
	sinkNoDelay := newMockPlaybackStream(tick)
	sinkDelayed := newMockPlaybackStream(tick)

	e := New(0, []SinkConfig{
		{EndpointIndex: 1, Gain: 100, DelayMs: 0},
		{EndpointIndex: 2, Gain: 100, DelayMs: 100},
	}, false, nil, silentLogger())
	e.backend = &mockBackend{capture: capture, playbacks: map[int]*mockPlaybackStream{1: sinkNoDelay, 2: sinkDelayed}}

	require.NoError(t, e.Start())

	for i := 0; i < numBlocks*2; i++ {
		select {
		case <-tick:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sink writes")
		}
	}

	close(capture.quit)
	require.NoError(t, e.Stop())

	gotNoDelay := sinkNoDelay.Blocks()
	gotDelayed := sinkDelayed.Blocks()
	require.Len(t, gotNoDelay, numBlocks)
	require.Len(t, gotDelayed, numBlocks)

	for i := 0; i < numBlocks; i++ {
		assert.Equal(t, []int16(blocks[i]), []int16(gotNoDelay[i]), "no-delay sink block %d", i)
	}

	for i := 0; i < 2; i++ {
		for _, s := range gotDelayed[i] {
			assert.Equal(t, int16(0), s, "delayed sink silence block %d", i)
		}
	}
	for i := 2; i < numBlocks; i++ {
		assert.Equal(t, []int16(blocks[i-2]), []int16(gotDelayed[i]), "delayed sink block %d", i)
	}
}
