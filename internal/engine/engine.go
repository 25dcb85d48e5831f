package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/syncwave/syncwave/internal/audio"
	"github.com/syncwave/syncwave/internal/syncwave"
)

// State is one of the Fan-Out Engine's lifecycle states.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// SinkConfig is one sink's routing configuration (spec: Sink
// Configuration).
type SinkConfig struct {
	EndpointIndex int
	Gain          int
	DelayMs       int
}

// Broadcaster is the narrow interface the engine needs of a network
// streaming layer, so the engine never owns the stream server's
// lifetime (resolves the Fan-Out/Stream Server cyclic reference).
type Broadcaster interface {
	Broadcast(pcm []byte)
	ClientCount() int
}

// Stream is the subset of *portaudio.Stream the engine needs from a
// capture or playback stream. *portaudio.Stream satisfies this
// interface structurally; tests substitute a mock to drive the
// steady-state loop without real audio hardware.
type Stream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

// backend opens the capture and sink streams a session needs. The
// production backend delegates to the audio package's negotiation
// helpers; tests substitute a mock that hands back in-memory streams.
type backend interface {
	acquire() (release func() error, err error)
	openCapture(captureIndex int, useLoopback bool) (strm Stream, buf []int16, channels int, sampleRate float64, err error)
	openPlayback(deviceIndex, channels int, preferredRate float64) (strm Stream, buf []int16, err error)
}

type realBackend struct{}

func (realBackend) acquire() (func() error, error) {
	return audio.Acquire()
}

func (realBackend) openCapture(captureIndex int, useLoopback bool) (Stream, []int16, int, float64, error) {
	n, err := audio.OpenCaptureNegotiated(captureIndex, useLoopback)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return n.Stream, n.Buffer, n.Channels, n.SampleRate, nil
}

func (realBackend) openPlayback(deviceIndex, channels int, preferredRate float64) (Stream, []int16, error) {
	n, err := audio.OpenPlaybackNegotiated(deviceIndex, channels, preferredRate)
	if err != nil {
		return nil, nil, err
	}
	return n.Stream, n.Buffer, nil
}

type sink struct {
	cfg   SinkConfig
	gain  *GainStage
	delay *DelayLine
	strm  Stream
	buf   []int16
}

// Engine is one Fan-Out Engine session: a single capture source routed to
// N local playback sinks plus an optional broadcast tap.
type Engine struct {
	captureIndex int
	useLoopback  bool
	sinkConfigs  []SinkConfig
	gains        map[int]*GainStage
	broadcaster  Broadcaster
	logger       *log.Logger
	backend      backend

	mu      sync.Mutex
	state   State
	sinks   []*sink
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	release func() error
}

// New constructs an Engine bound to a capture endpoint and a set of sink
// configurations. It does not open any device; that happens in Start.
// useLoopback selects the loopback capture path per spec.md §4.1/§6
// (engine.start(capture_index, sinks, use_loopback)).
func New(captureIndex int, sinks []SinkConfig, useLoopback bool, broadcaster Broadcaster, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		captureIndex: captureIndex,
		useLoopback:  useLoopback,
		sinkConfigs:  sinks,
		gains:        make(map[int]*GainStage, len(sinks)),
		broadcaster:  broadcaster,
		logger:       logger,
		state:        StateIdle,
		backend:      realBackend{},
	}
	for _, c := range sinks {
		e.gains[c.EndpointIndex] = NewGainStage(c.Gain)
	}
	return e
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetGain updates a sink's gain live without locking the steady-state
// loop (spec Design Note: dynamic gain per block).
func (e *Engine) SetGain(endpointIndex, percent int) error {
	g, ok := e.gains[endpointIndex]
	if !ok {
		return fmt.Errorf("no sink for endpoint %d", endpointIndex)
	}
	g.Set(percent)
	return nil
}

// Start transitions Idle -> Starting -> Running, opening the capture
// stream and every sink's playback stream. It is rejected from any
// non-Idle state. Negotiation follows spec.md §4.1: the capture endpoint
// and its channel/sample-rate are resolved first; each sink is then
// opened at the capture's negotiated rate, falling back to 44,100 Hz,
// and dropped (logged, not fatal) if neither attempt succeeds. Start
// fails with NoUsableSinks only if every sink is dropped this way, or
// if no sinks were configured at all.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return syncwave.ErrAlreadyRunning
	}
	e.state = StateStarting
	e.mu.Unlock()

	if len(e.sinkConfigs) == 0 {
		e.toIdle()
		return syncwave.ErrNoUsableSinks
	}

	release, err := e.backend.acquire()
	if err != nil {
		e.toIdle()
		return fmt.Errorf("acquire audio subsystem: %w", err)
	}
	e.release = release

	captureStream, captureBuf, channels, sampleRate, err := e.backend.openCapture(e.captureIndex, e.useLoopback)
	if err != nil {
		_ = e.release()
		e.toIdle()
		return &syncwave.DeviceOpenError{EndpointIndex: e.captureIndex, Err: err}
	}

	var active []*sink
	for _, cfg := range e.sinkConfigs {
		strm, buf, err := e.backend.openPlayback(cfg.EndpointIndex, channels, sampleRate)
		if err != nil {
			e.logger.Warn("dropping sink: could not open at negotiated or fallback rate", "endpoint", cfg.EndpointIndex, "err", err)
			continue
		}
		active = append(active, &sink{
			cfg:   cfg,
			gain:  e.gains[cfg.EndpointIndex],
			delay: NewDelayLine(cfg.DelayMs, int(sampleRate), audio.BlockSize, channels),
			strm:  strm,
			buf:   buf,
		})
	}

	if len(active) == 0 {
		_ = captureStream.Close()
		_ = e.release()
		e.toIdle()
		return syncwave.ErrNoUsableSinks
	}

	if err := captureStream.Start(); err != nil {
		for _, s := range active {
			_ = s.strm.Close()
		}
		_ = captureStream.Close()
		_ = e.release()
		e.toIdle()
		return &syncwave.DeviceOpenError{EndpointIndex: e.captureIndex, Err: err}
	}
	for _, s := range active {
		if err := s.strm.Start(); err != nil {
			e.logger.Warn("sink failed to start, continuing without it", "endpoint", s.cfg.EndpointIndex, "err", err)
			s.strm = nil
		}
	}

	e.mu.Lock()
	e.sinks = active
	e.state = StateRunning
	e.mu.Unlock()

	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.running.Store(true)

	go e.loop(captureStream, captureBuf)

	e.logger.Info("engine started", "capture", e.captureIndex, "channels", channels, "sample_rate", sampleRate, "sinks", len(active))
	return nil
}

func (e *Engine) toIdle() {
	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
}

func (e *Engine) loop(captureStream Stream, captureBuf []int16) {
	defer close(e.doneCh)
	defer func() {
		_ = captureStream.Stop()
		_ = captureStream.Close()
		for _, s := range e.sinks {
			if s.strm != nil {
				_ = s.strm.Stop()
				_ = s.strm.Close()
			}
		}
		if e.release != nil {
			_ = e.release()
		}
	}()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		if err := captureStream.Read(); err != nil {
			e.logger.Warn("capture read error", "err", err)
			continue
		}

		block := Frame(captureBuf)
		e.logger.Debug("captured block", "samples", len(block))

		for _, s := range e.sinks {
			if s.strm == nil {
				continue
			}
			// Gain is applied first, then the scaled block is pushed
			// into the delay line, so a live SetGain change only ever
			// affects newly captured blocks, not audio already
			// in flight through the FIFO (spec.md §4.1 step 2a->2b).
			scaled := block.Clone()
			s.gain.Apply(scaled)
			delayed := s.delay.Process(scaled)
			copy(s.buf, delayed)
			if err := s.strm.Write(); err != nil {
				e.logger.Warn("write underrun", "endpoint", s.cfg.EndpointIndex, "err", err)
			}
		}

		if e.broadcaster != nil {
			e.broadcaster.Broadcast(int16SliceToBytes(block.Clone()))
		}
	}
}

// Stop transitions Running -> Stopping -> Idle, blocking until the
// steady-state loop has exited and all streams are closed.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return syncwave.ErrNotRunning
	}
	e.state = StateStopping
	e.mu.Unlock()

	e.running.Store(false)
	close(e.stopCh)
	<-e.doneCh

	e.mu.Lock()
	e.state = StateIdle
	e.sinks = nil
	e.mu.Unlock()

	e.logger.Info("engine stopped")
	return nil
}

func int16SliceToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}
