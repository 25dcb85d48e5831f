package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syncwave/syncwave/internal/syncwave"
)

func TestNewEngineStartsIdle(t *testing.T) {
	e := New(0, []SinkConfig{{EndpointIndex: 1, Gain: 100, DelayMs: 0}}, false, nil, nil)
	assert.Equal(t, StateIdle, e.State())
}

func TestSetGainUnknownSinkErrors(t *testing.T) {
	e := New(0, []SinkConfig{{EndpointIndex: 1, Gain: 100}}, false, nil, nil)
	err := e.SetGain(99, 50)
	assert.Error(t, err)
}

func TestSetGainKnownSink(t *testing.T) {
	e := New(0, []SinkConfig{{EndpointIndex: 1, Gain: 100}}, false, nil, nil)
	assert.NoError(t, e.SetGain(1, 30))
	assert.Equal(t, 30, e.gains[1].Get())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
}

func TestStopWithoutStartReturnsNotRunning(t *testing.T) {
	e := New(0, []SinkConfig{{EndpointIndex: 1, Gain: 100}}, false, nil, nil)
	assert.ErrorIs(t, e.Stop(), syncwave.ErrNotRunning)
}
