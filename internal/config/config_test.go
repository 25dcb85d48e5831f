package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultWhenNoFileFound(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	cfg := Config{
		CaptureIndex: 3,
		UseLoopback:  true,
		ServerPort:   5555,
		DisplayName:  "Living Room",
		Sinks: []SinkEntry{
			{EndpointIndex: 5, Gain: 80, DelayMs: 0},
			{EndpointIndex: 7, Gain: 60, DelayMs: 120},
		},
	}
	require.NoError(t, Save(filepath.Join(dir, "syncwave.yaml"), cfg))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}
