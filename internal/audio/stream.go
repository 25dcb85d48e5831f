package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// BlockSize is the fixed number of frames per audio block SyncWave
// negotiates for a session (spec: PCM Frame, ~93ms @ 44.1kHz).
const BlockSize = 4096

// DefaultSampleRate is the fallback sample rate tried when an endpoint's
// own reported default cannot be opened.
const DefaultSampleRate = 44100.0

// OpenCapture opens a blocking capture stream on the given device index
// at the given channel count and sample rate. buf is reused by every
// Read call; len(buf)/channels sets the frames per buffer (BlockSize for
// engine sessions).
func OpenCapture(deviceIndex, channels int, sampleRate float64, buf []int16) (*portaudio.Stream, error) {
	dev, err := deviceAt(deviceIndex)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: len(buf) / channels,
	}
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open capture stream on device %d at %d channels/%.0fHz: %w", deviceIndex, channels, sampleRate, err)
	}
	return s, nil
}

// OpenPlayback opens a blocking playback stream on the given device index
// at the given channel count and sample rate. buf is reused by every
// Write call; len(buf)/channels sets the frames per buffer (BlockSize for
// engine sessions).
func OpenPlayback(deviceIndex, channels int, sampleRate float64, buf []int16) (*portaudio.Stream, error) {
	dev, err := deviceAt(deviceIndex)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: len(buf) / channels,
	}
	s, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open playback stream on device %d at %d channels/%.0fHz: %w", deviceIndex, channels, sampleRate, err)
	}
	return s, nil
}

func deviceAt(index int) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate audio devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (have %d devices)", index, len(devices))
	}
	return devices[index], nil
}
