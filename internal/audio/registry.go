package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Endpoint describes one input or output device as reported by the host
// audio API.
type Endpoint struct {
	Index            int
	Name             string
	MaxInputChannels int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsLoopbackLikely  bool
}

var loopbackNameHints = []string{"loopback", "wasapi", "stereo mix", "monitor of"}

// looksLikeLoopback applies the name-substring heuristic used only when
// the host API itself gives no explicit loopback signal.
func looksLikeLoopback(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range loopbackNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Devices enumerates all devices known to the host audio API, in the
// index order portaudio itself assigns, so Endpoint.Index can be used
// directly as an EndpointDescriptor.index.
func Devices() ([]Endpoint, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate audio devices: %w", err)
	}

	out := make([]Endpoint, 0, len(devices))
	for i, d := range devices {
		out = append(out, Endpoint{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			// portaudio's Go binding does not surface a host-API loopback
			// flag on DeviceInfo, so the name heuristic is the only signal
			// available here; callers that have a platform-specific API
			// flag should prefer it and fall back to this only when absent.
			IsLoopbackLikely: looksLikeLoopback(d.Name),
		})
	}
	return out, nil
}

// DefaultInput returns the host API's default capture device.
func DefaultInput() (Endpoint, error) {
	d, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Endpoint{}, fmt.Errorf("default input device: %w", err)
	}
	return deviceToEndpoint(d)
}

// DefaultOutput returns the host API's default playback device.
func DefaultOutput() (Endpoint, error) {
	d, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Endpoint{}, fmt.Errorf("default output device: %w", err)
	}
	return deviceToEndpoint(d)
}

func deviceToEndpoint(d *portaudio.DeviceInfo) (Endpoint, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return Endpoint{}, err
	}
	for i, candidate := range devices {
		if candidate == d {
			return Endpoint{
				Index:             i,
				Name:              d.Name,
				MaxInputChannels:  d.MaxInputChannels,
				MaxOutputChannels: d.MaxOutputChannels,
				DefaultSampleRate: d.DefaultSampleRate,
				IsLoopbackLikely:  looksLikeLoopback(d.Name),
			}, nil
		}
	}
	return Endpoint{Name: d.Name, MaxInputChannels: d.MaxInputChannels,
		MaxOutputChannels: d.MaxOutputChannels, DefaultSampleRate: d.DefaultSampleRate}, nil
}
