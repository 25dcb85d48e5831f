package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Negotiated is the outcome of opening the capture side of a session: the
// endpoint actually opened, the channel count and sample rate it was
// opened at, the live stream, and the buffer bound to it.
type Negotiated struct {
	EndpointIndex int
	Channels      int
	SampleRate    float64
	Stream        *portaudio.Stream
	Buffer        []int16
}

// ResolveCaptureEndpoint implements negotiation step 1: if useLoopback is
// true, prefer the first device the registry tags as loopback-likely that
// has input channels; otherwise captureIndex is used as given, and a
// negative captureIndex selects the host default input (spec.md §4.1
// Negotiation algorithm #1).
func ResolveCaptureEndpoint(captureIndex int, useLoopback bool) (Endpoint, error) {
	devices, err := Devices()
	if err != nil {
		return Endpoint{}, err
	}

	if useLoopback {
		for _, d := range devices {
			if d.IsLoopbackLikely && d.MaxInputChannels > 0 {
				return d, nil
			}
		}
		// No explicit loopback endpoint found; fall back to
		// captureIndex interpreted as a loopback-capable input.
	}

	if captureIndex < 0 {
		return DefaultInput()
	}

	for _, d := range devices {
		if d.Index == captureIndex {
			return d, nil
		}
	}
	return Endpoint{}, fmt.Errorf("capture endpoint %d not found", captureIndex)
}

// NegotiatedChannels implements negotiation step 2: channels = max(1,
// reported_max_input_channels), except a loopback endpoint reporting zero
// input channels is given 2 (spec.md §4.1 Negotiation algorithm #2).
func NegotiatedChannels(e Endpoint, useLoopback bool) int {
	if e.MaxInputChannels <= 0 {
		if useLoopback {
			return 2
		}
		return 1
	}
	return e.MaxInputChannels
}

// OpenCaptureNegotiated implements negotiation steps 1-3: resolve the
// capture endpoint, determine its channel count, then try the endpoint's
// reported default sample rate before falling back once to 44,100 Hz /
// 2 channels. It returns an error only if both attempts fail.
func OpenCaptureNegotiated(captureIndex int, useLoopback bool) (Negotiated, error) {
	endpoint, err := ResolveCaptureEndpoint(captureIndex, useLoopback)
	if err != nil {
		return Negotiated{}, err
	}

	channels := NegotiatedChannels(endpoint, useLoopback)
	rate := endpoint.DefaultSampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	buf := make([]int16, BlockSize*channels)
	strm, err := OpenCapture(endpoint.Index, channels, rate, buf)
	if err == nil {
		return Negotiated{EndpointIndex: endpoint.Index, Channels: channels, SampleRate: rate, Stream: strm, Buffer: buf}, nil
	}

	// Fallback: 44,100 Hz, 2 channels, per negotiation step 3.
	channels = 2
	rate = DefaultSampleRate
	buf = make([]int16, BlockSize*channels)
	strm, fallbackErr := OpenCapture(endpoint.Index, channels, rate, buf)
	if fallbackErr != nil {
		return Negotiated{}, fmt.Errorf("open capture at default rate: %w (fallback also failed: %v)", err, fallbackErr)
	}
	return Negotiated{EndpointIndex: endpoint.Index, Channels: channels, SampleRate: rate, Stream: strm, Buffer: buf}, nil
}

// OpenPlaybackNegotiated implements negotiation step 4: try to open the
// sink at the capture's negotiated sample rate, then at 44,100 Hz; the
// caller is expected to log and drop the sink when this returns an error.
func OpenPlaybackNegotiated(deviceIndex, channels int, preferredRate float64) (Negotiated, error) {
	buf := make([]int16, BlockSize*channels)
	strm, err := OpenPlayback(deviceIndex, channels, preferredRate, buf)
	if err == nil {
		return Negotiated{EndpointIndex: deviceIndex, Channels: channels, SampleRate: preferredRate, Stream: strm, Buffer: buf}, nil
	}

	if preferredRate == DefaultSampleRate {
		return Negotiated{}, err
	}

	buf = make([]int16, BlockSize*channels)
	strm, fallbackErr := OpenPlayback(deviceIndex, channels, DefaultSampleRate, buf)
	if fallbackErr != nil {
		return Negotiated{}, fmt.Errorf("open playback at %.0fHz: %w (fallback to %.0fHz also failed: %v)", preferredRate, err, DefaultSampleRate, fallbackErr)
	}
	return Negotiated{EndpointIndex: deviceIndex, Channels: channels, SampleRate: DefaultSampleRate, Stream: strm, Buffer: buf}, nil
}
