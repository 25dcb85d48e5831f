// Package audio wraps the portaudio subsystem lifecycle and device
// enumeration used by the fan-out engine, the calibration engine, and the
// stream client.
package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// handleState is a reference-counted portaudio.Initialize/Terminate pair.
// Several subsystems within one process may each hold a share; the
// underlying library is only initialized once and only torn down when
// the last share is released.
type handleState struct {
	mu   sync.Mutex
	refs int
}

var shared handleState

// Acquire initializes the portaudio subsystem if this is the first caller
// and returns a release function. Safe to call from multiple goroutines.
func Acquire() (release func() error, err error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return nil, err
		}
	}
	shared.refs++
	return release1, nil
}

func release1() error {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	shared.refs--
	if shared.refs == 0 {
		return portaudio.Terminate()
	}
	if shared.refs < 0 {
		shared.refs = 0
	}
	return nil
}
