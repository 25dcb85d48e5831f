// Package syncwave holds the cross-cutting error taxonomy shared by the
// engine, calibration, and stream packages.
package syncwave

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no associated data.
var (
	ErrAlreadyRunning = errors.New("syncwave: engine already running")
	ErrNotRunning     = errors.New("syncwave: engine not running")
	ErrNoUsableSinks  = errors.New("syncwave: no usable sinks configured")
)

// DeviceEnumerationError wraps a failure to enumerate audio devices.
type DeviceEnumerationError struct {
	Err error
}

func (e *DeviceEnumerationError) Error() string {
	return fmt.Sprintf("enumerate audio devices: %v", e.Err)
}

func (e *DeviceEnumerationError) Unwrap() error { return e.Err }

// DeviceOpenError wraps a failure to open a specific capture or playback
// device.
type DeviceOpenError struct {
	EndpointIndex int
	Err           error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("open device %d: %v", e.EndpointIndex, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// WriteUnderrunError reports a sink that could not keep up with the
// engine's steady-state write rate.
type WriteUnderrunError struct {
	EndpointIndex int
	Err           error
}

func (e *WriteUnderrunError) Error() string {
	return fmt.Sprintf("write underrun on sink %d: %v", e.EndpointIndex, e.Err)
}

func (e *WriteUnderrunError) Unwrap() error { return e.Err }

// CalibrationError reports a calibration run that could not produce a
// usable delay estimate.
type CalibrationError struct {
	EndpointIndex int
	Reason        string
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibration failed on sink %d: %s", e.EndpointIndex, e.Reason)
}

// NetworkBindError wraps a failure to bind the stream server's listening
// socket.
type NetworkBindError struct {
	Address string
	Err     error
}

func (e *NetworkBindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Address, e.Err)
}

func (e *NetworkBindError) Unwrap() error { return e.Err }

// NetworkAcceptError wraps a failure in the server's accept loop.
type NetworkAcceptError struct {
	Err error
}

func (e *NetworkAcceptError) Error() string {
	return fmt.Sprintf("accept connection: %v", e.Err)
}

func (e *NetworkAcceptError) Unwrap() error { return e.Err }

// ErrClientDisconnect marks a clean client disconnection; it is not a
// true error and callers should treat it as an ordinary end-of-session
// signal rather than logging it at error level.
var ErrClientDisconnect = errors.New("syncwave: client disconnected")
