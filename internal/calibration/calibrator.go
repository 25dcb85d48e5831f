package calibration

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/syncwave/syncwave/internal/audio"
	"github.com/syncwave/syncwave/internal/syncwave"
)

// ProgressFunc receives human-readable progress updates during a
// calibration run.
type ProgressFunc func(message string)

// Calibrator runs the probe-and-correlate delay detection for one or more
// sinks.
type Calibrator struct {
	logger *log.Logger
}

// New constructs a Calibrator.
func New(logger *log.Logger) *Calibrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Calibrator{logger: logger}
}

// Calibrate measures the round-trip delay of outputIndex by playing a
// tone through it while recording from inputIndex, then cross-correlating
// the recording against the known probe. Recording starts first (with a
// 100ms warm-up) so the tone's true onset is never missed. When
// useLoopback is true, inputIndex is resolved through the same
// loopback-endpoint preference the engine uses for capture (spec.md §6
// calibrator.calibrate(sink_index, use_loopback, progress)), so a probe
// run against a system-audio loopback device measures the same path the
// engine would negotiate.
func (c *Calibrator) Calibrate(outputIndex, inputIndex int, useLoopback bool, progress ProgressFunc) (Result, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	release, err := audio.Acquire()
	if err != nil {
		return Result{}, fmt.Errorf("acquire audio subsystem: %w", err)
	}
	defer release()

	endpoint, err := audio.ResolveCaptureEndpoint(inputIndex, useLoopback)
	if err != nil {
		return Result{}, fmt.Errorf("resolve capture endpoint: %w", err)
	}
	inputIndex = endpoint.Index

	report("Generating calibration tone...")
	tone := GenerateTone(500, ToneFrequency)
	probe := FlankedProbe(tone)

	recordDurationMs := 500 + 1000 // tone_duration + 1s buffer, per spec
	recordSamples := SampleRate * recordDurationMs / 1000

	report("Playing tone and recording...")

	var (
		recorded []int16
		recErr   error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		recorded, recErr = record(inputIndex, recordSamples)
	}()

	time.Sleep(100 * time.Millisecond)

	if err := play(outputIndex, probe); err != nil {
		wg.Wait()
		return Result{}, &syncwave.CalibrationError{EndpointIndex: outputIndex, Reason: err.Error()}
	}

	wg.Wait()
	if recErr != nil {
		return Result{}, &syncwave.CalibrationError{EndpointIndex: outputIndex, Reason: recErr.Error()}
	}

	report("Analyzing delay...")
	result := DetectDelay(probe, recorded, SampleRate)

	if result.DelayMs < 0 || result.DelayMs > 5000 {
		return Result{}, &syncwave.CalibrationError{
			EndpointIndex: outputIndex,
			Reason:        fmt.Sprintf("implausible delay %.1fms", result.DelayMs),
		}
	}

	report(fmt.Sprintf("Calibration complete! Detected delay: %.1fms (confidence: %.2f)", result.DelayMs, result.Confidence))
	return result, nil
}

// CalibrateAll runs Calibrate for each output index in turn. Calibration
// is exclusive by construction (the probe/record cycle cannot overlap
// with itself), so sinks are calibrated serially, matching
// calibrate_multiple_devices's batch behavior.
func (c *Calibrator) CalibrateAll(outputIndices []int, inputIndex int, useLoopback bool, progress ProgressFunc) map[int]Result {
	results := make(map[int]Result, len(outputIndices))
	for i, idx := range outputIndices {
		if progress != nil {
			progress(fmt.Sprintf("Calibrating device %d/%d...", i+1, len(outputIndices)))
		}
		result, err := c.Calibrate(idx, inputIndex, useLoopback, progress)
		if err != nil {
			c.logger.Warn("calibration failed", "endpoint", idx, "err", err)
			results[idx] = Result{}
			continue
		}
		results[idx] = result
		time.Sleep(500 * time.Millisecond)
	}
	return results
}

func play(deviceIndex int, samples []int16) error {
	buf := make([]int16, len(samples))
	copy(buf, samples)
	strm, err := audio.OpenPlayback(deviceIndex, 1, SampleRate, buf)
	if err != nil {
		return err
	}
	defer strm.Close()
	if err := strm.Start(); err != nil {
		return err
	}
	defer strm.Stop()
	return strm.Write()
}

func record(deviceIndex, samples int) ([]int16, error) {
	buf := make([]int16, samples)
	strm, err := audio.OpenCapture(deviceIndex, 1, SampleRate, buf)
	if err != nil {
		return nil, err
	}
	defer strm.Close()
	if err := strm.Start(); err != nil {
		return nil, err
	}
	defer strm.Stop()
	if err := strm.Read(); err != nil {
		return nil, err
	}
	return buf, nil
}
