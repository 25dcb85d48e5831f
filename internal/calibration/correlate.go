package calibration

import "math"

// Result is the outcome of one cross-correlation delay estimate.
type Result struct {
	DelayMs    float64
	Confidence float64
}

// DetectDelay estimates the delay between a reference signal (the probe
// as generated) and a recorded signal (what a microphone captured),
// using discrete cross-correlation: argmax_k sum_n ref[n]*rec[n+k].
//
// Both signals are normalized to unit peak before correlating, matching
// the original calibration engine's approach, so that differing playback
// and recording levels do not bias the peak search.
func DetectDelay(reference, recorded []int16, sampleRate int) Result {
	ref := normalize(reference)
	rec := normalize(recorded)

	if len(ref) == 0 || len(rec) == 0 {
		return Result{}
	}

	// Full cross-correlation: lag k ranges over
	// -(len(ref)-1) .. len(rec)-1, matching scipy's mode='full' with
	// correlation_lags(len(rec), len(ref)).
	bestLag := -(len(ref) - 1)
	bestScore := math.Inf(-1)

	for lag := -(len(ref) - 1); lag <= len(rec)-1; lag++ {
		var score float64
		for n := 0; n < len(ref); n++ {
			recIdx := n + lag
			if recIdx < 0 || recIdx >= len(rec) {
				continue
			}
			score += ref[n] * rec[recIdx]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	delayMs := float64(bestLag) / float64(sampleRate) * 1000.0
	confidence := bestScore / float64(len(reference)*len(recorded))

	return Result{DelayMs: delayMs, Confidence: confidence}
}

func normalize(samples []int16) []float64 {
	out := make([]float64, len(samples))
	var peak float64
	for i, s := range samples {
		v := float64(s)
		out[i] = v
		if abs := mathAbs(v); abs > peak {
			peak = abs
		}
	}
	if peak == 0 {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

func mathAbs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
