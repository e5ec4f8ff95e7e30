// Package features reduces a session's window vector sequence into one
// statistical feature set.
//
// Features carry no identity of their own: they are recomputed from the
// vector sequence each time they are needed, so they are disposable
// derived state rather than a record of truth. Extraction never errors;
// sparse or empty input produces defined zero or sentinel values.
package features

import (
	"keywitness/internal/stats"
	"keywitness/internal/window"
)

// EntropySentinel marks insufficient data for flight-time entropy.
// Callers must treat it as "not enough samples", never as a genuine
// low-entropy (machine-like) signal.
const EntropySentinel = -1.0

// MinEntropySamples is the minimum flight samples for a meaningful
// flight-time entropy estimate.
const MinEntropySamples = 10

// FlightBucketMs is the bucket width for flight-time entropy.
const FlightBucketMs = 50.0

// PauseBucketMs is the bucket width for pause-pattern entropy.
const PauseBucketMs = 500.0

// Features is the session-level feature set fed to the scoring engine.
type Features struct {
	AvgWpm      float64
	WpmVariance float64

	// TypingSpeedCV is the coefficient of variation of per-window WPM.
	TypingSpeedCV float64

	// FlightTimeEntropy is the bucketed Shannon entropy of all flight
	// samples, or EntropySentinel when fewer than MinEntropySamples
	// samples exist.
	FlightTimeEntropy float64

	ErrorCorrectionRate float64
	PausePatternEntropy float64

	// BurstPauseRatio is burst time / pause time, or the burst time
	// alone when no pauses occurred (deliberately large, signaling
	// "no pauses observed" rather than an undefined ratio).
	BurstPauseRatio float64

	// FatigueSlope is the OLS slope of per-window WPM over window index.
	FatigueSlope float64

	// ThinkingPauseFrequency is pauses per minute of session time.
	ThinkingPauseFrequency float64
}

// IsZero reports whether f is the empty-session feature set. The
// flight-time entropy field is ignored because the sentinel also
// appears on empty input.
func (f Features) IsZero() bool {
	return f.AvgWpm == 0 &&
		f.WpmVariance == 0 &&
		f.TypingSpeedCV == 0 &&
		f.ErrorCorrectionRate == 0 &&
		f.PausePatternEntropy == 0 &&
		f.BurstPauseRatio == 0 &&
		f.FatigueSlope == 0 &&
		f.ThinkingPauseFrequency == 0
}

// Extract reduces an ordered window vector sequence to its Features.
// An empty sequence yields the zero feature set with the entropy
// sentinel set; this is not an error.
func Extract(windows []window.Vector) Features {
	if len(windows) == 0 {
		return Features{FlightTimeEntropy: EntropySentinel}
	}

	var (
		nonZeroWpms []float64
		allWpms     []float64
		flightTimes []float64
		totalErrors int
		totalKeys   int
		totalPauses int
	)
	for _, w := range windows {
		allWpms = append(allWpms, w.AvgWpm)
		if w.AvgWpm > 0 {
			nonZeroWpms = append(nonZeroWpms, w.AvgWpm)
		}
		flightTimes = append(flightTimes, w.FlightTimes...)
		totalErrors += w.ErrorCount
		totalKeys += w.TotalKeys
		totalPauses += w.PauseCount
	}

	f := Features{
		AvgWpm:        stats.Mean(nonZeroWpms),
		WpmVariance:   stats.SampleVariance(nonZeroWpms),
		TypingSpeedCV: stats.CoefficientOfVariation(nonZeroWpms),
		FatigueSlope:  stats.OLSSlope(allWpms),
	}

	if len(flightTimes) < MinEntropySamples {
		f.FlightTimeEntropy = EntropySentinel
	} else {
		f.FlightTimeEntropy = stats.BucketEntropy(flightTimes, FlightBucketMs)
	}

	if totalKeys > 0 {
		f.ErrorCorrectionRate = float64(totalErrors) / float64(totalKeys)
	}

	// Pause durations are the flight samples at or above the pause
	// threshold.
	var pauses []float64
	var pauseTimeMs float64
	for _, ft := range flightTimes {
		if ft >= window.DefaultPauseThresholdMs {
			pauses = append(pauses, ft)
			pauseTimeMs += ft
		}
	}
	if len(pauses) >= 2 {
		f.PausePatternEntropy = stats.BucketEntropy(pauses, PauseBucketMs)
	}

	totalSessionMs := float64(windows[len(windows)-1].WindowEnd - windows[0].WindowStart)
	burstTimeMs := totalSessionMs - pauseTimeMs

	switch {
	case pauseTimeMs > 0:
		f.BurstPauseRatio = burstTimeMs / pauseTimeMs
	case burstTimeMs > 0:
		// No pauses at all: surface the burst time itself so callers
		// see a deliberately large "no pauses observed" value.
		f.BurstPauseRatio = burstTimeMs
	}

	if totalSessionMs > 0 {
		minutes := totalSessionMs / 60000.0
		f.ThinkingPauseFrequency = float64(totalPauses) / minutes
	}

	return f
}
