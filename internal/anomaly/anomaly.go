// Package anomaly detects machine-like typing patterns from the most
// recent window vectors of a live session.
//
// The detector is a streaming consumer: it is polled with a sliding tail
// of the session's window sequence on every completed window and emits
// transient, severity-ranked alerts. Alerts are produced per detection
// pass and never stored. Each alert carries its raw diagnostics in the
// Details map so a UI or audit log can explain it without recomputation.
package anomaly

import (
	"fmt"

	"keywitness/internal/stats"
	"keywitness/internal/window"
)

// AlertType categorizes the detected pattern.
type AlertType string

const (
	AlertUnrealisticSpeed AlertType = "UNREALISTIC_SPEED"
	AlertMechanicalRhythm AlertType = "MECHANICAL_RHYTHM"
	AlertExcessivePaste   AlertType = "EXCESSIVE_PASTE"
	AlertNoThinkingPauses AlertType = "NO_THINKING_PAUSES"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one detected anomaly.
type Alert struct {
	Type       AlertType
	Severity   Severity
	Confidence float64 // 0.0-1.0
	Message    string
	Details    map[string]float64
}

// Detection tunables.
const (
	// MinWindows is the minimum window count for any detection.
	MinWindows = 3

	// SpeedCVThreshold flags suspiciously constant speed.
	SpeedCVThreshold = 0.05
	// SpeedWpmFloor gates the constant-speed check to real typing.
	SpeedWpmFloor = 30.0

	// RhythmEntropyThreshold flags suspiciously uniform flight timing.
	RhythmEntropyThreshold = 2.0
	// RhythmMinSamples is the minimum flight samples for the rhythm check.
	RhythmMinSamples = 20
	// RhythmBucketMs is the flight-time bucket width for the rhythm check.
	RhythmBucketMs = 50.0

	// PasteWarningRatio and PasteCriticalRatio tier the paste check.
	PasteWarningRatio  = 0.30
	PasteCriticalRatio = 0.50

	// PauseCheckMinMinutes gates the thinking-pause check.
	PauseCheckMinMinutes = 1.0
	// PauseFrequencyFloor is the pauses-per-minute below which a
	// session looks implausibly relentless.
	PauseFrequencyFloor = 0.3
)

// Detect runs the four independent checks over the recent windows.
// Fewer than MinWindows windows yields no alerts: insufficient signal,
// not an error. pasteRatio is the caller-computed fraction of content
// that arrived via paste.
func Detect(recent []window.Vector, pasteRatio float64) []Alert {
	if len(recent) < MinWindows {
		return nil
	}

	var alerts []Alert
	if a := checkUnrealisticSpeed(recent); a != nil {
		alerts = append(alerts, *a)
	}
	if a := checkMechanicalRhythm(recent); a != nil {
		alerts = append(alerts, *a)
	}
	if a := checkExcessivePaste(pasteRatio); a != nil {
		alerts = append(alerts, *a)
	}
	if a := checkNoThinkingPauses(recent); a != nil {
		alerts = append(alerts, *a)
	}
	return alerts
}

// checkUnrealisticSpeed flags near-constant WPM at real typing speed.
// Humans cannot hold speed this steady; replay and injection tools can.
func checkUnrealisticSpeed(recent []window.Vector) *Alert {
	wpms := make([]float64, len(recent))
	for i, w := range recent {
		wpms[i] = w.AvgWpm
	}

	avg := stats.Mean(wpms)
	cv := stats.CoefficientOfVariation(wpms)
	if cv >= SpeedCVThreshold || avg <= SpeedWpmFloor {
		return nil
	}

	return &Alert{
		Type:       AlertUnrealisticSpeed,
		Severity:   SeverityCritical,
		Confidence: stats.Clamp01(1 - cv/SpeedCVThreshold),
		Message: fmt.Sprintf(
			"typing speed is implausibly constant (cv=%.3f at %.0f wpm)", cv, avg),
		Details: map[string]float64{
			"cv":     cv,
			"avgWpm": avg,
		},
	}
}

// checkMechanicalRhythm flags low flight-time entropy across the recent
// windows. Needs at least RhythmMinSamples samples.
func checkMechanicalRhythm(recent []window.Vector) *Alert {
	var flights []float64
	for _, w := range recent {
		flights = append(flights, w.FlightTimes...)
	}
	if len(flights) < RhythmMinSamples {
		return nil
	}

	entropy := stats.BucketEntropy(flights, RhythmBucketMs)
	if entropy >= RhythmEntropyThreshold {
		return nil
	}

	return &Alert{
		Type:       AlertMechanicalRhythm,
		Severity:   SeverityCritical,
		Confidence: stats.Clamp01(1 - entropy/RhythmEntropyThreshold),
		Message: fmt.Sprintf(
			"keystroke rhythm is mechanically uniform (entropy=%.2f bits)", entropy),
		Details: map[string]float64{
			"entropy": entropy,
		},
	}
}

// checkExcessivePaste tiers the paste ratio: warning at 30%, critical
// at 50%.
func checkExcessivePaste(pasteRatio float64) *Alert {
	if pasteRatio < PasteWarningRatio {
		return nil
	}

	severity := SeverityWarning
	if pasteRatio >= PasteCriticalRatio {
		severity = SeverityCritical
	}

	return &Alert{
		Type:       AlertExcessivePaste,
		Severity:   severity,
		Confidence: stats.Clamp01(pasteRatio / PasteCriticalRatio),
		Message: fmt.Sprintf(
			"%.0f%% of content arrived via paste", pasteRatio*100),
		Details: map[string]float64{
			"pasteRatio": pasteRatio,
		},
	}
}

// checkNoThinkingPauses flags sessions long enough to expect pauses but
// showing almost none. Only evaluated once the windows span a minute.
func checkNoThinkingPauses(recent []window.Vector) *Alert {
	spanMs := float64(recent[len(recent)-1].WindowEnd - recent[0].WindowStart)
	totalMinutes := spanMs / 60000.0
	if totalMinutes < PauseCheckMinMinutes {
		return nil
	}

	pauses := 0
	for _, w := range recent {
		pauses += w.PauseCount
	}
	frequency := float64(pauses) / totalMinutes
	if frequency >= PauseFrequencyFloor {
		return nil
	}

	return &Alert{
		Type:       AlertNoThinkingPauses,
		Severity:   SeverityWarning,
		Confidence: stats.Clamp01(1 - frequency/PauseFrequencyFloor),
		Message: fmt.Sprintf(
			"only %.2f pauses/minute over %.1f minutes of typing", frequency, totalMinutes),
		Details: map[string]float64{
			"pauseFrequency": frequency,
			"totalMinutes":   totalMinutes,
		},
	}
}
