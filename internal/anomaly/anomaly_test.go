package anomaly

import (
	"math"
	"testing"

	"keywitness/internal/window"
)

// mechanicalWindows builds windows with constant speed and perfectly
// uniform flight timing: the replay-tool signature.
func mechanicalWindows(n int) []window.Vector {
	windows := make([]window.Vector, n)
	for i := range windows {
		flights := make([]float64, 30)
		for j := range flights {
			flights[j] = 100
		}
		windows[i] = window.Vector{
			WindowStart:    int64(i) * window.DefaultSizeMs,
			WindowEnd:      int64(i+1) * window.DefaultSizeMs,
			KeystrokeCount: 30,
			TotalKeys:      30,
			AvgWpm:         72,
			FlightTimes:    flights,
		}
	}
	return windows
}

// humanWindows builds plausibly human windows: varying speed, spread
// flight timing, occasional errors and pauses.
func humanWindows() []window.Vector {
	wpms := []float64{40, 55, 72, 60, 48}
	errors := []int{3, 4, 6, 5, 3}
	keys := []int{20, 25, 30, 27, 22}

	windows := make([]window.Vector, len(wpms))
	for i := range windows {
		flights := make([]float64, 0, 11)
		for b := 0; b < 10; b++ {
			flights = append(flights, float64(b)*50+30) // 10 distinct 50ms buckets
		}
		pauses := 0
		if i == 1 {
			flights = append(flights, 2500)
			pauses = 1
		}
		if i == 3 {
			flights = append(flights, 3200)
			pauses = 1
		}
		windows[i] = window.Vector{
			WindowStart:    int64(i) * window.DefaultSizeMs,
			WindowEnd:      int64(i+1) * window.DefaultSizeMs,
			KeystrokeCount: keys[i],
			TotalKeys:      keys[i],
			AvgWpm:         wpms[i],
			ErrorCount:     errors[i],
			PauseCount:     pauses,
			FlightTimes:    flights,
		}
	}
	return windows
}

func findAlert(alerts []Alert, typ AlertType) *Alert {
	for i := range alerts {
		if alerts[i].Type == typ {
			return &alerts[i]
		}
	}
	return nil
}

func TestDetectRequiresThreeWindows(t *testing.T) {
	if got := Detect(mechanicalWindows(2), 0.9); got != nil {
		t.Errorf("2 windows: got %d alerts, want none (insufficient signal)", len(got))
	}
}

func TestDetectMechanicalInput(t *testing.T) {
	alerts := Detect(mechanicalWindows(3), 0)

	speed := findAlert(alerts, AlertUnrealisticSpeed)
	if speed == nil {
		t.Fatal("no UNREALISTIC_SPEED alert for constant 72 wpm")
	}
	if speed.Severity != SeverityCritical {
		t.Errorf("speed severity = %q, want critical", speed.Severity)
	}
	if speed.Confidence != 1.0 {
		t.Errorf("speed confidence = %v, want 1.0 for zero cv", speed.Confidence)
	}
	if speed.Details["cv"] != 0 || speed.Details["avgWpm"] != 72 {
		t.Errorf("speed details = %v", speed.Details)
	}

	rhythm := findAlert(alerts, AlertMechanicalRhythm)
	if rhythm == nil {
		t.Fatal("no MECHANICAL_RHYTHM alert for identical flight times")
	}
	if rhythm.Severity != SeverityCritical {
		t.Errorf("rhythm severity = %q, want critical", rhythm.Severity)
	}
	if rhythm.Confidence != 1.0 {
		t.Errorf("rhythm confidence = %v, want 1.0 for zero entropy", rhythm.Confidence)
	}
}

func TestDetectHumanInput(t *testing.T) {
	alerts := Detect(humanWindows(), 0.05)
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			t.Errorf("human input raised critical alert %q: %s", a.Type, a.Message)
		}
	}
}

func TestDetectPasteTiers(t *testing.T) {
	windows := humanWindows()
	tests := []struct {
		name       string
		pasteRatio float64
		severity   Severity
		want       bool
	}{
		{name: "below warning", pasteRatio: 0.29, want: false},
		{name: "warning boundary", pasteRatio: 0.30, severity: SeverityWarning, want: true},
		{name: "just under critical", pasteRatio: 0.49, severity: SeverityWarning, want: true},
		{name: "critical boundary", pasteRatio: 0.50, severity: SeverityCritical, want: true},
		{name: "heavy paste", pasteRatio: 0.90, severity: SeverityCritical, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := findAlert(Detect(windows, tt.pasteRatio), AlertExcessivePaste)
			if !tt.want {
				if alert != nil {
					t.Fatalf("unexpected paste alert at ratio %v", tt.pasteRatio)
				}
				return
			}
			if alert == nil {
				t.Fatalf("no paste alert at ratio %v", tt.pasteRatio)
			}
			if alert.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", alert.Severity, tt.severity)
			}
			if alert.Details["pasteRatio"] != tt.pasteRatio {
				t.Errorf("details ratio = %v, want %v", alert.Details["pasteRatio"], tt.pasteRatio)
			}
		})
	}
}

func TestDetectNoThinkingPauses(t *testing.T) {
	// 13 varied windows, over a minute of span, no pauses anywhere.
	var windows []window.Vector
	wpmCycle := []float64{45, 62, 51, 70, 58}
	for i := int64(0); i < 13; i++ {
		flights := []float64{
			float64(30 + i*17), 120, 260, 410, 530,
			float64(75 + i*13), 340, 480, 610, 190,
		}
		windows = append(windows, window.Vector{
			WindowStart:    i * window.DefaultSizeMs,
			WindowEnd:      (i + 1) * window.DefaultSizeMs,
			KeystrokeCount: 24,
			TotalKeys:      24,
			AvgWpm:         wpmCycle[i%5],
			FlightTimes:    flights,
		})
	}

	alerts := Detect(windows, 0)
	alert := findAlert(alerts, AlertNoThinkingPauses)
	if alert == nil {
		t.Fatal("no NO_THINKING_PAUSES alert for a pause-free minute")
	}
	if alert.Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning", alert.Severity)
	}
	if alert.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 for zero pauses", alert.Confidence)
	}
	if got := alert.Details["totalMinutes"]; math.Abs(got-13*5.0/60.0) > 1e-9 {
		t.Errorf("totalMinutes = %v", got)
	}
}

func TestDetectPauseCheckNeedsAMinute(t *testing.T) {
	// 5 windows cover only 25 seconds: the check must not run.
	alerts := Detect(humanWindows()[:5], 0)
	if a := findAlert(alerts, AlertNoThinkingPauses); a != nil {
		t.Error("pause check ran on a sub-minute span")
	}
}

func TestConfidenceClamped(t *testing.T) {
	for _, alerts := range [][]Alert{
		Detect(mechanicalWindows(5), 2.0),
		Detect(humanWindows(), 0.31),
	} {
		for _, a := range alerts {
			if a.Confidence < 0 || a.Confidence > 1 {
				t.Errorf("alert %q confidence %v outside [0,1]", a.Type, a.Confidence)
			}
		}
	}
}
