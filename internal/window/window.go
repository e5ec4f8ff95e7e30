// Package window buckets a time-ordered keystroke stream into fixed-size
// time windows and reduces each window to one statistics vector.
//
// The Vector is the single shared unit of truth for both consumers: the
// anomaly detector reads a sliding tail of the vector sequence while the
// feature extractor reads the whole sequence at session end. Windows
// that received no events are skipped entirely, never emitted as zero
// vectors, so downstream variance and entropy are computed only over
// windows with real signal.
package window

import (
	"sort"

	"keywitness/internal/event"
	"keywitness/internal/keyclass"
	"keywitness/internal/stats"
)

// DefaultSizeMs is the default window width.
const DefaultSizeMs int64 = 5000

// DefaultPauseThresholdMs is the flight time at or above which a sample
// counts as a pause.
const DefaultPauseThresholdMs float64 = 2000

// charsPerWord is the standard 5-characters-per-word WPM convention.
const charsPerWord = 5.0

// Vector is the reduction of one time window.
// Invariant: WindowEnd - WindowStart equals the configured window size.
type Vector struct {
	WindowStart int64
	WindowEnd   int64

	// KeystrokeCount and TotalKeys both count keydown events; TotalKeys
	// is the denominator for the error-correction rate.
	KeystrokeCount int
	TotalKeys      int

	AvgWpm          float64
	AvgDwellTimeMs  float64
	AvgFlightTimeMs float64

	// ErrorCount counts navigation keydowns, which stand in for
	// backspace/delete-style corrections in this key taxonomy.
	ErrorCount int

	// PauseCount counts flight samples at or above the pause threshold.
	PauseCount int

	// FlightTimes retains the raw flight samples of the window so
	// session-level entropy can be recomputed from the vector sequence.
	FlightTimes []float64
}

// Aggregate reduces a keystroke sequence to its window vectors.
// Events are defensively sorted by timestamp first: callers may deliver
// them out of order, and the output must not depend on arrival order.
// The first event's timestamp anchors window 0; subsequent windows are
// contiguous windowSizeMs-wide buckets.
func Aggregate(events []event.Keystroke, windowSizeMs int64) []Vector {
	if len(events) == 0 {
		return nil
	}
	if windowSizeMs <= 0 {
		windowSizeMs = DefaultSizeMs
	}

	sorted := make([]event.Keystroke, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	start := sorted[0].TimestampMs

	// Accumulators keyed by window index. Only touched indices produce
	// vectors; gaps stay absent.
	type acc struct {
		keydowns    int
		typingKeys  int
		errors      int
		pauses      int
		dwellTimes  []float64
		flightTimes []float64
	}
	accs := make(map[int64]*acc)
	var maxIdx int64

	for _, ev := range sorted {
		idx := (ev.TimestampMs - start) / windowSizeMs
		a := accs[idx]
		if a == nil {
			a = &acc{}
			accs[idx] = a
		}
		if idx > maxIdx {
			maxIdx = idx
		}

		if ev.Kind == event.KeyDown {
			a.keydowns++
			switch ev.Category {
			case keyclass.CategoryLetter, keyclass.CategoryNumber:
				a.typingKeys++
			case keyclass.CategoryNavigation:
				a.errors++
			}
		}

		// Dwell and flight samples fold into whichever window the
		// carrying event landed in, regardless of event kind.
		if ev.DwellTimeMs != nil {
			a.dwellTimes = append(a.dwellTimes, *ev.DwellTimeMs)
		}
		if ev.FlightTimeMs != nil {
			ft := *ev.FlightTimeMs
			a.flightTimes = append(a.flightTimes, ft)
			if ft >= DefaultPauseThresholdMs {
				a.pauses++
			}
		}
	}

	vectors := make([]Vector, 0, len(accs))
	for idx := int64(0); idx <= maxIdx; idx++ {
		a := accs[idx]
		if a == nil {
			continue // empty window: skipped, not zero-filled
		}

		windowStart := start + idx*windowSizeMs
		v := Vector{
			WindowStart:     windowStart,
			WindowEnd:       windowStart + windowSizeMs,
			KeystrokeCount:  a.keydowns,
			TotalKeys:       a.keydowns,
			AvgWpm:          wpm(a.typingKeys, windowSizeMs),
			AvgDwellTimeMs:  stats.Mean(a.dwellTimes),
			AvgFlightTimeMs: stats.Mean(a.flightTimes),
			ErrorCount:      a.errors,
			PauseCount:      a.pauses,
			FlightTimes:     a.flightTimes,
		}
		vectors = append(vectors, v)
	}
	return vectors
}

// wpm converts a typing-key count over a window duration to words per
// minute using the 5-characters-per-word convention.
func wpm(typingKeys int, windowDurationMs int64) float64 {
	if windowDurationMs <= 0 {
		return 0
	}
	return (float64(typingKeys) / charsPerWord) * (60000.0 / float64(windowDurationMs))
}
