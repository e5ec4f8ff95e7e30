// Package scoring converts a session feature set into the certificate
// score: an integer 0-100, a binary grade, and a descriptive label.
//
// Score is a pure function of its inputs. The same Config and Features
// always produce the same Result, which is what lets the live preview
// and the final certificate agree exactly.
package scoring

import "keywitness/internal/features"

// Grade values.
const (
	GradeCertified    = "Certified"
	GradeNotCertified = "Not Certified"
)

// Label tiers.
const (
	LabelHighlyLikely = "Highly likely human-written"
	LabelLikely       = "Likely human-written"
	LabelInconclusive = "Inconclusive"
	LabelUnlikely     = "Unlikely human-written"
)

// Dimension weights. They sum to 1.0.
const (
	weightSpeedCV       = 0.20
	weightFlightEntropy = 0.25
	weightErrorRate     = 0.15
	weightThinkingPause = 0.15
	weightFatigue       = 0.10
	weightBurstPause    = 0.15
)

// entropyCeiling is the assumed upper bound for flight-time entropy
// when interpolating the threshold score.
const entropyCeiling = 6.0

// Config holds the recognized scoring tunables. All are overridable per
// deployment without code changes.
type Config struct {
	CVMin            float64 `toml:"cv_min" yaml:"cv_min" json:"cv_min"`
	CVMax            float64 `toml:"cv_max" yaml:"cv_max" json:"cv_max"`
	EntropyMin       float64 `toml:"entropy_min" yaml:"entropy_min" json:"entropy_min"`
	ErrorRateMin     float64 `toml:"error_rate_min" yaml:"error_rate_min" json:"error_rate_min"`
	ErrorRateMax     float64 `toml:"error_rate_max" yaml:"error_rate_max" json:"error_rate_max"`
	ThinkingPauseMin float64 `toml:"thinking_pause_min" yaml:"thinking_pause_min" json:"thinking_pause_min"`
	ThinkingPauseMax float64 `toml:"thinking_pause_max" yaml:"thinking_pause_max" json:"thinking_pause_max"`

	// CertifiedThreshold is the inclusive score boundary for the
	// Certified grade.
	CertifiedThreshold int `toml:"certified_threshold" yaml:"certified_threshold" json:"certified_threshold"`
}

// DefaultConfig returns the calibrated default tunables.
func DefaultConfig() Config {
	return Config{
		CVMin:              0.15,
		CVMax:              0.60,
		EntropyMin:         3.0,
		ErrorRateMin:       0.03,
		ErrorRateMax:       0.20,
		ThinkingPauseMin:   0.5,
		ThinkingPauseMax:   8.0,
		CertifiedThreshold: 60,
	}
}

// DimensionSnapshot carries the three feature values surfaced on the
// public certificate.
type DimensionSnapshot struct {
	TypingSpeedCV       float64 `json:"typing_speed_cv"`
	ErrorCorrectionRate float64 `json:"error_correction_rate"`
	PausePatternEntropy float64 `json:"pause_pattern_entropy"`
}

// Result is the scoring output handed to the certificate issuer.
type Result struct {
	OverallScore int               `json:"overall_score"`
	Grade        string            `json:"grade"`
	Label        string            `json:"label"`
	Dimensions   DimensionSnapshot `json:"dimensions"`
}

// Score maps a feature set to its Result. An all-zero feature set (an
// empty session) always yields score 0 and Not Certified; this boundary
// is load-bearing, not incidental.
func Score(f features.Features, cfg Config) Result {
	snapshot := DimensionSnapshot{
		TypingSpeedCV:       f.TypingSpeedCV,
		ErrorCorrectionRate: f.ErrorCorrectionRate,
		PausePatternEntropy: f.PausePatternEntropy,
	}

	if f.IsZero() {
		return Result{
			OverallScore: 0,
			Grade:        GradeNotCertified,
			Label:        LabelUnlikely,
			Dimensions:   snapshot,
		}
	}

	weighted := rangeScore(f.TypingSpeedCV, cfg.CVMin, cfg.CVMax)*weightSpeedCV +
		thresholdScore(f.FlightTimeEntropy, cfg.EntropyMin, entropyCeiling)*weightFlightEntropy +
		rangeScore(f.ErrorCorrectionRate, cfg.ErrorRateMin, cfg.ErrorRateMax)*weightErrorRate +
		rangeScore(f.ThinkingPauseFrequency, cfg.ThinkingPauseMin, cfg.ThinkingPauseMax)*weightThinkingPause +
		fatigueScore(f.FatigueSlope)*weightFatigue +
		burstPauseScore(f.BurstPauseRatio)*weightBurstPause

	overall := int(weighted)
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	grade := GradeNotCertified
	if overall >= cfg.CertifiedThreshold {
		grade = GradeCertified
	}

	return Result{
		OverallScore: overall,
		Grade:        grade,
		Label:        label(overall, cfg.CertifiedThreshold),
		Dimensions:   snapshot,
	}
}

// label maps a score to its human-readable tier.
func label(score, certifiedThreshold int) string {
	switch {
	case score >= 80:
		return LabelHighlyLikely
	case score >= certifiedThreshold:
		return LabelLikely
	case score >= 40:
		return LabelInconclusive
	default:
		return LabelUnlikely
	}
}

// rangeScore scores a value against an ideal [min, max] range: 100
// inside, decaying linearly to 0 at a distance of (max-min)/2 beyond
// either boundary, floored at 0.
func rangeScore(value, min, max float64) float64 {
	if value >= min && value <= max {
		return 100
	}

	halfRange := (max - min) / 2
	if halfRange <= 0 {
		return 0
	}

	var distance float64
	if value < min {
		distance = min - value
	} else {
		distance = value - max
	}

	score := 100 * (1 - distance/halfRange)
	if score < 0 {
		return 0
	}
	return score
}

// thresholdScore scores a value against a minimum expectation: 0 below
// half the minimum, 100 at or above the ceiling, linear in between.
func thresholdScore(value, minExpected, maxExpected float64) float64 {
	lower := 0.5 * minExpected
	if value < lower {
		return 0
	}
	if value >= maxExpected {
		return 100
	}
	if maxExpected <= lower {
		return 0
	}
	return 100 * (value - lower) / (maxExpected - lower)
}

// fatigueScore scores the WPM trend. A gently declining speed is the
// human signature; flat or rising speed over a session is suspicious,
// and a steep collapse is not maximally scored either.
func fatigueScore(slope float64) float64 {
	switch {
	case slope < -2.0:
		return 60
	case slope < -0.1:
		return 100
	case slope < 0.1:
		return 50
	default:
		return 20
	}
}

// burstPauseScore scores the burst/pause ratio against the band human
// writers occupy.
func burstPauseScore(ratio float64) float64 {
	switch {
	case ratio >= 2 && ratio <= 10:
		return 100
	case ratio >= 1 && ratio < 2:
		return 70
	case ratio > 10 && ratio < 20:
		return 60
	case ratio >= 20:
		return 20
	default:
		return 40
	}
}
