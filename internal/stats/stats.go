// Package stats provides the small set of statistical primitives shared
// by the window, feature, and anomaly packages.
//
// Both the live and batch call sites run these exact functions, which is
// what guarantees bit-identical scores across the two paths. Nothing in
// here may depend on the clock, the scheduler, or any mutable state.
package stats

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleVariance returns the Bessel-corrected sample variance
// (divide by n-1). Returns 0 when fewer than 2 values.
func SampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n-1)
}

// StdDev returns the sample standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(SampleVariance(values))
}

// CoefficientOfVariation returns stddev/mean, 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / mean
}

// BucketEntropy returns the base-2 Shannon entropy of samples placed
// into fixed-width buckets.
// Formula: H = -sum p_i * log2(p_i) over non-empty buckets.
// Returns 0 for empty input or non-positive bucket width.
func BucketEntropy(samples []float64, bucketWidth float64) float64 {
	if len(samples) == 0 || bucketWidth <= 0 {
		return 0
	}

	buckets := make(map[int]int)
	for _, s := range samples {
		buckets[int(math.Floor(s/bucketWidth))]++
	}

	n := float64(len(samples))
	entropy := 0.0
	for _, count := range buckets {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// OLSSlope returns the ordinary least-squares regression slope of values
// against their indices (0, 1, 2, ...). Returns 0 when fewer than 2
// values or when the index variance is 0.
func OLSSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := Mean(values)

	var num, den float64
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
