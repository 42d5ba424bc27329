// Package formulas provides shared numeric helpers used across the
// analytical pipeline: clamping, rounding, safe division and windowed
// statistics. Heavier statistics delegate to gonum.
package formulas

import (
	"math"
)

// Clamp constrains v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 constrains v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Round2 rounds a float to 2 decimal places
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Round3 rounds a float to 3 decimal places
func Round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// Round4 rounds a float to 4 decimal places
func Round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// SafeDiv divides a by b, returning 0 when b is zero or not finite.
func SafeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0
	}
	return a / b
}

// Sign returns -1, 0 or +1 for v. Values within epsilon of zero count as zero.
func Sign(v, epsilon float64) float64 {
	if v > epsilon {
		return 1
	}
	if v < -epsilon {
		return -1
	}
	return 0
}

// NearlyEqual reports whether a and b are within epsilon of each other.
// Scores are floating point; never compare them with ==.
func NearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// IsFinite reports whether v is a usable number (not NaN, not Inf).
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PctChange returns the relative change from a to b, 0 when a is zero.
func PctChange(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b - a) / a
}

// Last returns the final element of data, or 0 for an empty slice.
func Last(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return data[len(data)-1]
}

// Tail returns the last n elements of data (fewer when data is shorter).
func Tail(data []float64, n int) []float64 {
	if n <= 0 || len(data) == 0 {
		return nil
	}
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

// Max returns the maximum of data, 0 for an empty slice.
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the minimum of data, 0 for an empty slice.
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
