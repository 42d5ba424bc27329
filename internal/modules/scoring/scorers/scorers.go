// Package scorers implements the six indicator-group scorers. Each scorer
// reads one slice of the computed evidence and returns a GroupScore with a
// raw score in [-2, 2] plus the signed contributions that produced it.
// Scorers are pure: same inputs, same score.
package scorers

import (
	"fmt"
	"math"
)

// round3 rounds a float to 3 decimal places.
func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// clamp2 clamps a raw group score to [-2, 2].
func clamp2(f float64) float64 {
	return math.Max(-2, math.Min(2, f))
}

// signOf collapses a difference to a -1/0/+1 vote.
func signOf(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

// signalSummary counts the directional contributions for the Summary line.
func signalSummary(signals map[string]float64) string {
	up, down := 0, 0
	for _, v := range signals {
		switch {
		case v > 0:
			up++
		case v < 0:
			down++
		}
	}
	return fmt.Sprintf("%d bullish / %d bearish signals", up, down)
}
