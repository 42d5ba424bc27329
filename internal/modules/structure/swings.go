// Package structure detects swing points and derives market structure from
// them: clustered support/resistance levels, smart-money context (BOS,
// CHOCH, liquidity pools, order blocks, fair-value gaps, premium/discount),
// price legs and best-effort Fibonacci and Elliott readings.
package structure

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

// Swing is one confirmed pivot. High pivots carry the bar high, low pivots
// the bar low.
type Swing struct {
	Index  int
	TS     int64
	Price  float64
	IsHigh bool
	Volume float64
}

// FindSwings returns the swing highs and lows of bars: index i is a swing
// high when its high is the maximum of [i-left, i+right], a swing low when
// its low is the minimum. Ties resolve to the left-most bar so a flat top
// yields a single pivot. Results are in chronological order.
func FindSwings(bars []domain.Bar, left, right int) (highs, lows []Swing) {
	n := len(bars)
	if n == 0 || left <= 0 || right <= 0 {
		return nil, nil
	}

	for i := left; i < n-right; i++ {
		isHigh := true
		isLow := true
		for j := i - left; j <= i+right && (isHigh || isLow); j++ {
			if j == i {
				continue
			}
			if j < i {
				// an earlier bar at the same extreme owns the pivot
				if bars[j].High >= bars[i].High {
					isHigh = false
				}
				if bars[j].Low <= bars[i].Low {
					isLow = false
				}
			} else {
				if bars[j].High > bars[i].High {
					isHigh = false
				}
				if bars[j].Low < bars[i].Low {
					isLow = false
				}
			}
		}

		if isHigh {
			highs = append(highs, Swing{
				Index:  i,
				TS:     bars[i].TS,
				Price:  bars[i].High,
				IsHigh: true,
				Volume: bars[i].Vol(),
			})
		}
		if isLow {
			lows = append(lows, Swing{
				Index:  i,
				TS:     bars[i].TS,
				Price:  bars[i].Low,
				IsHigh: false,
				Volume: bars[i].Vol(),
			})
		}
	}
	return highs, lows
}

// mergeSwings interleaves highs and lows into one chronological sequence.
// A high and a low on the same bar keep the high first.
func mergeSwings(highs, lows []Swing) []Swing {
	out := make([]Swing, 0, len(highs)+len(lows))
	i, j := 0, 0
	for i < len(highs) && j < len(lows) {
		if highs[i].Index <= lows[j].Index {
			out = append(out, highs[i])
			i++
		} else {
			out = append(out, lows[j])
			j++
		}
	}
	out = append(out, highs[i:]...)
	out = append(out, lows[j:]...)
	return out
}
