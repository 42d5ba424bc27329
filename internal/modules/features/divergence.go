package features

import (
	"math"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// divergenceLookback bounds how far back pivots are considered; pivot
// confirmation uses two bars on each side.
const (
	divergenceLookback = 60
	divergencePivotArm = 2

	strongDivergenceGap = 0.25
	mediumDivergenceGap = 0.10
)

// divergenceSources maps the checked series to their reported names.
var divergenceSources = []struct {
	series string
	name   string
}{
	{indicators.RSI, "rsi"},
	{indicators.MACD, "macd"},
	{indicators.StochRSIK, "stochrsi"},
	{indicators.OBV, "obv"},
}

// detectDivergences compares the last two price pivot lows (resp. highs)
// inside the lookback with the indicator values at the same bars: a lower
// low in price against a higher low in the indicator is bullish, a higher
// high against a lower high bearish. Strength scales with the indicator
// move relative to its range over the lookback.
func (e *Extractor) detectDivergences(bars []domain.Bar, set indicators.SeriesSet) []domain.Divergence {
	n := len(bars)
	if n < 2*divergencePivotArm+1 {
		return nil
	}

	offset := 0
	if n > divergenceLookback {
		offset = n - divergenceLookback
	}
	closes := domain.Closes(bars[offset:])
	lowPivots, highPivots := pivotIndices(closes, divergencePivotArm, divergencePivotArm)

	var out []domain.Divergence
	for _, src := range divergenceSources {
		series, ok := set.Get(src.series)
		if !ok {
			continue
		}

		if d := checkPair(closes, series, offset, lowPivots, true); d != nil {
			d.Indicator = src.name
			out = append(out, *d)
		}
		if d := checkPair(closes, series, offset, highPivots, false); d != nil {
			d.Indicator = src.name
			out = append(out, *d)
		}
	}
	return out
}

// checkPair evaluates the last two pivots of one side. bullish==true means
// pivot lows (price lower low, indicator higher low).
func checkPair(closes []float64, series indicators.Series, offset int, pivots []int, bullish bool) *domain.Divergence {
	if len(pivots) < 2 {
		return nil
	}
	a, b := pivots[len(pivots)-2], pivots[len(pivots)-1]

	ia, ib := offset+a, offset+b
	va, vb := series.At(ia), series.At(ib)
	if va == nil || vb == nil {
		return nil
	}

	if bullish {
		if !(closes[b] < closes[a] && *vb > *va) {
			return nil
		}
	} else {
		if !(closes[b] > closes[a] && *vb < *va) {
			return nil
		}
	}

	side := domain.DivergenceBullish
	if !bullish {
		side = domain.DivergenceBearish
	}
	return &domain.Divergence{
		Side:     side,
		Strength: gradeDivergence(series, offset, math.Abs(*vb-*va)),
	}
}

// gradeDivergence normalizes the indicator move by the indicator's range
// over the lookback window.
func gradeDivergence(series indicators.Series, offset int, move float64) domain.DivergenceStrength {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := offset; i < len(series.Values); i++ {
		if !series.Defined(i) {
			continue
		}
		v := series.Values[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return domain.DivergenceWeak
	}

	gap := move / (hi - lo)
	switch {
	case gap >= strongDivergenceGap:
		return domain.DivergenceStrong
	case gap >= mediumDivergenceGap:
		return domain.DivergenceMedium
	default:
		return domain.DivergenceWeak
	}
}

// pivotIndices finds local minima (lows) and maxima (highs) of values with
// the given confirmation arms. Ties resolve to the left-most index.
func pivotIndices(values []float64, left, right int) (lows, highs []int) {
	n := len(values)
	for i := left; i < n-right; i++ {
		isLow, isHigh := true, true
		for j := i - left; j <= i+right && (isLow || isHigh); j++ {
			if j == i {
				continue
			}
			if j < i {
				if values[j] <= values[i] {
					isLow = false
				}
				if values[j] >= values[i] {
					isHigh = false
				}
			} else {
				if values[j] < values[i] {
					isLow = false
				}
				if values[j] > values[i] {
					isHigh = false
				}
			}
		}
		if isLow {
			lows = append(lows, i)
		}
		if isHigh {
			highs = append(highs, i)
		}
	}
	return lows, highs
}
