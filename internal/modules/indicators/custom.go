package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// vwapSeries computes a cumulative VWAP anchored at the window start:
//
//	vwap[i] = Σ(typical_j · volume_j) / Σ(volume_j), typical = (h+l+c)/3
//
// Without volume it degrades to SMA20 of closes so price-vs-vwap checks
// still have an anchor.
func vwapSeries(highs, lows, closes, volumes []float64, hasVolume bool) (Series, bool) {
	n := len(closes)
	if n == 0 {
		return Series{}, false
	}
	if !hasVolume {
		return smaSeries(closes, 20)
	}

	values := make([]float64, n)
	var cumPV, cumV float64
	for i := 0; i < n; i++ {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumV += volumes[i]
		if cumV == 0 {
			values[i] = typical
		} else {
			values[i] = cumPV / cumV
		}
	}
	return Series{Values: values, First: 0}, true
}

// cmfSeries computes the Chaikin Money Flow over the given period:
//
//	mfm = ((close-low) - (high-close)) / (high-low)
//	cmf = Σ(mfm·volume) / Σ(volume)
//
// Without volume the series is all zeros (neutral flow).
func cmfSeries(highs, lows, closes, volumes []float64, hasVolume bool, period int) (Series, bool) {
	n := len(closes)
	if n == 0 {
		return Series{}, false
	}
	if !hasVolume {
		return Series{Values: make([]float64, n), First: 0}, true
	}
	if n < period {
		return Series{}, false
	}

	mfv := make([]float64, n)
	for i := 0; i < n; i++ {
		rng := highs[i] - lows[i]
		if rng > 0 {
			mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
			mfv[i] = mfm * volumes[i]
		}
	}

	values := nanSlice(n)
	first := period - 1
	var sumMFV, sumVol float64
	for i := 0; i < n; i++ {
		sumMFV += mfv[i]
		sumVol += volumes[i]
		if i >= period {
			sumMFV -= mfv[i-period]
			sumVol -= volumes[i-period]
		}
		if i >= first {
			if sumVol == 0 {
				values[i] = 0
			} else {
				values[i] = sumMFV / sumVol
			}
		}
	}
	return Series{Values: values, First: first}, true
}

// stochRSISeries computes StochRSI from RSI with K/D smoothing:
//
//	raw = (rsi - min(rsi, stochPeriod)) / (max - min) · 100
//	K = SMA(raw, kSmooth), D = SMA(K, dSmooth)
func stochRSISeries(closes []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) (Series, Series, bool) {
	n := len(closes)
	// rsi first defined at rsiPeriod; raw needs a full stoch window after that
	rawFirst := rsiPeriod + stochPeriod - 1
	dFirst := rawFirst + (kSmooth - 1) + (dSmooth - 1)
	if n < dFirst+1 {
		return Series{}, Series{}, false
	}

	rsi := talib.Rsi(closes, rsiPeriod)

	raw := nanSlice(n)
	for i := rawFirst; i < n; i++ {
		lo, hi := rsi[i], rsi[i]
		for j := i - stochPeriod + 1; j <= i; j++ {
			if rsi[j] < lo {
				lo = rsi[j]
			}
			if rsi[j] > hi {
				hi = rsi[j]
			}
		}
		if hi == lo {
			// pinned RSI carries no range information; read it as neutral
			raw[i] = 50
		} else {
			raw[i] = (rsi[i] - lo) / (hi - lo) * 100
		}
	}

	k, ok := smaFrom(raw, rawFirst, kSmooth)
	if !ok {
		return Series{}, Series{}, false
	}
	d, ok := smaFrom(k.Values, k.First, dSmooth)
	if !ok {
		return Series{}, Series{}, false
	}
	return k, d, true
}

// donchianMidSeries is the Ichimoku baseline building block:
// (highest high + lowest low) / 2 over the window.
func donchianMidSeries(highs, lows []float64, window int) (Series, bool) {
	n := len(highs)
	if n < window {
		return Series{}, false
	}
	values := nanSlice(n)
	first := window - 1
	for i := first; i < n; i++ {
		hi, lo := highs[i], lows[i]
		for j := i - window + 1; j <= i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		values[i] = (hi + lo) / 2
	}
	return Series{Values: values, First: first}, true
}

// senkouASeries computes Ichimoku Senkou Span A, the (tenkan+kijun)/2
// midline displaced forward so index i holds the cloud boundary in effect
// at bar i.
func senkouASeries(highs, lows []float64, tenkanPeriod, kijunPeriod int) (Series, bool) {
	n := len(highs)
	displacement := kijunPeriod
	rawFirst := kijunPeriod - 1
	first := rawFirst + displacement
	if n < first+1 {
		return Series{}, false
	}

	tenkan, ok := donchianMidSeries(highs, lows, tenkanPeriod)
	if !ok {
		return Series{}, false
	}
	kijun, ok := donchianMidSeries(highs, lows, kijunPeriod)
	if !ok {
		return Series{}, false
	}

	values := nanSlice(n)
	for i := first; i < n; i++ {
		src := i - displacement
		values[i] = (tenkan.Values[src] + kijun.Values[src]) / 2
	}
	return Series{Values: values, First: first}, true
}

// senkouBSeries computes Ichimoku Senkou Span B, the 52-bar midline
// displaced forward by the kijun period.
func senkouBSeries(highs, lows []float64, senkouPeriod, displacement int) (Series, bool) {
	n := len(highs)
	first := senkouPeriod - 1 + displacement
	if n < first+1 {
		return Series{}, false
	}

	base, ok := donchianMidSeries(highs, lows, senkouPeriod)
	if !ok {
		return Series{}, false
	}

	values := nanSlice(n)
	for i := first; i < n; i++ {
		values[i] = base.Values[i-displacement]
	}
	return Series{Values: values, First: first}, true
}

// waveTrendSeries computes the WaveTrend oscillator pair:
//
//	ap  = (h+l+c)/3
//	esa = EMA(ap, chPeriod)
//	d   = EMA(|ap-esa|, chPeriod)
//	ci  = (ap-esa) / (0.015·d)
//	wt1 = EMA(ci, avgPeriod), wt2 = SMA(wt1, 4)
func waveTrendSeries(highs, lows, closes []float64, chPeriod, avgPeriod int) (Series, Series, bool) {
	n := len(closes)

	ap := make([]float64, n)
	for i := 0; i < n; i++ {
		ap[i] = (highs[i] + lows[i] + closes[i]) / 3
	}

	esa, ok := emaFrom(ap, 0, chPeriod)
	if !ok {
		return Series{}, Series{}, false
	}

	absDiff := nanSlice(n)
	for i := esa.First; i < n; i++ {
		absDiff[i] = math.Abs(ap[i] - esa.Values[i])
	}
	d, ok := emaFrom(absDiff, esa.First, chPeriod)
	if !ok {
		return Series{}, Series{}, false
	}

	ci := nanSlice(n)
	for i := d.First; i < n; i++ {
		denom := 0.015 * d.Values[i]
		if denom == 0 {
			ci[i] = 0
		} else {
			ci[i] = (ap[i] - esa.Values[i]) / denom
		}
	}

	wt1, ok := emaFrom(ci, d.First, avgPeriod)
	if !ok {
		return Series{}, Series{}, false
	}
	wt2, ok := smaFrom(wt1.Values, wt1.First, 4)
	if !ok {
		return Series{}, Series{}, false
	}
	return wt1, wt2, true
}

// stcSeries computes the Schaff Trend Cycle: a double stochastic of the
// EMA(fast)-EMA(slow) difference with 0.5 exponential smoothing, clamped
// to [0, 100].
func stcSeries(closes []float64, fast, slow, cycle int) (Series, bool) {
	n := len(closes)
	macdFirst := slow - 1
	first := macdFirst + 2*(cycle-1)
	if n < first+1 {
		return Series{}, false
	}

	fastEMA := talib.Ema(closes, fast)
	slowEMA := talib.Ema(closes, slow)

	macd := nanSlice(n)
	for i := macdFirst; i < n; i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	k1 := stochOf(macd, macdFirst, cycle)
	d1 := halfSmooth(k1, macdFirst+cycle-1)
	k2 := stochOf(d1, macdFirst+cycle-1, cycle)
	stc := halfSmooth(k2, first)

	for i := first; i < n; i++ {
		if stc[i] < 0 {
			stc[i] = 0
		}
		if stc[i] > 100 {
			stc[i] = 100
		}
	}
	return Series{Values: stc, First: first}, true
}

// stochOf maps values onto a 0-100 stochastic over the window; a flat
// window carries the previous reading forward.
func stochOf(values []float64, first, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	outFirst := first + window - 1
	for i := outFirst; i < n; i++ {
		lo, hi := values[i], values[i]
		for j := i - window + 1; j <= i; j++ {
			if values[j] < lo {
				lo = values[j]
			}
			if values[j] > hi {
				hi = values[j]
			}
		}
		switch {
		case hi > lo:
			out[i] = (values[i] - lo) / (hi - lo) * 100
		case i > outFirst:
			out[i] = out[i-1]
		default:
			out[i] = 50
		}
	}
	return out
}

// halfSmooth applies s[i] = s[i-1] + 0.5·(v[i] - s[i-1]) from first onward.
func halfSmooth(values []float64, first int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if first >= n {
		return out
	}
	out[first] = values[first]
	for i := first + 1; i < n; i++ {
		out[i] = out[i-1] + 0.5*(values[i]-out[i-1])
	}
	return out
}

// volumeSpikeSeries is current volume over its SMA(period); 1.0 while the
// average is warming up or when volume is absent.
func volumeSpikeSeries(volumes []float64, hasVolume bool, n, period int) (Series, bool) {
	if n == 0 {
		return Series{}, false
	}
	if !hasVolume {
		values := make([]float64, n)
		for i := range values {
			values[i] = 1.0
		}
		return Series{Values: values, First: 0}, true
	}
	if n < period {
		return Series{}, false
	}

	values := nanSlice(n)
	first := period - 1
	var sum float64
	for i := 0; i < n; i++ {
		sum += volumes[i]
		if i >= period {
			sum -= volumes[i-period]
		}
		if i >= first {
			avg := sum / float64(period)
			if avg == 0 {
				values[i] = 1.0
			} else {
				values[i] = volumes[i] / avg
			}
		}
	}
	return Series{Values: values, First: first}, true
}
