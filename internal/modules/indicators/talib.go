package indicators

import (
	"github.com/markcheno/go-talib"
)

// withWarmup wraps a talib output slice in a Series, overwriting the
// zero-filled warm-up region with NaN so undefined positions are explicit.
func withWarmup(raw []float64, first int) Series {
	values := nanSlice(len(raw))
	copy(values[first:], raw[first:])
	return Series{Values: values, First: first}
}

// emaSeries computes EMA(period); first defined index is period-1.
func emaSeries(closes []float64, period int) (Series, bool) {
	if len(closes) < period {
		return Series{}, false
	}
	return withWarmup(talib.Ema(closes, period), period-1), true
}

// smaSeries computes SMA(period); first defined index is period-1.
func smaSeries(closes []float64, period int) (Series, bool) {
	if len(closes) < period {
		return Series{}, false
	}
	return withWarmup(talib.Sma(closes, period), period-1), true
}

// bbandsSeries computes Bollinger Bands around SMA(period).
// MAType 0 = SMA (Simple Moving Average)
func bbandsSeries(closes []float64, period int, mult float64) (Series, Series, Series, bool) {
	if len(closes) < period {
		return Series{}, Series{}, Series{}, false
	}
	upper, middle, lower := talib.BBands(closes, period, mult, mult, 0)
	first := period - 1
	return withWarmup(upper, first), withWarmup(middle, first), withWarmup(lower, first), true
}

// rsiSeries computes RSI(period); first defined index is period.
func rsiSeries(closes []float64, period int) (Series, bool) {
	if len(closes) < period+1 {
		return Series{}, false
	}
	return withWarmup(talib.Rsi(closes, period), period), true
}

// macdSeries computes MACD(fast, slow, signal). All three outputs share the
// first defined index slow+signal-2.
func macdSeries(closes []float64, fast, slow, signal int) (Series, Series, Series, bool) {
	first := slow + signal - 2
	if len(closes) < first+1 {
		return Series{}, Series{}, Series{}, false
	}
	macd, sig, hist := talib.Macd(closes, fast, slow, signal)
	return withWarmup(macd, first), withWarmup(sig, first), withWarmup(hist, first), true
}

// atrSeries computes ATR(period); first defined index is period.
func atrSeries(highs, lows, closes []float64, period int) (Series, bool) {
	if len(closes) < period+1 {
		return Series{}, false
	}
	return withWarmup(talib.Atr(highs, lows, closes, period), period), true
}

// obvSeries computes On-Balance Volume. Without volume the series is all
// zeros so downstream sign checks read neutral.
func obvSeries(closes, volumes []float64, hasVolume bool) Series {
	if !hasVolume || len(closes) == 0 {
		return Series{Values: make([]float64, len(closes)), First: 0}
	}
	return Series{Values: talib.Obv(closes, volumes), First: 0}
}

// adxSeries computes ADX(period); first defined index is 2*period-1.
func adxSeries(highs, lows, closes []float64, period int) (Series, bool) {
	first := 2*period - 1
	if len(closes) < first+1 {
		return Series{}, false
	}
	return withWarmup(talib.Adx(highs, lows, closes, period), first), true
}

// diSeries computes the +DI/-DI pair; first defined index is period.
func diSeries(highs, lows, closes []float64, period int) (Series, Series, bool) {
	if len(closes) < period+1 {
		return Series{}, Series{}, false
	}
	plus := talib.PlusDI(highs, lows, closes, period)
	minus := talib.MinusDI(highs, lows, closes, period)
	return withWarmup(plus, period), withWarmup(minus, period), true
}

// emaFrom computes EMA(period) over the defined suffix values[first:] and
// returns a full-length series; the new first index is first+period-1.
func emaFrom(values []float64, first, period int) (Series, bool) {
	if len(values)-first < period {
		return Series{}, false
	}
	sub := talib.Ema(values[first:], period)
	out := nanSlice(len(values))
	newFirst := first + period - 1
	for i := newFirst; i < len(values); i++ {
		out[i] = sub[i-first]
	}
	return Series{Values: out, First: newFirst}, true
}

// smaFrom computes SMA(period) over the defined suffix values[first:].
func smaFrom(values []float64, first, period int) (Series, bool) {
	if len(values)-first < period {
		return Series{}, false
	}
	sub := talib.Sma(values[first:], period)
	out := nanSlice(len(values))
	newFirst := first + period - 1
	for i := newFirst; i < len(values); i++ {
		out[i] = sub[i-first]
	}
	return Series{Values: out, First: newFirst}, true
}
