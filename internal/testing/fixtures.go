package testing

import (
	"math"

	"github.com/aristath/marketdoctor/internal/domain"
)

// Fixture bars start at a fixed timestamp so every generated series is
// fully deterministic.
const (
	BaseTS = int64(1_700_000_000_000)
	HourMS = int64(3_600_000)
)

// TrendBars returns n hourly bars with close[i] = start * growth^i,
// constant volume and tight ranges. growth 1.002 gives a clean uptrend;
// 0.998 a clean downtrend.
func TrendBars(n int, start, growth float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := start * math.Pow(growth, float64(i))
		o := c
		if i > 0 {
			o = start * math.Pow(growth, float64(i-1))
		}
		hi := math.Max(o, c) * 1.003
		lo := math.Min(o, c) * 0.997
		v := 1000.0
		bars[i] = domain.Bar{
			TS:     BaseTS + int64(i)*HourMS,
			Open:   o,
			High:   hi,
			Low:    lo,
			Close:  c,
			Volume: &v,
		}
	}
	return bars
}

// RangeBars returns n hourly bars oscillating around a gently drifting
// center inside a band that compresses to a fifth of its initial width,
// with volume fading over the last 30 bars. The shape yields low volatility
// and low liquidity at the tail of the series while keeping the trend vote
// out of bearish territory.
func RangeBars(n int, center, bandPct float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		progress := 0.0
		if n > 1 {
			progress = float64(i) / float64(n-1)
		}
		band := bandPct * (1.0 - 0.8*progress)
		mid := center * math.Pow(1.0003, float64(i))
		phase := float64(i) * 0.9
		c := mid * (1 + band*math.Sin(phase))
		o := mid * (1 + band*math.Sin(phase-0.9))
		hi := math.Max(o, c) * (1 + 0.2*band)
		lo := math.Min(o, c) * (1 - 0.2*band)

		v := 1000.0
		if fade := n - 30; i >= fade && fade > 0 {
			// linear fade from 1000 down to 150 across the last 30 bars
			v = 1000.0 - 850.0*float64(i-fade+1)/30.0
		}
		bars[i] = domain.Bar{
			TS:     BaseTS + int64(i)*HourMS,
			Open:   o,
			High:   hi,
			Low:    lo,
			Close:  c,
			Volume: &v,
		}
	}
	return bars
}

// ShakeoutBars returns n hourly bars that trade quietly around 100 and then,
// over the last 30 bars, swing violently on a third of the volume.
func ShakeoutBars(n int) []domain.Bar {
	const center = 100.0
	bars := make([]domain.Bar, n)
	for i := range bars {
		quiet := i < n-30

		band := 0.004
		v := 900.0
		if !quiet {
			band = 0.04
			v = 300.0
		}

		phase := float64(i) * 1.3
		c := center * (1 + band*math.Sin(phase))
		o := center * (1 + band*math.Sin(phase-1.3))
		hi := math.Max(o, c) * (1 + 0.5*band)
		lo := math.Min(o, c) * (1 - 0.5*band)

		vol := v
		bars[i] = domain.Bar{
			TS:     BaseTS + int64(i)*HourMS,
			Open:   o,
			High:   hi,
			Low:    lo,
			Close:  c,
			Volume: &vol,
		}
	}
	return bars
}

// BarsFromCloses builds hourly bars from a close series with minimal ranges
// and constant volume. Useful when a test only cares about closes.
func BarsFromCloses(closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		o := c
		if i > 0 {
			o = closes[i-1]
		}
		v := 1000.0
		bars[i] = domain.Bar{
			TS:     BaseTS + int64(i)*HourMS,
			Open:   o,
			High:   math.Max(o, c) * 1.001,
			Low:    math.Min(o, c) * 0.999,
			Close:  c,
			Volume: &v,
		}
	}
	return bars
}

// BarsFromHLC builds hourly bars starting at ts0 with explicit highs, lows
// and closes. Panics if the slices differ in length; fixtures are allowed
// to be strict.
func BarsFromHLC(ts0 int64, highs, lows, closes []float64) []domain.Bar {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		panic("BarsFromHLC: mismatched slice lengths")
	}
	bars := make([]domain.Bar, len(closes))
	for i := range closes {
		o := closes[i]
		if i > 0 {
			o = closes[i-1]
		}
		open := math.Min(math.Max(o, lows[i]), highs[i])
		cl := math.Min(math.Max(closes[i], lows[i]), highs[i])
		v := 1000.0
		bars[i] = domain.Bar{
			TS:     ts0 + int64(i)*HourMS,
			Open:   open,
			High:   highs[i],
			Low:    lows[i],
			Close:  cl,
			Volume: &v,
		}
	}
	return bars
}

// WithoutVolume returns a copy of bars with every volume stripped.
func WithoutVolume(bars []domain.Bar) []domain.Bar {
	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		b.Volume = nil
		out[i] = b
	}
	return out
}

// DerivativesFixture builds a fully populated derivatives snapshot.
func DerivativesFixture(funding, oiChangePct, cvd float64) *domain.Derivatives {
	oi := 1_000_000.0
	return &domain.Derivatives{
		FundingRate:  &funding,
		OpenInterest: &oi,
		OIChangePct:  &oiChangePct,
		CVD:          &cvd,
	}
}
