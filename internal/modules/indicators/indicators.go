// Package indicators computes the technical indicator set the diagnostic
// pipeline reads. Every series is aligned to the input bars: warm-up
// positions hold NaN and Series.First marks the first defined index.
package indicators

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// Indicator series names.
const (
	EMA20  = "ema20"
	EMA50  = "ema50"
	EMA200 = "ema200"
	SMA20  = "sma20"
	VWAP   = "vwap"

	BBUpper  = "bb_upper"
	BBMiddle = "bb_middle"
	BBLower  = "bb_lower"

	RSI        = "rsi"
	StochRSIK  = "stochrsi_k"
	StochRSID  = "stochrsi_d"
	MACD       = "macd"
	MACDSignal = "macd_signal"
	MACDHist   = "macd_hist"

	ATR = "atr"
	OBV = "obv"
	CMF = "cmf"

	ADX     = "adx"
	PlusDI  = "plus_di"
	MinusDI = "minus_di"

	Tenkan  = "tenkan"
	Kijun   = "kijun"
	SenkouA = "senkou_a"
	SenkouB = "senkou_b"

	WT1 = "wt1"
	WT2 = "wt2"
	STC = "stc"

	VolumeSpike = "volume_spike"
)

// Catalog lists every series the calculator can produce, in a stable order.
func Catalog() []string {
	return []string{
		EMA20, EMA50, EMA200, SMA20, VWAP,
		BBUpper, BBMiddle, BBLower,
		RSI, StochRSIK, StochRSID, MACD, MACDSignal, MACDHist,
		ATR, OBV, CMF,
		ADX, PlusDI, MinusDI,
		Tenkan, Kijun, SenkouA, SenkouB,
		WT1, WT2, STC,
		VolumeSpike,
	}
}

// Series is one indicator aligned to the input bars. Values has the same
// length as the bar slice; indices below First are NaN.
type Series struct {
	Values []float64
	First  int
}

// Defined reports whether index i holds a computed value.
func (s Series) Defined(i int) bool {
	return i >= s.First && i < len(s.Values) && !math.IsNaN(s.Values[i])
}

// At returns the value at index i, nil during warm-up or out of range.
func (s Series) At(i int) *float64 {
	if !s.Defined(i) {
		return nil
	}
	v := s.Values[i]
	return &v
}

// Last returns the final value, nil if the series never becomes defined.
func (s Series) Last() *float64 {
	return s.At(len(s.Values) - 1)
}

// SeriesSet is the output of one Compute call.
type SeriesSet struct {
	Length int
	series map[string]Series
}

// NewSeriesSet creates an empty set for bars of the given length.
func NewSeriesSet(length int) SeriesSet {
	return SeriesSet{Length: length, series: make(map[string]Series)}
}

func (ss *SeriesSet) add(name string, s Series) {
	ss.series[name] = s
}

// Get returns the named series.
func (ss SeriesSet) Get(name string) (Series, bool) {
	s, ok := ss.series[name]
	return s, ok
}

// Has reports whether the named series was computed.
func (ss SeriesSet) Has(name string) bool {
	_, ok := ss.series[name]
	return ok
}

// Last returns the final defined value of the named series, nil when the
// series is missing or still warming up at the last bar.
func (ss SeriesSet) Last(name string) *float64 {
	s, ok := ss.series[name]
	if !ok {
		return nil
	}
	return s.Last()
}

// At returns the named series value at index i, nil when undefined.
func (ss SeriesSet) At(name string, i int) *float64 {
	s, ok := ss.series[name]
	if !ok {
		return nil
	}
	return s.At(i)
}

// Names returns the computed series names sorted alphabetically.
func (ss SeriesSet) Names() []string {
	names := make([]string, 0, len(ss.series))
	for name := range ss.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Coverage is the fraction of the catalog this set holds.
func (ss SeriesSet) Coverage() float64 {
	return float64(len(ss.series)) / float64(len(Catalog()))
}

// Calculator computes the indicator catalog for a bar series. It is
// stateless: the same bars always produce the same set.
type Calculator struct {
	minFullBars int
	log         zerolog.Logger
}

// NewCalculator creates an indicator calculator. Below minFullBars only the
// indicators whose warm-up fits the series are produced.
func NewCalculator(minFullBars int, log zerolog.Logger) *Calculator {
	return &Calculator{
		minFullBars: minFullBars,
		log:         log.With().Str("component", "indicators").Logger(),
	}
}

// MinFullBars returns the bar count at which the full catalog is expected.
func (c *Calculator) MinFullBars() int {
	return c.minFullBars
}

// Compute builds every indicator whose warm-up fits the given bars.
// Empty input yields an empty set, never an error.
func (c *Calculator) Compute(bars []domain.Bar) (SeriesSet, error) {
	n := len(bars)
	set := NewSeriesSet(n)
	if n == 0 {
		return set, nil
	}

	closes := domain.Closes(bars)
	highs := domain.Highs(bars)
	lows := domain.Lows(bars)
	volumes, hasVolume := domain.Volumes(bars)

	// Moving averages
	if s, ok := emaSeries(closes, 20); ok {
		set.add(EMA20, s)
	}
	if s, ok := emaSeries(closes, 50); ok {
		set.add(EMA50, s)
	}
	if s, ok := emaSeries(closes, 200); ok {
		set.add(EMA200, s)
	}
	if s, ok := smaSeries(closes, 20); ok {
		set.add(SMA20, s)
	}
	if s, ok := vwapSeries(highs, lows, closes, volumes, hasVolume); ok {
		set.add(VWAP, s)
	}

	// Bollinger bands
	if upper, middle, lower, ok := bbandsSeries(closes, 20, 2.0); ok {
		set.add(BBUpper, upper)
		set.add(BBMiddle, middle)
		set.add(BBLower, lower)
	}

	// Oscillators
	if s, ok := rsiSeries(closes, 14); ok {
		set.add(RSI, s)
	}
	if k, d, ok := stochRSISeries(closes, 14, 14, 3, 3); ok {
		set.add(StochRSIK, k)
		set.add(StochRSID, d)
	}
	if macd, signal, hist, ok := macdSeries(closes, 12, 26, 9); ok {
		set.add(MACD, macd)
		set.add(MACDSignal, signal)
		set.add(MACDHist, hist)
	}

	// Volatility and volume flow
	if s, ok := atrSeries(highs, lows, closes, 14); ok {
		set.add(ATR, s)
	}
	set.add(OBV, obvSeries(closes, volumes, hasVolume))
	if s, ok := cmfSeries(highs, lows, closes, volumes, hasVolume, 20); ok {
		set.add(CMF, s)
	}

	// Trend strength
	if s, ok := adxSeries(highs, lows, closes, 14); ok {
		set.add(ADX, s)
	}
	if plus, minus, ok := diSeries(highs, lows, closes, 14); ok {
		set.add(PlusDI, plus)
		set.add(MinusDI, minus)
	}

	// Ichimoku
	if s, ok := donchianMidSeries(highs, lows, 9); ok {
		set.add(Tenkan, s)
	}
	if s, ok := donchianMidSeries(highs, lows, 26); ok {
		set.add(Kijun, s)
	}
	if a, ok := senkouASeries(highs, lows, 9, 26); ok {
		set.add(SenkouA, a)
	}
	if b, ok := senkouBSeries(highs, lows, 52, 26); ok {
		set.add(SenkouB, b)
	}

	// WaveTrend and Schaff
	if wt1, wt2, ok := waveTrendSeries(highs, lows, closes, 10, 21); ok {
		set.add(WT1, wt1)
		set.add(WT2, wt2)
	}
	if s, ok := stcSeries(closes, 23, 50, 10); ok {
		set.add(STC, s)
	}

	if s, ok := volumeSpikeSeries(volumes, hasVolume, n, 20); ok {
		set.add(VolumeSpike, s)
	}

	if n < c.minFullBars {
		c.log.Debug().
			Int("bars", n).
			Int("min_full_bars", c.minFullBars).
			Int("series", len(set.series)).
			Msg("Computed reduced indicator set")
	}

	return set, nil
}

// nanSlice returns a slice of n NaNs.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
