package structure

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	testingpkg "github.com/aristath/marketdoctor/internal/testing"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultThresholds(), zerolog.New(nil).Level(zerolog.Disabled))
}

// zigzag builds bars whose highs/lows trace the given close path with tight
// wicks, so pivot positions are fully controlled by the test.
func zigzag(closes []float64) []domain.Bar {
	return testingpkg.BarsFromCloses(closes)
}

func TestFindSwings(t *testing.T) {
	// one clean peak at index 4 and trough at index 8
	closes := []float64{100, 101, 102, 104, 108, 104, 102, 99, 96, 99, 102, 104}
	bars := zigzag(closes)

	highs, lows := FindSwings(bars, 2, 2)

	require.Len(t, highs, 1)
	assert.Equal(t, 4, highs[0].Index)
	assert.True(t, highs[0].IsHigh)

	require.Len(t, lows, 1)
	assert.Equal(t, 8, lows[0].Index)
	assert.False(t, lows[0].IsHigh)
}

func TestFindSwingsTieResolvesLeft(t *testing.T) {
	highs := []float64{100, 101, 105, 105, 101, 100, 99, 98}
	lows := make([]float64, len(highs))
	closes := make([]float64, len(highs))
	for i, h := range highs {
		lows[i] = h - 1
		closes[i] = h - 0.5
	}
	bars := testingpkg.BarsFromHLC(testingpkg.BaseTS, highs, lows, closes)

	swingHighs, _ := FindSwings(bars, 2, 2)

	require.Len(t, swingHighs, 1, "a flat top yields exactly one pivot")
	assert.Equal(t, 2, swingHighs[0].Index, "leftmost of the tie wins")
}

func TestFindSwingsShortWindow(t *testing.T) {
	highs, lows := FindSwings(testingpkg.TrendBars(3, 100, 1.002), 2, 2)
	assert.Empty(t, highs)
	assert.Empty(t, lows)
}

func TestClusterLevels(t *testing.T) {
	// 100.0 and 100.1 sit within 25bps; 105 is its own cluster
	out := ClusterLevels([]float64{100.0, 100.1, 105.0}, 25)

	require.Len(t, out, 2)
	assert.InDelta(t, 100.05, out[0], 1e-9)
	assert.InDelta(t, 105.0, out[1], 1e-9)
}

func TestClusterLevelsEmpty(t *testing.T) {
	assert.Nil(t, ClusterLevels(nil, 25))
}

func TestLevelStrengthOrdering(t *testing.T) {
	a := newTestAnalyzer()

	// Range bars revisit the same band repeatedly, so the analyzer should
	// find multi-touch levels with strength in (0, 1].
	analysis := a.Analyze(testingpkg.RangeBars(120, 100, 0.02))

	require.NotEmpty(t, analysis.KeyLevels)
	for i, lvl := range analysis.KeyLevels {
		assert.GreaterOrEqual(t, lvl.Strength, 0.0)
		assert.LessOrEqual(t, lvl.Strength, 1.0)
		assert.Positive(t, lvl.Touches)
		if i > 0 {
			assert.GreaterOrEqual(t, analysis.KeyLevels[i-1].Strength, lvl.Strength, "levels sorted by strength")
		}
	}
}

func TestBOSDetection(t *testing.T) {
	// two swing highs, the second 5% above the first
	closes := []float64{
		100, 102, 105, 102, 100, // swing high 105 @2
		98, 100, 104, 108, 110.25, 106, 103, // swing high 110.25 @9 (+5%)
		101, 100,
	}
	bars := zigzag(closes)
	highs, _ := FindSwings(bars, 2, 2)
	require.GreaterOrEqual(t, len(highs), 2)

	bos := lastBOSUp(highs, 0.01)
	require.NotNil(t, bos)
	assert.Equal(t, domain.DirectionLong, bos.Direction)
	assert.Greater(t, bos.Strength, 0.5, "5% excess on a 1% minimum saturates strength")
}

func TestBOSRequiresExcess(t *testing.T) {
	// second swing high only 0.3% above the first: below the 1% minimum
	closes := []float64{
		100, 102, 105, 102, 100,
		98, 100, 103, 105.3, 103, 100,
		99, 98,
	}
	bars := zigzag(closes)
	highs, _ := FindSwings(bars, 2, 2)

	assert.Nil(t, lastBOSUp(highs, 0.01))
}

func TestCHOCHAfterUpBOS(t *testing.T) {
	// up-BOS then a lower-low
	closes := []float64{
		100, 103, 106, 103, 101, // high 106 @2
		103, 108, 112, 108, 105, // high 112 @7 -> BOS up
		103, 100, 98, 101, 104, // low 98 @12 below low 101 @4 -> CHOCH down
		103, 102,
	}
	bars := zigzag(closes)
	highs, lows := FindSwings(bars, 2, 2)

	bos := lastBOSUp(highs, 0.01)
	require.NotNil(t, bos)

	choch := detectCHOCH(bos, highs, lows)
	require.NotNil(t, choch)
	assert.Equal(t, domain.DirectionShort, choch.Direction)
	assert.Greater(t, choch.Index, bos.Index)
}

func TestFVGDetectionAndFill(t *testing.T) {
	highs := []float64{101, 104, 109, 110, 111, 112, 106}
	lows := []float64{99, 102, 106, 108, 109, 104, 100}
	closes := []float64{100, 103, 108, 109, 110, 105, 101}
	bars := testingpkg.BarsFromHLC(testingpkg.BaseTS, highs, lows, closes)

	gaps := findFVGs(bars)
	require.NotEmpty(t, gaps)

	// bullish gap at i=1: low[2]=106 > high[0]=101
	first := gaps[0]
	assert.True(t, first.Bullish)
	assert.InDelta(t, 101.0, first.Low, 1e-9)
	assert.InDelta(t, 106.0, first.High, 1e-9)
	assert.True(t, first.Filled, "price traded back to 100 at the end")
}

func TestPremiumDiscount(t *testing.T) {
	highs := []Swing{{Price: 110, Index: 5}}
	lows := []Swing{{Price: 90, Index: 10}}

	pStart, dEnd, pos := premiumDiscount(highs, lows, 108)
	require.NotNil(t, pStart)
	require.NotNil(t, dEnd)
	assert.InDelta(t, 101.0, *pStart, 1e-9) // 90 + 0.55*20
	assert.InDelta(t, 99.0, *dEnd, 1e-9)    // 90 + 0.45*20
	assert.Equal(t, domain.ZonePremium, pos)

	_, _, pos = premiumDiscount(highs, lows, 92)
	assert.Equal(t, domain.ZoneDiscount, pos)

	_, _, pos = premiumDiscount(highs, lows, 100)
	assert.Equal(t, domain.ZoneNeutral, pos)
}

func TestLegsAndImpulses(t *testing.T) {
	a := newTestAnalyzer()

	// A strong up-leg, shallow pullback, strong up-leg pattern.
	closes := []float64{
		100, 101, 100, 102, 106, 112, 118, 120, // impulse up
		119, 117, 116, 117, 118, // small pullback (~3%)
		121, 127, 134, 140, 142, // impulse up
		141, 140, 139, 140, 141,
	}
	analysis := a.Analyze(zigzag(closes))

	require.NotNil(t, analysis.Summary)
	assert.Positive(t, analysis.Summary.Count)
	assert.NotNil(t, analysis.Summary.LastLeg)
	assert.Greater(t, analysis.Summary.AvgLengthPct, 0.0)
}

func TestFibAnchoredOnLastSwingPair(t *testing.T) {
	swings := []Swing{
		{Index: 2, Price: 100, IsHigh: false},
		{Index: 8, Price: 120, IsHigh: true},
	}
	fib := fibAnalysis(swings)

	require.NotNil(t, fib)
	assert.True(t, fib.Upleg)
	assert.InDelta(t, 100.0, fib.AnchorLow, 1e-9)
	assert.InDelta(t, 120.0, fib.AnchorHigh, 1e-9)
	assert.InDelta(t, 120.0, fib.Retracements["0"], 1e-9)
	assert.InDelta(t, 107.64, fib.Retracements["0.618"], 1e-9)
	assert.InDelta(t, 100.0, fib.Retracements["1.0"], 1e-9)
	assert.InDelta(t, 132.36, fib.Extensions["1.618"], 1e-9)
}

func TestElliottTooFewPivots(t *testing.T) {
	guess := elliottGuess([]Swing{
		{Index: 1, Price: 100, IsHigh: false},
		{Index: 5, Price: 110, IsHigh: true},
	})

	require.NotNil(t, guess)
	assert.Equal(t, "unknown", guess.Pattern)
	assert.Zero(t, guess.Confidence)
}

func TestElliottImpulse(t *testing.T) {
	// textbook 5-wave up: 100 -> 110 -> 105 -> 125 -> 118 -> 135
	swings := []Swing{
		{Index: 0, Price: 100, IsHigh: false},
		{Index: 5, Price: 110, IsHigh: true},
		{Index: 10, Price: 105, IsHigh: false},
		{Index: 15, Price: 125, IsHigh: true},
		{Index: 20, Price: 118, IsHigh: false},
		{Index: 25, Price: 135, IsHigh: true},
	}
	guess := elliottGuess(swings)

	require.NotNil(t, guess)
	assert.Equal(t, "impulse_up", guess.Pattern)
	assert.Equal(t, 5, guess.CurrentWave)
	assert.InDelta(t, 1.0, guess.Confidence, 1e-9)
}

func TestAnalyzeEmptyBars(t *testing.T) {
	a := newTestAnalyzer()
	analysis := a.Analyze(nil)

	require.NotNil(t, analysis)
	assert.Empty(t, analysis.SwingHighs)
	assert.Nil(t, analysis.SMC)
	assert.Nil(t, analysis.Fibonacci)
}

func TestAnalyzeMonotoneTrendHasNoPivots(t *testing.T) {
	a := newTestAnalyzer()
	// strictly rising closes never form an interior pivot
	analysis := a.Analyze(testingpkg.TrendBars(200, 100, 1.004))

	require.NotNil(t, analysis)
	assert.Empty(t, analysis.SwingHighs)
	assert.Empty(t, analysis.SwingLows)
	assert.Nil(t, analysis.SMC)
}

func TestAnalyzeSteppedUptrend(t *testing.T) {
	a := newTestAnalyzer()
	// higher highs and higher lows with ~8-10% impulses and small pullbacks
	closes := []float64{
		100, 103, 106, 109, 112, // peak 112
		110, 108, // pullback
		111, 115, 118, 121, // peak 121 (+8%)
		119, 116, // higher low
		120, 125, 129, 133, // peak 133 (+10%)
		131, 129, 132, 134,
	}
	analysis := a.Analyze(zigzag(closes))

	require.NotNil(t, analysis.SMC)
	require.NotNil(t, analysis.SMC.LastBOS)
	assert.Equal(t, domain.DirectionLong, analysis.SMC.LastBOS.Direction)
	assert.Nil(t, analysis.SMC.LastCHOCH, "higher lows never change character")
	assert.Equal(t, domain.ZonePremium, analysis.SMC.CurrentPosition)
}

func TestOrderBlockBeforeBOS(t *testing.T) {
	// Build bars by hand: a bearish wide-body high-volume candle at index 6,
	// then a rally that breaks structure.
	highs := []float64{101, 102, 104, 103, 102, 103, 102.5, 104, 107, 111, 115, 117, 116, 115}
	lows := []float64{99, 100, 101, 100, 99.5, 100, 99, 101, 104, 108, 112, 114, 113, 112}
	closes := []float64{100, 101, 103, 101, 100, 102, 99.4, 103.5, 106.5, 110.5, 114.5, 116, 114, 113}
	bars := testingpkg.BarsFromHLC(testingpkg.BaseTS, highs, lows, closes)
	for i := range bars {
		bars[i].Volume = domain.Float64Ptr(1000)
	}
	// opens default near the prior close; force a wide bearish body and a
	// volume spike on the order-block candle
	bars[6].Open = 102.4
	bars[6].Volume = domain.Float64Ptr(2500)

	a := newTestAnalyzer()
	analysis := a.Analyze(bars)

	require.NotNil(t, analysis.SMC)
	require.NotNil(t, analysis.SMC.LastBOS, "rally breaks the prior swing high")
	if assert.NotEmpty(t, analysis.SMC.OrderBlocksDemand) {
		ob := analysis.SMC.OrderBlocksDemand[0]
		assert.Equal(t, 6, ob.Index)
		assert.Greater(t, ob.VolumeRatio, 1.2)
	}
}
