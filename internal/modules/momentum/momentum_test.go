package momentum

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/features"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
	testingpkg "github.com/aristath/marketdoctor/internal/testing"
)

func disabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestEngine() *Engine {
	return NewEngine(config.DefaultThresholds(), disabledLogger())
}

func computeSet(t *testing.T, bars []domain.Bar) indicators.SeriesSet {
	t.Helper()
	th := config.DefaultThresholds()
	set, err := indicators.NewCalculator(th.MinFullBars, disabledLogger()).Compute(bars)
	require.NoError(t, err)
	return set
}

// diagForTest builds the minimal diagnostics momentum reads: trend state,
// last close and key levels.
func diagForTest(bars []domain.Bar, feats domain.Features) *domain.MarketDiagnostics {
	d := &domain.MarketDiagnostics{
		Symbol:       "TESTUSDT",
		Timeframe:    domain.TF1h,
		Trend:        feats.Trend,
		ExtraMetrics: map[string]float64{},
	}
	if len(bars) > 0 {
		d.ExtraMetrics[domain.MetricClose] = bars[len(bars)-1].Close
	}
	return d
}

func assessFixture(t *testing.T, bars []domain.Bar) *domain.MomentumInsight {
	t.Helper()
	th := config.DefaultThresholds()
	set := computeSet(t, bars)
	feats := features.NewExtractor(th, disabledLogger()).Extract(bars, set, nil)
	diag := diagForTest(bars, feats)
	return newTestEngine().Assess(diag, set, feats)
}

// quietThenMove trades a tight alternating range for 165 bars, then moves
// 0.5% per bar for 35 bars. Every oscillator pins to the move's side.
func quietThenMove(up bool) []domain.Bar {
	const n, quiet = 200, 165
	step := 1.005
	if !up {
		step = 0.995
	}

	closes := make([]float64, n)
	for i := 0; i < quiet; i++ {
		closes[i] = 99.9
		if i%2 == 1 {
			closes[i] = 100.1
		}
	}
	for i := quiet; i < n; i++ {
		closes[i] = closes[i-1] * step
	}
	return testingpkg.BarsFromCloses(closes)
}

func TestAssessNilWhenTooFewOscillators(t *testing.T) {
	insight := assessFixture(t, testingpkg.TrendBars(20, 100, 1.002))
	assert.Nil(t, insight, "only RSI is available at 20 bars")
}

func TestAssessPartialEnsemble(t *testing.T) {
	insight := assessFixture(t, testingpkg.TrendBars(40, 100, 1.002))
	require.NotNil(t, insight)
	assert.Equal(t, 3.0, insight.Details["oscillators"], "RSI, StochRSI and MACD at 40 bars")
}

func TestAssessSustainedRally(t *testing.T) {
	insight := assessFixture(t, quietThenMove(true))
	require.NotNil(t, insight)

	assert.Equal(t, domain.BiasLong, insight.Bias)
	assert.Equal(t, domain.RegimeExhaustion, insight.Regime, "pinned oscillators read exhaustion")
	assert.Equal(t, 1.0, insight.Strength)
	assert.InDelta(t, 0.85, insight.Details["net"], 1e-9)
	assert.Equal(t, 5.0, insight.Details["oscillators"])
	assert.Equal(t, 1.0, insight.Details["extreme_warning"])
	assert.Equal(t, -config.DefaultThresholds().ThresholdShift, insight.Details["threshold_shift"])
	assert.GreaterOrEqual(t, insight.Confidence, 0.5)
	assert.LessOrEqual(t, insight.Confidence, 0.95)
}

func TestAssessSustainedCrash(t *testing.T) {
	insight := assessFixture(t, quietThenMove(false))
	require.NotNil(t, insight)

	assert.Equal(t, domain.BiasShort, insight.Bias)
	assert.Equal(t, domain.RegimeExhaustion, insight.Regime)
	assert.Equal(t, 1.0, insight.Strength)
	assert.InDelta(t, -0.85, insight.Details["net"], 1e-9)
	assert.Equal(t, 1.0, insight.Details["extreme_warning"])
}

func TestDecideBias(t *testing.T) {
	band := config.DefaultThresholds().BiasBand

	assert.Equal(t, domain.BiasLong, decideBias(0.61, band))
	assert.Equal(t, domain.BiasShort, decideBias(-0.61, band))
	assert.Equal(t, domain.BiasNeutral, decideBias(0.6, band), "the band itself is neutral")
	assert.Equal(t, domain.BiasNeutral, decideBias(0, band))
}

func TestDecideRegime(t *testing.T) {
	th := config.DefaultThresholds()

	cases := []struct {
		name       string
		bias       domain.MomentumBias
		trend      domain.TrendState
		net        float64
		exhaustion float64
		want       domain.MomentumRegime
	}{
		{"long bias against a bearish trend", domain.BiasLong, domain.TrendBearish, 0.9, 2.0, domain.RegimeReversalRisk},
		{"short bias against a bullish trend", domain.BiasShort, domain.TrendBullish, -0.9, 0, domain.RegimeReversalRisk},
		{"exhaustion outranks continuation", domain.BiasLong, domain.TrendBullish, 0.9, 1.0, domain.RegimeExhaustion},
		{"strong aligned net continues", domain.BiasLong, domain.TrendBullish, 0.85, 0.5, domain.RegimeContinuation},
		{"strong bearish net continues", domain.BiasShort, domain.TrendBearish, -0.85, 0, domain.RegimeContinuation},
		{"weak net is neutral", domain.BiasNeutral, domain.TrendBullish, 0.3, 0.5, domain.RegimeNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decideRegime(th, tc.bias, tc.trend, tc.net, tc.exhaustion)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVoteDivergences(t *testing.T) {
	var tl tally

	voteDivergences([]domain.Divergence{
		{Indicator: "rsi", Side: domain.DivergenceBearish, Strength: domain.DivergenceStrong},
	}, domain.TrendBullish, &tl)
	assert.InDelta(t, 0.75, tl.bearish, 1e-9)
	assert.InDelta(t, 0.75, tl.exhaustUp, 1e-9, "divergence against the trend exhausts it")

	voteDivergences([]domain.Divergence{
		{Indicator: "obv", Side: domain.DivergenceBullish, Strength: domain.DivergenceWeak},
	}, domain.TrendBearish, &tl)
	assert.InDelta(t, 0.25, tl.bullish, 1e-9)
	assert.InDelta(t, 0.25, tl.exhaustDown, 1e-9)

	voteDivergences([]domain.Divergence{
		{Indicator: "macd", Side: domain.DivergenceBullish, Strength: domain.DivergenceMedium},
	}, domain.TrendBullish, &tl)
	assert.InDelta(t, 0.75, tl.bullish, 1e-9, "aligned divergence votes without exhausting")
	assert.InDelta(t, 0.25, tl.exhaustDown, 1e-9)
}

func TestConfidenceAllNeutralEnsemble(t *testing.T) {
	e := newTestEngine()
	empty := indicators.NewSeriesSet(0)
	diag := &domain.MarketDiagnostics{}

	conf := e.confidence(diag, empty, domain.DefaultFeatures(), tally{oscillators: 4},
		domain.BiasNeutral, domain.RegimeNeutral, false)
	assert.InDelta(t, 0.4, conf, 1e-9, "4/5 availability halved by zero votes")
}

func TestConfidenceHighVolatilityDamps(t *testing.T) {
	e := newTestEngine()
	empty := indicators.NewSeriesSet(0)
	diag := &domain.MarketDiagnostics{}
	tl := tally{oscillators: 5, bullish: 3, bearish: 1}

	calm := domain.DefaultFeatures()
	hot := calm
	hot.Volatility = domain.VolatilityHigh

	base := e.confidence(diag, empty, calm, tl, domain.BiasNeutral, domain.RegimeNeutral, false)
	damped := e.confidence(diag, empty, hot, tl, domain.BiasNeutral, domain.RegimeNeutral, false)

	assert.InDelta(t, 0.75, base, 1e-9)
	assert.InDelta(t, 0.75*0.75, damped, 1e-9)
}

func TestCalibrateShifts(t *testing.T) {
	e := newTestEngine()

	violent := testingpkg.ShakeoutBars(200)
	lv := e.calibrate(diagForTest(violent, domain.DefaultFeatures()), computeSet(t, violent))
	assert.Equal(t, e.th.ThresholdShift, lv.shift, "hot tape widens the zones")
	assert.Equal(t, e.th.RSIOverbought+e.th.ThresholdShift, lv.rsiOB)

	quiet := testingpkg.TrendBars(200, 100, 1.002)
	lv = e.calibrate(diagForTest(quiet, domain.DefaultFeatures()), computeSet(t, quiet))
	assert.Equal(t, -e.th.ThresholdShift, lv.shift, "quiet tape narrows them")
	assert.Equal(t, e.th.RSIOversold+e.th.ThresholdShift, lv.rsiOS)

	lv = e.calibrate(&domain.MarketDiagnostics{}, indicators.NewSeriesSet(0))
	assert.Zero(t, lv.shift, "no ATR or price leaves the stock levels")
}

func TestNearKeyLevel(t *testing.T) {
	diag := &domain.MarketDiagnostics{
		ExtraMetrics: map[string]float64{domain.MetricClose: 100},
		KeyLevels:    []domain.Level{{Price: 101, Kind: domain.LevelResistance}},
	}
	assert.True(t, nearKeyLevel(diag, nearLevelPct))

	diag.KeyLevels = []domain.Level{{Price: 103, Kind: domain.LevelResistance}}
	assert.False(t, nearKeyLevel(diag, nearLevelPct))

	assert.False(t, nearKeyLevel(&domain.MarketDiagnostics{}, nearLevelPct))
}
