// Package market synthesizes features, indicators and structure into the
// per-timeframe diagnostics: market phase, risk and pump indices and a
// confidence estimate.
package market

import (
	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
	"github.com/aristath/marketdoctor/internal/modules/structure"
)

// extraMetricNames lists the indicator values carried into
// MarketDiagnostics.ExtraMetrics for downstream consumers.
var extraMetricNames = []string{
	indicators.ATR,
	indicators.VWAP,
	indicators.EMA20,
	indicators.EMA50,
	indicators.EMA200,
	indicators.BBUpper,
	indicators.BBMiddle,
	indicators.BBLower,
	indicators.RSI,
	indicators.MACDHist,
	indicators.ADX,
	indicators.VolumeSpike,
}

// Analyzer produces MarketDiagnostics. Stateless.
type Analyzer struct {
	th  config.Thresholds
	log zerolog.Logger
}

// NewAnalyzer creates a market analyzer with the given tuning.
func NewAnalyzer(th config.Thresholds, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		th:  th,
		log: log.With().Str("component", "market").Logger(),
	}
}

// Analyze classifies the phase, scores risk and pump conditions and grades
// its own confidence. strct may be nil when the window held no swings.
func (a *Analyzer) Analyze(
	symbol string,
	tf domain.Timeframe,
	bars []domain.Bar,
	set indicators.SeriesSet,
	feats domain.Features,
	strct *structure.Analysis,
	derivs *domain.Derivatives,
) *domain.MarketDiagnostics {
	phase := applyDerivativeOverrides(classifyPhase(feats), feats.Derivatives)

	var lastClose float64
	if len(bars) > 0 {
		lastClose = bars[len(bars)-1].Close
	}

	diag := &domain.MarketDiagnostics{
		Symbol:     symbol,
		Timeframe:  tf,
		Phase:      phase,
		Trend:      feats.Trend,
		Volatility: feats.Volatility,
		Liquidity:  feats.Liquidity,
		RiskScore:  riskScore(a.th, feats, phase),
		PumpScore:  pumpScore(a.th, feats, phase, lastClose, set.Last(indicators.VWAP), set.Last(indicators.EMA200)),
		Confidence: a.confidence(len(bars), derivs, set),
	}

	if strct != nil {
		diag.KeyLevels = strct.KeyLevels
		diag.SMC = strct.SMC
		diag.Legs = strct.Summary
		diag.Fibonacci = strct.Fibonacci
		diag.ElliottWave = strct.Elliott
	}

	metrics := make(map[string]float64, len(extraMetricNames)+1)
	if len(bars) > 0 {
		metrics[domain.MetricClose] = lastClose
	}
	for _, name := range extraMetricNames {
		if v := set.Last(name); v != nil {
			metrics[name] = *v
		}
	}
	diag.ExtraMetrics = metrics

	a.log.Debug().
		Str("symbol", symbol).
		Str("timeframe", string(tf)).
		Str("phase", string(phase)).
		Float64("risk", diag.RiskScore).
		Float64("pump", diag.PumpScore).
		Msg("diagnostics computed")

	return diag
}

// confidence starts at 0.5 and moves with history depth, derivatives
// coverage, agreement between EMA, RSI and MACD reads, and how much of the
// indicator catalog the window supports.
func (a *Analyzer) confidence(barCount int, derivs *domain.Derivatives, set indicators.SeriesSet) float64 {
	c := 0.5

	switch {
	case barCount >= 200:
		c += 0.2
	case barCount >= 100:
		c += 0.1
	case barCount < 50:
		c -= 0.2
	}

	switch derivs.Coverage() {
	case 3:
		c += 0.15
	case 1, 2:
		c += 0.08
	default:
		c -= 0.1
	}

	c += consistencyBonus(a.th, set)
	c += 0.1 * set.Coverage()

	return clamp01(c)
}

// consistencyBonus grades agreement of three independent direction reads:
// EMA50 vs EMA200, the RSI band and the MACD histogram sign. Full agreement
// earns 0.2, a two-way agreement 0.1.
func consistencyBonus(th config.Thresholds, set indicators.SeriesSet) float64 {
	var dirs []int

	e50, e200 := set.Last(indicators.EMA50), set.Last(indicators.EMA200)
	if e50 != nil && e200 != nil {
		dirs = append(dirs, sign(*e50-*e200))
	}
	if rsi := set.Last(indicators.RSI); rsi != nil {
		switch {
		case *rsi > th.RSIBullish:
			dirs = append(dirs, 1)
		case *rsi < th.RSIBearish:
			dirs = append(dirs, -1)
		default:
			dirs = append(dirs, 0)
		}
	}
	if hist := set.Last(indicators.MACDHist); hist != nil {
		dirs = append(dirs, sign(*hist))
	}

	if len(dirs) < 2 {
		return 0
	}

	pos, neg := 0, 0
	for _, d := range dirs {
		if d > 0 {
			pos++
		}
		if d < 0 {
			neg++
		}
	}

	if pos == len(dirs) || neg == len(dirs) {
		return 0.2
	}
	if pos >= 2 || neg >= 2 {
		return 0.1
	}
	return 0
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
