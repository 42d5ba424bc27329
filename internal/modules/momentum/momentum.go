// Package momentum classifies the oscillator ensemble into a directional
// bias and a regime (continuation, exhaustion, reversal risk or neutral).
// The insight is displayed in reports and modulates the momentum group
// score.
package momentum

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

const (
	// oscillatorTotal is the full ensemble: RSI, StochRSI, MACD histogram,
	// WaveTrend and STC. Confidence starts from the available fraction.
	oscillatorTotal = 5

	// zoneVote is the exhaustion credit for one oscillator pinned in its
	// overbought/oversold zone. Two pinned oscillators reach the
	// exhaustion regime on their own.
	zoneVote = 0.5

	// rocVote is the acceleration/slowing modifier from RSI and MACD
	// histogram rate of change.
	rocVote = 0.25

	// divergencePush scales a divergence weight into a directional vote.
	divergencePush = 0.5

	rocLookback = 3
	rsiROCBand  = 2.0

	wtOverbought = 60.0
	wtOversold   = -60.0

	// nearLevelPct is the S/R proximity band that makes an exhaustion
	// read more credible.
	nearLevelPct = 0.015
)

// zoneLevels holds the volatility-calibrated overbought/oversold levels
// for one assessment.
type zoneLevels struct {
	rsiOB, rsiOS     float64
	stochOB, stochOS float64
	stcOB, stcOS     float64
	wtOB, wtOS       float64
	shift            float64
}

// tally accumulates the ensemble votes.
type tally struct {
	bullish     float64
	bearish     float64
	exhaustUp   float64
	exhaustDown float64
	oscillators int // oscillators with a defined last value
	zoned       int // oscillators that expose an OB/OS zone
	extremes    int // zoned oscillators currently pinned in a zone
}

func (t tally) net() float64 {
	if t.oscillators == 0 {
		return 0
	}
	return (t.bullish - t.bearish) / float64(t.oscillators)
}

// Engine assesses momentum. Stateless.
type Engine struct {
	th  config.Thresholds
	log zerolog.Logger
}

// NewEngine creates a momentum engine with the given tuning.
func NewEngine(th config.Thresholds, log zerolog.Logger) *Engine {
	return &Engine{
		th:  th,
		log: log.With().Str("component", "momentum").Logger(),
	}
}

// Assess classifies the oscillator ensemble for one diagnostics. Returns
// nil when fewer oscillators than th.MinOscillators are available.
func (e *Engine) Assess(diag *domain.MarketDiagnostics, set indicators.SeriesSet, feats domain.Features) *domain.MomentumInsight {
	lv := e.calibrate(diag, set)
	tl := e.voteOscillators(set, lv)

	if tl.oscillators < e.th.MinOscillators {
		e.log.Debug().
			Str("symbol", diag.Symbol).
			Int("oscillators", tl.oscillators).
			Msg("not enough oscillators for a momentum insight")
		return nil
	}

	voteRates(set, &tl)
	voteDivergences(feats.Divergences, diag.Trend, &tl)

	net := tl.net()
	bias := decideBias(net, e.th.BiasBand)
	totalExhaustion := tl.exhaustUp + tl.exhaustDown
	regime := decideRegime(e.th, bias, diag.Trend, net, totalExhaustion)
	strength := clamp01(math.Abs(net) + 0.2*totalExhaustion)

	allExtreme := tl.zoned >= 2 && tl.extremes >= tl.zoned
	confidence := e.confidence(diag, set, feats, tl, bias, regime, allExtreme)

	details := map[string]float64{
		"bullish":         round3(tl.bullish),
		"bearish":         round3(tl.bearish),
		"net":             round3(net),
		"exhaustion_up":   round3(tl.exhaustUp),
		"exhaustion_down": round3(tl.exhaustDown),
		"oscillators":     float64(tl.oscillators),
		"threshold_shift": lv.shift,
	}
	if allExtreme {
		details["extreme_warning"] = 1
	}

	e.log.Debug().
		Str("symbol", diag.Symbol).
		Str("timeframe", string(diag.Timeframe)).
		Str("bias", string(bias)).
		Str("regime", string(regime)).
		Float64("net", net).
		Msg("momentum assessed")

	return &domain.MomentumInsight{
		Bias:       bias,
		Regime:     regime,
		Strength:   strength,
		Confidence: confidence,
		Details:    details,
	}
}

// calibrate shifts the OB/OS levels with realized volatility: a hot tape
// needs wider extremes, a quiet one narrower.
func (e *Engine) calibrate(diag *domain.MarketDiagnostics, set indicators.SeriesSet) zoneLevels {
	lv := zoneLevels{
		rsiOB: e.th.RSIOverbought, rsiOS: e.th.RSIOversold,
		stochOB: e.th.StochOverbought, stochOS: e.th.StochOversold,
		stcOB: e.th.STCOverbought, stcOS: e.th.STCOversold,
		wtOB: wtOverbought, wtOS: wtOversold,
	}

	atr := set.Last(indicators.ATR)
	price, ok := diag.Metric(domain.MetricClose)
	if atr == nil || !ok || price <= 0 {
		return lv
	}

	switch ratio := *atr / price; {
	case ratio > e.th.HighVolATRPct:
		lv.shift = e.th.ThresholdShift
	case ratio < e.th.LowVolATRPct:
		lv.shift = -e.th.ThresholdShift
	}

	lv.rsiOB += lv.shift
	lv.rsiOS -= lv.shift
	lv.stochOB += lv.shift
	lv.stochOS -= lv.shift
	lv.stcOB += lv.shift
	lv.stcOS -= lv.shift
	lv.wtOB += lv.shift
	lv.wtOS -= lv.shift
	return lv
}

// voteOscillators collects the directional and exhaustion votes of the
// five oscillators. Exact ties cast no directional vote.
func (e *Engine) voteOscillators(set indicators.SeriesSet, lv zoneLevels) tally {
	var tl tally

	if rsi := set.Last(indicators.RSI); rsi != nil {
		tl.oscillators++
		tl.zoned++
		switch {
		case *rsi > 50:
			tl.bullish++
		case *rsi < 50:
			tl.bearish++
		}
		switch {
		case *rsi >= lv.rsiOB:
			tl.exhaustUp += zoneVote
			tl.extremes++
		case *rsi <= lv.rsiOS:
			tl.exhaustDown += zoneVote
			tl.extremes++
		}
	}

	if k := set.Last(indicators.StochRSIK); k != nil {
		tl.oscillators++
		tl.zoned++
		if d := set.Last(indicators.StochRSID); d != nil {
			switch {
			case *k > *d:
				tl.bullish++
			case *k < *d:
				tl.bearish++
			}
		}
		switch {
		case *k >= lv.stochOB:
			tl.exhaustUp += zoneVote
			tl.extremes++
		case *k <= lv.stochOS:
			tl.exhaustDown += zoneVote
			tl.extremes++
		}
	}

	if hist := set.Last(indicators.MACDHist); hist != nil {
		tl.oscillators++
		switch {
		case *hist > 0:
			tl.bullish++
		case *hist < 0:
			tl.bearish++
		}
	}

	if wt1 := set.Last(indicators.WT1); wt1 != nil {
		tl.oscillators++
		tl.zoned++
		if wt2 := set.Last(indicators.WT2); wt2 != nil {
			switch {
			case *wt1 > *wt2:
				tl.bullish++
			case *wt1 < *wt2:
				tl.bearish++
			}
		}
		switch {
		case *wt1 >= lv.wtOB:
			tl.exhaustUp += zoneVote
			tl.extremes++
		case *wt1 <= lv.wtOS:
			tl.exhaustDown += zoneVote
			tl.extremes++
		}
	}

	if stc := set.Last(indicators.STC); stc != nil {
		tl.oscillators++
		tl.zoned++
		switch {
		case *stc > 50:
			tl.bullish++
		case *stc < 50:
			tl.bearish++
		}
		switch {
		case *stc >= lv.stcOB:
			tl.exhaustUp += zoneVote
			tl.extremes++
		case *stc <= lv.stcOS:
			tl.exhaustDown += zoneVote
			tl.extremes++
		}
	}

	return tl
}

// voteRates adds acceleration/slowing modifiers from the RSI and MACD
// histogram rate of change over the last few bars.
func voteRates(set indicators.SeriesSet, tl *tally) {
	n := set.Length
	if n <= rocLookback {
		return
	}

	if now, then := set.Last(indicators.RSI), set.At(indicators.RSI, n-1-rocLookback); now != nil && then != nil {
		switch {
		case *now-*then > rsiROCBand:
			tl.bullish += rocVote
		case *then-*now > rsiROCBand:
			tl.bearish += rocVote
		}
	}

	if now, then := set.Last(indicators.MACDHist), set.At(indicators.MACDHist, n-1-rocLookback); now != nil && then != nil {
		switch {
		case *now > *then:
			tl.bullish += rocVote
		case *now < *then:
			tl.bearish += rocVote
		}
	}
}

// voteDivergences pushes detected divergences into the directional
// counters and, when a divergence argues against the prevailing trend,
// into the exhaustion counter of that trend.
func voteDivergences(divs []domain.Divergence, trend domain.TrendState, tl *tally) {
	for _, d := range divs {
		push := d.Weight() * divergencePush
		switch d.Side {
		case domain.DivergenceBullish:
			tl.bullish += push
			if trend == domain.TrendBearish {
				tl.exhaustDown += push
			}
		case domain.DivergenceBearish:
			tl.bearish += push
			if trend == domain.TrendBullish {
				tl.exhaustUp += push
			}
		}
	}
}

func decideBias(net, band float64) domain.MomentumBias {
	switch {
	case net > band:
		return domain.BiasLong
	case net < -band:
		return domain.BiasShort
	}
	return domain.BiasNeutral
}

// decideRegime resolves the regime in precedence order: a bias that
// contradicts the trend outranks exhaustion, which outranks continuation.
func decideRegime(th config.Thresholds, bias domain.MomentumBias, trend domain.TrendState, net, totalExhaustion float64) domain.MomentumRegime {
	contradicts := (bias == domain.BiasLong && trend == domain.TrendBearish) ||
		(bias == domain.BiasShort && trend == domain.TrendBullish)

	switch {
	case contradicts:
		return domain.RegimeReversalRisk
	case totalExhaustion >= th.ExhaustionLevel:
		return domain.RegimeExhaustion
	case math.Abs(net) >= th.ContinuationNet:
		return domain.RegimeContinuation
	}
	return domain.RegimeNeutral
}

// confidence grades the insight: available fraction of the ensemble times
// its internal agreement, damped by hot volatility and modulated by
// volume, divergences, ADX, derivatives and S/R proximity.
func (e *Engine) confidence(
	diag *domain.MarketDiagnostics,
	set indicators.SeriesSet,
	feats domain.Features,
	tl tally,
	bias domain.MomentumBias,
	regime domain.MomentumRegime,
	allExtreme bool,
) float64 {
	conf := float64(tl.oscillators) / oscillatorTotal

	if sum := tl.bullish + tl.bearish; sum > 0 {
		conf *= math.Max(tl.bullish, tl.bearish) / sum
	} else {
		conf *= 0.5 // an all-neutral ensemble says little
	}

	if feats.Volatility == domain.VolatilityHigh {
		conf *= 0.75
	}

	if obvConfirms(set, bias) {
		conf += 0.1
	}
	if len(feats.Divergences) > 0 {
		conf += 0.05
	}

	if adx := set.Last(indicators.ADX); adx != nil {
		switch {
		case *adx > 25 && regime == domain.RegimeContinuation:
			conf += 0.1
		case *adx < 20 && regime == domain.RegimeReversalRisk:
			conf -= 0.1
		}
	}

	if reg := feats.Derivatives; reg != nil {
		switch bias {
		case domain.BiasLong:
			switch reg.CVD {
			case domain.CVDBuyPressure:
				conf += 0.05
			case domain.CVDSellPressure:
				conf -= 0.05
			}
			if reg.Funding == domain.FundingExtremeLong {
				conf -= 0.05 // the long side is already crowded
			}
		case domain.BiasShort:
			switch reg.CVD {
			case domain.CVDSellPressure:
				conf += 0.05
			case domain.CVDBuyPressure:
				conf -= 0.05
			}
			if reg.Funding == domain.FundingExtremeShort {
				conf -= 0.05
			}
		}
	}

	if regime == domain.RegimeExhaustion && nearKeyLevel(diag, nearLevelPct) {
		conf += 0.1
	}
	if allExtreme {
		conf *= 0.8
	}

	return clamp01(conf)
}

// obvConfirms reports whether on-balance volume moved with the bias over
// the rate-of-change lookback.
func obvConfirms(set indicators.SeriesSet, bias domain.MomentumBias) bool {
	if bias == domain.BiasNeutral {
		return false
	}
	n := set.Length
	if n <= rocLookback {
		return false
	}
	now, then := set.Last(indicators.OBV), set.At(indicators.OBV, n-1-rocLookback)
	if now == nil || then == nil {
		return false
	}
	if bias == domain.BiasLong {
		return *now > *then
	}
	return *now < *then
}

// nearKeyLevel reports whether the last close sits within pct of any
// clustered support/resistance level.
func nearKeyLevel(diag *domain.MarketDiagnostics, pct float64) bool {
	price, ok := diag.Metric(domain.MetricClose)
	if !ok || price <= 0 {
		return false
	}
	for _, lvl := range diag.KeyLevels {
		if math.Abs(lvl.Price-price)/price <= pct {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
