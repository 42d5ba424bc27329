// Package features collapses indicator series and raw bars into the
// discrete market features the analyzers consume: trend, volatility,
// liquidity, swing structure, a derivatives regime and price-vs-indicator
// divergences.
package features

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// Extractor classifies one bar window. Stateless.
type Extractor struct {
	th  config.Thresholds
	log zerolog.Logger
}

// NewExtractor creates a feature extractor with the given tuning.
func NewExtractor(th config.Thresholds, log zerolog.Logger) *Extractor {
	return &Extractor{
		th:  th,
		log: log.With().Str("component", "features").Logger(),
	}
}

// Extract classifies the window. Empty bars fail closed to the default
// features; a nil or empty derivatives snapshot leaves the regime unset.
func (e *Extractor) Extract(bars []domain.Bar, set indicators.SeriesSet, derivs *domain.Derivatives) domain.Features {
	if len(bars) == 0 {
		return domain.DefaultFeatures()
	}

	f := domain.Features{
		Trend:      e.classifyTrend(bars, set),
		Volatility: e.classifyVolatility(set),
		Liquidity:  e.classifyLiquidity(bars),
		Structure:  e.classifyStructure(bars),
	}
	if !derivs.Empty() {
		regime := e.classifyDerivatives(derivs)
		f.Derivatives = &regime
	}
	f.Divergences = e.detectDivergences(bars, set)
	return f
}

// classifyTrend takes the mean of up to four votes: full EMA alignment,
// EMA50-vs-EMA200, RSI band and MACD-histogram sign. Votes whose indicators
// are unavailable are not cast.
func (e *Extractor) classifyTrend(bars []domain.Bar, set indicators.SeriesSet) domain.TrendState {
	lastClose := bars[len(bars)-1].Close
	ema20 := set.Last(indicators.EMA20)
	ema50 := set.Last(indicators.EMA50)
	ema200 := set.Last(indicators.EMA200)

	var votes []float64

	if ema20 != nil && ema50 != nil && ema200 != nil {
		switch {
		case *ema20 > *ema50 && *ema50 > *ema200 && lastClose > *ema20:
			votes = append(votes, 1)
		case *ema20 < *ema50 && *ema50 < *ema200 && lastClose < *ema20:
			votes = append(votes, -1)
		default:
			votes = append(votes, 0)
		}
	}

	if ema50 != nil && ema200 != nil {
		switch {
		case *ema50 > *ema200:
			votes = append(votes, 1)
		case *ema50 < *ema200:
			votes = append(votes, -1)
		default:
			votes = append(votes, 0)
		}
	}

	if rsi := set.Last(indicators.RSI); rsi != nil {
		switch {
		case *rsi > e.th.RSIBullish:
			votes = append(votes, 1)
		case *rsi < e.th.RSIBearish:
			votes = append(votes, -1)
		default:
			votes = append(votes, 0)
		}
	}

	if hist := set.Last(indicators.MACDHist); hist != nil {
		switch {
		case *hist > 0:
			votes = append(votes, 1)
		case *hist < 0:
			votes = append(votes, -1)
		default:
			votes = append(votes, 0)
		}
	}

	if len(votes) == 0 {
		return domain.TrendNeutral
	}
	sum := 0.0
	for _, v := range votes {
		sum += v
	}
	mean := sum / float64(len(votes))
	switch {
	case mean >= e.th.TrendVoteBand:
		return domain.TrendBullish
	case mean <= -e.th.TrendVoteBand:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

// classifyVolatility compares the current ATR to its mean over the window.
func (e *Extractor) classifyVolatility(set indicators.SeriesSet) domain.VolatilityState {
	atr, ok := set.Get(indicators.ATR)
	if !ok {
		return domain.VolatilityLow
	}

	var sum float64
	count := 0
	for i := atr.First; i < len(atr.Values); i++ {
		if !math.IsNaN(atr.Values[i]) {
			sum += atr.Values[i]
			count++
		}
	}
	last := atr.Last()
	if last == nil || count == 0 || sum == 0 {
		return domain.VolatilityLow
	}

	ratio := *last / (sum / float64(count))
	switch {
	case ratio > e.th.VolHighRatio:
		return domain.VolatilityHigh
	case ratio < e.th.VolLowRatio:
		return domain.VolatilityLow
	default:
		return domain.VolatilityMedium
	}
}

// classifyLiquidity compares recent average volume (last 20 bars) to the
// average over the whole window, so a participation collapse reads low even
// after it has persisted for a while. Absent volume reads low.
func (e *Extractor) classifyLiquidity(bars []domain.Bar) domain.LiquidityState {
	volumes, hasVolume := domain.Volumes(bars)
	if !hasVolume {
		return domain.LiquidityLow
	}

	n := len(volumes)
	var total float64
	for _, v := range volumes {
		total += v
	}
	baseline := total / float64(n)
	if baseline == 0 {
		return domain.LiquidityLow
	}

	recent := 20
	if n < recent {
		recent = n
	}
	var recentSum float64
	for _, v := range volumes[n-recent:] {
		recentSum += v
	}
	ratio := (recentSum / float64(recent)) / baseline

	switch {
	case ratio > e.th.LiqHighRatio:
		return domain.LiquidityHigh
	case ratio < e.th.LiqLowRatio:
		return domain.LiquidityLow
	default:
		return domain.LiquidityMedium
	}
}

// classifyStructure checks whether the most recent bars print a new extreme
// against the prior block of the structure window.
func (e *Extractor) classifyStructure(bars []domain.Bar) domain.StructureState {
	n := len(bars)
	w := e.th.StructureBars
	if n < w {
		w = n
	}
	if w < 4 {
		return domain.StructureRange
	}

	window := bars[n-w:]
	recentLen := w / 4
	prior := window[:w-recentLen]
	recent := window[w-recentLen:]

	maxPrior, minPrior := prior[0].High, prior[0].Low
	for _, b := range prior[1:] {
		if b.High > maxPrior {
			maxPrior = b.High
		}
		if b.Low < minPrior {
			minPrior = b.Low
		}
	}
	maxRecent, minRecent := recent[0].High, recent[0].Low
	for _, b := range recent[1:] {
		if b.High > maxRecent {
			maxRecent = b.High
		}
		if b.Low < minRecent {
			minRecent = b.Low
		}
	}

	hhExcess := 0.0
	if maxRecent > maxPrior && maxPrior > 0 {
		hhExcess = maxRecent/maxPrior - 1
	}
	llExcess := 0.0
	if minRecent < minPrior && minRecent > 0 {
		llExcess = minPrior/minRecent - 1
	}

	switch {
	case hhExcess > 0 && hhExcess >= llExcess:
		return domain.StructureHigherHigh
	case llExcess > 0:
		return domain.StructureLowerLow
	default:
		return domain.StructureRange
	}
}

// classifyDerivatives buckets whichever derivatives metrics are present.
func (e *Extractor) classifyDerivatives(d *domain.Derivatives) domain.DerivativesRegime {
	var regime domain.DerivativesRegime

	if d.FundingRate != nil {
		f := *d.FundingRate
		switch {
		case f >= e.th.FundingExtreme:
			regime.Funding = domain.FundingExtremeLong
		case f >= e.th.FundingElevated:
			regime.Funding = domain.FundingLong
		case f <= -e.th.FundingExtreme:
			regime.Funding = domain.FundingExtremeShort
		case f <= -e.th.FundingElevated:
			regime.Funding = domain.FundingShort
		default:
			regime.Funding = domain.FundingNeutral
		}
	}

	if d.OIChangePct != nil {
		chg := *d.OIChangePct
		switch {
		case chg >= e.th.OIRapidPct:
			regime.OI = domain.OIRisingFast
		case chg >= e.th.OIModeratePct:
			regime.OI = domain.OIRising
		case chg <= -e.th.OIRapidPct:
			regime.OI = domain.OIFallingFast
		case chg <= -e.th.OIModeratePct:
			regime.OI = domain.OIFalling
		default:
			regime.OI = domain.OIFlat
		}
	}

	if d.CVD != nil {
		switch {
		case *d.CVD > 0:
			regime.CVD = domain.CVDBuyPressure
		case *d.CVD < 0:
			regime.CVD = domain.CVDSellPressure
		default:
			regime.CVD = domain.CVDNeutral
		}
	}

	return regime
}
