package scorers

import (
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// Trend group votes.
const (
	emaFullStack    = 1.5 // EMA20 > EMA50 > EMA200 (or fully inverted)
	emaPartialStack = 0.75
	adxVote         = 0.5
	ichimokuVote    = 0.5
	structureVote   = 1.0
	trendStateVote  = 0.5
	trendDivisor    = 3.0

	adxTrending = 25.0 // below this the DI spread carries no signal
)

// TrendScorer grades directional alignment: the EMA stack, ADX-confirmed
// DI spread, Ichimoku position, swing structure and the discrete trend state.
type TrendScorer struct{}

// NewTrendScorer creates a new trend group scorer.
func NewTrendScorer() *TrendScorer {
	return &TrendScorer{}
}

// Calculate scores the trend group.
// Components:
// - EMA stack (±1.5 full / ±0.75 partial)
// - ADX + DI spread (±0.5, only when ADX reads trending)
// - Ichimoku: close vs tenkan and kijun (±0.5)
// - Swing structure: higher highs / lower lows (±1.0)
// - Discrete trend state (±0.5)
func (ts *TrendScorer) Calculate(set indicators.SeriesSet, feats domain.Features, lastClose float64) domain.GroupScore {
	signals := map[string]float64{
		"ema_stack":   scoreEMAStack(set.Last(indicators.EMA20), set.Last(indicators.EMA50), set.Last(indicators.EMA200)),
		"adx_di":      scoreADX(set.Last(indicators.ADX), set.Last(indicators.PlusDI), set.Last(indicators.MinusDI)),
		"ichimoku":    scoreIchimoku(lastClose, set.Last(indicators.Tenkan), set.Last(indicators.Kijun)),
		"structure":   scoreSwingStructure(feats.Structure),
		"trend_state": scoreTrendState(feats.Trend),
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}

	return domain.GroupScore{
		Group:    domain.GroupTrend,
		RawScore: round3(clamp2(sum / trendDivisor)),
		Signals:  signals,
		Summary:  signalSummary(signals),
	}
}

// scoreEMAStack votes on the moving-average ordering. A full stack in either
// direction earns the full vote; otherwise the fast pair votes at partial
// weight. Fewer than two EMAs yields no vote.
func scoreEMAStack(e20, e50, e200 *float64) float64 {
	if e20 == nil || e50 == nil {
		return 0
	}
	fast := signOf(*e20 - *e50)
	if e200 != nil {
		slow := signOf(*e50 - *e200)
		if fast == slow && fast != 0 {
			return fast * emaFullStack
		}
	}
	return fast * emaPartialStack
}

// scoreADX votes with the DI spread when ADX confirms a trending market.
func scoreADX(adx, plusDI, minusDI *float64) float64 {
	if adx == nil || plusDI == nil || minusDI == nil {
		return 0
	}
	if *adx < adxTrending {
		return 0
	}
	return signOf(*plusDI-*minusDI) * adxVote
}

// scoreIchimoku votes when price sits on one side of both the tenkan and
// the kijun; straddling them is no signal.
func scoreIchimoku(close float64, tenkan, kijun *float64) float64 {
	if tenkan == nil || kijun == nil {
		return 0
	}
	switch {
	case close > *tenkan && close > *kijun:
		return ichimokuVote
	case close < *tenkan && close < *kijun:
		return -ichimokuVote
	}
	return 0
}

// scoreSwingStructure votes with the most recent swing sequence.
func scoreSwingStructure(s domain.StructureState) float64 {
	switch s {
	case domain.StructureHigherHigh:
		return structureVote
	case domain.StructureLowerLow:
		return -structureVote
	}
	return 0
}

// scoreTrendState votes with the discrete trend classification.
func scoreTrendState(t domain.TrendState) float64 {
	switch t {
	case domain.TrendBullish:
		return trendStateVote
	case domain.TrendBearish:
		return -trendStateVote
	}
	return 0
}
