package scorers

import (
	"math"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// Volatility group votes. The Bollinger vote is contrarian: a stretch toward
// the upper band argues short, toward the lower band argues long.
const (
	bollingerVote      = 0.5
	volInteractionVote = 0.3
	volatilityDivisor  = 1.5
)

// VolatilityScorer grades the volatility picture: where price sits inside
// the Bollinger bands and whether the volatility state supports or threatens
// the current trend.
type VolatilityScorer struct{}

// NewVolatilityScorer creates a new volatility group scorer.
func NewVolatilityScorer() *VolatilityScorer {
	return &VolatilityScorer{}
}

// Calculate scores the volatility group.
// Components:
// - Bollinger position, contrarian (±0.5)
// - Volatility state interacting with trend (±0.3): a quiet trend is
//   sustainable, a hot one is climactic
func (vs *VolatilityScorer) Calculate(set indicators.SeriesSet, feats domain.Features, lastClose float64) domain.GroupScore {
	signals := map[string]float64{
		"bollinger":       scoreBollingerPosition(lastClose, set.Last(indicators.BBUpper), set.Last(indicators.BBMiddle)),
		"vol_interaction": scoreVolInteraction(feats.Volatility, feats.Trend),
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}

	return domain.GroupScore{
		Group:    domain.GroupVolatility,
		RawScore: round3(clamp2(sum / volatilityDivisor)),
		Signals:  signals,
		Summary:  signalSummary(signals),
	}
}

// scoreBollingerPosition maps the close's position inside the bands onto
// [-1, 1] (+1 at the upper band) and votes against the stretch.
func scoreBollingerPosition(close float64, upper, middle *float64) float64 {
	if upper == nil || middle == nil {
		return 0
	}
	halfWidth := *upper - *middle
	if halfWidth <= 0 {
		return 0
	}
	position := math.Max(-1, math.Min(1, (close-*middle)/halfWidth))
	return round3(-position * bollingerVote)
}

// scoreVolInteraction votes with the trend when volatility is low and
// against it when volatility is high. Medium volatility or a neutral trend
// carries no signal.
func scoreVolInteraction(vol domain.VolatilityState, trend domain.TrendState) float64 {
	trendSign := 0.0
	switch trend {
	case domain.TrendBullish:
		trendSign = 1
	case domain.TrendBearish:
		trendSign = -1
	default:
		return 0
	}
	switch vol {
	case domain.VolatilityLow:
		return trendSign * volInteractionVote
	case domain.VolatilityHigh:
		return -trendSign * volInteractionVote
	}
	return 0
}
