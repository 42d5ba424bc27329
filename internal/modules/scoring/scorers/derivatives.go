package scorers

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

// Derivatives group votes. Funding reads inverted: crowded longs paying
// extreme funding argue short, crowded shorts argue long.
const (
	fundingVote        = 0.5
	oiVote             = 0.5
	derivativesDivisor = 1.5
)

// DerivativesScorer grades the derivatives regime: funding extremes and
// open-interest movement relative to the trend.
type DerivativesScorer struct{}

// NewDerivativesScorer creates a new derivatives group scorer.
func NewDerivativesScorer() *DerivativesScorer {
	return &DerivativesScorer{}
}

// Calculate scores the derivatives group. Without a derivatives regime the
// group is neutral.
// Components:
// - Funding extremes, inverted (±0.5)
// - OI change confirming or denying the trend (±0.5)
func (ds *DerivativesScorer) Calculate(feats domain.Features) domain.GroupScore {
	if feats.Derivatives == nil {
		return domain.GroupScore{
			Group:   domain.GroupDerivatives,
			Summary: "no derivatives data",
		}
	}

	signals := map[string]float64{
		"funding": scoreFunding(feats.Derivatives.Funding),
		"oi":      scoreOIVsTrend(feats.Derivatives.OI, feats.Trend),
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}

	return domain.GroupScore{
		Group:    domain.GroupDerivatives,
		RawScore: round3(clamp2(sum / derivativesDivisor)),
		Signals:  signals,
		Summary:  signalSummary(signals),
	}
}

// scoreFunding votes against the crowded side at funding extremes.
func scoreFunding(f domain.FundingState) float64 {
	switch f {
	case domain.FundingExtremeLong:
		return -fundingVote
	case domain.FundingExtremeShort:
		return fundingVote
	}
	return 0
}

// scoreOIVsTrend votes for the trend when open interest confirms it
// (rising OI in a move means participation) and against it when positions
// are unwinding.
func scoreOIVsTrend(oi domain.OIState, trend domain.TrendState) float64 {
	trendSign := 0.0
	switch trend {
	case domain.TrendBullish:
		trendSign = 1
	case domain.TrendBearish:
		trendSign = -1
	default:
		return 0
	}
	oiSign := 0.0
	switch oi {
	case domain.OIRising, domain.OIRisingFast:
		oiSign = 1
	case domain.OIFalling, domain.OIFallingFast:
		oiSign = -1
	default:
		return 0
	}
	return trendSign * oiSign * oiVote
}
