package planning

import (
	"math"

	"github.com/aristath/marketdoctor/internal/domain"
)

const (
	// Risk and pump bands for the size multipliers.
	riskSoftBand = 0.5
	riskHardBand = 0.7
	pumpSoftBand = 0.5
	pumpHardBand = 0.7

	sizeRiskTrim  = 0.85
	sizeRiskCut   = 0.70
	sizePumpLean  = 1.05
	sizePumpSurge = 1.15

	// Diagnostics-confidence adjustment bands.
	lowConfidenceBand  = 0.4
	highConfidenceBand = 0.8
	sizeLowConfidence  = 0.8
	sizeHighConfidence = 1.05

	// Insight factors scale with insight strength: exhaustion lands in
	// [0.4, 0.6], reversal risk in [0.5, 0.7], continuation up to 1.1.
	exhaustionSizeBase   = 0.6
	exhaustionSizeSpan   = 0.2
	reversalSizeBase     = 0.7
	reversalSizeSpan     = 0.2
	continuationSizeSpan = 0.1
)

// sizeFactor multiplies the baseline 1.0 through the regime, risk/pump,
// confidence, liquidity and insight adjustments, then clamps to the
// configured size band.
func (p *Planner) sizeFactor(
	diag *domain.MarketDiagnostics,
	regime domain.GlobalRegime,
	insight *domain.MomentumInsight,
) float64 {
	f := 1.0

	if rf, ok := p.th.SizeRegimeFactor[regime]; ok {
		f *= rf
	}

	switch {
	case diag.RiskScore >= riskHardBand:
		f *= sizeRiskCut
	case diag.RiskScore >= riskSoftBand:
		f *= sizeRiskTrim
	}
	switch {
	case diag.PumpScore >= pumpHardBand:
		f *= sizePumpSurge
	case diag.PumpScore >= pumpSoftBand:
		f *= sizePumpLean
	}
	switch {
	case diag.Confidence < lowConfidenceBand:
		f *= sizeLowConfidence
	case diag.Confidence >= highConfidenceBand:
		f *= sizeHighConfidence
	}

	switch diag.Liquidity {
	case domain.LiquidityLow:
		f *= p.th.SizeLowLiquidity
	case domain.LiquidityHigh:
		f *= p.th.SizeHighLiquidity
	}

	if insight != nil && insight.Confidence >= highInsightConfidence {
		switch insight.Regime {
		case domain.RegimeExhaustion:
			f *= exhaustionSizeBase - exhaustionSizeSpan*insight.Strength
		case domain.RegimeReversalRisk:
			f *= reversalSizeBase - reversalSizeSpan*insight.Strength
		case domain.RegimeContinuation:
			f *= 1 + continuationSizeSpan*insight.Strength
		}
	}

	if f < p.th.SizeMin {
		f = p.th.SizeMin
	}
	if f > p.th.SizeMax {
		f = p.th.SizeMax
	}
	return math.Round(f*1000) / 1000
}
