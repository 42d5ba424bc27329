package market

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

// phaseRule is one row of the classification table. A nil field matches any
// value; rows are evaluated top to bottom and the first match wins.
type phaseRule struct {
	trend      []domain.TrendState
	volatility []domain.VolatilityState
	liquidity  []domain.LiquidityState
	structure  []domain.StructureState
	phase      domain.MarketPhase
}

// phaseTable is the decision table. Keeping it as data makes the
// classification auditable row by row.
var phaseTable = []phaseRule{
	{
		volatility: []domain.VolatilityState{domain.VolatilityHigh},
		liquidity:  []domain.LiquidityState{domain.LiquidityLow},
		phase:      domain.PhaseShakeout,
	},
	{
		trend:      []domain.TrendState{domain.TrendBullish},
		volatility: []domain.VolatilityState{domain.VolatilityMedium, domain.VolatilityHigh},
		liquidity:  []domain.LiquidityState{domain.LiquidityMedium, domain.LiquidityHigh},
		phase:      domain.PhaseExpansionUp,
	},
	{
		trend:      []domain.TrendState{domain.TrendBearish},
		volatility: []domain.VolatilityState{domain.VolatilityMedium, domain.VolatilityHigh},
		liquidity:  []domain.LiquidityState{domain.LiquidityMedium, domain.LiquidityHigh},
		phase:      domain.PhaseExpansionDown,
	},
	{
		trend:      []domain.TrendState{domain.TrendNeutral, domain.TrendBullish},
		volatility: []domain.VolatilityState{domain.VolatilityLow},
		liquidity:  []domain.LiquidityState{domain.LiquidityLow},
		phase:      domain.PhaseAccumulation,
	},
	{
		trend:      []domain.TrendState{domain.TrendNeutral, domain.TrendBearish},
		volatility: []domain.VolatilityState{domain.VolatilityLow},
		liquidity:  []domain.LiquidityState{domain.LiquidityLow},
		phase:      domain.PhaseDistribution,
	},
	{
		trend: []domain.TrendState{domain.TrendBullish},
		phase: domain.PhaseAccumulation,
	},
	{
		trend: []domain.TrendState{domain.TrendBearish},
		phase: domain.PhaseDistribution,
	},
}

func (r phaseRule) matches(f domain.Features) bool {
	if r.trend != nil && !containsTrend(r.trend, f.Trend) {
		return false
	}
	if r.volatility != nil && !containsVolatility(r.volatility, f.Volatility) {
		return false
	}
	if r.liquidity != nil && !containsLiquidity(r.liquidity, f.Liquidity) {
		return false
	}
	if r.structure != nil && !containsStructure(r.structure, f.Structure) {
		return false
	}
	return true
}

// classifyPhase walks the table; unmatched features land in accumulation,
// the quiet default.
func classifyPhase(f domain.Features) domain.MarketPhase {
	for _, rule := range phaseTable {
		if rule.matches(f) {
			return rule.phase
		}
	}
	return domain.PhaseAccumulation
}

// applyDerivativeOverrides promotes two derivative configurations over the
// bar-derived phase: deeply negative funding with open interest building
// during accumulation is a shakeout in progress; extreme positive funding
// with open interest unwinding during an expansion up is distribution.
func applyDerivativeOverrides(phase domain.MarketPhase, regime *domain.DerivativesRegime) domain.MarketPhase {
	if regime == nil {
		return phase
	}

	oiRising := regime.OI == domain.OIRising || regime.OI == domain.OIRisingFast
	oiFalling := regime.OI == domain.OIFalling || regime.OI == domain.OIFallingFast

	if phase == domain.PhaseAccumulation && regime.Funding == domain.FundingExtremeShort && oiRising {
		return domain.PhaseShakeout
	}
	if phase == domain.PhaseExpansionUp && regime.Funding == domain.FundingExtremeLong && oiFalling {
		return domain.PhaseDistribution
	}
	return phase
}

func containsTrend(list []domain.TrendState, v domain.TrendState) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsVolatility(list []domain.VolatilityState, v domain.VolatilityState) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsLiquidity(list []domain.LiquidityState, v domain.LiquidityState) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsStructure(list []domain.StructureState, v domain.StructureState) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
