package market

import (
	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
)

// component value tables for the risk index. Each maps a discrete state to
// [0,1] where 1 is maximally adverse.
var (
	riskVolatilityValue = map[domain.VolatilityState]float64{
		domain.VolatilityHigh:   1.0,
		domain.VolatilityMedium: 0.5,
		domain.VolatilityLow:    0.0,
	}
	riskLiquidityValue = map[domain.LiquidityState]float64{
		domain.LiquidityLow:    1.0,
		domain.LiquidityMedium: 0.5,
		domain.LiquidityHigh:   0.0,
	}
	riskTrendValue = map[domain.TrendState]float64{
		domain.TrendBearish: 1.0,
		domain.TrendNeutral: 0.5,
		domain.TrendBullish: 0.0,
	}

	riskFundingValue = map[domain.FundingState]float64{
		domain.FundingExtremeLong:  1.0,
		domain.FundingExtremeShort: 1.0,
		domain.FundingLong:         0.6,
		domain.FundingShort:        0.6,
		domain.FundingNeutral:      0.2,
	}
	riskOIValue = map[domain.OIState]float64{
		domain.OIRisingFast:  1.0,
		domain.OIFallingFast: 1.0,
		domain.OIRising:      0.5,
		domain.OIFalling:     0.5,
		domain.OIFlat:        0.2,
	}
	riskCVDValue = map[domain.CVDState]float64{
		domain.CVDSellPressure: 0.7,
		domain.CVDNeutral:      0.4,
		domain.CVDBuyPressure:  0.2,
	}
)

// component value tables for the pump index, 1 being maximally favorable
// for an upside move.
var (
	pumpTrendValue = map[domain.TrendState]float64{
		domain.TrendBullish: 1.0,
		domain.TrendNeutral: 0.5,
		domain.TrendBearish: 0.0,
	}
	pumpStructureValue = map[domain.StructureState]float64{
		domain.StructureHigherHigh: 1.0,
		domain.StructureRange:      0.5,
		domain.StructureLowerLow:   0.0,
	}
	// low volatility is compression: fuel for the move
	pumpVolatilityValue = map[domain.VolatilityState]float64{
		domain.VolatilityLow:    1.0,
		domain.VolatilityMedium: 0.5,
		domain.VolatilityHigh:   0.0,
	}

	pumpFundingValue = map[domain.FundingState]float64{
		domain.FundingExtremeShort: 1.0, // shorts paying: squeeze fuel
		domain.FundingShort:        0.75,
		domain.FundingNeutral:      0.5,
		domain.FundingLong:         0.25,
		domain.FundingExtremeLong:  0.0,
	}
	pumpOIValue = map[domain.OIState]float64{
		domain.OIRisingFast:  1.0,
		domain.OIRising:      0.75,
		domain.OIFlat:        0.5,
		domain.OIFalling:     0.25,
		domain.OIFallingFast: 0.0,
	}
	pumpCVDValue = map[domain.CVDState]float64{
		domain.CVDBuyPressure:  1.0,
		domain.CVDNeutral:      0.5,
		domain.CVDSellPressure: 0.0,
	}
)

// riskScore is the weighted adverse-conditions index. A missing derivatives
// regime contributes a neutral 0.5 so thin coverage neither inflates nor
// masks risk.
func riskScore(th config.Thresholds, f domain.Features, phase domain.MarketPhase) float64 {
	derivValue := 0.5
	if f.Derivatives != nil {
		if v, ok := regimeMean(f.Derivatives, riskFundingValue, riskOIValue, riskCVDValue); ok {
			derivValue = v
		}
	}

	score := th.RiskWeights[config.WeightVolatility]*riskVolatilityValue[f.Volatility] +
		th.RiskWeights[config.WeightLiquidity]*riskLiquidityValue[f.Liquidity] +
		th.RiskWeights[config.WeightPhase]*th.RiskPhaseValues[phase] +
		th.RiskWeights[config.WeightDerivatives]*derivValue +
		th.RiskWeights[config.WeightTrend]*riskTrendValue[f.Trend]

	return clamp01(score)
}

// pumpScore is the weighted favorable-conditions index. Derivatives absent
// contributes zero: no evidence, no credit. Price trading at a discount to
// VWAP or EMA200 earns a small bonus per condition.
func pumpScore(th config.Thresholds, f domain.Features, phase domain.MarketPhase, lastClose float64, vwap, ema200 *float64) float64 {
	derivValue := 0.0
	if f.Derivatives != nil {
		if v, ok := regimeMean(f.Derivatives, pumpFundingValue, pumpOIValue, pumpCVDValue); ok {
			derivValue = v
		}
	}

	score := th.PumpWeights[config.WeightPhase]*th.PumpPhaseValues[phase] +
		th.PumpWeights[config.WeightTrend]*pumpTrendValue[f.Trend] +
		th.PumpWeights[config.WeightStructure]*pumpStructureValue[f.Structure] +
		th.PumpWeights[config.WeightVolatility]*pumpVolatilityValue[f.Volatility] +
		th.PumpWeights[config.WeightDerivatives]*derivValue

	if vwap != nil && lastClose < *vwap*(1-th.VWAPDiscountPct) {
		score += th.DiscountBonus
	}
	if ema200 != nil && lastClose < *ema200*(1-th.EMADiscountPct) {
		score += th.DiscountBonus
	}

	return clamp01(score)
}

// regimeMean averages the value tables over whichever regime fields are
// present. ok is false when no field is set.
func regimeMean(r *domain.DerivativesRegime, funding map[domain.FundingState]float64, oi map[domain.OIState]float64, cvd map[domain.CVDState]float64) (float64, bool) {
	sum, n := 0.0, 0
	if r.Funding != "" {
		sum += funding[r.Funding]
		n++
	}
	if r.OI != "" {
		sum += oi[r.OI]
		n++
	}
	if r.CVD != "" {
		sum += cvd[r.CVD]
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
