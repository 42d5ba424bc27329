package planning

import (
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

const (
	// zoneATRBand half-widths a single support level into a bid zone.
	zoneATRBand = 0.25
	// lowATRBuffer sits the zone floor under recent lows.
	lowATRBuffer = 0.3
	// invalidationATRBuffer places the invalidation under the zone low.
	invalidationATRBuffer = 0.5
	// fallbackBandPct replaces the ATR buffers when ATR is unavailable.
	fallbackBandPct = 0.005

	// strongLevelStrength is the minimum cluster strength for a level to
	// anchor a zone.
	strongLevelStrength = 0.6

	// meanRevZonePct bands the value zone around VWAP or the BB middle.
	meanRevZonePct = 0.025
	// meanRevStretch marks the overextension level above VWAP.
	meanRevStretch = 1.05
)

// planLevels carries the mode-specific level set into the plan.
type planLevels struct {
	limitZone    *domain.PriceZone
	breakout     *float64
	ceiling      *float64
	invalidation *float64
}

func (p *Planner) buildLevels(mode domain.PlanMode, diag *domain.MarketDiagnostics, bars []domain.Bar) planLevels {
	switch mode {
	case domain.ModeAccumulationPlay:
		zone := p.accumulationZone(diag, bars)
		return planLevels{
			limitZone:    zone,
			breakout:     p.breakoutLevel(diag, bars),
			ceiling:      p.dcaCeiling(diag),
			invalidation: belowZone(zone, atrOf(diag)),
		}
	case domain.ModeTrendFollow:
		return planLevels{
			breakout:     p.breakoutLevel(diag, bars),
			ceiling:      p.dcaCeiling(diag),
			invalidation: p.swingStop(diag, bars),
		}
	case domain.ModeMeanReversion:
		zone := meanReversionZone(diag)
		return planLevels{
			limitZone:    zone,
			ceiling:      overextensionLevel(diag),
			invalidation: belowZone(zone, atrOf(diag)),
		}
	default:
		return planLevels{}
	}
}

// accumulationZone picks the bid zone from the strongest available
// anchor: demand order block, strong support cluster, discount boundary,
// the EMA20-50 band, then recent lows less an ATR buffer.
func (p *Planner) accumulationZone(diag *domain.MarketDiagnostics, bars []domain.Bar) *domain.PriceZone {
	price, ok := diag.Metric(domain.MetricClose)
	if !ok {
		return nil
	}
	atr := atrOf(diag)

	if ob := nearestDemandBlock(diag.SMC, price); ob != nil {
		return &domain.PriceZone{Low: ob.Low, High: ob.High}
	}
	if lvl := nearestStrongSupport(diag.KeyLevels, price); lvl != nil {
		half := buffer(lvl.Price, atr, zoneATRBand)
		return &domain.PriceZone{Low: lvl.Price - half, High: lvl.Price + half}
	}
	if diag.SMC != nil && diag.SMC.DiscountZoneEnd != nil && *diag.SMC.DiscountZoneEnd < price {
		top := *diag.SMC.DiscountZoneEnd
		return &domain.PriceZone{Low: top - buffer(top, atr, invalidationATRBuffer), High: top}
	}
	e20, ok20 := diag.Metric(indicators.EMA20)
	e50, ok50 := diag.Metric(indicators.EMA50)
	if ok20 && ok50 {
		lo, hi := e20, e50
		if lo > hi {
			lo, hi = hi, lo
		}
		return &domain.PriceZone{Low: lo, High: hi}
	}
	if lo := recentLow(bars, p.th.StructureBars); lo != nil {
		return &domain.PriceZone{Low: *lo - buffer(*lo, atr, lowATRBuffer), High: *lo}
	}
	return nil
}

// breakoutLevel is the add-on trigger: the nearest liquidity pool above,
// else the strongest resistance, else recent highs or the upper band.
func (p *Planner) breakoutLevel(diag *domain.MarketDiagnostics, bars []domain.Bar) *float64 {
	price, ok := diag.Metric(domain.MetricClose)
	if !ok {
		return nil
	}

	if diag.SMC != nil {
		if pool := nearestAbove(diag.SMC.LiquidityAbove, price); pool != nil {
			return domain.Float64Ptr(pool.Price)
		}
	}
	if lvl := strongestResistanceAbove(diag.KeyLevels, price); lvl != nil {
		return domain.Float64Ptr(lvl.Price)
	}
	if hi := recentHigh(bars, p.th.StructureBars); hi != nil && *hi > price {
		return hi
	}
	if bbU, ok := diag.Metric(indicators.BBUpper); ok && bbU > price {
		return domain.Float64Ptr(bbU)
	}
	return nil
}

// dcaCeiling is the level above which averaging in stops making sense:
// premium zone start, strong resistance, EMA200 or the upper band.
func (p *Planner) dcaCeiling(diag *domain.MarketDiagnostics) *float64 {
	if diag.SMC != nil && diag.SMC.PremiumZoneStart != nil {
		return domain.Float64Ptr(*diag.SMC.PremiumZoneStart)
	}

	price, ok := diag.Metric(domain.MetricClose)
	if !ok {
		return nil
	}
	if lvl := strongestResistanceAbove(diag.KeyLevels, price); lvl != nil {
		return domain.Float64Ptr(lvl.Price)
	}
	if e200, ok := diag.Metric(indicators.EMA200); ok && e200 > price {
		return domain.Float64Ptr(e200)
	}
	if bbU, ok := diag.Metric(indicators.BBUpper); ok {
		return domain.Float64Ptr(bbU)
	}
	return nil
}

// swingStop is the trend-follow invalidation: recent lows less a buffer.
func (p *Planner) swingStop(diag *domain.MarketDiagnostics, bars []domain.Bar) *float64 {
	lo := recentLow(bars, p.th.StructureBars)
	if lo == nil {
		return nil
	}
	return domain.Float64Ptr(*lo - buffer(*lo, atrOf(diag), lowATRBuffer))
}

// meanReversionZone bands the value area around VWAP, falling back to
// the Bollinger middle, then the last close.
func meanReversionZone(diag *domain.MarketDiagnostics) *domain.PriceZone {
	center, ok := diag.Metric(indicators.VWAP)
	if !ok {
		center, ok = diag.Metric(indicators.BBMiddle)
	}
	if !ok {
		center, ok = diag.Metric(domain.MetricClose)
	}
	if !ok {
		return nil
	}
	return &domain.PriceZone{
		Low:  center * (1 - meanRevZonePct),
		High: center * (1 + meanRevZonePct),
	}
}

// overextensionLevel marks where a reversion trade is fighting the tape.
func overextensionLevel(diag *domain.MarketDiagnostics) *float64 {
	if bbU, ok := diag.Metric(indicators.BBUpper); ok {
		return domain.Float64Ptr(bbU)
	}
	if vwap, ok := diag.Metric(indicators.VWAP); ok {
		return domain.Float64Ptr(vwap * meanRevStretch)
	}
	return nil
}

// nearestDemandBlock returns the demand order block closest under price.
func nearestDemandBlock(smc *domain.SMCContext, price float64) *domain.OrderBlock {
	if smc == nil {
		return nil
	}
	var best *domain.OrderBlock
	for i := range smc.OrderBlocksDemand {
		ob := &smc.OrderBlocksDemand[i]
		if ob.High > price {
			continue
		}
		if best == nil || ob.High > best.High {
			best = ob
		}
	}
	return best
}

// nearestStrongSupport returns the closest support cluster below price
// that clears the strength gate.
func nearestStrongSupport(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Kind != domain.LevelSupport || lvl.Price >= price || lvl.Strength < strongLevelStrength {
			continue
		}
		if best == nil || lvl.Price > best.Price {
			best = lvl
		}
	}
	return best
}

// strongestResistanceAbove returns the highest-strength resistance above
// price; ties go to the nearer level.
func strongestResistanceAbove(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Kind != domain.LevelResistance || lvl.Price <= price {
			continue
		}
		if best == nil || lvl.Strength > best.Strength ||
			(lvl.Strength == best.Strength && lvl.Price < best.Price) {
			best = lvl
		}
	}
	return best
}

// nearestAbove returns the lowest-priced level above price.
func nearestAbove(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Price <= price {
			continue
		}
		if best == nil || lvl.Price < best.Price {
			best = lvl
		}
	}
	return best
}

func recentLow(bars []domain.Bar, window int) *float64 {
	if len(bars) == 0 {
		return nil
	}
	if window > 0 && len(bars) > window {
		bars = bars[len(bars)-window:]
	}
	lo := bars[0].Low
	for _, b := range bars[1:] {
		if b.Low < lo {
			lo = b.Low
		}
	}
	return domain.Float64Ptr(lo)
}

func recentHigh(bars []domain.Bar, window int) *float64 {
	if len(bars) == 0 {
		return nil
	}
	if window > 0 && len(bars) > window {
		bars = bars[len(bars)-window:]
	}
	hi := bars[0].High
	for _, b := range bars[1:] {
		if b.High > hi {
			hi = b.High
		}
	}
	return domain.Float64Ptr(hi)
}

// belowZone places the invalidation under the zone floor.
func belowZone(zone *domain.PriceZone, atr float64) *float64 {
	if zone == nil {
		return nil
	}
	return domain.Float64Ptr(zone.Low - buffer(zone.Low, atr, invalidationATRBuffer))
}

// buffer is an ATR-scaled distance, or a price fraction when no ATR is
// available.
func buffer(price, atr, atrMult float64) float64 {
	if atr > 0 {
		return atr * atrMult
	}
	return price * fallbackBandPct
}

func atrOf(diag *domain.MarketDiagnostics) float64 {
	atr, _ := diag.Metric(indicators.ATR)
	return atr
}
