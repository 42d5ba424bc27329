package structure

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

const (
	// premium/discount band around the range midpoint; between the two the
	// position reads neutral
	premiumStartRatio = 0.55
	discountEndRatio  = 0.45

	maxTrackedFVGs = 10
)

// lastBOSUp returns the most recent break of structure to the upside: a
// swing high exceeding the prior swing high by at least minExcessPct.
// Strength grows with the excess and saturates at three times the minimum.
func lastBOSUp(highs []Swing, minExcessPct float64) *domain.StructureEvent {
	var last *domain.StructureEvent
	for i := 1; i < len(highs); i++ {
		prev, cur := highs[i-1], highs[i]
		if prev.Price <= 0 {
			continue
		}
		excess := cur.Price/prev.Price - 1
		if excess >= minExcessPct {
			last = &domain.StructureEvent{
				Direction: domain.DirectionLong,
				Price:     cur.Price,
				Index:     cur.Index,
				TS:        cur.TS,
				Strength:  clamp01(excess / (3 * minExcessPct)),
			}
		}
	}
	return last
}

// lastBOSDown mirrors lastBOSUp on swing lows.
func lastBOSDown(lows []Swing, minExcessPct float64) *domain.StructureEvent {
	var last *domain.StructureEvent
	for i := 1; i < len(lows); i++ {
		prev, cur := lows[i-1], lows[i]
		if prev.Price <= 0 {
			continue
		}
		excess := 1 - cur.Price/prev.Price
		if excess >= minExcessPct {
			last = &domain.StructureEvent{
				Direction: domain.DirectionShort,
				Price:     cur.Price,
				Index:     cur.Index,
				TS:        cur.TS,
				Strength:  clamp01(excess / (3 * minExcessPct)),
			}
		}
	}
	return last
}

// latestEvent picks the more recent of two structure events.
func latestEvent(a, b *domain.StructureEvent) *domain.StructureEvent {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Index >= a.Index {
		return b
	}
	return a
}

// detectCHOCH finds the change of character after the last BOS: the first
// lower-low following an up-BOS (or the first higher-high following a
// down-BOS).
func detectCHOCH(bos *domain.StructureEvent, highs, lows []Swing) *domain.StructureEvent {
	if bos == nil {
		return nil
	}

	if bos.Direction == domain.DirectionLong {
		for i := 1; i < len(lows); i++ {
			if lows[i].Index <= bos.Index {
				continue
			}
			if lows[i].Price < lows[i-1].Price {
				return &domain.StructureEvent{
					Direction: domain.DirectionShort,
					Price:     lows[i].Price,
					Index:     lows[i].Index,
					TS:        lows[i].TS,
					Strength:  bos.Strength,
				}
			}
		}
		return nil
	}

	for i := 1; i < len(highs); i++ {
		if highs[i].Index <= bos.Index {
			continue
		}
		if highs[i].Price > highs[i-1].Price {
			return &domain.StructureEvent{
				Direction: domain.DirectionLong,
				Price:     highs[i].Price,
				Index:     highs[i].Index,
				TS:        highs[i].TS,
				Strength:  bos.Strength,
			}
		}
	}
	return nil
}

// liquidityPools returns clusters of at least two equal highs (resting
// liquidity above price) and two equal lows (below), graded like key levels.
func liquidityPools(highs, lows []Swing, bars []domain.Bar, toleranceBps float64, hasVolume bool) (above, below []domain.Level) {
	refPrice := bars[len(bars)-1].Close

	for _, c := range clusterSwings(highs, toleranceBps) {
		if len(c.swings) < 2 {
			continue
		}
		lvl := buildLevels([]*swingCluster{c}, bars, refPrice, hasVolume)[0]
		lvl.Kind = domain.LevelLiquidityHigh
		above = append(above, lvl)
	}
	for _, c := range clusterSwings(lows, toleranceBps) {
		if len(c.swings) < 2 {
			continue
		}
		lvl := buildLevels([]*swingCluster{c}, bars, refPrice, hasVolume)[0]
		lvl.Kind = domain.LevelLiquidityLow
		below = append(below, lvl)
	}
	return above, below
}

// findOrderBlock searches back at most lookback bars from the BOS bar for
// the last counter-direction candle with a dominant body and, when volume
// data exists, above-average participation.
func findOrderBlock(bars []domain.Bar, bos *domain.StructureEvent, lookback int, bodyRatio, volumeRatio float64, hasVolume bool) *domain.OrderBlock {
	if bos == nil {
		return nil
	}

	var avgVolume float64
	if hasVolume {
		for _, b := range bars {
			avgVolume += b.Vol()
		}
		avgVolume /= float64(len(bars))
	}

	start := bos.Index - lookback
	if start < 0 {
		start = 0
	}
	for i := bos.Index - 1; i >= start; i-- {
		b := bars[i]
		rng := b.High - b.Low
		if rng <= 0 {
			continue
		}

		counterDirection := b.Close < b.Open // bearish candle before an up-BOS
		if bos.Direction == domain.DirectionShort {
			counterDirection = b.Close > b.Open
		}
		if !counterDirection {
			continue
		}
		body := b.Close - b.Open
		if body < 0 {
			body = -body
		}
		if body/rng < bodyRatio {
			continue
		}

		ratio := 1.0
		if hasVolume && avgVolume > 0 {
			ratio = b.Vol() / avgVolume
			if ratio <= volumeRatio {
				continue
			}
		}

		return &domain.OrderBlock{
			Low:         b.Low,
			High:        b.High,
			Index:       i,
			TS:          b.TS,
			VolumeRatio: ratio,
		}
	}
	return nil
}

// findFVGs detects three-bar fair value gaps. A bullish gap opens when the
// next bar's low clears the previous bar's high; it is filled once a later
// bar trades through the far side. The most recent gaps are kept.
func findFVGs(bars []domain.Bar) []domain.FVG {
	n := len(bars)
	var gaps []domain.FVG

	for i := 1; i < n-1; i++ {
		prev, next := bars[i-1], bars[i+1]

		if next.Low > prev.High {
			gaps = append(gaps, domain.FVG{
				Low:     prev.High,
				High:    next.Low,
				Bullish: true,
				Index:   i,
				TS:      bars[i].TS,
				Filled:  filledBelow(bars, i+2, prev.High),
			})
		}
		if next.High < prev.Low {
			gaps = append(gaps, domain.FVG{
				Low:     next.High,
				High:    prev.Low,
				Bullish: false,
				Index:   i,
				TS:      bars[i].TS,
				Filled:  filledAbove(bars, i+2, prev.Low),
			})
		}
	}

	if len(gaps) > maxTrackedFVGs {
		gaps = gaps[len(gaps)-maxTrackedFVGs:]
	}
	return gaps
}

func filledBelow(bars []domain.Bar, from int, price float64) bool {
	for i := from; i < len(bars); i++ {
		if bars[i].Low <= price {
			return true
		}
	}
	return false
}

func filledAbove(bars []domain.Bar, from int, price float64) bool {
	for i := from; i < len(bars); i++ {
		if bars[i].High >= price {
			return true
		}
	}
	return false
}

// premiumDiscount derives the premium/discount split of the swing range and
// places the last close in it. Inside the middle band the position is
// neutral.
func premiumDiscount(highs, lows []Swing, lastClose float64) (premiumStart, discountEnd *float64, position domain.ZonePosition) {
	if len(highs) == 0 || len(lows) == 0 {
		return nil, nil, ""
	}

	hi := highs[0].Price
	for _, s := range highs[1:] {
		if s.Price > hi {
			hi = s.Price
		}
	}
	lo := lows[0].Price
	for _, s := range lows[1:] {
		if s.Price < lo {
			lo = s.Price
		}
	}
	if hi <= lo {
		return nil, nil, ""
	}

	span := hi - lo
	pStart := lo + premiumStartRatio*span
	dEnd := lo + discountEndRatio*span

	switch {
	case lastClose >= pStart:
		position = domain.ZonePremium
	case lastClose <= dEnd:
		position = domain.ZoneDiscount
	default:
		position = domain.ZoneNeutral
	}
	return &pStart, &dEnd, position
}
