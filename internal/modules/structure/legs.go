package structure

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

// alternate reduces a chronological swing sequence to strictly alternating
// highs and lows, keeping the more extreme pivot when two of the same side
// are adjacent.
func alternate(swings []Swing) []Swing {
	var out []Swing
	for _, s := range swings {
		if len(out) == 0 {
			out = append(out, s)
			continue
		}
		last := &out[len(out)-1]
		if s.IsHigh != last.IsHigh {
			out = append(out, s)
			continue
		}
		if s.IsHigh && s.Price > last.Price {
			*last = s
		}
		if !s.IsHigh && s.Price < last.Price {
			*last = s
		}
	}
	return out
}

// analyzeLegs walks alternating swing pairs into price legs, drops moves
// smaller than minLegPct and flags impulses: legs whose length and average
// volume both exceed the mean of all kept legs. Without volume data the
// length test alone decides.
func analyzeLegs(bars []domain.Bar, swings []Swing, minLegPct float64, hasVolume bool) ([]domain.PriceLeg, *domain.LegsSummary) {
	seq := alternate(swings)
	if len(seq) < 2 {
		return nil, nil
	}

	type legStat struct {
		leg       domain.PriceLeg
		avgVolume float64
	}

	var stats []legStat
	for i := 1; i < len(seq); i++ {
		from, to := seq[i-1], seq[i]
		if from.Price <= 0 {
			continue
		}

		lengthPct := (to.Price - from.Price) / from.Price
		dir := domain.DirectionLong
		if lengthPct < 0 {
			dir = domain.DirectionShort
			lengthPct = -lengthPct
		}
		if lengthPct < minLegPct {
			continue
		}

		var avgVol float64
		if hasVolume {
			count := 0
			for j := from.Index; j <= to.Index && j < len(bars); j++ {
				avgVol += bars[j].Vol()
				count++
			}
			if count > 0 {
				avgVol /= float64(count)
			}
		}

		stats = append(stats, legStat{
			leg: domain.PriceLeg{
				Direction: dir,
				StartIdx:  from.Index,
				EndIdx:    to.Index,
				LengthPct: lengthPct,
			},
			avgVolume: avgVol,
		})
	}

	if len(stats) == 0 {
		return nil, nil
	}

	var meanLen, meanVol float64
	for _, s := range stats {
		meanLen += s.leg.LengthPct
		meanVol += s.avgVolume
	}
	meanLen /= float64(len(stats))
	meanVol /= float64(len(stats))

	legs := make([]domain.PriceLeg, len(stats))
	impulses := 0
	for i, s := range stats {
		leg := s.leg
		leg.IsImpulse = leg.LengthPct > meanLen && (!hasVolume || s.avgVolume > meanVol)
		if leg.IsImpulse {
			impulses++
		}
		legs[i] = leg
	}

	last := legs[len(legs)-1]
	return legs, &domain.LegsSummary{
		Count:        len(legs),
		ImpulseCount: impulses,
		LastLeg:      &last,
		AvgLengthPct: meanLen,
	}
}
