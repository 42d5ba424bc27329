package structure

import (
	"math"
	"sort"

	"github.com/aristath/marketdoctor/internal/domain"
)

// swingCluster groups swings whose prices sit within the clustering
// tolerance of the running cluster mean.
type swingCluster struct {
	swings []Swing
	sum    float64
}

func (c *swingCluster) mean() float64 {
	return c.sum / float64(len(c.swings))
}

func (c *swingCluster) add(s Swing) {
	c.swings = append(c.swings, s)
	c.sum += s.Price
}

// ClusterLevels groups prices whose relative distance from the running
// cluster mean is at most toleranceBps basis points and returns the mean of
// each group, ascending.
func ClusterLevels(prices []float64, toleranceBps float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	swings := make([]Swing, len(prices))
	for i, p := range prices {
		swings[i] = Swing{Price: p}
	}
	clusters := clusterSwings(swings, toleranceBps)
	out := make([]float64, len(clusters))
	for i, c := range clusters {
		out[i] = c.mean()
	}
	return out
}

// clusterSwings sorts swings by price and greedily merges neighbours within
// tolerance. Returned clusters are ordered by ascending mean price.
func clusterSwings(swings []Swing, toleranceBps float64) []*swingCluster {
	if len(swings) == 0 {
		return nil
	}
	tol := toleranceBps / 10_000

	sorted := make([]Swing, len(swings))
	copy(sorted, swings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	var clusters []*swingCluster
	current := &swingCluster{}
	current.add(sorted[0])
	for _, s := range sorted[1:] {
		m := current.mean()
		if m > 0 && (s.Price-m)/m <= tol {
			current.add(s)
			continue
		}
		clusters = append(clusters, current)
		current = &swingCluster{}
		current.add(s)
	}
	clusters = append(clusters, current)
	return clusters
}

// buildLevels converts swing clusters into graded levels. Strength blends
// touch count, how long the level has been in play and the volume that
// traded at its touches:
//
//	strength = 0.4·touch + 0.3·age + 0.3·volume
//
// A level below the reference price is support, above it resistance.
func buildLevels(clusters []*swingCluster, bars []domain.Bar, refPrice float64, hasVolume bool) []domain.Level {
	n := len(bars)
	if n == 0 {
		return nil
	}

	var avgVolume float64
	if hasVolume {
		for _, b := range bars {
			avgVolume += b.Vol()
		}
		avgVolume /= float64(n)
	}

	levels := make([]domain.Level, 0, len(clusters))
	for _, c := range clusters {
		firstIdx, lastIdx := c.swings[0].Index, c.swings[0].Index
		firstTS, lastTS := c.swings[0].TS, c.swings[0].TS
		var touchVolume float64
		for _, s := range c.swings {
			if s.Index < firstIdx {
				firstIdx, firstTS = s.Index, s.TS
			}
			if s.Index > lastIdx {
				lastIdx, lastTS = s.Index, s.TS
			}
			touchVolume += s.Volume
		}

		touches := len(c.swings)
		touchScore := clamp01(float64(touches-1) / 3.0)
		ageScore := clamp01(float64(n-1-firstIdx) / float64(n-1))

		volumeScore := 0.5
		if hasVolume && avgVolume > 0 {
			ratio := (touchVolume / float64(touches)) / avgVolume
			volumeScore = clamp01(ratio / 2.0)
		}

		price := c.mean()
		kind := domain.LevelResistance
		if price < refPrice {
			kind = domain.LevelSupport
		}

		levels = append(levels, domain.Level{
			Price:     price,
			Kind:      kind,
			Strength:  0.4*touchScore + 0.3*ageScore + 0.3*volumeScore,
			Touches:   touches,
			TimeFirst: firstTS,
			TimeLast:  lastTS,
		})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Strength > levels[j].Strength })
	return levels
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
