package scorers

import (
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// Volume group votes.
const (
	obvVote       = 0.8
	cmfVote       = 0.5
	volumeDivisor = 1.5

	obvLookback = 3
)

// VolumeScorer grades volume flow: OBV direction over a short lookback and
// the sign of the Chaikin money flow.
type VolumeScorer struct{}

// NewVolumeScorer creates a new volume group scorer.
func NewVolumeScorer() *VolumeScorer {
	return &VolumeScorer{}
}

// Calculate scores the volume group.
// Components:
// - OBV direction over the last 3 bars (±0.8)
// - CMF sign (±0.5)
func (vs *VolumeScorer) Calculate(set indicators.SeriesSet) domain.GroupScore {
	signals := map[string]float64{
		"obv": scoreOBVDirection(set),
		"cmf": scoreCMFSign(set.Last(indicators.CMF)),
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}

	return domain.GroupScore{
		Group:    domain.GroupVolume,
		RawScore: round3(clamp2(sum / volumeDivisor)),
		Signals:  signals,
		Summary:  signalSummary(signals),
	}
}

// scoreOBVDirection compares the latest OBV against its value obvLookback
// bars earlier. Flat or missing history is no signal.
func scoreOBVDirection(set indicators.SeriesSet) float64 {
	now := set.Last(indicators.OBV)
	then := set.At(indicators.OBV, set.Length-1-obvLookback)
	if now == nil || then == nil {
		return 0
	}
	return signOf(*now-*then) * obvVote
}

// scoreCMFSign votes with the side of the zero line.
func scoreCMFSign(cmf *float64) float64 {
	if cmf == nil {
		return 0
	}
	return signOf(*cmf) * cmfVote
}
