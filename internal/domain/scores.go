package domain

import (
	"fmt"
	"math"
)

// GroupScore is the output of one indicator-group scorer. RawScore is in
// [-2, 2] after normalization and any momentum modulation. Signals records
// the numeric contributions for auditability.
type GroupScore struct {
	Group    ScoreGroup         `json:"group"`
	RawScore float64            `json:"raw_score"`
	Signals  map[string]float64 `json:"signals,omitempty"`
	Summary  string             `json:"summary,omitempty"`
}

// GroupWeights is a named weight vector over the six indicator groups.
// Weights must sum to 1.0 within WeightSumTolerance.
type GroupWeights map[ScoreGroup]float64

// WeightSumTolerance is the allowed deviation of a weight vector sum from 1.0.
const WeightSumTolerance = 0.01

// DefaultGroupWeights returns the baseline group weight vector.
func DefaultGroupWeights() GroupWeights {
	return GroupWeights{
		GroupTrend:       0.25,
		GroupMomentum:    0.25,
		GroupVolume:      0.15,
		GroupVolatility:  0.10,
		GroupStructure:   0.20,
		GroupDerivatives: 0.05,
	}
}

// Validate checks that the vector covers every group and sums to 1.0
// within tolerance. Misconfigured weights are rejected at load time.
func (w GroupWeights) Validate() error {
	sum := 0.0
	for _, g := range ScoreGroups() {
		v, ok := w[g]
		if !ok {
			return fmt.Errorf("group weights missing %q", g)
		}
		if v < 0 {
			return fmt.Errorf("group weight for %q is negative: %f", g, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("group weights sum to %.4f, want 1.0 ± %.2f", sum, WeightSumTolerance)
	}
	return nil
}

// Clone returns an independent copy of the weight vector.
func (w GroupWeights) Clone() GroupWeights {
	out := make(GroupWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// TimeframeScore is the per-timeframe scoring result. NormalizedLong and
// NormalizedShort always sum to 10 within floating tolerance.
type TimeframeScore struct {
	Timeframe       Timeframe                  `json:"timeframe"`
	Weight          float64                    `json:"weight"`
	Regime          MarketPhase                `json:"regime"`
	Trend           TrendState                 `json:"trend"`
	GroupScores     map[ScoreGroup]GroupScore  `json:"group_scores"`
	NetScore        float64                    `json:"net_score"`        // [-2,2]
	NormalizedLong  float64                    `json:"normalized_long"`  // [0,10]
	NormalizedShort float64                    `json:"normalized_short"` // [0,10]
}

// GroupRaw returns the raw score for one group, 0 when absent.
func (s TimeframeScore) GroupRaw(g ScoreGroup) float64 {
	if gs, ok := s.GroupScores[g]; ok {
		return gs.RawScore
	}
	return 0
}

// NormalizeNet maps a net score in [-2,2] onto the LONG side of a 0-10
// scale; the SHORT side is its complement.
func NormalizeNet(net float64) (long, short float64) {
	long = 10 * (net + 2) / 4
	if long < 0 {
		long = 0
	}
	if long > 10 {
		long = 10
	}
	return long, 10 - long
}

// MultiTFScore is the cross-timeframe aggregation for one target timeframe.
type MultiTFScore struct {
	TargetTF        Timeframe                    `json:"target_tf"`
	PerTF           map[Timeframe]TimeframeScore `json:"per_tf"`
	AggregatedLong  float64                      `json:"aggregated_long"`  // [0,10]
	AggregatedShort float64                      `json:"aggregated_short"` // [0,10]
	Confidence      float64                      `json:"confidence"`       // [0,1]
	Direction       Direction                    `json:"direction"`
	MomentumGrade   MomentumGrade                `json:"momentum_grade,omitempty"`
	MomentumComment string                       `json:"momentum_comment,omitempty"`
}

// Score returns the aggregated score on the given side.
func (m MultiTFScore) Score(d Direction) float64 {
	if d == DirectionShort {
		return m.AggregatedShort
	}
	return m.AggregatedLong
}
