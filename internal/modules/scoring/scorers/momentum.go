package scorers

import (
	"math"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
)

// Momentum group votes. The RSI vote is contrarian: an overbought reading
// argues against chasing, an oversold reading argues for entry.
const (
	oscillatorVote = 0.5
	stcMidline     = 50.0

	exhaustionFloor    = 0.5
	reversalBoost      = 0.4
	continuationBoost  = 0.15
	continuationMinAbs = 0.3
	neutralDamp        = 0.9
	neutralMinAbs      = 0.5
)

// MomentumScorer grades the oscillator ensemble and folds in detected
// divergences, then modulates the result by the momentum insight regime.
type MomentumScorer struct {
	th config.Thresholds
}

// NewMomentumScorer creates a new momentum group scorer.
func NewMomentumScorer(th config.Thresholds) *MomentumScorer {
	return &MomentumScorer{th: th}
}

// Calculate scores the momentum group.
// Components:
// - RSI overbought / oversold, contrarian (±0.5)
// - MACD vs signal (±0.5)
// - StochRSI %K vs %D (±0.5)
// - WaveTrend pair (±0.5)
// - STC vs midline (±0.5)
// - Divergences, weighted by strength (strong 1.5 / medium 1.0 / weak 0.5)
// The momentum insight then damps exhausted moves, amplifies confirmed
// reversal risk and continuation, and shaves conviction in neutral regimes.
func (ms *MomentumScorer) Calculate(set indicators.SeriesSet, feats domain.Features, insight *domain.MomentumInsight) domain.GroupScore {
	signals := map[string]float64{
		"rsi":       scoreRSIContrarian(set.Last(indicators.RSI), ms.th.RSIOverbought, ms.th.RSIOversold),
		"macd":      scorePair(set.Last(indicators.MACD), set.Last(indicators.MACDSignal)),
		"stoch_rsi": scorePair(set.Last(indicators.StochRSIK), set.Last(indicators.StochRSID)),
		"wavetrend": scorePair(set.Last(indicators.WT1), set.Last(indicators.WT2)),
		"stc":       scoreSTC(set.Last(indicators.STC)),
	}
	if len(feats.Divergences) > 0 {
		signals["divergences"] = scoreDivergences(feats.Divergences)
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}
	score := clamp2(sum)
	summary := signalSummary(signals)

	modulated, multiplier := applyInsight(score, insight)
	if multiplier != 1 {
		signals["score_before_insight"] = round3(score)
		signals["insight_multiplier"] = round3(multiplier)
	}

	return domain.GroupScore{
		Group:    domain.GroupMomentum,
		RawScore: round3(modulated),
		Signals:  signals,
		Summary:  summary,
	}
}

// scoreRSIContrarian votes only in the extreme zones.
func scoreRSIContrarian(rsi *float64, overbought, oversold float64) float64 {
	if rsi == nil {
		return 0
	}
	switch {
	case *rsi >= overbought:
		return -oscillatorVote
	case *rsi <= oversold:
		return oscillatorVote
	}
	return 0
}

// scorePair votes with the ordering of a fast/slow oscillator pair.
func scorePair(fast, slow *float64) float64 {
	if fast == nil || slow == nil {
		return 0
	}
	return signOf(*fast-*slow) * oscillatorVote
}

// scoreSTC votes with the Schaff cycle side of the midline.
func scoreSTC(stc *float64) float64 {
	if stc == nil {
		return 0
	}
	return signOf(*stc-stcMidline) * oscillatorVote
}

// scoreDivergences sums the signed strength-weighted divergence votes.
func scoreDivergences(divs []domain.Divergence) float64 {
	sum := 0.0
	for _, d := range divs {
		if d.Side == domain.DivergenceBullish {
			sum += d.Weight()
		} else {
			sum -= d.Weight()
		}
	}
	return sum
}

// applyInsight modulates the group score by the momentum regime and returns
// the modulated score with the multiplier used.
func applyInsight(score float64, insight *domain.MomentumInsight) (float64, float64) {
	if insight == nil {
		return score, 1
	}
	multiplier := 1.0
	switch insight.Regime {
	case domain.RegimeExhaustion:
		if insightAligned(insight.Bias, score) {
			multiplier = math.Max(exhaustionFloor, 1-insight.Strength*0.5)
		}
	case domain.RegimeReversalRisk:
		if insightAligned(insight.Bias, score) {
			multiplier = 1 + insight.Strength*reversalBoost
		}
	case domain.RegimeContinuation:
		if math.Abs(score) > continuationMinAbs {
			multiplier = 1 + insight.Strength*continuationBoost
		}
	case domain.RegimeNeutral:
		if math.Abs(score) > neutralMinAbs {
			multiplier = neutralDamp
		}
	}
	return clamp2(score * multiplier), multiplier
}

// insightAligned reports whether the insight bias points the same way as
// the group score.
func insightAligned(bias domain.MomentumBias, score float64) bool {
	return (bias == domain.BiasLong && score > 0) || (bias == domain.BiasShort && score < 0)
}
