// Package multitf blends per-timeframe scores into one directional read
// for a target timeframe. Higher timeframes anchor the lower ones: the
// weight matrix shifts mass toward slower candles as the target slows.
package multitf

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
)

const (
	// gradeStrongAbs and gradeWeakAbs band the momentum group raw score
	// ([-2,2]) into the five display grades.
	gradeStrongAbs = 1.0
	gradeWeakAbs   = 0.3

	// insightGradeGate is the insight confidence below which the regime
	// does not touch the grade.
	insightGradeGate = 0.6
)

// Aggregator combines the scored timeframes of one symbol.
type Aggregator struct {
	th  config.Thresholds
	log zerolog.Logger
}

func NewAggregator(th config.Thresholds, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		th:  th,
		log: log.With().Str("component", "multitf").Logger(),
	}
}

// Aggregate blends the available timeframe scores using the weight row
// for targetTF. Timeframes absent from perTF drop out and the remaining
// weights renormalize, so a missing feed skews nothing toward neutral.
// The target timeframe itself must be present. insight is the momentum
// insight assessed at the target timeframe and may be nil.
func (a *Aggregator) Aggregate(
	perTF map[domain.Timeframe]domain.TimeframeScore,
	targetTF domain.Timeframe,
	insight *domain.MomentumInsight,
) (domain.MultiTFScore, error) {
	row, ok := a.th.TFMatrix[targetTF]
	if !ok {
		return domain.MultiTFScore{}, fmt.Errorf("no weight row for target timeframe %q", targetTF)
	}
	target, ok := perTF[targetTF]
	if !ok {
		return domain.MultiTFScore{}, fmt.Errorf("target timeframe %q missing from per-timeframe scores", targetTF)
	}

	targetSign := a.signWithDeadBand(target.NetScore)

	var totalWeight, net, agree float64
	for tf, w := range row {
		score, ok := perTF[tf]
		if !ok {
			continue
		}
		totalWeight += w
		net += score.NetScore * w
		agree += w * a.agreement(targetSign, a.signWithDeadBand(score.NetScore))
	}
	if totalWeight <= 0 {
		return domain.MultiTFScore{}, fmt.Errorf("no weighted timeframes for target %q", targetTF)
	}
	net /= totalWeight

	weighted := make(map[domain.Timeframe]domain.TimeframeScore, len(perTF))
	for tf, w := range row {
		score, ok := perTF[tf]
		if !ok {
			continue
		}
		score.Weight = round3(w / totalWeight)
		weighted[tf] = score
	}

	long, short := domain.NormalizeNet(round3(net))
	direction := domain.DirectionShort
	if long > short {
		direction = domain.DirectionLong
	}
	confidence := round2(a.th.ConfidenceBase + a.th.ConfidenceSpan*agree/totalWeight)
	grade, comment := gradeMomentum(target.GroupRaw(domain.GroupMomentum), insight)

	a.log.Debug().
		Str("target_tf", string(targetTF)).
		Int("timeframes", len(weighted)).
		Float64("long", long).
		Float64("confidence", confidence).
		Str("direction", string(direction)).
		Msg("timeframes aggregated")

	return domain.MultiTFScore{
		TargetTF:        targetTF,
		PerTF:           weighted,
		AggregatedLong:  round3(long),
		AggregatedShort: round3(10 - round3(long)),
		Confidence:      confidence,
		Direction:       direction,
		MomentumGrade:   grade,
		MomentumComment: comment,
	}, nil
}

// signWithDeadBand treats small net scores as flat so near-zero
// timeframes neither confirm nor contradict the target.
func (a *Aggregator) signWithDeadBand(net float64) int {
	if math.Abs(net) <= a.th.NetDeadBand {
		return 0
	}
	if net > 0 {
		return 1
	}
	return -1
}

// agreement scores one timeframe against the target direction: full
// credit for the same sign, partial credit when either side is flat,
// none for an outright conflict.
func (a *Aggregator) agreement(targetSign, tfSign int) float64 {
	switch {
	case targetSign == tfSign:
		return 1.0
	case targetSign == 0 || tfSign == 0:
		return a.th.PartialAgreement
	default:
		return 0.0
	}
}

// gradeMomentum bands the target momentum group score into a five-way
// grade. A confident exhaustion or reversal-risk insight demotes the
// grade one step toward neutral; a confident continuation only annotates.
func gradeMomentum(raw float64, insight *domain.MomentumInsight) (domain.MomentumGrade, string) {
	grade := baseGrade(raw)
	suffix := ""
	if insight != nil && insight.Confidence >= insightGradeGate {
		switch insight.Regime {
		case domain.RegimeExhaustion:
			grade = demote(grade)
			suffix = " (exhausted)"
		case domain.RegimeReversalRisk:
			grade = demote(grade)
			suffix = " (reversal risk)"
		case domain.RegimeContinuation:
			suffix = " (confirmed)"
		}
	}
	return grade, gradeComment(grade) + suffix
}

func baseGrade(raw float64) domain.MomentumGrade {
	switch {
	case raw >= gradeStrongAbs:
		return domain.GradeStrongBullish
	case raw >= gradeWeakAbs:
		return domain.GradeWeakBullish
	case raw <= -gradeStrongAbs:
		return domain.GradeStrongBearish
	case raw <= -gradeWeakAbs:
		return domain.GradeWeakBearish
	default:
		return domain.GradeNeutral
	}
}

func demote(g domain.MomentumGrade) domain.MomentumGrade {
	switch g {
	case domain.GradeStrongBullish:
		return domain.GradeWeakBullish
	case domain.GradeWeakBullish:
		return domain.GradeNeutral
	case domain.GradeStrongBearish:
		return domain.GradeWeakBearish
	case domain.GradeWeakBearish:
		return domain.GradeNeutral
	}
	return g
}

func gradeComment(g domain.MomentumGrade) string {
	switch g {
	case domain.GradeStrongBullish:
		return "strong bullish momentum"
	case domain.GradeWeakBullish:
		return "mild bullish momentum"
	case domain.GradeStrongBearish:
		return "strong bearish momentum"
	case domain.GradeWeakBearish:
		return "mild bearish momentum"
	default:
		return "flat momentum"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
