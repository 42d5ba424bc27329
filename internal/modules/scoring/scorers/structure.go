package scorers

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

// Structure group votes.
const (
	bosVote          = 0.8
	zoneVote         = 0.5
	phaseVote        = 0.5
	structureDivisor = 2.0
)

// StructureScorer grades the structural context: the last break of
// structure, the premium/discount position and the market phase.
type StructureScorer struct{}

// NewStructureScorer creates a new structure group scorer.
func NewStructureScorer() *StructureScorer {
	return &StructureScorer{}
}

// Calculate scores the structure group.
// Components:
// - Last BOS direction (±0.8)
// - Premium/discount position (+0.5 discount / -0.5 premium)
// - Phase: accumulation or expansion up (+0.5) vs distribution or
//   expansion down (-0.5)
func (ss *StructureScorer) Calculate(diag *domain.MarketDiagnostics) domain.GroupScore {
	signals := map[string]float64{
		"bos":   scoreBOS(diag.SMC),
		"zone":  scoreZonePosition(diag.SMC),
		"phase": scorePhase(diag.Phase),
	}

	sum := 0.0
	for _, v := range signals {
		sum += v
	}

	return domain.GroupScore{
		Group:    domain.GroupStructure,
		RawScore: round3(clamp2(sum / structureDivisor)),
		Signals:  signals,
		Summary:  signalSummary(signals),
	}
}

// scoreBOS votes with the direction of the last break of structure.
func scoreBOS(smc *domain.SMCContext) float64 {
	if smc == nil || smc.LastBOS == nil {
		return 0
	}
	if smc.LastBOS.Direction == domain.DirectionShort {
		return -bosVote
	}
	return bosVote
}

// scoreZonePosition rewards buying in discount and penalizes premium.
func scoreZonePosition(smc *domain.SMCContext) float64 {
	if smc == nil {
		return 0
	}
	switch smc.CurrentPosition {
	case domain.ZoneDiscount:
		return zoneVote
	case domain.ZonePremium:
		return -zoneVote
	}
	return 0
}

// scorePhase votes with the constructive phases and against distribution.
// Shakeout is directionless.
func scorePhase(phase domain.MarketPhase) float64 {
	switch phase {
	case domain.PhaseAccumulation, domain.PhaseExpansionUp:
		return phaseVote
	case domain.PhaseDistribution, domain.PhaseExpansionDown:
		return -phaseVote
	}
	return 0
}
