// Package planning turns per-timeframe diagnostics into an advisory
// trade plan: a strategic mode, entry/add/ceiling levels, a skip
// decision and a position-size factor. Plans never become orders.
package planning

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
)

// highInsightConfidence gates how sure a momentum insight must be before
// it vetoes a small position or scales the size factor.
const highInsightConfidence = 0.6

// Planner is a stateless plan builder. All tuning lives in Thresholds.
type Planner struct {
	th  config.Thresholds
	log zerolog.Logger
}

func NewPlanner(th config.Thresholds, log zerolog.Logger) *Planner {
	return &Planner{
		th:  th,
		log: log.With().Str("component", "planning").Logger(),
	}
}

// Plan builds a trade plan in the mode implied by the diagnosed phase.
// regime may be empty (treated as NEUTRAL) and insight may be nil.
func (p *Planner) Plan(
	diag *domain.MarketDiagnostics,
	bars []domain.Bar,
	regime domain.GlobalRegime,
	insight *domain.MomentumInsight,
) domain.TradePlan {
	var mode domain.PlanMode
	if diag != nil {
		mode = modeForPhase(diag.Phase)
	}
	return p.PlanWithMode(diag, bars, regime, insight, mode)
}

// PlanWithMode builds a trade plan in a caller-chosen mode, overriding
// the phase table.
func (p *Planner) PlanWithMode(
	diag *domain.MarketDiagnostics,
	bars []domain.Bar,
	regime domain.GlobalRegime,
	insight *domain.MomentumInsight,
	mode domain.PlanMode,
) domain.TradePlan {
	regime = normalizeRegime(regime)

	if diag == nil {
		return domain.TradePlan{
			Mode:               domain.ModeNeutral,
			SkipTrading:        true,
			PositionSizeFactor: p.th.SizeMin,
			ScenarioPlaybook:   "stand aside: no diagnostics",
			RegimeInfo:         regime,
		}
	}
	if mode == "" {
		mode = domain.ModeNeutral
	}

	reason := p.skipReason(diag, regime, insight)
	levels := p.buildLevels(mode, diag, bars)

	plan := domain.TradePlan{
		Mode:                 mode,
		SmallPositionAllowed: reason == "" && smallPositionAllowed(diag, insight),
		LimitBuyZone:         levels.limitZone,
		AddOnBreakoutLevel:   levels.breakout,
		DontDCAAbove:         levels.ceiling,
		InvalidationLevel:    levels.invalidation,
		SkipTrading:          reason != "",
		PositionSizeFactor:   p.sizeFactor(diag, regime, insight),
		ScenarioPlaybook:     playbook(mode, reason),
		RegimeInfo:           regime,
	}

	p.log.Debug().
		Str("symbol", diag.Symbol).
		Str("timeframe", string(diag.Timeframe)).
		Str("mode", string(mode)).
		Bool("skip", plan.SkipTrading).
		Float64("size_factor", plan.PositionSizeFactor).
		Msg("trade plan built")

	return plan
}

// modeForPhase maps the diagnosed phase onto a strategic mode. Expansion
// down and shakeout both plan nothing; the scores already lean short.
func modeForPhase(phase domain.MarketPhase) domain.PlanMode {
	switch phase {
	case domain.PhaseAccumulation:
		return domain.ModeAccumulationPlay
	case domain.PhaseExpansionUp:
		return domain.ModeTrendFollow
	case domain.PhaseDistribution:
		return domain.ModeDistributionWait
	default:
		return domain.ModeNeutral
	}
}

// skipReason returns a non-empty reason when no trade should be placed.
// Checked in order: confident exhaustion, risk/pump mismatch for the
// regime, the hard risk ceiling, then weak pump under elevated risk.
func (p *Planner) skipReason(
	diag *domain.MarketDiagnostics,
	regime domain.GlobalRegime,
	insight *domain.MomentumInsight,
) string {
	if insight != nil && insight.Regime == domain.RegimeExhaustion &&
		insight.Confidence > p.th.ExhaustionSkipConfidence {
		return fmt.Sprintf("exhaustion at %.2f confidence", insight.Confidence)
	}

	risk, pump := diag.RiskScore, diag.PumpScore
	if risk > regimeThreshold(p.th.SkipRiskAbove, regime) &&
		pump < regimeThreshold(p.th.SkipPumpBelow, regime) {
		return fmt.Sprintf("risk %.2f with pump %.2f under %s", risk, pump, regime)
	}
	if risk > regimeThreshold(p.th.HardRiskAbove, regime) {
		return fmt.Sprintf("risk %.2f above the hard ceiling", risk)
	}
	if pump < p.th.WeakPumpBelow && risk > p.th.WeakPumpRisk {
		return fmt.Sprintf("pump %.2f too weak for risk %.2f", pump, risk)
	}
	return ""
}

// smallPositionAllowed is the phase and volatility table, vetoed by a
// confident exhaustion or reversal-risk insight.
func smallPositionAllowed(diag *domain.MarketDiagnostics, insight *domain.MomentumInsight) bool {
	if insight != nil && insight.Confidence >= highInsightConfidence {
		switch insight.Regime {
		case domain.RegimeExhaustion, domain.RegimeReversalRisk:
			return false
		}
	}

	switch diag.Phase {
	case domain.PhaseAccumulation, domain.PhaseExpansionUp:
		return diag.Volatility != domain.VolatilityHigh
	case domain.PhaseShakeout:
		return diag.Volatility == domain.VolatilityLow
	default:
		return false
	}
}

func playbook(mode domain.PlanMode, skipReason string) string {
	if skipReason != "" {
		return "stand aside: " + skipReason
	}
	switch mode {
	case domain.ModeAccumulationPlay:
		return "ladder bids inside the limit zone; add only above the breakout level"
	case domain.ModeTrendFollow:
		return "momentum entry: add above the breakout level, no limit bids below"
	case domain.ModeMeanReversion:
		return "fade extremes back into the value zone"
	case domain.ModeDistributionWait:
		return "supply overhead: wait for the range to resolve"
	default:
		return "no edge: observe"
	}
}

func normalizeRegime(regime domain.GlobalRegime) domain.GlobalRegime {
	if regime == "" {
		return domain.GlobalNeutral
	}
	return regime
}

// regimeThreshold reads a per-regime tuning with a NEUTRAL fallback for
// regimes the table does not carry.
func regimeThreshold(m map[domain.GlobalRegime]float64, regime domain.GlobalRegime) float64 {
	if v, ok := m[regime]; ok {
		return v
	}
	return m[domain.GlobalNeutral]
}
