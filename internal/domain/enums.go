package domain

// MarketPhase classifies what the market is doing on one timeframe.
type MarketPhase string

const (
	// PhaseAccumulation - quiet range building, low volatility and liquidity
	PhaseAccumulation MarketPhase = "accumulation"
	// PhaseDistribution - topping range, supply being offloaded
	PhaseDistribution MarketPhase = "distribution"
	// PhaseExpansionUp - directional move up with participation
	PhaseExpansionUp MarketPhase = "expansion_up"
	// PhaseExpansionDown - directional move down with participation
	PhaseExpansionDown MarketPhase = "expansion_down"
	// PhaseShakeout - violent volatility on thin liquidity
	PhaseShakeout MarketPhase = "shakeout"
)

// TrendState is the discrete trend classification.
type TrendState string

const (
	TrendBullish TrendState = "bullish"
	TrendBearish TrendState = "bearish"
	TrendNeutral TrendState = "neutral"
)

// VolatilityState is the discrete volatility classification.
type VolatilityState string

const (
	VolatilityLow    VolatilityState = "low"
	VolatilityMedium VolatilityState = "medium"
	VolatilityHigh   VolatilityState = "high"
)

// LiquidityState is the discrete liquidity classification.
type LiquidityState string

const (
	LiquidityLow    LiquidityState = "low"
	LiquidityMedium LiquidityState = "medium"
	LiquidityHigh   LiquidityState = "high"
)

// StructureState describes the most recent swing structure.
type StructureState string

const (
	StructureHigherHigh StructureState = "higher_high"
	StructureLowerLow   StructureState = "lower_low"
	StructureRange      StructureState = "range"
)

// Direction is the trade direction derived from aggregated scores.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// MomentumBias is the directional lean of the oscillator ensemble.
type MomentumBias string

const (
	BiasLong    MomentumBias = "LONG"
	BiasShort   MomentumBias = "SHORT"
	BiasNeutral MomentumBias = "NEUTRAL"
)

// MomentumRegime classifies the oscillator ensemble state.
type MomentumRegime string

const (
	RegimeContinuation MomentumRegime = "CONTINUATION"
	RegimeExhaustion   MomentumRegime = "EXHAUSTION"
	RegimeReversalRisk MomentumRegime = "REVERSAL_RISK"
	RegimeNeutral      MomentumRegime = "NEUTRAL"
)

// MomentumGrade is the five-way display grade for momentum.
type MomentumGrade string

const (
	GradeStrongBullish MomentumGrade = "STRONG_BULLISH"
	GradeWeakBullish   MomentumGrade = "WEAK_BULLISH"
	GradeNeutral       MomentumGrade = "NEUTRAL"
	GradeWeakBearish   MomentumGrade = "WEAK_BEARISH"
	GradeStrongBearish MomentumGrade = "STRONG_BEARISH"
)

// LevelKind classifies a structural price level.
type LevelKind string

const (
	LevelSupport          LevelKind = "support"
	LevelResistance       LevelKind = "resistance"
	LevelLiquidityHigh    LevelKind = "liquidity_high"
	LevelLiquidityLow     LevelKind = "liquidity_low"
	LevelOrderBlockDemand LevelKind = "orderblock_demand"
	LevelOrderBlockSupply LevelKind = "orderblock_supply"
	LevelFVG              LevelKind = "fvg"
)

// ZonePosition locates the last close within the premium/discount split.
type ZonePosition string

const (
	ZonePremium  ZonePosition = "premium"
	ZoneDiscount ZonePosition = "discount"
	ZoneNeutral  ZonePosition = "neutral"
)

// DivergenceSide is the direction a divergence argues for.
type DivergenceSide string

const (
	DivergenceBullish DivergenceSide = "bullish"
	DivergenceBearish DivergenceSide = "bearish"
)

// DivergenceStrength grades a detected divergence.
type DivergenceStrength string

const (
	DivergenceWeak   DivergenceStrength = "weak"
	DivergenceMedium DivergenceStrength = "medium"
	DivergenceStrong DivergenceStrength = "strong"
)

// ScoreGroup names one of the six indicator groups.
type ScoreGroup string

const (
	GroupTrend       ScoreGroup = "trend"
	GroupMomentum    ScoreGroup = "momentum"
	GroupVolume      ScoreGroup = "volume"
	GroupVolatility  ScoreGroup = "volatility"
	GroupStructure   ScoreGroup = "structure"
	GroupDerivatives ScoreGroup = "derivatives"
)

// ScoreGroups lists all groups in scoring order.
func ScoreGroups() []ScoreGroup {
	return []ScoreGroup{
		GroupTrend,
		GroupMomentum,
		GroupVolume,
		GroupVolatility,
		GroupStructure,
		GroupDerivatives,
	}
}

// PlanMode is the strategic mode of a trade plan.
type PlanMode string

const (
	ModeNeutral          PlanMode = "neutral"
	ModeAccumulationPlay PlanMode = "accumulation_play"
	ModeTrendFollow      PlanMode = "trend_follow"
	ModeMeanReversion    PlanMode = "mean_reversion"
	ModeDistributionWait PlanMode = "distribution_wait"
)

// GlobalRegime is the broad market risk environment, supplied by a
// collaborator outside this engine.
type GlobalRegime string

const (
	GlobalNeutral   GlobalRegime = "NEUTRAL"
	GlobalRiskOn    GlobalRegime = "RISK_ON"
	GlobalRiskOff   GlobalRegime = "RISK_OFF"
	GlobalPanic     GlobalRegime = "PANIC"
	GlobalAltSeason GlobalRegime = "ALT_SEASON"
)

// Timeframe is a bar interval. Only the four configured intervals are
// known to the multi-timeframe weight matrix.
type Timeframe string

const (
	TF1h Timeframe = "1h"
	TF4h Timeframe = "4h"
	TF1d Timeframe = "1d"
	TF1w Timeframe = "1w"
)

// KnownTimeframes returns the supported timeframes, shortest first.
func KnownTimeframes() []Timeframe {
	return []Timeframe{TF1h, TF4h, TF1d, TF1w}
}

// Valid reports whether tf is one of the known timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TF1h, TF4h, TF1d, TF1w:
		return true
	}
	return false
}

// Hours returns the bar interval in hours (0 for unknown timeframes).
func (tf Timeframe) Hours() float64 {
	switch tf {
	case TF1h:
		return 1
	case TF4h:
		return 4
	case TF1d:
		return 24
	case TF1w:
		return 168
	}
	return 0
}

// DurationMS returns the bar interval in milliseconds.
func (tf Timeframe) DurationMS() int64 {
	return int64(tf.Hours() * 3600 * 1000)
}
