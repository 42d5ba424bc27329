package config

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/marketdoctor/internal/domain"
)

// Weight component keys for the risk and pump indices.
const (
	WeightVolatility  = "volatility"
	WeightLiquidity   = "liquidity"
	WeightPhase       = "phase"
	WeightDerivatives = "derivatives"
	WeightTrend       = "trend"
	WeightStructure   = "structure"
)

// Thresholds carries every numeric knob of the analytical pipeline.
// Defaults come from DefaultThresholds; Validate runs once at load.
type Thresholds struct {
	// Indicator coverage
	MinFullBars int // below this only indicators whose warm-up fits are computed

	// Feature extraction
	TrendVoteBand  float64 // mean vote beyond ±band classifies bullish/bearish
	VolHighRatio   float64 // ATR_now / mean(ATR) above which volatility is high
	VolLowRatio    float64 // below which volatility is low
	LiqHighRatio   float64 // volume_now / mean_volume_20 above which liquidity is high
	LiqLowRatio    float64 // below which liquidity is low
	StructureBars  int     // window for the HH/LL structure check
	RSIBullish     float64
	RSIBearish     float64

	// Derivatives regime. Funding is a raw rate (0.01 == 1%); OI change is
	// expressed in percent (10 == 10%).
	FundingExtreme  float64
	FundingElevated float64
	OIRapidPct      float64
	OIModeratePct   float64

	// Structure analysis
	SwingLeft             int
	SwingRight            int
	ClusterToleranceBps   float64
	BOSMinExcessPct       float64 // swing must exceed the prior one by this fraction
	OrderBlockLookback    int
	OrderBlockBodyRatio   float64
	OrderBlockVolumeRatio float64
	MinLegPct             float64

	// Market analysis. Weight maps must each sum to 1.0 ± 0.01; phase value
	// maps hold the [0,1] component value per phase.
	RiskWeights     map[string]float64
	PumpWeights     map[string]float64
	RiskPhaseValues map[domain.MarketPhase]float64
	PumpPhaseValues map[domain.MarketPhase]float64
	VWAPDiscountPct float64 // price below VWAP by at least this fraction earns the pump bonus
	EMADiscountPct  float64 // same for EMA200
	DiscountBonus   float64 // pump bonus per satisfied discount condition

	// Momentum intelligence
	RSIOverbought   float64
	RSIOversold     float64
	StochOverbought float64
	StochOversold   float64
	STCOverbought   float64
	STCOversold     float64
	HighVolATRPct   float64 // ATR/price above this shifts thresholds outward
	LowVolATRPct    float64 // below this shifts inward
	ThresholdShift  float64 // absolute shift applied to OB/OS levels
	BiasBand        float64 // |net| beyond which bias is LONG/SHORT
	ExhaustionLevel float64 // total exhaustion at which regime is EXHAUSTION
	ContinuationNet float64 // |net| at which regime is CONTINUATION
	MinOscillators  int     // fewer available oscillators yields no insight

	// Scoring cache
	ScoreCacheTTL  time.Duration
	ScoreCacheSize int

	// Multi-timeframe aggregation
	TFMatrix         map[domain.Timeframe]map[domain.Timeframe]float64
	NetDeadBand      float64 // |net| at or below this counts as flat for agreement
	ConfidenceBase   float64
	ConfidenceSpan   float64
	PartialAgreement float64 // agreement credit for flat-vs-directional pairs

	// Trade planning
	SkipRiskAbove  map[domain.GlobalRegime]float64 // skip when risk above AND pump below
	SkipPumpBelow  map[domain.GlobalRegime]float64
	HardRiskAbove  map[domain.GlobalRegime]float64 // skip regardless of pump
	WeakPumpBelow  float64                         // skip when pump below this and risk above WeakPumpRisk
	WeakPumpRisk   float64
	ExhaustionSkipConfidence float64 // EXHAUSTION insight above this confidence skips

	SizeRegimeFactor map[domain.GlobalRegime]float64
	SizeLowLiquidity  float64
	SizeHighLiquidity float64
	SizeMin           float64
	SizeMax           float64

	// Outcome evaluation. Each horizon is a wall-clock span; the evaluator
	// converts it to a bar count per timeframe and drops spans shorter than
	// one bar.
	OutcomeHorizonHours []int
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFullBars: 150,

		TrendVoteBand: 0.3,
		VolHighRatio:  1.5,
		VolLowRatio:   0.7,
		LiqHighRatio:  1.5,
		LiqLowRatio:   0.5,
		StructureBars: 20,
		RSIBullish:    60,
		RSIBearish:    40,

		FundingExtreme:  0.01,
		FundingElevated: 0.001,
		OIRapidPct:      10,
		OIModeratePct:   5,

		SwingLeft:             2,
		SwingRight:            2,
		ClusterToleranceBps:   25,
		BOSMinExcessPct:       0.01,
		OrderBlockLookback:    20,
		OrderBlockBodyRatio:   0.6,
		OrderBlockVolumeRatio: 1.2,
		MinLegPct:             0.02,

		RiskWeights: map[string]float64{
			WeightVolatility:  0.30,
			WeightLiquidity:   0.25,
			WeightPhase:       0.20,
			WeightDerivatives: 0.15,
			WeightTrend:       0.10,
		},
		PumpWeights: map[string]float64{
			WeightPhase:       0.30,
			WeightTrend:       0.20,
			WeightStructure:   0.15,
			WeightVolatility:  0.15,
			WeightDerivatives: 0.20,
		},
		RiskPhaseValues: map[domain.MarketPhase]float64{
			domain.PhaseShakeout:      1.0,
			domain.PhaseExpansionDown: 0.75,
			domain.PhaseDistribution:  0.5,
			domain.PhaseExpansionUp:   0.25,
			domain.PhaseAccumulation:  0,
		},
		PumpPhaseValues: map[domain.MarketPhase]float64{
			domain.PhaseAccumulation:  1.0,
			domain.PhaseShakeout:      0.833,
			domain.PhaseExpansionUp:   0.667,
			domain.PhaseDistribution:  0,
			domain.PhaseExpansionDown: 0,
		},
		VWAPDiscountPct: 0.005,
		EMADiscountPct:  0.01,
		DiscountBonus:   0.05,

		RSIOverbought:   70,
		RSIOversold:     30,
		StochOverbought: 80,
		StochOversold:   20,
		STCOverbought:   75,
		STCOversold:     25,
		HighVolATRPct:   0.03,
		LowVolATRPct:    0.01,
		ThresholdShift:  5,
		BiasBand:        0.6,
		ExhaustionLevel: 1.0,
		ContinuationNet: 0.8,
		MinOscillators:  2,

		ScoreCacheTTL:  60 * time.Second,
		ScoreCacheSize: 512,

		TFMatrix: map[domain.Timeframe]map[domain.Timeframe]float64{
			domain.TF1h: {domain.TF1h: 0.50, domain.TF4h: 0.30, domain.TF1d: 0.15, domain.TF1w: 0.05},
			domain.TF4h: {domain.TF1h: 0.20, domain.TF4h: 0.40, domain.TF1d: 0.30, domain.TF1w: 0.10},
			domain.TF1d: {domain.TF1h: 0.10, domain.TF4h: 0.25, domain.TF1d: 0.40, domain.TF1w: 0.25},
			domain.TF1w: {domain.TF1h: 0.05, domain.TF4h: 0.15, domain.TF1d: 0.30, domain.TF1w: 0.50},
		},
		NetDeadBand:      0.2,
		ConfidenceBase:   0.3,
		ConfidenceSpan:   0.7,
		PartialAgreement: 0.3,

		SkipRiskAbove: map[domain.GlobalRegime]float64{
			domain.GlobalNeutral:   0.70,
			domain.GlobalRiskOn:    0.70,
			domain.GlobalAltSeason: 0.70,
			domain.GlobalRiskOff:   0.60,
			domain.GlobalPanic:     0.50,
		},
		SkipPumpBelow: map[domain.GlobalRegime]float64{
			domain.GlobalNeutral:   0.30,
			domain.GlobalRiskOn:    0.30,
			domain.GlobalAltSeason: 0.30,
			domain.GlobalRiskOff:   0.35,
			domain.GlobalPanic:     0.40,
		},
		HardRiskAbove: map[domain.GlobalRegime]float64{
			domain.GlobalNeutral:   0.85,
			domain.GlobalRiskOn:    0.85,
			domain.GlobalAltSeason: 0.85,
			domain.GlobalRiskOff:   0.85,
			domain.GlobalPanic:     0.75,
		},
		WeakPumpBelow:            0.20,
		WeakPumpRisk:             0.50,
		ExhaustionSkipConfidence: 0.80,

		SizeRegimeFactor: map[domain.GlobalRegime]float64{
			domain.GlobalNeutral:   1.0,
			domain.GlobalRiskOn:    1.1,
			domain.GlobalRiskOff:   0.5,
			domain.GlobalPanic:     0.3,
			domain.GlobalAltSeason: 1.15,
		},
		SizeLowLiquidity:  0.6,
		SizeHighLiquidity: 1.05,
		SizeMin:           0.3,
		SizeMax:           1.5,

		OutcomeHorizonHours: []int{24, 72, 168},
	}
}

// Validate rejects inconsistent tunings with a clear error.
func (t Thresholds) Validate() error {
	if t.MinFullBars <= 0 {
		return fmt.Errorf("min full bars must be positive")
	}
	if t.VolLowRatio >= t.VolHighRatio {
		return fmt.Errorf("volatility low ratio %.2f must be below high ratio %.2f", t.VolLowRatio, t.VolHighRatio)
	}
	if t.LiqLowRatio >= t.LiqHighRatio {
		return fmt.Errorf("liquidity low ratio %.2f must be below high ratio %.2f", t.LiqLowRatio, t.LiqHighRatio)
	}
	if t.RSIBearish >= t.RSIBullish {
		return fmt.Errorf("RSI bearish band %.1f must be below bullish band %.1f", t.RSIBearish, t.RSIBullish)
	}
	if t.RSIOversold >= t.RSIOverbought {
		return fmt.Errorf("RSI oversold %.1f must be below overbought %.1f", t.RSIOversold, t.RSIOverbought)
	}
	if t.SwingLeft <= 0 || t.SwingRight <= 0 {
		return fmt.Errorf("swing windows must be positive")
	}
	if t.MinLegPct < 0 {
		return fmt.Errorf("min leg pct must not be negative")
	}

	if err := validateWeightSum("risk weights", t.RiskWeights); err != nil {
		return err
	}
	if err := validateWeightSum("pump weights", t.PumpWeights); err != nil {
		return err
	}
	for _, phase := range []domain.MarketPhase{
		domain.PhaseAccumulation, domain.PhaseDistribution,
		domain.PhaseExpansionUp, domain.PhaseExpansionDown, domain.PhaseShakeout,
	} {
		if _, ok := t.RiskPhaseValues[phase]; !ok {
			return fmt.Errorf("risk phase values missing %q", phase)
		}
		if _, ok := t.PumpPhaseValues[phase]; !ok {
			return fmt.Errorf("pump phase values missing %q", phase)
		}
	}

	if t.MinOscillators < 1 {
		return fmt.Errorf("min oscillators must be at least 1")
	}
	if t.ScoreCacheTTL <= 0 {
		return fmt.Errorf("score cache TTL must be positive")
	}
	if t.ScoreCacheSize <= 0 {
		return fmt.Errorf("score cache size must be positive")
	}

	if len(t.TFMatrix) == 0 {
		return fmt.Errorf("timeframe weight matrix is empty")
	}
	for target, row := range t.TFMatrix {
		if !target.Valid() {
			return fmt.Errorf("timeframe matrix has unknown target %q", target)
		}
		sum := 0.0
		for tf, w := range row {
			if !tf.Valid() {
				return fmt.Errorf("timeframe matrix row %q has unknown timeframe %q", target, tf)
			}
			if w < 0 {
				return fmt.Errorf("timeframe matrix row %q has negative weight for %q", target, tf)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > domain.WeightSumTolerance {
			return fmt.Errorf("timeframe matrix row %q sums to %.4f, want 1.0", target, sum)
		}
	}

	for _, regime := range []domain.GlobalRegime{
		domain.GlobalNeutral, domain.GlobalRiskOn, domain.GlobalRiskOff,
		domain.GlobalPanic, domain.GlobalAltSeason,
	} {
		if _, ok := t.SkipRiskAbove[regime]; !ok {
			return fmt.Errorf("skip risk table missing regime %q", regime)
		}
		if _, ok := t.SkipPumpBelow[regime]; !ok {
			return fmt.Errorf("skip pump table missing regime %q", regime)
		}
		if _, ok := t.HardRiskAbove[regime]; !ok {
			return fmt.Errorf("hard risk table missing regime %q", regime)
		}
		if _, ok := t.SizeRegimeFactor[regime]; !ok {
			return fmt.Errorf("size factor table missing regime %q", regime)
		}
	}
	if t.SizeMin <= 0 || t.SizeMax < t.SizeMin {
		return fmt.Errorf("size factor bounds invalid: min %.2f max %.2f", t.SizeMin, t.SizeMax)
	}

	if len(t.OutcomeHorizonHours) == 0 {
		return fmt.Errorf("outcome horizon hours are empty")
	}
	for i, h := range t.OutcomeHorizonHours {
		if h <= 0 {
			return fmt.Errorf("outcome horizon hours must be positive, got %d", h)
		}
		if i > 0 && h <= t.OutcomeHorizonHours[i-1] {
			return fmt.Errorf("outcome horizon hours must be strictly ascending")
		}
	}

	return nil
}

func validateWeightSum(name string, weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%s are empty", name)
	}
	sum := 0.0
	for key, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s: negative weight for %q", name, key)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > domain.WeightSumTolerance {
		return fmt.Errorf("%s sum to %.4f, want 1.0", name, sum)
	}
	return nil
}
