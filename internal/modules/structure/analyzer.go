package structure

import (
	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
)

// keyLevelCap bounds the number of graded levels carried downstream.
const keyLevelCap = 8

// Analysis is the full structural read of one bar window.
type Analysis struct {
	SwingHighs []Swing
	SwingLows  []Swing
	KeyLevels  []domain.Level
	SMC        *domain.SMCContext
	Legs       []domain.PriceLeg
	Summary    *domain.LegsSummary
	Fibonacci  *domain.FibAnalysis
	Elliott    *domain.ElliottGuess
}

// Analyzer derives market structure from raw bars. It is stateless; every
// Analyze call works only on its input window.
type Analyzer struct {
	th  config.Thresholds
	log zerolog.Logger
}

// NewAnalyzer creates a structure analyzer with the given tuning.
func NewAnalyzer(th config.Thresholds, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		th:  th,
		log: log.With().Str("component", "structure").Logger(),
	}
}

// Analyze runs swing detection and every derived read. Windows too short
// for pivots return an empty analysis rather than an error.
func (a *Analyzer) Analyze(bars []domain.Bar) *Analysis {
	out := &Analysis{}
	if len(bars) == 0 {
		return out
	}

	highs, lows := FindSwings(bars, a.th.SwingLeft, a.th.SwingRight)
	out.SwingHighs = highs
	out.SwingLows = lows
	if len(highs) == 0 && len(lows) == 0 {
		return out
	}

	_, hasVolume := domain.Volumes(bars)
	lastClose := bars[len(bars)-1].Close
	merged := mergeSwings(highs, lows)

	out.KeyLevels = capLevels(buildLevels(clusterSwings(merged, a.th.ClusterToleranceBps), bars, lastClose, hasVolume), keyLevelCap)

	bosUp := lastBOSUp(highs, a.th.BOSMinExcessPct)
	bosDown := lastBOSDown(lows, a.th.BOSMinExcessPct)
	lastBOS := latestEvent(bosUp, bosDown)

	smc := &domain.SMCContext{
		LastBOS:   lastBOS,
		LastCHOCH: detectCHOCH(lastBOS, highs, lows),
		FVGs:      findFVGs(bars),
	}
	smc.LiquidityAbove, smc.LiquidityBelow = liquidityPools(highs, lows, bars, a.th.ClusterToleranceBps, hasVolume)
	if ob := findOrderBlock(bars, bosUp, a.th.OrderBlockLookback, a.th.OrderBlockBodyRatio, a.th.OrderBlockVolumeRatio, hasVolume); ob != nil {
		smc.OrderBlocksDemand = append(smc.OrderBlocksDemand, *ob)
	}
	if ob := findOrderBlock(bars, bosDown, a.th.OrderBlockLookback, a.th.OrderBlockBodyRatio, a.th.OrderBlockVolumeRatio, hasVolume); ob != nil {
		smc.OrderBlocksSupply = append(smc.OrderBlocksSupply, *ob)
	}
	smc.PremiumZoneStart, smc.DiscountZoneEnd, smc.CurrentPosition = premiumDiscount(highs, lows, lastClose)
	out.SMC = smc

	out.Legs, out.Summary = analyzeLegs(bars, merged, a.th.MinLegPct, hasVolume)
	out.Fibonacci = fibAnalysis(merged)
	out.Elliott = elliottGuess(merged)

	a.log.Debug().
		Int("swing_highs", len(highs)).
		Int("swing_lows", len(lows)).
		Int("key_levels", len(out.KeyLevels)).
		Msg("structure analyzed")

	return out
}

func capLevels(levels []domain.Level, n int) []domain.Level {
	if len(levels) > n {
		return levels[:n]
	}
	return levels
}
