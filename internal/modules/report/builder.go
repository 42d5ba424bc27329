// Package report assembles the canonical CompactReport from the
// diagnostics, aggregation and planning outputs of one analytical pass.
// Reports are timestamp-invariant: the same inputs always produce the
// same report, stamped with the target bar time and never wall clock.
package report

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// Renderer turns a finished report into presentation output. No
// implementation ships here; chat and dashboard renderers live with the
// presentation layer and consume reports through this seam.
type Renderer interface {
	Render(report domain.CompactReport) (string, error)
}

// Builder assembles reports. Stateless.
type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log.With().Str("component", "report").Logger()}
}

// Build flattens one pass into a CompactReport. barTS is the open time
// of the last target-timeframe bar in Unix milliseconds.
func (b *Builder) Build(
	diag *domain.MarketDiagnostics,
	multi domain.MultiTFScore,
	plan domain.TradePlan,
	barTS int64,
) domain.CompactReport {
	r := domain.CompactReport{
		Symbol:     diag.Symbol,
		TargetTF:   multi.TargetTF,
		Timestamp:  barTS,
		Regime:     diag.Phase,
		Direction:  multi.Direction,
		ScoreLong:  multi.AggregatedLong,
		ScoreShort: multi.AggregatedShort,
		Confidence: multi.Confidence,
		SetupType:  domain.SetupType(plan.Mode, multi.Direction),
		PerTF:      multi.PerTF,
		SMC:        smcSummary(diag),
		TradeMap:   tradeMap(diag, plan, multi.Direction),

		Phase:      diag.Phase,
		Trend:      diag.Trend,
		Volatility: diag.Volatility,
		Liquidity:  diag.Liquidity,
		RiskScore:  diag.RiskScore,
		PumpScore:  diag.PumpScore,
	}
	r.TLDR = tldr(r, multi.MomentumComment)

	b.log.Debug().
		Str("symbol", r.Symbol).
		Str("timeframe", string(r.TargetTF)).
		Str("setup", r.SetupType).
		Msg("report assembled")

	return r
}

// tldr is the one-line plain rendering. Anything richer belongs to the
// presentation layer.
func tldr(r domain.CompactReport, momentumComment string) string {
	score := r.ScoreLong
	if r.Direction == domain.DirectionShort {
		score = r.ScoreShort
	}

	s := fmt.Sprintf("%s %s: %s, %s %.1f/10 at %.2f confidence, %s",
		r.Symbol, r.TargetTF, r.Phase, r.Direction, score, r.Confidence, r.SetupType)
	if momentumComment != "" {
		s += ", " + momentumComment
	}
	switch {
	case r.TradeMap.Plan.SkipTrading:
		s += ", skip trading"
	case r.TradeMap.Plan.SmallPositionAllowed:
		s += ", small size ok"
	}
	return s
}

// smcSummary flattens the structural context around the last close.
// Distances are fractions of price so they compare across symbols.
func smcSummary(diag *domain.MarketDiagnostics) domain.SMCSummary {
	var out domain.SMCSummary
	if diag.SMC != nil {
		out.CurrentPosition = diag.SMC.CurrentPosition
	}

	price, ok := diag.Metric(domain.MetricClose)
	if !ok || price <= 0 {
		return out
	}

	if s := nearestSupportBelow(diag.KeyLevels, price); s != nil {
		out.NearestSupport = domain.Float64Ptr(s.Price)
		out.DistanceToSupport = domain.Float64Ptr((price - s.Price) / price)
	}
	if r := nearestResistanceAbove(diag.KeyLevels, price); r != nil {
		out.NearestResistance = domain.Float64Ptr(r.Price)
		out.DistanceToResistance = domain.Float64Ptr((r.Price - price) / price)
	}

	if diag.SMC != nil {
		nearest := math.MaxFloat64
		for _, f := range diag.SMC.FVGs {
			if f.Filled {
				continue
			}
			out.HasUnfilledImbalance = true
			mid := (f.Low + f.High) / 2
			if d := math.Abs(price-mid) / price; d < nearest {
				nearest = d
			}
		}
		if out.HasUnfilledImbalance {
			out.ImbalanceDistance = domain.Float64Ptr(nearest)
		}
	}
	return out
}

// tradeMap pairs the plan with the trigger levels outcome evaluation
// measures against. The bullish trigger is the breakout add-on; the
// bearish trigger is the nearest downside liquidity or support.
func tradeMap(diag *domain.MarketDiagnostics, plan domain.TradePlan, bias domain.Direction) domain.TradeMap {
	tm := domain.TradeMap{
		Plan:                plan,
		Bias:                bias,
		BullishTriggerLevel: plan.AddOnBreakoutLevel,
		InvalidationLevel:   plan.InvalidationLevel,
	}

	price, ok := diag.Metric(domain.MetricClose)
	if !ok || price <= 0 {
		return tm
	}
	if diag.SMC != nil {
		if pool := nearestLevelBelow(diag.SMC.LiquidityBelow, price); pool != nil {
			tm.BearishTriggerLevel = domain.Float64Ptr(pool.Price)
			return tm
		}
	}
	if s := nearestSupportBelow(diag.KeyLevels, price); s != nil {
		tm.BearishTriggerLevel = domain.Float64Ptr(s.Price)
	}
	return tm
}

func nearestSupportBelow(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Kind != domain.LevelSupport || lvl.Price >= price {
			continue
		}
		if best == nil || lvl.Price > best.Price {
			best = lvl
		}
	}
	return best
}

func nearestResistanceAbove(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Kind != domain.LevelResistance || lvl.Price <= price {
			continue
		}
		if best == nil || lvl.Price < best.Price {
			best = lvl
		}
	}
	return best
}

func nearestLevelBelow(levels []domain.Level, price float64) *domain.Level {
	var best *domain.Level
	for i := range levels {
		lvl := &levels[i]
		if lvl.Price >= price {
			continue
		}
		if best == nil || lvl.Price > best.Price {
			best = lvl
		}
	}
	return best
}
