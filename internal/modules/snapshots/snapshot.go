package snapshots

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/marketdoctor/internal/domain"
)

// Snapshot is one persisted diagnostics row. Pointer fields map to nullable
// columns; PerTFJSON holds the per-timeframe score map as stored.
type Snapshot struct {
	ID          int64
	Symbol      string
	Timeframe   domain.Timeframe
	TimestampMS int64

	AggregatedLong  float64
	AggregatedShort float64
	Direction       domain.Direction
	Confidence      float64
	PerTFJSON       *string

	Phase      domain.MarketPhase
	Trend      domain.TrendState
	Volatility domain.VolatilityState
	Liquidity  domain.LiquidityState
	RiskScore  *float64
	PumpScore  *float64

	NearestSupport       *float64
	NearestResistance    *float64
	DistanceToSupport    *float64
	DistanceToResistance *float64
	HasUnfilledImbalance bool
	ImbalanceDistance    *float64

	Bias                domain.Direction
	PositionR           *float64
	BullishTriggerLevel *float64
	BearishTriggerLevel *float64
	InvalidationLevel   *float64
	SetupType           string
	SetupDescription    string
	CurrentPrice        *float64
}

// PerTFScores decodes the stored per-timeframe score map. Returns nil when
// the column is empty.
func (s Snapshot) PerTFScores() (map[domain.Timeframe]domain.TimeframeScore, error) {
	if s.PerTFJSON == nil || *s.PerTFJSON == "" {
		return nil, nil
	}
	var out map[domain.Timeframe]domain.TimeframeScore
	if err := json.Unmarshal([]byte(*s.PerTFJSON), &out); err != nil {
		return nil, fmt.Errorf("failed to decode per-timeframe scores: %w", err)
	}
	return out, nil
}

// Report rebuilds the persisted projection of the original compact report.
// Fields the snapshot row does not store (the full plan body, the TL;DR)
// come back zero; archive exports carry this projection, not the original.
func (s Snapshot) Report() (domain.CompactReport, error) {
	perTF, err := s.PerTFScores()
	if err != nil {
		return domain.CompactReport{}, err
	}

	rep := domain.CompactReport{
		Symbol:     s.Symbol,
		TargetTF:   s.Timeframe,
		Timestamp:  s.TimestampMS,
		Regime:     s.Phase,
		Direction:  s.Direction,
		ScoreLong:  s.AggregatedLong,
		ScoreShort: s.AggregatedShort,
		Confidence: s.Confidence,
		SetupType:  s.SetupType,
		PerTF:      perTF,
		SMC: domain.SMCSummary{
			NearestSupport:       s.NearestSupport,
			NearestResistance:    s.NearestResistance,
			DistanceToSupport:    s.DistanceToSupport,
			DistanceToResistance: s.DistanceToResistance,
			HasUnfilledImbalance: s.HasUnfilledImbalance,
			ImbalanceDistance:    s.ImbalanceDistance,
		},
		TradeMap: domain.TradeMap{
			Plan:                domain.TradePlan{ScenarioPlaybook: s.SetupDescription},
			Bias:                s.Bias,
			BullishTriggerLevel: s.BullishTriggerLevel,
			BearishTriggerLevel: s.BearishTriggerLevel,
			InvalidationLevel:   s.InvalidationLevel,
			PositionR:           s.PositionR,
		},
		Phase:      s.Phase,
		Trend:      s.Trend,
		Volatility: s.Volatility,
		Liquidity:  s.Liquidity,
	}
	if s.RiskScore != nil {
		rep.RiskScore = *s.RiskScore
	}
	if s.PumpScore != nil {
		rep.PumpScore = *s.PumpScore
	}
	return rep, nil
}

// Outcome records how price behaved over one horizon after a snapshot.
// R metrics are nil when the risk distance degenerates to zero; the hit
// flags are always set.
type Outcome struct {
	ID          int64
	SnapshotID  int64
	HorizonBars int
	HorizonHrs  int

	EntryPrice     *float64
	PriceAtHorizon *float64
	HighestPrice   *float64
	LowestPrice    *float64
	MaxRUp         *float64
	MaxRDown       *float64
	RAtHorizon     *float64
	HitTP          bool
	HitSL          bool
}

// Horizon is one evaluation span expressed both in bars of the snapshot's
// timeframe and in wall-clock hours.
type Horizon struct {
	Bars  int
	Hours int
}

// HorizonsFor converts wall-clock horizon hours into bar-count horizons for
// tf, dropping spans shorter than one bar.
func HorizonsFor(tf domain.Timeframe, hours []int) []Horizon {
	perBar := tf.Hours()
	if perBar <= 0 {
		return nil
	}
	out := make([]Horizon, 0, len(hours))
	for _, h := range hours {
		bars := int(float64(h) / perBar)
		if bars < 1 {
			continue
		}
		out = append(out, Horizon{Bars: bars, Hours: h})
	}
	return out
}
