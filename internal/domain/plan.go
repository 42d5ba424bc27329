package domain

// PriceZone is an inclusive price band.
type PriceZone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether p falls inside the zone.
func (z PriceZone) Contains(p float64) bool {
	return p >= z.Low && p <= z.High
}

// Mid returns the zone midpoint.
func (z PriceZone) Mid() float64 {
	return (z.Low + z.High) / 2
}

// TradePlan is the strategic output of the planner: mode, suggested zones
// and levels, sizing and the skip decision. It is advisory; the engine
// never produces orders.
type TradePlan struct {
	Mode                 PlanMode     `json:"mode"`
	SmallPositionAllowed bool         `json:"small_position_allowed"`
	LimitBuyZone         *PriceZone   `json:"limit_buy_zone,omitempty"`
	AddOnBreakoutLevel   *float64     `json:"add_on_breakout_level,omitempty"`
	DontDCAAbove         *float64     `json:"dont_dca_above,omitempty"`
	InvalidationLevel    *float64     `json:"invalidation_level,omitempty"`
	SkipTrading          bool         `json:"skip_trading"`
	PositionSizeFactor   float64      `json:"position_size_factor"` // [0.3, 1.5]
	ScenarioPlaybook     string       `json:"scenario_playbook,omitempty"`
	RegimeInfo           GlobalRegime `json:"regime_info,omitempty"`
}

// SetupType composes the plan mode with the scored direction, e.g.
// "accumulation_play_long". Used as the persisted setup label.
func SetupType(mode PlanMode, dir Direction) string {
	if dir == DirectionShort {
		return string(mode) + "_short"
	}
	return string(mode) + "_long"
}
