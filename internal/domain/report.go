package domain

// SMCSummary flattens the structural context around the current price for
// persistence and outcome evaluation. Distances are fractions of price.
type SMCSummary struct {
	NearestSupport       *float64     `json:"nearest_support,omitempty"`
	NearestResistance    *float64     `json:"nearest_resistance,omitempty"`
	DistanceToSupport    *float64     `json:"distance_to_support,omitempty"`
	DistanceToResistance *float64     `json:"distance_to_resistance,omitempty"`
	HasUnfilledImbalance bool         `json:"has_unfilled_imbalance"`
	ImbalanceDistance    *float64     `json:"imbalance_distance,omitempty"`
	CurrentPosition      ZonePosition `json:"current_position,omitempty"`
}

// TradeMap carries the plan plus the trigger levels the outcome evaluator
// measures against.
type TradeMap struct {
	Plan                TradePlan `json:"plan"`
	Bias                Direction `json:"bias"`
	BullishTriggerLevel *float64  `json:"bullish_trigger_level,omitempty"`
	BearishTriggerLevel *float64  `json:"bearish_trigger_level,omitempty"`
	InvalidationLevel   *float64  `json:"invalidation_level,omitempty"`
	PositionR           *float64  `json:"position_r,omitempty"`
}

// CompactReport is the canonical serializable snapshot of one analytical
// pass for one (symbol, target timeframe). Given identical inputs the
// builder produces an identical report; the timestamp is the target bar
// time, never wall-clock.
type CompactReport struct {
	Symbol     string                       `json:"symbol"`
	TargetTF   Timeframe                    `json:"target_tf"`
	Timestamp  int64                        `json:"timestamp"` // bar open, Unix ms
	Regime     MarketPhase                  `json:"regime"`
	Direction  Direction                    `json:"direction"`
	ScoreLong  float64                      `json:"score_long"`
	ScoreShort float64                      `json:"score_short"`
	Confidence float64                      `json:"confidence"`
	SetupType  string                       `json:"setup_type"`
	PerTF      map[Timeframe]TimeframeScore `json:"per_tf"`
	SMC        SMCSummary                   `json:"smc"`
	TradeMap   TradeMap                     `json:"trade_map"`
	TLDR       string                       `json:"tl_dr"`

	// Diagnostic states of the target timeframe, flattened for persistence.
	Phase      MarketPhase     `json:"phase"`
	Trend      TrendState      `json:"trend"`
	Volatility VolatilityState `json:"volatility"`
	Liquidity  LiquidityState  `json:"liquidity"`
	RiskScore  float64         `json:"risk_score"`
	PumpScore  float64         `json:"pump_score"`
}
