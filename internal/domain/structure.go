package domain

// Level is a clustered structural price level with a [0,1] strength.
type Level struct {
	Price     float64   `json:"price"`
	Kind      LevelKind `json:"kind"`
	Strength  float64   `json:"strength"`
	Touches   int       `json:"touches"`
	TimeFirst int64     `json:"time_first"`
	TimeLast  int64     `json:"time_last"`
}

// StructureEvent records a break of structure or change of character.
type StructureEvent struct {
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Index     int       `json:"index"`
	TS        int64     `json:"ts"`
	Strength  float64   `json:"strength"`
}

// OrderBlock is the last counter-direction high-volume candle before a
// break of structure. Demand blocks sit below price, supply blocks above.
type OrderBlock struct {
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Index       int     `json:"index"`
	TS          int64   `json:"ts"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// FVG is a fair-value gap: a price range skipped between two
// non-overlapping bars around a displacement candle.
type FVG struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Bullish bool    `json:"bullish"`
	Index   int     `json:"index"`
	TS      int64   `json:"ts"`
	Filled  bool    `json:"filled"`
}

// SMCContext is the smart-money-concepts view of one timeframe.
type SMCContext struct {
	LastBOS           *StructureEvent `json:"last_bos,omitempty"`
	LastCHOCH         *StructureEvent `json:"last_choch,omitempty"`
	LiquidityAbove    []Level         `json:"liquidity_above,omitempty"`
	LiquidityBelow    []Level         `json:"liquidity_below,omitempty"`
	OrderBlocksDemand []OrderBlock    `json:"order_blocks_demand,omitempty"`
	OrderBlocksSupply []OrderBlock    `json:"order_blocks_supply,omitempty"`
	FVGs              []FVG           `json:"fvgs,omitempty"`
	PremiumZoneStart  *float64        `json:"premium_zone_start,omitempty"`
	DiscountZoneEnd   *float64        `json:"discount_zone_end,omitempty"`
	CurrentPosition   ZonePosition    `json:"current_position,omitempty"`
}

// PriceLeg is one swing-to-swing move.
type PriceLeg struct {
	Direction Direction `json:"direction"`
	StartIdx  int       `json:"start_idx"`
	EndIdx    int       `json:"end_idx"`
	LengthPct float64   `json:"length_pct"`
	IsImpulse bool      `json:"is_impulse"`
}

// LegsSummary condenses the analyzed legs for reporting.
type LegsSummary struct {
	Count        int       `json:"count"`
	ImpulseCount int       `json:"impulse_count"`
	LastLeg      *PriceLeg `json:"last_leg,omitempty"`
	AvgLengthPct float64   `json:"avg_length_pct"`
}

// FibAnalysis holds retracement and extension levels anchored on the last
// swing pair. Levels map ratio name (e.g. "0.618") to price.
type FibAnalysis struct {
	AnchorLow    float64            `json:"anchor_low"`
	AnchorHigh   float64            `json:"anchor_high"`
	Upleg        bool               `json:"upleg"`
	Retracements map[string]float64 `json:"retracements"`
	Extensions   map[string]float64 `json:"extensions"`
}

// ElliottGuess is a best-effort Elliott-wave labelling. Pattern is
// "unknown" when the pivot structure fits nothing; confidence is [0,1].
type ElliottGuess struct {
	Pattern     string  `json:"pattern"`
	CurrentWave int     `json:"current_wave"`
	Confidence  float64 `json:"confidence"`
}
