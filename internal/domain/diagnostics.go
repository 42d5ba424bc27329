package domain

// MarketDiagnostics is the per-timeframe synthesis of features and
// structure: phase, risk/pump indices and a confidence estimate.
// RiskScore and PumpScore are independent indices; they do not sum to 1.
type MarketDiagnostics struct {
	Symbol     string          `json:"symbol"`
	Timeframe  Timeframe       `json:"timeframe"`
	Phase      MarketPhase     `json:"phase"`
	Trend      TrendState      `json:"trend"`
	Volatility VolatilityState `json:"volatility"`
	Liquidity  LiquidityState  `json:"liquidity"`
	RiskScore  float64         `json:"risk_score"`  // [0,1] adverse conditions
	PumpScore  float64         `json:"pump_score"`  // [0,1] favorable conditions
	Confidence float64         `json:"confidence"`  // [0,1]

	KeyLevels   []Level       `json:"key_levels,omitempty"`
	SMC         *SMCContext   `json:"smc_context,omitempty"`
	Legs        *LegsSummary  `json:"legs_summary,omitempty"`
	Fibonacci   *FibAnalysis  `json:"fibonacci_analysis,omitempty"`
	ElliottWave *ElliottGuess `json:"elliott_waves,omitempty"`

	// ExtraMetrics carries the latest raw indicator values downstream
	// (close, atr, vwap, emas, bollinger bands, volume spike ratio).
	ExtraMetrics map[string]float64 `json:"extra_metrics,omitempty"`
}

// MetricClose is the ExtraMetrics key of the last close price.
const MetricClose = "close"

// Metric returns an extra metric by name and whether it is present.
func (d *MarketDiagnostics) Metric(name string) (float64, bool) {
	if d.ExtraMetrics == nil {
		return 0, false
	}
	v, ok := d.ExtraMetrics[name]
	return v, ok
}

// MomentumInsight classifies the oscillator ensemble. A nil insight means
// fewer than two oscillators were available.
type MomentumInsight struct {
	Bias       MomentumBias       `json:"bias"`
	Regime     MomentumRegime     `json:"regime"`
	Strength   float64            `json:"strength"`   // [0,1]
	Confidence float64            `json:"confidence"` // [0,1]
	Details    map[string]float64 `json:"details,omitempty"`
}
