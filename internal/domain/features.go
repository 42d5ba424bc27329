package domain

// Derivatives is a best-effort snapshot of derivatives metadata for one
// symbol. All fields are optional; providers may return any subset.
type Derivatives struct {
	FundingRate  *float64 `json:"funding_rate,omitempty"`   // fraction, e.g. 0.0001 = 0.01%
	OpenInterest *float64 `json:"open_interest,omitempty"`  // absolute OI in contracts or quote units
	OIChangePct  *float64 `json:"oi_change_pct,omitempty"`  // fraction over the provider's window
	CVD          *float64 `json:"cvd,omitempty"`            // cumulative volume delta, normalized
}

// Empty reports whether the snapshot carries no data at all.
func (d *Derivatives) Empty() bool {
	return d == nil || (d.FundingRate == nil && d.OpenInterest == nil && d.OIChangePct == nil && d.CVD == nil)
}

// Coverage returns how many of the three regime-relevant fields are present
// (funding, OI change, CVD) out of 3. Used for confidence weighting.
func (d *Derivatives) Coverage() int {
	if d == nil {
		return 0
	}
	n := 0
	if d.FundingRate != nil {
		n++
	}
	if d.OIChangePct != nil {
		n++
	}
	if d.CVD != nil {
		n++
	}
	return n
}

// FundingState is the categorical funding-rate regime.
type FundingState string

const (
	FundingExtremeLong  FundingState = "extreme_long"
	FundingLong         FundingState = "long"
	FundingNeutral      FundingState = "neutral"
	FundingShort        FundingState = "short"
	FundingExtremeShort FundingState = "extreme_short"
)

// OIState is the categorical open-interest regime.
type OIState string

const (
	OIRisingFast  OIState = "rising_fast"
	OIRising      OIState = "rising"
	OIFlat        OIState = "flat"
	OIFalling     OIState = "falling"
	OIFallingFast OIState = "falling_fast"
)

// CVDState is the categorical cumulative-volume-delta regime.
type CVDState string

const (
	CVDBuyPressure  CVDState = "buy_pressure"
	CVDNeutral      CVDState = "neutral"
	CVDSellPressure CVDState = "sell_pressure"
)

// DerivativesRegime is the discrete classification of the derivatives
// snapshot. Fields are empty strings when the underlying metric is absent.
type DerivativesRegime struct {
	Funding FundingState `json:"funding,omitempty"`
	OI      OIState      `json:"oi,omitempty"`
	CVD     CVDState     `json:"cvd,omitempty"`
}

// Divergence is a detected price-vs-indicator divergence.
type Divergence struct {
	Indicator string             `json:"indicator"`
	Side      DivergenceSide     `json:"side"`
	Strength  DivergenceStrength `json:"strength"`
}

// Weight maps the divergence strength to its signed-vote weight.
func (d Divergence) Weight() float64 {
	switch d.Strength {
	case DivergenceStrong:
		return 1.5
	case DivergenceMedium:
		return 1.0
	default:
		return 0.5
	}
}

// Features collapses the indicator series into discrete states. It is the
// input contract of the market analyzer and the scoring groups.
type Features struct {
	Trend       TrendState         `json:"trend"`
	Volatility  VolatilityState    `json:"volatility"`
	Liquidity   LiquidityState     `json:"liquidity"`
	Structure   StructureState     `json:"structure"`
	Derivatives *DerivativesRegime `json:"derivatives,omitempty"`
	Divergences []Divergence       `json:"divergences,omitempty"`
}

// DefaultFeatures is the fail-closed result for empty input: neutral
// trend, low volatility and liquidity, ranging structure.
func DefaultFeatures() Features {
	return Features{
		Trend:      TrendNeutral,
		Volatility: VolatilityLow,
		Liquidity:  LiquidityLow,
		Structure:  StructureRange,
	}
}
