// Package domain holds the core value types of the diagnostics engine:
// OHLCV bars, discrete market features, structural objects, per-timeframe
// diagnostics and scores, trade plans and the compact report. The types
// here are pure data; behavior lives in the modules that produce them.
package domain

import (
	"fmt"
)

// Bar is one OHLCV record. TS is the bar open time in Unix milliseconds.
// Volume is optional; a nil volume means the venue did not report one,
// and every consumer must handle that explicitly.
type Bar struct {
	TS     int64    `json:"ts"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume,omitempty"`
}

// HasVolume reports whether the bar carries a volume figure.
func (b Bar) HasVolume() bool {
	return b.Volume != nil
}

// Vol returns the bar volume or 0 when absent.
func (b Bar) Vol() float64 {
	if b.Volume == nil {
		return 0
	}
	return *b.Volume
}

// ValidateBars checks the ingest invariants: strictly ascending timestamps
// and OHLC consistency (low <= min(open,close) <= max(open,close) <= high).
// Malformed input is rejected at the repository boundary so it never
// reaches the analytical pipeline.
func ValidateBars(bars []Bar) error {
	var prevTS int64
	for i, b := range bars {
		if i > 0 && b.TS <= prevTS {
			return fmt.Errorf("bar %d: timestamp %d not strictly ascending (prev %d)", i, b.TS, prevTS)
		}
		prevTS = b.TS

		lo, hi := b.Open, b.Close
		if lo > hi {
			lo, hi = hi, lo
		}
		if b.Low > lo || hi > b.High {
			return fmt.Errorf("bar %d (ts %d): OHLC invariant violated: low=%.8f open=%.8f close=%.8f high=%.8f",
				i, b.TS, b.Low, b.Open, b.Close, b.High)
		}
	}
	return nil
}

// Closes extracts the close series from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Opens extracts the open series from bars.
func Opens(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Open
	}
	return out
}

// Highs extracts the high series from bars.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low series from bars.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume series from bars, substituting 0 where a
// bar has none. The second return reports whether any bar had volume.
func Volumes(bars []Bar) ([]float64, bool) {
	out := make([]float64, len(bars))
	any := false
	for i, b := range bars {
		if b.Volume != nil {
			out[i] = *b.Volume
			any = true
		}
	}
	return out, any
}

// Float64Ptr returns a pointer to v. Convenience for optional fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
