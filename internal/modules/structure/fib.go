package structure

import (
	"github.com/aristath/marketdoctor/internal/domain"
)

var (
	fibRetracements = []struct {
		name  string
		ratio float64
	}{
		{"0", 0}, {"0.236", 0.236}, {"0.382", 0.382}, {"0.5", 0.5},
		{"0.618", 0.618}, {"0.786", 0.786}, {"1.0", 1.0},
	}
	fibExtensions = []struct {
		name  string
		ratio float64
	}{
		{"1.272", 1.272}, {"1.618", 1.618}, {"2.0", 2.0}, {"2.618", 2.618},
	}
)

// fibAnalysis anchors retracement and extension grids on the last swing
// pair. An up leg measures retracements down from the high and extensions
// beyond it; a down leg mirrors that.
func fibAnalysis(swings []Swing) *domain.FibAnalysis {
	seq := alternate(swings)
	if len(seq) < 2 {
		return nil
	}

	from, to := seq[len(seq)-2], seq[len(seq)-1]
	upleg := to.Price > from.Price

	lo, hi := from.Price, to.Price
	if !upleg {
		lo, hi = to.Price, from.Price
	}
	span := hi - lo
	if span <= 0 {
		return nil
	}

	retr := make(map[string]float64, len(fibRetracements))
	ext := make(map[string]float64, len(fibExtensions))
	if upleg {
		for _, f := range fibRetracements {
			retr[f.name] = hi - f.ratio*span
		}
		for _, f := range fibExtensions {
			ext[f.name] = lo + f.ratio*span
		}
	} else {
		for _, f := range fibRetracements {
			retr[f.name] = lo + f.ratio*span
		}
		for _, f := range fibExtensions {
			ext[f.name] = hi - f.ratio*span
		}
	}

	return &domain.FibAnalysis{
		AnchorLow:    lo,
		AnchorHigh:   hi,
		Upleg:        upleg,
		Retracements: retr,
		Extensions:   ext,
	}
}

// elliottGuess is a best-effort wave count over the last five to nine
// alternating pivots. It scores the three classic impulse rules (wave 2
// holds above the origin, wave 3 is not the shortest, wave 4 does not
// overlap wave 1) and reports the fraction satisfied as confidence. Too few
// pivots yields "unknown" with zero confidence.
func elliottGuess(swings []Swing) *domain.ElliottGuess {
	seq := alternate(swings)
	if len(seq) > 9 {
		seq = seq[len(seq)-9:]
	}
	if len(seq) < 5 {
		return &domain.ElliottGuess{Pattern: "unknown", CurrentWave: 0, Confidence: 0}
	}

	// Keep at most six pivots: the origin plus five wave ends.
	if len(seq) > 6 {
		seq = seq[len(seq)-6:]
	}
	legCount := len(seq) - 1
	up := seq[1].Price > seq[0].Price

	legLen := func(i int) float64 {
		d := seq[i+1].Price - seq[i].Price
		if d < 0 {
			d = -d
		}
		return d
	}

	rules, satisfied := 0, 0

	// wave 2 must not retrace past the wave 1 origin
	if legCount >= 2 {
		rules++
		if (up && seq[2].Price > seq[0].Price) || (!up && seq[2].Price < seq[0].Price) {
			satisfied++
		}
	}
	// wave 3 must not be the shortest impulse wave
	if legCount >= 3 {
		rules++
		w3 := legLen(2)
		shortest := w3 >= legLen(0)
		if legCount >= 5 {
			shortest = shortest && w3 >= legLen(4)
		}
		if shortest {
			satisfied++
		}
	}
	// wave 4 must not overlap wave 1 territory
	if legCount >= 4 {
		rules++
		if (up && seq[4].Price > seq[1].Price) || (!up && seq[4].Price < seq[1].Price) {
			satisfied++
		}
	}

	confidence := 0.0
	if rules > 0 {
		confidence = float64(satisfied) / float64(rules)
	}

	pattern := "unknown"
	switch {
	case confidence >= 0.5 && up:
		pattern = "impulse_up"
	case confidence >= 0.5 && !up:
		pattern = "impulse_down"
	case legCount == 3:
		pattern = "corrective"
		confidence = 0.3
	}

	wave := legCount
	if wave > 5 {
		wave = 5
	}
	return &domain.ElliottGuess{
		Pattern:     pattern,
		CurrentWave: wave,
		Confidence:  confidence,
	}
}
