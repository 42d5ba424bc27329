package snapshots

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// BarSource supplies the bars the evaluator measures outcomes against.
// Satisfied by marketdata.SQLiteBarRepository.
type BarSource interface {
	BarsBetween(ctx context.Context, symbol string, tf domain.Timeframe, fromMS, toMS int64) ([]domain.Bar, error)
}

// Evaluator grades past snapshots against subsequent price action. For each
// horizon it measures the excursion window starting at the snapshot bar and
// writes one outcome row; horizons whose bars have not all arrived yet are
// left for a later run. Evaluation is idempotent: re-running over the same
// data writes nothing new.
type Evaluator struct {
	bars BarSource
	repo *Repository
	log  zerolog.Logger
}

// NewEvaluator creates a new outcome evaluator
func NewEvaluator(bars BarSource, repo *Repository, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		bars: bars,
		repo: repo,
		log:  log.With().Str("component", "evaluator").Logger(),
	}
}

// EvaluateRecent evaluates every snapshot matching the filter against the
// configured horizon hours and returns the number of outcome rows written.
// Per-snapshot failures are logged and skipped; only the snapshot listing
// itself can fail the run.
func (e *Evaluator) EvaluateRecent(ctx context.Context, f SnapshotFilter, horizonHours []int) (int, error) {
	snaps, err := e.repo.GetSnapshots(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots for evaluation: %w", err)
	}

	written := 0
	for i := range snaps {
		horizons := HorizonsFor(snaps[i].Timeframe, horizonHours)
		written += e.EvaluateSnapshot(ctx, snaps[i], horizons)
	}
	e.log.Info().Int("snapshots", len(snaps)).Int("outcomes_written", written).Msg("outcome evaluation pass done")
	return written, nil
}

// EvaluateSnapshot evaluates one snapshot against each horizon and returns
// the number of outcome rows written. Horizons that already have an outcome,
// or whose window has not fully elapsed, are skipped.
func (e *Evaluator) EvaluateSnapshot(ctx context.Context, snap Snapshot, horizons []Horizon) int {
	written := 0
	for _, h := range horizons {
		if h.Bars < 1 {
			continue
		}
		exists, err := e.repo.HasOutcome(ctx, snap.ID, h)
		if err != nil {
			e.warn(snap, h, err, "outcome existence check failed")
			continue
		}
		if exists {
			continue
		}

		outcome, ok, err := e.evaluateHorizon(ctx, snap, h)
		if err != nil {
			e.warn(snap, h, err, "horizon evaluation failed")
			continue
		}
		if !ok {
			continue
		}
		if err := e.repo.LogOutcome(ctx, outcome); err != nil {
			e.warn(snap, h, err, "outcome write failed")
			continue
		}
		written++
	}
	return written
}

// evaluateHorizon measures one horizon window. ok is false when the window
// has not fully elapsed in stored bars.
func (e *Evaluator) evaluateHorizon(ctx context.Context, snap Snapshot, h Horizon) (Outcome, bool, error) {
	if !snap.Timeframe.Valid() {
		return Outcome{}, false, fmt.Errorf("snapshot has unknown timeframe %q", snap.Timeframe)
	}

	// The window is the first h.Bars+1 bars at or after the snapshot bar,
	// counted by index so a gap in the series stretches the window instead
	// of losing the outcome.
	bars, err := e.bars.BarsBetween(ctx, snap.Symbol, snap.Timeframe, snap.TimestampMS, math.MaxInt64)
	if err != nil {
		return Outcome{}, false, err
	}
	if len(bars) < h.Bars+1 {
		return Outcome{}, false, nil
	}
	window := bars[:h.Bars+1]

	entry := window[0].Open
	if snap.CurrentPrice != nil && *snap.CurrentPrice > 0 {
		entry = *snap.CurrentPrice
	}

	highest := window[0].High
	lowest := window[0].Low
	for _, b := range window[1:] {
		if b.High > highest {
			highest = b.High
		}
		if b.Low < lowest {
			lowest = b.Low
		}
	}
	atHorizon := window[len(window)-1].Close

	outcome := Outcome{
		SnapshotID:     snap.ID,
		HorizonBars:    h.Bars,
		HorizonHrs:     h.Hours,
		EntryPrice:     &entry,
		PriceAtHorizon: &atHorizon,
		HighestPrice:   &highest,
		LowestPrice:    &lowest,
	}

	tp, sl := resolveLevels(snap, entry)
	if snap.Direction == domain.DirectionShort {
		outcome.HitTP = lowest <= tp
		outcome.HitSL = highest >= sl
		if risk := sl - entry; risk != 0 {
			outcome.MaxRUp = ptr((entry - lowest) / risk)
			outcome.MaxRDown = ptr((entry - highest) / risk)
			outcome.RAtHorizon = ptr((entry - atHorizon) / risk)
		}
	} else {
		outcome.HitTP = highest >= tp
		outcome.HitSL = lowest <= sl
		if risk := entry - sl; risk != 0 {
			outcome.MaxRUp = ptr((highest - entry) / risk)
			outcome.MaxRDown = ptr((lowest - entry) / risk)
			outcome.RAtHorizon = ptr((atHorizon - entry) / risk)
		}
	}
	return outcome, true, nil
}

// resolveLevels picks take-profit and stop levels from the snapshot's
// trigger fields, falling back to a 2% band around entry when the planner
// recorded none.
func resolveLevels(snap Snapshot, entry float64) (tp, sl float64) {
	if snap.Direction == domain.DirectionShort {
		tp = coalesce(snap.BearishTriggerLevel, snap.InvalidationLevel, entry*0.98)
		sl = coalesce(snap.InvalidationLevel, nil, entry*1.02)
		return tp, sl
	}
	tp = coalesce(snap.BullishTriggerLevel, snap.InvalidationLevel, entry*1.02)
	sl = coalesce(snap.InvalidationLevel, nil, entry*0.98)
	return tp, sl
}

func coalesce(a, b *float64, fallback float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return fallback
}

func (e *Evaluator) warn(snap Snapshot, h Horizon, err error, msg string) {
	e.log.Warn().
		Err(err).
		Int64("snapshot_id", snap.ID).
		Str("symbol", snap.Symbol).
		Str("timeframe", string(snap.Timeframe)).
		Int("horizon_bars", h.Bars).
		Msg(msg)
}

func ptr(v float64) *float64 { return &v }
