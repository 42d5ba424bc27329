package calibration

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
	"github.com/aristath/marketdoctor/pkg/formulas"
)

const (
	minBucketSamples = 10
	minPairSamples   = 10

	corrBoostAbove = 0.3
	corrCutBelow   = -0.1
	weightBoost    = 1.2
	weightCap      = 0.35
	weightCut      = 0.8
	weightFloor    = 0.05

	strongWinRate    = 0.6
	thresholdStrong  = 6.0
	thresholdExtreme = 7.5
)

// scoreBuckets partition the 0-10 aggregated scale. Half-open bands; the
// last band takes everything from its floor up.
var scoreBuckets = []struct {
	name   string
	lo, hi float64
}{
	{"weak", 0, 4},
	{"moderate", 4, 6},
	{"strong", 6, 8},
	{"extreme", 8, 10},
}

// BucketStat summarizes realized R behaviour inside one score band for one
// direction. Rates are fractions of Count.
type BucketStat struct {
	Bucket      string  `json:"bucket"`
	Lo          float64 `json:"lo"`
	Hi          float64 `json:"hi"`
	Count       int     `json:"count"`
	AvgR        float64 `json:"avg_r"`
	WinRate     float64 `json:"win_rate"`  // r_at_horizon >= 1
	LossRate    float64 `json:"loss_rate"` // r_at_horizon <= -1
	AvgMaxRUp   float64 `json:"avg_max_r_up"`
	AvgMaxRDown float64 `json:"avg_max_r_down"`
}

// GroupCorrelation is the Pearson link between a group's raw score and the
// realized R, over direction-agreeing snapshots.
type GroupCorrelation struct {
	Group       domain.ScoreGroup `json:"group"`
	Pairs       int               `json:"pairs"`
	Correlation float64           `json:"correlation"`
}

// Report is the outcome of one calibration pass over a single horizon.
type Report struct {
	Horizon          snapshots.Horizon                      `json:"horizon"`
	Samples          int                                    `json:"samples"`
	Buckets          map[domain.Direction][]BucketStat      `json:"buckets"`
	Correlations     map[domain.ScoreGroup]GroupCorrelation `json:"correlations"`
	Recommended      domain.GroupWeights                    `json:"recommended_weights"`
	StrongThresholds map[domain.Direction]float64           `json:"strong_thresholds"`
}

// OutcomeSource feeds the analyzer snapshot/outcome pairs per horizon.
// Satisfied by snapshots.Repository.
type OutcomeSource interface {
	JoinedOutcomes(ctx context.Context, h snapshots.Horizon, limit int) ([]snapshots.SnapshotOutcome, error)
}

// Analyzer turns persisted outcomes into bucket statistics, group
// correlations, weight recommendations and per-direction score thresholds.
type Analyzer struct {
	source OutcomeSource
	log    zerolog.Logger
}

// NewAnalyzer creates a new calibration analyzer
func NewAnalyzer(source OutcomeSource, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		source: source,
		log:    log.With().Str("component", "calibration").Logger(),
	}
}

// Analyze loads up to limit evaluated outcomes for the horizon and computes
// the calibration report against the current weight vector. Buckets under
// the minimum sample count and groups under the minimum pair count are left
// out rather than reported on thin evidence.
func (a *Analyzer) Analyze(ctx context.Context, h snapshots.Horizon, limit int, current domain.GroupWeights) (*Report, error) {
	pairs, err := a.source.JoinedOutcomes(ctx, h, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration samples: %w", err)
	}

	report := &Report{
		Horizon:      h,
		Samples:      len(pairs),
		Buckets:      bucketStats(pairs),
		Correlations: groupCorrelations(pairs),
	}
	report.Recommended = recommendWeights(current, report.Correlations)
	report.StrongThresholds = strongThresholds(report.Buckets)

	a.log.Info().
		Int("horizon_bars", h.Bars).
		Int("samples", len(pairs)).
		Int("correlated_groups", len(report.Correlations)).
		Msg("calibration pass done")
	return report, nil
}

func bucketIndex(score float64) int {
	for i, b := range scoreBuckets[:len(scoreBuckets)-1] {
		if score < b.hi {
			return i
		}
	}
	return len(scoreBuckets) - 1
}

type bucketAcc struct {
	rs, ups, downs []float64
}

func newBucketAccs() []*bucketAcc {
	byBucket := make([]*bucketAcc, len(scoreBuckets))
	for i := range byBucket {
		byBucket[i] = &bucketAcc{}
	}
	return byBucket
}

func bucketStats(pairs []snapshots.SnapshotOutcome) map[domain.Direction][]BucketStat {
	accs := map[domain.Direction][]*bucketAcc{
		domain.DirectionLong:  newBucketAccs(),
		domain.DirectionShort: newBucketAccs(),
	}

	for _, p := range pairs {
		o := p.Outcome
		if o.RAtHorizon == nil || o.MaxRUp == nil || o.MaxRDown == nil {
			continue
		}
		dir := p.Snapshot.Direction
		byBucket, ok := accs[dir]
		if !ok {
			continue
		}
		score := p.Snapshot.AggregatedLong
		if dir == domain.DirectionShort {
			score = p.Snapshot.AggregatedShort
		}
		b := byBucket[bucketIndex(score)]
		b.rs = append(b.rs, *o.RAtHorizon)
		b.ups = append(b.ups, *o.MaxRUp)
		b.downs = append(b.downs, *o.MaxRDown)
	}

	out := make(map[domain.Direction][]BucketStat, len(accs))
	for dir, byBucket := range accs {
		var stats []BucketStat
		for i, b := range byBucket {
			n := len(b.rs)
			if n < minBucketSamples {
				continue
			}
			wins, losses := 0, 0
			for _, r := range b.rs {
				if r >= 1 {
					wins++
				}
				if r <= -1 {
					losses++
				}
			}
			stats = append(stats, BucketStat{
				Bucket:      scoreBuckets[i].name,
				Lo:          scoreBuckets[i].lo,
				Hi:          scoreBuckets[i].hi,
				Count:       n,
				AvgR:        formulas.Mean(b.rs),
				WinRate:     float64(wins) / float64(n),
				LossRate:    float64(losses) / float64(n),
				AvgMaxRUp:   formulas.Mean(b.ups),
				AvgMaxRDown: formulas.Mean(b.downs),
			})
		}
		if stats != nil {
			out[dir] = stats
		}
	}
	return out
}

// groupCorrelations pairs each group's raw score with realized R, keeping
// only snapshots where the group pointed the way the snapshot traded. SHORT
// pairs enter with the score magnitude so both directions correlate
// "conviction vs payoff".
func groupCorrelations(pairs []snapshots.SnapshotOutcome) map[domain.ScoreGroup]GroupCorrelation {
	xs := make(map[domain.ScoreGroup][]float64)
	ys := make(map[domain.ScoreGroup][]float64)

	for _, p := range pairs {
		if p.Outcome.RAtHorizon == nil {
			continue
		}
		perTF, err := p.Snapshot.PerTFScores()
		if err != nil || perTF == nil {
			continue
		}
		ts, ok := perTF[p.Snapshot.Timeframe]
		if !ok {
			continue
		}
		short := p.Snapshot.Direction == domain.DirectionShort

		for _, g := range domain.ScoreGroups() {
			gs, ok := ts.GroupScores[g]
			if !ok {
				continue
			}
			raw := gs.RawScore
			if short {
				if raw >= 0 {
					continue
				}
				raw = -raw
			} else if raw <= 0 {
				continue
			}
			xs[g] = append(xs[g], raw)
			ys[g] = append(ys[g], *p.Outcome.RAtHorizon)
		}
	}

	out := make(map[domain.ScoreGroup]GroupCorrelation)
	for _, g := range domain.ScoreGroups() {
		x := xs[g]
		if len(x) < minPairSamples {
			continue
		}
		corr := formulas.Correlation(x, ys[g])
		if math.IsNaN(corr) {
			continue
		}
		out[g] = GroupCorrelation{Group: g, Pairs: len(x), Correlation: corr}
	}
	return out
}

// recommendWeights applies the correlation rules to the current vector and
// renormalizes so the result can be saved as-is.
func recommendWeights(current domain.GroupWeights, corrs map[domain.ScoreGroup]GroupCorrelation) domain.GroupWeights {
	if len(current) == 0 {
		current = domain.DefaultGroupWeights()
	}
	rec := current.Clone()

	changed := false
	for _, g := range domain.ScoreGroups() {
		c, ok := corrs[g]
		if !ok {
			continue
		}
		w, ok := rec[g]
		if !ok {
			continue
		}
		switch {
		case c.Correlation > corrBoostAbove:
			rec[g] = math.Min(w*weightBoost, weightCap)
			changed = true
		case c.Correlation < corrCutBelow:
			rec[g] = math.Max(w*weightCut, weightFloor)
			changed = true
		}
	}
	if !changed {
		return rec
	}

	sum := 0.0
	for _, g := range domain.ScoreGroups() {
		sum += rec[g]
	}
	if sum <= 0 {
		return current.Clone()
	}
	for _, g := range domain.ScoreGroups() {
		rec[g] = round4(rec[g] / sum)
	}
	return rec
}

// strongThresholds picks the per-direction score above which a reading
// counts as strong. A proven strong bucket keeps the 6.0 floor; otherwise
// the bar moves up toward the extreme band.
func strongThresholds(buckets map[domain.Direction][]BucketStat) map[domain.Direction]float64 {
	out := make(map[domain.Direction]float64, 2)
	for _, dir := range []domain.Direction{domain.DirectionLong, domain.DirectionShort} {
		th := thresholdExtreme
		for _, b := range buckets[dir] {
			if b.Bucket == "strong" && b.WinRate >= strongWinRate {
				th = thresholdStrong
			}
		}
		out[dir] = th
	}
	return out
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
