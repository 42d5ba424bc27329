// Package runner orchestrates one diagnostic run: every configured symbol in
// parallel, every timeframe scored sequentially within a symbol, one snapshot
// persisted per (symbol, target timeframe). A failed timeframe skips that
// timeframe and a failed symbol skips that symbol; the run itself never
// aborts on per-item errors.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/anomaly"
	"github.com/aristath/marketdoctor/internal/modules/marketdata"
	"github.com/aristath/marketdoctor/internal/modules/multitf"
	"github.com/aristath/marketdoctor/internal/modules/planning"
	"github.com/aristath/marketdoctor/internal/modules/report"
	"github.com/aristath/marketdoctor/internal/modules/scoring"
)

// SnapshotWriter persists one report. Satisfied by snapshots.Repository.
type SnapshotWriter interface {
	LogSnapshot(ctx context.Context, report domain.CompactReport, currentPrice *float64) (int64, error)
}

// Deps are the runner's collaborators. Bars, Engine and Snapshots are
// required; Derivs, Prices and Detector may be nil and their concerns are
// then skipped.
type Deps struct {
	Bars      marketdata.BarRepository
	Derivs    marketdata.DerivativesProvider
	Prices    marketdata.PriceSource
	Engine    *scoring.Engine
	Snapshots SnapshotWriter
	Detector  *anomaly.Detector
}

// Summary describes one finished run.
type Summary struct {
	RunID     string
	Duration  time.Duration
	Symbols   int
	Snapshots int
	Alerts    int
	Failures  int // target passes that produced no snapshot
}

type symbolResult struct {
	snapshots int
	alerts    int
	failures  int
}

// Runner drives the full pipeline for all configured symbols.
type Runner struct {
	cfg     *config.Config
	deps    Deps
	agg     *multitf.Aggregator
	planner *planning.Planner
	builder *report.Builder
	log     zerolog.Logger
}

// New validates the dependency set and builds the per-run collaborators
// from the configured thresholds.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("runner needs a configuration")
	}
	if deps.Bars == nil || deps.Engine == nil || deps.Snapshots == nil {
		return nil, fmt.Errorf("runner needs a bar repository, a scoring engine and a snapshot writer")
	}
	return &Runner{
		cfg:     cfg,
		deps:    deps,
		agg:     multitf.NewAggregator(cfg.Thresholds, log),
		planner: planning.NewPlanner(cfg.Thresholds, log),
		builder: report.NewBuilder(log),
		log:     log.With().Str("component", "runner").Logger(),
	}, nil
}

// Run executes one diagnostic pass over all configured symbols and returns
// counters for logging and tests. Per-symbol work runs in parallel up to
// MaxParallel; the whole run is bounded by RunTimeoutSec.
func (r *Runner) Run(ctx context.Context) Summary {
	if r.cfg.RunTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.RunTimeoutSec)*time.Second)
		defer cancel()
	}

	runID := uuid.New().String()
	log := r.log.With().Str("run_id", runID).Logger()
	started := time.Now()

	results := make([]symbolResult, len(r.cfg.Symbols))
	var g errgroup.Group
	g.SetLimit(r.cfg.MaxParallel)
	for i, symbol := range r.cfg.Symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			results[i] = r.diagnoseSymbol(ctx, log, symbol)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{
		RunID:    runID,
		Duration: time.Since(started),
		Symbols:  len(r.cfg.Symbols),
	}
	for _, res := range results {
		sum.Snapshots += res.snapshots
		sum.Alerts += res.alerts
		sum.Failures += res.failures
	}

	log.Info().
		Int("symbols", sum.Symbols).
		Int("snapshots", sum.Snapshots).
		Int("alerts", sum.Alerts).
		Int("failures", sum.Failures).
		Dur("took", sum.Duration).
		Msg("diagnostic run done")
	return sum
}

// diagnoseSymbol scores every configured timeframe once and then produces a
// snapshot per target timeframe. Timeframes without bars or with a failed
// evaluation drop out; targets that cannot be aggregated count as failures.
func (r *Runner) diagnoseSymbol(ctx context.Context, log zerolog.Logger, symbol string) symbolResult {
	var res symbolResult

	derivs := r.derivatives(ctx, log, symbol)

	barsByTF := make(map[domain.Timeframe][]domain.Bar, len(r.cfg.Timeframes))
	evals := make(map[domain.Timeframe]*scoring.Evaluation, len(r.cfg.Timeframes))
	perTF := make(map[domain.Timeframe]domain.TimeframeScore, len(r.cfg.Timeframes))

	for _, tf := range r.cfg.Timeframes {
		bars, err := r.deps.Bars.LastN(ctx, symbol, tf, r.cfg.BarWindow)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
				Msg("bar fetch failed, timeframe skipped")
			continue
		}
		if len(bars) == 0 {
			continue
		}
		barsByTF[tf] = bars

		ev, err := r.deps.Engine.Evaluate(symbol, tf, bars, derivs)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
				Msg("scoring failed, timeframe skipped")
			continue
		}
		evals[tf] = ev
		perTF[tf] = ev.Score
	}

	if len(evals) == 0 {
		log.Warn().Str("symbol", symbol).Msg("no scorable timeframes, symbol skipped")
		res.failures = len(r.cfg.TargetTimeframes)
		return res
	}

	price := r.currentPrice(ctx, log, symbol, barsByTF)

	for _, target := range r.cfg.TargetTimeframes {
		ev, ok := evals[target]
		if !ok {
			log.Warn().Str("symbol", symbol).Str("timeframe", string(target)).
				Msg("target timeframe not scored, snapshot skipped")
			res.failures++
			continue
		}

		multi, err := r.agg.Aggregate(perTF, target, ev.Insight)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(target)).
				Msg("aggregation failed, snapshot skipped")
			res.failures++
			continue
		}

		plan := r.planner.Plan(ev.Diagnostics, barsByTF[target], r.cfg.GlobalRegime, ev.Insight)
		rep := r.builder.Build(ev.Diagnostics, multi, plan, ev.LastBarTS)

		if _, err := r.deps.Snapshots.LogSnapshot(ctx, rep, price); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Str("timeframe", string(target)).
				Msg("snapshot persistence failed")
			res.failures++
			continue
		}
		res.snapshots++

		if r.deps.Detector != nil {
			res.alerts += len(r.deps.Detector.Check(ctx, rep, derivs))
		}
	}
	return res
}

// derivatives is best-effort: a failed or missing feed degrades the pass,
// it never blocks it.
func (r *Runner) derivatives(ctx context.Context, log zerolog.Logger, symbol string) *domain.Derivatives {
	if r.deps.Derivs == nil {
		return nil
	}
	d, err := r.deps.Derivs.GetDerivatives(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("derivatives fetch failed, proceeding without")
		return nil
	}
	return d
}

// currentPrice tries the spot source first and falls back to the last close
// of the 1h series. A nil result leaves the snapshot without a price and the
// outcome evaluator will use the entry bar open instead.
func (r *Runner) currentPrice(ctx context.Context, log zerolog.Logger, symbol string, barsByTF map[domain.Timeframe][]domain.Bar) *float64 {
	if r.deps.Prices != nil {
		p, err := r.deps.Prices.SpotPrice(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("spot price fetch failed, falling back to last close")
		} else if p != nil && *p > 0 {
			return p
		}
	}
	if bars := barsByTF[domain.TF1h]; len(bars) > 0 {
		last := bars[len(bars)-1].Close
		return &last
	}
	return nil
}
