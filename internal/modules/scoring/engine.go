// Package scoring runs the full per-timeframe analysis and folds the six
// group scores into a weighted TimeframeScore. Results are cached per
// (symbol, timeframe, last bar) and deduplicated across concurrent callers.
package scoring

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/features"
	"github.com/aristath/marketdoctor/internal/modules/indicators"
	"github.com/aristath/marketdoctor/internal/modules/market"
	"github.com/aristath/marketdoctor/internal/modules/momentum"
	"github.com/aristath/marketdoctor/internal/modules/scoring/scorers"
	"github.com/aristath/marketdoctor/internal/modules/structure"
)

// Evaluation is the full output of one scoring pass: the weighted score plus
// the diagnostics and momentum insight it was derived from. Evaluations are
// shared through the cache and must be treated as read-only.
type Evaluation struct {
	Score       domain.TimeframeScore
	Diagnostics *domain.MarketDiagnostics
	Insight     *domain.MomentumInsight // nil when too few oscillators were available
	LastBarTS   int64
}

type groupScorers struct {
	trend       *scorers.TrendScorer
	momentum    *scorers.MomentumScorer
	volume      *scorers.VolumeScorer
	volatility  *scorers.VolatilityScorer
	structure   *scorers.StructureScorer
	derivatives *scorers.DerivativesScorer
}

// Engine owns the indicator-to-score pipeline for one process. The active
// weight vector is swappable at runtime; swapping it purges the score cache.
type Engine struct {
	th  config.Thresholds
	log zerolog.Logger

	calc       *indicators.Calculator
	extractor  *features.Extractor
	structural *structure.Analyzer
	market     *market.Analyzer
	momentum   *momentum.Engine
	scorers    groupScorers

	weights atomic.Pointer[domain.GroupWeights]
	cache   *scoreCache
	flight  singleflight.Group
}

// NewEngine builds the scoring pipeline. The weight vector is validated and
// cloned; later mutation of the caller's map has no effect.
func NewEngine(th config.Thresholds, weights domain.GroupWeights, log zerolog.Logger) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("rejected scoring weights: %w", err)
	}
	e := &Engine{
		th:  th,
		log: log.With().Str("component", "scoring").Logger(),

		calc:       indicators.NewCalculator(th.MinFullBars, log),
		extractor:  features.NewExtractor(th, log),
		structural: structure.NewAnalyzer(th, log),
		market:     market.NewAnalyzer(th, log),
		momentum:   momentum.NewEngine(th, log),
		scorers: groupScorers{
			trend:       scorers.NewTrendScorer(),
			momentum:    scorers.NewMomentumScorer(th),
			volume:      scorers.NewVolumeScorer(),
			volatility:  scorers.NewVolatilityScorer(),
			structure:   scorers.NewStructureScorer(),
			derivatives: scorers.NewDerivativesScorer(),
		},

		cache: newScoreCache(th.ScoreCacheSize, th.ScoreCacheTTL),
	}
	w := weights.Clone()
	e.weights.Store(&w)
	return e, nil
}

// Weights returns a copy of the active weight vector.
func (e *Engine) Weights() domain.GroupWeights {
	return (*e.weights.Load()).Clone()
}

// SetWeights swaps the active weight vector and purges the score cache so
// no stale score survives the change.
func (e *Engine) SetWeights(weights domain.GroupWeights) error {
	if err := weights.Validate(); err != nil {
		return fmt.Errorf("rejected scoring weights: %w", err)
	}
	w := weights.Clone()
	e.weights.Store(&w)
	e.cache.purge()
	e.log.Info().Msg("active scoring weights replaced, score cache purged")
	return nil
}

// Evaluate runs the pipeline for one (symbol, timeframe) bar window.
// Identical concurrent requests share a single computation; repeated
// requests within the TTL are served from the cache.
func (e *Engine) Evaluate(symbol string, tf domain.Timeframe, bars []domain.Bar, derivs *domain.Derivatives) (*Evaluation, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to score for %s %s", symbol, tf)
	}
	key := cacheKey(symbol, tf, bars[len(bars)-1].TS)
	if ev, ok := e.cache.get(key); ok {
		return ev, nil
	}

	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this
		// call waited on the flight group.
		if ev, ok := e.cache.get(key); ok {
			return ev, nil
		}
		ev, err := e.evaluate(symbol, tf, bars, derivs)
		if err != nil {
			return nil, err
		}
		e.cache.put(key, ev)
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Evaluation), nil
}

func (e *Engine) evaluate(symbol string, tf domain.Timeframe, bars []domain.Bar, derivs *domain.Derivatives) (*Evaluation, error) {
	set, err := e.calc.Compute(bars)
	if err != nil {
		return nil, fmt.Errorf("indicator computation failed for %s %s: %w", symbol, tf, err)
	}
	feats := e.extractor.Extract(bars, set, derivs)
	strct := e.structural.Analyze(bars)
	diag := e.market.Analyze(symbol, tf, bars, set, feats, strct, derivs)
	insight := e.momentum.Assess(diag, set, feats)
	lastBar := bars[len(bars)-1]

	groups := map[domain.ScoreGroup]domain.GroupScore{
		domain.GroupTrend:       e.scorers.trend.Calculate(set, feats, lastBar.Close),
		domain.GroupMomentum:    e.scorers.momentum.Calculate(set, feats, insight),
		domain.GroupVolume:      e.scorers.volume.Calculate(set),
		domain.GroupVolatility:  e.scorers.volatility.Calculate(set, feats, lastBar.Close),
		domain.GroupStructure:   e.scorers.structure.Calculate(diag),
		domain.GroupDerivatives: e.scorers.derivatives.Calculate(feats),
	}

	weights := *e.weights.Load()
	net := 0.0
	for g, gs := range groups {
		net += gs.RawScore * weights[g]
	}
	net = math.Round(net*1000) / 1000
	long, short := domain.NormalizeNet(net)

	e.log.Debug().
		Str("symbol", symbol).
		Str("tf", string(tf)).
		Float64("net", net).
		Float64("long", long).
		Msg("timeframe scored")

	return &Evaluation{
		Score: domain.TimeframeScore{
			Timeframe:       tf,
			Regime:          diag.Phase,
			Trend:           diag.Trend,
			GroupScores:     groups,
			NetScore:        net,
			NormalizedLong:  long,
			NormalizedShort: short,
		},
		Diagnostics: diag,
		Insight:     insight,
		LastBarTS:   lastBar.TS,
	}, nil
}
