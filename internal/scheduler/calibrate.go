package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/calibration"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

// diagnoseRunsPerDay approximates the default half-hour scoring cadence and
// turns the lookback window into a row budget for the newest-first outcome
// feed.
const diagnoseRunsPerDay = 48

// CalibrateJob recomputes bucket statistics and weight recommendations from
// graded outcomes. Every (target timeframe, horizon) pair is analyzed and
// logged; the first pair is the primary one and only its recommendation is
// eligible for automatic activation.
type CalibrateJob struct {
	analyzer     *calibration.Analyzer
	weights      *calibration.WeightsRepository
	engine       calibration.ScoreEngine
	targetTFs    []domain.Timeframe
	horizonHours []int
	symbols      int
	autoApply    bool
	minSamples   int
	lookbackDays int
	log          zerolog.Logger
}

// CalibrateConfig holds the calibrate job collaborators and tuning.
type CalibrateConfig struct {
	Analyzer         *calibration.Analyzer
	Weights          *calibration.WeightsRepository
	Engine           calibration.ScoreEngine
	TargetTimeframes []domain.Timeframe
	HorizonHours     []int
	Symbols          int
	AutoApply        bool
	MinSamples       int
	LookbackDays     int
	Log              zerolog.Logger
}

// NewCalibrateJob creates a new calibration job
func NewCalibrateJob(cfg CalibrateConfig) *CalibrateJob {
	return &CalibrateJob{
		analyzer:     cfg.Analyzer,
		weights:      cfg.Weights,
		engine:       cfg.Engine,
		targetTFs:    cfg.TargetTimeframes,
		horizonHours: cfg.HorizonHours,
		symbols:      cfg.Symbols,
		autoApply:    cfg.AutoApply,
		minSamples:   cfg.MinSamples,
		lookbackDays: cfg.LookbackDays,
		log:          cfg.Log.With().Str("job", "calibrate").Logger(),
	}
}

// Name returns the job name
func (j *CalibrateJob) Name() string {
	return "calibrate"
}

// Run analyzes graded outcomes and, when enabled and sufficiently sampled,
// activates the primary recommendation as the live weight vector.
func (j *CalibrateJob) Run() error {
	ctx := context.Background()

	current, err := j.weights.GetActiveWeights(ctx)
	if err != nil {
		return fmt.Errorf("load active weights: %w", err)
	}

	symbols := j.symbols
	if symbols < 1 {
		symbols = 1
	}
	limit := j.lookbackDays * diagnoseRunsPerDay * symbols

	var primary *calibration.Report
	for _, tf := range j.targetTFs {
		for _, hours := range j.horizonHours {
			hs := snapshots.HorizonsFor(tf, []int{hours})
			if len(hs) == 0 {
				continue
			}
			rep, err := j.analyzer.Analyze(ctx, hs[0], limit, current)
			if err != nil {
				j.log.Warn().Err(err).
					Str("timeframe", string(tf)).
					Int("horizon_hours", hours).
					Msg("calibration pass failed")
				continue
			}
			j.log.Info().
				Str("timeframe", string(tf)).
				Int("horizon_hours", hours).
				Int("samples", rep.Samples).
				Interface("strong_thresholds", rep.StrongThresholds).
				Msg("calibration report")
			if primary == nil {
				primary = rep
			}
		}
	}
	if primary == nil {
		j.log.Warn().Msg("no analyzable timeframe/horizon pair, calibration skipped")
		return nil
	}

	if primary.Samples < j.minSamples {
		j.log.Info().
			Int("samples", primary.Samples).
			Int("min_samples", j.minSamples).
			Msg("too few samples, weights unchanged")
		return nil
	}
	if !j.autoApply {
		j.log.Info().
			Interface("recommended", primary.Recommended).
			Msg("auto-apply disabled, recommendation logged only")
		return nil
	}

	name := "auto-" + time.Now().UTC().Format("2006-01-02")
	desc := fmt.Sprintf("automatic calibration over %dh horizon, %d samples",
		primary.Horizon.Hours, primary.Samples)
	if err := j.weights.SaveWeights(ctx, name, primary.Recommended, desc, false); err != nil {
		return fmt.Errorf("save recommended weights: %w", err)
	}
	if _, err := j.weights.Activate(ctx, name, j.engine); err != nil {
		return fmt.Errorf("activate recommended weights: %w", err)
	}

	j.log.Info().
		Str("name", name).
		Interface("weights", primary.Recommended).
		Msg("recommended weights activated")
	return nil
}
