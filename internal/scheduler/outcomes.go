package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

// OutcomeJob grades recent snapshots against subsequent price action. A
// snapshot is fully graded once its longest horizon has elapsed, so the job
// only revisits snapshots younger than twice that horizon; everything older
// is either done or permanently short of bars.
type OutcomeJob struct {
	evaluator    *snapshots.Evaluator
	horizonHours []int
	log          zerolog.Logger
}

// NewOutcomeJob creates a new outcome evaluation job
func NewOutcomeJob(evaluator *snapshots.Evaluator, horizonHours []int, log zerolog.Logger) *OutcomeJob {
	return &OutcomeJob{
		evaluator:    evaluator,
		horizonHours: horizonHours,
		log:          log.With().Str("job", "outcomes").Logger(),
	}
}

// Name returns the job name
func (j *OutcomeJob) Name() string {
	return "outcomes"
}

// Run evaluates pending outcomes inside the revisit window.
func (j *OutcomeJob) Run() error {
	maxHours := 0
	for _, h := range j.horizonHours {
		if h > maxHours {
			maxHours = h
		}
	}

	filter := snapshots.SnapshotFilter{}
	if maxHours > 0 {
		lookback := time.Duration(2*maxHours) * time.Hour
		filter.FromMS = time.Now().Add(-lookback).UnixMilli()
	}

	written, err := j.evaluator.EvaluateRecent(context.Background(), filter, j.horizonHours)
	if err != nil {
		return err
	}
	j.log.Info().Int("outcomes_written", written).Msg("outcome pass finished")
	return nil
}
