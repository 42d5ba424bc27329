package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/runner"
)

// DiagnoseJob runs one full diagnostic pass over the configured universe.
// The runner bounds the pass with its own timeout and swallows per-symbol
// failures; the job only fails when the whole pass produced nothing.
type DiagnoseJob struct {
	runner *runner.Runner
	log    zerolog.Logger
}

// NewDiagnoseJob creates a new diagnose job
func NewDiagnoseJob(r *runner.Runner, log zerolog.Logger) *DiagnoseJob {
	return &DiagnoseJob{
		runner: r,
		log:    log.With().Str("job", "diagnose").Logger(),
	}
}

// Name returns the job name
func (j *DiagnoseJob) Name() string {
	return "diagnose"
}

// Run executes one diagnostic pass.
func (j *DiagnoseJob) Run() error {
	sum := j.runner.Run(context.Background())
	if sum.Snapshots == 0 && sum.Failures > 0 {
		return fmt.Errorf("diagnostic run %s produced no snapshots (%d failures)", sum.RunID, sum.Failures)
	}
	return nil
}
