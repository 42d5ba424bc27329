// Package scheduler drives the periodic jobs of the diagnostics daemon:
// scoring runs, outcome evaluation, calibration, report export, database
// backup and the system health probe. Schedules are six-field cron
// expressions (seconds first) or @every / @hourly shorthands.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of work. Run owns its own context and
// deadline; the scheduler only logs the result.
type Job interface {
	Name() string
	Run() error
}

// Scheduler wraps the cron runner with job-level logging.
type Scheduler struct {
	cron *cron.Cron
	jobs int
	log  zerolog.Logger
}

// New creates an empty scheduler. Nothing runs until Start.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job under a cron schedule. A malformed schedule is a
// wiring error and fails registration.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		log := s.log.With().Str("job", job.Name()).Logger()
		log.Debug().Msg("job started")
		if err := job.Run(); err != nil {
			log.Error().Err(err).Msg("job failed")
			return
		}
		log.Debug().Msg("job done")
	})
	if err != nil {
		return err
	}

	s.jobs++
	s.log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("job registered")
	return nil
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", s.jobs).Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running job on demand")
	return job.Run()
}
