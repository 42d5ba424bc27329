package scheduler

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/ops"
)

// walFrameWarnAt is the WAL size, in frames, above which a checkpoint
// backlog is worth a warning.
const walFrameWarnAt = 1000

// HealthJob verifies database integrity, nudges WAL checkpoints and logs a
// system vitals reading. Database corruption fails the job; everything else
// is advisory.
type HealthJob struct {
	databases map[string]*sql.DB
	probe     *ops.Probe
	log       zerolog.Logger
}

// NewHealthJob creates a new health job
func NewHealthJob(databases map[string]*sql.DB, probe *ops.Probe, log zerolog.Logger) *HealthJob {
	return &HealthJob{
		databases: databases,
		probe:     probe,
		log:       log.With().Str("job", "health").Logger(),
	}
}

// Name returns the job name
func (j *HealthJob) Name() string {
	return "health"
}

// Run executes one health pass.
func (j *HealthJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := j.checkIntegrity(name, j.databases[name]); err != nil {
			return err
		}
		j.checkpointWAL(name, j.databases[name])
	}

	if j.probe != nil {
		j.probe.Log()
	}
	return nil
}

// checkIntegrity runs SQLite's integrity check. Corruption of a live
// database cannot be auto-recovered, so it is surfaced as a job failure.
func (j *HealthJob) checkIntegrity(name string, db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check on %s failed: %w", name, err)
	}
	if result != "ok" {
		return fmt.Errorf("database %s is corrupted: %s", name, result)
	}
	j.log.Debug().Str("database", name).Msg("integrity ok")
	return nil
}

// checkpointWAL runs a passive checkpoint and warns when the WAL keeps
// growing, which means a long-lived reader is pinning it.
func (j *HealthJob) checkpointWAL(name string, db *sql.DB) {
	var busy, logFrames, checkpointed int
	err := db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Str("database", name).Msg("wal checkpoint failed")
		return
	}
	if logFrames > walFrameWarnAt {
		j.log.Warn().
			Str("database", name).
			Int("wal_frames", logFrames).
			Int("checkpointed", checkpointed).
			Msg("wal file is large")
		return
	}
	j.log.Debug().Str("database", name).Int("wal_frames", logFrames).Msg("wal checkpoint ok")
}
