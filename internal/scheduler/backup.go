package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/reliability"
)

// BackupJob ships a database backup to object storage and prunes expired
// archives.
type BackupJob struct {
	backup        *reliability.BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backup *reliability.BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup:        backup,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run uploads one backup and rotates old ones.
func (j *BackupJob) Run() error {
	ctx := context.Background()
	if err := j.backup.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	return j.backup.RotateOldBackups(ctx, j.retentionDays)
}
