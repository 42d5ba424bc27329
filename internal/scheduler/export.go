package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/report"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

// ExportJob writes the previous UTC day's snapshots to the msgpack report
// archive. Runs shortly after midnight; re-running overwrites that day's
// file with the same content.
type ExportJob struct {
	snaps   *snapshots.Repository
	archive *report.Archive
	log     zerolog.Logger
}

// NewExportJob creates a new report export job
func NewExportJob(snaps *snapshots.Repository, archive *report.Archive, log zerolog.Logger) *ExportJob {
	return &ExportJob{
		snaps:   snaps,
		archive: archive,
		log:     log.With().Str("job", "export").Logger(),
	}
}

// Name returns the job name
func (j *ExportJob) Name() string {
	return "export"
}

// Run exports yesterday's reports.
func (j *ExportJob) Run() error {
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return j.ExportDay(context.Background(), day)
}

// ExportDay exports all snapshots whose bar falls inside the given UTC day.
func (j *ExportJob) ExportDay(ctx context.Context, day time.Time) error {
	fromMS := day.UnixMilli()
	toMS := day.AddDate(0, 0, 1).UnixMilli() - 1

	rows, err := j.snaps.GetSnapshots(ctx, snapshots.SnapshotFilter{FromMS: fromMS, ToMS: toMS})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		j.log.Info().Str("day", day.Format("2006-01-02")).Msg("no snapshots for day, nothing exported")
		return nil
	}

	reports := make([]domain.CompactReport, 0, len(rows))
	for _, row := range rows {
		rep, err := row.Report()
		if err != nil {
			j.log.Warn().Err(err).
				Str("symbol", row.Symbol).
				Int64("snapshot_id", row.ID).
				Msg("snapshot skipped in export")
			continue
		}
		reports = append(reports, rep)
	}

	path, err := j.archive.Export(day, reports)
	if err != nil {
		return err
	}
	j.log.Info().
		Str("path", path).
		Int("reports", len(reports)).
		Msg("daily report archive exported")
	return nil
}
