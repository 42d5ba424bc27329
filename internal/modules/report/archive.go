package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/marketdoctor/internal/domain"
)

const archiveExt = ".msgpack"

// Archive persists batches of reports as msgpack files, one file per
// day. Archives feed offline research; nothing in the pipeline reads
// them back.
type Archive struct {
	dir string
	log zerolog.Logger
}

func NewArchive(dir string, log zerolog.Logger) *Archive {
	return &Archive{
		dir: dir,
		log: log.With().Str("component", "report_archive").Logger(),
	}
}

// Export writes the reports for one day and returns the file path.
// Re-exporting the same day overwrites the previous file.
func (a *Archive) Export(day time.Time, reports []domain.CompactReport) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report archive dir: %w", err)
	}

	payload, err := msgpack.Marshal(reports)
	if err != nil {
		return "", fmt.Errorf("encode %d reports: %w", len(reports), err)
	}

	path := filepath.Join(a.dir, "reports-"+day.UTC().Format("2006-01-02")+archiveExt)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write report archive: %w", err)
	}

	a.log.Info().
		Str("path", path).
		Int("reports", len(reports)).
		Msg("report archive written")
	return path, nil
}

// Load reads back an archive written by Export.
func (a *Archive) Load(path string) ([]domain.CompactReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report archive: %w", err)
	}
	var reports []domain.CompactReport
	if err := msgpack.Unmarshal(raw, &reports); err != nil {
		return nil, fmt.Errorf("decode report archive %s: %w", filepath.Base(path), err)
	}
	return reports, nil
}
