package scheduler

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/modules/marketdata"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

func TestOutcomeJobRunsCleanOnEmptyStore(t *testing.T) {
	marketDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = marketDB.Close() })
	require.NoError(t, marketdata.InitSchema(marketDB))
	bars := marketdata.NewSQLiteBarRepository(marketDB, disabledLogger())

	repo := newSnapshotRepo(t)
	evaluator := snapshots.NewEvaluator(bars, repo, disabledLogger())

	job := NewOutcomeJob(evaluator, []int{24, 72, 168}, disabledLogger())
	require.Equal(t, "outcomes", job.Name())
	require.NoError(t, job.Run())
}
