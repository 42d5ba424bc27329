package snapshots

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/marketdata"
)

var _ BarSource = (*marketdata.SQLiteBarRepository)(nil)

func newTestEvaluator(t *testing.T) (*Evaluator, *Repository, *marketdata.SQLiteBarRepository) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db := newTestDB(t)
	if err := marketdata.InitSchema(db); err != nil {
		t.Fatalf("Failed to create bars table: %v", err)
	}

	bars := marketdata.NewSQLiteBarRepository(db, log)
	repo := NewRepository(db, log)
	return NewEvaluator(bars, repo, log), repo, bars
}

// Five 1h bars from the snapshot bar onward: breaks 102 (the trigger),
// tops at 104, never trades through 98 (the invalidation), closes at 102.
func longWindowBars() []domain.Bar {
	hour := domain.TF1h.DurationMS()
	return []domain.Bar{
		{TS: fixtureTS, Open: 100, High: 101, Low: 99, Close: 100.5},
		{TS: fixtureTS + hour, Open: 100.5, High: 103, Low: 99.5, Close: 102},
		{TS: fixtureTS + 2*hour, Open: 102, High: 104, Low: 100, Close: 103},
		{TS: fixtureTS + 3*hour, Open: 102, High: 103, Low: 101, Close: 101.5},
		{TS: fixtureTS + 4*hour, Open: 101.5, High: 102, Low: 101, Close: 102},
	}
}

func TestEvaluateLongSnapshot(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	id, err := repo.LogSnapshot(ctx, reportFixture(), fptr(100))
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	written := ev.EvaluateSnapshot(ctx, snaps[0], []Horizon{{Bars: 4, Hours: 4}})
	assert.Equal(t, 1, written)

	got, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, 4, o.HorizonBars)
	assert.Equal(t, 4, o.HorizonHrs)
	assert.True(t, o.HitTP)
	assert.False(t, o.HitSL)

	require.NotNil(t, o.EntryPrice)
	assert.InDelta(t, 100, *o.EntryPrice, 1e-9)
	require.NotNil(t, o.PriceAtHorizon)
	assert.InDelta(t, 102, *o.PriceAtHorizon, 1e-9)
	require.NotNil(t, o.HighestPrice)
	assert.InDelta(t, 104, *o.HighestPrice, 1e-9)
	require.NotNil(t, o.LowestPrice)
	assert.InDelta(t, 99, *o.LowestPrice, 1e-9)

	// Risk distance is entry - invalidation = 2.
	require.NotNil(t, o.RAtHorizon)
	assert.InDelta(t, 1.0, *o.RAtHorizon, 1e-9)
	require.NotNil(t, o.MaxRUp)
	assert.InDelta(t, 2.0, *o.MaxRUp, 1e-9)
	require.NotNil(t, o.MaxRDown)
	assert.InDelta(t, -0.5, *o.MaxRDown, 1e-9)
}

func TestEvaluateShortSnapshot(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	r := reportFixture()
	r.Direction = domain.DirectionShort
	r.TradeMap.Bias = domain.DirectionShort
	r.TradeMap.BearishTriggerLevel = fptr(95)
	r.TradeMap.InvalidationLevel = fptr(103)
	id, err := repo.LogSnapshot(ctx, r, fptr(100))
	require.NoError(t, err)

	hour := domain.TF1h.DurationMS()
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, []domain.Bar{
		{TS: fixtureTS, Open: 100, High: 101, Low: 96, Close: 97},
		{TS: fixtureTS + hour, Open: 97, High: 100.5, Low: 94, Close: 95.5},
	}))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	written := ev.EvaluateSnapshot(ctx, snaps[0], []Horizon{{Bars: 1, Hours: 1}})
	assert.Equal(t, 1, written)

	got, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// tp 95 was tagged by the low at 94; sl 103 never traded.
	o := got[0]
	assert.True(t, o.HitTP)
	assert.False(t, o.HitSL)

	// Risk distance is sl - entry = 3; favorable R counts downward moves.
	require.NotNil(t, o.MaxRUp)
	assert.InDelta(t, 2.0, *o.MaxRUp, 1e-9)
	require.NotNil(t, o.MaxRDown)
	assert.InDelta(t, -1.0/3.0, *o.MaxRDown, 1e-9)
	require.NotNil(t, o.RAtHorizon)
	assert.InDelta(t, 1.5, *o.RAtHorizon, 1e-9)
}

func TestEvaluateSkipsUnelapsedHorizon(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	id, err := repo.LogSnapshot(ctx, reportFixture(), fptr(100))
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)

	// Only 5 bars stored; a 24 bar horizon needs 25.
	written := ev.EvaluateSnapshot(ctx, snaps[0], []Horizon{{Bars: 24, Hours: 24}})
	assert.Equal(t, 0, written)

	got, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	id, err := repo.LogSnapshot(ctx, reportFixture(), fptr(100))
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)

	horizons := []Horizon{{Bars: 4, Hours: 4}}
	assert.Equal(t, 1, ev.EvaluateSnapshot(ctx, snaps[0], horizons))
	assert.Equal(t, 0, ev.EvaluateSnapshot(ctx, snaps[0], horizons))

	first, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 0, ev.EvaluateSnapshot(ctx, snaps[0], horizons))
	second, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateEntryEqualsStop(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	// Invalidation level sits exactly at the entry price.
	r := reportFixture()
	r.TradeMap.InvalidationLevel = fptr(100)
	id, err := repo.LogSnapshot(ctx, r, fptr(100))
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)

	written := ev.EvaluateSnapshot(ctx, snaps[0], []Horizon{{Bars: 4, Hours: 4}})
	assert.Equal(t, 1, written)

	got, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// R metrics are undefined; the hit flags still record what traded.
	o := got[0]
	assert.Nil(t, o.MaxRUp)
	assert.Nil(t, o.MaxRDown)
	assert.Nil(t, o.RAtHorizon)
	assert.True(t, o.HitTP)
	assert.True(t, o.HitSL)
	require.NotNil(t, o.HighestPrice)
	assert.InDelta(t, 104, *o.HighestPrice, 1e-9)
}

func TestEvaluateFallbackLevels(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	// No planner levels and no live price recorded: entry falls back to the
	// entry bar open, TP/SL to the 2% band.
	r := reportFixture()
	r.TradeMap.BullishTriggerLevel = nil
	r.TradeMap.BearishTriggerLevel = nil
	r.TradeMap.InvalidationLevel = nil
	id, err := repo.LogSnapshot(ctx, r, nil)
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	snaps, err := repo.GetSnapshots(ctx, SnapshotFilter{})
	require.NoError(t, err)

	written := ev.EvaluateSnapshot(ctx, snaps[0], []Horizon{{Bars: 4, Hours: 4}})
	assert.Equal(t, 1, written)

	got, err := repo.GetOutcomesForSnapshot(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// entry = 100 (bar open), tp = 102, sl = 98: same window arithmetic as
	// the explicit-levels case.
	o := got[0]
	require.NotNil(t, o.EntryPrice)
	assert.InDelta(t, 100, *o.EntryPrice, 1e-9)
	assert.True(t, o.HitTP)
	assert.False(t, o.HitSL)
	require.NotNil(t, o.RAtHorizon)
	assert.InDelta(t, 1.0, *o.RAtHorizon, 1e-9)
}

func TestEvaluateRecentAcrossSnapshots(t *testing.T) {
	ev, repo, bars := newTestEvaluator(t)
	ctx := context.Background()

	_, err := repo.LogSnapshot(ctx, reportFixture(), fptr(100))
	require.NoError(t, err)
	require.NoError(t, bars.UpsertBars(ctx, "BTCUSDT", domain.TF1h, longWindowBars()))

	// Second snapshot has no bars stored at all.
	bare := reportFixture()
	bare.Symbol = "ethusdt"
	_, err = repo.LogSnapshot(ctx, bare, fptr(100))
	require.NoError(t, err)

	written, err := ev.EvaluateRecent(ctx, SnapshotFilter{}, []int{4})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	again, err := ev.EvaluateRecent(ctx, SnapshotFilter{}, []int{4})
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestHorizonsFor(t *testing.T) {
	assert.Equal(t,
		[]Horizon{{Bars: 24, Hours: 24}, {Bars: 72, Hours: 72}, {Bars: 168, Hours: 168}},
		HorizonsFor(domain.TF1h, []int{24, 72, 168}))

	assert.Equal(t,
		[]Horizon{{Bars: 6, Hours: 24}, {Bars: 18, Hours: 72}, {Bars: 42, Hours: 168}},
		HorizonsFor(domain.TF4h, []int{24, 72, 168}))

	assert.Equal(t,
		[]Horizon{{Bars: 1, Hours: 24}, {Bars: 3, Hours: 72}, {Bars: 7, Hours: 168}},
		HorizonsFor(domain.TF1d, []int{24, 72, 168}))

	// Sub-bar spans are dropped.
	assert.Equal(t,
		[]Horizon{{Bars: 1, Hours: 168}},
		HorizonsFor(domain.TF1w, []int{24, 72, 168}))

	assert.Nil(t, HorizonsFor(domain.Timeframe("15m"), []int{24}))
}
