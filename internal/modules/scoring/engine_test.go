package scoring

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
	testingpkg "github.com/aristath/marketdoctor/internal/testing"
)

func disabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(config.DefaultThresholds(), domain.DefaultGroupWeights(), disabledLogger())
	require.NoError(t, err)
	return e
}

// altWeights is a valid non-default vector used to exercise weight swaps.
func altWeights() domain.GroupWeights {
	return domain.GroupWeights{
		domain.GroupTrend:       0.40,
		domain.GroupMomentum:    0.20,
		domain.GroupVolume:      0.10,
		domain.GroupVolatility:  0.05,
		domain.GroupStructure:   0.20,
		domain.GroupDerivatives: 0.05,
	}
}

func weightedSum(groups map[domain.ScoreGroup]domain.GroupScore, w domain.GroupWeights) float64 {
	sum := 0.0
	for g, gs := range groups {
		sum += gs.RawScore * w[g]
	}
	return sum
}

func TestNewEngineRejectsInvalidWeights(t *testing.T) {
	bad := domain.DefaultGroupWeights()
	delete(bad, domain.GroupDerivatives)

	_, err := NewEngine(config.DefaultThresholds(), bad, disabledLogger())
	assert.Error(t, err)
}

func TestEvaluateNoBars(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Evaluate("BTCUSDT", domain.TF1h, nil, nil)
	assert.ErrorContains(t, err, "no bars")
}

func TestEvaluateUptrend(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 1.002)

	ev, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.TF1h, ev.Score.Timeframe)
	assert.Equal(t, domain.PhaseExpansionUp, ev.Score.Regime)
	assert.Equal(t, domain.TrendBullish, ev.Score.Trend)
	assert.Len(t, ev.Score.GroupScores, len(domain.ScoreGroups()))
	assert.Greater(t, ev.Score.NetScore, 0.3)
	assert.Greater(t, ev.Score.NormalizedLong, 5.5)
	assert.InDelta(t, 10.0, ev.Score.NormalizedLong+ev.Score.NormalizedShort, 1e-9)
	assert.InDelta(t, weightedSum(ev.Score.GroupScores, domain.DefaultGroupWeights()), ev.Score.NetScore, 0.001)

	require.NotNil(t, ev.Diagnostics)
	assert.Equal(t, "BTCUSDT", ev.Diagnostics.Symbol)
	assert.NotNil(t, ev.Insight, "200 bars carry the full oscillator ensemble")
	assert.Equal(t, bars[len(bars)-1].TS, ev.LastBarTS)
}

func TestEvaluateDowntrendScoresShort(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 0.998)

	ev, err := e.Evaluate("BTCUSDT", domain.TF4h, bars, nil)
	require.NoError(t, err)

	assert.Less(t, ev.Score.NetScore, -0.3)
	assert.Greater(t, ev.Score.NormalizedShort, ev.Score.NormalizedLong)
}

func TestEvaluateCachesByLastBar(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 1.002)

	ev1, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)
	ev2, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)
	assert.Same(t, ev1, ev2, "identical window must be served from the cache")

	// One more bar moves the key.
	longer := testingpkg.TrendBars(201, 100, 1.002)
	ev3, err := e.Evaluate("BTCUSDT", domain.TF1h, longer, nil)
	require.NoError(t, err)
	assert.NotSame(t, ev1, ev3)

	// A different timeframe never shares an entry.
	ev4, err := e.Evaluate("BTCUSDT", domain.TF4h, bars, nil)
	require.NoError(t, err)
	assert.NotSame(t, ev1, ev4)
}

func TestEvaluateConcurrentCallersShareResult(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 1.002)

	const callers = 8
	results := make([]*Evaluation, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestSetWeightsPurgesCache(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 1.002)

	ev1, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)
	require.Equal(t, 1, e.cache.len())

	require.NoError(t, e.SetWeights(altWeights()))
	assert.Zero(t, e.cache.len(), "weight swap must purge every cached score")

	ev2, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)
	assert.NotSame(t, ev1, ev2)
	assert.InDelta(t, weightedSum(ev2.Score.GroupScores, altWeights()), ev2.Score.NetScore, 0.001,
		"recomputed net must reflect the new weights")
	assert.Equal(t, altWeights(), e.Weights())
}

func TestSetWeightsRejectsInvalid(t *testing.T) {
	e := newTestEngine(t)
	bars := testingpkg.TrendBars(200, 100, 1.002)

	_, err := e.Evaluate("BTCUSDT", domain.TF1h, bars, nil)
	require.NoError(t, err)

	bad := domain.DefaultGroupWeights()
	bad[domain.GroupTrend] = 0.50
	assert.Error(t, e.SetWeights(bad))
	assert.Equal(t, 1, e.cache.len(), "rejected weights must not disturb the cache")
	assert.Equal(t, domain.DefaultGroupWeights(), e.Weights())
}

func TestWeightsReturnsCopy(t *testing.T) {
	e := newTestEngine(t)

	w := e.Weights()
	w[domain.GroupTrend] = 0.99

	assert.InDelta(t, 0.25, e.Weights()[domain.GroupTrend], 1e-9)
}
