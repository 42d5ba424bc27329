package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/calibration"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

func disabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestServer(t *testing.T) (*Server, *snapshots.Repository, *calibration.WeightsRepository) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, snapshots.InitSchema(db))
	require.NoError(t, calibration.InitSchema(db))

	snapRepo := snapshots.NewRepository(db, disabledLogger())
	weightsRepo := calibration.NewWeightsRepository(db, disabledLogger())

	s := New(Config{
		Port:      0,
		Log:       disabledLogger(),
		Snapshots: snapRepo,
		Weights:   weightsRepo,
	})
	return s, snapRepo, weightsRepo
}

func seedSnapshot(t *testing.T, repo *snapshots.Repository, symbol string, tf domain.Timeframe, ts int64) {
	t.Helper()
	_, err := repo.LogSnapshot(context.Background(), domain.CompactReport{
		Symbol:     symbol,
		TargetTF:   tf,
		Timestamp:  ts,
		Regime:     domain.PhaseExpansionUp,
		Direction:  domain.DirectionLong,
		ScoreLong:  7.2,
		ScoreShort: 1.9,
		Confidence: 0.74,
		SetupType:  "trend_continuation_long",
		Phase:      domain.PhaseExpansionUp,
		Trend:      domain.TrendBullish,
		Volatility: domain.VolatilityMedium,
		Liquidity:  domain.LiquidityHigh,
		RiskScore:  0.3,
		PumpScore:  0.05,
	}, nil)
	require.NoError(t, err)
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "marketdoctor", body["service"])
}

func TestSnapshotsEndpoint(t *testing.T) {
	s, repo, _ := newTestServer(t)
	seedSnapshot(t, repo, "BTCUSDT", domain.TF1h, 1_700_000_000_000)
	seedSnapshot(t, repo, "BTCUSDT", domain.TF4h, 1_700_000_000_000)
	seedSnapshot(t, repo, "ETHUSDT", domain.TF1h, 1_700_000_000_000)

	rec := get(s, "/api/v1/snapshots?symbol=btcusdt")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int `json:"count"`
		Snapshots []struct {
			Symbol    string `json:"Symbol"`
			Timeframe string `json:"Timeframe"`
		} `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	for _, snap := range body.Snapshots {
		assert.Equal(t, "BTCUSDT", snap.Symbol)
	}

	rec = get(s, "/api/v1/snapshots?timeframe=2h")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(s, "/api/v1/snapshots?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(s, "/api/v1/snapshots?symbol=BTCUSDT&timeframe=4h")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestWeightsEndpoint(t *testing.T) {
	s, _, weights := newTestServer(t)

	custom := domain.DefaultGroupWeights()
	require.NoError(t, weights.SaveWeights(context.Background(), "custom", custom, "hand tuned", true))

	rec := get(s, "/api/v1/weights")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Active         map[string]float64 `json:"active"`
		Configurations []struct {
			Name     string `json:"Name"`
			IsActive bool   `json:"IsActive"`
		} `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Active)
	require.Len(t, body.Configurations, 1)
	assert.Equal(t, "custom", body.Configurations[0].Name)
	assert.True(t, body.Configurations[0].IsActive)
}

func TestReportEndpoint(t *testing.T) {
	s, repo, _ := newTestServer(t)
	seedSnapshot(t, repo, "BTCUSDT", domain.TF1h, 1_700_000_000_000)
	seedSnapshot(t, repo, "BTCUSDT", domain.TF1h, 1_700_003_600_000)

	rec := get(s, "/api/v1/report/btcusdt")
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.CompactReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "BTCUSDT", report.Symbol)
	assert.Equal(t, domain.TF1h, report.TargetTF)
	// Newest snapshot wins.
	assert.Equal(t, int64(1_700_003_600_000), report.Timestamp)
	assert.Equal(t, domain.DirectionLong, report.Direction)

	rec = get(s, "/api/v1/report/NOSUCHUSDT")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(s, "/api/v1/report/BTCUSDT?timeframe=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
