package anomaly

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

const reportTS = int64(1_700_000_000_000)

var _ SnapshotSource = (*snapshots.Repository)(nil)

type stubSource struct {
	rows []snapshots.Snapshot
	err  error
}

func (s *stubSource) LastSnapshots(_ context.Context, _ string, _ domain.Timeframe, limit int) ([]snapshots.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func disabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestDetector(src SnapshotSource) *Detector {
	return NewDetector(src, disabledLogger())
}

func fptr(v float64) *float64 { return &v }

func testReport(phase domain.MarketPhase, trend domain.TrendState, risk float64) domain.CompactReport {
	return domain.CompactReport{
		Symbol:    "BTCUSDT",
		TargetTF:  domain.TF1h,
		Timestamp: reportTS,
		Phase:     phase,
		Trend:     trend,
		RiskScore: risk,
	}
}

// prevSnap is one bar behind the report.
func prevSnap(phase domain.MarketPhase, risk *float64) snapshots.Snapshot {
	return snapshots.Snapshot{
		Symbol:      "BTCUSDT",
		Timeframe:   domain.TF1h,
		TimestampMS: reportTS - 3_600_000,
		Phase:       phase,
		RiskScore:   risk,
	}
}

func alertTypes(alerts []Alert) []AlertType {
	types := make([]AlertType, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	return types
}

func TestFundingSpikeRule(t *testing.T) {
	d := newTestDetector(&stubSource{})
	report := testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.3)

	alerts := d.Check(context.Background(), report, &domain.Derivatives{
		FundingRate: fptr(0.015),
		OIChangePct: fptr(0.01),
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFundingSpike, alerts[0].Type)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
	assert.Equal(t, 0.015, alerts[0].Metadata["funding_rate"])

	// Negative funding is just as crowded.
	alerts = d.Check(context.Background(), report, &domain.Derivatives{
		FundingRate: fptr(-0.015),
		OIChangePct: fptr(-0.01),
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFundingSpike, alerts[0].Type)

	// At the threshold nothing fires.
	alerts = d.Check(context.Background(), report, &domain.Derivatives{
		FundingRate: fptr(0.01),
		OIChangePct: fptr(0.0),
	})
	assert.Empty(t, alerts)

	// Funding backed by fresh open interest is positioning, not a spike.
	alerts = d.Check(context.Background(), report, &domain.Derivatives{
		FundingRate: fptr(0.015),
		OIChangePct: fptr(0.05),
	})
	assert.Empty(t, alerts)

	// Without an OI reading the rule cannot establish flat OI.
	alerts = d.Check(context.Background(), report, &domain.Derivatives{
		FundingRate: fptr(0.015),
	})
	assert.Empty(t, alerts)
}

func TestOIAnomalyRule(t *testing.T) {
	d := newTestDetector(&stubSource{})
	report := testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.3)

	alerts := d.Check(context.Background(), report, &domain.Derivatives{OIChangePct: fptr(0.15)})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertOIAnomaly, alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)

	// The jump rule is one-sided and exclusive of the threshold.
	assert.Empty(t, d.Check(context.Background(), report, &domain.Derivatives{OIChangePct: fptr(0.10)}))
	assert.Empty(t, d.Check(context.Background(), report, &domain.Derivatives{OIChangePct: fptr(-0.15)}))
}

func TestCVDDivergenceRule(t *testing.T) {
	d := newTestDetector(&stubSource{})
	rising := testReport(domain.PhaseExpansionUp, domain.TrendBullish, 0.3)
	falling := testReport(domain.PhaseExpansionDown, domain.TrendBearish, 0.3)

	alerts := d.Check(context.Background(), rising, &domain.Derivatives{CVD: fptr(-0.4)})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCVDDivergence, alerts[0].Type)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)

	// Sellers pressing into a falling market is no divergence.
	assert.Empty(t, d.Check(context.Background(), falling, &domain.Derivatives{CVD: fptr(-0.4)}))
	assert.Empty(t, d.Check(context.Background(), rising, &domain.Derivatives{CVD: fptr(-0.3)}))
	assert.Empty(t, d.Check(context.Background(), rising, &domain.Derivatives{CVD: fptr(-0.2)}))
}

func TestPhaseTransitionSeverities(t *testing.T) {
	cases := []struct {
		from, to domain.MarketPhase
		want     Severity
	}{
		{domain.PhaseAccumulation, domain.PhaseExpansionDown, SeverityHigh},
		{domain.PhaseDistribution, domain.PhaseExpansionUp, SeverityHigh},
		{domain.PhaseExpansionUp, domain.PhaseExpansionDown, SeverityHigh},
		{domain.PhaseExpansionUp, domain.PhaseShakeout, SeverityMedium},
		{domain.PhaseAccumulation, domain.PhaseExpansionUp, SeverityLow},
		{domain.PhaseDistribution, domain.PhaseExpansionDown, SeverityLow},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			d := newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(tc.from, nil)}})
			alerts := d.Check(context.Background(), testReport(tc.to, domain.TrendNeutral, 0.3), nil)
			require.Len(t, alerts, 1)
			assert.Equal(t, AlertPhaseTransition, alerts[0].Type)
			assert.Equal(t, tc.want, alerts[0].Severity)
			assert.Equal(t, string(tc.from), alerts[0].Metadata["from"])
			assert.Equal(t, string(tc.to), alerts[0].Metadata["to"])
		})
	}
}

func TestPhaseTransitionNeedsHistory(t *testing.T) {
	d := newTestDetector(&stubSource{})
	assert.Empty(t, d.Check(context.Background(), testReport(domain.PhaseShakeout, domain.TrendNeutral, 0.3), nil))

	// An unchanged phase is no transition.
	d = newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(domain.PhaseShakeout, nil)}})
	assert.Empty(t, d.Check(context.Background(), testReport(domain.PhaseShakeout, domain.TrendNeutral, 0.3), nil))
}

func TestRiskJumpRule(t *testing.T) {
	d := newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(domain.PhaseAccumulation, fptr(0.2))}})

	alerts := d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.5), nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDoctorConcerned, alerts[0].Type)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
	assert.Equal(t, 0.2, alerts[0].Metadata["previous_risk"])

	// A jump landing above 0.7 escalates.
	alerts = d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.8), nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)

	// Small drift stays quiet.
	d = newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(domain.PhaseAccumulation, fptr(0.3))}})
	assert.Empty(t, d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.4), nil))

	// No recorded previous risk, no baseline to jump from.
	d = newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(domain.PhaseAccumulation, nil)}})
	assert.Empty(t, d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.9), nil))
}

func TestCheckSkipsOwnPersistedRow(t *testing.T) {
	// The pass persists its snapshot before the detector runs, so the
	// newest history row is the report itself.
	own := snapshots.Snapshot{
		Symbol:      "BTCUSDT",
		Timeframe:   domain.TF1h,
		TimestampMS: reportTS,
		Phase:       domain.PhaseExpansionDown,
	}
	d := newTestDetector(&stubSource{rows: []snapshots.Snapshot{own, prevSnap(domain.PhaseAccumulation, nil)}})

	alerts := d.Check(context.Background(), testReport(domain.PhaseExpansionDown, domain.TrendNeutral, 0.3), nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertPhaseTransition, alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, string(domain.PhaseAccumulation), alerts[0].Metadata["from"])
}

func TestCheckSurvivesHistoryError(t *testing.T) {
	d := newTestDetector(&stubSource{err: fmt.Errorf("db locked")})

	alerts := d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.3),
		&domain.Derivatives{OIChangePct: fptr(0.2)})
	assert.Equal(t, []AlertType{AlertOIAnomaly}, alertTypes(alerts))
}

func TestCheckStampsAlerts(t *testing.T) {
	d := newTestDetector(&stubSource{})
	report := testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.3)

	alerts := d.Check(context.Background(), report, &domain.Derivatives{OIChangePct: fptr(0.2)})
	require.Len(t, alerts, 1)
	assert.NotEmpty(t, alerts[0].ID)
	assert.Equal(t, "BTCUSDT", alerts[0].Symbol)
	assert.Equal(t, domain.TF1h, alerts[0].Timeframe)
	assert.Equal(t, reportTS, alerts[0].TimestampMS)
	assert.NotEmpty(t, alerts[0].Message)
}

func TestCheckQuietMarket(t *testing.T) {
	d := newTestDetector(&stubSource{rows: []snapshots.Snapshot{prevSnap(domain.PhaseAccumulation, fptr(0.3))}})

	alerts := d.Check(context.Background(), testReport(domain.PhaseAccumulation, domain.TrendNeutral, 0.3),
		&domain.Derivatives{FundingRate: fptr(0.0001), OIChangePct: fptr(0.01), CVD: fptr(0.1)})
	assert.Empty(t, alerts)
}
