// Package anomaly watches freshly produced diagnostics for conditions the
// scoring pipeline does not act on by itself: crowded funding, open-interest
// jumps, tape/trend divergence, phase flips and risk-score jumps against the
// persisted history. Everything here is advisory; a detector failure never
// fails the analytical pass.
package anomaly

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
)

// Severity grades how urgently an alert deserves attention.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertType names the rule that fired.
type AlertType string

const (
	AlertFundingSpike    AlertType = "funding_spike"
	AlertOIAnomaly       AlertType = "oi_anomaly"
	AlertCVDDivergence   AlertType = "cvd_divergence"
	AlertPhaseTransition AlertType = "phase_transition"
	AlertDoctorConcerned AlertType = "doctor_concerned"
)

// Alert is one advisory finding for a (symbol, timeframe) pass.
type Alert struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Timeframe   domain.Timeframe `json:"timeframe"`
	TimestampMS int64            `json:"timestamp_ms"`
	Type        AlertType        `json:"type"`
	Severity    Severity         `json:"severity"`
	Message     string           `json:"message"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// Rule thresholds. Funding and OI change are fractions (0.01 = 1%), CVD is
// the provider's normalized delta, risk scores live in [0,1].
const (
	fundingSpikeAbove = 0.01
	flatOIBelow       = 0.02
	oiJumpAbove       = 0.10
	cvdDivergeBelow   = -0.3
	riskJumpAtLeast   = 0.2
	riskHighAbove     = 0.7
)

// phaseSeverity grades observed phase transitions. Transitions that follow
// the normal cycle (accumulation into markup, distribution into markdown,
// expansion cooling into a range) are not listed and default to low.
var phaseSeverity = map[domain.MarketPhase]map[domain.MarketPhase]Severity{
	domain.PhaseAccumulation: {
		domain.PhaseExpansionDown: SeverityHigh,
		domain.PhaseDistribution:  SeverityMedium,
		domain.PhaseShakeout:      SeverityMedium,
	},
	domain.PhaseDistribution: {
		domain.PhaseExpansionUp:  SeverityHigh,
		domain.PhaseAccumulation: SeverityMedium,
		domain.PhaseShakeout:     SeverityMedium,
	},
	domain.PhaseExpansionUp: {
		domain.PhaseExpansionDown: SeverityHigh,
		domain.PhaseShakeout:      SeverityMedium,
	},
	domain.PhaseExpansionDown: {
		domain.PhaseExpansionUp: SeverityHigh,
		domain.PhaseShakeout:    SeverityMedium,
	},
	domain.PhaseShakeout: {
		domain.PhaseExpansionUp:   SeverityMedium,
		domain.PhaseExpansionDown: SeverityMedium,
		domain.PhaseDistribution:  SeverityMedium,
	},
}

// SnapshotSource serves the recent persisted history for one
// (symbol, timeframe). Satisfied by snapshots.Repository.
type SnapshotSource interface {
	LastSnapshots(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]snapshots.Snapshot, error)
}

const historyDepth = 10

// Detector evaluates the advisory alert rules.
type Detector struct {
	snaps SnapshotSource
	log   zerolog.Logger
}

func NewDetector(snaps SnapshotSource, log zerolog.Logger) *Detector {
	return &Detector{
		snaps: snaps,
		log:   log.With().Str("component", "anomaly").Logger(),
	}
}

// Check runs all rules against the fresh report and the persisted history
// and returns the alerts that fired. derivs may be nil. History failures are
// logged and treated as an empty history; Check never returns an error.
func (d *Detector) Check(ctx context.Context, report domain.CompactReport, derivs *domain.Derivatives) []Alert {
	alerts := derivativeAlerts(report, derivs)

	prev, err := d.previousSnapshot(ctx, report)
	if err != nil {
		d.log.Warn().Err(err).
			Str("symbol", report.Symbol).
			Str("timeframe", string(report.TargetTF)).
			Msg("anomaly history lookup failed, skipping history rules")
	} else {
		alerts = append(alerts, historyAlerts(report, prev)...)
	}

	for i := range alerts {
		alerts[i].ID = uuid.New().String()
		alerts[i].Symbol = report.Symbol
		alerts[i].Timeframe = report.TargetTF
		alerts[i].TimestampMS = report.Timestamp

		d.log.Warn().
			Str("alert_id", alerts[i].ID).
			Str("symbol", report.Symbol).
			Str("timeframe", string(report.TargetTF)).
			Str("type", string(alerts[i].Type)).
			Str("severity", string(alerts[i].Severity)).
			Msg(alerts[i].Message)
	}
	return alerts
}

// previousSnapshot returns the newest persisted snapshot older than the
// report's bar, or nil when none exists. The report's own row may already be
// persisted when the detector runs, so rows at or after the report timestamp
// are skipped.
func (d *Detector) previousSnapshot(ctx context.Context, report domain.CompactReport) (*snapshots.Snapshot, error) {
	history, err := d.snaps.LastSnapshots(ctx, report.Symbol, report.TargetTF, historyDepth)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].TimestampMS < report.Timestamp {
			return &history[i], nil
		}
	}
	return nil, nil
}

func derivativeAlerts(report domain.CompactReport, derivs *domain.Derivatives) []Alert {
	if derivs == nil {
		return nil
	}
	var alerts []Alert

	if derivs.FundingRate != nil && derivs.OIChangePct != nil {
		funding, oi := *derivs.FundingRate, *derivs.OIChangePct
		if math.Abs(funding) > fundingSpikeAbove && math.Abs(oi) < flatOIBelow {
			alerts = append(alerts, Alert{
				Type:     AlertFundingSpike,
				Severity: SeverityMedium,
				Message: fmt.Sprintf("funding at %.3f%% while open interest moved only %.2f%%",
					funding*100, oi*100),
				Metadata: map[string]any{"funding_rate": funding, "oi_change_pct": oi},
			})
		}
	}

	if derivs.OIChangePct != nil && *derivs.OIChangePct > oiJumpAbove {
		alerts = append(alerts, Alert{
			Type:     AlertOIAnomaly,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("open interest jumped %.1f%%", *derivs.OIChangePct*100),
			Metadata: map[string]any{"oi_change_pct": *derivs.OIChangePct},
		})
	}

	if derivs.CVD != nil && *derivs.CVD < cvdDivergeBelow && report.Trend == domain.TrendBullish {
		alerts = append(alerts, Alert{
			Type:     AlertCVDDivergence,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("sellers dominate the tape (cvd %.2f) while the trend is still up", *derivs.CVD),
			Metadata: map[string]any{"cvd": *derivs.CVD, "trend": string(report.Trend)},
		})
	}

	return alerts
}

func historyAlerts(report domain.CompactReport, prev *snapshots.Snapshot) []Alert {
	if prev == nil {
		return nil
	}
	var alerts []Alert

	if prev.Phase != "" && report.Phase != "" && prev.Phase != report.Phase {
		severity := SeverityLow
		if s, ok := phaseSeverity[prev.Phase][report.Phase]; ok {
			severity = s
		}
		alerts = append(alerts, Alert{
			Type:     AlertPhaseTransition,
			Severity: severity,
			Message:  fmt.Sprintf("phase moved %s -> %s", prev.Phase, report.Phase),
			Metadata: map[string]any{"from": string(prev.Phase), "to": string(report.Phase)},
		})
	}

	if prev.RiskScore != nil && report.RiskScore-*prev.RiskScore >= riskJumpAtLeast {
		severity := SeverityMedium
		if report.RiskScore > riskHighAbove {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Type:     AlertDoctorConcerned,
			Severity: severity,
			Message:  fmt.Sprintf("risk score jumped from %.2f to %.2f", *prev.RiskScore, report.RiskScore),
			Metadata: map[string]any{"previous_risk": *prev.RiskScore, "current_risk": report.RiskScore},
		})
	}

	return alerts
}
