package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/domain"
)

// snapshotColumns is the list of columns for diagnostics_snapshots
// Column order must match scanSnapshot() expectations
const snapshotColumns = `id, symbol, timeframe, timestamp_ms,
	aggregated_long, aggregated_short, direction, confidence, per_tf_scores_json,
	phase, trend, volatility, liquidity, risk_score, pump_score,
	nearest_support, nearest_resistance, distance_to_support, distance_to_resistance,
	has_unfilled_imbalance, imbalance_distance,
	bias, position_r, bullish_trigger_level, bearish_trigger_level, invalidation_level,
	setup_type, setup_description, current_price`

// outcomeColumns is the list of columns for diagnostics_outcomes
// Column order must match scanOutcome() expectations
const outcomeColumns = `id, snapshot_id, horizon_bars, horizon_hours,
	entry_price, price_at_horizon, highest_price, lowest_price,
	max_r_up, max_r_down, r_at_horizon, hit_tp, hit_sl`

// Repository is the SQLite-backed store for diagnostics snapshots and their
// evaluated outcomes. Snapshot writes are upserts on the unique triple so a
// re-run of the same bar updates in place and keeps the row id, preserving
// any outcome rows already attached to it.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new diagnostics repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// LogSnapshot persists one compact report, returning the snapshot row id.
// currentPrice is the live price at persist time; it may differ from the
// report's bar close and may be nil when no live quote was available.
func (r *Repository) LogSnapshot(ctx context.Context, report domain.CompactReport, currentPrice *float64) (int64, error) {
	symbol := normalizeSymbol(report.Symbol)
	if symbol == "" {
		return 0, fmt.Errorf("snapshot symbol is empty")
	}
	if !report.TargetTF.Valid() {
		return 0, fmt.Errorf("snapshot has unknown timeframe %q", report.TargetTF)
	}
	if report.Timestamp <= 0 {
		return 0, fmt.Errorf("snapshot timestamp %d is not positive", report.Timestamp)
	}

	perTF, err := encodePerTF(report.PerTF)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO diagnostics_snapshots (
		symbol, timeframe, timestamp_ms,
		aggregated_long, aggregated_short, direction, confidence, per_tf_scores_json,
		phase, trend, volatility, liquidity, risk_score, pump_score,
		nearest_support, nearest_resistance, distance_to_support, distance_to_resistance,
		has_unfilled_imbalance, imbalance_distance,
		bias, position_r, bullish_trigger_level, bearish_trigger_level, invalidation_level,
		setup_type, setup_description, current_price
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, timeframe, timestamp_ms) DO UPDATE SET
		aggregated_long = excluded.aggregated_long,
		aggregated_short = excluded.aggregated_short,
		direction = excluded.direction,
		confidence = excluded.confidence,
		per_tf_scores_json = excluded.per_tf_scores_json,
		phase = excluded.phase,
		trend = excluded.trend,
		volatility = excluded.volatility,
		liquidity = excluded.liquidity,
		risk_score = excluded.risk_score,
		pump_score = excluded.pump_score,
		nearest_support = excluded.nearest_support,
		nearest_resistance = excluded.nearest_resistance,
		distance_to_support = excluded.distance_to_support,
		distance_to_resistance = excluded.distance_to_resistance,
		has_unfilled_imbalance = excluded.has_unfilled_imbalance,
		imbalance_distance = excluded.imbalance_distance,
		bias = excluded.bias,
		position_r = excluded.position_r,
		bullish_trigger_level = excluded.bullish_trigger_level,
		bearish_trigger_level = excluded.bearish_trigger_level,
		invalidation_level = excluded.invalidation_level,
		setup_type = excluded.setup_type,
		setup_description = excluded.setup_description,
		current_price = excluded.current_price`

	tm := report.TradeMap
	_, err = r.db.ExecContext(ctx, query,
		symbol, string(report.TargetTF), report.Timestamp,
		report.ScoreLong, report.ScoreShort, string(report.Direction), report.Confidence, perTF,
		string(report.Phase), string(report.Trend), string(report.Volatility), string(report.Liquidity),
		report.RiskScore, report.PumpScore,
		nullFloat64(report.SMC.NearestSupport), nullFloat64(report.SMC.NearestResistance),
		nullFloat64(report.SMC.DistanceToSupport), nullFloat64(report.SMC.DistanceToResistance),
		report.SMC.HasUnfilledImbalance, nullFloat64(report.SMC.ImbalanceDistance),
		string(tm.Bias), nullFloat64(tm.PositionR),
		nullFloat64(tm.BullishTriggerLevel), nullFloat64(tm.BearishTriggerLevel), nullFloat64(tm.InvalidationLevel),
		report.SetupType, tm.Plan.ScenarioPlaybook, nullFloat64(currentPrice),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		"SELECT id FROM diagnostics_snapshots WHERE symbol = ? AND timeframe = ? AND timestamp_ms = ?",
		symbol, string(report.TargetTF), report.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read back snapshot id: %w", err)
	}

	r.log.Debug().
		Str("symbol", symbol).
		Str("timeframe", string(report.TargetTF)).
		Int64("ts_ms", report.Timestamp).
		Int64("snapshot_id", id).
		Msg("snapshot persisted")
	return id, nil
}

// SnapshotFilter narrows GetSnapshots. Zero values mean "any"; Limit <= 0
// means no limit.
type SnapshotFilter struct {
	Symbol    string
	Timeframe domain.Timeframe
	FromMS    int64
	ToMS      int64
	Limit     int
}

// GetSnapshots returns snapshots matching the filter, newest first.
func (r *Repository) GetSnapshots(ctx context.Context, f SnapshotFilter) ([]Snapshot, error) {
	var (
		conds []string
		args  []any
	)
	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, normalizeSymbol(f.Symbol))
	}
	if f.Timeframe != "" {
		conds = append(conds, "timeframe = ?")
		args = append(args, string(f.Timeframe))
	}
	if f.FromMS > 0 {
		conds = append(conds, "timestamp_ms >= ?")
		args = append(args, f.FromMS)
	}
	if f.ToMS > 0 {
		conds = append(conds, "timestamp_ms <= ?")
		args = append(args, f.ToMS)
	}

	query := "SELECT " + snapshotColumns + " FROM diagnostics_snapshots"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp_ms DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return collectSnapshots(rows)
}

// LastSnapshots returns the most recent snapshots for one (symbol, timeframe),
// newest first.
func (r *Repository) LastSnapshots(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]Snapshot, error) {
	return r.GetSnapshots(ctx, SnapshotFilter{Symbol: symbol, Timeframe: tf, Limit: limit})
}

// LogOutcome inserts one evaluated outcome. The insert is idempotent on
// (snapshot_id, horizon_bars, horizon_hours): a second evaluation of the same
// horizon is a no-op.
func (r *Repository) LogOutcome(ctx context.Context, o Outcome) error {
	if o.SnapshotID <= 0 {
		return fmt.Errorf("outcome snapshot id %d is not positive", o.SnapshotID)
	}
	if o.HorizonBars <= 0 || o.HorizonHrs <= 0 {
		return fmt.Errorf("outcome horizon %d bars / %d hours is not positive", o.HorizonBars, o.HorizonHrs)
	}

	query := `INSERT OR IGNORE INTO diagnostics_outcomes (
		snapshot_id, horizon_bars, horizon_hours,
		entry_price, price_at_horizon, highest_price, lowest_price,
		max_r_up, max_r_down, r_at_horizon, hit_tp, hit_sl
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		o.SnapshotID, o.HorizonBars, o.HorizonHrs,
		nullFloat64(o.EntryPrice), nullFloat64(o.PriceAtHorizon),
		nullFloat64(o.HighestPrice), nullFloat64(o.LowestPrice),
		nullFloat64(o.MaxRUp), nullFloat64(o.MaxRDown), nullFloat64(o.RAtHorizon),
		o.HitTP, o.HitSL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// HasOutcome reports whether an outcome row exists for the horizon.
func (r *Repository) HasOutcome(ctx context.Context, snapshotID int64, h Horizon) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM diagnostics_outcomes WHERE snapshot_id = ? AND horizon_bars = ? AND horizon_hours = ?",
		snapshotID, h.Bars, h.Hours,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check outcome existence: %w", err)
	}
	return true, nil
}

// GetOutcomesForSnapshot returns all outcomes for one snapshot, shortest
// horizon first.
func (r *Repository) GetOutcomesForSnapshot(ctx context.Context, snapshotID int64) ([]Outcome, error) {
	query := "SELECT " + outcomeColumns + ` FROM diagnostics_outcomes
		WHERE snapshot_id = ?
		ORDER BY horizon_bars ASC, horizon_hours ASC`

	rows, err := r.db.QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// SnapshotOutcome pairs a snapshot with one of its evaluated outcomes.
type SnapshotOutcome struct {
	Snapshot Snapshot
	Outcome  Outcome
}

// JoinedOutcomes returns snapshot/outcome pairs for one horizon, newest
// snapshot first. This is the calibration feed.
func (r *Repository) JoinedOutcomes(ctx context.Context, h Horizon, limit int) ([]SnapshotOutcome, error) {
	query := `SELECT
		s.id, s.symbol, s.timeframe, s.timestamp_ms,
		s.aggregated_long, s.aggregated_short, s.direction, s.confidence, s.per_tf_scores_json,
		s.phase, s.trend, s.volatility, s.liquidity, s.risk_score, s.pump_score,
		s.nearest_support, s.nearest_resistance, s.distance_to_support, s.distance_to_resistance,
		s.has_unfilled_imbalance, s.imbalance_distance,
		s.bias, s.position_r, s.bullish_trigger_level, s.bearish_trigger_level, s.invalidation_level,
		s.setup_type, s.setup_description, s.current_price,
		o.id, o.snapshot_id, o.horizon_bars, o.horizon_hours,
		o.entry_price, o.price_at_horizon, o.highest_price, o.lowest_price,
		o.max_r_up, o.max_r_down, o.r_at_horizon, o.hit_tp, o.hit_sl
	FROM diagnostics_outcomes o
	JOIN diagnostics_snapshots s ON s.id = o.snapshot_id
	WHERE o.horizon_bars = ? AND o.horizon_hours = ?
	ORDER BY s.timestamp_ms DESC`

	args := []any{h.Bars, h.Hours}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query joined outcomes: %w", err)
	}
	defer rows.Close()

	var out []SnapshotOutcome
	for rows.Next() {
		var pair SnapshotOutcome
		sdest, sfinish := snapshotScanDest(&pair.Snapshot)
		odest, ofinish := outcomeScanDest(&pair.Outcome)
		if err := rows.Scan(append(sdest, odest...)...); err != nil {
			return nil, fmt.Errorf("failed to scan joined outcome: %w", err)
		}
		sfinish()
		ofinish()
		out = append(out, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate joined outcomes: %w", err)
	}
	return out, nil
}

func collectSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		dest, finish := snapshotScanDest(&s)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		finish()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

func collectOutcomes(rows *sql.Rows) ([]Outcome, error) {
	var out []Outcome
	for rows.Next() {
		var o Outcome
		dest, finish := outcomeScanDest(&o)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		finish()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return out, nil
}

// snapshotScanDest returns the scan destinations for one snapshot row plus a
// finish closure that moves the sql.Null* intermediates into the pointer
// fields. Call finish only after a successful Scan.
func snapshotScanDest(s *Snapshot) ([]any, func()) {
	var (
		perTF     sql.NullString
		risk      sql.NullFloat64
		pump      sql.NullFloat64
		support   sql.NullFloat64
		resist    sql.NullFloat64
		distSup   sql.NullFloat64
		distRes   sql.NullFloat64
		imbDist   sql.NullFloat64
		positionR sql.NullFloat64
		bullish   sql.NullFloat64
		bearish   sql.NullFloat64
		invalid   sql.NullFloat64
		price     sql.NullFloat64
	)
	dest := []any{
		&s.ID, &s.Symbol, &s.Timeframe, &s.TimestampMS,
		&s.AggregatedLong, &s.AggregatedShort, &s.Direction, &s.Confidence, &perTF,
		&s.Phase, &s.Trend, &s.Volatility, &s.Liquidity, &risk, &pump,
		&support, &resist, &distSup, &distRes,
		&s.HasUnfilledImbalance, &imbDist,
		&s.Bias, &positionR, &bullish, &bearish, &invalid,
		&s.SetupType, &s.SetupDescription, &price,
	}
	finish := func() {
		if perTF.Valid {
			v := perTF.String
			s.PerTFJSON = &v
		}
		s.RiskScore = fromNull(risk)
		s.PumpScore = fromNull(pump)
		s.NearestSupport = fromNull(support)
		s.NearestResistance = fromNull(resist)
		s.DistanceToSupport = fromNull(distSup)
		s.DistanceToResistance = fromNull(distRes)
		s.ImbalanceDistance = fromNull(imbDist)
		s.PositionR = fromNull(positionR)
		s.BullishTriggerLevel = fromNull(bullish)
		s.BearishTriggerLevel = fromNull(bearish)
		s.InvalidationLevel = fromNull(invalid)
		s.CurrentPrice = fromNull(price)
	}
	return dest, finish
}

func outcomeScanDest(o *Outcome) ([]any, func()) {
	var entry, atHzn, highest, lowest, rUp, rDown, rAtHzn sql.NullFloat64
	dest := []any{
		&o.ID, &o.SnapshotID, &o.HorizonBars, &o.HorizonHrs,
		&entry, &atHzn, &highest, &lowest,
		&rUp, &rDown, &rAtHzn, &o.HitTP, &o.HitSL,
	}
	finish := func() {
		o.EntryPrice = fromNull(entry)
		o.PriceAtHorizon = fromNull(atHzn)
		o.HighestPrice = fromNull(highest)
		o.LowestPrice = fromNull(lowest)
		o.MaxRUp = fromNull(rUp)
		o.MaxRDown = fromNull(rDown)
		o.RAtHorizon = fromNull(rAtHzn)
	}
	return dest, finish
}

func encodePerTF(perTF map[domain.Timeframe]domain.TimeframeScore) (sql.NullString, error) {
	if len(perTF) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(perTF)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode per-timeframe scores: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func fromNull(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
