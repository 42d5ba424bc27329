package snapshots

import "database/sql"

// Schema defines the diagnostics tables in doctor.db. A snapshot row is one
// persisted report; outcome rows hang off it per horizon. The unique triple
// (symbol, timeframe, timestamp_ms) makes snapshot writes upserts, and the
// outcome unique key makes evaluation re-runs no-ops.
const Schema = `
CREATE TABLE IF NOT EXISTS diagnostics_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    aggregated_long REAL NOT NULL,
    aggregated_short REAL NOT NULL,
    direction TEXT NOT NULL,
    confidence REAL NOT NULL,
    per_tf_scores_json TEXT,
    phase TEXT,
    trend TEXT,
    volatility TEXT,
    liquidity TEXT,
    risk_score REAL,
    pump_score REAL,
    nearest_support REAL,
    nearest_resistance REAL,
    distance_to_support REAL,
    distance_to_resistance REAL,
    has_unfilled_imbalance INTEGER NOT NULL DEFAULT 0,
    imbalance_distance REAL,
    bias TEXT,
    position_r REAL,
    bullish_trigger_level REAL,
    bearish_trigger_level REAL,
    invalidation_level REAL,
    setup_type TEXT,
    setup_description TEXT,
    current_price REAL,
    UNIQUE (symbol, timeframe, timestamp_ms)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_lookup
    ON diagnostics_snapshots (symbol, timeframe, timestamp_ms DESC);

CREATE TABLE IF NOT EXISTS diagnostics_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL REFERENCES diagnostics_snapshots(id),
    horizon_bars INTEGER NOT NULL,
    horizon_hours INTEGER NOT NULL,
    entry_price REAL,
    price_at_horizon REAL,
    highest_price REAL,
    lowest_price REAL,
    max_r_up REAL,
    max_r_down REAL,
    r_at_horizon REAL,
    hit_tp INTEGER NOT NULL DEFAULT 0,
    hit_sl INTEGER NOT NULL DEFAULT 0,
    UNIQUE (snapshot_id, horizon_bars, horizon_hours)
);

CREATE INDEX IF NOT EXISTS idx_outcomes_snapshot
    ON diagnostics_outcomes (snapshot_id);
`

// InitSchema ensures the diagnostics tables exist in doctor.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
