package calibration

import "database/sql"

// WeightsSchema defines the named scoring-weight configurations in doctor.db.
// At most one row is active; activation flips the flag inside one
// transaction.
const WeightsSchema = `
CREATE TABLE IF NOT EXISTS scoring_weights (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    weights_json TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 0
);
`

// InitSchema ensures the scoring_weights table exists in doctor.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(WeightsSchema)
	return err
}
