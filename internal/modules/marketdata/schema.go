package marketdata

import "database/sql"

// BarsSchema defines the bars table in market.db
const BarsSchema = `
CREATE TABLE IF NOT EXISTS bars (
    symbol TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    ts_ms INTEGER NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume REAL,
    PRIMARY KEY (symbol, timeframe, ts_ms)
);
`

// InitSchema ensures the bars table exists in market.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(BarsSchema)
	return err
}
