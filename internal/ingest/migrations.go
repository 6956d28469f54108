package ingest

import (
	"database/sql"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// migrations returns the ingest module's database migrations.
// The schema avoids engine-specific column types so the same statements run
// unchanged against any ANSI-ish SQL backend.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create raw_readings table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS raw_readings (
						metric_name      TEXT NOT NULL,
						source_timestamp TEXT NOT NULL,
						value            REAL NOT NULL,
						source           TEXT NOT NULL,
						ingested_at      TEXT NOT NULL,
						PRIMARY KEY (metric_name, source_timestamp, source)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_raw_readings_metric_time
						ON raw_readings(metric_name, source_timestamp)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
