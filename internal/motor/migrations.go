package motor

import (
	"database/sql"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// migrations returns the motor module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create derived_results table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS derived_results (
						id               TEXT PRIMARY KEY,
						metric_name      TEXT NOT NULL,
						kind             TEXT NOT NULL,
						value            REAL NOT NULL,
						confidence       REAL,
						detail           TEXT NOT NULL DEFAULT '',
						target_timestamp TEXT NOT NULL,
						computed_at      TEXT NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_derived_results_metric_computed
						ON derived_results(metric_name, computed_at)`,
					`CREATE INDEX IF NOT EXISTS idx_derived_results_kind
						ON derived_results(kind, computed_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "create model_metrics table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS model_metrics (
						id          TEXT PRIMARY KEY,
						strategy    TEXT NOT NULL,
						metric_name TEXT NOT NULL,
						mape        REAL,
						smape       REAL,
						rmse        REAL NOT NULL,
						mae         REAL NOT NULL,
						r2          REAL NOT NULL,
						n_samples   INTEGER NOT NULL,
						computed_at TEXT NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_model_metrics_strategy_computed
						ON model_metrics(strategy, computed_at)`,
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
