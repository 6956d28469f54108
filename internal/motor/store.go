package motor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// MotorStore provides database access for the analytics motor. It reads the
// shared raw_readings table and owns the append-only derived_results table.
type MotorStore struct {
	store plugin.Store
}

// NewMotorStore creates a store backed by the shared database.
func NewMotorStore(store plugin.Store) *MotorStore {
	return &MotorStore{store: store}
}

// LoadSeries returns all readings for a metric up to asOf, chronological.
func (s *MotorStore) LoadSeries(ctx context.Context, metric string, asOf time.Time) ([]energy.RawReading, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT metric_name, source_timestamp, value, source, ingested_at
		FROM raw_readings
		WHERE metric_name = ? AND source_timestamp <= ?
		ORDER BY source_timestamp`,
		metric, asOf.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", metric, err)
	}
	defer rows.Close()

	var series []energy.RawReading
	for rows.Next() {
		var r energy.RawReading
		var srcTS, ingestedAt string
		if err := rows.Scan(&r.MetricName, &srcTS, &r.Value, &r.Source, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, srcTS)
		if err != nil {
			return nil, fmt.Errorf("parse source_timestamp %q: %w", srcTS, err)
		}
		r.SourceTimestamp = ts
		if ia, err := time.Parse(time.RFC3339, ingestedAt); err == nil {
			r.IngestedAt = ia
		}
		series = append(series, r)
	}
	return series, rows.Err()
}

// InsertResults appends derived results in a single transaction. Either all
// rows land or none do. Existing rows are never touched.
func (s *MotorStore) InsertResults(ctx context.Context, results []energy.DerivedResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		return insertResultsTx(ctx, tx, results)
	})
}

// InsertModelMetrics appends model performance rows in a single transaction.
func (s *MotorStore) InsertModelMetrics(ctx context.Context, metrics []energy.ModelMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		return insertModelMetricsTx(ctx, tx, metrics)
	})
}

// PersistRun writes one run's derived results and model metrics in a single
// transaction. Either everything lands or nothing does.
func (s *MotorStore) PersistRun(ctx context.Context, results []energy.DerivedResult, metrics []energy.ModelMetric) error {
	if len(results) == 0 && len(metrics) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		if err := insertResultsTx(ctx, tx, results); err != nil {
			return err
		}
		return insertModelMetricsTx(ctx, tx, metrics)
	})
}

func insertResultsTx(ctx context.Context, tx *sql.Tx, results []energy.DerivedResult) error {
	if len(results) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO derived_results
			(id, metric_name, kind, value, confidence, detail, target_timestamp, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		var conf any
		if r.Confidence != nil {
			conf = *r.Confidence
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.MetricName, r.Kind, r.Value, conf, r.Detail,
			r.TargetTimestamp.UTC().Format(time.RFC3339),
			r.ComputedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return nil
}

func insertModelMetricsTx(ctx context.Context, tx *sql.Tx, metrics []energy.ModelMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO model_metrics
			(id, strategy, metric_name, mape, smape, rmse, mae, r2, n_samples, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range metrics {
		var mape, smape any
		if m.MAPE != nil {
			mape = *m.MAPE
		}
		if m.SMAPE != nil {
			smape = *m.SMAPE
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Strategy, m.MetricName, mape, smape,
			m.RMSE, m.MAE, m.R2, m.NSamples,
			m.ComputedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return nil
}

// ListRecent returns derived results, newest first. kind filters on
// prediction or anomaly_flag; empty means both.
func (s *MotorStore) ListRecent(ctx context.Context, kind string, limit int) ([]energy.DerivedResult, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT id, metric_name, kind, value, confidence, detail, target_timestamp, computed_at
			FROM derived_results ORDER BY computed_at DESC, target_timestamp DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT id, metric_name, kind, value, confidence, detail, target_timestamp, computed_at
			FROM derived_results WHERE kind = ?
			ORDER BY computed_at DESC, target_timestamp DESC LIMIT ?`,
			kind, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []energy.DerivedResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountResults returns the total number of derived results.
func (s *MotorStore) CountResults(ctx context.Context) (int, error) {
	var n int
	err := s.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM derived_results",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Stats summarizes stored derived results by kind.
func (s *MotorStore) Stats(ctx context.Context) (energy.ResultStats, error) {
	stats := energy.ResultStats{ByKind: map[string]int{}}

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM derived_results GROUP BY kind`)
	if err != nil {
		return stats, fmt.Errorf("result stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return stats, fmt.Errorf("scan stats row: %w", err)
		}
		stats.ByKind[kind] = n
		stats.TotalResults += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var last sql.NullString
	err = s.store.DB().QueryRowContext(ctx,
		"SELECT MAX(computed_at) FROM derived_results",
	).Scan(&last)
	if err != nil {
		return stats, fmt.Errorf("last computed: %w", err)
	}
	if last.Valid {
		if ts, err := time.Parse(time.RFC3339, last.String); err == nil {
			stats.LastComputed = ts
		}
	}
	return stats, nil
}

// LatestModelMetric returns the newest model metric row, optionally
// restricted to one strategy. ok is false when none exists.
func (s *MotorStore) LatestModelMetric(ctx context.Context, strategy string) (energy.ModelMetric, bool, error) {
	rows, err := s.listModelMetrics(ctx, strategy, 1)
	if err != nil {
		return energy.ModelMetric{}, false, err
	}
	if len(rows) == 0 {
		return energy.ModelMetric{}, false, nil
	}
	return rows[0], true, nil
}

// ListModelMetrics returns model metric rows newest first, optionally
// restricted to one strategy.
func (s *MotorStore) ListModelMetrics(ctx context.Context, strategy string, limit int) ([]energy.ModelMetric, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listModelMetrics(ctx, strategy, limit)
}

func (s *MotorStore) listModelMetrics(ctx context.Context, strategy string, limit int) ([]energy.ModelMetric, error) {
	var rows *sql.Rows
	var err error
	if strategy == "" {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT id, strategy, metric_name, mape, smape, rmse, mae, r2, n_samples, computed_at
			FROM model_metrics ORDER BY computed_at DESC, id LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT id, strategy, metric_name, mape, smape, rmse, mae, r2, n_samples, computed_at
			FROM model_metrics WHERE strategy = ?
			ORDER BY computed_at DESC, id LIMIT ?`,
			strategy, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list model metrics: %w", err)
	}
	defer rows.Close()

	var metrics []energy.ModelMetric
	for rows.Next() {
		var m energy.ModelMetric
		var mape, smape sql.NullFloat64
		var computedAt string
		if err := rows.Scan(&m.ID, &m.Strategy, &m.MetricName, &mape, &smape,
			&m.RMSE, &m.MAE, &m.R2, &m.NSamples, &computedAt); err != nil {
			return nil, fmt.Errorf("scan model metric row: %w", err)
		}
		if mape.Valid {
			v := mape.Float64
			m.MAPE = &v
		}
		if smape.Valid {
			v := smape.Float64
			m.SMAPE = &v
		}
		if ts, err := time.Parse(time.RFC3339, computedAt); err == nil {
			m.ComputedAt = ts
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// AnomalyStats summarizes stored anomaly flags by severity. Severity lives
// in the result detail text, so rows are aggregated here rather than in SQL.
func (s *MotorStore) AnomalyStats(ctx context.Context, now time.Time) (energy.AnomalyStats, error) {
	stats := energy.AnomalyStats{BySeverity: map[string]int{}, LastUpdate: now.UTC()}

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT detail, target_timestamp FROM derived_results WHERE kind = ?`,
		energy.KindAnomalyFlag,
	)
	if err != nil {
		return stats, fmt.Errorf("anomaly stats: %w", err)
	}
	defer rows.Close()

	cutoff := now.UTC().Add(-24 * time.Hour)
	for rows.Next() {
		var detail, targetTS string
		if err := rows.Scan(&detail, &targetTS); err != nil {
			return stats, fmt.Errorf("scan anomaly row: %w", err)
		}
		stats.TotalAnomalies++
		severity := severityFromDetail(detail)
		if severity != "" {
			stats.BySeverity[severity]++
		}
		if severity == "critical" {
			if ts, err := time.Parse(time.RFC3339, targetTS); err == nil && !ts.Before(cutoff) {
				stats.CriticalLast24h++
			}
		}
	}
	return stats, rows.Err()
}

// PredictionStats summarizes stored predictions per metric.
func (s *MotorStore) PredictionStats(ctx context.Context) (energy.PredictionStats, error) {
	stats := energy.PredictionStats{ByMetric: map[string]int{}}

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT metric_name, COUNT(*) FROM derived_results
		WHERE kind = ? GROUP BY metric_name`,
		energy.KindPrediction,
	)
	if err != nil {
		return stats, fmt.Errorf("prediction stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var metric string
		var n int
		if err := rows.Scan(&metric, &n); err != nil {
			return stats, fmt.Errorf("scan prediction stats row: %w", err)
		}
		stats.ByMetric[metric] = n
		stats.TotalPredictions += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var last sql.NullString
	err = s.store.DB().QueryRowContext(ctx,
		"SELECT MAX(computed_at) FROM derived_results WHERE kind = ?",
		energy.KindPrediction,
	).Scan(&last)
	if err != nil {
		return stats, fmt.Errorf("last prediction: %w", err)
	}
	if last.Valid {
		if ts, err := time.Parse(time.RFC3339, last.String); err == nil {
			stats.LastPrediction = ts
		}
	}
	return stats, nil
}

// severityFromDetail extracts the severity token from an anomaly detail
// string ("zscore=5.10 severity=critical expected=118.00").
func severityFromDetail(detail string) string {
	for _, field := range strings.Fields(detail) {
		if v, ok := strings.CutPrefix(field, "severity="); ok {
			return v
		}
	}
	return ""
}

// PruneOlderThan deletes derived results computed before cutoff.
// Returns the number of rows removed.
func (s *MotorStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.store.DB().ExecContext(ctx,
		"DELETE FROM derived_results WHERE computed_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("prune results: %w", err)
	}
	return res.RowsAffected()
}

func scanResult(rows *sql.Rows) (energy.DerivedResult, error) {
	var r energy.DerivedResult
	var conf sql.NullFloat64
	var targetTS, computedAt string
	if err := rows.Scan(&r.ID, &r.MetricName, &r.Kind, &r.Value, &conf, &r.Detail, &targetTS, &computedAt); err != nil {
		return r, fmt.Errorf("scan result row: %w", err)
	}
	if conf.Valid {
		c := conf.Float64
		r.Confidence = &c
	}
	if ts, err := time.Parse(time.RFC3339, targetTS); err == nil {
		r.TargetTimestamp = ts
	}
	if ts, err := time.Parse(time.RFC3339, computedAt); err == nil {
		r.ComputedAt = ts
	}
	return r, nil
}
