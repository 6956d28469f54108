package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// StoreErrorKind classifies a storage failure.
type StoreErrorKind string

const (
	// StoreConnectionLost covers transport-level failures. Retryable.
	StoreConnectionLost StoreErrorKind = "connection_lost"
	// StoreConstraint covers integrity violations other than the expected
	// natural-key duplicates (those are silently skipped). Not retryable.
	StoreConstraint StoreErrorKind = "constraint_violation"
)

// StoreError wraps a storage failure with its classification.
type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Transient reports whether retrying the operation could succeed.
func (e *StoreError) Transient() bool {
	return e.Kind == StoreConnectionLost
}

// classifyStoreErr maps a driver error onto a StoreError.
func classifyStoreErr(err error) *StoreError {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint") || strings.Contains(msg, "unique") {
		return &StoreError{Kind: StoreConstraint, Err: err}
	}
	return &StoreError{Kind: StoreConnectionLost, Err: err}
}

// IngestStore provides database access for raw readings.
// Timestamps are stored as RFC 3339 UTC text so the natural key
// (metric_name, source_timestamp, source) compares deterministically.
type IngestStore struct {
	store plugin.Store
}

// NewIngestStore creates a store backed by the shared database.
func NewIngestStore(store plugin.Store) *IngestStore {
	return &IngestStore{store: store}
}

// UpsertBatch inserts readings in a single transaction, skipping rows whose
// natural key already exists. Either every new row lands or none do.
// Returns the number of rows actually inserted.
func (s *IngestStore) UpsertBatch(ctx context.Context, readings []energy.RawReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.store.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO raw_readings (metric_name, source_timestamp, value, source, ingested_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (metric_name, source_timestamp, source) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range readings {
			res, err := stmt.ExecContext(ctx,
				r.MetricName,
				r.SourceTimestamp.UTC().Format(time.RFC3339),
				r.Value,
				r.Source,
				r.IngestedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, classifyStoreErr(err)
	}
	return inserted, nil
}

// LastTimestamp returns the newest source timestamp stored for a metric and
// source, or ok=false when no readings exist yet.
func (s *IngestStore) LastTimestamp(ctx context.Context, metric, source string) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT MAX(source_timestamp) FROM raw_readings
		WHERE metric_name = ? AND source = ?`,
		metric, source,
	).Scan(&raw)
	if err != nil {
		return time.Time{}, false, classifyStoreErr(err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse stored timestamp %q: %w", raw.String, err)
	}
	return ts, true, nil
}

// ListRecent returns the newest readings for a metric, oldest first so the
// dashboard can plot them directly. Pass empty metric to list across metrics.
func (s *IngestStore) ListRecent(ctx context.Context, metric string, since time.Time, limit int) ([]energy.RawReading, error) {
	if limit <= 0 {
		limit = 500
	}

	var rows *sql.Rows
	var err error
	sinceStr := since.UTC().Format(time.RFC3339)
	if metric == "" {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT metric_name, source_timestamp, value, source, ingested_at
			FROM raw_readings WHERE source_timestamp >= ?
			ORDER BY source_timestamp DESC LIMIT ?`,
			sinceStr, limit,
		)
	} else {
		rows, err = s.store.DB().QueryContext(ctx, `
			SELECT metric_name, source_timestamp, value, source, ingested_at
			FROM raw_readings WHERE metric_name = ? AND source_timestamp >= ?
			ORDER BY source_timestamp DESC LIMIT ?`,
			metric, sinceStr, limit,
		)
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	var readings []energy.RawReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreErr(err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// Window returns all readings for a metric within [from, to], chronological.
func (s *IngestStore) Window(ctx context.Context, metric string, from, to time.Time) ([]energy.RawReading, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT metric_name, source_timestamp, value, source, ingested_at
		FROM raw_readings
		WHERE metric_name = ? AND source_timestamp >= ? AND source_timestamp <= ?
		ORDER BY source_timestamp`,
		metric, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	var readings []energy.RawReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// Stats summarizes the stored readings for a metric.
// Pass empty metric to summarize across all metrics.
func (s *IngestStore) Stats(ctx context.Context, metric string) (energy.ReadingStats, error) {
	var stats energy.ReadingStats
	var first, last sql.NullString

	var err error
	if metric == "" {
		err = s.store.DB().QueryRowContext(ctx, `
			SELECT COUNT(*), MIN(source_timestamp), MAX(source_timestamp)
			FROM raw_readings`,
		).Scan(&stats.TotalRecords, &first, &last)
	} else {
		err = s.store.DB().QueryRowContext(ctx, `
			SELECT COUNT(*), MIN(source_timestamp), MAX(source_timestamp)
			FROM raw_readings WHERE metric_name = ?`,
			metric,
		).Scan(&stats.TotalRecords, &first, &last)
	}
	if err != nil {
		return stats, classifyStoreErr(err)
	}

	if first.Valid {
		if ts, err := time.Parse(time.RFC3339, first.String); err == nil {
			stats.FirstRecord = ts
		}
	}
	if last.Valid {
		if ts, err := time.Parse(time.RFC3339, last.String); err == nil {
			stats.LastRecord = ts
		}
	}
	if !stats.FirstRecord.IsZero() && !stats.LastRecord.IsZero() {
		stats.DaysCovered = int(stats.LastRecord.Sub(stats.FirstRecord).Hours()/24) + 1
	}
	return stats, nil
}

func scanReading(rows *sql.Rows) (energy.RawReading, error) {
	var r energy.RawReading
	var srcTS, ingestedAt string
	if err := rows.Scan(&r.MetricName, &srcTS, &r.Value, &r.Source, &ingestedAt); err != nil {
		return r, fmt.Errorf("scan reading row: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, srcTS)
	if err != nil {
		return r, fmt.Errorf("parse source_timestamp %q: %w", srcTS, err)
	}
	r.SourceTimestamp = ts
	if ia, err := time.Parse(time.RFC3339, ingestedAt); err == nil {
		r.IngestedAt = ia
	}
	return r, nil
}
