// Package ingest periodically pulls energy readings from the REE e.sios API
// (or a synthetic generator) and stores them idempotently.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the ingestion module.
type Module struct {
	logger   *zap.Logger
	cfg      IngestConfig
	store    *IngestStore
	bus      plugin.EventBus
	provider Provider

	mu        sync.Mutex
	lastFetch time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new ingest module. Pass a non-nil provider to override the
// default REE client (used by synthgen and tests).
func New(provider Provider) *Module {
	return &Module{provider: provider}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "ingest",
		Version:     "0.1.0",
		Description: "Energy data ingestion from REE",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal ingest config: %w", err)
		}
	}

	if deps.Store == nil {
		return fmt.Errorf("ingest requires a store")
	}
	if err := deps.Store.Migrate(context.Background(), "ingest", migrations()); err != nil {
		return fmt.Errorf("ingest migrations: %w", err)
	}
	m.store = NewIngestStore(deps.Store)
	m.bus = deps.Bus

	if m.provider == nil {
		m.provider = NewREEProvider(m.cfg.BaseURL, m.cfg.APIToken, m.cfg.RequestTimeout, m.logger)
	}

	m.logger.Info("ingest module initialized",
		zap.String("source", m.provider.Name()),
		zap.String("base_url", m.cfg.BaseURL),
		zap.Int("max_attempts", m.cfg.MaxAttempts),
		zap.Duration("default_window", m.cfg.DefaultWindow),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startScheduler()
	m.logger.Info("ingest module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("ingest module stopped")
	return nil
}

// startScheduler launches the periodic fetch loop. A fetch_interval of 0
// disables it; fetches then happen only via the HTTP trigger.
func (m *Module) startScheduler() {
	if m.cfg.FetchInterval <= 0 {
		m.logger.Info("fetch scheduler disabled (fetch_interval=0)")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.FetchInterval)
		defer ticker.Stop()

		m.logger.Info("fetch scheduler started", zap.Duration("interval", m.cfg.FetchInterval))
		for {
			select {
			case <-ticker.C:
				if _, err := m.FetchAndStore(m.ctx, energy.TimeRange{}, nil); err != nil {
					m.logger.Warn("scheduled fetch failed", zap.Error(err))
				}
			case <-m.ctx.Done():
				return
			}
		}
	}()
}

// Store exposes the reading store to sibling modules (the analytics motor
// reads its input through this).
func (m *Module) Store() *IngestStore {
	return m.store
}

// FetchReport summarizes one fetch-and-store run.
type FetchReport struct {
	Message    string   `json:"message"`
	NewRecords int      `json:"new_records"`
	Errors     []string `json:"errors"`
}

// FetchAndStore pulls readings for each metric and stores them atomically.
// A zero window continues from the newest stored reading, falling back to
// the configured default window on an empty store. Transient failures are
// retried with exponential backoff; a metric that still fails is reported
// in the result without aborting the other metrics.
func (m *Module) FetchAndStore(ctx context.Context, window energy.TimeRange, metrics []string) (FetchReport, error) {
	if len(metrics) == 0 {
		metrics = []string{energy.MetricPrice, energy.MetricDemand}
	}

	report := FetchReport{Errors: []string{}}
	var firstErr error

	for _, metric := range metrics {
		n, err := m.fetchMetric(ctx, metric, window)
		if err != nil {
			fetchesTotal.WithLabelValues(metric, "error").Inc()
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", metric, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fetchesTotal.WithLabelValues(metric, "ok").Inc()
		report.NewRecords += n
	}

	m.mu.Lock()
	m.lastFetch = time.Now().UTC()
	m.mu.Unlock()

	report.Message = fmt.Sprintf("ingestion completed: %d new records", report.NewRecords)
	if len(report.Errors) == len(metrics) {
		// Nothing succeeded: surface the failure to the caller.
		return report, firstErr
	}
	return report, nil
}

// fetchMetric fetches and stores a single metric with retries.
func (m *Module) fetchMetric(ctx context.Context, metric string, window energy.TimeRange) (int, error) {
	resolved, err := m.resolveWindow(ctx, metric, window)
	if err != nil {
		return 0, err
	}

	var readings []energy.RawReading
	err = m.withRetry(ctx, func() error {
		var ferr error
		readings, ferr = m.provider.Fetch(ctx, metric, resolved)
		return ferr
	})
	if err != nil {
		if m.bus != nil {
			m.bus.PublishAsync(ctx, plugin.Event{
				Topic:  TopicFetchFailed,
				Source: "ingest",
				Payload: FetchFailed{
					Metric: metric,
					Source: m.provider.Name(),
					Reason: err.Error(),
				},
			})
		}
		return 0, err
	}

	var inserted int
	err = m.withRetry(ctx, func() error {
		var serr error
		inserted, serr = m.store.UpsertBatch(ctx, readings)
		return serr
	})
	if err != nil {
		return 0, err
	}

	skipped := len(readings) - inserted
	rowsInserted.WithLabelValues(metric, m.provider.Name()).Add(float64(inserted))
	rowsSkipped.WithLabelValues(metric, m.provider.Name()).Add(float64(skipped))

	m.logger.Info("batch stored",
		zap.String("metric", metric),
		zap.String("source", m.provider.Name()),
		zap.Int("fetched", len(readings)),
		zap.Int("inserted", inserted),
		zap.Int("duplicates", skipped),
	)

	if inserted > 0 && m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:  TopicBatchStored,
			Source: "ingest",
			Payload: BatchStored{
				Metric:     metric,
				Source:     m.provider.Name(),
				NewRecords: inserted,
				WindowFrom: resolved.From,
				WindowTo:   resolved.To,
			},
		})
	}

	return inserted, nil
}

// resolveWindow fills in a zero window: continue from the newest stored
// reading, or cover the default window when the store is empty.
func (m *Module) resolveWindow(ctx context.Context, metric string, window energy.TimeRange) (energy.TimeRange, error) {
	if !window.IsZero() {
		return window, nil
	}

	now := time.Now().UTC()
	last, ok, err := m.store.LastTimestamp(ctx, metric, m.provider.Name())
	if err != nil {
		return energy.TimeRange{}, err
	}
	if ok {
		return energy.TimeRange{From: last, To: now}, nil
	}
	return energy.TimeRange{From: now.Add(-m.cfg.DefaultWindow), To: now}, nil
}

// withRetry runs op, retrying transient failures with exponential backoff.
func (m *Module) withRetry(ctx context.Context, op func() error) error {
	attempts := m.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == attempts {
			return err
		}

		backoff := m.cfg.BackoffBase << (attempt - 1)
		m.logger.Warn("transient failure, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// isTransient reports whether an error is worth retrying.
func isTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient()
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return false
}

// -- plugin.HealthChecker --

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	stats, err := m.store.Stats(ctx, "")
	if err != nil {
		return plugin.HealthStatus{
			Status:  "unhealthy",
			Message: "cannot query readings",
		}
	}

	m.mu.Lock()
	lastFetch := m.lastFetch
	m.mu.Unlock()

	details := map[string]string{
		"total_readings": strconv.Itoa(stats.TotalRecords),
		"source":         m.provider.Name(),
	}
	if !lastFetch.IsZero() {
		details["last_fetch"] = lastFetch.Format(time.RFC3339)
	}
	if !stats.LastRecord.IsZero() {
		details["last_record"] = stats.LastRecord.Format(time.RFC3339)
	}

	return plugin.HealthStatus{Status: "healthy", Details: details}
}
