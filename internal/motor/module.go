// Package motor runs scheduled and on-demand analytics over stored energy
// readings, producing predictions and anomaly flags.
package motor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin          = (*Module)(nil)
	_ plugin.HTTPProvider    = (*Module)(nil)
	_ plugin.HealthChecker   = (*Module)(nil)
	_ plugin.EventSubscriber = (*Module)(nil)
)

// Module implements the analytics motor module.
type Module struct {
	logger *zap.Logger
	cfg    MotorConfig
	store  *MotorStore
	bus    plugin.EventBus
	runner *Runner

	runnerStrategy Strategy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new motor module. Pass a non-nil strategy to override the
// default linear-trend strategy (used by tests).
func New(strategy Strategy) *Module {
	return &Module{runnerStrategy: strategy}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "motor",
		Version:      "0.1.0",
		Description:  "Predictions and anomaly detection over energy readings",
		Dependencies: []string{"ingest"},
		Required:     true,
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&m.cfg); err != nil {
			return fmt.Errorf("unmarshal motor config: %w", err)
		}
	}

	if deps.Store == nil {
		return fmt.Errorf("motor requires a store")
	}
	if err := deps.Store.Migrate(context.Background(), "motor", migrations()); err != nil {
		return fmt.Errorf("motor migrations: %w", err)
	}
	m.store = NewMotorStore(deps.Store)
	m.bus = deps.Bus

	strategy := m.runnerStrategy
	if strategy == nil {
		strategy = NewTrendStrategy(m.cfg)
	}
	m.runner = NewRunner(m.store, strategy, m.cfg, m.logger)

	m.logger.Info("motor module initialized",
		zap.String("strategy", strategy.Name()),
		zap.Int("min_samples", m.cfg.MinSamples),
		zap.Float64("zscore_threshold", m.cfg.ZScoreThreshold),
		zap.Duration("forecast_horizon", m.cfg.ForecastHorizon),
		zap.Duration("run_interval", m.cfg.RunInterval),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.startScheduler()
	m.startMaintenance()
	m.logger.Info("motor module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("motor module stopped")
	return nil
}

// Runner exposes the runner for CLIs and sibling packages.
func (m *Module) Runner() *Runner {
	return m.runner
}

// RunAndPublish executes a run and publishes the outcome on the bus.
func (m *Module) RunAndPublish(ctx context.Context, namespace string, asOf time.Time) (*RunReport, error) {
	report, err := m.runner.Run(ctx, namespace, asOf, nil)
	if err != nil {
		if m.bus != nil && err != ErrBusy {
			m.bus.PublishAsync(ctx, plugin.Event{
				Topic:   TopicRunFailed,
				Source:  "motor",
				Payload: err.Error(),
			})
		}
		return nil, err
	}

	if m.bus != nil {
		m.bus.PublishAsync(ctx, plugin.Event{
			Topic:  TopicRunCompleted,
			Source: "motor",
			Payload: RunCompleted{
				Namespace:   report.Namespace,
				Strategy:    report.Strategy,
				Predictions: report.Predictions,
				Anomalies:   report.Anomalies,
				Duration:    time.Duration(report.DurationMS) * time.Millisecond,
			},
		})
	}
	return report, nil
}

// -- plugin.EventSubscriber --

// Subscriptions implements plugin.EventSubscriber.
func (m *Module) Subscriptions() []plugin.Subscription {
	return []plugin.Subscription{
		{Topic: TopicIngestBatchStored, Handler: m.handleBatchStored},
	}
}

// handleBatchStored optionally triggers a run after new data lands.
func (m *Module) handleBatchStored(ctx context.Context, event plugin.Event) {
	if !m.cfg.RunOnIngest {
		return
	}
	if _, err := m.RunAndPublish(ctx, DefaultNamespace, time.Now().UTC()); err != nil && err != ErrBusy {
		m.logger.Warn("ingest-triggered run failed",
			zap.String("source", event.Source),
			zap.Error(err),
		)
	}
}

// -- plugin.HealthChecker --

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "cannot query results"}
	}

	details := map[string]string{
		"total_results": strconv.Itoa(stats.TotalResults),
		"state":         string(m.runner.State(DefaultNamespace)),
	}
	if !stats.LastComputed.IsZero() {
		details["last_computed"] = stats.LastComputed.Format(time.RFC3339)
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}
