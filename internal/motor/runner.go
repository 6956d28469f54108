package motor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State names for the run lifecycle. A namespace moves
// idle -> loading -> computing -> persisting -> idle; any failure parks it
// in failed, from which the next Run may start again.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateComputing  State = "computing"
	StatePersisting State = "persisting"
	StateFailed     State = "failed"
)

// DefaultNamespace is the namespace used when callers don't specify one.
const DefaultNamespace = "default"

// RunReport summarizes one completed analytics run.
type RunReport struct {
	Namespace    string    `json:"namespace"`
	Strategy     string    `json:"strategy"`
	Metrics      []string  `json:"metrics"`
	Skipped      []string  `json:"skipped,omitempty"`
	Predictions  int       `json:"predictions"`
	Anomalies    int       `json:"anomalies"`
	ModelMetrics int       `json:"model_metrics"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
}

// Runner executes analytics passes over stored readings. At most one run per
// namespace is in flight; a second caller gets ErrBusy instead of queueing.
type Runner struct {
	store    *MotorStore
	strategy Strategy
	cfg      MotorConfig
	logger   *zap.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewRunner creates a runner using the given strategy.
func NewRunner(store *MotorStore, strategy Strategy, cfg MotorConfig, logger *zap.Logger) *Runner {
	return &Runner{
		store:    store,
		strategy: strategy,
		cfg:      cfg,
		logger:   logger,
		states:   make(map[string]State),
	}
}

// State returns the current lifecycle state of a namespace.
func (r *Runner) State(namespace string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[namespace]; ok {
		return s
	}
	return StateIdle
}

// acquire transitions a namespace from idle (or failed) to loading.
func (r *Runner) acquire(namespace string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.states[namespace] {
	case StateLoading, StateComputing, StatePersisting:
		return ErrBusy
	}
	r.states[namespace] = StateLoading
	return nil
}

func (r *Runner) setState(namespace string, s State) {
	r.mu.Lock()
	r.states[namespace] = s
	r.mu.Unlock()
}

// Run executes one analytics pass over all readings up to asOf.
// Metrics with enough samples are computed; metrics below MinSamples are
// skipped and reported. If no metric qualifies the run fails with
// KindInsufficientData. All results persist in one transaction.
func (r *Runner) Run(ctx context.Context, namespace string, asOf time.Time, metrics []string) (*RunReport, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if len(metrics) == 0 {
		metrics = []string{energy.MetricPrice, energy.MetricDemand}
	}

	if err := r.acquire(namespace); err != nil {
		runsTotal.WithLabelValues("busy").Inc()
		return nil, err
	}

	start := time.Now()
	report, err := r.run(ctx, namespace, asOf, metrics, start)
	if err != nil {
		r.setState(namespace, StateFailed)
		runsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	r.setState(namespace, StateIdle)
	runsTotal.WithLabelValues("ok").Inc()
	runDuration.Observe(time.Since(start).Seconds())
	return report, nil
}

func (r *Runner) run(ctx context.Context, namespace string, asOf time.Time, metrics []string, start time.Time) (*RunReport, error) {
	report := &RunReport{
		Namespace: namespace,
		Strategy:  r.strategy.Name(),
		StartedAt: start.UTC(),
	}

	// LOADING: read each metric's series up to asOf.
	series := make(map[string][]energy.RawReading, len(metrics))
	for _, metric := range metrics {
		s, err := r.store.LoadSeries(ctx, metric, asOf)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", metric, err)
		}
		if len(s) < r.cfg.MinSamples {
			r.logger.Info("metric below sample threshold, skipping",
				zap.String("metric", metric),
				zap.Int("samples", len(s)),
				zap.Int("min_samples", r.cfg.MinSamples),
			)
			report.Skipped = append(report.Skipped, metric)
			continue
		}
		series[metric] = s
		report.Metrics = append(report.Metrics, metric)
	}
	if len(series) == 0 {
		return nil, &AnalyticsError{
			Kind: KindInsufficientData,
			Err:  fmt.Errorf("no metric has %d+ readings", r.cfg.MinSamples),
		}
	}

	// COMPUTING: run the strategy per metric. Strategies that implement
	// Evaluator also score their in-sample fit here.
	r.setState(namespace, StateComputing)
	evaluator, _ := r.strategy.(Evaluator)
	var results []energy.DerivedResult
	var modelMetrics []energy.ModelMetric
	for _, metric := range report.Metrics {
		out, err := r.strategy.Compute(metric, series[metric], asOf)
		if err != nil {
			var ae *AnalyticsError
			if errors.As(err, &ae) {
				return nil, ae
			}
			return nil, &AnalyticsError{Kind: KindComputeDiverged, Err: err}
		}
		results = append(results, out...)

		if evaluator != nil {
			mm, err := evaluator.Evaluate(metric, series[metric], asOf)
			if err != nil {
				var ae *AnalyticsError
				if errors.As(err, &ae) {
					return nil, ae
				}
				return nil, &AnalyticsError{Kind: KindComputeDiverged, Err: err}
			}
			mm.ID = uuid.NewString()
			modelMetrics = append(modelMetrics, mm)
		}
	}
	report.ModelMetrics = len(modelMetrics)

	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		switch results[i].Kind {
		case energy.KindPrediction:
			report.Predictions++
		case energy.KindAnomalyFlag:
			report.Anomalies++
		}
	}

	// PERSISTING: all rows in one transaction, or none.
	r.setState(namespace, StatePersisting)
	if err := r.store.PersistRun(ctx, results, modelMetrics); err != nil {
		return nil, &AnalyticsError{Kind: KindPersistFailed, Err: err}
	}

	resultsPersisted.WithLabelValues(energy.KindPrediction).Add(float64(report.Predictions))
	resultsPersisted.WithLabelValues(energy.KindAnomalyFlag).Add(float64(report.Anomalies))

	report.DurationMS = time.Since(start).Milliseconds()
	r.logger.Info("analytics run completed",
		zap.String("namespace", namespace),
		zap.String("strategy", report.Strategy),
		zap.Strings("metrics", report.Metrics),
		zap.Int("predictions", report.Predictions),
		zap.Int("anomalies", report.Anomalies),
		zap.Int64("duration_ms", report.DurationMS),
	)
	return report, nil
}

// outcomeLabel maps a run error onto a metric label.
func outcomeLabel(err error) string {
	var ae *AnalyticsError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	return "error"
}
