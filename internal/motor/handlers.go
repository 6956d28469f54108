package motor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// Routes implements plugin.HTTPProvider. Mounted under /api/v1/motor.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/run", Handler: m.handleRun},
		{Method: "GET", Path: "/state", Handler: m.handleState},
		{Method: "GET", Path: "/results/recent", Handler: m.handleResultsRecent},
		{Method: "GET", Path: "/predictions/recent", Handler: m.handlePredictionsRecent},
		{Method: "GET", Path: "/anomalies", Handler: m.handleAnomalies},
		{Method: "GET", Path: "/results/stats", Handler: m.handleResultsStats},
		{Method: "GET", Path: "/metrics/latest", Handler: m.handleMetricsLatest},
		{Method: "GET", Path: "/metrics/history", Handler: m.handleMetricsHistory},
	}
}

// RegisterRoutes mounts the stable top-level paths the polling dashboard
// consumes.
func (m *Module) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/predictions/recent", m.handlePredictionsRecent)
	mux.HandleFunc("GET /api/predictions/stats", m.handlePredictionsStats)
	mux.HandleFunc("GET /api/anomalies", m.handleAnomalies)
	mux.HandleFunc("GET /api/anomalies/stats", m.handleAnomalyStats)
	mux.HandleFunc("GET /api/metrics/latest", m.handleMetricsLatest)
	mux.HandleFunc("GET /api/metrics/history", m.handleMetricsHistory)
}

// handleRun triggers an analytics pass. An optional as_of query parameter
// (RFC 3339) bounds the input series; it defaults to now. A run already in
// flight for the namespace yields 409.
func (m *Module) handleRun(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("as_of"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be RFC 3339")
			return
		}
		asOf = ts.UTC()
	}

	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	report, err := m.RunAndPublish(r.Context(), namespace, asOf)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			writeError(w, http.StatusConflict, "an analytics run is already in progress for this namespace")
			return
		}
		var ae *AnalyticsError
		if errors.As(err, &ae) {
			switch ae.Kind {
			case KindInsufficientData:
				writeError(w, http.StatusUnprocessableEntity, ae.Error())
			default:
				writeError(w, http.StatusInternalServerError, ae.Error())
			}
			return
		}
		writeError(w, http.StatusInternalServerError, "analytics run failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleState reports the runner's lifecycle state for a namespace.
func (m *Module) handleState(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = DefaultNamespace
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"namespace": namespace,
		"state":     string(m.runner.State(namespace)),
	})
}

// handleResultsRecent returns the newest derived results of any kind.
func (m *Module) handleResultsRecent(w http.ResponseWriter, r *http.Request) {
	results, err := m.store.ListRecent(r.Context(), "", parseLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if results == nil {
		results = []energy.DerivedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handlePredictionsRecent returns the newest predictions.
func (m *Module) handlePredictionsRecent(w http.ResponseWriter, r *http.Request) {
	results, err := m.store.ListRecent(r.Context(), energy.KindPrediction, parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	if results == nil {
		results = []energy.DerivedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleAnomalies returns the newest anomaly flags, optionally filtered by
// severity (matched against the result detail).
func (m *Module) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	results, err := m.store.ListRecent(r.Context(), energy.KindAnomalyFlag, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list anomalies")
		return
	}

	if severity := r.URL.Query().Get("severity"); severity != "" {
		filtered := results[:0]
		for _, res := range results {
			if strings.Contains(res.Detail, "severity="+severity) {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	if results == nil {
		results = []energy.DerivedResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleAnomalyStats summarizes stored anomaly flags by severity.
func (m *Module) handleAnomalyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.store.AnomalyStats(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute anomaly stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handlePredictionsStats summarizes stored predictions per metric.
func (m *Module) handlePredictionsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.store.PredictionStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute prediction stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleMetricsLatest returns the newest model performance row, optionally
// filtered by strategy. 404 when no run has reported metrics yet.
func (m *Module) handleMetricsLatest(w http.ResponseWriter, r *http.Request) {
	metric, ok, err := m.store.LatestModelMetric(r.Context(), r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load model metrics")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no model metrics available")
		return
	}
	writeJSON(w, http.StatusOK, metric)
}

// handleMetricsHistory returns model performance rows newest first.
// limit must be 1-100; it defaults to 10.
func (m *Module) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	metrics, err := m.store.ListModelMetrics(r.Context(), r.URL.Query().Get("strategy"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load model metrics")
		return
	}
	if metrics == nil {
		metrics = []energy.ModelMetric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

// handleResultsStats returns counts of derived results by kind.
func (m *Module) handleResultsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
