package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// Routes implements plugin.HTTPProvider. Mounted under /api/v1/ingest.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/fetch", Handler: m.handleFetch},
		{Method: "GET", Path: "/readings/recent", Handler: m.handleRecent},
		{Method: "GET", Path: "/readings/stats", Handler: m.handleStats},
	}
}

// RegisterRoutes mounts the stable top-level paths the dashboard polls.
// GET /fetch_ree_data mirrors the historical trigger endpoint.
func (m *Module) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /fetch_ree_data", m.handleLegacyFetch)
	mux.HandleFunc("GET /api/energy_data/recent", m.handleRecent)
	mux.HandleFunc("GET /api/energy_data/stats", m.handleStats)
}

// handleFetch triggers a fetch-and-store run. Optional from/to query
// parameters (RFC 3339) override the automatic window.
func (m *Module) handleFetch(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := m.FetchAndStore(r.Context(), window, nil)
	if err != nil {
		writeJSON(w, fetchStatus(err), report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleLegacyFetch serves the historical GET trigger with its original
// response shape (errors as a count, not a list).
func (m *Module) handleLegacyFetch(w http.ResponseWriter, r *http.Request) {
	report, err := m.FetchAndStore(r.Context(), energy.TimeRange{}, nil)
	resp := map[string]any{
		"message":     report.Message,
		"new_records": report.NewRecords,
		"errors":      len(report.Errors),
	}
	if err != nil {
		writeJSON(w, fetchStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecent returns readings from the last N days (default 7).
func (m *Module) handleRecent(w http.ResponseWriter, r *http.Request) {
	days := 7
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}
	metric := r.URL.Query().Get("metric")
	limit := parseLimit(r, 1000)

	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	readings, err := m.store.ListRecent(r.Context(), metric, since, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list readings")
		return
	}
	if readings == nil {
		readings = []energy.RawReading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

// handleStats returns summary statistics over stored readings.
func (m *Module) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.store.Stats(r.Context(), r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// -- helpers --

// parseWindow reads optional from/to query parameters.
func parseWindow(r *http.Request) (energy.TimeRange, error) {
	var window energy.TimeRange
	if s := r.URL.Query().Get("from"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return window, errors.New("from must be RFC 3339")
		}
		window.From = ts
	}
	if s := r.URL.Query().Get("to"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return window, errors.New("to must be RFC 3339")
		}
		window.To = ts
	}
	if (window.From.IsZero()) != (window.To.IsZero()) {
		return window, errors.New("from and to must be provided together")
	}
	if !window.IsZero() && window.To.Before(window.From) {
		return window, errors.New("to must not precede from")
	}
	return window, nil
}

// fetchStatus maps a fetch failure onto an HTTP status code.
func fetchStatus(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case FetchRateLimited:
			return http.StatusTooManyRequests
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

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
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 5000 {
			return n
		}
	}
	return defaultLimit
}
