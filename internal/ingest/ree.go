package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
	"go.uber.org/zap"
)

// Indicator IDs published by the REE e.sios API.
const (
	indicatorPrice  = 1001 // PVPC price
	indicatorDemand = 600  // Real demand
)

// metricIndicators maps metric names to e.sios indicator IDs.
var metricIndicators = map[string]int{
	energy.MetricPrice:  indicatorPrice,
	energy.MetricDemand: indicatorDemand,
}

// REEProvider fetches readings from the REE e.sios indicators API.
type REEProvider struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewREEProvider creates a provider for the e.sios API.
func NewREEProvider(baseURL, token string, timeout time.Duration, logger *zap.Logger) *REEProvider {
	return &REEProvider{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name implements Provider.
func (p *REEProvider) Name() string { return energy.SourceREE }

// indicatorResponse mirrors the e.sios payload shape.
type indicatorResponse struct {
	Indicator *struct {
		Values []indicatorValue `json:"values"`
	} `json:"indicator"`
}

type indicatorValue struct {
	Value    *float64 `json:"value"`
	Datetime string   `json:"datetime"`
}

// Fetch implements Provider. It retrieves the indicator for the given metric
// within the window. Individual rows with missing fields are skipped and
// logged; the fetch fails only when the whole payload is unusable.
func (p *REEProvider) Fetch(ctx context.Context, metric string, window energy.TimeRange) ([]energy.RawReading, error) {
	id, ok := metricIndicators[metric]
	if !ok {
		return nil, &FetchError{Kind: FetchBadResponse, Err: fmt.Errorf("no indicator for metric %q", metric)}
	}

	u := fmt.Sprintf("%s/indicators/%d", p.baseURL, id)
	if !window.IsZero() {
		q := url.Values{}
		q.Set("start_date", window.From.UTC().Format(time.RFC3339))
		q.Set("end_date", window.To.UTC().Format(time.RFC3339))
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchUnreachable, Err: err}
	}
	req.Header.Set("Authorization", "Token "+p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchUnreachable, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &FetchError{Kind: FetchRateLimited, Status: resp.StatusCode, Err: fmt.Errorf("indicator %d: status 429", id)}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Kind: FetchUnreachable, Status: resp.StatusCode, Err: fmt.Errorf("indicator %d: status %d", id, resp.StatusCode)}
	}

	var payload indicatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Kind: FetchBadResponse, Err: fmt.Errorf("decode indicator %d: %w", id, err)}
	}
	if payload.Indicator == nil {
		return nil, &FetchError{Kind: FetchBadResponse, Err: fmt.Errorf("indicator %d: missing indicator.values", id)}
	}

	now := time.Now().UTC()
	readings := make([]energy.RawReading, 0, len(payload.Indicator.Values))
	skipped := 0
	for _, v := range payload.Indicator.Values {
		if v.Value == nil || v.Datetime == "" {
			skipped++
			continue
		}
		ts, err := time.Parse(time.RFC3339, v.Datetime)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, energy.RawReading{
			MetricName:      metric,
			SourceTimestamp: ts.UTC(),
			Value:           *v.Value,
			Source:          energy.SourceREE,
			IngestedAt:      now,
		})
	}

	if skipped > 0 {
		p.logger.Warn("skipped malformed indicator rows",
			zap.String("metric", metric),
			zap.Int("indicator", id),
			zap.Int("skipped", skipped),
		)
	}

	return readings, nil
}
