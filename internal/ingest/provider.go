package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

// Provider fetches raw readings for a metric from an upstream source.
// Implementations tag every returned reading with their source name.
type Provider interface {
	// Name returns the source tag recorded with each reading.
	Name() string

	// Fetch retrieves readings for the metric within the given window.
	// Returned readings may overlap data already stored; deduplication
	// happens at the storage layer, not here.
	Fetch(ctx context.Context, metric string, window energy.TimeRange) ([]energy.RawReading, error)
}

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

const (
	// FetchUnreachable covers network failures and upstream 5xx responses.
	FetchUnreachable FetchErrorKind = "unreachable"
	// FetchRateLimited indicates the upstream rejected the request with 429.
	FetchRateLimited FetchErrorKind = "rate_limited"
	// FetchBadResponse indicates the upstream answered but the payload
	// could not be decoded into readings. Not retried.
	FetchBadResponse FetchErrorKind = "bad_response_shape"
)

// FetchError wraps an upstream failure with its classification.
// Status carries the HTTP status code when the upstream answered at all.
type FetchError struct {
	Kind   FetchErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying the fetch could succeed. Malformed
// payloads and client errors (a rejected token, a bad request) will not fix
// themselves; 429 is the exception since rate limits clear on their own.
func (e *FetchError) Transient() bool {
	if e.Kind == FetchBadResponse {
		return false
	}
	if e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests {
		return false
	}
	return true
}
