package motor

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an analytics run is already in flight for the
// requested namespace. Callers map it to HTTP 409.
var ErrBusy = errors.New("analytics run already in progress")

// AnalyticsErrorKind classifies why an analytics run failed.
type AnalyticsErrorKind string

const (
	// KindInsufficientData: not enough stored readings to compute anything.
	KindInsufficientData AnalyticsErrorKind = "insufficient_data"
	// KindComputeDiverged: the strategy produced non-finite output.
	KindComputeDiverged AnalyticsErrorKind = "compute_diverged"
	// KindPersistFailed: the result transaction did not commit. No partial
	// rows are left behind.
	KindPersistFailed AnalyticsErrorKind = "persist_failed"
)

// AnalyticsError wraps a run failure with its classification.
type AnalyticsError struct {
	Kind AnalyticsErrorKind
	Err  error
}

func (e *AnalyticsError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analytics %s", e.Kind)
	}
	return fmt.Sprintf("analytics %s: %v", e.Kind, e.Err)
}

func (e *AnalyticsError) Unwrap() error { return e.Err }
