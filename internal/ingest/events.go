package ingest

import "time"

// Event topics published by the ingest module.
const (
	TopicBatchStored = "ingest.batch.stored"
	TopicFetchFailed = "ingest.fetch.failed"
)

// BatchStored is the payload for TopicBatchStored events.
type BatchStored struct {
	Metric     string    `json:"metric"`
	Source     string    `json:"source"`
	NewRecords int       `json:"new_records"`
	WindowFrom time.Time `json:"window_from"`
	WindowTo   time.Time `json:"window_to"`
}

// FetchFailed is the payload for TopicFetchFailed events, published once a
// metric's fetch has exhausted its retries.
type FetchFailed struct {
	Metric string `json:"metric"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}
