package motor

import "time"

// Event topics consumed by the motor module.
const (
	TopicIngestBatchStored = "ingest.batch.stored"
)

// Event topics published by the motor module.
const (
	TopicRunCompleted = "motor.run.completed"
	TopicRunFailed    = "motor.run.failed"
)

// RunCompleted is the payload for TopicRunCompleted events.
type RunCompleted struct {
	Namespace   string        `json:"namespace"`
	Strategy    string        `json:"strategy"`
	Predictions int           `json:"predictions"`
	Anomalies   int           `json:"anomalies"`
	Duration    time.Duration `json:"duration"`
}
