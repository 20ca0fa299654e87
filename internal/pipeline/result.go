package pipeline

import (
	"time"

	"github.com/nerrad567/track-alarm-bridge/internal/detection"
)

// Stage is the point at which a message left the pipeline.
type Stage string

const (
	StageDecodeFailed   Stage = "decode_failed"
	StageRejected       Stage = "rejected"
	StageDelivered      Stage = "delivered"
	StageDeliveryFailed Stage = "delivery_failed"
)

// Result describes what happened to one message.
type Result struct {
	EventID    string
	CameraID   string
	ReceivedAt time.Time
	Stage      Stage

	// Record is the zero value when Stage is StageDecodeFailed.
	Record detection.Record

	// StatusCode is the alarm server's HTTP status, when one was received.
	StatusCode int

	// Err is set for StageDecodeFailed and StageDeliveryFailed.
	Err error
}

// Attempted reports whether an alarm was sent (successfully or not).
func (r Result) Attempted() bool {
	return r.Stage == StageDelivered || r.Stage == StageDeliveryFailed
}
