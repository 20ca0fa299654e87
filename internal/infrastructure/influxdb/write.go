package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/track-alarm-bridge/internal/pipeline"
)

// MeasurementTrackEvents is the measurement every processed message is written to.
const MeasurementTrackEvents = "track_events"

// typeUnknown tags messages that never decoded to a classification.
const typeUnknown = "unknown"

// trackEventPoint converts a pipeline result into a track_events point.
//
// Tags: camera_id, type, stage (all low cardinality).
// Fields: score, image_present, and status_code when the alarm server answered.
func trackEventPoint(res pipeline.Result) *write.Point {
	typ := res.Record.Type
	if res.Stage == pipeline.StageDecodeFailed || typ == "" {
		typ = typeUnknown
	}

	fields := map[string]interface{}{
		"score":         res.Record.Score,
		"image_present": res.Record.HasImage(),
	}
	if res.StatusCode != 0 {
		fields["status_code"] = int64(res.StatusCode)
	}

	return write.NewPoint(
		MeasurementTrackEvents,
		map[string]string{
			"camera_id": res.CameraID,
			"type":      typ,
			"stage":     string(res.Stage),
		},
		fields,
		res.ReceivedAt,
	)
}

// Observe queues res as a track_events point. It implements
// pipeline.Observer; failed batches are reported through SetOnError.
func (r *Recorder) Observe(_ context.Context, res pipeline.Result) error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.writeAPI.WritePoint(trackEventPoint(res))
	return nil
}
