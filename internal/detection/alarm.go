package detection

import "encoding/json"

// Alarm is the body POSTed to the alarm server. Field names and order are
// fixed by the server contract.
type Alarm struct {
	ConfidenceScore float64 `json:"confidence_score"`
	ImageBase64     string  `json:"image_base64"`
	CameraID        string  `json:"camera_id"`
	Type            string  `json:"type"`
}

// NewAlarm maps an accepted record onto the outbound alarm for cameraID.
func NewAlarm(rec Record, cameraID string) Alarm {
	return Alarm{
		ConfidenceScore: rec.Score,
		ImageBase64:     rec.Image,
		CameraID:        cameraID,
		Type:            rec.Type,
	}
}

// Marshal serialises the alarm as JSON.
func (a Alarm) Marshal() ([]byte, error) {
	return json.Marshal(a)
}
