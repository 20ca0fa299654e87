// Package detection turns raw track messages into forwardable alarms.
//
// A track message is JSON published by the camera's object tracker:
//
//	{"classes":[{"score":0.87,"type":"Human"}], "image":{"data":"<base64>"}}
//
// Only the first element of classes and the top-level image.data are read.
// The flow for one message is:
//
//	rec, err := detection.Decode(payload)   // validate and extract
//	if filter.Accept(rec) {                 // Face/Human only
//	    alarm := detection.NewAlarm(rec, cameraID)
//	}
//
// Everything in this package is pure apart from the rejection log line
// emitted by Filter; it is safe to call from any goroutine.
package detection
