package detection

import "errors"

// Decode failure kinds. Use errors.Is to classify a Decode error.
var (
	// ErrMalformedPayload is returned when the payload is not a JSON object.
	ErrMalformedPayload = errors.New("detection: malformed payload")

	// ErrNoClasses is returned when classes is missing, not an array, or empty.
	// An empty detection is not alarm data, so this is expected traffic.
	ErrNoClasses = errors.New("detection: no classes in payload")

	// ErrInvalidClassData is returned when the first class lacks a numeric
	// score or a string type.
	ErrInvalidClassData = errors.New("detection: invalid class data")

	// ErrInvalidImageData is returned when image is not an object or its
	// data field is not a string.
	ErrInvalidImageData = errors.New("detection: invalid image data")
)
