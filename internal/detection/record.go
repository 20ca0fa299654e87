package detection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Record is one decoded detection. It is only ever built by Decode, so the
// type and score fields are always present and well typed.
type Record struct {
	// Type is the classification label, e.g. "Face" or "Human".
	Type string

	// Score is the detector confidence. Expected in [0, 1] but not enforced.
	Score float64

	// Image is the base64 snapshot as sent by the tracker. Empty means the
	// tracker had no image for this detection.
	Image string
}

// HasImage reports whether the record carries a snapshot.
func (r Record) HasImage() bool {
	return r.Image != ""
}

// Decode parses a track message payload into a Record.
//
// Checks run in order and stop at the first failure:
//  1. payload is a JSON object (ErrMalformedPayload)
//  2. classes is a non-empty array (ErrNoClasses)
//  3. classes[0].score is a real number and classes[0].type a string (ErrInvalidClassData)
//  4. image is an object whose data is a string (ErrInvalidImageData)
//
// Decode has no side effects; the same bytes always yield the same result.
func Decode(payload []byte) (Record, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if root == nil {
		return Record{}, fmt.Errorf("%w: top level is null", ErrMalformedPayload)
	}

	first, err := firstClass(root["classes"])
	if err != nil {
		return Record{}, err
	}

	rec, err := parseClass(first)
	if err != nil {
		return Record{}, err
	}

	rec.Image, err = parseImage(root["image"])
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// firstClass returns the raw first element of the classes array.
func firstClass(raw json.RawMessage) (json.RawMessage, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: classes missing", ErrNoClasses)
	}

	var classes []json.RawMessage
	if err := json.Unmarshal(raw, &classes); err != nil || classes == nil {
		return nil, fmt.Errorf("%w: classes is not an array", ErrNoClasses)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: classes is empty", ErrNoClasses)
	}

	return classes[0], nil
}

// parseClass extracts score and type from a class object.
func parseClass(raw json.RawMessage) (Record, error) {
	var class map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&class); err != nil || class == nil {
		return Record{}, fmt.Errorf("%w: first class is not an object", ErrInvalidClassData)
	}

	score, err := realNumber(class["score"])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidClassData, err)
	}

	typ, ok := class["type"].(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: no valid type", ErrInvalidClassData)
	}

	return Record{Type: typ, Score: score}, nil
}

// realNumber accepts only a JSON real: a number written with a fraction or
// an exponent. 1 is an integer and is refused; 1.0 and 1e0 are reals.
func realNumber(v any) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, errors.New("score is not a number")
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		return 0, fmt.Errorf("score %s is an integer", n)
	}
	return n.Float64()
}

// parseImage extracts image.data. An empty string is valid.
func parseImage(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: image missing", ErrInvalidImageData)
	}

	var image map[string]any
	if err := json.Unmarshal(raw, &image); err != nil || image == nil {
		return "", fmt.Errorf("%w: image is not an object", ErrInvalidImageData)
	}

	data, ok := image["data"].(string)
	if !ok {
		return "", fmt.Errorf("%w: image data is not a string", ErrInvalidImageData)
	}

	return data, nil
}
