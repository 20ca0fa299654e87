package delivery

import "errors"

var (
	// ErrSendFailed is returned when the request could not be sent or the
	// response could not be read.
	ErrSendFailed = errors.New("delivery: send failed")

	// ErrInvalidURL is returned by NewClient for an unusable endpoint.
	ErrInvalidURL = errors.New("delivery: invalid server url")
)
