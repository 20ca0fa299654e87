package nats

import "errors"

// Domain-specific errors for NATS operations.
var (
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("nats: connection failed")

	// ErrSubscribeFailed is returned when a subscription is refused or not confirmed.
	ErrSubscribeFailed = errors.New("nats: subscribe failed")

	// ErrInvalidSubject is returned for subjects the bridge cannot subscribe to.
	ErrInvalidSubject = errors.New("nats: invalid subject")

	// ErrNotConnected is returned when operating on a closed connection.
	ErrNotConnected = errors.New("nats: not connected")
)
