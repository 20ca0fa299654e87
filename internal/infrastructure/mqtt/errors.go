package mqtt

import "errors"

// Broker session errors.
var (
	ErrConnectionFailed = errors.New("mqtt: broker did not accept the connection")
	ErrNotConnected     = errors.New("mqtt: no live broker session")
	ErrTimeout          = errors.New("mqtt: broker did not answer in time")
)

// Track channel errors. ErrSubscribeFailed covers both a refused SUBACK
// and a SUBACK that never arrived.
var (
	ErrInvalidTopic      = errors.New("mqtt: track topic is not usable")
	ErrInvalidQoS        = errors.New("mqtt: qos outside 0..2")
	ErrSubscribeFailed   = errors.New("mqtt: track subscription rejected")
	ErrUnsubscribeFailed = errors.New("mqtt: track subscription not released")
)

// ErrPublishFailed is returned when a status announcement or an injected
// message is not acknowledged by the broker.
var ErrPublishFailed = errors.New("mqtt: publish not acknowledged")
