package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when metrics are turned off.
	ErrDisabled = errors.New("influxdb: metrics disabled")

	// ErrUnreachable is returned by Connect when the server does not answer a ping.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned when writing through a closed Recorder.
	ErrClosed = errors.New("influxdb: recorder closed")
)
