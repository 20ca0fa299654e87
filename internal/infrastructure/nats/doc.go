// Package nats provides the NATS transport for the alarm bridge.
//
// It adapts nats.go to the subscriber package's Connector, Conn and
// Subscription interfaces, mirroring the MQTT transport:
//   - Reconnection is disabled; a disconnect is reported as a fatal error
//   - Subscription confirmation is a server round trip (FlushTimeout)
//   - A subscriber.Channel{Topic, Source} maps to the subject "<topic>.<source>"
package nats
