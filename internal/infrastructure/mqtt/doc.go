// Package mqtt provides the MQTT transport for the alarm bridge.
//
// It adapts paho.mqtt.golang to the subscriber package's Connector, Conn
// and Subscription interfaces:
//   - One connection per process, no automatic reconnect
//   - Connection loss is reported to the subscriber as a fatal error
//   - Subscription confirmation (SUBACK) is reported asynchronously
//   - Last Will and Testament (LWT) marks the bridge offline on a crash
//
// # Topic mapping
//
// A subscriber.Channel{Topic, Source} maps to the MQTT topic "<topic>/<source>".
// The bridge publishes its own online/offline status, retained, to
// "alarmbridge/<client_id>/status".
//
// # Usage
//
//	connector := mqtt.NewConnector(cfg.Transport.MQTT, logger)
//	mgr, err := subscriber.New(subscriber.Options{Connector: connector, ...})
package mqtt
