// Package subscriber owns the single track-message subscription of the bridge.
//
// A Manager drives the transport through a fixed lifecycle:
//
//	Uninitialized -> ConnectionPending -> Connected -> SubscriptionPending -> Subscribed -> Terminated
//
// The transport is reached only through the Connector, Conn and Subscription
// interfaces, so MQTT, NATS and test fakes plug in the same way.
//
// Transport-reported connection errors and subscription confirmation failures
// are fail-fast: they surface from Run as a *FatalError after the subscription
// and connection have been released, in that order. A cancelled context is an
// ordinary shutdown and makes Run return nil.
//
// Messages are handed from transport callbacks to Run over an unbuffered
// channel. Run is the only consumer, so the handler never sees two messages at
// once, and a pending fatal error always wins over a pending message.
package subscriber
