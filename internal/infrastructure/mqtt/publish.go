package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single outbound message.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge it.
// The bridge itself only announces its status; tests use Publish to inject
// track messages.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	case qos > maxQoS:
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d bytes over the %d byte cap", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return c.send(topic, payload, qos, retained)
}

// announceStatus publishes the retained status document for this client.
func (c *Client) announceStatus(payload string) error {
	topic := Topics{}.Status(c.cfg.Broker.ClientID)
	return c.send(topic, []byte(payload), byte(c.cfg.QoS), true)
}

func (c *Client) send(topic string, payload []byte, qos byte, retained bool) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
