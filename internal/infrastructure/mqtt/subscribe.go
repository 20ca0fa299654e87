package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// subscribeResult is implemented by paho's SubscribeToken.
type subscribeResult interface {
	Result() map[string]byte
}

// Subscription is an active MQTT subscription. It implements
// subscriber.Subscription.
type Subscription struct {
	client *Client
	topic  string

	closeOnce sync.Once
	closeErr  error
}

// Subscribe registers handler for channel's track topic.
//
// Validation errors are returned immediately. The broker's answer arrives
// later through done: nil once the SUBACK grants the subscription, an
// ErrSubscribeFailed-wrapped error if it is refused or never arrives.
//
// Handlers run one at a time in arrival order (paho OrderMatters).
func (c *Client) Subscribe(channel subscriber.Channel, handler func(payload []byte), done func(error)) (subscriber.Subscription, error) {
	topic := Topics{}.Track(channel.Topic, channel.Source)
	if err := validateSubscribeTopic(topic); err != nil {
		return nil, err
	}
	if c.cfg.QoS < 0 || c.cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	token := c.client.Subscribe(topic, byte(c.cfg.QoS), c.wrapHandler(handler))

	go func() {
		err := confirmSubscription(token, topic)
		if done != nil {
			done(err)
		}
	}()

	return &Subscription{client: c, topic: topic}, nil
}

// confirmSubscription waits for the SUBACK and checks the granted QoS.
func confirmSubscription(token pahomqtt.Token, topic string) error {
	if err := waitToken(context.Background(), token, defaultSubscribeTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	if res, ok := token.(subscribeResult); ok {
		if code, found := res.Result()[topic]; found && code == subackFailure {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, errors.New("refused by broker"))
		}
	}
	return nil
}

// Topic returns the MQTT topic of the subscription.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close unsubscribes. It is a no-op when the connection is already gone.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		if !s.client.IsConnected() {
			return
		}

		token := s.client.client.Unsubscribe(s.topic)
		if !token.WaitTimeout(defaultPublishTimeout) {
			s.closeErr = fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
			return
		}
		if err := token.Error(); err != nil {
			s.closeErr = fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
		}
	})
	return s.closeErr
}
