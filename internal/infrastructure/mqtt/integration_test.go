//go:build integration

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
	}
}

func TestIntegration_TrackRoundtrip(t *testing.T) {
	ctx := context.Background()

	conn, err := NewConnector(integrationConfig("alarmbridge-int-sub"), nil).Connect(ctx, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	channel := subscriber.Channel{Topic: "alarmbridge-int/track", Source: "1"}
	received := make(chan []byte, 1)
	confirmed := make(chan error, 1)

	sub, err := conn.Subscribe(channel, func(p []byte) { received <- p }, func(err error) { confirmed <- err })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	select {
	case err := <-confirmed:
		if err != nil {
			t.Fatalf("subscription not confirmed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription confirmation")
	}

	pubConn, err := NewConnector(integrationConfig("alarmbridge-int-pub"), nil).Connect(ctx, nil)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubConn.Close()

	payload := []byte(`{"classes":[{"score":0.9,"type":"Human"}],"image":{"data":""}}`)
	if err := pubConn.(*Client).Publish(Topics{}.Track(channel.Topic, channel.Source), payload, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(payload) {
			t.Errorf("received %s, want %s", got, payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig("alarmbridge-int-refused")
	cfg.Broker.Port = 19999

	_, err := NewConnector(cfg, nil).Connect(context.Background(), nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
