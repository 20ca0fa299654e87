//go:build integration

package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// Integration tests against a real server.
// These tests require a running NATS server at 127.0.0.1:4222.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/nats/...

func TestIntegration_TrackRoundtrip(t *testing.T) {
	cfg := config.NATSConfig{URL: "nats://127.0.0.1:4222", Name: "alarmbridge-int"}

	conn, err := NewConnector(cfg, nil).Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer conn.Close()

	channel := subscriber.Channel{Topic: "alarmbridge-int.track", Source: "1"}
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

	payload := []byte(`{"classes":[{"score":0.9,"type":"Face"}],"image":{"data":""}}`)
	if err := conn.(*Client).conn.Publish(Subject(channel), payload); err != nil {
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
