package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Connector opens MQTT connections. It implements subscriber.Connector.
type Connector struct {
	cfg    config.MQTTConfig
	logger Logger

	// newClient builds the paho client; replaced in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
}

// NewConnector creates a Connector for cfg. logger may be nil.
func NewConnector(cfg config.MQTTConfig, logger Logger) *Connector {
	return &Connector{
		cfg:       cfg,
		logger:    logger,
		newClient: pahomqtt.NewClient,
	}
}

// Client is a connected MQTT client. It implements subscriber.Conn.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are NOT restored after a connection loss; the loss is
//     reported to the onError callback passed to Connect instead.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	logger Logger

	closeOnce sync.Once
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) for offline detection
//  3. Routes connection loss to onError
//  4. Attempts the connection, bounded by ctx and defaultConnectTimeout
//  5. Publishes online status to alarmbridge/{client_id}/status
func (c *Connector) Connect(ctx context.Context, onError func(error)) (subscriber.Conn, error) {
	opts := buildClientOptions(c.cfg)
	configureLWT(opts, c.cfg.Broker.ClientID)

	cl := &Client{
		cfg:    c.cfg,
		logger: c.logger,
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		cl.handleConnectionLost(err, onError)
	})

	cl.client = c.newClient(opts)
	if err := waitToken(ctx, cl.client.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	cl.logInfo("connected to mqtt broker",
		"host", c.cfg.Broker.Host,
		"port", c.cfg.Broker.Port,
		"client_id", c.cfg.Broker.ClientID,
	)

	if err := cl.announceStatus(buildOnlinePayload(c.cfg.Broker.ClientID)); err != nil {
		cl.logWarn("failed to publish online status", "error", err)
	}

	return cl, nil
}

// handleConnectionLost is called by paho when the connection drops.
func (c *Client) handleConnectionLost(err error, onError func(error)) {
	c.logWarn("mqtt connection lost", "error", err)
	if onError != nil {
		onError(fmt.Errorf("mqtt: connection lost: %w", err))
	}
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes graceful offline status (different from LWT crash status)
//  2. Disconnects with a quiesce period for pending operations
//
// Close is idempotent. A connection that is already gone is not an error.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		if c.IsConnected() {
			if err := c.announceStatus(buildOfflinePayload(c.cfg.Broker.ClientID)); err != nil {
				c.logWarn("failed to publish offline status", "error", err)
			}
		}
		c.client.Disconnect(defaultDisconnectQuiesce)
	})
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// wrapHandler wraps a payload handler with panic recovery.
func (c *Client) wrapHandler(handler func(payload []byte)) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logError("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()

		handler(msg.Payload())
	}
}

// waitToken blocks until token completes, ctx is done, or timeout elapses.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: after %v", ErrTimeout, timeout)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
