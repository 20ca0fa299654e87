package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

const (
	// defaultConnectTimeout applies when config leaves connect_timeout at zero.
	defaultConnectTimeout = 10 * time.Second

	// defaultConfirmTimeout bounds the subscription round trip.
	defaultConfirmTimeout = 10 * time.Second
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Connector opens NATS connections. It implements subscriber.Connector.
type Connector struct {
	cfg    config.NATSConfig
	logger Logger
}

// NewConnector creates a Connector for cfg. logger may be nil.
func NewConnector(cfg config.NATSConfig, logger Logger) *Connector {
	return &Connector{cfg: cfg, logger: logger}
}

// Client is a connected NATS client. It implements subscriber.Conn.
type Client struct {
	conn    *natsgo.Conn
	logger  Logger
	closing atomic.Bool

	closeOnce sync.Once
}

// Subject returns the NATS subject for a channel.
//
// Example: com.axis.consolidated_track.v1.beta.1
func Subject(channel subscriber.Channel) string {
	if channel.Source == "" {
		return channel.Topic
	}
	return channel.Topic + "." + channel.Source
}

// Connect dials the NATS server. onError receives any disconnect that the
// client did not initiate.
func (c *Connector) Connect(ctx context.Context, onError func(error)) (subscriber.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	cl := &Client{logger: c.logger}

	nc, err := natsgo.Connect(c.cfg.URL, c.options(cl, onError)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	cl.conn = nc

	cl.logInfo("NATS connection established", "url", nc.ConnectedUrlRedacted())
	return cl, nil
}

// options builds the nats.go options for one client.
func (c *Connector) options(cl *Client, onError func(error)) []natsgo.Option {
	timeout := time.Duration(c.cfg.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := []natsgo.Option{
		natsgo.Timeout(timeout),
		natsgo.NoReconnect(),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			cl.handleDisconnect(err, onError)
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			cl.logWarn("NATS async error", "subject", subject, "error", err)
		}),
	}
	if c.cfg.Name != "" {
		opts = append(opts, natsgo.Name(c.cfg.Name))
	}
	return opts
}

// handleDisconnect reports a disconnect unless Close caused it.
func (c *Client) handleDisconnect(err error, onError func(error)) {
	if c.closing.Load() {
		return
	}
	if err == nil {
		err = errors.New("connection closed by server")
	}
	c.logWarn("NATS connection lost", "error", err)
	if onError != nil {
		onError(fmt.Errorf("nats: connection lost: %w", err))
	}
}

// Subscribe registers handler for channel's subject. The server's
// acknowledgment is reported through done after a flush round trip.
// nats.go invokes handler sequentially for a subscription.
func (c *Client) Subscribe(channel subscriber.Channel, handler func(payload []byte), done func(error)) (subscriber.Subscription, error) {
	subject := Subject(channel)
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil, ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, c.wrapHandler(handler))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, subject, err)
	}

	go func() {
		err := c.conn.FlushTimeout(defaultConfirmTimeout)
		if err == nil && !sub.IsValid() {
			err = errors.New("subscription invalidated by server")
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, subject, err)
		}
		if done != nil {
			done(err)
		}
	}()

	return &Subscription{sub: sub}, nil
}

// Close closes the connection without reporting it as a failure.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.conn.Close()
	})
	return nil
}

func (c *Client) wrapHandler(handler func(payload []byte)) natsgo.MsgHandler {
	return func(msg *natsgo.Msg) {
		defer func() {
			if r := recover(); r != nil {
				c.logError("NATS handler panic recovered",
					"subject", msg.Subject,
					"panic", r,
				)
			}
		}()

		handler(msg.Data)
	}
}

// Subscription is an active NATS subscription. It implements
// subscriber.Subscription.
type Subscription struct {
	sub *natsgo.Subscription
}

// Subject returns the subscribed subject.
func (s *Subscription) Subject() string {
	return s.sub.Subject
}

// Close unsubscribes. Closing after the connection is gone is not an error.
func (s *Subscription) Close() error {
	err := s.sub.Unsubscribe()
	if errors.Is(err, natsgo.ErrConnectionClosed) || errors.Is(err, natsgo.ErrBadSubscription) {
		return nil
	}
	return err
}

// validateSubject rejects subjects that are empty, contain whitespace or
// wildcards, or have empty tokens.
func validateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidSubject)
	}
	if strings.ContainsAny(subject, " \t\r\n*>") {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	for _, token := range strings.Split(subject, ".") {
		if token == "" {
			return fmt.Errorf("%w: empty token in %q", ErrInvalidSubject, subject)
		}
	}
	return nil
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
