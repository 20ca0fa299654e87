package subscriber

import "context"

// Channel names the topic/source pair a Manager subscribes to.
type Channel struct {
	Topic  string
	Source string
}

func (c Channel) String() string {
	return c.Topic + " (" + c.Source + ")"
}

// Connector opens a transport connection.
//
// onError is called by the transport whenever it loses the connection. It
// may be called from any goroutine, at most a few times, and after Connect
// has returned.
type Connector interface {
	Connect(ctx context.Context, onError func(error)) (Conn, error)
}

// Conn is an open transport connection.
type Conn interface {
	// Subscribe submits a subscription. handler is invoked once per message,
	// sequentially. done is invoked once with the broker's confirmation
	// result; it may run before or after Subscribe returns.
	Subscribe(channel Channel, handler func(payload []byte), done func(error)) (Subscription, error)

	// Close releases the connection.
	Close() error
}

// Subscription is an active subscription handle.
type Subscription interface {
	Close() error
}
