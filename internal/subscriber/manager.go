package subscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger is the logging surface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handler processes one inbound payload. It runs on the Run goroutine.
type Handler func(ctx context.Context, payload []byte)

// Options configures a Manager.
type Options struct {
	Connector Connector
	Channel   Channel
	Handler   Handler
	Logger    Logger
}

// Manager owns one transport connection and one subscription.
type Manager struct {
	connector Connector
	channel   Channel
	handler   Handler
	logger    Logger

	state atomic.Int32

	fatal chan error
	inbox chan []byte
	done  chan struct{}

	mu   sync.Mutex
	conn Conn
	sub  Subscription

	terminateOnce sync.Once
}

// New creates a Manager in StateUninitialized.
func New(opts Options) (*Manager, error) {
	if opts.Connector == nil {
		return nil, fmt.Errorf("connector is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if opts.Channel.Topic == "" {
		return nil, fmt.Errorf("channel topic is required")
	}

	return &Manager{
		connector: opts.Connector,
		channel:   opts.Channel,
		handler:   opts.Handler,
		logger:    opts.Logger,
		fatal:     make(chan error, 1),
		inbox:     make(chan []byte),
		done:      make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Channel returns the channel this Manager serves.
func (m *Manager) Channel() Channel {
	return m.channel
}

// Start connects and submits the subscription. Confirmation arrives
// asynchronously; a rejected subscription is reported by Run.
//
// On failure Start releases whatever it acquired, moves to StateTerminated
// and returns a *FatalError. If Stop runs while Start is still acquiring,
// Start closes what it acquired itself and returns ErrStopped.
func (m *Manager) Start(ctx context.Context) error {
	if !m.transition(StateUninitialized, StateConnectionPending) {
		return ErrAlreadyStarted
	}

	conn, err := m.connector.Connect(ctx, m.onConnectionError)
	if err != nil {
		fe := &FatalError{Op: OpConnect, Err: err}
		m.terminate(fe)
		return fe
	}
	if !m.keep(func() { m.conn = conn }) {
		m.closeLate("connection", conn)
		return ErrStopped
	}

	// A connection error reported from here on is queued for Run.
	m.transition(StateConnectionPending, StateConnected)
	m.transition(StateConnected, StateSubscriptionPending)

	sub, err := conn.Subscribe(m.channel, m.onMessage, m.onSubscribed)
	if err != nil {
		fe := &FatalError{Op: OpSubscribe, Err: err}
		m.terminate(fe)
		return fe
	}
	if !m.keep(func() { m.sub = sub }) {
		m.closeLate("subscription", sub)
		return ErrStopped
	}

	return nil
}

// Run consumes messages until ctx is cancelled or a fatal transport error is
// reported. It releases the subscription and connection before returning.
// A cancelled context returns nil; a transport failure returns *FatalError.
func (m *Manager) Run(ctx context.Context) error {
	switch m.State() {
	case StateUninitialized, StateConnectionPending, StateTerminated:
		return ErrNotStarted
	}

	for {
		// Drain a pending fatal before looking at messages.
		select {
		case err := <-m.fatal:
			return m.terminate(err)
		default:
		}

		select {
		case <-ctx.Done():
			return m.terminate(nil)
		case <-m.done:
			return nil
		case err := <-m.fatal:
			return m.terminate(err)
		case payload := <-m.inbox:
			select {
			case err := <-m.fatal:
				return m.terminate(err)
			default:
			}
			m.handler(ctx, payload)
		}
	}
}

// Stop releases the subscription and connection without an error and ends
// Run. It is safe to call more than once and after Run has returned.
func (m *Manager) Stop() {
	m.terminate(nil)
}

// onMessage is the transport's per-message callback. It blocks until Run
// takes the payload or the Manager terminates.
func (m *Manager) onMessage(payload []byte) {
	if !m.State().accepting() {
		return
	}
	select {
	case m.inbox <- payload:
	case <-m.done:
	}
}

// onSubscribed is the transport's subscription confirmation callback.
func (m *Manager) onSubscribed(err error) {
	if err != nil {
		m.report(&FatalError{Op: OpSubscribe, Err: err})
		return
	}
	if m.transition(StateSubscriptionPending, StateSubscribed) {
		m.logInfo("subscribed to topic",
			"topic", m.channel.Topic,
			"source", m.channel.Source,
		)
	}
}

// onConnectionError is the transport's connection-lost callback.
func (m *Manager) onConnectionError(err error) {
	if err == nil {
		err = errors.New("connection closed")
	}
	m.report(&FatalError{Op: OpConnection, Err: err})
}

// report queues a fatal error. Only the first one is kept, and errors that
// arrive after termination are dropped.
func (m *Manager) report(fe *FatalError) {
	if m.State() == StateTerminated {
		return
	}
	m.logError("transport failure", "op", fe.Op, "error", fe.Err)
	select {
	case m.fatal <- fe:
	default:
	}
}

// terminate moves to StateTerminated and releases transport resources,
// subscription first. It returns cause unchanged.
func (m *Manager) terminate(cause error) error {
	m.terminateOnce.Do(func() {
		from := State(m.state.Swap(int32(StateTerminated)))
		m.logDebug("subscriber state changed", "from", from.String(), "to", StateTerminated.String())
		close(m.done)
		m.release()

		if cause != nil {
			m.logError("subscriber terminated", "error", cause)
		} else {
			m.logInfo("subscriber stopped")
		}
	})
	return cause
}

func (m *Manager) release() {
	m.mu.Lock()
	sub, conn := m.sub, m.conn
	m.sub, m.conn = nil, nil
	m.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			m.logError("failed to release subscription", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logError("failed to release connection", "error", err)
		}
	}
}

// keep stores a resource Start acquired, unless the Manager has already
// terminated. release locks mu after the state swap, so anything stored
// here is seen by it.
func (m *Manager) keep(store func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateTerminated {
		return false
	}
	store()
	return true
}

func (m *Manager) closeLate(what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		m.logError("failed to release "+what, "error", err)
	}
}

// transition moves from -> to atomically and logs it.
func (m *Manager) transition(from, to State) bool {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	m.logDebug("subscriber state changed", "from", from.String(), "to", to.String())
	return true
}

func (m *Manager) logDebug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) logInfo(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) logError(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Error(msg, args...)
	}
}
