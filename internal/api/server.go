package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/track-alarm-bridge/internal/journal"
	"github.com/nerrad567/track-alarm-bridge/internal/pipeline"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SubscriptionStatus reports the subscription lifecycle state.
type SubscriptionStatus interface {
	State() subscriber.State
	Channel() subscriber.Channel
}

// StatsSource provides pipeline counters.
type StatsSource interface {
	Stats() pipeline.Stats
}

// DeliveryLister pages through the delivery journal.
type DeliveryLister interface {
	List(ctx context.Context, filter journal.Filter) (*journal.ListResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	Logger       *logging.Logger
	CameraID     string
	Subscription SubscriptionStatus
	Stats        StatsSource
	Journal      DeliveryLister // nil when the journal is disabled
	Version      string
}

// Server is the status HTTP server.
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	cameraID     string
	subscription SubscriptionStatus
	stats        StatsSource
	journal      DeliveryLister
	version      string
	server       *http.Server
	listener     net.Listener
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Subscription == nil {
		return nil, fmt.Errorf("subscription status is required")
	}
	if deps.Stats == nil {
		return nil, fmt.Errorf("stats source is required")
	}

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		cameraID:     deps.CameraID,
		subscription: deps.Subscription,
		stats:        deps.Stats,
		journal:      deps.Journal,
		version:      deps.Version,
	}, nil
}

// Start binds the listener and serves in a background goroutine.
// Bind failures (port in use, etc.) are returned; later serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
